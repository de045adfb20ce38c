package potree_tree

import (
	"sync"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

// Models a node of a Potree hierarchy. The path is the sequence of octants leading from the
// root to the node, the root having an empty path.
type PotreeNode struct {
	tree        *PotreeTree
	path        string
	childMask   uint8
	boundingBox geometry.BoundingBox
	pointData   *data.PointData
	assigned    bool

	sync.Mutex
}

func newPotreeNode(tree *PotreeTree, path string, boundingBox geometry.BoundingBox) *PotreeNode {
	return &PotreeNode{
		tree:        tree,
		path:        path,
		boundingBox: boundingBox,
	}
}

func (n *PotreeNode) GetPath() string {
	return n.path
}

// GetName returns the node name as used in file names, "r" followed by the path
func (n *PotreeNode) GetName() string {
	return "r" + n.path
}

func (n *PotreeNode) Level() int {
	return len(n.path)
}

func (n *PotreeNode) IsRoot() bool {
	return n.path == ""
}

func (n *PotreeNode) IsLeaf() bool {
	n.tree.RLock()
	defer n.tree.RUnlock()
	return n.childMask == 0
}

func (n *PotreeNode) GetBoundingBox() geometry.BoundingBox {
	return n.boundingBox
}

func (n *PotreeNode) GetParent() octree.INode {
	if n.IsRoot() {
		return nil
	}
	parent, ok := n.tree.lookup(n.path[:len(n.path)-1])
	if !ok {
		return nil
	}
	return parent
}

func (n *PotreeNode) GetChild(octant uint8) (octree.INode, bool) {
	if octant > 7 {
		return nil, false
	}
	child, ok := n.tree.lookup(childPath(n.path, octant))
	if !ok {
		return nil, false
	}
	return child, true
}

func (n *PotreeNode) GetChildren() []octree.INode {
	n.tree.RLock()
	defer n.tree.RUnlock()

	children := make([]octree.INode, 0, 8)
	for i := uint8(0); i < 8; i++ {
		if n.childMask&(1<<i) == 0 {
			continue
		}
		if child, ok := n.tree.nodes[childPath(n.path, i)]; ok {
			children = append(children, child)
		}
	}
	return children
}

func (n *PotreeNode) GetPointData() *data.PointData {
	n.Lock()
	defer n.Unlock()
	return n.pointData
}

// SetPointData assigns the decoded payload. A node accepts a single assignment over its lifetime,
// a released payload cannot be replaced.
func (n *PotreeNode) SetPointData(pointData *data.PointData) error {
	n.Lock()
	defer n.Unlock()

	if n.assigned {
		return &potree.DuplicateAssignmentError{Node: n.path}
	}
	if pointData == nil || pointData.Len() < 0 {
		return &potree.DataMismatchError{Node: n.path, Reason: "positions and colors differ in length"}
	}
	n.pointData = pointData
	n.assigned = true
	return nil
}

func (n *PotreeNode) HasPointData() bool {
	n.Lock()
	defer n.Unlock()
	return n.pointData != nil
}

func (n *PotreeNode) ReleasePointData() {
	n.Lock()
	defer n.Unlock()
	n.pointData = nil
}
