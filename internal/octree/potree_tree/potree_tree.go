package potree_tree

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// PotreeTree is the arena owning every node of a point cloud hierarchy. Nodes are keyed
// by their path and refer to their parent and children through it.
type PotreeTree struct {
	nodes map[string]*PotreeNode
	sync.RWMutex
}

// Builds a tree holding only the root node
func NewPotreeTree(rootBoundingBox geometry.BoundingBox) *PotreeTree {
	tree := &PotreeTree{
		nodes: make(map[string]*PotreeNode),
	}
	tree.nodes[""] = newPotreeNode(tree, "", rootBoundingBox)
	return tree
}

func (tree *PotreeTree) GetRootNode() octree.INode {
	root, ok := tree.GetNode("")
	if !ok {
		return nil
	}
	return root
}

func (tree *PotreeTree) GetNode(path string) (octree.INode, bool) {
	node, ok := tree.lookup(path)
	if !ok {
		return nil, false
	}
	return node, true
}

func (tree *PotreeTree) lookup(path string) (*PotreeNode, bool) {
	tree.RLock()
	defer tree.RUnlock()
	node, ok := tree.nodes[path]
	return node, ok
}

// AddChild returns the child of parent in the given octant. Adding an existing child is a no-op
// returning the node already stored.
func (tree *PotreeTree) AddChild(parent octree.INode, octant uint8) (octree.INode, error) {
	if octant > 7 {
		return nil, errors.Errorf("invalid octant %d", octant)
	}
	tree.Lock()
	defer tree.Unlock()

	p, ok := tree.nodes[parent.GetPath()]
	if !ok || octree.INode(p) != parent {
		return nil, errors.Errorf("node r%s does not belong to this tree", parent.GetPath())
	}

	path := childPath(p.path, octant)
	if child, ok := tree.nodes[path]; ok {
		return child, nil
	}

	child := newPotreeNode(tree, path, geometry.NewBoundingBoxFromParent(p.boundingBox, octant))
	tree.nodes[path] = child
	p.childMask |= 1 << octant
	return child, nil
}

func (tree *PotreeTree) NumberOfNodes() int {
	tree.RLock()
	defer tree.RUnlock()
	return len(tree.nodes)
}

// Clear drops every node and its payload. The tree must not be used afterwards.
func (tree *PotreeTree) Clear() {
	tree.Lock()
	defer tree.Unlock()
	for _, node := range tree.nodes {
		node.ReleasePointData()
	}
	tree.nodes = make(map[string]*PotreeNode)
}

func childPath(parentPath string, octant uint8) string {
	return parentPath + string(rune('0'+octant))
}
