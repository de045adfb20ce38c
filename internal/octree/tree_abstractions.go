package octree

import (
	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

type ITree interface {
	GetRootNode() INode
	GetNode(path string) (INode, bool)
	// Returns the child of parent in the given octant, creating it if it does not exist yet
	AddChild(parent INode, octant uint8) (INode, error)
	NumberOfNodes() int
	Clear()
}

type INode interface {
	GetPath() string
	GetName() string
	Level() int
	IsRoot() bool
	IsLeaf() bool
	GetBoundingBox() geometry.BoundingBox
	GetParent() INode
	GetChild(octant uint8) (INode, bool)
	// Existing children, in octant order
	GetChildren() []INode
	GetPointData() *data.PointData
	SetPointData(pointData *data.PointData) error
	HasPointData() bool
	ReleasePointData()
}
