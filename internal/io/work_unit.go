package io

import (
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Contains the minimal data needed to load the payload of a single node
type WorkUnit struct {
	Node octree.INode
	// position of the unit in enumeration order
	Index int
}
