package io

import (
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

type Producer interface {
	Produce(root octree.INode) []*WorkUnit
}
