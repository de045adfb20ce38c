package io

import (
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// StandardProducer enumerates the nodes to load depth first, in octant order, down to maxDepth
type StandardProducer struct {
	maxDepth int
}

func NewStandardProducer(maxDepth int) *StandardProducer {
	return &StandardProducer{
		maxDepth: maxDepth,
	}
}

// Produce returns one WorkUnit per node of level at most maxDepth, parents before children
func (p *StandardProducer) Produce(root octree.INode) []*WorkUnit {
	var work []*WorkUnit
	if root == nil || p.maxDepth < 0 {
		return work
	}
	return p.produce(root, work)
}

func (p *StandardProducer) produce(node octree.INode, work []*WorkUnit) []*WorkUnit {
	work = append(work, &WorkUnit{
		Node:  node,
		Index: len(work),
	})

	// children are only visited below the depth limit
	if node.Level() >= p.maxDepth {
		return work
	}
	for _, child := range node.GetChildren() {
		work = p.produce(child, work)
	}
	return work
}
