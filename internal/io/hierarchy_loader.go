package io

import (
	"fmt"

	"github.com/golang/glog"

	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

// Size in bytes of one hierarchy record: a child presence mask followed by a point count
// that is not used
const hierarchyRecordSize = 5

// NodeFileLoader reads the file of a node with the given extension
type NodeFileLoader interface {
	Load(id string, ext string) ([]byte, error)
}

// HierarchyLoader rebuilds the topology of a tree from its .hrc shards
type HierarchyLoader struct {
	files  NodeFileLoader
	tree   octree.ITree
	loaded map[string]bool
}

func NewHierarchyLoader(files NodeFileLoader, tree octree.ITree) *HierarchyLoader {
	return &HierarchyLoader{
		files:  files,
		tree:   tree,
		loaded: make(map[string]bool),
	}
}

// Load decodes the shard named after root and recursively every shard needed to describe the
// nodes it leaves unresolved. Each shard is read at most once per loader.
func (l *HierarchyLoader) Load(root octree.INode) error {
	if l.loaded[root.GetPath()] {
		return nil
	}
	l.loaded[root.GetPath()] = true

	content, err := l.files.Load(root.GetPath(), potree.HierarchyExtension)
	if err != nil {
		return err
	}

	numRecords := len(content) / hierarchyRecordSize
	if extra := len(content) % hierarchyRecordSize; extra != 0 {
		glog.Warningf("hierarchy of node %s has %d trailing bytes, ignoring them", root.GetName(), extra)
	}

	queue := []octree.INode{root}
	for i := 0; i < numRecords; i++ {
		if len(queue) == 0 {
			return &potree.DataMismatchError{
				Node:   root.GetPath(),
				Reason: fmt.Sprintf("hierarchy has %d records but describes only %d nodes", numRecords, i),
			}
		}
		node := queue[0]
		queue = queue[1:]

		mask := content[i*hierarchyRecordSize]
		for octant := uint8(0); octant < 8; octant++ {
			if mask&(1<<octant) == 0 {
				continue
			}
			child, err := l.tree.AddChild(node, octant)
			if err != nil {
				return err
			}
			queue = append(queue, child)
		}
	}
	glog.V(1).Infof("hierarchy of node %s: %d records, %d nodes pending", root.GetName(), numRecords, len(queue))

	// nodes left in the queue are described by the shard of their parent
	for _, node := range queue {
		parent := node.GetParent()
		if parent == nil {
			continue
		}
		if err := l.Load(parent); err != nil {
			return err
		}
	}
	return nil
}
