package pkg

import (
	"github.com/golang/glog"

	"github.com/ecopia-map/potree_streamer/internal/io"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/octree/potree_tree"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

// CloudSummary describes a cloud from its metadata and hierarchy, without reading any payload
type CloudSummary struct {
	Name             string    `json:"name"`
	Version          string    `json:"version"`
	Projection       string    `json:"projection,omitempty"`
	Points           int64     `json:"points"`
	PointAttributes  []string  `json:"point_attributes"`
	Stride           int       `json:"stride"`
	Spacing          float64   `json:"spacing"`
	Scale            float64   `json:"scale"`
	StepSize         int       `json:"hierarchy_step_size"`
	BoundingBox      []float64 `json:"bounding_box"`
	TightBoundingBox []float64 `json:"tight_bounding_box"`
	Nodes            int       `json:"nodes"`
	NodesPerLevel    []int     `json:"nodes_per_level"`
}

// Inspect reads the metadata and the whole hierarchy of a cloud
func Inspect(cloudPath string, moveToOrigin bool) (*CloudSummary, error) {
	meta, err := potree.LoadMetadata(cloudPath, moveToOrigin)
	if err != nil {
		return nil, err
	}

	tree := potree_tree.NewPotreeTree(meta.BoundingBox())
	defer tree.Clear()
	if err := io.NewHierarchyLoader(potree.NewFileLocator(meta), tree).Load(tree.GetRootNode()); err != nil {
		return nil, err
	}
	glog.V(1).Infof("hierarchy of %s: %d nodes", meta.CloudName(), tree.NumberOfNodes())

	summary := &CloudSummary{
		Name:             meta.CloudName(),
		Version:          meta.Version(),
		Projection:       meta.Projection(),
		Points:           meta.Points(),
		PointAttributes:  meta.PointAttributes(),
		Stride:           meta.Stride(),
		Spacing:          meta.Spacing(),
		Scale:            meta.Scale(),
		StepSize:         meta.HierarchyStepSize(),
		BoundingBox:      meta.BoundingBox().GetAsArray(),
		TightBoundingBox: meta.TightBoundingBox().GetAsArray(),
		Nodes:            tree.NumberOfNodes(),
	}
	countLevels(tree.GetRootNode(), &summary.NodesPerLevel)
	return summary, nil
}

func countLevels(node octree.INode, counts *[]int) {
	level := node.Level()
	for len(*counts) <= level {
		*counts = append(*counts, 0)
	}
	(*counts)[level]++
	for _, child := range node.GetChildren() {
		countLevels(child, counts)
	}
}
