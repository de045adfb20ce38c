package std_algorithm_manager

import (
	"fmt"
	"path/filepath"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/export"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/scene"
	"github.com/ecopia-map/potree_streamer/internal/stream"
	"github.com/ecopia-map/potree_streamer/pkg/algorithm_manager"
	"github.com/ecopia-map/potree_streamer/tools"
)

type StandardAlgorithmManager struct {
	options *loader.LoaderOptions
}

func NewAlgorithmManager(opts *loader.LoaderOptions) algorithm_manager.AlgorithmManager {
	return &StandardAlgorithmManager{
		options: opts,
	}
}

// GetSinkAlgorithm returns a tile writer for exports, writing in a subfolder named after the
// cloud, and an in memory scene otherwise
func (am *StandardAlgorithmManager) GetSinkAlgorithm(cloudPath string) chunk.Sink {
	if exportOpts := am.options.ExportOptions; exportOpts != nil {
		return export.NewPntsWriter(filepath.Join(exportOpts.Output, filepath.Base(cloudPath)), exportOpts.Compress)
	}
	return scene.NewScene(scene.NewMemoryRenderer())
}

// GetSchedulerOptions reports the progress of every finished point loading slice
func (am *StandardAlgorithmManager) GetSchedulerOptions() []stream.Option {
	return []stream.Option{stream.WithProgressHandler(logProgress)}
}

func logProgress(p stream.Progress) {
	if p.State != stream.LoadingPoints {
		return
	}
	tools.LogOutput(fmt.Sprintf("> %d/%d nodes, %d points", p.LoadedNodes, p.TotalNodes, p.LoadedPoints))
}
