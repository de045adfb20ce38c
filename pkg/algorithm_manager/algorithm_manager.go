package algorithm_manager

import (
	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/stream"
)

// AlgorithmManager picks the collaborators of the load of each cloud
type AlgorithmManager interface {
	GetSinkAlgorithm(cloudPath string) chunk.Sink
	GetSchedulerOptions() []stream.Option
}
