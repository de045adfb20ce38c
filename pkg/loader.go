package pkg

import (
	"context"
	"fmt"
	"io"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/scene"
	"github.com/ecopia-map/potree_streamer/internal/stream"
	"github.com/ecopia-map/potree_streamer/pkg/algorithm_manager"
	"github.com/ecopia-map/potree_streamer/tools"
)

type ILoader interface {
	RunLoader(ctx context.Context, opts *loader.LoaderOptions) ([]*CloudReport, error)
}

// CloudReport is the outcome of the load of one cloud
type CloudReport struct {
	CloudPath  string                 `json:"cloud"`
	Progress   stream.Progress        `json:"progress"`
	Objects    int                    `json:"objects,omitempty"`
	HitVolumes []geometry.BoundingBox `json:"-"`
	Err        error                  `json:"-"`
}

type Loader struct {
	fileFinder       tools.FileFinder
	algorithmManager algorithm_manager.AlgorithmManager
}

func NewLoader(fileFinder tools.FileFinder, algorithmManager algorithm_manager.AlgorithmManager) ILoader {
	return &Loader{
		fileFinder:       fileFinder,
		algorithmManager: algorithmManager,
	}
}

// RunLoader loads every cloud selected by the options, one after the other. A failed cloud does
// not prevent the next ones from loading: the failures are returned combined.
func (l *Loader) RunLoader(ctx context.Context, opts *loader.LoaderOptions) ([]*CloudReport, error) {
	glog.Infoln("Preparing list of clouds to process...")

	clouds, err := l.fileFinder.GetCloudsToProcess(opts)
	if err != nil {
		return nil, err
	}
	if len(clouds) == 0 {
		return nil, errors.Errorf("no point cloud found in %s", opts.Input)
	}
	for i, cloudPath := range clouds {
		glog.Infof("cloud path %d [%s]", i+1, cloudPath)
	}

	reports := make([]*CloudReport, 0, len(clouds))
	var errs error
	for i, cloudPath := range clouds {
		tools.LogOutput(fmt.Sprintf("Processing cloud %d/%d", i+1, len(clouds)))
		report := l.processCloud(ctx, cloudPath, opts)
		reports = append(reports, report)

		if report.Err != nil {
			errs = multierr.Append(errs, errors.Wrapf(report.Err, "cannot load %s", cloudPath))
			if ctx.Err() != nil {
				break
			}
			continue
		}
		tools.LogOutput("> done processing", filepath.Base(cloudPath))
	}
	return reports, errs
}

func (l *Loader) processCloud(ctx context.Context, cloudPath string, opts *loader.LoaderOptions) *CloudReport {
	sink := l.algorithmManager.GetSinkAlgorithm(cloudPath)
	scheduler := stream.NewScheduler(cloudPath, opts, sink, l.algorithmManager.GetSchedulerOptions()...)

	tools.LogOutput("> loading", filepath.Base(cloudPath))
	err := scheduler.Run(ctx, nil)
	if err == nil {
		err = closeSink(sink)
	}

	report := &CloudReport{
		CloudPath: cloudPath,
		Progress:  scheduler.Progress(),
		Err:       err,
	}
	if s, ok := sink.(*scene.Scene); ok && err == nil {
		report.Objects = s.NumberOfObjects()
		report.HitVolumes = s.HitVolumes()
	}
	return report
}

// closeSink finalizes sinks backed by files, dropping their output if that fails
func closeSink(sink chunk.Sink) error {
	closer, ok := sink.(io.Closer)
	if !ok {
		return nil
	}
	err := closer.Close()
	if err != nil {
		if discarder, ok := sink.(chunk.Discarder); ok {
			discarder.Discard()
		}
	}
	return err
}
