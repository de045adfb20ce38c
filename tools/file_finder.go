package tools

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

type FileFinder interface {
	GetCloudsToProcess(opts *loader.LoaderOptions) ([]string, error)
}

type StandardFileFinder struct{}

func NewStandardFileFinder() FileFinder {
	return &StandardFileFinder{}
}

// GetCloudsToProcess returns the cloud folders to load. Without folder processing the input is the
// cloud itself. Otherwise the clouds are the input folder or its direct subfolders holding a
// cloud.js, and any deeper folder when Recursive is set.
func (f *StandardFileFinder) GetCloudsToProcess(opts *loader.LoaderOptions) ([]string, error) {
	if !opts.FolderProcessing {
		return []string{opts.Input}, nil
	}
	return f.getCloudsFromInputFolder(opts)
}

func (f *StandardFileFinder) getCloudsFromInputFolder(opts *loader.LoaderOptions) ([]string, error) {
	var clouds = make([]string, 0)

	baseInfo, err := os.Stat(opts.Input)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read input folder")
	}
	if !baseInfo.IsDir() {
		return nil, errors.Errorf("input %s is not a folder", opts.Input)
	}

	err = filepath.Walk(
		opts.Input,
		func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			// a cloud folder only holds its own octree, never other clouds
			if isCloudFolder(path) {
				clouds = append(clouds, path)
				return filepath.SkipDir
			}
			if !os.SameFile(info, baseInfo) && !opts.Recursive {
				return filepath.SkipDir
			}
			return nil
		},
	)
	if err != nil {
		return nil, errors.Wrap(err, "cannot walk input folder")
	}

	sort.Strings(clouds)
	return clouds, nil
}

func isCloudFolder(path string) bool {
	info, err := os.Stat(filepath.Join(path, potree.MetadataFileName))
	return err == nil && !info.IsDir()
}
