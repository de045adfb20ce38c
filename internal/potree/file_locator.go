package potree

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
)

const (
	HierarchyExtension = ".hrc"
	PointsExtension    = ".bin"

	rootDirectory = "r"
)

// FileLocator resolves node ids to files of the directory-sharded layout
// <cloudPath>/<octreeDir>/r/<group>/.../r<id><ext>
type FileLocator struct {
	baseDir  string
	stepSize int
}

func NewFileLocator(meta *TreeMetadata) *FileLocator {
	return &FileLocator{
		baseDir:  filepath.Join(meta.CloudPath(), meta.OctreeDir(), rootDirectory),
		stepSize: meta.HierarchyStepSize(),
	}
}

// RelativePath returns the location of a node file below the r/ directory. Every complete
// group of stepSize digits of the id becomes one directory level.
func RelativePath(id string, stepSize int, ext string) string {
	if stepSize < 1 {
		stepSize = 1
	}
	levels := len(id) / stepSize

	parts := make([]string, 0, levels+1)
	for i := 0; i < levels; i++ {
		parts = append(parts, id[i*stepSize:(i+1)*stepSize])
	}
	parts = append(parts, rootDirectory+id+ext)
	return strings.Join(parts, "/")
}

// Path returns the absolute location of a node file
func (l *FileLocator) Path(id string, ext string) string {
	return filepath.Join(l.baseDir, filepath.FromSlash(RelativePath(id, l.stepSize, ext)))
}

// Load reads a whole node file. A missing file is reported as FileNotFoundError.
func (l *FileLocator) Load(id string, ext string) (content []byte, err error) {
	path := l.Path(id, ext)
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: path, Err: err}
		}
		return nil, errors.Wrapf(err, "cannot open %s", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	content, err = io.ReadAll(f)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read %s", path)
	}
	return content, nil
}
