package export

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"

	"github.com/golang/geo/r3"
	"github.com/golang/glog"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/tools"
)

const (
	TilesetFileName     = "tileset.json"
	PntsExtension       = ".pnts"
	CompressedExtension = ".zst"
)

// PntsWriter is a chunk sink writing every chunk as a .pnts tile in a folder. Close writes the
// tileset.json listing the tiles, Discard removes everything written so far.
type PntsWriter struct {
	folder   string
	compress bool
	encoder  *PntsEncoder

	sync.Mutex
	files    []string
	children []Child
	bounds   *geometry.BoundingBox
}

func NewPntsWriter(folder string, compress bool) *PntsWriter {
	return &PntsWriter{
		folder:   folder,
		compress: compress,
		encoder:  NewPntsEncoder(),
	}
}

// TileFileName returns the name of the tile file of a chunk
func TileFileName(c *chunk.RenderChunk, compress bool) string {
	name := fmt.Sprintf("%s_%d%s", c.NodeName, c.Index, PntsExtension)
	if compress {
		name += CompressedExtension
	}
	return name
}

// Add writes the tile of a chunk. Chunks without points have nothing to draw and are skipped.
func (w *PntsWriter) Add(c *chunk.RenderChunk) error {
	if c.NumberOfPoints() == 0 {
		return nil
	}
	content, err := w.encoder.Encode(c)
	if err != nil {
		return err
	}

	if err := tools.CreateDirectoryIfDoesNotExist(w.folder); err != nil {
		return errors.Wrapf(err, "cannot create output folder %s", w.folder)
	}
	fileName := TileFileName(c, w.compress)
	path := filepath.Join(w.folder, fileName)

	w.Lock()
	defer w.Unlock()
	// registered before writing so that a partial file is discarded too
	w.files = append(w.files, path)
	if err := writeTile(path, content, w.compress); err != nil {
		return err
	}

	w.children = append(w.children, Child{
		Content:        Content{Url: fileName},
		BoundingVolume: BoundingVolume{Box: w.encoder.boxVolume(c.Bounds)},
		GeometricError: geometricError(c.Bounds, c.NumberOfPoints()),
		Refine:         "ADD",
	})
	if w.bounds == nil {
		bounds := c.Bounds
		w.bounds = &bounds
	} else {
		merged := geometry.NewBoundingBoxFromVectors(
			r3.Vector{X: math.Min(w.bounds.Min().X, c.Bounds.Min().X), Y: math.Min(w.bounds.Min().Y, c.Bounds.Min().Y), Z: math.Min(w.bounds.Min().Z, c.Bounds.Min().Z)},
			r3.Vector{X: math.Max(w.bounds.Max().X, c.Bounds.Max().X), Y: math.Max(w.bounds.Max().Y, c.Bounds.Max().Y), Z: math.Max(w.bounds.Max().Z, c.Bounds.Max().Z)},
		)
		w.bounds = &merged
	}
	glog.V(2).Infof("tile %s written", path)
	return nil
}

func writeTile(path string, content []byte, compress bool) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "cannot create tile %s", path)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	if !compress {
		_, err = f.Write(content)
		return errors.Wrapf(err, "cannot write tile %s", path)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return errors.Wrap(err, "cannot create zstd encoder")
	}
	if _, err := enc.Write(content); err != nil {
		_ = enc.Close()
		return errors.Wrapf(err, "cannot write tile %s", path)
	}
	return errors.Wrapf(enc.Close(), "cannot flush tile %s", path)
}

// NumberOfTiles returns the number of tiles written so far
func (w *PntsWriter) NumberOfTiles() int {
	w.Lock()
	defer w.Unlock()
	return len(w.children)
}

// Close writes the tileset.json of the tiles written so far. Nothing is written for an empty load.
func (w *PntsWriter) Close() error {
	w.Lock()
	defer w.Unlock()
	if w.bounds == nil {
		return nil
	}

	geometricErr := 0.0
	for _, child := range w.children {
		geometricErr = math.Max(geometricErr, child.GeometricError)
	}
	tileset := Tileset{
		Asset:          Asset{Version: "1.0"},
		GeometricError: geometricErr,
		Root: Root{
			BoundingVolume: BoundingVolume{Box: w.encoder.boxVolume(*w.bounds)},
			GeometricError: geometricErr,
			Refine:         "ADD",
			Children:       w.children,
		},
	}
	content, err := json.MarshalIndent(tileset, "", "\t")
	if err != nil {
		return errors.Wrap(err, "cannot encode tileset")
	}
	path := filepath.Join(w.folder, TilesetFileName)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return errors.Wrapf(err, "cannot write %s", path)
	}
	w.files = append(w.files, path)
	return nil
}

// Discard removes every file written by the writer
func (w *PntsWriter) Discard() {
	w.Lock()
	defer w.Unlock()
	for _, path := range w.files {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			glog.Warningf("cannot remove %s: %v", path, err)
		}
	}
	w.files = nil
	w.children = nil
	w.bounds = nil
}

// ReadTile reads a tile written by a PntsWriter, decompressing .zst tiles
func ReadTile(path string) (content []byte, err error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read tile %s", path)
	}
	if filepath.Ext(path) != CompressedExtension {
		return raw, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, errors.Wrap(err, "cannot create zstd decoder")
	}
	defer dec.Close()
	content, err = dec.DecodeAll(raw, nil)
	return content, errors.Wrapf(err, "cannot decompress tile %s", path)
}
