package chunk

import (
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
)

// RenderChunk is a renderer sized batch of points of a single node. Positions are relative
// to Origin, the minimum corner of the owning node box.
type RenderChunk struct {
	Name      string
	NodeName  string
	Index     int
	Level     int
	Positions []r3.Vector
	Colors    []color.NRGBA
	Origin    r3.Vector
	Bounds    geometry.BoundingBox
	// only set for chunks of the root node, used for hit testing
	HitVolume *geometry.BoundingBox
	Mesh      loader.MeshConfiguration
}

func (c *RenderChunk) NumberOfPoints() int {
	return len(c.Positions)
}

// WorldPosition returns the i-th point in the coordinates of the cloud
func (c *RenderChunk) WorldPosition(i int) r3.Vector {
	return c.Positions[i].Add(c.Origin)
}

// Sink consumes the chunks produced by a load
type Sink interface {
	Add(chunk *RenderChunk) error
}

// Discarder is implemented by sinks able to drop everything they received from a failed load
type Discarder interface {
	Discard()
}
