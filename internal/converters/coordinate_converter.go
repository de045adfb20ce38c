package converters

import (
	"github.com/golang/geo/r3"

	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

// CoordinateConverter maps coordinates and boxes between the stored point cloud
// convention and the convention of the consuming renderer.
type CoordinateConverter interface {
	ConvertCoordinate(coord r3.Vector) r3.Vector
	ConvertBoundingBox(bbox *geometry.BoundingBox)
}
