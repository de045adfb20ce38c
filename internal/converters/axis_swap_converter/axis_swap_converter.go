package axis_swap_converter

import (
	"github.com/golang/geo/r3"

	"github.com/ecopia-map/potree_streamer/internal/converters"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

// AxisSwapConverter exchanges two axes. Swapping is its own inverse, so the same
// converter maps from the stored convention to the renderer one and back.
type AxisSwapConverter struct {
	A geometry.Axis
	B geometry.Axis
}

func NewAxisSwapConverter(a, b geometry.Axis) converters.CoordinateConverter {
	return &AxisSwapConverter{A: a, B: b}
}

// NewYZSwapConverter converts between Potree's Z-up and the renderer's Y-up convention
func NewYZSwapConverter() converters.CoordinateConverter {
	return NewAxisSwapConverter(geometry.AxisY, geometry.AxisZ)
}

func (c *AxisSwapConverter) ConvertCoordinate(coord r3.Vector) r3.Vector {
	values := [3]float64{coord.X, coord.Y, coord.Z}
	values[c.A], values[c.B] = values[c.B], values[c.A]
	return r3.Vector{X: values[0], Y: values[1], Z: values[2]}
}

func (c *AxisSwapConverter) ConvertBoundingBox(bbox *geometry.BoundingBox) {
	bbox.SwapAxes(c.A, c.B)
}
