package data

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// White is used for points of clouds without a color attribute
var White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// PointData contains the decoded payload of a node: one position and one color per point.
// Positions are expressed relative to the owning node origin.
type PointData struct {
	Positions []r3.Vector
	Colors    []color.NRGBA
}

// Builds a PointData of n points with zero positions and opaque white colors
func NewPointData(n int) *PointData {
	colors := make([]color.NRGBA, n)
	for i := range colors {
		colors[i] = White
	}
	return &PointData{
		Positions: make([]r3.Vector, n),
		Colors:    colors,
	}
}

// Len returns the number of points, or -1 if positions and colors disagree
func (d *PointData) Len() int {
	if d == nil {
		return 0
	}
	if len(d.Positions) != len(d.Colors) {
		return -1
	}
	return len(d.Positions)
}

// Slice returns the points in [from, to). The returned PointData shares memory with d.
func (d *PointData) Slice(from, to int) *PointData {
	return &PointData{
		Positions: d.Positions[from:to:to],
		Colors:    d.Colors[from:to:to],
	}
}
