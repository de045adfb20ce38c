package geometry

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Axis identifies one of the three spatial axes of a BoundingBox
type Axis int

const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

func (a Axis) String() string {
	switch a {
	case AxisX:
		return "X"
	case AxisY:
		return "Y"
	case AxisZ:
		return "Z"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Octant bits, as stored in the hierarchy presence byte. The mapping is not the
// conventional bit0->X ordering: the stored format is Z-up while boxes are kept Y-up.
const (
	octantBitY uint8 = 1
	octantBitZ uint8 = 2
	octantBitX uint8 = 4
)

// Bounds is the single precision center/size pair handed to renderers.
type Bounds struct {
	Center [3]float32
	Size   [3]float32
}

// BoundingBox is an axis aligned box. The renderer facing Bounds are cached and
// recomputed by every mutator, so the box must only be changed through its methods.
type BoundingBox struct {
	min    r3.Vector
	max    r3.Vector
	bounds Bounds
}

// NewBoundingBox builds a box from its six bounds
func NewBoundingBox(xmin, xmax, ymin, ymax, zmin, zmax float64) BoundingBox {
	return NewBoundingBoxFromVectors(
		r3.Vector{X: xmin, Y: ymin, Z: zmin},
		r3.Vector{X: xmax, Y: ymax, Z: zmax},
	)
}

// NewBoundingBoxFromVectors builds a box from its lowest and highest corners
func NewBoundingBoxFromVectors(min, max r3.Vector) BoundingBox {
	box := BoundingBox{min: min, max: max}
	box.refresh()
	return box
}

// NewBoundingBoxFromParent returns the box of the child occupying the given octant of parent.
// For every axis a set bit places the child in the upper half (lower bound raised to the
// parent midpoint), an unset bit in the lower half (upper bound lowered to the midpoint).
func NewBoundingBoxFromParent(parent BoundingBox, octant uint8) BoundingBox {
	min := parent.min
	max := parent.max
	mid := parent.Center()

	if octant&octantBitX != 0 {
		min.X = mid.X
	} else {
		max.X = mid.X
	}
	if octant&octantBitY != 0 {
		min.Y = mid.Y
	} else {
		max.Y = mid.Y
	}
	if octant&octantBitZ != 0 {
		min.Z = mid.Z
	} else {
		max.Z = mid.Z
	}

	return NewBoundingBoxFromVectors(min, max)
}

func (b *BoundingBox) refresh() {
	c := b.Center()
	s := b.Size()
	b.bounds = Bounds{
		Center: [3]float32{float32(c.X), float32(c.Y), float32(c.Z)},
		Size:   [3]float32{float32(s.X), float32(s.Y), float32(s.Z)},
	}
}

// Validate reports an error if any lower bound exceeds its upper bound
func (b BoundingBox) Validate() error {
	for _, axis := range []Axis{AxisX, AxisY, AxisZ} {
		lo, hi := b.axisRange(axis)
		if math.IsNaN(lo) || math.IsNaN(hi) {
			return errors.Errorf("bounding box has NaN bound on axis %s", axis)
		}
		if lo > hi {
			return errors.Errorf("bounding box lower bound %f exceeds upper bound %f on axis %s", lo, hi, axis)
		}
	}
	return nil
}

func (b BoundingBox) Min() r3.Vector {
	return b.min
}

func (b BoundingBox) Max() r3.Vector {
	return b.max
}

// Size returns the extent of the box along every axis
func (b BoundingBox) Size() r3.Vector {
	return b.max.Sub(b.min)
}

func (b BoundingBox) Center() r3.Vector {
	return b.min.Add(b.max).Mul(0.5)
}

// Radius returns the radius of the circumscribed sphere (half the diagonal)
func (b BoundingBox) Radius() float64 {
	return b.Size().Norm() / 2
}

func (b BoundingBox) Volume() float64 {
	s := b.Size()
	return s.X * s.Y * s.Z
}

// Bounds returns the cached renderer facing approximation of the box
func (b BoundingBox) Bounds() Bounds {
	return b.bounds
}

// Contains reports whether p lies inside the box, faces included
func (b BoundingBox) Contains(p r3.Vector) bool {
	return p.X >= b.min.X && p.X <= b.max.X &&
		p.Y >= b.min.Y && p.Y <= b.max.Y &&
		p.Z >= b.min.Z && p.Z <= b.max.Z
}

// Intersection returns the overlap of two boxes and false when they are disjoint.
// Boxes sharing only a face intersect with zero volume.
func (b BoundingBox) Intersection(other BoundingBox) (BoundingBox, bool) {
	min := r3.Vector{
		X: math.Max(b.min.X, other.min.X),
		Y: math.Max(b.min.Y, other.min.Y),
		Z: math.Max(b.min.Z, other.min.Z),
	}
	max := r3.Vector{
		X: math.Min(b.max.X, other.max.X),
		Y: math.Min(b.max.Y, other.max.Y),
		Z: math.Min(b.max.Z, other.max.Z),
	}
	if min.X > max.X || min.Y > max.Y || min.Z > max.Z {
		return BoundingBox{}, false
	}
	return NewBoundingBoxFromVectors(min, max), true
}

// MoveToOrigin translates the box so that its center becomes the origin, keeping its size
func (b *BoundingBox) MoveToOrigin() {
	size := b.Size()
	b.min = size.Mul(-0.5)
	b.max = b.min.Add(size)
	b.refresh()
}

// MoveAlong translates the box by v
func (b *BoundingBox) MoveAlong(v r3.Vector) {
	b.min = b.min.Add(v)
	b.max = b.max.Add(v)
	b.refresh()
}

// SwapAxes exchanges the extents of two axes in place
func (b *BoundingBox) SwapAxes(a1, a2 Axis) {
	if a1 == a2 {
		return
	}
	lo1, hi1 := b.axisRange(a1)
	lo2, hi2 := b.axisRange(a2)
	b.setAxisRange(a1, lo2, hi2)
	b.setAxisRange(a2, lo1, hi1)
	b.refresh()
}

func (b BoundingBox) axisRange(axis Axis) (float64, float64) {
	switch axis {
	case AxisX:
		return b.min.X, b.max.X
	case AxisY:
		return b.min.Y, b.max.Y
	default:
		return b.min.Z, b.max.Z
	}
}

func (b *BoundingBox) setAxisRange(axis Axis, lo, hi float64) {
	switch axis {
	case AxisX:
		b.min.X, b.max.X = lo, hi
	case AxisY:
		b.min.Y, b.max.Y = lo, hi
	default:
		b.min.Z, b.max.Z = lo, hi
	}
}

// GetAsArray returns the bounds as [xmin, ymin, zmin, xmax, ymax, zmax]
func (b BoundingBox) GetAsArray() []float64 {
	return []float64{b.min.X, b.min.Y, b.min.Z, b.max.X, b.max.Y, b.max.Z}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("BoundingBox[%g,%g,%g;%g,%g,%g]", b.min.X, b.min.Y, b.min.Z, b.max.X, b.max.Y, b.max.Z)
}
