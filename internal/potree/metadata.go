package potree

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"

	"github.com/ecopia-map/potree_streamer/internal/converters/axis_swap_converter"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

const (
	MetadataFileName = "cloud.js"
	defaultOctreeDir = "data"
)

// TreeMetadata holds the tree level description of a point cloud. It is immutable once
// parsed: accessors return copies.
type TreeMetadata struct {
	version           string
	octreeDir         string
	projection        string
	points            int64
	boundingBox       geometry.BoundingBox
	tightBoundingBox  geometry.BoundingBox
	pointAttributes   []string
	attributes        []PointAttribute
	spacing           float64
	scale             float64
	hierarchyStepSize int
	cloudPath         string
	cloudName         string
}

type rawBoundingBox struct {
	Lx float64 `json:"lx"`
	Ly float64 `json:"ly"`
	Lz float64 `json:"lz"`
	Ux float64 `json:"ux"`
	Uy float64 `json:"uy"`
	Uz float64 `json:"uz"`
}

func (b *rawBoundingBox) toBoundingBox() geometry.BoundingBox {
	return geometry.NewBoundingBox(b.Lx, b.Ux, b.Ly, b.Uy, b.Lz, b.Uz)
}

type rawMetadata struct {
	Version           string          `json:"version"`
	OctreeDir         string          `json:"octreeDir"`
	Projection        string          `json:"projection"`
	Points            int64           `json:"points"`
	BoundingBox       *rawBoundingBox `json:"boundingBox"`
	TightBoundingBox  *rawBoundingBox `json:"tightBoundingBox"`
	PointAttributes   []string        `json:"pointAttributes"`
	Spacing           decimal.Decimal `json:"spacing"`
	Scale             decimal.Decimal `json:"scale"`
	HierarchyStepSize int             `json:"hierarchyStepSize"`
}

// LoadMetadata reads and parses <cloudPath>/cloud.js
func LoadMetadata(cloudPath string, moveToOrigin bool) (meta *TreeMetadata, err error) {
	file := filepath.Join(cloudPath, MetadataFileName)
	f, err := os.Open(file)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &FileNotFoundError{Path: file, Err: err}
		}
		return nil, errors.Wrapf(err, "cannot open %s", file)
	}
	defer func() {
		err = multierr.Combine(err, f.Close())
	}()

	return ParseMetadata(f, cloudPath, moveToOrigin)
}

// ParseMetadata decodes a cloud.js document. Both bounding boxes get their Y and Z axes
// swapped into the renderer convention and, if requested, are centered on the origin.
func ParseMetadata(r io.Reader, cloudPath string, moveToOrigin bool) (*TreeMetadata, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read point cloud metadata")
	}

	var doc interface{}
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, &FormatError{Reason: "not a JSON document", Err: err}
	}
	if err := validateCloudDocument(doc); err != nil {
		return nil, err
	}

	var raw rawMetadata
	decoder := json.NewDecoder(bytes.NewReader(content))
	if err := decoder.Decode(&raw); err != nil {
		return nil, &FormatError{Err: err}
	}

	return newTreeMetadata(&raw, cloudPath, moveToOrigin)
}

func newTreeMetadata(raw *rawMetadata, cloudPath string, moveToOrigin bool) (*TreeMetadata, error) {
	if raw.BoundingBox == nil {
		return nil, &FormatError{Field: "boundingBox", Reason: "missing"}
	}
	if len(raw.PointAttributes) == 0 {
		return nil, &FormatError{Field: "pointAttributes", Reason: "missing"}
	}
	if raw.HierarchyStepSize < 1 {
		return nil, &FormatError{Field: "hierarchyStepSize", Reason: "must be at least 1"}
	}

	attributes := ResolveAttributes(raw.PointAttributes)
	hasPosition := false
	for _, attr := range attributes {
		if attr.Name == AttributePositionCartesian {
			hasPosition = true
		}
	}
	if !hasPosition {
		return nil, &FormatError{Field: "pointAttributes", Reason: "no " + AttributePositionCartesian + " attribute"}
	}

	scale, exact := raw.Scale.Float64()
	if !raw.Scale.IsPositive() {
		return nil, &FormatError{Field: "scale", Reason: "must be positive"}
	}
	if !exact {
		glog.V(1).Infof("scale %s is not exactly representable, using %v", raw.Scale.String(), scale)
	}
	spacing, _ := raw.Spacing.Float64()

	boundingBox := raw.BoundingBox.toBoundingBox()
	tightBoundingBox := boundingBox
	if raw.TightBoundingBox != nil {
		tightBoundingBox = raw.TightBoundingBox.toBoundingBox()
	}
	if err := boundingBox.Validate(); err != nil {
		return nil, &FormatError{Field: "boundingBox", Err: err}
	}
	if err := tightBoundingBox.Validate(); err != nil {
		return nil, &FormatError{Field: "tightBoundingBox", Err: err}
	}

	converter := axis_swap_converter.NewYZSwapConverter()
	converter.ConvertBoundingBox(&boundingBox)
	converter.ConvertBoundingBox(&tightBoundingBox)
	if moveToOrigin {
		boundingBox.MoveToOrigin()
		tightBoundingBox.MoveToOrigin()
	}

	octreeDir := raw.OctreeDir
	if octreeDir == "" {
		octreeDir = defaultOctreeDir
	}

	return &TreeMetadata{
		version:           raw.Version,
		octreeDir:         octreeDir,
		projection:        raw.Projection,
		points:            raw.Points,
		boundingBox:       boundingBox,
		tightBoundingBox:  tightBoundingBox,
		pointAttributes:   append([]string(nil), raw.PointAttributes...),
		attributes:        attributes,
		spacing:           spacing,
		scale:             scale,
		hierarchyStepSize: raw.HierarchyStepSize,
		cloudPath:         cloudPath,
		cloudName:         cloudNameFromPath(cloudPath),
	}, nil
}

func cloudNameFromPath(cloudPath string) string {
	if cloudPath == "" {
		return ""
	}
	return filepath.Base(filepath.Clean(cloudPath))
}

func (m *TreeMetadata) Version() string {
	return m.version
}

func (m *TreeMetadata) OctreeDir() string {
	return m.octreeDir
}

// Projection returns the proj4 definition of the source coordinates, possibly empty
func (m *TreeMetadata) Projection() string {
	return m.projection
}

// Points returns the declared total number of points. Informational only.
func (m *TreeMetadata) Points() int64 {
	return m.points
}

func (m *TreeMetadata) BoundingBox() geometry.BoundingBox {
	return m.boundingBox
}

func (m *TreeMetadata) TightBoundingBox() geometry.BoundingBox {
	return m.tightBoundingBox
}

func (m *TreeMetadata) PointAttributes() []string {
	return append([]string(nil), m.pointAttributes...)
}

// Attributes returns the resolved layout of every declared attribute, in order
func (m *TreeMetadata) Attributes() []PointAttribute {
	return append([]PointAttribute(nil), m.attributes...)
}

// Stride returns the size in bytes of one point record
func (m *TreeMetadata) Stride() int {
	return Stride(m.attributes)
}

func (m *TreeMetadata) Spacing() float64 {
	return m.spacing
}

// Scale converts raw integer coordinates into world units
func (m *TreeMetadata) Scale() float64 {
	return m.scale
}

// HierarchyStepSize is the number of levels stored per hierarchy shard and per directory level
func (m *TreeMetadata) HierarchyStepSize() int {
	return m.hierarchyStepSize
}

func (m *TreeMetadata) CloudPath() string {
	return m.cloudPath
}

func (m *TreeMetadata) CloudName() string {
	return m.cloudName
}
