package potree

import "github.com/golang/glog"

const (
	AttributePositionCartesian = "POSITION_CARTESIAN"
	AttributeColorPacked       = "COLOR_PACKED"
)

// PointAttribute describes one per-point field of a payload record
type PointAttribute struct {
	Name  string
	Width int
	// Decoded is false for attributes whose bytes are skipped
	Decoded bool
}

var knownAttributes = map[string]PointAttribute{
	AttributePositionCartesian: {Name: AttributePositionCartesian, Width: 12, Decoded: true},
	// RGBA, alpha is ignored
	AttributeColorPacked:  {Name: AttributeColorPacked, Width: 4, Decoded: true},
	"INTENSITY":           {Name: "INTENSITY", Width: 2},
	"CLASSIFICATION":      {Name: "CLASSIFICATION", Width: 1},
	"RETURN_NUMBER":       {Name: "RETURN_NUMBER", Width: 1},
	"NUMBER_OF_RETURNS":   {Name: "NUMBER_OF_RETURNS", Width: 1},
	"SOURCE_ID":           {Name: "SOURCE_ID", Width: 2},
	"GPS_TIME":            {Name: "GPS_TIME", Width: 8},
	"NORMAL_SPHEREMAPPED": {Name: "NORMAL_SPHEREMAPPED", Width: 2},
	"NORMAL_OCT16":        {Name: "NORMAL_OCT16", Width: 2},
	"NORMAL":              {Name: "NORMAL", Width: 12},
}

// LookupAttribute returns the layout of a named attribute
func LookupAttribute(name string) (PointAttribute, bool) {
	attr, ok := knownAttributes[name]
	return attr, ok
}

// ResolveAttributes maps attribute names to their layouts. Unknown names are kept with a zero
// width: they are skipped when decoding and do not move the record cursor.
func ResolveAttributes(names []string) []PointAttribute {
	attrs := make([]PointAttribute, 0, len(names))
	for _, name := range names {
		attr, ok := LookupAttribute(name)
		if !ok {
			glog.Warningf("unknown point attribute %s, ignoring it", name)
			attr = PointAttribute{Name: name}
		}
		attrs = append(attrs, attr)
	}
	return attrs
}

// Stride returns the size in bytes of one point record
func Stride(attrs []PointAttribute) int {
	stride := 0
	for _, attr := range attrs {
		stride += attr.Width
	}
	return stride
}
