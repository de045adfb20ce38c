// Package testutils builds synthetic point clouds on disk for tests.
package testutils

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

var attributeWidths = map[string]int{
	"POSITION_CARTESIAN":  12,
	"COLOR_PACKED":        4,
	"INTENSITY":           2,
	"CLASSIFICATION":      1,
	"RETURN_NUMBER":       1,
	"NUMBER_OF_RETURNS":   1,
	"SOURCE_ID":           2,
	"GPS_TIME":            8,
	"NORMAL_SPHEREMAPPED": 2,
	"NORMAL_OCT16":        2,
	"NORMAL":              12,
}

// FixturePoint is a point as stored on disk: integer coordinates in the file's Z-up order
type FixturePoint struct {
	X, Y, Z uint32
	R, G, B uint8
}

// CloudFixture describes a cloud directory. Fields may be changed before WriteMetadata.
type CloudFixture struct {
	Dir              string
	OctreeDir        string
	StepSize         int
	Scale            float64
	Spacing          float64
	Points           int64
	Projection       string
	Attributes       []string
	BoundingBox      [6]float64 // lx, ly, lz, ux, uy, uz
	TightBoundingBox *[6]float64
}

// NewCloudFixture returns a fixture rooted at <tempdir>/<name> with a unit scale,
// position+color attributes and a 16 wide bounding box.
func NewCloudFixture(t testing.TB, name string) *CloudFixture {
	t.Helper()
	dir := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	return &CloudFixture{
		Dir:         dir,
		OctreeDir:   "data",
		StepSize:    5,
		Scale:       1,
		Spacing:     1,
		Attributes:  []string{"POSITION_CARTESIAN", "COLOR_PACKED"},
		BoundingBox: [6]float64{0, 0, 0, 16, 16, 16},
	}
}

func boxJSON(b [6]float64) map[string]float64 {
	return map[string]float64{"lx": b[0], "ly": b[1], "lz": b[2], "ux": b[3], "uy": b[4], "uz": b[5]}
}

// WriteMetadata writes cloud.js from the fixture fields
func (f *CloudFixture) WriteMetadata(t testing.TB) {
	t.Helper()
	doc := map[string]interface{}{
		"version":           "1.7",
		"octreeDir":         f.OctreeDir,
		"projection":        f.Projection,
		"points":            f.Points,
		"boundingBox":       boxJSON(f.BoundingBox),
		"pointAttributes":   f.Attributes,
		"spacing":           f.Spacing,
		"scale":             f.Scale,
		"hierarchyStepSize": f.StepSize,
	}
	if f.TightBoundingBox != nil {
		doc["tightBoundingBox"] = boxJSON(*f.TightBoundingBox)
	}
	content, err := json.MarshalIndent(doc, "", "\t")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteFile(t, "cloud.js", content)
}

// WriteFile writes content at a path relative to the cloud directory
func (f *CloudFixture) WriteFile(t testing.TB, rel string, content []byte) {
	t.Helper()
	path := filepath.Join(f.Dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
}

// NodeFile returns the path of a node file relative to the cloud directory
func (f *CloudFixture) NodeFile(id, ext string) string {
	rel := f.OctreeDir + "/r"
	for i := 0; i < len(id)/f.StepSize; i++ {
		rel += "/" + id[i*f.StepSize:(i+1)*f.StepSize]
	}
	return rel + "/r" + id + ext
}

// WriteHierarchy writes the .hrc shard of id, one 5 byte record per presence mask
func (f *CloudFixture) WriteHierarchy(t testing.TB, id string, masks ...uint8) {
	t.Helper()
	content := make([]byte, 0, len(masks)*5)
	for _, mask := range masks {
		content = append(content, mask, 0, 0, 0, 0)
	}
	f.WriteFile(t, f.NodeFile(id, ".hrc"), content)
}

// EncodePoints lays points out following the fixture attributes. Undecoded attributes are zero filled.
func (f *CloudFixture) EncodePoints(points []FixturePoint) []byte {
	stride := 0
	for _, name := range f.Attributes {
		stride += attributeWidths[name]
	}
	content := make([]byte, len(points)*stride)
	for i, p := range points {
		cursor := i * stride
		for _, name := range f.Attributes {
			switch name {
			case "POSITION_CARTESIAN":
				binary.LittleEndian.PutUint32(content[cursor:], p.X)
				binary.LittleEndian.PutUint32(content[cursor+4:], p.Y)
				binary.LittleEndian.PutUint32(content[cursor+8:], p.Z)
			case "COLOR_PACKED":
				content[cursor] = p.R
				content[cursor+1] = p.G
				content[cursor+2] = p.B
				content[cursor+3] = 255
			}
			cursor += attributeWidths[name]
		}
	}
	return content
}

// WritePoints writes the .bin payload of id
func (f *CloudFixture) WritePoints(t testing.TB, id string, points []FixturePoint) {
	t.Helper()
	f.WriteFile(t, f.NodeFile(id, ".bin"), f.EncodePoints(points))
}

// SequentialPoints returns n distinct points inside a box of the given integer extent
func SequentialPoints(n int, extent uint32) []FixturePoint {
	points := make([]FixturePoint, n)
	for i := range points {
		v := uint32(i)
		points[i] = FixturePoint{
			X: v % extent,
			Y: (v / extent) % extent,
			Z: (v / (extent * extent)) % extent,
			R: uint8(i), G: uint8(i >> 8), B: uint8(i >> 16),
		}
	}
	return points
}
