package export

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"strings"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/converters"
	"github.com/ecopia-map/potree_streamer/internal/converters/axis_swap_converter"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/tools"
)

const pntsHeaderLength = 28

type byteOffset struct {
	ByteOffset int `json:"byteOffset"`
}

type featureTable struct {
	PointsLength int        `json:"POINTS_LENGTH"`
	RtcCenter    [3]float64 `json:"RTC_CENTER"`
	Position     byteOffset `json:"POSITION"`
	Rgb          byteOffset `json:"RGB"`
}

// PntsEncoder turns chunks into Cesium point cloud tiles, converting coordinates back to the
// stored Z-up convention
type PntsEncoder struct {
	coordinateConverter converters.CoordinateConverter
}

func NewPntsEncoder() *PntsEncoder {
	return &PntsEncoder{
		coordinateConverter: axis_swap_converter.NewYZSwapConverter(),
	}
}

// Encode returns the .pnts content of a chunk. Positions are written relative to their
// average, stored in the feature table RTC_CENTER.
func (e *PntsEncoder) Encode(c *chunk.RenderChunk) ([]byte, error) {
	numPoints := c.NumberOfPoints()
	if numPoints == 0 {
		return nil, errors.Errorf("chunk %s has no points", c.Name)
	}
	if len(c.Colors) != numPoints {
		return nil, errors.Errorf("chunk %s has %d positions but %d colors", c.Name, numPoints, len(c.Colors))
	}

	coords := make([]float64, numPoints*3)
	colors := make([]uint8, numPoints*3)
	for i := 0; i < numPoints; i++ {
		p := e.coordinateConverter.ConvertCoordinate(c.WorldPosition(i))
		coords[i*3] = p.X
		coords[i*3+1] = p.Y
		coords[i*3+2] = p.Z
		colors[i*3] = c.Colors[i].R
		colors[i*3+1] = c.Colors[i].G
		colors[i*3+2] = c.Colors[i].B
	}

	// Evaluating average X, Y, Z to express coords relative to tile center
	average := computeAverageXYZ(coords, numPoints)
	for i := 0; i < numPoints; i++ {
		coords[i*3] -= average.X
		coords[i*3+1] -= average.Y
		coords[i*3+2] -= average.Z
	}
	positionBytes := tools.ConvertTruncateFloat64ToFloat32ByteArray(coords)

	featureTableBytes, err := generateFeatureTable(average, numPoints)
	if err != nil {
		return nil, err
	}

	return generatePntsByteArray(featureTableBytes, positionBytes, colors), nil
}

func computeAverageXYZ(coords []float64, numPoints int) r3.Vector {
	var sum r3.Vector
	for i := 0; i < numPoints; i++ {
		sum.X += coords[i*3]
		sum.Y += coords[i*3+1]
		sum.Z += coords[i*3+2]
	}
	return sum.Mul(1 / float64(numPoints))
}

// Generates the feature table json, padded with spaces so that the binary body is 8 bytes aligned
func generateFeatureTable(center r3.Vector, numPoints int) ([]byte, error) {
	table := featureTable{
		PointsLength: numPoints,
		RtcCenter:    [3]float64{center.X, center.Y, center.Z},
		Position:     byteOffset{ByteOffset: 0},
		Rgb:          byteOffset{ByteOffset: numPoints * 12},
	}
	content, err := json.Marshal(table)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode feature table")
	}
	if padding := (pntsHeaderLength + len(content)) % 8; padding != 0 {
		content = append(content, []byte(strings.Repeat(" ", 8-padding))...)
	}
	return content, nil
}

func generatePntsByteArray(featureTableBytes, positionBytes, colors []byte) []byte {
	featureTableBinaryLength := len(positionBytes) + len(colors)
	byteLength := pntsHeaderLength + len(featureTableBytes) + featureTableBinaryLength

	outputByte := make([]byte, 0, byteLength)
	outputByte = append(outputByte, []byte("pnts")...)                                        // magic
	outputByte = append(outputByte, tools.ConvertIntToByteArray(1)...)                        // version number
	outputByte = append(outputByte, tools.ConvertIntToByteArray(byteLength)...)               // total length
	outputByte = append(outputByte, tools.ConvertIntToByteArray(len(featureTableBytes))...)   // feature table length
	outputByte = append(outputByte, tools.ConvertIntToByteArray(featureTableBinaryLength)...) // feature table binary length
	outputByte = append(outputByte, tools.ConvertIntToByteArray(0)...)                        // batch table length
	outputByte = append(outputByte, tools.ConvertIntToByteArray(0)...)                        // batch table binary length
	outputByte = append(outputByte, featureTableBytes...)                                     // feature table
	outputByte = append(outputByte, positionBytes...)                                         // positions array
	outputByte = append(outputByte, colors...)                                                // colors array
	return outputByte
}

// PntsTile is the decoded content of a .pnts tile
type PntsTile struct {
	Center    r3.Vector
	Positions []r3.Vector
	Colors    [][3]uint8
}

// DecodePnts parses tiles produced by Encode. Positions are returned in tile coordinates, Z-up.
func DecodePnts(content []byte) (*PntsTile, error) {
	if len(content) < pntsHeaderLength || string(content[0:4]) != "pnts" {
		return nil, errors.New("not a pnts tile")
	}
	byteLength := int(binary.LittleEndian.Uint32(content[8:]))
	featureTableLength := int(binary.LittleEndian.Uint32(content[12:]))
	featureTableBinaryLength := int(binary.LittleEndian.Uint32(content[16:]))
	if byteLength != len(content) || pntsHeaderLength+featureTableLength+featureTableBinaryLength > len(content) {
		return nil, errors.Errorf("pnts tile of %d bytes declares %d bytes", len(content), byteLength)
	}

	var table featureTable
	if err := json.Unmarshal(content[pntsHeaderLength:pntsHeaderLength+featureTableLength], &table); err != nil {
		return nil, errors.Wrap(err, "invalid feature table")
	}
	body := content[pntsHeaderLength+featureTableLength:]
	n := table.PointsLength
	if table.Position.ByteOffset+n*12 > len(body) || table.Rgb.ByteOffset+n*3 > len(body) {
		return nil, errors.New("feature table body too short")
	}

	tile := &PntsTile{
		Center:    r3.Vector{X: table.RtcCenter[0], Y: table.RtcCenter[1], Z: table.RtcCenter[2]},
		Positions: make([]r3.Vector, n),
		Colors:    make([][3]uint8, n),
	}
	for i := 0; i < n; i++ {
		p := body[table.Position.ByteOffset+i*12:]
		tile.Positions[i] = r3.Vector{
			X: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[0:]))),
			Y: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[4:]))),
			Z: float64(math.Float32frombits(binary.LittleEndian.Uint32(p[8:]))),
		}
		c := body[table.Rgb.ByteOffset+i*3:]
		tile.Colors[i] = [3]uint8{c[0], c[1], c[2]}
	}
	return tile, nil
}

// boxVolume returns the 3D Tiles box of a renderer space bounding box: center then half axes, Z-up
func (e *PntsEncoder) boxVolume(box geometry.BoundingBox) []float64 {
	e.coordinateConverter.ConvertBoundingBox(&box)
	center := box.Center()
	half := box.Size().Mul(0.5)
	return []float64{
		center.X, center.Y, center.Z,
		half.X, 0, 0,
		0, half.Y, 0,
		0, 0, half.Z,
	}
}

// geometricError estimates the distance between two neighbouring samples of a chunk as the
// diagonal of a cell of its box holding one point on average
func geometricError(box geometry.BoundingBox, numPoints int) float64 {
	size := box.Size()
	maxSide := math.Max(size.X, math.Max(size.Y, size.Z))
	if numPoints <= 1 || tools.IsFloatEqual(maxSide, 0) {
		return maxSide * math.Sqrt(3)
	}
	cellSize := maxSide / math.Cbrt(float64(numPoints))
	return cellSize * math.Sqrt(3) * 2
}
