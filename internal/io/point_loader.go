package io

import (
	"encoding/binary"
	"fmt"
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

// PointLoader reads and decodes the .bin payload of nodes
type PointLoader struct {
	files NodeFileLoader
	meta  *potree.TreeMetadata
}

func NewPointLoader(files NodeFileLoader, meta *potree.TreeMetadata) *PointLoader {
	return &PointLoader{
		files: files,
		meta:  meta,
	}
}

// Load reads the payload of node and assigns it to the node
func (l *PointLoader) Load(node octree.INode) (int, error) {
	content, err := l.files.Load(node.GetPath(), potree.PointsExtension)
	if err != nil {
		return 0, err
	}

	pointData, err := DecodePoints(content, l.meta.Attributes(), l.meta.Scale(), node.GetPath())
	if err != nil {
		return 0, err
	}
	if err := node.SetPointData(pointData); err != nil {
		return 0, err
	}
	return pointData.Len(), nil
}

// DecodePoints decodes fixed stride point records laid out following attrs. Positions keep the
// stored integer offsets scaled to world units and have their Y and Z components swapped.
// Points without a color attribute are opaque white.
func DecodePoints(content []byte, attrs []potree.PointAttribute, scale float64, nodePath string) (*data.PointData, error) {
	stride := potree.Stride(attrs)
	if stride == 0 {
		return nil, &potree.FormatError{Field: "pointAttributes", Reason: "empty attribute list"}
	}
	if len(content)%stride != 0 {
		return nil, &potree.DataMismatchError{
			Node:   nodePath,
			Reason: fmt.Sprintf("payload of %d bytes is not a multiple of the %d bytes stride", len(content), stride),
		}
	}

	hasPosition := false
	for _, attr := range attrs {
		if attr.Name == potree.AttributePositionCartesian {
			hasPosition = true
		}
	}
	if !hasPosition {
		return nil, &potree.FormatError{Field: "pointAttributes", Reason: "no " + potree.AttributePositionCartesian + " attribute"}
	}

	numPoints := len(content) / stride
	pointData := data.NewPointData(numPoints)

	cursor := 0
	for _, attr := range attrs {
		switch attr.Name {
		case potree.AttributePositionCartesian:
			for i := 0; i < numPoints; i++ {
				record := content[i*stride+cursor:]
				pointData.Positions[i] = r3.Vector{
					X: float64(binary.LittleEndian.Uint32(record[0:])) * scale,
					Y: float64(binary.LittleEndian.Uint32(record[8:])) * scale,
					Z: float64(binary.LittleEndian.Uint32(record[4:])) * scale,
				}
			}
		case potree.AttributeColorPacked:
			for i := 0; i < numPoints; i++ {
				record := content[i*stride+cursor:]
				pointData.Colors[i] = color.NRGBA{R: record[0], G: record[1], B: record[2], A: 255}
			}
		}
		cursor += attr.Width
	}

	return pointData, nil
}
