package chunk

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
)

// Builder splits node payloads into chunks of at most maxChunkSize points
type Builder struct {
	cloudName    string
	maxChunkSize int
	mesh         loader.MeshConfiguration
}

func NewBuilder(cloudName string, maxChunkSize int, mesh loader.MeshConfiguration) *Builder {
	if maxChunkSize <= 0 {
		maxChunkSize = loader.DefaultMaxChunkSize
	}
	return &Builder{
		cloudName:    cloudName,
		maxChunkSize: maxChunkSize,
		mesh:         mesh,
	}
}

// Build returns the chunks of node in point order and releases the node payload.
// A node without payload yields no chunk. An empty payload yields no chunk either, except for
// the root which yields a single empty chunk so that the cloud keeps its hit volume.
func (b *Builder) Build(node octree.INode) ([]*RenderChunk, error) {
	pointData := node.GetPointData()
	if pointData == nil {
		return nil, nil
	}
	total := pointData.Len()
	if total < 0 {
		return nil, errors.Errorf("node %s has inconsistent point data", node.GetName())
	}
	if total == 0 && node.Level() != 0 {
		node.ReleasePointData()
		return nil, nil
	}

	box := node.GetBoundingBox()
	count := (total + b.maxChunkSize - 1) / b.maxChunkSize
	if count == 0 {
		count = 1
	}
	chunks := make([]*RenderChunk, 0, count)

	for i := 0; i < count; i++ {
		from := i * b.maxChunkSize
		to := from + b.maxChunkSize
		if to > total {
			to = total
		}
		part := pointData.Slice(from, to)

		chunk := &RenderChunk{
			Name:      b.chunkName(node, i, count, to-from),
			NodeName:  node.GetName(),
			Index:     i,
			Level:     node.Level(),
			Positions: part.Positions,
			Colors:    part.Colors,
			Origin:    box.Min(),
			Bounds:    box,
			Mesh:      b.mesh,
		}
		if node.Level() == 0 {
			hitVolume := box
			chunk.HitVolume = &hitVolume
		}
		chunks = append(chunks, chunk)
	}

	node.ReleasePointData()
	return chunks, nil
}

func (b *Builder) chunkName(node octree.INode, index, count, size int) string {
	if count == 1 {
		return fmt.Sprintf("%s/%s (%d)", b.cloudName, node.GetName(), size)
	}
	return fmt.Sprintf("%s/%s_%d (%d)", b.cloudName, node.GetName(), index, size)
}
