package chunk

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ecopia-map/potree_streamer/internal/data"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree"
	"github.com/ecopia-map/potree_streamer/internal/octree/potree_tree"
)

func nodeWithPoints(t *testing.T, path string, n int) octree.INode {
	t.Helper()
	tree := potree_tree.NewPotreeTree(geometry.NewBoundingBox(10, 18, 20, 28, 30, 38))
	node := tree.GetRootNode()
	for _, c := range path {
		var err error
		node, err = tree.AddChild(node, uint8(c-'0'))
		test.That(t, err, test.ShouldBeNil)
	}

	pointData := data.NewPointData(n)
	for i := 0; i < n; i++ {
		pointData.Positions[i] = r3.Vector{X: float64(i)}
		pointData.Colors[i] = color.NRGBA{R: uint8(i), A: 255}
	}
	test.That(t, node.SetPointData(pointData), test.ShouldBeNil)
	return node
}

func TestBuildSingleChunk(t *testing.T) {
	node := nodeWithPoints(t, "", 100)
	builder := NewBuilder("lion", 65000, loader.MeshConfiguration{PointRadius: 3})

	chunks, err := builder.Build(node)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(chunks), test.ShouldEqual, 1)

	chunk := chunks[0]
	test.That(t, chunk.Name, test.ShouldEqual, "lion/r (100)")
	test.That(t, chunk.NodeName, test.ShouldEqual, "r")
	test.That(t, chunk.NumberOfPoints(), test.ShouldEqual, 100)
	test.That(t, chunk.Origin, test.ShouldResemble, r3.Vector{X: 10, Y: 20, Z: 30})
	test.That(t, chunk.HitVolume, test.ShouldNotBeNil)
	test.That(t, *chunk.HitVolume, test.ShouldResemble, node.GetBoundingBox())
	test.That(t, chunk.Mesh.PointRadius, test.ShouldEqual, 3.0)
	test.That(t, chunk.WorldPosition(5), test.ShouldResemble, r3.Vector{X: 15, Y: 20, Z: 30})

	test.That(t, node.HasPointData(), test.ShouldBeFalse)
}

func TestBuildSplitsLargeNodes(t *testing.T) {
	cases := []struct {
		total, max int
		sizes      []int
	}{
		{10, 10, []int{10}},
		{11, 10, []int{10, 1}},
		{25, 10, []int{10, 10, 5}},
		{130001, 65000, []int{65000, 65000, 1}},
	}

	for _, c := range cases {
		node := nodeWithPoints(t, "04", c.total)
		chunks, err := NewBuilder("cloud", c.max, loader.MeshConfiguration{}).Build(node)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, len(chunks), test.ShouldEqual, (c.total+c.max-1)/c.max)

		var positions []r3.Vector
		var colors []color.NRGBA
		for i, chunk := range chunks {
			test.That(t, chunk.NumberOfPoints(), test.ShouldEqual, c.sizes[i])
			test.That(t, chunk.NumberOfPoints(), test.ShouldBeLessThanOrEqualTo, c.max)
			test.That(t, chunk.Index, test.ShouldEqual, i)
			test.That(t, chunk.Level, test.ShouldEqual, 2)
			test.That(t, chunk.HitVolume, test.ShouldBeNil)
			positions = append(positions, chunk.Positions...)
			colors = append(colors, chunk.Colors...)
		}

		test.That(t, len(positions), test.ShouldEqual, c.total)
		firstMismatch := -1
		for i := range positions {
			if positions[i].X != float64(i) || colors[i].R != uint8(i) {
				firstMismatch = i
				break
			}
		}
		test.That(t, firstMismatch, test.ShouldEqual, -1)
	}
}

func TestBuildChunkNames(t *testing.T) {
	node := nodeWithPoints(t, "7", 25)
	chunks, err := NewBuilder("lion", 10, loader.MeshConfiguration{}).Build(node)
	test.That(t, err, test.ShouldBeNil)

	test.That(t, chunks[0].Name, test.ShouldEqual, "lion/r7_0 (10)")
	test.That(t, chunks[1].Name, test.ShouldEqual, "lion/r7_1 (10)")
	test.That(t, chunks[2].Name, test.ShouldEqual, "lion/r7_2 (5)")
}

func TestBuildWithoutPayload(t *testing.T) {
	tree := potree_tree.NewPotreeTree(geometry.NewBoundingBox(0, 1, 0, 1, 0, 1))
	chunks, err := NewBuilder("x", 10, loader.MeshConfiguration{}).Build(tree.GetRootNode())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chunks, test.ShouldBeEmpty)

	empty, err := tree.AddChild(tree.GetRootNode(), 3)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, empty.SetPointData(data.NewPointData(0)), test.ShouldBeNil)
	chunks, err = NewBuilder("x", 10, loader.MeshConfiguration{}).Build(empty)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chunks, test.ShouldBeEmpty)
	test.That(t, empty.HasPointData(), test.ShouldBeFalse)
}

func TestBuildEmptyRootKeepsHitVolume(t *testing.T) {
	node := nodeWithPoints(t, "", 0)
	chunks, err := NewBuilder("lion", 10, loader.MeshConfiguration{}).Build(node)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(chunks), test.ShouldEqual, 1)
	test.That(t, chunks[0].Name, test.ShouldEqual, "lion/r (0)")
	test.That(t, chunks[0].NumberOfPoints(), test.ShouldEqual, 0)
	test.That(t, chunks[0].HitVolume, test.ShouldNotBeNil)
	test.That(t, *chunks[0].HitVolume, test.ShouldResemble, node.GetBoundingBox())
	test.That(t, node.HasPointData(), test.ShouldBeFalse)
}
