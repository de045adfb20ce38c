package scene

import (
	"errors"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

type failingRenderer struct {
	*MemoryRenderer
}

func (r failingRenderer) CreateObject(c *chunk.RenderChunk) (ObjectHandle, error) {
	return nil, errors.New("out of buffers")
}

func testChunk(name string, n int, root bool) *chunk.RenderChunk {
	box := geometry.NewBoundingBox(0, 1, 0, 1, 0, 1)
	c := &chunk.RenderChunk{
		Name:      name,
		Positions: make([]r3.Vector, n),
		Bounds:    box,
	}
	if root {
		c.HitVolume = &box
	}
	return c
}

func TestSceneAdd(t *testing.T) {
	renderer := NewMemoryRenderer()
	scene := NewScene(renderer)

	test.That(t, scene.Add(testChunk("c/r (3)", 3, true)), test.ShouldBeNil)
	test.That(t, scene.Add(testChunk("c/r0 (2)", 2, false)), test.ShouldBeNil)

	test.That(t, scene.NumberOfObjects(), test.ShouldEqual, 2)
	test.That(t, scene.NumberOfPoints(), test.ShouldEqual, 5)
	test.That(t, renderer.NumberOfObjects(), test.ShouldEqual, 2)
	test.That(t, len(scene.HitVolumes()), test.ShouldEqual, 1)

	displayed, ok := renderer.Chunk("c/r0 (2)")
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, displayed.NumberOfPoints(), test.ShouldEqual, 2)
}

func TestSceneUnload(t *testing.T) {
	renderer := NewMemoryRenderer()
	scene := NewScene(renderer)
	test.That(t, scene.Add(testChunk("c/r (3)", 3, true)), test.ShouldBeNil)
	test.That(t, scene.Add(testChunk("c/r0 (2)", 2, false)), test.ShouldBeNil)

	scene.Unload()
	test.That(t, scene.NumberOfObjects(), test.ShouldEqual, 0)
	test.That(t, scene.HitVolumes(), test.ShouldBeEmpty)
	test.That(t, renderer.NumberOfObjects(), test.ShouldEqual, 0)

	test.That(t, scene.Add(testChunk("c/r (1)", 1, true)), test.ShouldBeNil)
	scene.Discard()
	test.That(t, renderer.NumberOfObjects(), test.ShouldEqual, 0)
}

func TestSceneRendererError(t *testing.T) {
	scene := NewScene(failingRenderer{NewMemoryRenderer()})
	err := scene.Add(testChunk("c/r (1)", 1, true))
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "c/r (1)")
	test.That(t, scene.NumberOfObjects(), test.ShouldEqual, 0)
}
