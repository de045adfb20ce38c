package scene

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
)

// ObjectHandle identifies an object created by a Renderer
type ObjectHandle interface{}

// Renderer is the rendering collaborator turning chunks into displayable objects
type Renderer interface {
	CreateObject(chunk *chunk.RenderChunk) (ObjectHandle, error)
	DestroyObject(handle ObjectHandle)
}

// Scene owns the objects created for the chunks of one cloud. It implements chunk.Sink and
// chunk.Discarder so a failed load leaves nothing displayed.
type Scene struct {
	renderer   Renderer
	objects    []ObjectHandle
	hitVolumes []geometry.BoundingBox
	points     int

	sync.Mutex
}

func NewScene(renderer Renderer) *Scene {
	return &Scene{
		renderer: renderer,
	}
}

func (s *Scene) Add(c *chunk.RenderChunk) error {
	handle, err := s.renderer.CreateObject(c)
	if err != nil {
		return errors.Wrapf(err, "cannot create object for chunk %s", c.Name)
	}

	s.Lock()
	defer s.Unlock()
	s.objects = append(s.objects, handle)
	s.points += c.NumberOfPoints()
	if c.HitVolume != nil {
		s.hitVolumes = append(s.hitVolumes, *c.HitVolume)
	}
	return nil
}

// HitVolumes returns the boxes usable for hit testing against the cloud
func (s *Scene) HitVolumes() []geometry.BoundingBox {
	s.Lock()
	defer s.Unlock()
	return append([]geometry.BoundingBox(nil), s.hitVolumes...)
}

func (s *Scene) NumberOfObjects() int {
	s.Lock()
	defer s.Unlock()
	return len(s.objects)
}

func (s *Scene) NumberOfPoints() int {
	s.Lock()
	defer s.Unlock()
	return s.points
}

// Unload destroys every object of the scene
func (s *Scene) Unload() {
	s.Lock()
	objects := s.objects
	s.objects = nil
	s.hitVolumes = nil
	s.points = 0
	s.Unlock()

	for _, handle := range objects {
		s.renderer.DestroyObject(handle)
	}
}

// Discard unloads the objects received from a failed load
func (s *Scene) Discard() {
	s.Unload()
}
