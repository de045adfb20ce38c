package scene

import (
	"sync"

	"github.com/golang/glog"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
)

// MemoryRenderer keeps chunks in memory instead of drawing them, objects being the chunk names
type MemoryRenderer struct {
	chunks map[string]*chunk.RenderChunk
	sync.Mutex
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{
		chunks: make(map[string]*chunk.RenderChunk),
	}
}

func (r *MemoryRenderer) CreateObject(c *chunk.RenderChunk) (ObjectHandle, error) {
	r.Lock()
	defer r.Unlock()
	r.chunks[c.Name] = c
	glog.V(1).Infof("object %s created with %d points", c.Name, c.NumberOfPoints())
	return c.Name, nil
}

func (r *MemoryRenderer) DestroyObject(handle ObjectHandle) {
	name, ok := handle.(string)
	if !ok {
		return
	}
	r.Lock()
	defer r.Unlock()
	delete(r.chunks, name)
}

// Chunk returns the chunk displayed under the given name
func (r *MemoryRenderer) Chunk(name string) (*chunk.RenderChunk, bool) {
	r.Lock()
	defer r.Unlock()
	c, ok := r.chunks[name]
	return c, ok
}

func (r *MemoryRenderer) NumberOfObjects() int {
	r.Lock()
	defer r.Unlock()
	return len(r.chunks)
}
