package ws

import (
	"github.com/ecopia-map/potree_streamer/internal/loader"
)

const (
	TypeChunk    = "chunk"
	TypeDiscard  = "discard"
	TypeComplete = "complete"
	TypeError    = "error"
)

// ChunkMsg precedes the binary .pnts message carrying the points of a chunk. No binary message
// follows a chunk of zero points.
type ChunkMsg struct {
	Type      string                   `json:"type"`
	Name      string                   `json:"name"`
	Node      string                   `json:"node"`
	Index     int                      `json:"index"`
	Level     int                      `json:"level"`
	Points    int                      `json:"points"`
	Bounds    [6]float64               `json:"bounds"`
	HitVolume *[6]float64              `json:"hit_volume,omitempty"`
	Mesh      loader.MeshConfiguration `json:"mesh"`
}

// DiscardMsg tells the viewer to drop every chunk received so far
type DiscardMsg struct {
	Type string `json:"type"`
}

type CompleteMsg struct {
	Type   string `json:"type"`
	Cloud  string `json:"cloud"`
	Nodes  int    `json:"nodes"`
	Points int    `json:"points"`
	Chunks int    `json:"chunks"`
}

type ErrorMsg struct {
	Type  string `json:"type"`
	Error string `json:"error"`
}

// CloudsResponse lists the clouds available below the server root
type CloudsResponse struct {
	Clouds []string `json:"clouds"`
}
