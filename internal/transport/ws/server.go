package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/export"
	"github.com/ecopia-map/potree_streamer/internal/geometry"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/potree"
	"github.com/ecopia-map/potree_streamer/internal/stream"
	"github.com/ecopia-map/potree_streamer/tools"
)

const writeTimeout = 5 * time.Second

// Server streams the chunks of the clouds found below a root folder. One load runs at a time:
// a viewer connecting during a load is refused and may try again later.
type Server struct {
	root       string
	opts       *loader.LoaderOptions
	fileFinder tools.FileFinder

	upgrader websocket.Upgrader
	busy     atomic.Bool
}

func NewServer(root string, opts *loader.LoaderOptions) *Server {
	return &Server{
		root:       root,
		opts:       opts,
		fileFinder: tools.NewStandardFileFinder(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Mux returns the routes of the server: /clouds lists the clouds, /stream?cloud=<name> loads one
func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/clouds", s.CloudsHandler())
	mux.HandleFunc("/stream", s.StreamHandler())
	return mux
}

func (s *Server) CloudsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		opts := s.opts.Copy()
		opts.Input = s.root
		opts.FolderProcessing = true
		opts.Recursive = true
		clouds, err := s.fileFinder.GetCloudsToProcess(opts)
		if err != nil {
			http.Error(rw, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := CloudsResponse{Clouds: make([]string, 0, len(clouds))}
		for _, cloud := range clouds {
			rel, err := filepath.Rel(s.root, cloud)
			if err != nil {
				continue
			}
			resp.Clouds = append(resp.Clouds, filepath.ToSlash(rel))
		}
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) StreamHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		cloudPath, err := s.resolveCloud(r.URL.Query().Get("cloud"))
		if err != nil {
			http.Error(rw, err.Error(), http.StatusNotFound)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		if !s.busy.CompareAndSwap(false, true) {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "load in progress"), time.Now().Add(time.Second))
			return
		}
		defer s.busy.Store(false)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// Reader goroutine: the viewer leaving cancels the load.
		go func() {
			defer cancel()
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		sink := newConnSink(conn)
		scheduler := stream.NewScheduler(cloudPath, s.opts.Copy(), sink)
		glog.Infof("streaming %s to %s", cloudPath, r.RemoteAddr)

		if err := scheduler.Run(ctx, nil); err != nil {
			glog.Warningf("stream of %s to %s failed: %v", cloudPath, r.RemoteAddr, err)
			_ = sink.writeJSON(ErrorMsg{Type: TypeError, Error: err.Error()})
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "load failed"), time.Now().Add(time.Second))
			return
		}

		progress := scheduler.Progress()
		_ = sink.writeJSON(CompleteMsg{
			Type:   TypeComplete,
			Cloud:  scheduler.Metadata().CloudName(),
			Nodes:  progress.LoadedNodes,
			Points: progress.LoadedPoints,
			Chunks: progress.Chunks,
		})
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))
	}
}

// resolveCloud maps a cloud name to its folder below the root, refusing names escaping it
func (s *Server) resolveCloud(name string) (string, error) {
	if name == "" {
		return "", errors.New("missing cloud parameter")
	}
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", errors.Errorf("invalid cloud %q", name)
	}
	cloudPath := filepath.Join(s.root, clean)
	if _, err := os.Stat(filepath.Join(cloudPath, potree.MetadataFileName)); err != nil {
		return "", errors.Errorf("unknown cloud %q", name)
	}
	return cloudPath, nil
}

// connSink sends every chunk as a JSON header followed by its .pnts tile
type connSink struct {
	conn    *websocket.Conn
	encoder *export.PntsEncoder
}

func newConnSink(conn *websocket.Conn) *connSink {
	return &connSink{
		conn:    conn,
		encoder: export.NewPntsEncoder(),
	}
}

func (s *connSink) Add(c *chunk.RenderChunk) error {
	msg := ChunkMsg{
		Type:   TypeChunk,
		Name:   c.Name,
		Node:   c.NodeName,
		Index:  c.Index,
		Level:  c.Level,
		Points: c.NumberOfPoints(),
		Bounds: boxArray(c.Bounds),
		Mesh:   c.Mesh,
	}
	if c.HitVolume != nil {
		hitVolume := boxArray(*c.HitVolume)
		msg.HitVolume = &hitVolume
	}
	if c.NumberOfPoints() == 0 {
		return s.writeJSON(msg)
	}

	content, err := s.encoder.Encode(c)
	if err != nil {
		return err
	}
	if err := s.writeJSON(msg); err != nil {
		return err
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return errors.Wrap(s.conn.WriteMessage(websocket.BinaryMessage, content), "cannot send chunk")
}

func (s *connSink) Discard() {
	_ = s.writeJSON(DiscardMsg{Type: TypeDiscard})
}

func (s *connSink) writeJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "cannot encode message")
	}
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return errors.Wrap(s.conn.WriteMessage(websocket.TextMessage, b), "cannot send message")
}

func boxArray(b geometry.BoundingBox) [6]float64 {
	min, max := b.Min(), b.Max()
	return [6]float64{min.X, min.Y, min.Z, max.X, max.Y, max.Z}
}
