package stream

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/io"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/octree/potree_tree"
	"github.com/ecopia-map/potree_streamer/internal/potree"
)

// ErrLoadInProgress is returned when a scheduler is driven from two places at once
var ErrLoadInProgress = errors.New("a load is already in progress")

// Scheduler drives the load of one point cloud as a sequence of bounded steps. A step runs
// until the time budget is spent while loading point payloads, or until the load ends.
// A finished scheduler cannot be restarted: build a new one to load again.
type Scheduler struct {
	cloudPath string
	opts      *loader.LoaderOptions
	sink      chunk.Sink
	clock     clock.Clock
	onStep    func(Progress)

	stepping int32
	driven   int32

	mu       sync.Mutex
	state    State
	err      error
	progress Progress

	meta        *potree.TreeMetadata
	tree        *potree_tree.PotreeTree
	pointLoader *io.PointLoader
	work        []*io.WorkUnit
	next        int
	sliceStart  time.Time
}

type Option func(*Scheduler)

// WithClock replaces the wall clock used to measure the time budget
func WithClock(c clock.Clock) Option {
	return func(s *Scheduler) {
		s.clock = c
	}
}

// WithProgressHandler registers a function called with the progress of the load after each
// step driven by Run
func WithProgressHandler(handler func(Progress)) Option {
	return func(s *Scheduler) {
		s.onStep = handler
	}
}

func NewScheduler(cloudPath string, opts *loader.LoaderOptions, sink chunk.Sink, options ...Option) *Scheduler {
	s := &Scheduler{
		cloudPath: cloudPath,
		opts:      opts,
		sink:      sink,
		clock:     clock.New(),
		state:     Idle,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

func (s *Scheduler) Status() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns the failure of the load, nil unless the state is Failed
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *Scheduler) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.progress
	p.State = s.state
	return p
}

// Metadata returns the parsed cloud metadata, nil before it has been parsed
func (s *Scheduler) Metadata() *potree.TreeMetadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.meta
}

// Run steps the load to completion, yielding to the host between steps. A nil yielder
// defaults to GoschedYielder.
func (s *Scheduler) Run(ctx context.Context, yielder Yielder) error {
	if !atomic.CompareAndSwapInt32(&s.driven, 0, 1) {
		return ErrLoadInProgress
	}
	defer atomic.StoreInt32(&s.driven, 0)

	if yielder == nil {
		yielder = GoschedYielder{}
	}
	for {
		done, err := s.step(ctx)
		if s.onStep != nil {
			s.onStep(s.Progress())
		}
		if done || err != nil {
			return err
		}
		if err := yielder.Yield(ctx); err != nil {
			return s.abort(err)
		}
	}
}

// Step advances the load until the next suspension point. It returns true once the load
// reached a terminal state, together with the failure if any.
func (s *Scheduler) Step(ctx context.Context) (bool, error) {
	if atomic.LoadInt32(&s.driven) == 1 {
		return false, ErrLoadInProgress
	}
	return s.step(ctx)
}

func (s *Scheduler) step(ctx context.Context) (bool, error) {
	if !atomic.CompareAndSwapInt32(&s.stepping, 0, 1) {
		return false, ErrLoadInProgress
	}
	defer atomic.StoreInt32(&s.stepping, 0)

	if state := s.Status(); state.IsTerminal() {
		return true, s.Err()
	}
	if err := ctx.Err(); err != nil {
		return true, s.fail(err)
	}

	s.sliceStart = s.clock.Now()
	for {
		switch s.Status() {
		case Idle:
			s.setState(ParsingMetadata)

		case ParsingMetadata:
			meta, err := potree.LoadMetadata(s.cloudPath, s.opts.MoveToOrigin)
			if err != nil {
				return true, s.fail(err)
			}
			glog.Infof("loading cloud %s: %d points declared, hierarchy step %d", meta.CloudName(), meta.Points(), meta.HierarchyStepSize())
			s.mu.Lock()
			s.meta = meta
			s.mu.Unlock()
			s.tree = potree_tree.NewPotreeTree(meta.BoundingBox())
			s.setState(LoadingHierarchy)

		case LoadingHierarchy:
			locator := potree.NewFileLocator(s.meta)
			if err := io.NewHierarchyLoader(locator, s.tree).Load(s.tree.GetRootNode()); err != nil {
				return true, s.fail(err)
			}
			s.pointLoader = io.NewPointLoader(locator, s.meta)
			glog.Infof("hierarchy of %s loaded: %d nodes", s.meta.CloudName(), s.tree.NumberOfNodes())
			s.setState(EnumeratingNodes)

		case EnumeratingNodes:
			s.work = io.NewStandardProducer(s.opts.MaxDepth).Produce(s.tree.GetRootNode())
			s.mu.Lock()
			s.progress.TotalNodes = len(s.work)
			s.mu.Unlock()
			s.setState(LoadingPoints)

		case LoadingPoints:
			for s.next < len(s.work) {
				node := s.work[s.next].Node
				n, err := s.pointLoader.Load(node)
				if err != nil {
					return true, s.fail(err)
				}
				s.next++
				s.mu.Lock()
				s.progress.LoadedNodes = s.next
				s.progress.LoadedPoints += n
				s.mu.Unlock()
				glog.V(1).Infof("node %s: %d points", node.GetName(), n)

				if err := ctx.Err(); err != nil {
					return true, s.fail(err)
				}
				if s.next < len(s.work) && s.clock.Since(s.sliceStart) > s.timeBudget() {
					return false, nil
				}
			}
			s.setState(BuildingChunks)

		case BuildingChunks:
			if err := s.buildChunks(); err != nil {
				return true, s.fail(err)
			}
			s.release()
			s.setState(Complete)
			glog.Infof("cloud %s loaded: %d nodes, %d chunks", s.meta.CloudName(), s.progress.LoadedNodes, s.progress.Chunks)

		case Complete:
			return true, nil

		case Failed:
			return true, s.Err()
		}
	}
}

func (s *Scheduler) buildChunks() error {
	builder := chunk.NewBuilder(s.meta.CloudName(), s.opts.MaxChunkSize, s.opts.Mesh)
	for _, unit := range s.work {
		chunks, err := builder.Build(unit.Node)
		if err != nil {
			return err
		}
		for _, c := range chunks {
			if err := s.sink.Add(c); err != nil {
				return errors.Wrapf(err, "cannot hand chunk %s over", c.Name)
			}
			s.mu.Lock()
			s.progress.Chunks++
			s.mu.Unlock()
		}
	}
	return nil
}

func (s *Scheduler) timeBudget() time.Duration {
	if s.opts.TimeBudget <= 0 {
		return loader.DefaultTimeBudget
	}
	return s.opts.TimeBudget
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// abort fails a load between two steps
func (s *Scheduler) abort(err error) error {
	if !atomic.CompareAndSwapInt32(&s.stepping, 0, 1) {
		return ErrLoadInProgress
	}
	defer atomic.StoreInt32(&s.stepping, 0)
	if s.Status().IsTerminal() {
		return s.Err()
	}
	return s.fail(err)
}

// fail moves the load to Failed, drops everything loaded so far and asks the sink to do the same
func (s *Scheduler) fail(err error) error {
	s.mu.Lock()
	s.state = Failed
	s.err = err
	s.mu.Unlock()

	s.release()
	if discarder, ok := s.sink.(chunk.Discarder); ok {
		discarder.Discard()
	}
	return err
}

func (s *Scheduler) release() {
	if s.tree != nil {
		s.tree.Clear()
	}
	s.tree = nil
	s.work = nil
	s.pointLoader = nil
}
