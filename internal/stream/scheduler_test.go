package stream

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.viam.com/test"

	"github.com/ecopia-map/potree_streamer/internal/chunk"
	"github.com/ecopia-map/potree_streamer/internal/loader"
	"github.com/ecopia-map/potree_streamer/internal/potree"
	"github.com/ecopia-map/potree_streamer/internal/testutils"
)

// tickingClock advances by tick every time elapsed time is measured
type tickingClock struct {
	*clock.Mock
	tick time.Duration
}

func (c *tickingClock) Since(t time.Time) time.Duration {
	c.Add(c.tick)
	return c.Mock.Since(t)
}

type recordingSink struct {
	chunks    []*chunk.RenderChunk
	failAfter int
	discarded bool
}

func (s *recordingSink) Add(c *chunk.RenderChunk) error {
	if s.failAfter > 0 && len(s.chunks) >= s.failAfter {
		return errors.New("sink is full")
	}
	s.chunks = append(s.chunks, c)
	return nil
}

func (s *recordingSink) Discard() {
	s.chunks = nil
	s.discarded = true
}

// writeCloud writes a cloud with nodes r, r0, r00 and r1 holding 10, 5, 3 and 70 points
func writeCloud(t *testing.T, skip ...string) *testutils.CloudFixture {
	t.Helper()
	fixture := testutils.NewCloudFixture(t, "cloud")
	fixture.WriteMetadata(t)
	fixture.WriteHierarchy(t, "", 0x03, 0x01, 0x00, 0x00)

	skipped := map[string]bool{}
	for _, id := range skip {
		skipped[id] = true
	}
	for id, n := range map[string]int{"": 10, "0": 5, "00": 3, "1": 70} {
		if !skipped[id] {
			fixture.WritePoints(t, id, testutils.SequentialPoints(n, 4))
		}
	}
	return fixture
}

func testOptions() *loader.LoaderOptions {
	opts := loader.NewDefaultLoaderOptions()
	opts.MaxDepth = 10
	opts.MaxChunkSize = 30
	return opts
}

func chunkNames(chunks []*chunk.RenderChunk) []string {
	names := make([]string, len(chunks))
	for i, c := range chunks {
		names[i] = c.Name
	}
	return names
}

func TestSchedulerRun(t *testing.T) {
	fixture := writeCloud(t)
	sink := &recordingSink{}
	s := NewScheduler(fixture.Dir, testOptions(), sink, WithClock(clock.NewMock()))
	test.That(t, s.Status(), test.ShouldEqual, Idle)

	err := s.Run(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.Status(), test.ShouldEqual, Complete)
	test.That(t, s.Err(), test.ShouldBeNil)

	test.That(t, chunkNames(sink.chunks), test.ShouldResemble, []string{
		"cloud/r (10)",
		"cloud/r0 (5)",
		"cloud/r00 (3)",
		"cloud/r1_0 (30)",
		"cloud/r1_1 (30)",
		"cloud/r1_2 (10)",
	})
	test.That(t, sink.chunks[0].HitVolume, test.ShouldNotBeNil)
	test.That(t, sink.chunks[1].HitVolume, test.ShouldBeNil)

	progress := s.Progress()
	test.That(t, progress, test.ShouldResemble, Progress{
		State:        Complete,
		TotalNodes:   4,
		LoadedNodes:  4,
		LoadedPoints: 88,
		Chunks:       6,
	})
	test.That(t, s.Metadata().CloudName(), test.ShouldEqual, "cloud")

	t.Run("finished scheduler stays finished", func(t *testing.T) {
		done, err := s.Step(context.Background())
		test.That(t, done, test.ShouldBeTrue)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, s.Run(context.Background(), nil), test.ShouldBeNil)
		test.That(t, len(sink.chunks), test.ShouldEqual, 6)
	})
}

func TestSchedulerIgnoresUnknownAttributes(t *testing.T) {
	fixture := testutils.NewCloudFixture(t, "cloud")
	fixture.Attributes = []string{"POSITION_CARTESIAN", "COLOR_PACKED", "INDICES"}
	fixture.WriteMetadata(t)
	fixture.WriteHierarchy(t, "", 0x00)
	fixture.WritePoints(t, "", testutils.SequentialPoints(3, 4))

	sink := &recordingSink{}
	err := NewScheduler(fixture.Dir, testOptions(), sink, WithClock(clock.NewMock())).Run(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, chunkNames(sink.chunks), test.ShouldResemble, []string{"cloud/r (3)"})
	test.That(t, sink.chunks[0].Colors[2].R, test.ShouldEqual, uint8(2))
}

func TestSchedulerDepthLimit(t *testing.T) {
	// payloads below the depth limit are never read
	fixture := writeCloud(t, "00")
	opts := testOptions()
	opts.MaxDepth = 1
	sink := &recordingSink{}

	err := NewScheduler(fixture.Dir, opts, sink).Run(context.Background(), nil)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(sink.chunks), test.ShouldEqual, 5)
	for _, c := range sink.chunks {
		test.That(t, c.Level, test.ShouldBeLessThanOrEqualTo, 1)
	}
}

func TestSchedulerYieldsWhenBudgetIsSpent(t *testing.T) {
	fixture := writeCloud(t)
	sink := &recordingSink{}
	clk := &tickingClock{Mock: clock.NewMock(), tick: 60 * time.Millisecond}
	s := NewScheduler(fixture.Dir, testOptions(), sink, WithClock(clk))
	ctx := context.Background()

	done, err := s.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeFalse)
	test.That(t, s.Status(), test.ShouldEqual, LoadingPoints)
	test.That(t, s.Progress().LoadedNodes, test.ShouldEqual, 2)
	test.That(t, sink.chunks, test.ShouldBeEmpty)

	done, err = s.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, s.Status(), test.ShouldEqual, Complete)
	test.That(t, len(sink.chunks), test.ShouldEqual, 6)
}

func TestSchedulerRunYields(t *testing.T) {
	fixture := writeCloud(t)
	clk := &tickingClock{Mock: clock.NewMock(), tick: 60 * time.Millisecond}
	s := NewScheduler(fixture.Dir, testOptions(), &recordingSink{}, WithClock(clk))

	yields := 0
	var concurrentErr error
	err := s.Run(context.Background(), YielderFunc(func(ctx context.Context) error {
		yields++
		_, concurrentErr = s.Step(ctx)
		return nil
	}))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, yields, test.ShouldEqual, 1)
	test.That(t, concurrentErr, test.ShouldEqual, ErrLoadInProgress)
}

func TestSchedulerProgressHandler(t *testing.T) {
	fixture := writeCloud(t)
	clk := &tickingClock{Mock: clock.NewMock(), tick: 60 * time.Millisecond}
	var reports []Progress
	s := NewScheduler(fixture.Dir, testOptions(), &recordingSink{}, WithClock(clk),
		WithProgressHandler(func(p Progress) { reports = append(reports, p) }))

	test.That(t, s.Run(context.Background(), nil), test.ShouldBeNil)
	test.That(t, reports, test.ShouldHaveLength, 2)
	test.That(t, reports[0].State, test.ShouldEqual, LoadingPoints)
	test.That(t, reports[0].LoadedNodes, test.ShouldEqual, 2)
	test.That(t, reports[1].State, test.ShouldEqual, Complete)
	test.That(t, reports[1].Chunks, test.ShouldEqual, 6)
}

func TestSchedulerCancellation(t *testing.T) {
	fixture := writeCloud(t)
	sink := &recordingSink{}
	clk := &tickingClock{Mock: clock.NewMock(), tick: 60 * time.Millisecond}
	s := NewScheduler(fixture.Dir, testOptions(), sink, WithClock(clk))
	ctx, cancel := context.WithCancel(context.Background())

	done, err := s.Step(ctx)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, done, test.ShouldBeFalse)

	cancel()
	done, err = s.Step(ctx)
	test.That(t, done, test.ShouldBeTrue)
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, s.Status(), test.ShouldEqual, Failed)
	test.That(t, errors.Is(s.Err(), context.Canceled), test.ShouldBeTrue)
	test.That(t, sink.discarded, test.ShouldBeTrue)
}

func TestSchedulerYielderCancellation(t *testing.T) {
	fixture := writeCloud(t)
	sink := &recordingSink{}
	clk := &tickingClock{Mock: clock.NewMock(), tick: 60 * time.Millisecond}
	s := NewScheduler(fixture.Dir, testOptions(), sink, WithClock(clk))
	ctx, cancel := context.WithCancel(context.Background())

	err := s.Run(ctx, YielderFunc(func(ctx context.Context) error {
		cancel()
		return GoschedYielder{}.Yield(ctx)
	}))
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, s.Status(), test.ShouldEqual, Failed)
	test.That(t, sink.discarded, test.ShouldBeTrue)
	test.That(t, sink.chunks, test.ShouldBeEmpty)
}

func TestSchedulerFailures(t *testing.T) {
	t.Run("missing metadata", func(t *testing.T) {
		sink := &recordingSink{}
		s := NewScheduler(t.TempDir(), testOptions(), sink)
		err := s.Run(context.Background(), nil)

		var notFound *potree.FileNotFoundError
		test.That(t, errors.As(err, &notFound), test.ShouldBeTrue)
		test.That(t, s.Status(), test.ShouldEqual, Failed)
		test.That(t, s.Metadata(), test.ShouldBeNil)
		test.That(t, sink.discarded, test.ShouldBeTrue)
	})

	t.Run("missing payload", func(t *testing.T) {
		fixture := writeCloud(t, "00")
		sink := &recordingSink{}
		s := NewScheduler(fixture.Dir, testOptions(), sink)
		err := s.Run(context.Background(), nil)

		var notFound *potree.FileNotFoundError
		test.That(t, errors.As(err, &notFound), test.ShouldBeTrue)
		test.That(t, s.Status(), test.ShouldEqual, Failed)
		test.That(t, sink.chunks, test.ShouldBeEmpty)
		test.That(t, sink.discarded, test.ShouldBeTrue)
	})

	t.Run("corrupted payload", func(t *testing.T) {
		fixture := writeCloud(t)
		fixture.WriteFile(t, fixture.NodeFile("1", ".bin"), make([]byte, 33))
		s := NewScheduler(fixture.Dir, testOptions(), &recordingSink{})

		var mismatch *potree.DataMismatchError
		test.That(t, errors.As(s.Run(context.Background(), nil), &mismatch), test.ShouldBeTrue)
		test.That(t, mismatch.Node, test.ShouldEqual, "1")
	})

	t.Run("sink error", func(t *testing.T) {
		fixture := writeCloud(t)
		sink := &recordingSink{failAfter: 3}
		s := NewScheduler(fixture.Dir, testOptions(), sink)
		err := s.Run(context.Background(), nil)

		test.That(t, err, test.ShouldNotBeNil)
		test.That(t, err.Error(), test.ShouldContainSubstring, "sink is full")
		test.That(t, s.Status(), test.ShouldEqual, Failed)
		test.That(t, sink.chunks, test.ShouldBeEmpty)
		test.That(t, sink.discarded, test.ShouldBeTrue)
		test.That(t, s.Progress().Chunks, test.ShouldEqual, 3)
	})
}

func TestStateString(t *testing.T) {
	test.That(t, LoadingPoints.String(), test.ShouldEqual, "LOADING_POINTS")
	test.That(t, State(42).String(), test.ShouldEqual, "State(42)")
	test.That(t, Failed.IsTerminal(), test.ShouldBeTrue)
	test.That(t, BuildingChunks.IsTerminal(), test.ShouldBeFalse)

	b, err := json.Marshal(Progress{State: Complete, LoadedNodes: 3})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(b), test.ShouldContainSubstring, `"State":"COMPLETE"`)
}
