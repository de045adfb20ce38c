package loader

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"
)

func TestParseInterpolationMode(t *testing.T) {
	test.That(t, ParseInterpolationMode("off"), test.ShouldEqual, InterpolationOff)
	test.That(t, ParseInterpolationMode(" Paraboloids "), test.ShouldEqual, InterpolationParaboloids)
	test.That(t, ParseInterpolationMode("CONES"), test.ShouldEqual, InterpolationCones)
	test.That(t, ParseInterpolationMode("splats"), test.ShouldEqual, InterpolationMode(""))
	test.That(t, InterpolationMode("splats").String(), test.ShouldEqual, "")
}

func TestLoaderOptionsCopy(t *testing.T) {
	opt := NewDefaultLoaderOptions()
	opt.ExportOptions = &ExportOptions{Output: "out"}

	cp := opt.Copy()
	cp.ExportOptions.Output = "other"
	cp.Mesh.PointRadius = 1

	test.That(t, opt.ExportOptions.Output, test.ShouldEqual, "out")
	test.That(t, opt.Mesh.PointRadius, test.ShouldEqual, float64(DefaultPointRadius))
	test.That(t, cp.ServeOptions, test.ShouldBeNil)
}

func TestConfigApply(t *testing.T) {
	raw := []byte(`
max_depth: 7
time_budget_ms: 20
mesh:
  point_radius: 2.5
  render_circles: false
  interpolation: cones
export:
  output: /tmp/tiles
  compress: true
`)
	cfg, err := ParseConfig(raw)
	test.That(t, err, test.ShouldBeNil)

	opt := NewDefaultLoaderOptions()
	cfg.Apply(opt)

	test.That(t, opt.MaxDepth, test.ShouldEqual, 7)
	test.That(t, opt.TimeBudget, test.ShouldEqual, 20*time.Millisecond)
	test.That(t, opt.MaxChunkSize, test.ShouldEqual, DefaultMaxChunkSize)
	test.That(t, opt.Mesh.PointRadius, test.ShouldEqual, 2.5)
	test.That(t, opt.Mesh.RenderCircles, test.ShouldBeFalse)
	test.That(t, opt.Mesh.ScreenSize, test.ShouldBeTrue)
	test.That(t, opt.Mesh.Interpolation, test.ShouldEqual, InterpolationCones)
	test.That(t, opt.ExportOptions, test.ShouldResemble, &ExportOptions{Output: "/tmp/tiles", Compress: true})
	test.That(t, opt.ServeOptions, test.ShouldBeNil)
}

func TestConfigErrors(t *testing.T) {
	for _, raw := range []string{
		"max_depth: -1",
		"time_budget_ms: 0",
		"max_chunk_size: 0",
		"mesh:\n  interpolation: splats",
		"max_depth: [1, 2]",
	} {
		_, err := ParseConfig([]byte(raw))
		test.That(t, err, test.ShouldNotBeNil)
	}
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loader.yaml")
	test.That(t, os.WriteFile(path, []byte("serve:\n  address: \":9000\"\n"), 0o644), test.ShouldBeNil)

	cfg, err := LoadConfig(path)
	test.That(t, err, test.ShouldBeNil)
	opt := NewDefaultLoaderOptions()
	cfg.Apply(opt)
	test.That(t, opt.ServeOptions.Address, test.ShouldEqual, ":9000")

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	test.That(t, err, test.ShouldNotBeNil)
}
