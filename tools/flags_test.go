package tools

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/ecopia-map/potree_streamer/internal/loader"
)

func TestBuildLoaderOptionsDefaults(t *testing.T) {
	flags, err := ParseFlagsForCommand(CommandLoad, []string{"-i", "/clouds/lion"})
	test.That(t, err, test.ShouldBeNil)

	opts, err := BuildLoaderOptions(&flags)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.Input, test.ShouldEqual, "/clouds/lion")
	test.That(t, opts.Command, test.ShouldEqual, CommandLoad)
	test.That(t, opts.MaxDepth, test.ShouldEqual, loader.DefaultMaxDepth)
	test.That(t, opts.TimeBudget, test.ShouldEqual, loader.DefaultTimeBudget)
	test.That(t, opts.MaxChunkSize, test.ShouldEqual, loader.DefaultMaxChunkSize)
	test.That(t, opts.Mesh.Interpolation, test.ShouldEqual, loader.InterpolationOff)
	test.That(t, opts.Mesh.RenderCircles, test.ShouldBeTrue)
	test.That(t, opts.ExportOptions, test.ShouldBeNil)
	test.That(t, opts.ServeOptions, test.ShouldBeNil)
}

func TestBuildLoaderOptionsPrecedence(t *testing.T) {
	config := filepath.Join(t.TempDir(), "loader.yaml")
	content := []byte(`
max_depth: 7
time_budget_ms: 40
mesh:
  point_radius: 2
  interpolation: cones
export:
  output: /from/config
  compress: true
serve:
  address: ":9999"
`)
	test.That(t, os.WriteFile(config, content, 0o644), test.ShouldBeNil)

	flags, err := ParseFlagsForCommand(CommandExport, []string{"-i", "in", "-c", config, "-d", "2", "-o", "/from/flags"})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, flags.IsSet("max-depth"), test.ShouldBeTrue)
	test.That(t, flags.IsSet("time-budget"), test.ShouldBeFalse)

	opts, err := BuildLoaderOptions(&flags)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, opts.MaxDepth, test.ShouldEqual, 2)
	test.That(t, opts.TimeBudget, test.ShouldEqual, 40*time.Millisecond)
	test.That(t, opts.Mesh.PointRadius, test.ShouldEqual, 2.0)
	test.That(t, opts.Mesh.Interpolation, test.ShouldEqual, loader.InterpolationCones)
	test.That(t, opts.ExportOptions.Output, test.ShouldEqual, "/from/flags")
	test.That(t, opts.ExportOptions.Compress, test.ShouldBeTrue)
	test.That(t, opts.ServeOptions, test.ShouldBeNil)
}

func TestBuildLoaderOptionsErrors(t *testing.T) {
	cases := []struct {
		name    string
		command string
		args    []string
	}{
		{"missing input", CommandLoad, []string{}},
		{"missing output", CommandExport, []string{"-i", "in"}},
		{"negative depth", CommandLoad, []string{"-i", "in", "-max-depth", "-1"}},
		{"zero budget", CommandLoad, []string{"-i", "in", "-time-budget", "0"}},
		{"unknown interpolation", CommandLoad, []string{"-i", "in", "-interpolation", "SPLATS"}},
		{"missing config", CommandLoad, []string{"-i", "in", "-config", "/does/not/exist.yaml"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			flags, err := ParseFlagsForCommand(c.command, c.args)
			test.That(t, err, test.ShouldBeNil)
			_, err = BuildLoaderOptions(&flags)
			test.That(t, err, test.ShouldNotBeNil)
		})
	}
}

func TestParseFlagsForCommand(t *testing.T) {
	t.Run("serve address", func(t *testing.T) {
		flags, err := ParseFlagsForCommand(CommandServe, []string{"-i", "root", "-a", "127.0.0.1:0"})
		test.That(t, err, test.ShouldBeNil)
		opts, err := BuildLoaderOptions(&flags)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts.ServeOptions.Address, test.ShouldEqual, "127.0.0.1:0")
	})

	t.Run("serve default address", func(t *testing.T) {
		flags, err := ParseFlagsForCommand(CommandServe, []string{"-i", "root"})
		test.That(t, err, test.ShouldBeNil)
		opts, err := BuildLoaderOptions(&flags)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts.ServeOptions.Address, test.ShouldEqual, DefaultServeAddress)
	})

	t.Run("serve defaults to the work folder", func(t *testing.T) {
		root := t.TempDir()
		t.Setenv("POTREE_STREAMER_WORKDIR", root)
		flags, err := ParseFlagsForCommand(CommandServe, []string{})
		test.That(t, err, test.ShouldBeNil)
		opts, err := BuildLoaderOptions(&flags)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts.Input, test.ShouldEqual, root)
	})

	t.Run("serve input flag wins over the work folder", func(t *testing.T) {
		t.Setenv("POTREE_STREAMER_WORKDIR", t.TempDir())
		flags, err := ParseFlagsForCommand(CommandServe, []string{"-i", "root"})
		test.That(t, err, test.ShouldBeNil)
		opts, err := BuildLoaderOptions(&flags)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, opts.Input, test.ShouldEqual, "root")
	})

	t.Run("flag of another command", func(t *testing.T) {
		_, err := ParseFlagsForCommand(CommandInspect, []string{"-i", "in", "-max-depth", "3"})
		test.That(t, err, test.ShouldNotBeNil)
	})
}
