package tools

import (
	"flag"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/ecopia-map/potree_streamer/internal/loader"
)

const (
	CommandLoad    = "load"
	CommandExport  = "export"
	CommandServe   = "serve"
	CommandInspect = "inspect"

	DefaultServeAddress = ":8080"
)

type FlagsGlobal struct {
	Help    *bool `json:"help"`
	Version *bool `json:"version"`
}

type LoaderFlags struct {
	Input            *string `json:"input"`
	Config           *string `json:"config"`
	FolderProcessing *bool   `json:"folder"`
	Recursive        *bool   `json:"recursive"`
	MaxDepth         *int    `json:"max_depth"`
	MoveToOrigin     *bool   `json:"move_to_origin"`
	TimeBudgetMs     *int    `json:"time_budget_ms"`
	MaxChunkSize     *int    `json:"max_chunk_size"`
	PointRadius      *float64
	RenderCircles    *bool
	ScreenSize       *bool
	Interpolation    *string `json:"interpolation"`
}

type FlagsForCommand struct {
	LoaderFlags
	Command      string
	Output       *string
	Compress     *bool
	Address      *string
	Silent       *bool
	LogTimestamp *bool
	Help         *bool
	Version      *bool

	// long names of the flags given on the command line
	set map[string]bool
}

func ParseFlagsGlobal() FlagsGlobal {
	help := defineBoolFlag("help", "h", false, "Displays this help.")
	version := defineBoolFlag("version", "v", false, "Displays the version of potree_streamer.")

	flag.Parse()

	return FlagsGlobal{
		Help:    help,
		Version: version,
	}
}

// ParseFlagsForCommand parses the flags of a subcommand. Only the flags meaningful for the
// command are defined, so that unknown ones are reported by the flag set.
func ParseFlagsForCommand(command string, args []string) (FlagsForCommand, error) {
	glog.V(1).Infoln(command, FmtJSONString(args))

	flagCommand := flag.NewFlagSet("command-"+command, flag.ContinueOnError)
	flags := FlagsForCommand{Command: command}
	shortHands := map[string]string{}
	register := func(name, shortHand string) {
		if shortHand != "" {
			shortHands[shortHand] = name
		}
	}

	flags.Input = defineStringFlagCommand(flagCommand, "input", "i", "", "Specifies the input cloud folder, or the folder of clouds with -folder. serve defaults to $POTREE_STREAMER_WORKDIR or the executable folder.")
	register("input", "i")
	flags.Config = defineStringFlagCommand(flagCommand, "config", "c", "", "YAML file providing default options. Command line flags take precedence.")
	register("config", "c")
	flags.MoveToOrigin = defineBoolFlagCommand(flagCommand, "move-to-origin", "m", false, "Centers the cloud bounding box on the origin.")
	register("move-to-origin", "m")

	if command != CommandInspect {
		flags.FolderProcessing = defineBoolFlagCommand(flagCommand, "folder", "f", false, "Enables loading of every cloud found in the input folder. Input must be a folder if specified")
		register("folder", "f")
		flags.Recursive = defineBoolFlagCommand(flagCommand, "recursive", "r", false, "Enables recursive lookup for clouds inside the subfolders")
		register("recursive", "r")
		flags.MaxDepth = defineIntFlagCommand(flagCommand, "max-depth", "d", loader.DefaultMaxDepth, "Deepest octree level whose points are loaded.")
		register("max-depth", "d")
		flags.TimeBudgetMs = defineIntFlagCommand(flagCommand, "time-budget", "b", int(loader.DefaultTimeBudget/time.Millisecond), "Max duration in milliseconds of a loading step before yielding.")
		register("time-budget", "b")
		flags.MaxChunkSize = defineIntFlagCommand(flagCommand, "max-chunk-size", "", loader.DefaultMaxChunkSize, "Max number of points of a render chunk.")
		flags.PointRadius = defineFloat64FlagCommand(flagCommand, "point-radius", "p", loader.DefaultPointRadius, "Radius of the rendered points.")
		register("point-radius", "p")
		flags.RenderCircles = defineBoolFlagCommand(flagCommand, "render-circles", "", true, "Renders points as circles instead of squares.")
		flags.ScreenSize = defineBoolFlagCommand(flagCommand, "screen-size", "", true, "Point radius is expressed in screen pixels rather than world units.")
		flags.Interpolation = defineStringFlagCommand(flagCommand, "interpolation", "", string(loader.InterpolationOff), "Point interpolation mode, one of 'OFF', 'PARABOLOIDS' or 'CONES'.")
	}
	switch command {
	case CommandExport:
		flags.Output = defineStringFlagCommand(flagCommand, "output", "o", "", "Specifies the output folder where to write the .pnts tiles.")
		register("output", "o")
		flags.Compress = defineBoolFlagCommand(flagCommand, "compress", "z", false, "Writes zstd compressed .pnts.zst tiles.")
		register("compress", "z")
	case CommandServe:
		flags.Address = defineStringFlagCommand(flagCommand, "address", "a", DefaultServeAddress, "Listen address of the websocket server.")
		register("address", "a")
	}

	flags.Silent = defineBoolFlagCommand(flagCommand, "silent", "s", false, "Use to suppress all the non-error messages.")
	flags.LogTimestamp = defineBoolFlagCommand(flagCommand, "timestamp", "t", false, "Adds timestamp to log messages.")
	flags.Help = defineBoolFlagCommand(flagCommand, "help", "h", false, "Displays this help.")
	flags.Version = defineBoolFlagCommand(flagCommand, "version", "v", false, "Displays the version of potree_streamer.")

	if err := flagCommand.Parse(args); err != nil {
		return flags, errors.Wrapf(err, "invalid %s flags", command)
	}

	flags.set = map[string]bool{}
	flagCommand.Visit(func(f *flag.Flag) {
		if name, ok := shortHands[f.Name]; ok {
			flags.set[name] = true
			return
		}
		flags.set[f.Name] = true
	})
	return flags, nil
}

// IsSet reports whether a flag was given on the command line, by long name
func (f *FlagsForCommand) IsSet(name string) bool {
	return f.set[name]
}

// BuildLoaderOptions resolves the options of a command: defaults, then the config file if any,
// then the flags given on the command line.
func BuildLoaderOptions(flags *FlagsForCommand) (*loader.LoaderOptions, error) {
	opts := loader.NewDefaultLoaderOptions()
	opts.Command = flags.Command
	switch flags.Command {
	case CommandExport:
		opts.ExportOptions = &loader.ExportOptions{}
	case CommandServe:
		opts.ServeOptions = &loader.ServeOptions{Address: DefaultServeAddress}
	}

	if *flags.Config != "" {
		cfg, err := loader.LoadConfig(*flags.Config)
		if err != nil {
			return nil, err
		}
		cfg.Apply(opts)
		if flags.Command != CommandExport {
			opts.ExportOptions = nil
		}
		if flags.Command != CommandServe {
			opts.ServeOptions = nil
		}
	}

	opts.Input = *flags.Input
	if opts.Input == "" && flags.Command == CommandServe {
		opts.Input = GetRootFolder()
	}
	if flags.IsSet("move-to-origin") {
		opts.MoveToOrigin = *flags.MoveToOrigin
	}
	if flags.IsSet("folder") {
		opts.FolderProcessing = *flags.FolderProcessing
	}
	if flags.IsSet("recursive") {
		opts.Recursive = *flags.Recursive
	}
	if flags.IsSet("max-depth") {
		opts.MaxDepth = *flags.MaxDepth
	}
	if flags.IsSet("time-budget") {
		opts.TimeBudget = time.Duration(*flags.TimeBudgetMs) * time.Millisecond
	}
	if flags.IsSet("max-chunk-size") {
		opts.MaxChunkSize = *flags.MaxChunkSize
	}
	if flags.IsSet("point-radius") {
		opts.Mesh.PointRadius = *flags.PointRadius
	}
	if flags.IsSet("render-circles") {
		opts.Mesh.RenderCircles = *flags.RenderCircles
	}
	if flags.IsSet("screen-size") {
		opts.Mesh.ScreenSize = *flags.ScreenSize
	}
	if flags.IsSet("interpolation") {
		opts.Mesh.Interpolation = loader.ParseInterpolationMode(*flags.Interpolation)
	}
	if flags.IsSet("output") {
		opts.ExportOptions.Output = *flags.Output
	}
	if flags.IsSet("compress") {
		opts.ExportOptions.Compress = *flags.Compress
	}
	if flags.IsSet("address") {
		opts.ServeOptions.Address = *flags.Address
	}

	return opts, ValidateLoaderOptions(opts)
}

// ValidateLoaderOptions checks the options of a command before any cloud is opened
func ValidateLoaderOptions(opts *loader.LoaderOptions) error {
	if opts.Input == "" && opts.Command != CommandServe {
		return errors.New("input cloud folder not specified")
	}
	if opts.MaxDepth < 0 {
		return errors.Errorf("max-depth must not be negative, got %d", opts.MaxDepth)
	}
	if opts.TimeBudget <= 0 {
		return errors.Errorf("time-budget must be positive, got %s", opts.TimeBudget)
	}
	if opts.MaxChunkSize <= 0 {
		return errors.Errorf("max-chunk-size must be positive, got %d", opts.MaxChunkSize)
	}
	if opts.Mesh.Interpolation == "" {
		return errors.New("interpolation should be either OFF, PARABOLOIDS or CONES")
	}
	if opts.ExportOptions != nil && opts.ExportOptions.Output == "" {
		return errors.New("output folder not specified")
	}
	if opts.ServeOptions != nil && opts.ServeOptions.Address == "" {
		return errors.New("listen address not specified")
	}
	return nil
}

func defineBoolFlag(name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flag.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flag.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineStringFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue string, usage string) *string {
	var output string
	flagCommand.StringVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.StringVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineIntFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue int, usage string) *int {
	var output int
	flagCommand.IntVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.IntVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}

	return &output
}

func defineFloat64FlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue float64, usage string) *float64 {
	var output float64
	flagCommand.Float64Var(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.Float64Var(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}

func defineBoolFlagCommand(flagCommand *flag.FlagSet, name string, shortHand string, defaultValue bool, usage string) *bool {
	var output bool
	flagCommand.BoolVar(&output, name, defaultValue, usage)
	if shortHand != name && shortHand != "" {
		flagCommand.BoolVar(&output, shortHand, defaultValue, usage+" (shorthand for "+name+")")
	}
	return &output
}
