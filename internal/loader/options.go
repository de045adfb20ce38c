package loader

import (
	"strings"
	"time"
)

type InterpolationMode string

const (
	// Flat quads, no fragment interpolation
	InterpolationOff InterpolationMode = "OFF"
	// Fragments are shaded as paraboloids facing the camera
	InterpolationParaboloids InterpolationMode = "PARABOLOIDS"
	// Like PARABOLOIDS with a linear falloff
	InterpolationCones InterpolationMode = "CONES"
)

const (
	DefaultMaxDepth     = 4
	DefaultPointRadius  = 5
	DefaultTimeBudget   = 100 * time.Millisecond
	DefaultMaxChunkSize = 65000
)

func (e InterpolationMode) String() string {
	switch e {
	case InterpolationOff, InterpolationParaboloids, InterpolationCones:
		return string(e)
	}
	return ""
}

func ParseInterpolationMode(value string) InterpolationMode {
	normalizedValue := strings.Trim(strings.ToUpper(value), " ")
	switch normalizedValue {
	case "OFF":
		return InterpolationOff
	case "PARABOLOIDS":
		return InterpolationParaboloids
	case "CONES":
		return InterpolationCones
	}
	return ""
}

// MeshConfiguration holds the render settings attached to every chunk
type MeshConfiguration struct {
	PointRadius   float64           `yaml:"point_radius"`
	RenderCircles bool              `yaml:"render_circles"`
	ScreenSize    bool              `yaml:"screen_size"`
	Interpolation InterpolationMode `yaml:"interpolation"`
}

// Contains the options needed to load point clouds
type LoaderOptions struct {
	Input            string        // Input cloud folder, or folder of clouds
	FolderProcessing bool          // Enables the loading of every cloud found in the input folder
	Recursive        bool          // Recursive lookup of clouds in subfolders
	MaxDepth         int           // Deepest level whose points are loaded
	MoveToOrigin     bool          // Centers the cloud bounding boxes on the origin
	TimeBudget       time.Duration // Max duration of a loading step before yielding
	MaxChunkSize     int           // Max number of points of a render chunk
	Mesh             MeshConfiguration

	Command       string
	ExportOptions *ExportOptions
	ServeOptions  *ServeOptions
}

type ExportOptions struct {
	Output   string // Output folder of the .pnts tiles
	Compress bool   // Writes zstd compressed .pnts.zst tiles
}

type ServeOptions struct {
	Address string // Listen address of the websocket server
}

// NewDefaultLoaderOptions returns the options used when nothing is configured
func NewDefaultLoaderOptions() *LoaderOptions {
	return &LoaderOptions{
		MaxDepth:     DefaultMaxDepth,
		TimeBudget:   DefaultTimeBudget,
		MaxChunkSize: DefaultMaxChunkSize,
		Mesh: MeshConfiguration{
			PointRadius:   DefaultPointRadius,
			RenderCircles: true,
			ScreenSize:    true,
			Interpolation: InterpolationOff,
		},
	}
}

func (opt *LoaderOptions) Copy() *LoaderOptions {
	newOpt := *opt

	if opt.ExportOptions != nil {
		exportOpt := *opt.ExportOptions
		newOpt.ExportOptions = &exportOpt
	}

	if opt.ServeOptions != nil {
		serveOpt := *opt.ServeOptions
		newOpt.ServeOptions = &serveOpt
	}

	return &newOpt
}
