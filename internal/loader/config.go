package loader

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// FileConfig is the content of a YAML configuration file. Unset keys keep the current option value.
type FileConfig struct {
	MaxDepth     *int     `yaml:"max_depth"`
	MoveToOrigin *bool    `yaml:"move_to_origin"`
	TimeBudgetMs *int     `yaml:"time_budget_ms"`
	MaxChunkSize *int     `yaml:"max_chunk_size"`
	Recursive    *bool    `yaml:"recursive"`
	Mesh         *meshCfg `yaml:"mesh"`
	Export       *struct {
		Output   *string `yaml:"output"`
		Compress *bool   `yaml:"compress"`
	} `yaml:"export"`
	Serve *struct {
		Address *string `yaml:"address"`
	} `yaml:"serve"`
}

type meshCfg struct {
	PointRadius   *float64 `yaml:"point_radius"`
	RenderCircles *bool    `yaml:"render_circles"`
	ScreenSize    *bool    `yaml:"screen_size"`
	Interpolation *string  `yaml:"interpolation"`
}

func LoadConfig(path string) (*FileConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "cannot read loader config")
	}
	return ParseConfig(raw)
}

func ParseConfig(raw []byte) (*FileConfig, error) {
	var cfg FileConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, errors.Wrap(err, "invalid loader config")
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *FileConfig) validate() error {
	if cfg.MaxDepth != nil && *cfg.MaxDepth < 0 {
		return errors.Errorf("max_depth must not be negative, got %d", *cfg.MaxDepth)
	}
	if cfg.TimeBudgetMs != nil && *cfg.TimeBudgetMs <= 0 {
		return errors.Errorf("time_budget_ms must be positive, got %d", *cfg.TimeBudgetMs)
	}
	if cfg.MaxChunkSize != nil && *cfg.MaxChunkSize <= 0 {
		return errors.Errorf("max_chunk_size must be positive, got %d", *cfg.MaxChunkSize)
	}
	if cfg.Mesh != nil && cfg.Mesh.Interpolation != nil && ParseInterpolationMode(*cfg.Mesh.Interpolation) == "" {
		return errors.Errorf("unknown interpolation mode %q", *cfg.Mesh.Interpolation)
	}
	return nil
}

// Apply copies every key set in the file onto opt
func (cfg *FileConfig) Apply(opt *LoaderOptions) {
	if cfg.MaxDepth != nil {
		opt.MaxDepth = *cfg.MaxDepth
	}
	if cfg.MoveToOrigin != nil {
		opt.MoveToOrigin = *cfg.MoveToOrigin
	}
	if cfg.TimeBudgetMs != nil {
		opt.TimeBudget = time.Duration(*cfg.TimeBudgetMs) * time.Millisecond
	}
	if cfg.MaxChunkSize != nil {
		opt.MaxChunkSize = *cfg.MaxChunkSize
	}
	if cfg.Recursive != nil {
		opt.Recursive = *cfg.Recursive
	}
	if m := cfg.Mesh; m != nil {
		if m.PointRadius != nil {
			opt.Mesh.PointRadius = *m.PointRadius
		}
		if m.RenderCircles != nil {
			opt.Mesh.RenderCircles = *m.RenderCircles
		}
		if m.ScreenSize != nil {
			opt.Mesh.ScreenSize = *m.ScreenSize
		}
		if m.Interpolation != nil {
			opt.Mesh.Interpolation = ParseInterpolationMode(*m.Interpolation)
		}
	}
	if e := cfg.Export; e != nil {
		if opt.ExportOptions == nil {
			opt.ExportOptions = &ExportOptions{}
		}
		if e.Output != nil {
			opt.ExportOptions.Output = *e.Output
		}
		if e.Compress != nil {
			opt.ExportOptions.Compress = *e.Compress
		}
	}
	if s := cfg.Serve; s != nil && s.Address != nil {
		if opt.ServeOptions == nil {
			opt.ServeOptions = &ServeOptions{}
		}
		opt.ServeOptions.Address = *s.Address
	}
}
