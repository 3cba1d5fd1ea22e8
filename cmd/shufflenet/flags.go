package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/born-ml/shufflenet/backend/cpu"
	"github.com/born-ml/shufflenet/shufflenet"
)

// modelFlags are shared by every command that builds a model. Explicitly
// set flags override the values of the -config file.
type modelFlags struct {
	config       string
	depth        string
	outputStride int
	classes      int
	small        bool
	backbone     bool
	inChannels   int
	workers      int
	verbose      bool
}

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

func (m *modelFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&m.config, "config", "", "YAML model configuration")
	fs.StringVar(&m.depth, "depth", "1.0", "Depth multiplier: 0.5, 1.0, 1.5 or 2.0")
	fs.IntVar(&m.outputStride, "os", 32, "Output stride (>= 4)")
	fs.IntVar(&m.classes, "classes", 1000, "Number of classes")
	fs.BoolVar(&m.small, "small", false, "Use the small backend (caps stage 4 at 2x the initial depth)")
	fs.BoolVar(&m.backbone, "backbone", false, "Build the backbone without the classification head")
	fs.IntVar(&m.inChannels, "in", 3, "Input channels")
	fs.IntVar(&m.workers, "workers", 0, "CPU worker goroutines (0 = all cores)")
	fs.BoolVar(&m.verbose, "v", false, "Verbose logging")
}

// resolve builds the configuration: defaults, then -config, then flags the
// user set explicitly.
func (m *modelFlags) resolve(fs *flag.FlagSet) (shufflenet.Config, error) {
	cfg := shufflenet.DefaultConfig()
	if m.config != "" {
		var err error
		if cfg, err = shufflenet.LoadConfig(m.config); err != nil {
			return cfg, err
		}
	}

	var err error
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "depth":
			var d shufflenet.DepthMultiplier
			if d, err = shufflenet.ParseDepthMultiplier(m.depth); err == nil {
				cfg.DepthMultiplier = d
			}
		case "os":
			cfg.OutputStride = m.outputStride
		case "classes":
			cfg.NumClasses = m.classes
		case "small":
			cfg.SmallBackend = m.small
		}
	})
	if err != nil {
		return cfg, err
	}

	if m.backbone {
		err = cfg.Validate()
	} else {
		err = cfg.ValidateClassifier()
	}
	return cfg, err
}

func (m *modelFlags) logger(stderr io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if m.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))
}

func (m *modelFlags) backend() *cpu.Backend {
	if m.workers > 0 {
		return cpu.NewWithWorkers(m.workers)
	}
	return cpu.New()
}

// model is what the commands need from either a classifier or a backbone.
type model interface {
	fmt.Stringer
	Summary(w io.Writer) error
	SaveWeights(path string) error
	LoadWeights(path string) error
}

// build constructs the classifier or, with -backbone, the backbone.
func (m *modelFlags) build(cfg shufflenet.Config, backend *cpu.Backend) (model, *shufflenet.Classifier[*cpu.Backend], *shufflenet.Backbone[*cpu.Backend], error) {
	if m.backbone {
		b, err := shufflenet.NewBackbone(m.inChannels, cfg, backend)
		if err != nil {
			return nil, nil, nil, err
		}
		return b, nil, b, nil
	}
	c, err := shufflenet.NewClassifier(m.inChannels, cfg, backend)
	if err != nil {
		return nil, nil, nil, err
	}
	return c, c, c.Backbone(), nil
}
