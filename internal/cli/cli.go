// Package cli holds the bootstrapping shared by the training programs:
// .env loading, config, logger, artifact store and positional arguments.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Nutonspeed/BN-Aura/internal/artifact"
	"github.com/Nutonspeed/BN-Aura/internal/config"
	"github.com/Nutonspeed/BN-Aura/internal/logger"
)

// ErrUsage marks argument errors that should print usage and exit 2.
var ErrUsage = errors.New("usage")

// Flags are the options every program accepts.
type Flags struct {
	ConfigPath string
	DataPath   string
}

// Register adds the common flags to fs.
func (f *Flags) Register(fs *flag.FlagSet) {
	fs.StringVar(&f.ConfigPath, "config", "", "Path to TOML config (default config.toml if present)")
	fs.StringVar(&f.DataPath, "data", "", "CSV of real records to train on instead of synthetic data")
}

// Env is the bootstrapped runtime of one invocation.
type Env struct {
	Clinic    string
	OutputDir string
	Config    *config.Config
	Log       *logrus.Logger
	Store     artifact.Store
}

// Args extracts <clinic-id> [output-dir] from the positional arguments.
func Args(args []string) (clinic, outputDir string, err error) {
	switch len(args) {
	case 1:
		clinic = args[0]
	case 2:
		clinic, outputDir = args[0], args[1]
	default:
		return "", "", fmt.Errorf("%w: expected <clinic-id> [output-dir], got %d arguments", ErrUsage, len(args))
	}
	if clinic == "" {
		return "", "", fmt.Errorf("%w: clinic id must not be empty", ErrUsage)
	}
	return clinic, outputDir, nil
}

// Setup loads .env and config, builds the logger and the artifact store.
// An output-dir argument overrides the configured one.
func Setup(f Flags, args []string) (*Env, error) {
	clinic, outputDir, err := Args(args)
	if err != nil {
		return nil, err
	}

	// a missing .env is normal outside local development
	_ = godotenv.Load()

	cfg, err := config.Load(f.ConfigPath)
	if err != nil {
		return nil, err
	}
	if outputDir != "" {
		cfg.OutputDir = outputDir
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	store, err := artifact.New(&cfg.Storage, cfg.OutputDir, log)
	if err != nil {
		return nil, err
	}
	log.WithFields(logrus.Fields{
		"clinic":     clinic,
		"output_dir": cfg.OutputDir,
		"backend":    cfg.Storage.Backend,
		"env":        cfg.Env(),
	}).Debug("configuration loaded")

	return &Env{Clinic: clinic, OutputDir: cfg.OutputDir, Config: cfg, Log: log, Store: store}, nil
}

// Usage returns a flag.Usage function for a program.
func Usage(fs *flag.FlagSet, w io.Writer, program string) func() {
	return func() {
		fmt.Fprintf(w, "Usage: %s [flags] <clinic-id> [output-dir]\n\nFlags:\n", program)
		fs.SetOutput(w)
		fs.PrintDefaults()
	}
}
