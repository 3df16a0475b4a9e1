package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvBNAuraEnv       = "BNAURA_ENV"
	EnvBNAuraOutputDir = "BNAURA_OUTPUT_DIR"
	EnvBNAuraSeed      = "BNAURA_SEED"
)

var logEnv = &LogEnv{
	Level:  "BNAURA_LOG_LEVEL",
	Format: "BNAURA_LOG_FORMAT",
}

var storageEnv = &StorageEnv{
	Backend:          "BNAURA_STORAGE_BACKEND",
	ContainerName:    "BNAURA_STORAGE_CONTAINER",
	ConnectionString: "BNAURA_STORAGE_CONNECTION_STRING",
}

// Config is the root configuration shared by the training programs.
type Config struct {
	OutputDir   string            `toml:"output_dir"`
	Seed        int64             `toml:"seed"` // 0 means unset and becomes 42
	Samples     int               `toml:"samples"`
	TestSize    float64           `toml:"test_size"`
	Log         LogConfig         `toml:"log"`
	Storage     StorageConfig     `toml:"storage"`
	Boosting    BoostingConfig    `toml:"boosting"`
	Recommender RecommenderConfig `toml:"recommender"`
}

// Env returns the BNAURA_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvBNAuraEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads path (or config.toml when path is empty and the file exists),
// applies any environment overlay, and finalizes all values. Without a
// config file, defaults and environment variables provide everything.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		if _, err := os.Stat(BaseConfigFile); err == nil {
			path = BaseConfigFile
		}
	}
	if path != "" {
		loaded, err := load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if overlay := overlayPath(); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Default returns a finalized configuration built only from defaults.
func Default() *Config {
	cfg := &Config{}
	cfg.loadDefaults()
	cfg.Log.loadDefaults()
	cfg.Storage.loadDefaults()
	cfg.Boosting.loadDefaults()
	cfg.Recommender.loadDefaults()
	return cfg
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.OutputDir != "" {
		c.OutputDir = overlay.OutputDir
	}
	if overlay.Seed != 0 {
		c.Seed = overlay.Seed
	}
	if overlay.Samples != 0 {
		c.Samples = overlay.Samples
	}
	if overlay.TestSize != 0 {
		c.TestSize = overlay.TestSize
	}
	c.Log.Merge(&overlay.Log)
	c.Storage.Merge(&overlay.Storage)
	c.Boosting.Merge(&overlay.Boosting)
	c.Recommender.Merge(&overlay.Recommender)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Log.Finalize(logEnv); err != nil {
		return fmt.Errorf("log: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Boosting.Finalize(); err != nil {
		return fmt.Errorf("boosting: %w", err)
	}
	if err := c.Recommender.Finalize(); err != nil {
		return fmt.Errorf("recommender: %w", err)
	}
	return nil
}

func (c *Config) loadDefaults() {
	if c.OutputDir == "" {
		c.OutputDir = "models"
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	if c.Samples == 0 {
		c.Samples = 1000
	}
	if c.TestSize == 0 {
		c.TestSize = 0.2
	}
}

func (c *Config) loadEnv() error {
	if v := os.Getenv(EnvBNAuraOutputDir); v != "" {
		c.OutputDir = v
	}
	if v := os.Getenv(EnvBNAuraSeed); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvBNAuraSeed, err)
		}
		c.Seed = seed
	}
	return nil
}

func (c *Config) validate() error {
	if c.Samples < 10 {
		return fmt.Errorf("samples must be at least 10, got %d", c.Samples)
	}
	if c.TestSize <= 0 || c.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0,1), got %g", c.TestSize)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvBNAuraEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
