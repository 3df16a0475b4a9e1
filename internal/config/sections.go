package config

import (
	"fmt"
	"os"
	"strings"
)

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// LogEnv maps log fields to environment variable names.
type LogEnv struct {
	Level  string
	Format string
}

func (c *LogConfig) Finalize(env *LogEnv) error {
	c.loadDefaults()
	if env != nil {
		if v := os.Getenv(env.Level); v != "" {
			c.Level = v
		}
		if v := os.Getenv(env.Format); v != "" {
			c.Format = v
		}
	}
	c.Level = strings.ToLower(strings.TrimSpace(c.Level))
	c.Format = strings.ToLower(strings.TrimSpace(c.Format))
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("format must be text or json, got %q", c.Format)
	}
	return nil
}

func (c *LogConfig) Merge(overlay *LogConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

func (c *LogConfig) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

const (
	BackendFile  = "file"
	BackendAzure = "azure"
)

// StorageConfig selects where model artifacts are written.
type StorageConfig struct {
	Backend          string `toml:"backend"`
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
}

// StorageEnv maps storage fields to environment variable names.
type StorageEnv struct {
	Backend          string
	ContainerName    string
	ConnectionString string
}

func (c *StorageConfig) Finalize(env *StorageEnv) error {
	c.loadDefaults()
	if env != nil {
		if v := os.Getenv(env.Backend); v != "" {
			c.Backend = v
		}
		if v := os.Getenv(env.ContainerName); v != "" {
			c.ContainerName = v
		}
		if v := os.Getenv(env.ConnectionString); v != "" {
			c.ConnectionString = v
		}
	}
	switch c.Backend {
	case BackendFile:
		return nil
	case BackendAzure:
		if c.ConnectionString == "" {
			return fmt.Errorf("connection_string required for azure backend")
		}
		return nil
	}
	return fmt.Errorf("unknown backend %q", c.Backend)
}

func (c *StorageConfig) Merge(overlay *StorageConfig) {
	if overlay.Backend != "" {
		c.Backend = overlay.Backend
	}
	if overlay.ContainerName != "" {
		c.ContainerName = overlay.ContainerName
	}
	if overlay.ConnectionString != "" {
		c.ConnectionString = overlay.ConnectionString
	}
}

func (c *StorageConfig) loadDefaults() {
	if c.Backend == "" {
		c.Backend = BackendFile
	}
	if c.ContainerName == "" {
		c.ContainerName = "models"
	}
}

// BoostingConfig holds the boosted-tree hyperparameters used by the churn
// and lead trainers.
type BoostingConfig struct {
	NEstimators     int     `toml:"n_estimators"`
	LearningRate    float64 `toml:"learning_rate"`
	MaxDepth        int     `toml:"max_depth"`
	MinSamplesSplit int     `toml:"min_samples_split"`
	MinSamplesLeaf  int     `toml:"min_samples_leaf"`
}

func (c *BoostingConfig) Finalize() error {
	c.loadDefaults()
	if c.LearningRate <= 0 || c.LearningRate > 1 {
		return fmt.Errorf("learning_rate must be in (0,1], got %g", c.LearningRate)
	}
	if c.NEstimators < 1 {
		return fmt.Errorf("n_estimators must be positive, got %d", c.NEstimators)
	}
	return nil
}

func (c *BoostingConfig) Merge(overlay *BoostingConfig) {
	if overlay.NEstimators != 0 {
		c.NEstimators = overlay.NEstimators
	}
	if overlay.LearningRate != 0 {
		c.LearningRate = overlay.LearningRate
	}
	if overlay.MaxDepth != 0 {
		c.MaxDepth = overlay.MaxDepth
	}
	if overlay.MinSamplesSplit != 0 {
		c.MinSamplesSplit = overlay.MinSamplesSplit
	}
	if overlay.MinSamplesLeaf != 0 {
		c.MinSamplesLeaf = overlay.MinSamplesLeaf
	}
}

func (c *BoostingConfig) loadDefaults() {
	if c.NEstimators == 0 {
		c.NEstimators = 100
	}
	if c.LearningRate == 0 {
		c.LearningRate = 0.1
	}
	if c.MaxDepth == 0 {
		c.MaxDepth = 3
	}
	if c.MinSamplesSplit == 0 {
		c.MinSamplesSplit = 2
	}
	if c.MinSamplesLeaf == 0 {
		c.MinSamplesLeaf = 1
	}
}

// RecommenderConfig sizes the synthetic interaction table and the
// neighborhood used for recommendations.
type RecommenderConfig struct {
	NNeighbors   int `toml:"n_neighbors"`
	Customers    int `toml:"customers"`
	Treatments   int `toml:"treatments"`
	Interactions int `toml:"interactions"`
}

func (c *RecommenderConfig) Finalize() error {
	c.loadDefaults()
	if c.NNeighbors < 1 {
		return fmt.Errorf("n_neighbors must be positive, got %d", c.NNeighbors)
	}
	return nil
}

func (c *RecommenderConfig) Merge(overlay *RecommenderConfig) {
	if overlay.NNeighbors != 0 {
		c.NNeighbors = overlay.NNeighbors
	}
	if overlay.Customers != 0 {
		c.Customers = overlay.Customers
	}
	if overlay.Treatments != 0 {
		c.Treatments = overlay.Treatments
	}
	if overlay.Interactions != 0 {
		c.Interactions = overlay.Interactions
	}
}

func (c *RecommenderConfig) loadDefaults() {
	if c.NNeighbors == 0 {
		c.NNeighbors = 5
	}
	if c.Customers == 0 {
		c.Customers = 100
	}
	if c.Treatments == 0 {
		c.Treatments = 20
	}
	if c.Interactions == 0 {
		c.Interactions = 500
	}
}
