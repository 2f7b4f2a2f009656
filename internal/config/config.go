// Package config loads the YAML analysis configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Dataset describes the input table.
type Dataset struct {
	Path        string   `yaml:"path"`
	Response    string   `yaml:"response"`
	Drop        []string `yaml:"drop"`
	Categorical []string `yaml:"categorical"`
	TestFrac    float64  `yaml:"test_fraction"`
}

// Selection controls the bootstrap-lasso stage.
type Selection struct {
	Replicates     int     `yaml:"replicates"`
	Threshold      float64 `yaml:"threshold"`
	Folds          int     `yaml:"cv_folds"`
	LambdaGrid     int     `yaml:"lambda_grid"`
	LambdaMinRatio float64 `yaml:"lambda_min_ratio"`
	Workers        int     `yaml:"workers"`
}

// Modeling controls the OLS refinement stage.
type Modeling struct {
	Alpha        float64 `yaml:"alpha"`
	BoxCoxLow    float64 `yaml:"boxcox_low"`
	BoxCoxHigh   float64 `yaml:"boxcox_high"`
	BoxCoxStep   float64 `yaml:"boxcox_step"`
	Interactions bool    `yaml:"interactions"`
}

// Config is the full analysis configuration.
type Config struct {
	Dataset   Dataset   `yaml:"dataset"`
	Selection Selection `yaml:"selection"`
	Modeling  Modeling  `yaml:"modeling"`
	Seed      uint64    `yaml:"seed"`
}

// Default returns the configuration used when no file is given. The
// dataset path and response still have to be set by flag or file.
func Default() Config {
	return Config{
		Dataset: Dataset{
			Response: "SalePrice",
			TestFrac: 0.2,
		},
		Selection: Selection{
			Replicates:     500,
			Threshold:      0.8,
			Folds:          10,
			LambdaGrid:     100,
			LambdaMinRatio: 1e-3,
		},
		Modeling: Modeling{
			Alpha:        0.05,
			BoxCoxLow:    -2,
			BoxCoxHigh:   2,
			BoxCoxStep:   0.01,
			Interactions: true,
		},
		Seed: 1,
	}
}

// Load reads a YAML config, layering it over the defaults. Unknown keys
// are an error so typos don't silently fall back to defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks ranges after flags have been applied.
func (c *Config) Validate() error {
	if c.Dataset.Path == "" {
		return fmt.Errorf("config: dataset path is required")
	}
	if c.Dataset.Response == "" {
		return fmt.Errorf("config: response column is required")
	}
	if c.Dataset.TestFrac <= 0 || c.Dataset.TestFrac >= 1 {
		return fmt.Errorf("config: test fraction %g out of (0,1)", c.Dataset.TestFrac)
	}
	if c.Selection.Replicates < 1 {
		return fmt.Errorf("config: replicates %d < 1", c.Selection.Replicates)
	}
	if c.Selection.Threshold <= 0 || c.Selection.Threshold > 1 {
		return fmt.Errorf("config: threshold %g out of (0,1]", c.Selection.Threshold)
	}
	if c.Selection.Folds < 2 {
		return fmt.Errorf("config: cv_folds %d < 2", c.Selection.Folds)
	}
	if c.Modeling.Alpha <= 0 || c.Modeling.Alpha >= 1 {
		return fmt.Errorf("config: alpha %g out of (0,1)", c.Modeling.Alpha)
	}
	if c.Modeling.BoxCoxLow >= c.Modeling.BoxCoxHigh {
		return fmt.Errorf("config: box-cox grid [%g, %g] is empty",
			c.Modeling.BoxCoxLow, c.Modeling.BoxCoxHigh)
	}
	if c.Modeling.BoxCoxStep <= 0 {
		return fmt.Errorf("config: box-cox step %g must be positive", c.Modeling.BoxCoxStep)
	}
	return nil
}
