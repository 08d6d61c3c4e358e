// Package config loads and validates the application configuration from a
// YAML file with environment-variable overrides (prefix RNASEQ).
package config

import (
	"fmt"
	"os"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config is the complete application configuration.
type Config struct {
	Logging  LoggingConfig  `yaml:"logging" envconfig:"LOGGING"`
	Paths    PathsConfig    `yaml:"paths" envconfig:"PATHS"`
	Analysis AnalysisConfig `yaml:"analysis" envconfig:"ANALYSIS"`
}

// LoggingConfig controls the slog handler built by internal/infrastructure.
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"stdout"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/analyze.log"`
}

// PathsConfig names the input artifacts and the output directory.
type PathsConfig struct {
	CountsFile     string `yaml:"counts_file" envconfig:"COUNTS_FILE"`
	MetadataFile   string `yaml:"metadata_file" envconfig:"METADATA_FILE"`
	AnnotationFile string `yaml:"annotation_file" envconfig:"ANNOTATION_FILE"`
	NetworkFile    string `yaml:"network_file" envconfig:"NETWORK_FILE"`
	OutputDir      string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"results"`
}

// Load reads the YAML file at path (if non-empty) and then applies
// environment overrides. Environment values win over file values; envconfig
// defaults fill whatever remains unset. Callers validate the analysis
// request after applying any command-line overrides.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := envconfig.Process("RNASEQ", &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	return &cfg, nil
}
