package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/samcharles93/beam/internal/logger"
)

// Config represents the beam configuration file (~/.config/beam/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	ModelDir  string   `yaml:"model_dir"`
	Vocab     string   `yaml:"vocab"`
	VocabSize *int64   `yaml:"vocab_size"`
	ModelName string   `yaml:"model_name"`
	Params    string   `yaml:"params"`
	Models    []string `yaml:"models"`

	// Output
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Server
	ServerAddress string         `yaml:"server_address"`
	ReadTimeout   *time.Duration `yaml:"read_timeout"`
	MaxConcurrent *int64         `yaml:"max_concurrent"`
	StoreCapacity *int64         `yaml:"store_capacity"`
}

// fileConfig is loaded once by setup and applied by each command.
var fileConfig Config

// LoadConfig reads the config file. A missing file yields a zero Config; a
// file that exists but does not parse is an error.
func LoadConfig(path string) (Config, error) {
	if path == "" {
		return Config{}, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// setup loads the config file and installs the logger on the context.
func setup(ctx context.Context, c *cli.Command) (context.Context, error) {
	cfg, err := LoadConfig(configPath())
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: config: %v", err), 1)
	}
	fileConfig = cfg
	applyLoggingConfig(c, cfg)

	log, err := logger.FromFlags(os.Stderr, logLevel, logFormat, debug)
	if err != nil {
		return ctx, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}
	return logger.WithContext(ctx, log), nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyEngineConfig applies config file defaults to the engine flags that
// were not set on the command line.
func applyEngineConfig(c *cli.Command, cfg Config) {
	if cfg.ModelDir != "" && !c.IsSet("model-dir") {
		modelDir = cfg.ModelDir
	}
	if cfg.Vocab != "" && !c.IsSet("vocab") {
		vocabPath = cfg.Vocab
	}
	if cfg.VocabSize != nil && !c.IsSet("vocab-size") {
		vocabSize = *cfg.VocabSize
	}
	if cfg.ModelName != "" && !c.IsSet("model-name") {
		modelName = cfg.ModelName
	}
	if cfg.Params != "" && !c.IsSet("params") {
		paramOverrides = cfg.Params
	}
	if len(cfg.Models) > 0 && !c.IsSet("model") {
		modelSpecs = cfg.Models
	}
}

// applyServeConfig applies config file defaults to serve command variables.
func applyServeConfig(c *cli.Command, cfg Config, addr *string, readTimeout *time.Duration, maxConcurrent, storeCapacity *int64) {
	applyEngineConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
	if cfg.ReadTimeout != nil && !c.IsSet("read-timeout") {
		*readTimeout = *cfg.ReadTimeout
	}
	if cfg.MaxConcurrent != nil && !c.IsSet("max-concurrent") {
		*maxConcurrent = *cfg.MaxConcurrent
	}
	if cfg.StoreCapacity != nil && !c.IsSet("store-capacity") {
		*storeCapacity = *cfg.StoreCapacity
	}
}
