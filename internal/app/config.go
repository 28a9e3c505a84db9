package app

import (
	"errors"
	"fmt"

	"github.com/vk/refinery/internal/codec"
)

// StdinPath selects standard input as the input document.
const StdinPath = "-"

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ManifestPath string // hcl file or directory
	View         string // view or refiner name
	Bring        []string

	InputPath    string // empty or StdinPath reads stdin
	InputFormat  codec.Format
	OutputFormat codec.Format
	RetainKeys   bool

	LogFormat   string
	LogLevel    string
	WorkerCount int
}

// NewConfig validates cfg and fills in formats that can be derived.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.ManifestPath == "" {
		return nil, errors.New("ManifestPath is a required configuration field and cannot be empty")
	}
	if cfg.View == "" {
		return nil, errors.New("View is a required configuration field and cannot be empty")
	}
	if cfg.WorkerCount < 0 {
		return nil, fmt.Errorf("WorkerCount must not be negative, got %d", cfg.WorkerCount)
	}

	if cfg.OutputFormat == "" {
		cfg.OutputFormat = codec.JSON
	}
	out, err := codec.ParseFormat(string(cfg.OutputFormat))
	if err != nil {
		return nil, fmt.Errorf("output format: %w", err)
	}
	cfg.OutputFormat = out

	switch {
	case cfg.InputFormat != "":
		in, err := codec.ParseFormat(string(cfg.InputFormat))
		if err != nil {
			return nil, fmt.Errorf("input format: %w", err)
		}
		cfg.InputFormat = in
	case cfg.InputPath == "" || cfg.InputPath == StdinPath:
		cfg.InputFormat = codec.JSON
	default:
		in, err := codec.FormatFromPath(cfg.InputPath)
		if err != nil {
			return nil, fmt.Errorf("input format: %w", err)
		}
		cfg.InputFormat = in
	}

	return &cfg, nil
}
