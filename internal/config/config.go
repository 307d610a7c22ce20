// Package config loads optional engine defaults from a YAML file. Any
// value present is applied as a default; cobra command flags always
// take precedence when explicitly set.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/drgolem/ringplayer/internal/engine"
)

// EngineDefaults mirrors engine.Config's tunables for YAML loading.
// Durations are written in the file as Go duration strings ("1s").
type EngineDefaults struct {
	FramesPerBlock   int    `yaml:"frames_per_block"`
	MaxBlocks        int    `yaml:"max_blocks"`
	WakeTimeout      string `yaml:"wake_timeout"`
	DestroyTimeout   string `yaml:"destroy_timeout"`
	ProducerPriority int    `yaml:"producer_priority"`
	DeviceIndex      int    `yaml:"device_index"`
	Latency          string `yaml:"latency"`
}

// File is the top-level shape of the defaults YAML document.
type File struct {
	Engine EngineDefaults `yaml:"engine"`
}

// Load reads and parses a defaults file at path. A missing file is not
// an error — callers should fall back to engine.DefaultConfig().
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return &f, nil
}

// Apply overlays non-zero fields from f onto base, returning the
// merged engine.Config. Zero-valued YAML fields leave base untouched,
// so a partial defaults file only overrides what it names.
func Apply(base engine.Config, f *File) engine.Config {
	if f == nil {
		return base
	}

	d := f.Engine
	cfg := base

	if d.FramesPerBlock > 0 {
		cfg.FramesPerBlock = d.FramesPerBlock
	}
	if d.MaxBlocks > 0 {
		cfg.MaxBlocks = d.MaxBlocks
	}
	if d.WakeTimeout != "" {
		if v, err := time.ParseDuration(d.WakeTimeout); err == nil {
			cfg.WakeTimeout = v
		}
	}
	if d.DestroyTimeout != "" {
		if v, err := time.ParseDuration(d.DestroyTimeout); err == nil {
			cfg.DestroyTimeout = v
		}
	}
	if d.ProducerPriority != 0 {
		cfg.ProducerPriority = d.ProducerPriority
	}
	if d.DeviceIndex != 0 {
		cfg.DeviceIndex = d.DeviceIndex
	}
	if d.Latency != "" {
		if v, err := time.ParseDuration(d.Latency); err == nil {
			cfg.Latency = v
		}
	}

	return cfg
}
