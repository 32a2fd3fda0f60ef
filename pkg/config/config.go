// Package config loads viewer settings from YAML
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Config holds every tunable of the viewer
type Config struct {
	MinScale          float64 `yaml:"min_scale"`
	MaxScale          float64 `yaml:"max_scale"`
	DefaultScale      float64 `yaml:"default_scale"`
	ResponsivePadding float64 `yaml:"responsive_padding"`
	MinFontSize       float64 `yaml:"min_font_size"`
	SameLineThreshold float64 `yaml:"same_line_threshold"`
	ParagraphGapRatio float64 `yaml:"paragraph_gap_ratio"`
	SelectionScope    string  `yaml:"selection_scope"`
	RenderStrategy    string  `yaml:"render_strategy"`
	LogLevel          string  `yaml:"log_level"`
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		MinScale:          0.3,
		MaxScale:          3.0,
		DefaultScale:      1.0,
		ResponsivePadding: 32,
		MinFontSize:       8,
		SameLineThreshold: 10,
		ParagraphGapRatio: 0.8,
		SelectionScope:    "document",
		RenderStrategy:    "hybrid",
		LogLevel:          "info",
	}
}

// Load reads path and overlays its values onto Default
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := Parse(data, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse overlays YAML data onto cfg and validates the result
func Parse(data []byte, cfg *Config) error {
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg.Validate()
}

// Validate checks that the settings are usable
func (c Config) Validate() error {
	if c.MinScale <= 0 {
		return fmt.Errorf("min_scale must be positive, got %v", c.MinScale)
	}
	if c.MaxScale < c.MinScale {
		return fmt.Errorf("max_scale %v is below min_scale %v", c.MaxScale, c.MinScale)
	}
	if c.DefaultScale < c.MinScale || c.DefaultScale > c.MaxScale {
		return fmt.Errorf("default_scale %v is outside [%v, %v]", c.DefaultScale, c.MinScale, c.MaxScale)
	}
	if c.ResponsivePadding < 0 {
		return fmt.Errorf("responsive_padding must not be negative, got %v", c.ResponsivePadding)
	}
	if c.MinFontSize <= 0 {
		return fmt.Errorf("min_font_size must be positive, got %v", c.MinFontSize)
	}
	if c.SameLineThreshold < 0 {
		return fmt.Errorf("same_line_threshold must not be negative, got %v", c.SameLineThreshold)
	}
	if c.ParagraphGapRatio < 0 {
		return fmt.Errorf("paragraph_gap_ratio must not be negative, got %v", c.ParagraphGapRatio)
	}
	switch c.SelectionScope {
	case "", "document", "page":
	default:
		return fmt.Errorf("unknown selection_scope %q", c.SelectionScope)
	}
	switch c.RenderStrategy {
	case "", "hybrid", "canvas", "text":
	default:
		return fmt.Errorf("unknown render_strategy %q", c.RenderStrategy)
	}
	return nil
}

// ClampScale limits scale to [MinScale, MaxScale]
func (c Config) ClampScale(scale float64) float64 {
	if scale < c.MinScale {
		return c.MinScale
	}
	if scale > c.MaxScale {
		return c.MaxScale
	}
	return scale
}
