// Package config loads randimage settings from a YAML file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"github.com/mrsinham/randimage/internal/encode"
	"github.com/mrsinham/randimage/internal/pixel"
	"github.com/mrsinham/randimage/internal/random"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RANDIMAGE_"

// Config is the complete file layout.
type Config struct {
	Generate Generate `yaml:"generate" envPrefix:"GENERATE_"`
	Server   Server   `yaml:"server" envPrefix:"SERVER_"`
}

// Generate holds the defaults of the generate command.
type Generate struct {
	Width       int    `yaml:"width" env:"WIDTH"`
	Height      int    `yaml:"height" env:"HEIGHT"`
	Mode        string `yaml:"mode" env:"MODE"`
	Depth       int    `yaml:"depth" env:"DEPTH"`
	Format      string `yaml:"format,omitempty" env:"FORMAT"`
	Seed        string `yaml:"seed,omitempty" env:"SEED"`
	SeedPhrase  string `yaml:"seed_phrase,omitempty" env:"SEED_PHRASE"`
	Algorithm   string `yaml:"algorithm" env:"ALGORITHM"`
	OpaqueAlpha bool   `yaml:"opaque_alpha" env:"OPAQUE_ALPHA"`
	Compression string `yaml:"compression" env:"COMPRESSION"`
	Filter      string `yaml:"filter" env:"FILTER"`
	Label       string `yaml:"label,omitempty" env:"LABEL"`
	Output      string `yaml:"output" env:"OUTPUT"`
	Count       int    `yaml:"count" env:"COUNT"`
	Workers     int    `yaml:"workers" env:"WORKERS"`
	MaxSize     string `yaml:"max_size" env:"MAX_SIZE"`
}

// Server holds the HTTP server settings.
type Server struct {
	Host            string        `yaml:"host" env:"HOST"`
	Port            int           `yaml:"port" env:"PORT"`
	Token           string        `yaml:"token,omitempty" env:"TOKEN"`
	MaxWidth        int           `yaml:"max_width" env:"MAX_WIDTH"`
	MaxHeight       int           `yaml:"max_height" env:"MAX_HEIGHT"`
	DefaultWidth    int           `yaml:"default_width" env:"DEFAULT_WIDTH"`
	DefaultHeight   int           `yaml:"default_height" env:"DEFAULT_HEIGHT"`
	DefaultMode     string        `yaml:"default_mode" env:"DEFAULT_MODE"`
	DefaultFormat   string        `yaml:"default_format" env:"DEFAULT_FORMAT"`
	ThumbSize       int           `yaml:"thumb_size" env:"THUMB_SIZE"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Generate: Generate{
			Width:       256,
			Height:      256,
			Mode:        "rgb",
			Depth:       8,
			Algorithm:   string(random.PCG),
			Compression: string(encode.CompressionDefault),
			Filter:      string(encode.FilterAdaptive),
			Output:      "random.png",
			Count:       1,
			MaxSize:     "1GiB",
		},
		Server: Server{
			Host:            "127.0.0.1",
			Port:            8080,
			MaxWidth:        4096,
			MaxHeight:       4096,
			DefaultWidth:    512,
			DefaultHeight:   512,
			DefaultMode:     "rgb",
			DefaultFormat:   string(encode.PNG),
			ThumbSize:       200,
			ShutdownTimeout: 10 * time.Second,
		},
	}
}

// Load reads path over the defaults, then applies environment overrides.
// An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := ParseEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ParseEnv applies RANDIMAGE_* variables to cfg. Unset variables leave the
// current values alone.
func ParseEnv(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Save writes cfg as YAML, creating parent directories.
func Save(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// InitFile writes the defaults to path unless a file is already there. It
// reports whether a file was created.
func InitFile(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("stat config: %w", err)
	}
	if err := Save(Default(), path); err != nil {
		return false, err
	}
	return true, nil
}

// Validate checks every enumerated value and range.
func (c *Config) Validate() error {
	g := c.Generate
	if _, err := pixel.ParseColorMode(g.Mode); err != nil {
		return fmt.Errorf("generate.mode: %w", err)
	}
	if _, err := pixel.ParseDepth(fmt.Sprint(g.Depth)); err != nil {
		return fmt.Errorf("generate.depth: %w", err)
	}
	if g.Format != "" {
		if _, err := encode.ParseFormat(g.Format); err != nil {
			return fmt.Errorf("generate.format: %w", err)
		}
	}
	if g.Seed != "" {
		if _, err := random.ParseSeed(g.Seed); err != nil {
			return fmt.Errorf("generate.seed: %w", err)
		}
	}
	if _, err := random.ParseAlgorithm(g.Algorithm); err != nil {
		return fmt.Errorf("generate.algorithm: %w", err)
	}
	if _, err := encode.ParseCompression(g.Compression); err != nil {
		return fmt.Errorf("generate.compression: %w", err)
	}
	if _, err := encode.ParseFilter(g.Filter); err != nil {
		return fmt.Errorf("generate.filter: %w", err)
	}
	if g.Count < 0 || g.Workers < 0 {
		return fmt.Errorf("generate.count and generate.workers must not be negative")
	}
	if _, err := g.MaxBytes(); err != nil {
		return fmt.Errorf("generate.max_size: %w", err)
	}

	s := c.Server
	if s.Port < 0 || s.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", s.Port)
	}
	if s.MaxWidth <= 0 || s.MaxHeight <= 0 {
		return fmt.Errorf("server.max_width and server.max_height must be positive")
	}
	if s.DefaultWidth <= 0 || s.DefaultWidth > s.MaxWidth || s.DefaultHeight <= 0 || s.DefaultHeight > s.MaxHeight {
		return fmt.Errorf("server default size %dx%d outside 1..%dx%d", s.DefaultWidth, s.DefaultHeight, s.MaxWidth, s.MaxHeight)
	}
	if _, err := pixel.ParseColorMode(s.DefaultMode); err != nil {
		return fmt.Errorf("server.default_mode: %w", err)
	}
	if _, err := encode.ParseFormat(s.DefaultFormat); err != nil {
		return fmt.Errorf("server.default_format: %w", err)
	}
	if s.ThumbSize <= 0 {
		return fmt.Errorf("server.thumb_size must be positive")
	}
	return nil
}

// MaxBytes parses MaxSize ("512MB", "1GiB"). Empty means the built-in budget.
func (g Generate) MaxBytes() (int64, error) {
	return ParseSize(g.MaxSize)
}

// ParseSize parses a human-readable byte size. Empty means
// pixel.DefaultMaxBytes.
func ParseSize(s string) (int64, error) {
	if s == "" {
		return pixel.DefaultMaxBytes, nil
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 || n > 1<<62 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}

// Addr returns host:port.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
