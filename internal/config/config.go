// Package config loads the quire YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store kinds.
const (
	StoreNone   = "none"
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreS3     = "s3"
)

// Config is the root of quire.yaml.
type Config struct {
	LogLevel string       `yaml:"log_level"`
	BaseDir  string       `yaml:"base_dir"`
	Page     PageConfig   `yaml:"page"`
	Images   ImageConfig  `yaml:"images"`
	Server   ServerConfig `yaml:"server"`
	Store    StoreConfig  `yaml:"store"`
}

// PageConfig supplies the page size and orientation used when a page declares none.
type PageConfig struct {
	Size        string `yaml:"size"`
	Orientation string `yaml:"orientation"`
}

// ImageConfig tunes the decoded image cache.
type ImageConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// ServerConfig configures `quire serve`.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StoreConfig selects where served renders are stored.
type StoreConfig struct {
	Kind   string        `yaml:"kind"`
	Prefix string        `yaml:"prefix"`
	TTL    time.Duration `yaml:"ttl"`
	Redis  RedisConfig   `yaml:"redis"`
	S3     S3Config      `yaml:"s3"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel: "info",
		Page:     PageConfig{Size: "A4", Orientation: "portrait"},
		Images:   ImageConfig{CacheSize: 64},
		Server:   ServerConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		Store:    StoreConfig{Kind: StoreNone, Prefix: "renders/"},
	}
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks the values Load cannot default.
func (c Config) Validate() error {
	switch c.Store.Kind {
	case "", StoreNone, StoreMemory:
	case StoreRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New("config: store.redis.addr is required")
		}
	case StoreS3:
		if c.Store.S3.Bucket == "" {
			return errors.New("config: store.s3.bucket is required")
		}
	default:
		return fmt.Errorf("config: unknown store kind %q", c.Store.Kind)
	}
	switch strings.ToLower(c.Page.Orientation) {
	case "", "portrait", "landscape":
	default:
		return fmt.Errorf("config: unknown orientation %q", c.Page.Orientation)
	}
	if c.Images.CacheSize < 0 {
		return errors.New("config: images.cache_size must not be negative")
	}
	return nil
}
