// Package config loads the YAML-driven settings cmd/server needs to wire a
// BufferPoolManager to a concrete disk and log manager: a single Viper-backed
// struct read once at startup.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the root of the YAML configuration file passed to cmd/server.
type Config struct {
	AppName string `mapstructure:"app_name"`

	Storage struct {
		Workdir  string `mapstructure:"workdir"`
		PageSize int    `mapstructure:"page_size"`
	} `mapstructure:"storage"`

	BufferPool struct {
		PoolSize       int    `mapstructure:"pool_size"`
		ReplacerK      int    `mapstructure:"replacer_k"`
		BucketSize     int    `mapstructure:"bucket_size"`
		ReplacerPolicy string `mapstructure:"replacer_policy"`
	} `mapstructure:"buffer_pool"`

	Server struct {
		Debug bool `mapstructure:"debug"`
	} `mapstructure:"server"`
}

// Default returns the configuration cmd/server falls back to when no config
// file is given: a small pool, LRU-K with k=2, and a workdir under ./data.
func Default() *Config {
	cfg := &Config{AppName: "pagecache"}
	cfg.Storage.Workdir = "./data"
	cfg.Storage.PageSize = 8192
	cfg.BufferPool.PoolSize = 64
	cfg.BufferPool.ReplacerK = 2
	cfg.BufferPool.BucketSize = 4
	cfg.BufferPool.ReplacerPolicy = "lruk"
	return cfg
}

// Load reads a YAML file at path and unmarshals it into a Config, starting
// from Default() so a config file only needs to override what it cares
// about.
func Load(path string) (*Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}
