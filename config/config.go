package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type MediaConfig struct {
	// per request, covers connect and body read
	Timeout       time.Duration `yaml:"timeout"`
	MaxConcurrent int64         `yaml:"max_concurrent"`
	UserAgent     string        `yaml:"user_agent"`
	// when set, relative local paths are resolved against this directory
	Root string `yaml:"root"`
}

type Config struct {
	Addr        string      `yaml:"addr"`
	Scene       string      `yaml:"scene"`
	TexturePath string      `yaml:"texture_path"`
	CrossOrigin string      `yaml:"cross_origin"`
	Encoding    string      `yaml:"encoding"`
	LogMode     string      `yaml:"log"`
	Watch       bool        `yaml:"watch"`
	Media       MediaConfig `yaml:"media"`
}

func Default() *Config {
	return &Config{
		Addr:        ":8000",
		CrossOrigin: "anonymous",
		LogMode:     "dev",
		Media: MediaConfig{
			Timeout:       30 * time.Second,
			MaxConcurrent: 8,
			UserAgent:     "scene_browser",
		},
	}
}

// Load reads a yaml config on top of Default. Missing keys keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Cannot read config %q", path)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "Cannot parse config %q", path)
	}
	if cfg.Media.MaxConcurrent <= 0 {
		cfg.Media.MaxConcurrent = 1
	}
	return cfg, nil
}
