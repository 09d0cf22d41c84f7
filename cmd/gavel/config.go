package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"gavel/internal/sandbox/engine"
	"gavel/internal/sandbox/profile"
	"gavel/pkg/utils/logger"
)

const (
	defaultTimeLimitMs          int64 = 2000
	defaultMemoryLimitKB        int64 = 262144
	defaultCompileTimeLimitMs   int64 = 10000
	defaultCompileMemoryLimitKB int64 = 524288
	defaultMaxOutputBytes       int64 = 1024 * 1024
)

// JudgeConfig holds judging defaults.
type JudgeConfig struct {
	WorkRoot             string `yaml:"workRoot"`
	DefaultLanguage      string `yaml:"defaultLanguage"`
	DefaultTimeLimitMs   int64  `yaml:"defaultTimeLimitMs"`
	DefaultMemoryLimitKB int64  `yaml:"defaultMemoryLimitKB"`
	CompileTimeLimitMs   int64  `yaml:"compileTimeLimitMs"`
	CompileMemoryLimitKB int64  `yaml:"compileMemoryLimitKB"`
	EarlyExit            bool   `yaml:"earlyExit"`
	CompareMode          string `yaml:"compareMode"`
}

// AppConfig holds the full judge configuration.
type AppConfig struct {
	Logger    logger.Config          `yaml:"logger"`
	Judge     JudgeConfig            `yaml:"judge"`
	Sandbox   engine.Config          `yaml:"sandbox"`
	Languages []profile.LanguageSpec `yaml:"languages"`
}

// loadAppConfig reads the optional yaml config and fills defaults so the
// judge runs with no config file at all.
func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file failed: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file failed: %w", err)
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Judge.DefaultLanguage == "" {
		cfg.Judge.DefaultLanguage = "python"
	}
	if cfg.Judge.DefaultTimeLimitMs <= 0 {
		cfg.Judge.DefaultTimeLimitMs = defaultTimeLimitMs
	}
	if cfg.Judge.DefaultMemoryLimitKB <= 0 {
		cfg.Judge.DefaultMemoryLimitKB = defaultMemoryLimitKB
	}
	if cfg.Judge.CompileTimeLimitMs <= 0 {
		cfg.Judge.CompileTimeLimitMs = defaultCompileTimeLimitMs
	}
	if cfg.Judge.CompileMemoryLimitKB <= 0 {
		cfg.Judge.CompileMemoryLimitKB = defaultCompileMemoryLimitKB
	}
	if cfg.Sandbox.MaxOutputBytes <= 0 {
		cfg.Sandbox.MaxOutputBytes = defaultMaxOutputBytes
	}
	if cfg.Sandbox.EnableCgroup && cfg.Sandbox.CgroupRoot == "" {
		cfg.Sandbox.CgroupRoot = "/sys/fs/cgroup/gavel"
	}
}
