// Package config loads pixscale settings from the environment, an optional
// .env file, and finally command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"pixscale/models"
	"pixscale/scale"
)

const envPrefix = "PIXSCALE_"

var (
	ErrMissingInput  = errors.New("please specify input folder")
	ErrMissingOutput = errors.New("please specify output folder")
)

// Config holds everything a run needs
type Config struct {
	InputDir   string
	OutputDir  string
	FileType   string
	BaseSize   int
	SizePrefix string
	Scales     []models.ScaleEntry
	Workers    int // 0 means one per CPU

	// Commands maps a file type to a command template override
	Commands map[string]string

	DataDir  string // ledger location; empty disables the ledger
	LogFile  string
	LogLevel string
	Publish  string // publish target URL; empty disables publishing

	DryRun   bool
	PlanFile string
	Strict   bool
}

// Default returns the built-in settings
func Default() Config {
	return Config{
		FileType:   "svg",
		BaseSize:   48,
		SizePrefix: "drawable-",
		Scales:     scale.Default(),
		Commands:   map[string]string{},
		LogLevel:   "info",
	}
}

// Load reads .env (when present) and PIXSCALE_* variables on top of the defaults
func Load() (Config, error) {
	loadEnvFile()

	cfg := Default()
	cfg.InputDir = getEnv("INPUT_DIR", cfg.InputDir)
	cfg.OutputDir = getEnv("OUTPUT_DIR", cfg.OutputDir)
	cfg.FileType = getEnv("FILE_TYPE", cfg.FileType)
	cfg.SizePrefix = getEnv("SIZE_PREFIX", cfg.SizePrefix)
	cfg.DataDir = getEnv("DATA_DIR", "")
	cfg.LogFile = getEnv("LOG_FILE", "")
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.Publish = getEnv("PUBLISH", "")

	var err error
	if cfg.BaseSize, err = getEnvAsInt("BASE_SIZE", cfg.BaseSize); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = getEnvAsInt("WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	if list := getEnv("SCALES", ""); list != "" {
		if cfg.Scales, err = scale.Parse(list); err != nil {
			return Config{}, fmt.Errorf("%sSCALES: %w", envPrefix, err)
		}
	}
	cfg.Commands = commandOverrides(os.Environ())

	return cfg, nil
}

// loadEnvFile loads .env from the working directory; a missing file is fine
func loadEnvFile() {
	path := os.Getenv(envPrefix + "ENV_FILE")
	if path == "" {
		path = ".env"
	}
	_ = godotenv.Load(path)
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s must be an integer, got %q", envPrefix, key, v)
	}
	return n, nil
}

// commandOverrides collects PIXSCALE_COMMAND_<TYPE>=<template> entries
func commandOverrides(environ []string) map[string]string {
	out := make(map[string]string)
	prefix := envPrefix + "COMMAND_"
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, prefix) || strings.TrimSpace(value) == "" {
			continue
		}
		fileType := strings.ToLower(strings.TrimPrefix(key, prefix))
		if fileType != "" {
			out[fileType] = value
		}
	}
	return out
}

// Validate checks the settings needed before any job is built
func (c *Config) Validate() error {
	if c.InputDir == "" {
		return ErrMissingInput
	}
	if c.OutputDir == "" {
		return ErrMissingOutput
	}
	if c.FileType == "" {
		return errors.New("file type must not be empty")
	}
	if c.BaseSize <= 0 {
		return fmt.Errorf("base size must be positive, got %d", c.BaseSize)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if len(c.Scales) == 0 {
		return errors.New("scale table is empty")
	}
	return nil
}

// ResolvePaths makes the input and output folders absolute
func (c *Config) ResolvePaths() error {
	in, err := filepath.Abs(c.InputDir)
	if err != nil {
		return fmt.Errorf("resolve input folder: %w", err)
	}
	out, err := filepath.Abs(c.OutputDir)
	if err != nil {
		return fmt.Errorf("resolve output folder: %w", err)
	}
	c.InputDir, c.OutputDir = in, out
	return nil
}

// LedgerPath is where the run ledger lives when DataDir is set
func (c *Config) LedgerPath() string {
	if c.DataDir == "" {
		return ""
	}
	return filepath.Join(c.DataDir, "ledger.db")
}
