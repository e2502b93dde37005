package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/opsloop/internal/domain"
	"github.com/doeshing/opsloop/internal/pkg/filesystem"
	"github.com/doeshing/opsloop/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "OPSLOOP_CONFIG"

// FileLoader loads YAML configuration from ~/.opsloop/config.yaml
// (overridable via OPSLOOP_CONFIG or an explicit path).
type FileLoader struct {
	overridePath string
	defaults     []byte
}

// NewFileLoader builds a new loader. defaults is the YAML written to disk
// when no config file exists yet.
func NewFileLoader(path string, defaults []byte) *FileLoader {
	return &FileLoader{overridePath: path, defaults: defaults}
}

// Load implements ports.ConfigProvider.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := l.writeDefault(path); err != nil {
			return domain.Config{}, err
		}
		data = l.defaults
	}

	cfg, err := parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return hydrateDefaults(cfg), nil
}

// Defaults parses the embedded default configuration.
func (l *FileLoader) Defaults() (domain.Config, error) {
	cfg, err := parse(l.defaults)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse defaults: %w", err)
	}
	return hydrateDefaults(cfg), nil
}

// Path resolves the config file location.
func (l *FileLoader) Path() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath)
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom)
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

func (l *FileLoader) writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, l.defaults, domain.SecureFilePermissions); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

func parse(data []byte) (domain.Config, error) {
	var cfg domain.Config
	if len(data) == 0 {
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return domain.Config{}, err
	}
	return cfg, nil
}

func hydrateDefaults(cfg domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = "1"
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Execution.Shell == "" {
		cfg.Execution.Shell = domain.ShellAuto
	}
	if cfg.Security.RulesFile == "" {
		cfg.Security.RulesFile = filepath.Join(filesystem.AppDir(), "guardrail.yaml")
	}
	return cfg
}

// LoadDotEnv reads KEY=value pairs from the given files into the process
// environment. Variables already set win and missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", path, err)
		}
	}
	return nil
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
