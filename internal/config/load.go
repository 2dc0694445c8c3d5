package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/harrison/esmify/internal/probe"
	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// FileNames are the configuration files looked up in the project root, in
// order of precedence.
var FileNames = []string{
	".esmify",
	".esmify.json",
	".esmify.yaml",
	".esmify.yml",
	".esmify.toml",
}

// packageJSONKeys are the package.json paths that may hold the configuration
var packageJSONKeys = []string{"config.esmify", "esmify"}

// fileConfig mirrors Config with pointer fields so that keys present in the
// file can be told apart from zero values. The camelCase aliases keep
// package.json-embedded configurations readable.
type fileConfig struct {
	Input             []string       `yaml:"input" toml:"input"`
	Output            *string        `yaml:"output" toml:"output"`
	ForceDirectory    *bool          `yaml:"force_directory" toml:"force_directory"`
	ForceDirectoryAlt *bool          `yaml:"forceDirectory" toml:"forceDirectory"`
	Ignore            []string       `yaml:"ignore" toml:"ignore"`
	Modules           []ModuleConfig `yaml:"modules" toml:"modules"`
	Extension         *fileExtension `yaml:"extension" toml:"extension"`
	AddModuleEntry    *bool          `yaml:"add_module_entry" toml:"add_module_entry"`
	AddModuleEntryAlt *bool          `yaml:"addModuleEntry" toml:"addModuleEntry"`
	AddPackageJSON    *bool          `yaml:"add_package_json" toml:"add_package_json"`
	AddPackageJSONAlt *bool          `yaml:"addPackageJson" toml:"addPackageJson"`
	MaxConcurrency    *int           `yaml:"max_concurrency" toml:"max_concurrency"`
	MaxConcurrencyAlt *int           `yaml:"maxConcurrency" toml:"maxConcurrency"`
	LogLevel          *string        `yaml:"log_level" toml:"log_level"`
	LogDir            *string        `yaml:"log_dir" toml:"log_dir"`
}

type fileExtension struct {
	Use    *string  `yaml:"use" toml:"use"`
	Ignore []string `yaml:"ignore" toml:"ignore"`
}

// apply merges the values present in the file over cfg
func (f *fileConfig) apply(cfg *Config) {
	if f.Input != nil {
		cfg.Input = f.Input
	}
	if f.Output != nil {
		cfg.Output = *f.Output
	}
	if v := firstBool(f.ForceDirectory, f.ForceDirectoryAlt); v != nil {
		cfg.ForceDirectory = *v
	}
	if f.Ignore != nil {
		cfg.Ignore = f.Ignore
	}
	if f.Modules != nil {
		cfg.Modules = f.Modules
	}
	if f.Extension != nil {
		if f.Extension.Use != nil {
			cfg.Extension.Use = strings.TrimPrefix(*f.Extension.Use, ".")
		}
		if f.Extension.Ignore != nil {
			cfg.Extension.Ignore = f.Extension.Ignore
		}
	}
	if v := firstBool(f.AddModuleEntry, f.AddModuleEntryAlt); v != nil {
		cfg.AddModuleEntry = *v
	}
	if v := firstBool(f.AddPackageJSON, f.AddPackageJSONAlt); v != nil {
		cfg.AddPackageJSON = *v
	}
	if f.MaxConcurrency != nil {
		cfg.MaxConcurrency = *f.MaxConcurrency
	} else if f.MaxConcurrencyAlt != nil {
		cfg.MaxConcurrency = *f.MaxConcurrencyAlt
	}
	if f.LogLevel != nil {
		cfg.LogLevel = *f.LogLevel
	}
	if f.LogDir != nil {
		cfg.LogDir = *f.LogDir
	}
}

func firstBool(values ...*bool) *bool {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	cfg := DefaultConfig()
	cfg.Root = filepath.Dir(absPath)

	data, err := os.ReadFile(absPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := decode(absPath, data, cfg); err != nil {
		return nil, err
	}
	cfg.Source = absPath
	return cfg, nil
}

// decode parses data according to the file extension. JSON is decoded by
// the YAML decoder, which accepts it as a subset.
func decode(path string, data []byte, cfg *Config) error {
	var fc fileConfig
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	fc.apply(cfg)
	return nil
}

// LoadConfigFromDir discovers and loads the configuration of the project in
// dir. Config files are probed concurrently; the package.json keys are the
// fallback, the defaults the last resort.
func LoadConfigFromDir(ctx context.Context, dir string) (*Config, error) {
	file, err := probe.FindFirstAsync(ctx, probe.OS{}, FileNames, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to look for config files: %w", err)
	}
	if file != "" {
		return LoadConfig(file)
	}

	cfg := DefaultConfig()
	cfg.Root = dir

	pkgPath := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(pkgPath)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", pkgPath, err)
	}
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("failed to parse %s: invalid JSON", pkgPath)
	}

	for _, key := range packageJSONKeys {
		section := gjson.GetBytes(data, key)
		if !section.Exists() {
			continue
		}
		if !section.IsObject() {
			return nil, fmt.Errorf("failed to parse %s: %q must be an object", pkgPath, key)
		}
		if err := decode(pkgPath, []byte(section.Raw), cfg); err != nil {
			return nil, err
		}
		cfg.Source = pkgPath + "#" + key
		return cfg, nil
	}

	return cfg, nil
}
