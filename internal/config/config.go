// Package config loads and validates esmify configuration.
//
// Configuration is looked up in the project root, first hit wins:
// .esmify, .esmify.json, .esmify.yaml, .esmify.yml, .esmify.toml, then the
// "config.esmify" or "esmify" key of package.json. Without any of them the
// defaults apply. CLI flags override file values.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/harrison/esmify/internal/redirect"
)

// ErrInvalidPattern is returned by Validate for a regular expression that
// does not compile.
var ErrInvalidPattern = errors.New("invalid pattern")

// Extension values for ExtensionConfig.Use
const (
	ExtensionJS  = "js"
	ExtensionMJS = "mjs"
)

// ModuleConfig is a redirect rule for a package with a separate ESM build
type ModuleConfig struct {
	// Name is the prefix of the specifiers the rule applies to
	Name string `yaml:"name" toml:"name"`

	// Find optionally replaces the default "^name" match with a custom regexp
	Find string `yaml:"find,omitempty" toml:"find,omitempty"`

	// Path replaces the matched portion of the specifier
	Path string `yaml:"path" toml:"path"`
}

// ExtensionConfig controls file extensions
type ExtensionConfig struct {
	// Use is the extension of the copied files: "js" or "mjs"
	Use string `yaml:"use" toml:"use"`

	// Ignore lists regexps of specifiers excluded from extension completion
	Ignore []string `yaml:"ignore" toml:"ignore"`
}

// Config represents esmify configuration options
type Config struct {
	// Input lists the directories to transform
	Input []string `yaml:"input" toml:"input"`

	// Output is the directory the transformed files are written to.
	// It is removed and recreated on every run.
	Output string `yaml:"output" toml:"output"`

	// ForceDirectory copies a single input directory itself instead of its contents
	ForceDirectory bool `yaml:"force_directory" toml:"force_directory"`

	// Ignore lists regexps of paths that are not copied
	Ignore []string `yaml:"ignore" toml:"ignore"`

	// Modules are the redirect rules, in evaluation order
	Modules []ModuleConfig `yaml:"modules" toml:"modules"`

	// Extension controls file extensions
	Extension ExtensionConfig `yaml:"extension" toml:"extension"`

	// AddModuleEntry writes a "module" field into the project package.json
	AddModuleEntry bool `yaml:"add_module_entry" toml:"add_module_entry"`

	// AddPackageJSON writes {"type": "module"} into the output directory
	AddPackageJSON bool `yaml:"add_package_json" toml:"add_package_json"`

	// MaxConcurrency is the maximum number of files transformed at once (0 = GOMAXPROCS)
	MaxConcurrency int `yaml:"max_concurrency" toml:"max_concurrency"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level" toml:"log_level"`

	// LogDir is the directory where run logs are written ("" = no file log)
	LogDir string `yaml:"log_dir" toml:"log_dir"`

	// Root is the project root paths are resolved against
	Root string `yaml:"-" toml:"-"`

	// Source describes where the configuration was loaded from
	Source string `yaml:"-" toml:"-"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Input:          []string{"src"},
		Output:         "esm",
		ForceDirectory: false,
		Ignore:         []string{},
		Modules:        []ModuleConfig{},
		Extension: ExtensionConfig{
			Use:    ExtensionJS,
			Ignore: []string{},
		},
		AddModuleEntry: false,
		AddPackageJSON: true,
		MaxConcurrency: 0,
		LogLevel:       "info",
		LogDir:         "",
		Source:         "defaults",
	}
}

// Overrides holds CLI flag values. Nil fields leave the configuration as is.
type Overrides struct {
	Input          []string
	Output         *string
	ForceDirectory *bool
	UseMJS         *bool
	MaxConcurrency *int
	LogLevel       *string
	LogDir         *string
}

// MergeWithFlags merges CLI flags into the configuration
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(o Overrides) {
	if len(o.Input) > 0 {
		c.Input = o.Input
	}
	if o.Output != nil {
		c.Output = *o.Output
	}
	if o.ForceDirectory != nil {
		c.ForceDirectory = *o.ForceDirectory
	}
	if o.UseMJS != nil {
		if *o.UseMJS {
			c.Extension.Use = ExtensionMJS
		} else {
			c.Extension.Use = ExtensionJS
		}
	}
	if o.MaxConcurrency != nil {
		c.MaxConcurrency = *o.MaxConcurrency
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
}

// InputPaths returns the input directories as absolute paths
func (c *Config) InputPaths() []string {
	out := make([]string, 0, len(c.Input))
	for _, in := range c.Input {
		out = append(out, c.abs(in))
	}
	return out
}

// OutputPath returns the output directory as an absolute path
func (c *Config) OutputPath() string {
	return c.abs(c.Output)
}

// LogDirPath returns the log directory as an absolute path, or "" when file
// logging is disabled
func (c *Config) LogDirPath() string {
	if c.LogDir == "" {
		return ""
	}
	return c.abs(c.LogDir)
}

// ModulesDir is the dependency root bare specifiers resolve against
func (c *Config) ModulesDir() string {
	return filepath.Join(c.Root, "node_modules")
}

func (c *Config) abs(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Root, p)
}

// RedirectRules converts the module configuration into redirect rules
func (c *Config) RedirectRules() []redirect.Rule {
	rules := make([]redirect.Rule, 0, len(c.Modules))
	for _, m := range c.Modules {
		rules = append(rules, redirect.Rule{Name: m.Name, Find: m.Find, Path: m.Path})
	}
	return rules
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if len(c.Input) == 0 {
		return fmt.Errorf("input must list at least one directory")
	}
	if strings.TrimSpace(c.Output) == "" {
		return fmt.Errorf("output cannot be empty")
	}

	// The output directory is deleted on every run
	output := c.OutputPath()
	if c.Root != "" && (output == c.Root || isWithin(output, c.Root)) {
		return fmt.Errorf("output %q cannot contain the project root", c.Output)
	}
	for _, in := range c.InputPaths() {
		if in == output || isWithin(output, in) || isWithin(in, output) {
			return fmt.Errorf("output %q overlaps input %q", c.Output, in)
		}
	}

	switch c.Extension.Use {
	case ExtensionJS, ExtensionMJS:
	default:
		return fmt.Errorf("invalid extension.use %q, must be one of: js, mjs", c.Extension.Use)
	}

	if c.MaxConcurrency < 0 {
		return fmt.Errorf("max_concurrency must be >= 0, got %d", c.MaxConcurrency)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	for _, p := range c.Ignore {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: ignore %q: %v", ErrInvalidPattern, p, err)
		}
	}
	for _, p := range c.Extension.Ignore {
		if _, err := regexp.Compile(p); err != nil {
			return fmt.Errorf("%w: extension.ignore %q: %v", ErrInvalidPattern, p, err)
		}
	}
	if _, err := redirect.Compile(c.RedirectRules()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPattern, err)
	}

	return nil
}

// isWithin reports whether path is strictly inside dir
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
