package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2/styles"

	"github.com/alnah/markforge/internal/fileutil"
	"github.com/alnah/markforge/internal/mathtex"
	"github.com/alnah/markforge/internal/sanitize"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// EnvConfig names the environment variable holding an explicit config path.
const EnvConfig = "MARKFORGE_CONFIG"

// DefaultName is the config name searched when none is given.
const DefaultName = "markforge"

// Defaults applied by DefaultConfig.
const (
	DefaultTimeout     = 30 * time.Second
	DefaultPreviewAddr = "127.0.0.1:8080"
	DefaultLang        = "en"
)

// Field limits.
const (
	MaxNameLength  = 64   // style and engine names
	MaxPathLength  = 4096 // filesystem paths
	MaxLangLength  = 35   // BCP 47 tag
	MaxAddrLength  = 255  // host:port
	MaxWorkers     = 8    // one headless browser each
	MaxCacheSize   = 1 << 16
	MaxTimeout     = 5 * time.Minute
	maxTimeoutText = 32
)

// Config holds markforge's application configuration.
type Config struct {
	Render   RenderConfig   `yaml:"render"`
	Export   ExportConfig   `yaml:"export"`
	Preview  PreviewConfig  `yaml:"preview"`
	Settings SettingsConfig `yaml:"settings"`
}

// RenderConfig controls the preview pipeline.
type RenderConfig struct {
	MathEngine     string `yaml:"mathEngine"`     // "katex" (default) or "mathml"
	HighlightStyle string `yaml:"highlightStyle"` // chroma style name (default: "github")
	RawHTML        bool   `yaml:"rawHTML"`        // pass raw HTML through goldmark
	Sanitizer      string `yaml:"sanitizer"`      // "blocklist" (default) or "policy"
	MathCacheSize  int    `yaml:"mathCacheSize"`  // 0 = default
}

// ExportConfig controls HTML and PDF export.
type ExportConfig struct {
	Style     string `yaml:"style"`     // CSS asset name (default: "github")
	AssetsDir string `yaml:"assetsDir"` // Empty = embedded assets only
	OutputDir string `yaml:"outputDir"` // Empty = next to the source
	Timeout   string `yaml:"timeout"`   // Go duration, e.g. "45s" (default: 30s)
	Workers   int    `yaml:"workers"`   // 0 = auto
	Lang      string `yaml:"lang"`      // <html lang> (default: "en")
}

// PreviewConfig controls the live preview server.
type PreviewConfig struct {
	Addr string `yaml:"addr"` // host:port (default: 127.0.0.1:8080)
}

// SettingsConfig controls the persisted user settings.
type SettingsConfig struct {
	Path string `yaml:"path"` // Empty = ~/.markforge-config.json
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Render: RenderConfig{
			MathEngine:     string(mathtex.EngineKaTeX),
			HighlightStyle: "github",
			Sanitizer:      string(sanitize.ModeBlocklist),
		},
		Export: ExportConfig{
			Style: "github",
			Lang:  DefaultLang,
		},
		Preview: PreviewConfig{Addr: DefaultPreviewAddr},
	}
}

// ExportTimeout returns the parsed export timeout, or DefaultTimeout when unset.
func (c *Config) ExportTimeout() time.Duration {
	if c.Export.Timeout == "" {
		return DefaultTimeout
	}
	d, err := time.ParseDuration(c.Export.Timeout)
	if err != nil || d <= 0 {
		return DefaultTimeout
	}
	return d
}

// Validate checks field lengths, enums and ranges.
// Called by Load, but available for configs built in code.
func (c *Config) Validate() error {
	fields := []struct {
		name  string
		value string
		max   int
	}{
		{"render.mathEngine", c.Render.MathEngine, MaxNameLength},
		{"render.highlightStyle", c.Render.HighlightStyle, MaxNameLength},
		{"render.sanitizer", c.Render.Sanitizer, MaxNameLength},
		{"export.style", c.Export.Style, MaxNameLength},
		{"export.assetsDir", c.Export.AssetsDir, MaxPathLength},
		{"export.outputDir", c.Export.OutputDir, MaxPathLength},
		{"export.timeout", c.Export.Timeout, maxTimeoutText},
		{"export.lang", c.Export.Lang, MaxLangLength},
		{"preview.addr", c.Preview.Addr, MaxAddrLength},
		{"settings.path", c.Settings.Path, MaxPathLength},
	}
	for _, f := range fields {
		if err := validateFieldLength(f.name, f.value, f.max); err != nil {
			return err
		}
	}

	if _, err := mathtex.ParseEngine(c.Render.MathEngine); err != nil {
		return fmt.Errorf("%w: render.mathEngine: %w", ErrInvalidValue, err)
	}
	if _, err := sanitize.ParseMode(c.Render.Sanitizer); err != nil {
		return fmt.Errorf("%w: render.sanitizer: %w", ErrInvalidValue, err)
	}
	if s := c.Render.HighlightStyle; s != "" {
		if _, ok := styles.Registry[s]; !ok {
			return fmt.Errorf("%w: render.highlightStyle: unknown chroma style %q", ErrInvalidValue, s)
		}
	}
	if n := c.Render.MathCacheSize; n < 0 || n > MaxCacheSize {
		return fmt.Errorf("%w: render.mathCacheSize: must be between 0 and %d, got %d", ErrInvalidValue, MaxCacheSize, n)
	}

	if c.Export.Timeout != "" {
		d, err := time.ParseDuration(c.Export.Timeout)
		if err != nil {
			return fmt.Errorf("%w: export.timeout: %v", ErrInvalidValue, err)
		}
		if d <= 0 || d > MaxTimeout {
			return fmt.Errorf("%w: export.timeout: must be between 0 and %s, got %s", ErrInvalidValue, MaxTimeout, d)
		}
	}
	if n := c.Export.Workers; n < 0 || n > MaxWorkers {
		return fmt.Errorf("%w: export.workers: must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, n)
	}

	if addr := c.Preview.Addr; addr != "" {
		if _, _, err := net.SplitHostPort(addr); err != nil {
			return fmt.Errorf("%w: preview.addr: %v", ErrInvalidValue, err)
		}
	}

	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// Load loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's searched in standard locations.
// Returns error if the file is not found (no silent fallback).
// Fields absent from the file keep their DefaultConfig values.
func Load(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !isFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := unmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfigParse, configPath, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Discover loads the config named by MARKFORGE_CONFIG, else the default
// name from the standard locations. A missing default file is not an error:
// DefaultConfig is returned with an empty path.
func Discover() (cfg *Config, path string, err error) {
	if explicit := os.Getenv(EnvConfig); explicit != "" {
		cfg, err := Load(explicit)
		return cfg, explicit, err
	}

	path, err = resolveConfigPath(DefaultName)
	if errors.Is(err, ErrConfigNotFound) {
		return DefaultConfig(), "", nil
	}
	if err != nil {
		return nil, "", err
	}
	cfg, err = Load(path)
	return cfg, path, err
}

// isFilePath returns true if the string looks like a file path.
func isFilePath(s string) bool {
	return strings.ContainsAny(s, "/\\")
}

// SearchPaths lists the files a config name is looked up in, in order:
// the current directory, then <UserConfigDir>/markforge/, each with .yaml
// before .yml.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(userConfigDir, "markforge", name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing file from SearchPaths.
func resolveConfigPath(name string) (string, error) {
	paths := SearchPaths(name)
	for _, p := range paths {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(paths, ", "))
}
