// Package config loads ai-commit's runtime preferences with a defined order:
// defaults < global file < repo file < environment < CLI flag overrides.
//
// Paths:
//   - Global: <UserConfigDir>/ai-commit/preferences.toml
//   - Repo: .ai-commit.toml at the repository root
//
// Environment variables (override files when set):
//   - AI_COMMIT_BASE_URL, AI_COMMIT_TIMEOUT (Go duration or integer seconds),
//     AI_COMMIT_WARN_THRESHOLD, AI_COMMIT_CONFIG (settings file path).
//   - AI_COMMIT_API_KEY and AI_COMMIT_MODEL are environment-only; they seed the
//     settings store and never come from the preferences files.
//
// Credentials live in the settings file (see package settings), not here.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"

	"aicommit/cli/internal/erruser"
)

// Config holds runtime preferences. Zero Timeout disables the HTTP deadline;
// zero WarnThreshold disables the context-window warning.
type Config struct {
	BaseURL       string        `toml:"base_url" validate:"required,url"`
	Timeout       time.Duration `toml:"timeout" validate:"gte=0"`
	WarnThreshold float64       `toml:"warn_threshold" validate:"gte=0,lte=1"`
	// SettingsPath is the settings (credentials) file; empty means the default location.
	SettingsPath string `toml:"settings_path"`
	// APIKey is the AI_COMMIT_API_KEY fallback, used as the default when configuring.
	APIKey string `toml:"-"`
	// Model is set from AI_COMMIT_MODEL or --model and takes precedence over the stored model.
	Model string `toml:"-"`
}

// Overrides are CLI flag values. A non-nil pointer overrides.
type Overrides struct {
	Model         *string
	BaseURL       *string
	Timeout       *time.Duration
	WarnThreshold *float64
	SettingsPath  *string
}

// LoadOptions configures Load. All fields are optional.
type LoadOptions struct {
	// RepoRoot enables RepoRoot/.ai-commit.toml when set.
	RepoRoot string
	// GlobalConfigPath replaces the UserConfigDir location when set.
	GlobalConfigPath string
	// Env is the environment as key=value pairs; nil means os.Environ().
	Env       []string
	Overrides *Overrides
}

const (
	_defaultBaseURL       = "https://api.groq.com"
	_defaultTimeout       = 60 * time.Second
	_defaultWarnThreshold = 0.9

	_appDir         = "ai-commit"
	_globalFileName = "preferences.toml"
	_repoFileName   = ".ai-commit.toml"
)

// DefaultConfig returns the defaults (no I/O).
func DefaultConfig() Config {
	return Config{
		BaseURL:       _defaultBaseURL,
		Timeout:       _defaultTimeout,
		WarnThreshold: _defaultWarnThreshold,
	}
}

// GlobalPath returns the default global preferences path.
func GlobalPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", erruser.New(erruser.Configuration, "Could not determine config directory.", err)
	}
	return filepath.Join(dir, _appDir, _globalFileName), nil
}

// Load builds the effective configuration. Missing files are ignored; invalid
// TOML, invalid environment values, or a result that fails validation return
// a Configuration error.
func Load(ctx context.Context, opts LoadOptions) (*Config, error) {
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	cfg := DefaultConfig()

	globalPath := opts.GlobalConfigPath
	if globalPath == "" {
		p, err := GlobalPath()
		if err != nil {
			return nil, err
		}
		globalPath = p
	}
	if err := mergeFile(&cfg, globalPath); err != nil {
		return nil, err
	}
	if opts.RepoRoot != "" {
		if err := mergeFile(&cfg, filepath.Join(opts.RepoRoot, _repoFileName)); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(&cfg, opts.Env); err != nil {
		return nil, err
	}
	applyOverrides(&cfg, opts.Overrides)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// fileConfig mirrors the TOML keys; pointers distinguish absent from zero.
type fileConfig struct {
	BaseURL       *string  `toml:"base_url"`
	Timeout       *string  `toml:"timeout"`
	WarnThreshold *float64 `toml:"warn_threshold"`
	SettingsPath  *string  `toml:"settings_path"`
}

// mergeFile overlays the keys present in path onto cfg. A missing file is skipped.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return erruser.New(erruser.Configuration, "Could not read configuration file "+path+".", err)
	}
	var file fileConfig
	md, err := toml.Decode(string(data), &file)
	if err != nil {
		return erruser.New(erruser.Configuration, "Invalid configuration in "+path+".", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return erruser.New(erruser.Configuration, "Invalid configuration in "+path+".",
			fmt.Errorf("unknown key %q", undecoded[0].String()))
	}
	if file.BaseURL != nil && *file.BaseURL != "" {
		cfg.BaseURL = *file.BaseURL
	}
	if file.Timeout != nil && *file.Timeout != "" {
		d, err := parseDuration(*file.Timeout)
		if err != nil {
			return erruser.New(erruser.Configuration, "Configuration timeout is invalid.", err)
		}
		cfg.Timeout = d
	}
	if file.WarnThreshold != nil {
		cfg.WarnThreshold = *file.WarnThreshold
	}
	if file.SettingsPath != nil && *file.SettingsPath != "" {
		cfg.SettingsPath = resolveRelative(filepath.Dir(path), *file.SettingsPath)
	}
	return nil
}

// resolveRelative makes p absolute against dir, expanding a leading "~/".
func resolveRelative(dir, p string) string {
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}

// parseDuration accepts a Go duration ("90s", "2m") or integer seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty duration")
	}
	if d, err := time.ParseDuration(s); err == nil {
		return d, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", s, err)
	}
	return time.Duration(n) * time.Second, nil
}

// envConfig is the environment layer. Nil pointers are unset variables.
type envConfig struct {
	APIKey        *string  `env:"AI_COMMIT_API_KEY"`
	Model         *string  `env:"AI_COMMIT_MODEL"`
	BaseURL       *string  `env:"AI_COMMIT_BASE_URL"`
	Timeout       *string  `env:"AI_COMMIT_TIMEOUT"`
	WarnThreshold *float64 `env:"AI_COMMIT_WARN_THRESHOLD"`
	SettingsPath  *string  `env:"AI_COMMIT_CONFIG"`
}

func applyEnv(cfg *Config, environ []string) error {
	var e envConfig
	if err := env.ParseWithOptions(&e, env.Options{Environment: toMap(environ)}); err != nil {
		return erruser.New(erruser.Configuration, "Invalid AI_COMMIT_* environment variable.", err)
	}
	if v := trimmed(e.APIKey); v != "" {
		cfg.APIKey = v
	}
	if v := trimmed(e.Model); v != "" {
		cfg.Model = v
	}
	if v := trimmed(e.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if v := trimmed(e.Timeout); v != "" {
		d, err := parseDuration(v)
		if err != nil {
			return erruser.New(erruser.Configuration, "AI_COMMIT_TIMEOUT must be a valid duration.", err)
		}
		cfg.Timeout = d
	}
	if e.WarnThreshold != nil {
		cfg.WarnThreshold = *e.WarnThreshold
	}
	if v := trimmed(e.SettingsPath); v != "" {
		cfg.SettingsPath = v
	}
	return nil
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

func toMap(environ []string) map[string]string {
	m := make(map[string]string, len(environ))
	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || v == "" {
			continue
		}
		m[k] = v
	}
	return m
}

func applyOverrides(cfg *Config, o *Overrides) {
	if o == nil {
		return
	}
	if o.Model != nil && *o.Model != "" {
		cfg.Model = *o.Model
	}
	if o.BaseURL != nil && *o.BaseURL != "" {
		cfg.BaseURL = *o.BaseURL
	}
	if o.Timeout != nil {
		cfg.Timeout = *o.Timeout
	}
	if o.WarnThreshold != nil {
		cfg.WarnThreshold = *o.WarnThreshold
	}
	if o.SettingsPath != nil && *o.SettingsPath != "" {
		cfg.SettingsPath = *o.SettingsPath
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg and returns a Configuration error naming the first bad key.
func Validate(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return erruser.New(erruser.Configuration, fmt.Sprintf("Invalid configuration value for %s.", tomlKey(verrs[0].StructField())), err)
	}
	return erruser.New(erruser.Configuration, "Invalid configuration.", err)
}

var tomlKeys = map[string]string{
	"BaseURL":       "base_url",
	"Timeout":       "timeout",
	"WarnThreshold": "warn_threshold",
}

func tomlKey(field string) string {
	if k, ok := tomlKeys[field]; ok {
		return k
	}
	return field
}
