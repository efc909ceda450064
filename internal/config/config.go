package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FOCUSTRAIL_MODEL.
const EnvPrefix = "FOCUSTRAIL"

// Config holds all configurable focustrail settings.
type Config struct {
	LogPath        string   `json:"log_path"`        // session log; empty = XDG data dir
	CacheLimit     int      `json:"cache_limit"`     // sessions kept in memory
	SampleInterval Duration `json:"sample_interval"` // tick interval
	BreakAfter     Duration `json:"break_after"`     // 0 disables break reminders
	MinEvaluation  Duration `json:"min_evaluation"`  // shortest session worth evaluating
	Model          string   `json:"model"`
	BaseURL        string   `json:"base_url"`
	ProbeCommand   string   `json:"probe_command"`
	NotifyCommand  string   `json:"notify_command"`
	IgnoreApps     []string `json:"ignore_apps"`
	DefaultFormat  string   `json:"default_format"` // "markdown" | "json"
	OutputDir      string   `json:"output_dir"`
	LogLevel       string   `json:"log_level"`
	LogFormat      string   `json:"log_format"` // "text" | "json"
	LogFile        string   `json:"log_file"`

	// APIKey is only read from the environment, never from config files.
	APIKey string `json:"-"`
}

// Defaults returns sensible default configuration values.
func Defaults() Config {
	return Config{
		CacheLimit:     500,
		SampleInterval: Duration(time.Second),
		BreakAfter:     Duration(50 * time.Minute),
		MinEvaluation:  Duration(30 * time.Second),
		Model:          "gpt-4o-mini",
		NotifyCommand:  "notify-send --app-name=focustrail",
		IgnoreApps:     []string{},
		DefaultFormat:  "markdown",
		OutputDir:      ".",
		LogLevel:       "info",
		LogFormat:      "text",
	}
}

// Dir returns ~/.config/focustrail.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "focustrail"), nil
}

// LoadGlobal reads ~/.config/focustrail/config.json.
// Returns defaults if the file is absent.
func LoadGlobal() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return loadFile(filepath.Join(dir, "config.json"), true)
}

// LoadProject reads .focustrailconfig in the current working directory.
// Returns nil (no error) if the file is absent.
func LoadProject() (*Config, error) {
	return loadFile(".focustrailconfig", false)
}

// Load merges global and project files and applies environment overrides.
func Load() (Config, error) {
	global, err := LoadGlobal()
	if err != nil {
		return Config{}, fmt.Errorf("loading global config: %w", err)
	}
	project, err := LoadProject()
	if err != nil {
		return Config{}, fmt.Errorf("loading project config: %w", err)
	}
	return ApplyEnv(Merge(global, project), NewEnv())
}

// loadFile reads and parses a JSON config file at path.
// If returnDefaults is true, returns defaults when the file is absent.
// If returnDefaults is false, returns nil when the file is absent.
func loadFile(path string, returnDefaults bool) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if returnDefaults {
				d := Defaults()
				return &d, nil
			}
			return nil, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, &ParseError{Path: path, Err: err}
	}
	return &cfg, nil
}

// Merge combines global and project configs, with project taking precedence.
// Missing keys fall back to global, then defaults.
func Merge(global, project *Config) Config {
	result := Defaults()
	overlay(&result, global)
	overlay(&result, project)
	return result
}

// overlay copies every non-zero field of src onto dst.
func overlay(dst, src *Config) {
	if src == nil {
		return
	}
	setString(&dst.LogPath, src.LogPath)
	setString(&dst.Model, src.Model)
	setString(&dst.BaseURL, src.BaseURL)
	setString(&dst.ProbeCommand, src.ProbeCommand)
	setString(&dst.NotifyCommand, src.NotifyCommand)
	setString(&dst.DefaultFormat, src.DefaultFormat)
	setString(&dst.OutputDir, src.OutputDir)
	setString(&dst.LogLevel, src.LogLevel)
	setString(&dst.LogFormat, src.LogFormat)
	setString(&dst.LogFile, src.LogFile)
	if src.CacheLimit > 0 {
		dst.CacheLimit = src.CacheLimit
	}
	if src.SampleInterval > 0 {
		dst.SampleInterval = src.SampleInterval
	}
	// break_after may be explicitly disabled with a negative value.
	if src.BreakAfter != 0 {
		dst.BreakAfter = src.BreakAfter
	}
	if src.MinEvaluation > 0 {
		dst.MinEvaluation = src.MinEvaluation
	}
	if len(src.IgnoreApps) > 0 {
		dst.IgnoreApps = src.IgnoreApps
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// NewEnv returns a viper instance reading FOCUSTRAIL_* variables. The API
// key and base URL also honour the OPENAI_* names.
func NewEnv() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("base_url", EnvPrefix+"_BASE_URL", "OPENAI_BASE_URL")
	return v
}

// ApplyEnv overlays values set in v on top of cfg.
func ApplyEnv(cfg Config, v *viper.Viper) (Config, error) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("log_path", &cfg.LogPath)
	str("model", &cfg.Model)
	str("base_url", &cfg.BaseURL)
	str("probe_command", &cfg.ProbeCommand)
	str("notify_command", &cfg.NotifyCommand)
	str("default_format", &cfg.DefaultFormat)
	str("output_dir", &cfg.OutputDir)
	str("log_level", &cfg.LogLevel)
	str("log_format", &cfg.LogFormat)
	str("log_file", &cfg.LogFile)
	str("api_key", &cfg.APIKey)

	if v.IsSet("cache_limit") {
		n, err := strconv.Atoi(strings.TrimSpace(v.GetString("cache_limit")))
		if err != nil {
			return cfg, fmt.Errorf("%s_CACHE_LIMIT: %w", EnvPrefix, err)
		}
		cfg.CacheLimit = n
	}
	for key, dst := range map[string]*Duration{
		"sample_interval": &cfg.SampleInterval,
		"break_after":     &cfg.BreakAfter,
		"min_evaluation":  &cfg.MinEvaluation,
	} {
		if !v.IsSet(key) {
			continue
		}
		d, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return cfg, fmt.Errorf("%s_%s: %w", EnvPrefix, strings.ToUpper(key), err)
		}
		*dst = Duration(d)
	}
	if v.IsSet("ignore_apps") {
		cfg.IgnoreApps = splitList(v.GetString("ignore_apps"))
	}
	return cfg, nil
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Duration is a time.Duration that reads "50m"-style strings or a number
// of seconds from JSON.
type Duration time.Duration

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*d = Duration(v * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return err
		}
		*d = Duration(parsed)
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %s", data)
	}
	return nil
}

// ParseError is returned when a config file exists but cannot be parsed.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return "failed to parse config file " + e.Path + ": " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
