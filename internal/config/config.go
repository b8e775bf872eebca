// Package config loads civicache settings from layered JSONC files.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tailscale/hujson"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/civicache/pkg/civicache"
)

// Config holds all configuration options.
type Config struct {
	// From config files (serialized)
	GraceWindow    Duration `json:"grace_window,omitzero"`
	PendingTTL     Duration `json:"pending_ttl,omitzero"`
	ResolvedStatus string   `json:"resolved_status,omitempty"`
	TempIDPrefix   string   `json:"temp_id_prefix,omitempty"`
	LogLevel       string   `json:"log_level,omitempty"`
	HistoryFile    string   `json:"history_file,omitempty"`

	// Resolved (computed, not serialized)
	EffectiveCwd   string `json:"-"`
	HistoryFileAbs string `json:"-"`

	// Sources tracks which config files were loaded (for diagnostics)
	Sources Sources `json:"-"`
}

// Sources tracks which config files were loaded.
type Sources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// Duration is a time.Duration read from and written as a Go duration string
// ("250ms", "1m30s").
type Duration time.Duration

// UnmarshalJSON implements [json.Unmarshaler].
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string

	err := json.Unmarshal(data, &s)
	if err != nil {
		return fmt.Errorf("duration must be a string like \"1s\": %w", err)
	}

	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("parse duration: %w", err)
	}

	*d = Duration(v)

	return nil
}

// MarshalJSON implements [json.Marshaler].
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d Duration) String() string {
	return time.Duration(d).String()
}

// ConfigFileName is the default project config file name.
const ConfigFileName = ".civicache.json"

// HistoryFileName is the default shell history file, relative to the
// working directory.
const HistoryFileName = ".civicache_history"

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		GraceWindow:    Duration(civicache.DefaultGraceWindow),
		ResolvedStatus: civicache.StatusResolved,
		TempIDPrefix:   civicache.DefaultTempIDPrefix,
		LogLevel:       "info",
		HistoryFile:    HistoryFileName,
	}
}

// globalConfigPath returns $XDG_CONFIG_HOME/civicache/config.json if set,
// otherwise ~/.config/civicache/config.json. Empty if neither is known.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "civicache", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "civicache", "config.json")
	}

	return ""
}

// LoadInput holds the inputs for Load.
type LoadInput struct {
	WorkDirOverride  string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath       string            // -c/--config flag value
	LogLevelOverride string            // --log-level flag value; empty means no override
	Env              map[string]string // environment variables
}

// Load loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config
// 3. Project config file (.civicache.json, if exists)
// 4. Explicit config file via ConfigPath (if non-empty)
// 5. CLI overrides.
func Load(input LoadInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	globalCfg, globalPath, err := loadGlobal(input.Env)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Global = globalPath
	cfg = merge(cfg, globalCfg)

	projectCfg, projectPath, err := loadProject(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = merge(cfg, projectCfg)

	if input.LogLevelOverride != "" {
		cfg.LogLevel = input.LogLevelOverride
	}

	validateErr := validate(cfg)
	if validateErr != nil {
		return Config{}, validateErr
	}

	cfg.EffectiveCwd = workDir

	if filepath.IsAbs(cfg.HistoryFile) {
		cfg.HistoryFileAbs = cfg.HistoryFile
	} else {
		cfg.HistoryFileAbs = filepath.Join(workDir, cfg.HistoryFile)
	}

	return cfg, nil
}

// CacheOptions maps the config onto engine options. Logger, Registerer and
// Clock are left for the caller.
func (c Config) CacheOptions() civicache.Options {
	return civicache.Options{
		GraceWindow:    time.Duration(c.GraceWindow),
		PendingTTL:     time.Duration(c.PendingTTL),
		ResolvedStatus: c.ResolvedStatus,
		TempIDPrefix:   c.TempIDPrefix,
	}
}

// Level returns the parsed log level. Load has already validated it.
func (c Config) Level() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}

	return lvl
}

func loadGlobal(env map[string]string) (Config, string, error) {
	path := globalConfigPath(env)
	if path == "" {
		return Config{}, "", nil
	}

	cfg, explicitEmpty, loaded, err := loadFile(path, false)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["resolved_status"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, ErrResolvedStatusEmpty)
	}

	return cfg, path, nil
}

// loadProject loads .civicache.json from workDir, or the explicit config
// file when configPath is set.
func loadProject(workDir, configPath string) (Config, string, error) {
	var cfgFile string

	var mustExist bool

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		_, statErr := os.Stat(cfgFile)
		if statErr != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	} else {
		cfgFile = filepath.Join(workDir, ConfigFileName)
	}

	fileCfg, explicitEmpty, loaded, err := loadFile(cfgFile, mustExist)
	if err != nil {
		return Config{}, "", err
	}

	if !loaded {
		return Config{}, "", nil
	}

	if explicitEmpty["resolved_status"] {
		return Config{}, "", fmt.Errorf("%w %s: %w", ErrConfigInvalid, cfgFile, ErrResolvedStatusEmpty)
	}

	return fileCfg, cfgFile, nil
}

// loadFile loads a config file. If mustExist is false, missing files return
// zero config. It returns the config, the explicitly empty fields, whether
// the file was loaded, and any error.
func loadFile(path string, mustExist bool) (Config, map[string]bool, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, nil, false, nil
		}

		if mustExist {
			return Config{}, nil, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
		}

		return Config{}, nil, false, nil
	}

	cfg, explicitEmpty, parseErr := parse(data)
	if parseErr != nil {
		return Config{}, nil, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, parseErr)
	}

	return cfg, explicitEmpty, true, nil
}

func parse(data []byte) (Config, map[string]bool, error) {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, nil, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	unmarshalErr := json.Unmarshal(standardized, &cfg)
	if unmarshalErr != nil {
		return Config{}, nil, fmt.Errorf("invalid JSON: %w", unmarshalErr)
	}

	var raw map[string]any

	_ = json.Unmarshal(standardized, &raw)

	explicitEmpty := make(map[string]bool)

	if val, exists := raw["resolved_status"]; exists {
		if str, ok := val.(string); ok && str == "" {
			explicitEmpty["resolved_status"] = true
		}
	}

	return cfg, explicitEmpty, nil
}

func merge(base, overlay Config) Config {
	if overlay.GraceWindow != 0 {
		base.GraceWindow = overlay.GraceWindow
	}

	if overlay.PendingTTL != 0 {
		base.PendingTTL = overlay.PendingTTL
	}

	if overlay.ResolvedStatus != "" {
		base.ResolvedStatus = overlay.ResolvedStatus
	}

	if overlay.TempIDPrefix != "" {
		base.TempIDPrefix = overlay.TempIDPrefix
	}

	if overlay.LogLevel != "" {
		base.LogLevel = overlay.LogLevel
	}

	if overlay.HistoryFile != "" {
		base.HistoryFile = overlay.HistoryFile
	}

	return base
}

func validate(cfg Config) error {
	if cfg.ResolvedStatus == "" {
		return ErrResolvedStatusEmpty
	}

	if cfg.PendingTTL < 0 {
		return fmt.Errorf("pending_ttl: %w (got %s)", ErrNegativeDuration, cfg.PendingTTL)
	}

	_, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLogLevel, cfg.LogLevel)
	}

	return nil
}
