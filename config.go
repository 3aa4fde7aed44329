package arbor

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// OverflowStrategy governs what happens when the async queue is full.
type OverflowStrategy int

const (
	OverflowDropOldest OverflowStrategy = iota
	OverflowDropNewest
	OverflowBlock
)

// AsyncConfig configures the async writer (spec.md §4.E).
type AsyncConfig struct {
	Enabled          bool
	BatchSize        int           `validate:"gt=0"`
	FlushInterval    time.Duration `validate:"gt=0"`
	MaxQueueSize     int           `validate:"gt=0"`
	OverflowStrategy OverflowStrategy
	MaxRestarts      int           `validate:"gte=0"`
	RestartBackoff   time.Duration `validate:"gte=0"`
}

// AsyncUpdate carries only the explicitly-provided async keys for one
// Configure call; nil fields are left untouched.
type AsyncUpdate struct {
	Enabled          *bool
	BatchSize        *int
	FlushInterval    *time.Duration
	MaxQueueSize     *int
	OverflowStrategy *OverflowStrategy
	MaxRestarts      *int
	RestartBackoff   *time.Duration
}

func applyAsyncUpdate(cur AsyncConfig, u AsyncUpdate) AsyncConfig {
	if u.Enabled != nil {
		cur.Enabled = *u.Enabled
	}
	if u.BatchSize != nil {
		cur.BatchSize = *u.BatchSize
	}
	if u.FlushInterval != nil {
		cur.FlushInterval = *u.FlushInterval
	}
	if u.MaxQueueSize != nil {
		cur.MaxQueueSize = *u.MaxQueueSize
	}
	if u.OverflowStrategy != nil {
		cur.OverflowStrategy = *u.OverflowStrategy
	}
	if u.MaxRestarts != nil {
		cur.MaxRestarts = *u.MaxRestarts
	}
	if u.RestartBackoff != nil {
		cur.RestartBackoff = *u.RestartBackoff
	}
	return cur
}

// LiveLevelConfig configures the environment-variable level poller.
type LiveLevelConfig struct {
	EnvVar        string
	CheckInterval int `validate:"gt=0"`
	Enabled       bool
}

// LiveLevelUpdate carries only the explicitly-provided live-level keys.
type LiveLevelUpdate struct {
	EnvVar        *string
	CheckInterval *int
	Enabled       *bool
}

func applyLiveLevelUpdate(cur LiveLevelConfig, u LiveLevelUpdate) LiveLevelConfig {
	envVarSet := u.EnvVar != nil
	if u.EnvVar != nil {
		cur.EnvVar = *u.EnvVar
	}
	if u.Enabled != nil {
		cur.Enabled = *u.Enabled
	} else if envVarSet && cur.EnvVar != "" {
		// "enabled (boolean; defaults true iff env_var set)"
		cur.Enabled = true
	}
	if u.CheckInterval != nil {
		cur.CheckInterval = *u.CheckInterval
	}
	return cur
}

// CLIVerbosityConfig configures the command-line verbosity detector.
type CLIVerbosityConfig struct {
	Mapping    map[string]Level
	AutoDetect bool
}

// CLIVerbosityUpdate carries only the explicitly-provided keys.
type CLIVerbosityUpdate struct {
	Mapping    map[string]Level
	AutoDetect *bool
}

func applyCLIVerbosityUpdate(cur CLIVerbosityConfig, u CLIVerbosityUpdate) CLIVerbosityConfig {
	if u.Mapping != nil {
		cur.Mapping = u.Mapping
	}
	if u.AutoDetect != nil {
		cur.AutoDetect = *u.AutoDetect
	}
	return cur
}

// Config is a full snapshot of the root configuration.
type Config struct {
	Level                Level
	Pipelines            []*Pipeline
	Propagate            bool
	Async                AsyncConfig
	LiveLevel            LiveLevelConfig
	CommandLineVerbosity CLIVerbosityConfig
}

func defaultConfig() Config {
	return Config{
		Level:     Warning,
		Pipelines: []*Pipeline{defaultPipeline()},
		Propagate: true,
		Async: AsyncConfig{
			Enabled:          false,
			BatchSize:        50,
			FlushInterval:    time.Second,
			MaxQueueSize:     10000,
			OverflowStrategy: OverflowDropOldest,
			MaxRestarts:      5,
			RestartBackoff:   time.Second,
		},
		LiveLevel: LiveLevelConfig{
			Enabled: false,
		},
		CommandLineVerbosity: CLIVerbosityConfig{
			AutoDetect: false,
		},
	}
}

func defaultPipeline() *Pipeline {
	return &Pipeline{
		Outputs:   []OutputSpec{NewConsoleOutput(nil)},
		Presenter: NewTextPresenter(nil),
	}
}

func deepCopyConfig(c Config) Config {
	cp := c
	cp.Pipelines = make([]*Pipeline, len(c.Pipelines))
	copy(cp.Pipelines, c.Pipelines)
	if c.CommandLineVerbosity.Mapping != nil {
		m := make(map[string]Level, len(c.CommandLineVerbosity.Mapping))
		for k, v := range c.CommandLineVerbosity.Mapping {
			m[k] = v
		}
		cp.CommandLineVerbosity.Mapping = m
	}
	return cp
}

var (
	rootCfgMu  sync.RWMutex
	rootCfgVal = defaultConfig()
	cfgValidate = validator.New()
)

func currentRootConfig() Config {
	rootCfgMu.RLock()
	defer rootCfgMu.RUnlock()
	return rootCfgVal
}

// GetConfig returns a deep copy of the current root configuration.
func GetConfig() Config {
	rootCfgMu.RLock()
	defer rootCfgMu.RUnlock()
	return deepCopyConfig(rootCfgVal)
}

// ConfigUpdate is the root configuration update payload for Configure.
// Every field is optional; only non-nil/non-empty-typed fields named in
// the allowed-keys table are applied.
type ConfigUpdate struct {
	Level                *Level
	Pipelines            []*Pipeline
	Propagate            *bool
	Async                *AsyncUpdate
	LiveLevel            *LiveLevelUpdate
	CommandLineVerbosity *CLIVerbosityUpdate
}

var allowedRootKeys = []string{"level", "pipelines", "propagate", "async", "live_level", "command_line_verbosity"}

// Configure validates and applies updates to the root configuration.
// Validation is all-or-nothing: if anything is invalid, no change is
// applied. Returns a deep copy of the resulting configuration.
func Configure(updates ConfigUpdate) (Config, error) {
	rootCfgMu.Lock()
	defer rootCfgMu.Unlock()

	next := rootCfgVal

	// command_line_verbosity is applied first (spec.md §9 Open Question
	// #3): it may set next.Level, but an explicit Level in this same
	// call always wins because it is applied last, below.
	if updates.CommandLineVerbosity != nil {
		next.CommandLineVerbosity = applyCLIVerbosityUpdate(next.CommandLineVerbosity, *updates.CommandLineVerbosity)
		if next.CommandLineVerbosity.AutoDetect {
			if lvl, ok := detectCLIVerbosity(next.CommandLineVerbosity.Mapping); ok {
				next.Level = lvl
			}
		}
	}

	if updates.Pipelines != nil {
		for _, p := range updates.Pipelines {
			if err := p.Validate(); err != nil {
				return Config{}, err
			}
		}
		next.Pipelines = updates.Pipelines
	}

	if updates.Propagate != nil {
		next.Propagate = *updates.Propagate
	}

	if updates.Async != nil {
		merged := applyAsyncUpdate(next.Async, *updates.Async)
		if err := validateStruct(merged, "async"); err != nil {
			return Config{}, err
		}
		next.Async = merged
	}

	if updates.LiveLevel != nil {
		merged := applyLiveLevelUpdate(next.LiveLevel, *updates.LiveLevel)
		if merged.Enabled {
			if err := validateStruct(merged, "live_level"); err != nil {
				return Config{}, err
			}
		}
		next.LiveLevel = merged
	}

	if updates.Level != nil {
		if *updates.Level == NotSet {
			return Config{}, &ConfigError{Kind: InvalidLevel, Key: "level", Detail: "root level must not be NOTSET"}
		}
		next.Level = *updates.Level
	}

	rootCfgVal = next
	syncRootLogger(next)
	notifyAsyncConfigChanged(next.Async)
	notifyLiveLevelConfigChanged(next.LiveLevel)

	return deepCopyConfig(next), nil
}

func validateStruct(v interface{}, key string) error {
	if err := cfgValidate.Struct(v); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return &ConfigError{Kind: InvalidType, Key: key + "." + strings.ToLower(fe.Field()), Detail: fmt.Sprintf("%s constraint violated, got %v", fe.Tag(), fe.Value())}
		}
		return &ConfigError{Kind: InvalidType, Key: key, Detail: err.Error()}
	}
	return nil
}

// ResetConfig restores default root configuration values and drops the
// logger cache so the next logger lookup rebuilds _root from them.
func ResetConfig() Config {
	rootCfgMu.Lock()
	rootCfgVal = defaultConfig()
	cfg := deepCopyConfig(rootCfgVal)
	rootCfgMu.Unlock()

	ResetCache()
	syncRootLogger(cfg)
	notifyAsyncConfigChanged(cfg.Async)
	notifyLiveLevelConfigChanged(cfg.LiveLevel)
	return cfg
}

// knownRootKeysSorted lists the valid keys for documentation/error messages.
func knownRootKeysSorted() []string {
	keys := append([]string(nil), allowedRootKeys...)
	sort.Strings(keys)
	return keys
}

// UnknownRootKeyError builds the UnknownKey error naming offender and
// listing valid keys, for callers that accept configuration as a raw
// map (e.g. a config-file loader collaborator) before converting to a
// ConfigUpdate.
func UnknownRootKeyError(offender string) error {
	return &ConfigError{Kind: UnknownKey, Key: offender, Detail: "valid keys: " + strings.Join(knownRootKeysSorted(), ", ")}
}

// ValidateRootKeys checks a raw string-keyed map (e.g. parsed from a
// configuration file by an external loader) against the allowed
// top-level keys before the caller builds a ConfigUpdate from it.
func ValidateRootKeys(raw map[string]interface{}) error {
	allowed := make(map[string]bool, len(allowedRootKeys))
	for _, k := range allowedRootKeys {
		allowed[k] = true
	}
	for k := range raw {
		if !allowed[k] {
			return UnknownRootKeyError(k)
		}
	}
	return nil
}

// --- Logger-level configuration ---

// LoggerUpdate reconfigures an existing logger. The legacy "outputs" key
// is rejected at the call site that parses raw maps (ConfigureLoggerRaw);
// this typed form simply has no such field.
type LoggerUpdate struct {
	Level     *Level
	Propagate *bool
	Pipelines []*Pipeline
}

// Configure applies a logger-level update to an existing Logger.
func (l *Logger) Configure(u LoggerUpdate) error {
	if u.Pipelines != nil {
		for _, p := range u.Pipelines {
			if err := p.Validate(); err != nil {
				return err
			}
		}
		l.SetPipelines(u.Pipelines)
	}
	if u.Level != nil {
		l.SetLevel(*u.Level)
	}
	if u.Propagate != nil {
		l.SetPropagate(*u.Propagate)
	}
	return nil
}

// ConfigureLoggerRaw accepts a raw string-keyed map, matching spec.md's
// "logger-level configuration schema" (level, pipelines, propagate) and
// explicitly rejecting the legacy "outputs" alias with guidance.
func ConfigureLoggerRaw(l *Logger, raw map[string]interface{}) error {
	if _, ok := raw["outputs"]; ok {
		return &ConfigError{Kind: DeprecatedKey, Key: "outputs", Detail: `use "pipelines" — a pipeline bundles outputs with a presenter and transformers`}
	}
	allowed := map[string]bool{"level": true, "pipelines": true, "propagate": true}
	for k := range raw {
		if !allowed[k] {
			return &ConfigError{Kind: UnknownKey, Key: k, Detail: "valid keys: level, pipelines, propagate"}
		}
	}

	var u LoggerUpdate
	if v, ok := raw["level"]; ok {
		lvl, err := coerceLevel(v)
		if err != nil {
			return err
		}
		u.Level = &lvl
	}
	if v, ok := raw["propagate"]; ok {
		b, ok2 := v.(bool)
		if !ok2 {
			return &ConfigError{Kind: InvalidType, Key: "propagate", Detail: "must be bool"}
		}
		u.Propagate = &b
	}
	if v, ok := raw["pipelines"]; ok {
		pls, ok2 := v.([]*Pipeline)
		if !ok2 {
			return &ConfigError{Kind: InvalidType, Key: "pipelines", Detail: "must be []*Pipeline"}
		}
		u.Pipelines = pls
	}
	return l.Configure(u)
}

func coerceLevel(v interface{}) (Level, error) {
	switch t := v.(type) {
	case Level:
		return t, nil
	case int:
		return Level(t), nil
	case int32:
		return Level(t), nil
	case string:
		n, err := strconv.Atoi(t)
		if err == nil {
			return Level(n), nil
		}
		return LevelOf(t)
	default:
		return 0, &ConfigError{Kind: InvalidType, Key: "level", Detail: "must be a level, int, or string"}
	}
}
