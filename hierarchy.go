package arbor

import (
	"strings"
	"sync"
)

// LoggerConfig overlays defaults when a logger is first created. An
// already-cached logger ignores this on subsequent GetLogger calls, per
// spec.md §4.C.
type LoggerConfig struct {
	Level     Level
	Propagate *bool
	Pipelines []*Pipeline
}

// hierarchyState is the process-wide arena owning every Logger by name. Parent
// links are plain pointers into this arena (spec.md §9): they are never
// freed individually, only all at once by ResetCache, so there is no
// dangling-pointer risk despite the absence of reference counting.
type hierarchyState struct {
	// createMu serializes the create-miss path so two concurrent lookups
	// of the same new name never produce two different instances.
	// Cached lookups (the overwhelming majority of calls) never take it.
	createMu sync.Mutex
	cache    sync.Map // string -> *Logger
}

var hier = &hierarchyState{}

func init() {
	hier.materializeRoot()
}

func (h *hierarchyState) materializeRoot() *Logger {
	if v, ok := h.cache.Load(RootName); ok {
		return v.(*Logger)
	}
	h.createMu.Lock()
	defer h.createMu.Unlock()
	return h.materializeRootLocked()
}

// materializeRootLocked must be called with createMu held (or during
// package init, before any other goroutine can reach the hierarchy).
func (h *hierarchyState) materializeRootLocked() *Logger {
	if v, ok := h.cache.Load(RootName); ok {
		return v.(*Logger)
	}
	root := newLogger(RootName, nil)
	cfg := currentRootConfig()
	root.level.Store(int32(cfg.Level))
	root.propagate.Store(true)
	root.SetPipelines(cfg.Pipelines)
	h.cache.Store(RootName, root)
	return root
}

// rootLogger returns the cached root, materializing it if ResetCache
// dropped it.
func (h *hierarchyState) rootLogger() *Logger {
	if v, ok := h.cache.Load(RootName); ok {
		return v.(*Logger)
	}
	return h.materializeRoot()
}

// GetLogger returns the cached logger named name, creating it (and any
// missing ancestors) if necessary. cfg is only consulted on creation.
func GetLogger(name string, cfg *LoggerConfig) (*Logger, error) {
	if err := validateLoggerName(name); err != nil {
		return nil, err
	}
	if name == RootName {
		return hier.rootLogger(), nil
	}
	if v, ok := hier.cache.Load(name); ok {
		return v.(*Logger), nil
	}

	hier.createMu.Lock()
	defer hier.createMu.Unlock()
	return hier.getOrCreateLocked(name, cfg)
}

// getOrCreateLocked must be called with createMu held.
func (h *hierarchyState) getOrCreateLocked(name string, cfg *LoggerConfig) (*Logger, error) {
	if name == RootName {
		return h.materializeRootLocked(), nil
	}
	if v, ok := h.cache.Load(name); ok {
		return v.(*Logger), nil
	}

	parentName := parentOf(name)
	parent, err := h.getOrCreateLocked(parentName, nil)
	if err != nil {
		return nil, err
	}

	l := newLogger(name, parent)
	if cfg != nil {
		if cfg.Level != NotSet {
			l.level.Store(int32(cfg.Level))
		}
		if cfg.Propagate != nil {
			l.propagate.Store(*cfg.Propagate)
		}
		if cfg.Pipelines != nil {
			l.SetPipelines(cfg.Pipelines)
		}
	}
	h.cache.Store(name, l)
	return l, nil
}

// parentOf splits a dotted name on its last "." — no dot means the
// parent is _root.
func parentOf(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[:idx]
	}
	return RootName
}

func validateLoggerName(name string) error {
	if name == "" {
		return &HierarchyError{Kind: InvalidName, Detail: "logger name must be non-empty"}
	}
	if name == RootName {
		return nil
	}
	if strings.HasPrefix(name, "_") {
		return &ConfigError{Kind: ReservedName, Key: name, Detail: `names beginning with "_" are reserved; only "_root" is allowed`}
	}
	return nil
}

// ResetCache drops every cached logger. The next GetLogger call
// re-materializes _root from the current root configuration.
func ResetCache() {
	hier.createMu.Lock()
	defer hier.createMu.Unlock()
	hier.cache.Range(func(k, _ interface{}) bool {
		hier.cache.Delete(k)
		return true
	})
}

// AutoLogger returns the logger named after the calling module, derived
// via the caller-info resolver (spec.md §6). If derivation fails the name
// is "anonymous".
func AutoLogger() *Logger {
	ci := captureCaller(2)
	name := ci.Module
	if name == "" {
		name = "anonymous"
	}
	l, err := GetLogger(name, nil)
	if err != nil {
		l, _ = GetLogger("anonymous", nil)
	}
	return l
}

// syncRootLogger pushes a new root configuration onto the cached root
// Logger, materializing it first if needed, so effective-level resolution observes
// it immediately (spec.md §4.D: "re-read every time").
func syncRootLogger(cfg Config) {
	root := hier.rootLogger()
	root.level.Store(int32(cfg.Level))
	root.propagate.Store(true)
	root.SetPipelines(cfg.Pipelines)
}
