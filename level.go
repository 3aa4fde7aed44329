package arbor

import (
	"strconv"
	"strings"
	"sync"
)

// Level is a log severity in [0, 127]. Lower numbers are less severe.
type Level int32

// Built-in reserved levels.
const (
	NotSet   Level = 0
	Debug    Level = 10
	Info     Level = 20
	Warning  Level = 30
	Error    Level = 40
	Critical Level = 50
	None     Level = 100
)

var builtinNames = map[Level]string{
	NotSet:   "NOTSET",
	Debug:    "DEBUG",
	Info:     "INFO",
	Warning:  "WARNING",
	Error:    "ERROR",
	Critical: "CRITICAL",
	None:     "NONE",
}

// levelRegistry is the process-wide number<->name mapping. Built-ins are
// seeded at init; custom levels are added through RegisterLevel.
type levelRegistry struct {
	mu     sync.RWMutex
	byNum  map[Level]string
	byName map[string]Level
}

var registry = newLevelRegistry()

func newLevelRegistry() *levelRegistry {
	r := &levelRegistry{
		byNum:  make(map[Level]string, len(builtinNames)),
		byName: make(map[string]Level, len(builtinNames)),
	}
	for n, name := range builtinNames {
		r.byNum[n] = name
		r.byName[name] = n
	}
	return r
}

// resetLevelRegistry restores the registry to just the built-ins. Used by
// tests; not part of the public API.
func resetLevelRegistry() {
	registry = newLevelRegistry()
}

func isBuiltin(v Level) bool {
	_, ok := builtinNames[v]
	return ok
}

func validLevelName(name string) bool {
	if name == "" {
		return false
	}
	for _, c := range name {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '_' {
			return false
		}
	}
	return true
}

// RegisterLevel adds a custom level name for a numeric value in (0, 100).
// Re-registering the identical (name, value) pair succeeds silently;
// registering a name or value that already maps to something else fails.
func RegisterLevel(name string, value Level) error {
	if !validLevelName(name) {
		return &HierarchyError{Kind: InvalidName, Detail: "level name must be non-empty uppercase alphanumeric/underscore: " + name}
	}
	if value <= 0 || value >= 100 {
		return &HierarchyError{Kind: LevelOutOfRange, Detail: "level must be in (0,100): " + strconv.Itoa(int(value))}
	}
	if isBuiltin(value) {
		return &HierarchyError{Kind: LevelCollision, Detail: "value collides with a built-in level: " + strconv.Itoa(int(value))}
	}

	registry.mu.Lock()
	defer registry.mu.Unlock()

	if existingName, ok := registry.byNum[value]; ok {
		if existingName == name {
			return nil
		}
		return &HierarchyError{Kind: LevelCollision, Detail: "value already registered as " + existingName}
	}
	if existingVal, ok := registry.byName[name]; ok {
		if existingVal == value {
			return nil
		}
		return &HierarchyError{Kind: LevelCollision, Detail: "name already registered as " + strconv.Itoa(int(existingVal))}
	}

	registry.byNum[value] = name
	registry.byName[name] = value
	return nil
}

// LevelOf resolves a registered level name to its numeric value. Lookup is
// case-insensitive on input but matches stored (uppercase) names.
func LevelOf(name string) (Level, error) {
	upper := strings.ToUpper(name)
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if v, ok := registry.byName[upper]; ok {
		return v, nil
	}
	return 0, &HierarchyError{Kind: InvalidName, Detail: "unknown level name: " + name}
}

// NameOf returns the registered name for lvl, or "Level<n>" if unregistered.
func NameOf(lvl Level) string {
	registry.mu.RLock()
	defer registry.mu.RUnlock()
	if name, ok := registry.byNum[lvl]; ok {
		return name
	}
	return "Level" + strconv.Itoa(int(lvl))
}

// IsEnabled reports whether an event at lvl should be emitted given
// threshold. A threshold of None disables everything.
func IsEnabled(lvl, threshold Level) bool {
	if threshold == None {
		return false
	}
	return lvl >= threshold
}
