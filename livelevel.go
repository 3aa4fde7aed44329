package arbor

import (
	"os"
	"sync"
	"sync/atomic"
)

// liveLevelPoller implements spec.md §6's "live-level poller": every
// CheckInterval log calls, read the configured environment variable and,
// if its value parses to a level different from the last seen one, write
// it straight to the root configuration. It is driven by tickLiveLevel, called
// from dispatchLog so the interval is measured in log calls, not wall time.
type liveLevelPoller struct {
	mu       sync.Mutex
	cfg      LiveLevelConfig
	lastSeen string
	hasSeen  bool

	calls atomic.Int64
}

var livePoller = &liveLevelPoller{}

// notifyLiveLevelConfigChanged installs a new LiveLevelConfig, resetting
// the call counter and "last seen" memory so a freshly (re)enabled
// poller re-reads the environment on its next check rather than assuming
// a stale value.
func notifyLiveLevelConfigChanged(cfg LiveLevelConfig) {
	livePoller.mu.Lock()
	defer livePoller.mu.Unlock()
	if livePoller.cfg == cfg {
		return
	}
	livePoller.cfg = cfg
	livePoller.lastSeen = ""
	livePoller.hasSeen = false
	livePoller.calls.Store(0)
}

// tickLiveLevel is called once per dispatched log event. It is cheap
// when disabled (a single config read plus an atomic increment) and only
// touches os.Getenv every CheckInterval calls.
func tickLiveLevel() {
	livePoller.mu.Lock()
	cfg := livePoller.cfg
	livePoller.mu.Unlock()

	if !cfg.Enabled || cfg.EnvVar == "" {
		return
	}
	n := livePoller.calls.Add(1)
	interval := int64(cfg.CheckInterval)
	if interval <= 0 {
		interval = 1
	}
	if n%interval != 0 {
		return
	}

	raw, ok := os.LookupEnv(cfg.EnvVar)
	if !ok {
		return
	}

	livePoller.mu.Lock()
	unchanged := livePoller.hasSeen && raw == livePoller.lastSeen
	livePoller.lastSeen = raw
	livePoller.hasSeen = true
	livePoller.mu.Unlock()
	if unchanged {
		return
	}

	lvl, err := parseLiveLevelValue(raw)
	if err != nil {
		debugDiagnostic("arbor: live-level poller: %s=%q does not parse as a level: %v", cfg.EnvVar, raw, err)
		return
	}

	if _, err := Configure(ConfigUpdate{Level: &lvl}); err != nil {
		reportDiagnostic("arbor: live-level poller failed to apply %s=%q: %v", cfg.EnvVar, raw, err)
	}
}

// parseLiveLevelValue accepts either a bare integer level number or a
// registered level name (built-in or custom), matching spec.md §6.
func parseLiveLevelValue(raw string) (Level, error) {
	return coerceLevel(raw)
}
