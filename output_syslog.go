//go:build !windows

package arbor

import (
	"log/syslog"
	"sync"
)

// SyslogConfig configures the syslog output. Network/Addr empty dials
// the local syslog daemon; Tag defaults to "arbor".
type SyslogConfig struct {
	Network string
	Addr    string
	Tag     string
}

// syslogOutput wraps a single *syslog.Writer; it is opened lazily and
// shared by every event routed to the same configuration.
type syslogOutput struct {
	mu  sync.Mutex
	cfg SyslogConfig
	w   *syslog.Writer
}

func (s *syslogOutput) writer() (*syslog.Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.w != nil {
		return s.w, nil
	}
	tag := s.cfg.Tag
	if tag == "" {
		tag = "arbor"
	}
	w, err := syslog.Dial(s.cfg.Network, s.cfg.Addr, syslog.LOG_INFO|syslog.LOG_USER, tag)
	if err != nil {
		return nil, err
	}
	s.w = w
	return w, nil
}

// NewSyslogOutput builds an output writing to the local or remote
// syslog daemon via the standard library's log/syslog.
func NewSyslogOutput(cfg SyslogConfig, defaults map[string]interface{}) OutputSpec {
	so := &syslogOutput{cfg: cfg}
	return OutputSpec{
		Name:     "syslog",
		Fn:       so.write,
		Defaults: defaults,
	}
}

func (s *syslogOutput) write(rec *Record, _ map[string]interface{}) error {
	w, err := s.writer()
	if err != nil {
		return err
	}
	return writeSyslogSeverity(w, rec)
}

// syslogSeverityWriter is the subset of *syslog.Writer's API used to map
// an arbor Level onto a syslog severity. Factored out so the mapping can
// be exercised without dialing a real syslog daemon.
type syslogSeverityWriter interface {
	Crit(m string) error
	Err(m string) error
	Warning(m string) error
	Info(m string) error
	Debug(m string) error
}

func writeSyslogSeverity(w syslogSeverityWriter, rec *Record) error {
	switch {
	case rec.LevelNo >= Critical:
		return w.Crit(rec.Message)
	case rec.LevelNo >= Error:
		return w.Err(rec.Message)
	case rec.LevelNo >= Warning:
		return w.Warning(rec.Message)
	case rec.LevelNo >= Info:
		return w.Info(rec.Message)
	default:
		return w.Debug(rec.Message)
	}
}
