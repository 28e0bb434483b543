package config

import (
	"log/slog"
	"sync"
	"time"
)

// Saver persists configs to a file, coalescing bursts of changes such as
// a fader sweep into one write after delay.
type Saver struct {
	path  string
	delay time.Duration
	log   *slog.Logger

	mu      sync.Mutex
	pending *Config
	timer   *time.Timer
	writes  int
}

func NewSaver(path string, delay time.Duration, log *slog.Logger) *Saver {
	if log == nil {
		log = slog.Default()
	}
	return &Saver{path: path, delay: delay, log: log.With("component", "config")}
}

// Save schedules c to be written. A later call before the delay expires
// replaces it.
func (s *Saver) Save(c Config) {
	c = c.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &c
	if s.timer == nil {
		s.timer = time.AfterFunc(s.delay, func() { s.Flush() })
	}
}

// Flush writes the pending config now, if any.
func (s *Saver) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	s.pending = nil
	if err := Save(s.path, c); err != nil {
		s.log.Error("failed to persist config", "path", s.path, "err", err)
		return err
	}
	s.writes++
	s.log.Debug("config saved", "path", s.path)
	return nil
}

// Writes reports how many times the file has been written.
func (s *Saver) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
