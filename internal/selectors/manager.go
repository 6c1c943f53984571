package selectors

import (
	"os"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Manager provides hot-reload capable selector management. It starts from the
// embedded defaults, optionally overlays an external file, and watches that
// file for changes. Reads are lock-free via atomic.Value.
type Manager struct {
	current  atomic.Value // *Selectors
	path     string
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopped  atomic.Bool
	reloads  atomic.Int64
	failures atomic.Int64
}

// NewManager creates a Manager. path may be empty (embedded defaults only).
// hotReload starts a file watcher on path; a broken override file never
// replaces the last good pattern set.
func NewManager(path string, hotReload bool) (*Manager, error) {
	embedded, err := loadEmbedded()
	if err != nil {
		return nil, err
	}

	m := &Manager{
		path:   path,
		stopCh: make(chan struct{}),
	}
	m.current.Store(embedded)

	if path != "" {
		if err := m.reloadFromFile(); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Selector override file unusable, using embedded defaults")
		}
		if hotReload {
			if err := m.startWatcher(); err != nil {
				log.Warn().Err(err).Str("path", path).Msg("Selector hot-reload unavailable")
			}
		}
	}

	return m, nil
}

// Get returns the current pattern set. The returned value is immutable;
// callers must not modify it.
func (m *Manager) Get() *Selectors {
	return m.current.Load().(*Selectors)
}

// ReloadCount returns how many successful reloads have occurred.
func (m *Manager) ReloadCount() int64 {
	return m.reloads.Load()
}

// reloadFromFile reads and validates the override file, swapping it in only
// when it parses cleanly.
func (m *Manager) reloadFromFile() error {
	data, err := os.ReadFile(m.path)
	if err != nil {
		m.failures.Add(1)
		return err
	}
	parsed, err := parse(data)
	if err != nil {
		m.failures.Add(1)
		return err
	}
	m.current.Store(parsed)
	m.reloads.Add(1)
	log.Info().Str("path", m.path).Int64("reloads", m.reloads.Load()).Msg("Selectors reloaded")
	return nil
}

// startWatcher begins watching the override file for writes.
func (m *Manager) startWatcher() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.path); err != nil {
		_ = watcher.Close()
		return err
	}
	m.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := m.reloadFromFile(); err != nil {
						log.Warn().Err(err).Msg("Selector reload failed, keeping previous patterns")
					}
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn().Err(err).Msg("Selector watcher error")
			case <-m.stopCh:
				return
			}
		}
	}()

	log.Info().Str("path", m.path).Msg("Watching selector overrides for changes")
	return nil
}

// Close stops the watcher. Safe to call multiple times.
func (m *Manager) Close() error {
	if m.stopped.Swap(true) {
		return nil
	}
	close(m.stopCh)
	if m.watcher != nil {
		return m.watcher.Close()
	}
	return nil
}
