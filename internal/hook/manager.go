package hook

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// DefaultTimeout bounds a single hook run.
const DefaultTimeout = 30 * time.Second

// ErrHookNotFound is returned when a requested hook cannot be found.
var ErrHookNotFound = errors.New("hook not found")

// Manager discovers hooks and dispatches events to them.
type Manager struct {
	hookDir  string
	hooks    map[string]*Hook
	executor *Executor
	mu       sync.RWMutex
}

// NewManager creates a new hook Manager for hookDir.
func NewManager(hookDir string) *Manager {
	return &Manager{
		hookDir:  hookDir,
		hooks:    make(map[string]*Hook),
		executor: NewExecutor(DefaultTimeout),
	}
}

// Discover scans the hook directory for hook.json files and loads them.
// A missing directory means no hooks.
func (m *Manager) Discover() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.hooks = make(map[string]*Hook)

	info, err := os.Stat(m.hookDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}

	entries, err := os.ReadDir(m.hookDir)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		hookPath := filepath.Join(m.hookDir, entry.Name())
		data, err := os.ReadFile(filepath.Join(hookPath, "hook.json"))
		if err != nil {
			continue
		}

		var manifest Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			log.Printf("Skipping hook %s: invalid manifest: %v", entry.Name(), err)
			continue
		}
		if manifest.Name == "" || manifest.Executable == "" {
			log.Printf("Skipping hook %s: manifest needs name and executable", entry.Name())
			continue
		}

		m.hooks[manifest.Name] = &Hook{
			Manifest:   manifest,
			Path:       hookPath,
			Executable: filepath.Join(hookPath, manifest.Executable),
		}
	}

	return nil
}

// Get returns a hook by name.
func (m *Manager) Get(name string) (*Hook, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	h, ok := m.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns all discovered hooks sorted by name.
func (m *Manager) List() []*Hook {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hooks := make([]*Hook, 0, len(m.hooks))
	for _, h := range m.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool {
		return hooks[i].Manifest.Name < hooks[j].Manifest.Name
	})
	return hooks
}

// HookDir returns the hook directory path.
func (m *Manager) HookDir() string {
	return m.hookDir
}

// SetTimeout changes the per-hook timeout.
func (m *Manager) SetTimeout(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executor = NewExecutor(d)
}

// Dispatch runs every hook subscribed to event, in name order. Failures are
// logged and do not stop the remaining hooks. It returns how many hooks
// reported success.
func (m *Manager) Dispatch(ctx context.Context, event *Event) int {
	m.mu.RLock()
	executor := m.executor
	m.mu.RUnlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	ok := 0
	for _, h := range m.List() {
		if !h.Manifest.Wants(event.Type) {
			continue
		}

		resp, err := executor.Execute(ctx, h, event)
		if err != nil {
			log.Printf("Hook %s: %v", h.Manifest.Name, err)
			continue
		}
		if !resp.Success {
			log.Printf("Hook %s reported failure: %s", h.Manifest.Name, resp.Error)
			continue
		}
		ok++
	}
	return ok
}
