package identity

import (
	"bytes"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/fsnotify/fsnotify"
)

// ReadSession reads the session file at path. A missing file is the
// anonymous identity.
//
// The file is TOML:
//
//	user_id = "alice"
func ReadSession(path string) (Identity, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Anonymous, nil
	}
	if err != nil {
		return Anonymous, fmt.Errorf("failed to read session file %s: %w", path, err)
	}

	var id Identity
	if _, err := toml.Decode(string(data), &id); err != nil {
		return Anonymous, fmt.Errorf("failed to parse session file %s: %w", path, err)
	}
	return id, nil
}

// WriteSession writes id to the session file at path, creating the
// parent directory if needed.
func WriteSession(path string, id Identity) error {
	if !id.Authenticated() {
		return fmt.Errorf("cannot write a session without a user id")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(id); err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	// Write then rename so watchers never observe a half-written file.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0600); err != nil {
		return fmt.Errorf("failed to write session file %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to install session file %s: %w", path, err)
	}
	return nil
}

// ClearSession removes the session file. Returns nil if it doesn't exist.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove session file %s: %w", path, err)
	}
	return nil
}

// SessionWatcher is a Provider backed by a session file. It watches the
// file's directory and emits a new identity whenever the file is
// created, rewritten, or removed.
type SessionWatcher struct {
	path    string
	watcher *fsnotify.Watcher
	logger  *log.Logger

	changes chan Identity
	done    chan struct{}
	wg      sync.WaitGroup

	mu      sync.Mutex
	current Identity
	running bool
}

// NewSessionWatcher creates a watcher for the session file at path and
// reads the initial identity. The watcher must be started with Start()
// before it will emit changes.
//
// If logger is nil, a default logger writing to stderr is used.
func NewSessionWatcher(path string, logger *log.Logger) (*SessionWatcher, error) {
	if logger == nil {
		logger = log.New(os.Stderr, "[identity] ", log.LstdFlags)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session path: %w", err)
	}

	current, err := ReadSession(abs)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &SessionWatcher{
		path:    abs,
		watcher: watcher,
		logger:  logger,
		changes: make(chan Identity, 16),
		done:    make(chan struct{}),
		current: current,
	}, nil
}

// Start begins watching the session file's directory.
func (sw *SessionWatcher) Start() error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.running {
		return fmt.Errorf("watcher already running")
	}

	dir := filepath.Dir(sw.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create session directory %s: %w", dir, err)
	}
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch session directory %s: %w", dir, err)
	}

	sw.running = true
	sw.wg.Add(1)
	go sw.processEvents()
	return nil
}

// Stop stops watching and closes the Changes channel.
// It blocks until the event processing goroutine has exited.
func (sw *SessionWatcher) Stop() error {
	sw.mu.Lock()
	if !sw.running {
		sw.mu.Unlock()
		return nil
	}
	sw.running = false
	sw.mu.Unlock()

	close(sw.done)

	if err := sw.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	sw.wg.Wait()
	close(sw.changes)
	return nil
}

// Current implements Provider.
func (sw *SessionWatcher) Current() Identity {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.current
}

// Changes implements Provider.
func (sw *SessionWatcher) Changes() <-chan Identity {
	return sw.changes
}

// processEvents turns fsnotify events on the session file into identity
// transitions.
func (sw *SessionWatcher) processEvents() {
	defer sw.wg.Done()

	for {
		select {
		case <-sw.done:
			return

		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != sw.path {
				continue
			}
			// Only care about Create, Write, Remove, Rename
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			sw.reload()

		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			sw.logger.Printf("Watcher error: %v", err)
		}
	}
}

// reload re-reads the session file and emits the identity if it changed.
// An unreadable file keeps the previous identity.
func (sw *SessionWatcher) reload() {
	id, err := ReadSession(sw.path)
	if err != nil {
		sw.logger.Printf("WARNING: %v (keeping %s)", err, sw.Current())
		return
	}

	sw.mu.Lock()
	if id == sw.current {
		sw.mu.Unlock()
		return
	}
	sw.current = id
	sw.mu.Unlock()

	sw.logger.Printf("Identity changed: %s", id)
	select {
	case sw.changes <- id:
	case <-sw.done:
	}
}
