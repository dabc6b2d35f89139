package config

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// reloadDelay coalesces the bursts of events editors emit for one save.
const reloadDelay = 100 * time.Millisecond

// field is one configuration setting compared across reloads.
type field struct {
	name       string
	reloadable bool
	get        func(*Config) any
}

// fields are checked in order. Discovery runs once at startup, so everything
// shaping the admin panel needs a restart.
var fields = []field{
	{"logging.level", true, func(c *Config) any { return c.Logging.Level }},
	{"logging.format", false, func(c *Config) any { return c.Logging.Format }},
	{"server", false, func(c *Config) any { return c.Server }},
	{"metrics", false, func(c *Config) any { return c.Metrics }},
	{"auth.jwt_secret", false, func(c *Config) any { return c.Auth.JWTSecret }},
	{"auth.session_ttl", false, func(c *Config) any { return c.Auth.SessionTTL }},
	{"auth.admins", false, func(c *Config) any { return c.Auth.Admins }},
	{"admin", false, func(c *Config) any { return c.Admin }},
	{"databases", false, func(c *Config) any { return c.Databases }},
	{"resources", false, func(c *Config) any { return c.Resources }},
}

// Holder keeps the current configuration and reloads it from its file.
// Get is safe to call from any goroutine.
type Holder struct {
	path    string
	logger  zerolog.Logger
	current atomic.Pointer[Config]

	reloadMu sync.Mutex

	mu       sync.Mutex
	onChange []func(*Config)
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHolder loads the configuration at path.
func NewHolder(path string, logger zerolog.Logger) (*Holder, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("absolute path: %w", err)
	}

	h := &Holder{
		path:   absPath,
		logger: logger.With().Str("component", "config").Logger(),
		stopCh: make(chan struct{}),
	}
	h.current.Store(cfg)
	return h, nil
}

// Get returns the current configuration. Callers must not modify it.
func (h *Holder) Get() *Config {
	return h.current.Load()
}

// OnChange registers fn to run after every successful reload.
func (h *Holder) OnChange(fn func(*Config)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onChange = append(h.onChange, fn)
}

// Reload reads the file again. An invalid file leaves the current
// configuration in place.
func (h *Holder) Reload() error {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()

	next, err := Load(h.path)
	if err != nil {
		h.logger.Error().Err(err).Str("path", h.path).Msg("config reload failed, keeping current config")
		return fmt.Errorf("reload config: %w", err)
	}
	prev := h.current.Swap(next)

	changed := Diff(prev, next)
	if len(changed) == 0 {
		h.logger.Debug().Msg("config reloaded, nothing changed")
		return nil
	}
	for _, name := range changed {
		if isReloadable(name) {
			h.logger.Info().Str("field", name).Msg("config field reloaded")
		} else {
			h.logger.Warn().Str("field", name).Msg("change takes effect after restart")
		}
	}

	h.mu.Lock()
	listeners := slices.Clone(h.onChange)
	h.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
	return nil
}

// Watch reloads on writes to the config file and on SIGHUP until Stop is
// called. The directory is watched so that atomic saves (rename over the
// file) are seen.
func (h *Holder) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch directory: %w", err)
	}

	h.mu.Lock()
	h.watcher = watcher
	h.mu.Unlock()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)

	go h.loop(watcher, sigCh)

	h.logger.Info().Str("path", h.path).Msg("watching config file, SIGHUP reloads")
	return nil
}

// Stop ends Watch. It is safe to call more than once.
func (h *Holder) Stop() {
	h.stopOnce.Do(func() {
		close(h.stopCh)
		h.mu.Lock()
		defer h.mu.Unlock()
		if h.watcher != nil {
			h.watcher.Close()
		}
	})
}

func (h *Holder) loop(watcher *fsnotify.Watcher, sigCh chan os.Signal) {
	defer signal.Stop(sigCh)

	name := filepath.Base(h.path)
	var pending <-chan time.Time

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name || !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			h.logger.Debug().Str("event", event.Op.String()).Msg("config file changed")
			pending = time.After(reloadDelay)

		case <-pending:
			pending = nil
			_ = h.Reload()

		case <-sigCh:
			h.logger.Info().Msg("received SIGHUP")
			_ = h.Reload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().Err(err).Msg("config watcher error")

		case <-h.stopCh:
			return
		}
	}
}

// Diff lists the names of the fields that differ between two
// configurations.
func Diff(prev, next *Config) []string {
	var changed []string
	for _, f := range fields {
		if !reflect.DeepEqual(f.get(prev), f.get(next)) {
			changed = append(changed, f.name)
		}
	}
	return changed
}

func isReloadable(name string) bool {
	for _, f := range fields {
		if f.name == name {
			return f.reloadable
		}
	}
	return false
}

// ReloadableFields returns which fields apply without a restart.
func ReloadableFields() []string {
	return fieldNames(true)
}

// NonReloadableFields returns which fields require a restart.
func NonReloadableFields() []string {
	return fieldNames(false)
}

func fieldNames(reloadable bool) []string {
	var names []string
	for _, f := range fields {
		if f.reloadable == reloadable {
			names = append(names, f.name)
		}
	}
	return names
}
