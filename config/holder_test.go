package config_test

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/artpar/autoadmin/config"
	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"
)

func configWithLevel(level string) string {
	return minimalConfig + "\nlogging:\n  level: " + level + "\n"
}

func TestHolder_Get(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, configWithLevel("info")), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	got := h.Get()
	if got == nil {
		t.Fatal("Get returned nil")
	}
	if got.Logging.Level != "info" {
		t.Errorf("Logging.Level = %s, want info", got.Logging.Level)
	}
}

func TestHolder_NewHolderInvalid(t *testing.T) {
	if _, err := config.NewHolder(writeConfig(t, "server: {port: 1}"), zerolog.Nop()); err == nil {
		t.Error("expected error for invalid config")
	}
}

func TestHolder_ReloadAndOnChange(t *testing.T) {
	path := writeConfig(t, configWithLevel("info"))

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var mu sync.Mutex
	var received *config.Config
	h.OnChange(func(cfg *config.Config) {
		mu.Lock()
		received = cfg
		mu.Unlock()
	})

	if err := os.WriteFile(path, []byte(configWithLevel("debug")), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	if h.Get().Logging.Level != "debug" {
		t.Errorf("reloaded level = %s, want debug", h.Get().Logging.Level)
	}
	mu.Lock()
	defer mu.Unlock()
	if received == nil || received.Logging.Level != "debug" {
		t.Error("OnChange callback did not receive the new config")
	}
}

func TestHolder_OnChangeFromListener(t *testing.T) {
	path := writeConfig(t, configWithLevel("info"))

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var calls []string
	h.OnChange(func(cfg *config.Config) {
		calls = append(calls, "first:"+cfg.Logging.Level)
		h.OnChange(func(cfg *config.Config) {
			calls = append(calls, "late:"+cfg.Logging.Level)
		})
	})

	for _, level := range []string{"debug", "warn"} {
		if err := os.WriteFile(path, []byte(configWithLevel(level)), 0644); err != nil {
			t.Fatalf("write new config: %v", err)
		}
		if err := h.Reload(); err != nil {
			t.Fatalf("Reload(%s) error: %v", level, err)
		}
	}

	// A listener added during a reload runs from the next one on.
	want := []string{"first:debug", "first:warn", "late:warn"}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Errorf("calls mismatch (-want +got):\n%s", diff)
	}
}

func TestHolder_ReloadInvalidConfig(t *testing.T) {
	path := writeConfig(t, configWithLevel("warn"))

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := os.WriteFile(path, []byte("server:\n  port: 8080\n"), 0644); err != nil {
		t.Fatalf("write invalid config: %v", err)
	}
	if err := h.Reload(); err == nil {
		t.Error("Reload should fail for invalid config")
	}
	if h.Get().Logging.Level != "warn" {
		t.Errorf("should keep old config, got level %s", h.Get().Logging.Level)
	}
}

func TestHolder_ReloadWarnsAboutRestart(t *testing.T) {
	path := writeConfig(t, minimalConfig)

	var buf bytes.Buffer
	h, err := config.NewHolder(path, zerolog.New(&buf))
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	changed := minimalConfig + "\nserver:\n  port: 9999\n"
	if err := os.WriteFile(path, []byte(changed), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := h.Reload(); err != nil {
		t.Fatalf("Reload error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "change takes effect after restart") || !strings.Contains(out, `"field":"server"`) {
		t.Errorf("expected restart warning for server, got:\n%s", out)
	}
}

func TestHolder_Watch(t *testing.T) {
	path := writeConfig(t, configWithLevel("info"))

	h, err := config.NewHolder(path, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	if err := h.Watch(); err != nil {
		t.Fatalf("Watch error: %v", err)
	}

	if err := os.WriteFile(path, []byte(configWithLevel("error")), 0644); err != nil {
		t.Fatalf("write new config: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if h.Get().Logging.Level == "error" {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Errorf("file watcher did not reload, level = %s", h.Get().Logging.Level)
}

func TestHolder_ConcurrentAccess(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, minimalConfig), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	defer h.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if h.Get() == nil {
					t.Error("concurrent Get returned nil")
				}
			}
		}()
	}
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Reload()
		}()
	}
	wg.Wait()
}

func TestHolder_StopTwice(t *testing.T) {
	h, err := config.NewHolder(writeConfig(t, minimalConfig), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewHolder error: %v", err)
	}
	if err := h.Watch(); err != nil {
		t.Fatalf("Watch error: %v", err)
	}
	h.Stop()
	h.Stop()
}

func TestDiff(t *testing.T) {
	base := func() *config.Config {
		return &config.Config{
			Logging: config.LoggingConfig{Level: "info"},
			Auth: config.AuthConfig{Admins: []config.AdminUserConfig{
				{Email: "a@example.com", PasswordHash: "h1"},
			}},
			Databases: []config.DatabaseConfig{{Name: "main", Driver: "sqlite", DSN: "a.db"}},
		}
	}

	if got := config.Diff(base(), base()); len(got) != 0 {
		t.Errorf("Diff of equal configs = %v", got)
	}

	next := base()
	next.Logging.Level = "debug"
	next.Auth.Admins[0].PasswordHash = "h2"
	next.Databases[0].DSN = "b.db"
	next.Server.Port = 9000

	want := []string{"logging.level", "server", "auth.admins", "databases"}
	if diff := cmp.Diff(want, config.Diff(base(), next)); diff != "" {
		t.Errorf("Diff mismatch (-want +got):\n%s", diff)
	}
}

func TestReloadableFields(t *testing.T) {
	reloadable := config.ReloadableFields()
	if len(reloadable) != 1 || reloadable[0] != "logging.level" {
		t.Errorf("ReloadableFields() = %v", reloadable)
	}

	for _, f := range config.NonReloadableFields() {
		if f == "logging.level" {
			t.Error("logging.level cannot be both reloadable and not")
		}
	}
	if len(config.NonReloadableFields()) == 0 {
		t.Error("NonReloadableFields returned empty")
	}
}
