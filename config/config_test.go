package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
user:
  id: alice
storage:
  driver: sqlite
  dsn: /tmp/planner.db
remote:
  url: http://localhost:8080
editor:
  debounce: 250ms
`)
	t.Setenv("PLANNER_LOG_LEVEL", "debug")
	t.Setenv("PLANNER_REMOTE_TOKEN", "tok")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if c.User.ID != "alice" || c.Storage.Driver != "sqlite" || c.Storage.DSN != "/tmp/planner.db" {
		t.Errorf("Load() = %+v, want the file values", c)
	}
	if c.Editor.Debounce != 250*time.Millisecond {
		t.Errorf("editor.debounce = %v, want 250ms", c.Editor.Debounce)
	}
	if c.Log.Level != "debug" || c.Remote.Token != "tok" {
		t.Errorf("environment not applied: log.level=%q remote.token=%q", c.Log.Level, c.Remote.Token)
	}
	if c.User.Currency != "USD" || c.Watch.Schedule != "@every 5m" || c.Server.TokenHours != 24 {
		t.Errorf("defaults not applied: %+v", c)
	}
	if got := c.NewLogger().GetLevel(); got != logrus.DebugLevel {
		t.Errorf("NewLogger() level = %v, want debug", got)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := map[string]string{
		"storage driver": "storage:\n  driver: s3\n",
		"server driver":  "server:\n  driver: mysql\n",
		"log level":      "log:\n  level: loud\n",
		"log format":     "log:\n  format: xml\n",
		"debounce":       "editor:\n  debounce: -1s\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Errorf("Load(%q) succeeded", content)
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing explicit file) succeeded")
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") without file failed: %v", err)
	}
	if c.Storage.Driver != "dir" {
		t.Errorf("storage.driver = %q, want dir", c.Storage.Driver)
	}
}
