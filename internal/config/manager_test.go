package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: https://dashboard.example.com/api
  token: tok-abc
  user: alice
  timeout: 5s
poller:
  spec: "@every 15s"
  full_min_interval: 2m
  recency_window: 30m
  limit: 50
toast:
  duration: 4s
logging:
  level: debug
  console: true
journal:
  driver: sqlite
  path: ./notifyd.db
`)

	m := NewManager(path)
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "https://dashboard.example.com/api" || cfg.API.Token != "tok-abc" {
		t.Fatalf("api=%+v", cfg.API)
	}
	if cfg.Poller.Spec != "@every 15s" || cfg.Poller.Limit != 50 {
		t.Fatalf("poller=%+v", cfg.Poller)
	}
	if cfg.Toast.Duration != "4s" {
		t.Fatalf("toast=%+v", cfg.Toast)
	}
	if cfg.Journal == nil || cfg.Journal.Driver != "sqlite" {
		t.Fatalf("journal=%+v", cfg.Journal)
	}
	if got := m.Get(); got != cfg {
		t.Fatalf("Get returned a different snapshot")
	}
}

func TestLoadJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "api": {"base_url": "http://127.0.0.1:8080/api"},
  "logging": {"console": true}
}`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.API.BaseURL != "http://127.0.0.1:8080/api" || !cfg.Logging.Console {
		t.Fatalf("cfg=%+v", cfg)
	}
}

func TestUnknownFieldRejected(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: http://x/api
  basepath: oops
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("expected unknown-field error")
	}
}

func TestTrailingDataRejected(t *testing.T) {
	path := writeFile(t, "config.json", `{"api":{"base_url":"http://x/api"}}{"extra":1}`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatalf("expected trailing-data error")
	}
}

func TestParseDurationField(t *testing.T) {
	d, err := ParseDurationField("poller.full_min_interval", "90s")
	if err != nil || d != 90*time.Second {
		t.Fatalf("d=%v err=%v", d, err)
	}
	if _, err := ParseDurationField("toast.duration", "fast"); err == nil {
		t.Fatalf("expected error for bad duration")
	}
	if _, err := ParseDurationField("poller.spec", "-5s"); err == nil {
		t.Fatalf("expected error for negative duration")
	}
	if d, err := ParseDurationOrDefault("toast.duration", "", time.Minute); err != nil || d != time.Minute {
		t.Fatalf("default not applied: %v %v", d, err)
	}
	if d, err := ParseDurationOrDefault("toast.duration", "250ms", time.Minute); err != nil || d != 250*time.Millisecond {
		t.Fatalf("explicit value ignored: %v %v", d, err)
	}
}

func TestSubscribePublish(t *testing.T) {
	path := writeFile(t, "config.yaml", `
api:
  base_url: http://x/api
`)
	m := NewManager(path)
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	next := &Config{API: APIConfig{BaseURL: "http://y/api"}}
	m.Commit(next)
	m.publish(next)

	select {
	case got := <-ch:
		if got.API.BaseURL != "http://y/api" {
			t.Fatalf("got=%+v", got.API)
		}
	case <-time.After(time.Second):
		t.Fatalf("no config delivered")
	}
}

func TestPublishDropsOldest(t *testing.T) {
	m := NewManager("unused")
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	a := &Config{API: APIConfig{BaseURL: "http://a"}}
	b := &Config{API: APIConfig{BaseURL: "http://b"}}
	m.publish(a)
	m.publish(b) // buffer full: oldest dropped, newest pushed

	got := <-ch
	if got.API.BaseURL != "http://b" {
		t.Fatalf("got=%q, want the newest config", got.API.BaseURL)
	}
}
