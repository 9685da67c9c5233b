package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoad_Defaults(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Login.Method != "POST" {
		t.Fatalf("default method = %q, want POST", c.Login.Method)
	}
	if c.Login.LoginURL != "/login" || c.Login.DefaultRedirect != "/" {
		t.Fatalf("unexpected login defaults: %+v", c.Login)
	}
	if c.Login.Finder != "all" || c.Login.UserShape != "record" {
		t.Fatalf("unexpected finder/shape defaults: %+v", c.Login)
	}
	if c.SessionTTL() <= 0 {
		t.Fatalf("session ttl not parsed: %q", c.Session.TTL)
	}
}

func TestLoad_YAMLAndEnvOverride(t *testing.T) {
	p := writeYAML(t, `
login:
  method: get
  default_redirect: /home
storage:
  driver: postgres
  dsn: postgres://x
`)
	t.Setenv("LOGIN_DEFAULT_REDIRECT", "/dashboard")
	t.Setenv("GOOGLE_CLIENT_ID", "cid-123")

	c, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Login.Method != "GET" {
		t.Fatalf("method = %q, want GET (normalized)", c.Login.Method)
	}
	if c.Login.DefaultRedirect != "/dashboard" {
		t.Fatalf("env override lost: %q", c.Login.DefaultRedirect)
	}
	if c.Storage.Driver != "postgres" || c.Storage.DSN != "postgres://x" {
		t.Fatalf("storage not loaded: %+v", c.Storage)
	}
	if c.Providers.Google.ClientID != "cid-123" {
		t.Fatalf("google client id not overridden: %q", c.Providers.Google.ClientID)
	}
}

func TestLoad_InvalidShape(t *testing.T) {
	p := writeYAML(t, "login:\n  user_shape: tuple\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for invalid user_shape")
	}
}

func TestLoad_InvalidFinder(t *testing.T) {
	p := writeYAML(t, "login:\n  finder: nope\n")
	if _, err := Load(p); err == nil {
		t.Fatal("expected error for invalid finder")
	}
}
