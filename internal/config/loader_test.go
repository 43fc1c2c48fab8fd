package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CAMPUS_JWT_SECRET", "s3cret")

	cfg, resolved, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if resolved != path {
		t.Fatalf("unexpected path: %s", resolved)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}

	def := Default()
	if cfg.Addr != def.Addr || cfg.DatabaseDriver != DriverSQLite || cfg.StoreTimeout != def.StoreTimeout {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CAMPUS_JWT_SECRET", "")

	if _, _, err := Load(nil, filepath.Join(dir, "fresh.yaml")); err == nil {
		t.Fatalf("expected default config without a secret to be rejected")
	}

	path := filepath.Join(dir, "placeholder.yaml")
	if err := os.WriteFile(path, []byte("jwt_secret: "+placeholderSecret+"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected placeholder secret to be rejected")
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`addr: ":9000"
jwt_secret: from-file
store_timeout: 2s
allowed_origins:
  - campus.example.edu
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CAMPUS_JWT_SECRET", "from-env")
	t.Setenv("CAMPUS_CLIENT_BUFFER", "16")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Fatalf("file value not applied: %q", cfg.Addr)
	}
	if cfg.JWTSecret != "from-env" {
		t.Fatalf("env should override file: %q", cfg.JWTSecret)
	}
	if cfg.ClientBuffer != 16 {
		t.Fatalf("env value not applied: %d", cfg.ClientBuffer)
	}
	if cfg.StoreTimeout != 2*time.Second {
		t.Fatalf("duration not parsed: %v", cfg.StoreTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "campus.example.edu" {
		t.Fatalf("unexpected origins: %v", cfg.AllowedOrigins)
	}
}

func TestLoadRejectsInvalidDriver(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	t.Setenv("CAMPUS_JWT_SECRET", "s3cret")
	if err := os.WriteFile(path, []byte("database_driver: postgres\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	if _, _, err := Load(nil, path); err == nil {
		t.Fatalf("expected error for postgres without dsn")
	}
}

func TestUpdateFrom(t *testing.T) {
	cfg := Default()
	cfg.JWTSecret = "keep"
	cfg.UpdateFrom(Config{Addr: ":1234", LogLevel: "debug"})
	if cfg.Addr != ":1234" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.JWTSecret != "keep" {
		t.Fatalf("zero values must not overwrite: %+v", cfg)
	}
}
