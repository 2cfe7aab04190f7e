package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Port != 22 {
		t.Errorf("default port = %d, want 22", cfg.Port)
	}
	if cfg.Security.HostKeyPolicy != PolicyKnownHosts {
		t.Errorf("default policy = %q, want %q", cfg.Security.HostKeyPolicy, PolicyKnownHosts)
	}
	if cfg.Transfer.ScratchDir != "/tmp" {
		t.Errorf("default scratch dir = %q, want /tmp", cfg.Transfer.ScratchDir)
	}
	if !cfg.Transfer.ExtractFolders {
		t.Error("extract_folders should default to true")
	}
}

func TestLoadParsesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	content := `[connection]
host = login.example.com
port = 2222
user = jdoe

[security]
host_key_policy = insecure-accept-any

[transfer]
scratch_dir = /var/tmp
extract_folders = false

[logging]
level = debug
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Host != "login.example.com" || cfg.Port != 2222 || cfg.User != "jdoe" {
		t.Errorf("connection = %s:%d as %s", cfg.Host, cfg.Port, cfg.User)
	}
	if cfg.Security.HostKeyPolicy != PolicyInsecureAcceptAny {
		t.Errorf("policy = %q", cfg.Security.HostKeyPolicy)
	}
	if cfg.Transfer.ScratchDir != "/var/tmp" || cfg.Transfer.ExtractFolders {
		t.Errorf("transfer = %q extract=%t", cfg.Transfer.ScratchDir, cfg.Transfer.ExtractFolders)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("level = %q", cfg.LogLevel)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config")
	cfg := New()
	cfg.Host = "hpc.example.com"
	cfg.Port = 2200
	cfg.User = "runner"
	cfg.Transfer.ScratchDir = "/scratch"

	if err := Save(cfg, path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Host != cfg.Host || got.Port != cfg.Port || got.User != cfg.User {
		t.Errorf("round trip lost connection settings: %+v", got)
	}
	if got.Transfer.ScratchDir != "/scratch" {
		t.Errorf("round trip lost scratch dir: %q", got.Transfer.ScratchDir)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("config permissions = %o, want 0600", perm)
	}
}

func TestApplyEnvOverridesFile(t *testing.T) {
	t.Setenv("PROSFTP_HOST", "env.example.com")
	t.Setenv("PROSFTP_PORT", "2022")
	t.Setenv("PROSFTP_USER", "envuser")

	cfg := New()
	cfg.Host = "file.example.com"
	cfg.ApplyEnv()

	if cfg.Host != "env.example.com" || cfg.Port != 2022 || cfg.User != "envuser" {
		t.Errorf("env not applied: %s:%d as %s", cfg.Host, cfg.Port, cfg.User)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantErr error
	}{
		{"defaults", func(c *Config) {}, nil},
		{"bad port", func(c *Config) { c.Port = 0 }, ErrInvalidPort},
		{"bad policy", func(c *Config) { c.Security.HostKeyPolicy = "ask" }, ErrInvalidHostKeyPolicy},
		{"bad level", func(c *Config) { c.LogLevel = "trace" }, ErrInvalidLogLevel},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := New()
			tc.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, tc.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}
