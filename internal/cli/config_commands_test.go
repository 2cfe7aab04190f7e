package cli

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prosftp/prosftp/internal/config"
)

func TestApplyConfigKey(t *testing.T) {
	cases := []struct {
		key     string
		value   string
		wantErr bool
		check   func(*config.Config) bool
	}{
		{"host", "hpc.example.com", false, func(c *config.Config) bool { return c.Host == "hpc.example.com" }},
		{"port", "2222", false, func(c *config.Config) bool { return c.Port == 2222 }},
		{"port", "abc", true, nil},
		{"user", "jdoe", false, func(c *config.Config) bool { return c.User == "jdoe" }},
		{"scratch_dir", "/var/tmp", false, func(c *config.Config) bool { return c.Transfer.ScratchDir == "/var/tmp" }},
		{"extract_folders", "false", false, func(c *config.Config) bool { return !c.Transfer.ExtractFolders }},
		{"extract_folders", "maybe", true, nil},
		{"level", "debug", false, func(c *config.Config) bool { return c.LogLevel == "debug" }},
		{"no_such_key", "x", true, nil},
	}

	for _, tc := range cases {
		cfg := config.New()
		err := applyConfigKey(cfg, tc.key, tc.value)
		if tc.wantErr {
			if err == nil {
				t.Errorf("applyConfigKey(%q, %q) expected error", tc.key, tc.value)
			}
			continue
		}
		if err != nil {
			t.Errorf("applyConfigKey(%q, %q): %v", tc.key, tc.value, err)
			continue
		}
		if !tc.check(cfg) {
			t.Errorf("applyConfigKey(%q, %q) did not apply", tc.key, tc.value)
		}
	}
}

func TestConfigSetThenShow(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "config")
	defer func() { cfgFile = "" }()

	setCmd := newConfigSetCmd()
	if err := setCmd.RunE(setCmd, []string{"host", "login.example.com"}); err != nil {
		t.Fatalf("config set: %v", err)
	}

	saved, err := config.Load(cfgFile)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if saved.Host != "login.example.com" {
		t.Errorf("saved host = %q", saved.Host)
	}

	showCmd := newConfigShowCmd()
	var out bytes.Buffer
	showCmd.SetOut(&out)
	if err := showCmd.RunE(showCmd, nil); err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out.String(), "login.example.com") {
		t.Errorf("show output missing host:\n%s", out.String())
	}
}

func TestConfigSetRejectsInvalidPolicy(t *testing.T) {
	cfgFile = filepath.Join(t.TempDir(), "config")
	defer func() { cfgFile = "" }()

	setCmd := newConfigSetCmd()
	if err := setCmd.RunE(setCmd, []string{"host_key_policy", "ask"}); err == nil {
		t.Fatal("expected validation error for unknown policy")
	}
}
