// Package config provides configuration management for proSFTP.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/prosftp/prosftp/internal/constants"
)

// Config holds a connection profile and transfer preferences.
//
// Config file location:
//   - Windows: %USERPROFILE%\.config\prosftp\config
//   - Unix: ~/.config/prosftp/config
//
// INI format:
//
//	[connection]
//	host = login.example.com
//	port = 22
//	user = jdoe
//	identity_file = ~/.ssh/id_ed25519
//
//	[security]
//	host_key_policy = known_hosts
//	known_hosts_file = ~/.ssh/known_hosts
//
//	[transfer]
//	scratch_dir = /tmp
//	extract_folders = true
//
//	[logging]
//	level = info
//
// Passwords are never stored; they come from a prompt or stdin at connect
// time.
type Config struct {
	// Connection settings
	Host         string `ini:"host"`
	Port         int    `ini:"port"`
	User         string `ini:"user"`
	IdentityFile string `ini:"identity_file"`

	// Security settings
	Security SecurityConfig

	// Transfer settings
	Transfer TransferConfig

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `ini:"level"`
}

// SecurityConfig controls host key verification.
type SecurityConfig struct {
	// HostKeyPolicy is "known_hosts" (verify against the known hosts file,
	// the default) or "insecure-accept-any" (accept anything, explicit
	// opt-in only).
	HostKeyPolicy string `ini:"host_key_policy"`

	// KnownHostsFile overrides the known hosts location.
	// Default: ~/.ssh/known_hosts
	KnownHostsFile string `ini:"known_hosts_file"`
}

// TransferConfig controls folder transfer behaviour.
type TransferConfig struct {
	// ScratchDir is the remote directory for folder-download scratch
	// archives. Default: /tmp
	ScratchDir string `ini:"scratch_dir"`

	// ExtractFolders extracts folder archives after transfer by default.
	ExtractFolders bool `ini:"extract_folders"`
}

// Host key policy values accepted in [security].
const (
	PolicyKnownHosts        = "known_hosts"
	PolicyInsecureAcceptAny = "insecure-accept-any"
)

// Validation errors
var (
	ErrInvalidPort          = errors.New("port must be between 1 and 65535")
	ErrInvalidHostKeyPolicy = errors.New(`host_key_policy must be "known_hosts" or "insecure-accept-any"`)
	ErrInvalidLogLevel      = errors.New("level must be one of debug, info, warn, error")
)

// DefaultConfigPath returns the default path for the config file.
// - Windows: %USERPROFILE%\.config\prosftp\config
// - Unix: ~/.config/prosftp/config
func DefaultConfigPath() (string, error) {
	var configDir string

	if runtime.GOOS == "windows" {
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", errors.New("USERPROFILE environment variable not set")
		}
		configDir = filepath.Join(userProfile, ".config", "prosftp")
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config", "prosftp")
	}

	return filepath.Join(configDir, "config"), nil
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Port: constants.DefaultPort,
		Security: SecurityConfig{
			HostKeyPolicy: PolicyKnownHosts,
		},
		Transfer: TransferConfig{
			ScratchDir:     constants.DefaultScratchDir,
			ExtractFolders: true,
		},
		LogLevel: "info",
	}
}

// Load reads configuration from an INI file.
// If the file doesn't exist, returns a config with default values and no
// error. If the file exists but is invalid, returns an error.
func Load(path string) (*Config, error) {
	cfg := New()

	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return cfg, nil // Return defaults if we can't determine path
		}
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	iniFile, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	conn := iniFile.Section("connection")
	cfg.Host = conn.Key("host").String()
	cfg.Port = conn.Key("port").MustInt(constants.DefaultPort)
	cfg.User = conn.Key("user").String()
	cfg.IdentityFile = expandHome(conn.Key("identity_file").String())

	sec := iniFile.Section("security")
	cfg.Security.HostKeyPolicy = sec.Key("host_key_policy").MustString(PolicyKnownHosts)
	cfg.Security.KnownHostsFile = expandHome(sec.Key("known_hosts_file").String())

	tr := iniFile.Section("transfer")
	cfg.Transfer.ScratchDir = tr.Key("scratch_dir").MustString(constants.DefaultScratchDir)
	cfg.Transfer.ExtractFolders = tr.Key("extract_folders").MustBool(true)

	cfg.LogLevel = iniFile.Section("logging").Key("level").MustString("info")

	return cfg, nil
}

// ApplyEnv overlays PROSFTP_* environment variables onto cfg. Environment
// values override the file; command-line flags override both.
func (cfg *Config) ApplyEnv() {
	if v := os.Getenv("PROSFTP_HOST"); v != "" {
		cfg.Host = v
	}
	if v := os.Getenv("PROSFTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Port = port
		}
	}
	if v := os.Getenv("PROSFTP_USER"); v != "" {
		cfg.User = v
	}
	if v := os.Getenv("PROSFTP_IDENTITY"); v != "" {
		cfg.IdentityFile = expandHome(v)
	}
	if v := os.Getenv("PROSFTP_SCRATCH_DIR"); v != "" {
		cfg.Transfer.ScratchDir = v
	}
}

// Save writes configuration to an INI file.
// Creates parent directories if they don't exist. Uses a temporary file plus
// rename so a crash never leaves a half-written config.
func Save(cfg *Config, path string) error {
	if path == "" {
		var err error
		path, err = DefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to determine config path: %w", err)
		}
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	iniFile := ini.Empty()

	conn, err := iniFile.NewSection("connection")
	if err != nil {
		return fmt.Errorf("failed to create connection section: %w", err)
	}
	conn.Key("host").SetValue(cfg.Host)
	conn.Key("port").SetValue(strconv.Itoa(cfg.Port))
	conn.Key("user").SetValue(cfg.User)
	conn.Key("identity_file").SetValue(cfg.IdentityFile)

	sec, err := iniFile.NewSection("security")
	if err != nil {
		return fmt.Errorf("failed to create security section: %w", err)
	}
	sec.Key("host_key_policy").SetValue(cfg.Security.HostKeyPolicy)
	sec.Key("known_hosts_file").SetValue(cfg.Security.KnownHostsFile)

	tr, err := iniFile.NewSection("transfer")
	if err != nil {
		return fmt.Errorf("failed to create transfer section: %w", err)
	}
	tr.Key("scratch_dir").SetValue(cfg.Transfer.ScratchDir)
	tr.Key("extract_folders").SetValue(fmt.Sprintf("%t", cfg.Transfer.ExtractFolders))

	logSec, err := iniFile.NewSection("logging")
	if err != nil {
		return fmt.Errorf("failed to create logging section: %w", err)
	}
	logSec.Key("level").SetValue(cfg.LogLevel)

	tmpPath := path + ".tmp"
	if err := iniFile.SaveTo(tmpPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if runtime.GOOS != "windows" {
		if err := os.Chmod(tmpPath, 0600); err != nil {
			os.Remove(tmpPath)
			return fmt.Errorf("failed to set config permissions: %w", err)
		}
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config: %w", err)
	}

	return nil
}

// Validate checks the configuration for values that can never work.
// Host and user may be empty here; connect-time code requires them.
func (cfg *Config) Validate() error {
	if cfg.Port < 1 || cfg.Port > 65535 {
		return ErrInvalidPort
	}
	switch cfg.Security.HostKeyPolicy {
	case PolicyKnownHosts, PolicyInsecureAcceptAny:
	default:
		return ErrInvalidHostKeyPolicy
	}
	switch strings.ToLower(cfg.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return ErrInvalidLogLevel
	}
	return nil
}

// expandHome replaces a leading ~/ with the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
