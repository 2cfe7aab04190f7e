package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/prosftp/prosftp/internal/config"
	"github.com/prosftp/prosftp/internal/logging"
	"github.com/prosftp/prosftp/internal/remote"
)

// loadConfig builds the effective configuration: file, then PROSFTP_*
// environment variables, then command-line flags.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if flagHost != "" {
		cfg.Host = flagHost
	}
	if flagPort != 0 {
		cfg.Port = flagPort
	}
	if flagUser != "" {
		cfg.User = flagUser
	}
	if flagIdentity != "" {
		cfg.IdentityFile = flagIdentity
	}
	if scratchDir != "" {
		cfg.Transfer.ScratchDir = scratchDir
	}
	if insecureHostKey {
		cfg.Security.HostKeyPolicy = config.PolicyInsecureAcceptAny
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logging.SetLevelFromString(cfg.LogLevel)
	if verbose {
		logging.SetGlobalLevel(-1)
	}
	return cfg, nil
}

// connectSession opens an SSH/SFTP session from the effective config.
// Without an identity file the password comes from stdin (--password-stdin)
// or an interactive prompt.
func connectSession(cfg *config.Config) (*remote.Session, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("no host configured; use --host, PROSFTP_HOST, or the config file")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("no user configured; use --user, PROSFTP_USER, or the config file")
	}

	password := ""
	if passwordStdin {
		reader := bufio.NewReader(os.Stdin)
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("failed to read password from stdin: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
	} else if cfg.IdentityFile == "" {
		var err error
		password, err = promptPassword(cfg.User, cfg.Host)
		if err != nil {
			return nil, err
		}
	}

	policy := remote.PolicyKnownHosts
	if cfg.Security.HostKeyPolicy == config.PolicyInsecureAcceptAny {
		policy = remote.PolicyInsecureAcceptAny
	}

	session := remote.NewSession()
	err := session.Connect(GetContext(), remote.Params{
		Host:           cfg.Host,
		Port:           cfg.Port,
		User:           cfg.User,
		Password:       password,
		IdentityFile:   cfg.IdentityFile,
		HostKeyPolicy:  policy,
		KnownHostsFile: cfg.Security.KnownHostsFile,
	})
	if err != nil {
		return nil, err
	}

	GetLogger().Debug().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("user", cfg.User).
		Msg("connected")
	return session, nil
}
