package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/prosftp/prosftp/internal/config"
)

// newConfigCmd creates the 'config' command group.
func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit the connection profile",
		Long:  `Commands for the profile stored at ~/.config/prosftp/config.`,
	}

	configCmd.AddCommand(newConfigShowCmd())
	configCmd.AddCommand(newConfigSetCmd())
	configCmd.AddCommand(newConfigPathCmd())

	return configCmd
}

// newConfigShowCmd creates the 'config show' command.
func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "host             = %s\n", cfg.Host)
			fmt.Fprintf(out, "port             = %d\n", cfg.Port)
			fmt.Fprintf(out, "user             = %s\n", cfg.User)
			fmt.Fprintf(out, "identity_file    = %s\n", cfg.IdentityFile)
			fmt.Fprintf(out, "host_key_policy  = %s\n", cfg.Security.HostKeyPolicy)
			fmt.Fprintf(out, "known_hosts_file = %s\n", cfg.Security.KnownHostsFile)
			fmt.Fprintf(out, "scratch_dir      = %s\n", cfg.Transfer.ScratchDir)
			fmt.Fprintf(out, "extract_folders  = %t\n", cfg.Transfer.ExtractFolders)
			fmt.Fprintf(out, "level            = %s\n", cfg.LogLevel)
			return nil
		},
	}
}

// newConfigSetCmd creates the 'config set' command.
func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Long: `Set one configuration value and save the file.

Keys:
  host, port, user, identity_file, host_key_policy, known_hosts_file,
  scratch_dir, extract_folders, level

Examples:
  prosftp config set host login.example.com
  prosftp config set user jdoe
  prosftp config set identity_file ~/.ssh/id_ed25519`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			if err := applyConfigKey(cfg, args[0], args[1]); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(cfg, cfgFile); err != nil {
				return err
			}
			GetLogger().Infof("set %s = %s", args[0], args[1])
			return nil
		},
	}
}

func applyConfigKey(cfg *config.Config, key, value string) error {
	switch key {
	case "host":
		cfg.Host = value
	case "port":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("port must be a number: %q", value)
		}
		cfg.Port = port
	case "user":
		cfg.User = value
	case "identity_file":
		cfg.IdentityFile = value
	case "host_key_policy":
		cfg.Security.HostKeyPolicy = value
	case "known_hosts_file":
		cfg.Security.KnownHostsFile = value
	case "scratch_dir":
		cfg.Transfer.ScratchDir = value
	case "extract_folders":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("extract_folders must be true or false: %q", value)
		}
		cfg.Transfer.ExtractFolders = b
	case "level":
		cfg.LogLevel = value
	default:
		return fmt.Errorf("unknown config key %q", key)
	}
	return nil
}

// newConfigPathCmd creates the 'config path' command.
func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := cfgFile
			if path == "" {
				var err error
				path, err = config.DefaultConfigPath()
				if err != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
}
