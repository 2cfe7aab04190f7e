// Package cli provides the command-line interface for prosftp.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/prosftp/prosftp/internal/logging"
	"github.com/prosftp/prosftp/internal/version"
)

var (
	// Global flags
	cfgFile         string
	flagHost        string
	flagPort        int
	flagUser        string
	flagIdentity    string
	passwordStdin   bool
	insecureHostKey bool
	scratchDir      string
	verbose         bool
	quiet           bool

	// Global logger
	logger *logging.Logger

	// Global context for signal handling
	rootContext context.Context
	cancelFunc  context.CancelFunc
)

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "prosftp",
		Short: "prosftp - SSH/SFTP transfer client",
		Long: `prosftp ` + version.Version + ` - Built: ` + version.BuildTime + `
File and folder transfers over SSH/SFTP.

Folders travel as a single .tar.gz archive: packed on the sending side,
unpacked on the receiving side, so a thousand small files cost one
round trip instead of a thousand.

Connection settings come from flags, PROSFTP_* environment variables, or
~/.config/prosftp/config, in that order of precedence.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = logging.NewDefaultCLILogger()
			if verbose {
				logging.SetGlobalLevel(-1) // zerolog.DebugLevel
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVarP(&flagHost, "host", "H", "", "Remote host (overrides config)")
	rootCmd.PersistentFlags().IntVarP(&flagPort, "port", "p", 0, "SSH port (overrides config, default 22)")
	rootCmd.PersistentFlags().StringVarP(&flagUser, "user", "u", "", "Remote user (overrides config)")
	rootCmd.PersistentFlags().StringVarP(&flagIdentity, "identity", "i", "", "Private key file for public key auth")
	rootCmd.PersistentFlags().BoolVar(&passwordStdin, "password-stdin", false, "Read the password from stdin instead of prompting")
	rootCmd.PersistentFlags().BoolVar(&insecureHostKey, "insecure-host-key", false, "Accept any host key (dangerous, explicit opt-in)")
	rootCmd.PersistentFlags().StringVar(&scratchDir, "scratch-dir", "", "Remote scratch directory for folder archives (default /tmp)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output (shows debug messages)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress bars and status lines")

	rootCmd.Version = version.Version + " (" + version.BuildTime + ")"

	return rootCmd
}

// Execute runs the CLI.
func Execute() error {
	rootContext, cancelFunc = context.WithCancel(context.Background())

	// Ctrl+C cancels the in-flight transfer at the next chunk boundary;
	// cleanup still runs before the process exits.
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range sigChan {
			if sig != nil {
				fmt.Fprintf(os.Stderr, "\nReceived signal %v, cancelling; waiting for cleanup...\n", sig)
				cancelFunc()
			}
		}
	}()

	rootCmd := NewRootCmd()
	AddCommands(rootCmd)
	err := rootCmd.Execute()

	signal.Stop(sigChan)
	close(sigChan)

	return err
}

// AddCommands adds all subcommands to the root command.
func AddCommands(rootCmd *cobra.Command) {
	rootCmd.AddCommand(newLsCmd())
	rootCmd.AddCommand(newLlsCmd())
	rootCmd.AddCommand(newMkdirCmd())
	rootCmd.AddCommand(newUploadCmd())
	rootCmd.AddCommand(newUploadFolderCmd())
	rootCmd.AddCommand(newDownloadCmd())
	rootCmd.AddCommand(newDownloadFolderCmd())
	rootCmd.AddCommand(newExecCmd())
	rootCmd.AddCommand(newConfigCmd())
}

// GetLogger returns the global CLI logger.
func GetLogger() *logging.Logger {
	if logger == nil {
		logger = logging.NewDefaultCLILogger()
	}
	return logger
}

// GetContext returns the global CLI context with signal handling.
// This context is cancelled when the user presses Ctrl+C.
func GetContext() context.Context {
	if rootContext == nil {
		return context.Background()
	}
	return rootContext
}
