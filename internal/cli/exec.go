package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/prosftp/prosftp/internal/remote"
)

// newExecCmd creates the 'exec' command.
func newExecCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "exec <command...>",
		Short: "Run a command on the remote host",
		Long: `Run a command on the remote host and print its output. The remote
command's exit code becomes prosftp's exit code.

Examples:
  prosftp exec uname -a
  prosftp exec "df -h /data"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			session, err := connectSession(cfg)
			if err != nil {
				return err
			}
			defer session.Disconnect()

			command := strings.Join(args, " ")
			exitCode, stdout, stderr, err := session.Exec(GetContext(), command)
			if err != nil {
				return err
			}

			if stdout != "" {
				fmt.Fprint(os.Stdout, stdout)
			}
			if stderr != "" {
				fmt.Fprint(os.Stderr, stderr)
			}
			if exitCode != 0 {
				// Report the failure but keep stdout/stderr as printed above.
				return &remote.RemoteCommandError{Command: command, ExitCode: exitCode, Stderr: stderr}
			}
			return nil
		},
	}
}
