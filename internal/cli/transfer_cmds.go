package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/prosftp/prosftp/internal/config"
	"github.com/prosftp/prosftp/internal/events"
	"github.com/prosftp/prosftp/internal/progress"
	"github.com/prosftp/prosftp/internal/transfer"
)

// withEngine wires up the session, event bus, renderer, and engine, runs fn,
// and tears everything down so the final bar state is flushed before the
// exit status prints.
func withEngine(batchSize int, fn func(ctx context.Context, engine *transfer.Engine, cfg *config.Config) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	session, err := connectSession(cfg)
	if err != nil {
		return err
	}
	defer session.Disconnect()

	bus := events.NewBus(0)
	renderer := progress.NewRenderer(bus, quiet)
	if batchSize > 1 {
		renderer.SetBatchSize(batchSize)
	}
	renderer.Start()

	engine := transfer.NewEngine(session, bus)
	engine.SetScratchDir(cfg.Transfer.ScratchDir)

	runErr := fn(GetContext(), engine, cfg)

	bus.Close()
	renderer.Wait()
	return runErr
}

// extractSetting resolves the per-command extract flags against the config
// default.
func extractSetting(cfg *config.Config, noExtract bool) bool {
	if noExtract {
		return false
	}
	return cfg.Transfer.ExtractFolders
}

// newUploadCmd creates the 'upload' command.
func newUploadCmd() *cobra.Command {
	var remoteDir string

	cmd := &cobra.Command{
		Use:   "upload <file> [file...]",
		Short: "Upload files to the remote host",
		Long: `Upload one or more local files into a remote directory, keeping their
names. Multiple files transfer sequentially with one progress bar each.

Examples:
  prosftp upload results.csv --dest /data/incoming
  prosftp upload input1.dat input2.dat mesh.geo --dest /data/incoming`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(len(args), func(ctx context.Context, engine *transfer.Engine, cfg *config.Config) error {
				if len(args) == 1 {
					_, err := engine.UploadFile(ctx, args[0], remoteDir)
					return err
				}
				_, err := engine.UploadFiles(ctx, args, remoteDir)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&remoteDir, "dest", "d", ".", "Remote destination directory")
	return cmd
}

// newDownloadCmd creates the 'download' command.
func newDownloadCmd() *cobra.Command {
	var localDir string

	cmd := &cobra.Command{
		Use:   "download <remote-file> [remote-file...]",
		Short: "Download files from the remote host",
		Long: `Download one or more remote files into a local directory, keeping their
names.

Examples:
  prosftp download /data/results/out.log
  prosftp download /data/results/out.log /data/results/err.log --dest ./results`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(len(args), func(ctx context.Context, engine *transfer.Engine, cfg *config.Config) error {
				if len(args) == 1 {
					_, err := engine.DownloadFile(ctx, args[0], localDir)
					return err
				}
				_, err := engine.DownloadFiles(ctx, args, localDir)
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&localDir, "dest", "d", ".", "Local destination directory")
	return cmd
}

// newUploadFolderCmd creates the 'upload-folder' command.
func newUploadFolderCmd() *cobra.Command {
	var remoteDir string
	var noExtract bool

	cmd := &cobra.Command{
		Use:   "upload-folder <dir>",
		Short: "Upload a directory tree as one archive",
		Long: `Pack a local directory into a .tar.gz, upload it, and unpack it on the
remote host, so the folder appears under its own name in the destination.
With --no-extract the archive itself is left in the destination instead.

Examples:
  prosftp upload-folder ./case042 --dest /data/incoming
  prosftp upload-folder ./case042 --dest /data/incoming --no-extract`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(1, func(ctx context.Context, engine *transfer.Engine, cfg *config.Config) error {
				_, err := engine.UploadFolder(ctx, args[0], remoteDir, extractSetting(cfg, noExtract))
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&remoteDir, "dest", "d", ".", "Remote destination directory")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "Leave the .tar.gz in the destination instead of unpacking it")
	return cmd
}

// newDownloadFolderCmd creates the 'download-folder' command.
func newDownloadFolderCmd() *cobra.Command {
	var localDir string
	var noExtract bool

	cmd := &cobra.Command{
		Use:   "download-folder <remote-dir>",
		Short: "Download a directory tree as one archive",
		Long: `Pack a remote directory into a .tar.gz on the host, download it, and
unpack it locally. The remote archive is staged under the scratch directory
(--scratch-dir, default /tmp) and removed afterwards. With --no-extract the
archive is kept as <name>.tar.gz in the destination.

Examples:
  prosftp download-folder /data/results/case042
  prosftp download-folder /data/results/case042 --dest ./results --no-extract`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(1, func(ctx context.Context, engine *transfer.Engine, cfg *config.Config) error {
				_, err := engine.DownloadFolder(ctx, args[0], localDir, extractSetting(cfg, noExtract))
				return err
			})
		},
	}

	cmd.Flags().StringVarP(&localDir, "dest", "d", ".", "Local destination directory")
	cmd.Flags().BoolVar(&noExtract, "no-extract", false, "Keep the .tar.gz instead of unpacking it")
	return cmd
}
