package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/prosftp/prosftp/internal/localfs"
	"github.com/prosftp/prosftp/internal/remote"
)

// newLsCmd creates the 'ls' command for remote listings.
func newLsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [path]",
		Short: "List a remote directory",
		Long: `List the contents of a remote directory, directories first, then files,
each group sorted case-insensitively.

Examples:
  prosftp ls
  prosftp ls /data/results
  prosftp ls -l /data/results`,
		Args: cobra.MaximumNArgs(1),
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

			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			lister := remote.NewLister(session, "/")
			entries, err := lister.List(dir)
			if err != nil {
				return err
			}

			if !long {
				for _, entry := range entries {
					name := entry.Name
					if entry.IsDir {
						name += "/"
					}
					fmt.Println(name)
				}
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
			for _, entry := range entries {
				kind := "-"
				size := fmt.Sprintf("%d", entry.Size)
				if entry.IsDir {
					kind = "d"
					size = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					kind, size, entry.ModTime.Format("2006-01-02 15:04"), entry.Name)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVarP(&long, "long", "l", false, "Long format with size and modification time")
	return cmd
}

// newLlsCmd creates the 'lls' command for local listings, with the same
// ordering as remote ones.
func newLlsCmd() *cobra.Command {
	var showHidden bool

	cmd := &cobra.Command{
		Use:   "lls [path]",
		Short: "List a local directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}

			entries, err := localfs.ListDirectory(dir, localfs.ListOptions{IncludeHidden: showHidden})
			if err != nil {
				return err
			}
			for _, entry := range entries {
				name := entry.Name
				if entry.IsDir {
					name += "/"
				}
				fmt.Println(name)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&showHidden, "all", "a", false, "Include hidden entries")
	return cmd
}

// newMkdirCmd creates the 'mkdir' command.
func newMkdirCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mkdir <path>",
		Short: "Create a remote directory",
		Long: `Create a remote directory, including any missing parents.
Creating a directory that already exists is not an error.`,
		Args: cobra.ExactArgs(1),
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

			lister := remote.NewLister(session, "/")
			if err := lister.MakeDirectory(args[0]); err != nil {
				return err
			}
			GetLogger().Infof("created %s", args[0])
			return nil
		},
	}
}
