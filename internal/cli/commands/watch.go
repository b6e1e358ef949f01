package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packsmith-editor/packsmith/internal/watch"
)

// NewWatchCommand creates the watch command
func NewWatchCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the workspace for out-of-band changes",
		Long: `Watch the library and package directories and report externally-made
changes. Each batch resyncs the library fingerprint, so an editor session
sharing the workspace never overwrites files another tool rewrote.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			roots := []string{ws.cfg.Workspace.Library, ws.cfg.Workspace.Packages}
			watcher, err := watch.NewLibraryWatcher(roots, ws.cfg.WatchDebounce(), func(files []string) error {
				color.Cyan("Changed: %d file(s)", len(files))
				for _, file := range files {
					fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", file)
				}
				return ws.resources.RefreshFingerprint()
			}, ws.logger)
			if err != nil {
				return err
			}

			if err := watcher.Start(); err != nil {
				return err
			}
			defer watcher.Stop()

			color.Green("Watching %s and %s (ctrl-c to stop)",
				ws.cfg.Workspace.Library, ws.cfg.Workspace.Packages)

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			<-stop
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
