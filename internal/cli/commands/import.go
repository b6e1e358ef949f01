package commands

import (
	"fmt"

	"github.com/AlecAivazis/survey/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packsmith-editor/packsmith/internal/cli/ui"
	"github.com/packsmith-editor/packsmith/internal/importer"
)

// NewImportCommand creates the import command
func NewImportCommand() *cobra.Command {
	var yes bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "import <legacy-file>",
		Short: "Import a legacy monolithic package document",
		Long: `Decompose a legacy monolithic package export into discrete library
records and a fresh manifest. The package receives a new ID; the legacy
document itself is never stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			if !yes {
				confirmed := false
				prompt := &survey.Confirm{
					Message: fmt.Sprintf("Import %s into this workspace?", args[0]),
					Default: true,
				}
				if err := survey.AskOne(prompt, &confirmed); err != nil {
					return err
				}
				if !confirmed {
					color.Yellow("Import cancelled.")
					return nil
				}
			}

			var result *importer.Result
			err = ui.WithSpinner(cmd.OutOrStdout(), "Importing "+args[0], func() error {
				var importErr error
				result, importErr = importer.NewImporter(ws.resources, ws.packages, ws.logger).ImportFile(args[0])
				return importErr
			})
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(),
					ui.ImportError(err.Error(), "No package was created.", false))
				return err
			}

			color.Green("Imported package %q", result.Index.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "  id:       %s\n", result.Index.PackageID)
			fmt.Fprintf(cmd.OutOrStdout(), "  imported: %d record(s)\n", result.Imported)
			if result.Skipped > 0 {
				color.Yellow("  skipped:  %d record(s) failed to persist", result.Skipped)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
