package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packsmith-editor/packsmith/internal/validate"
)

// NewValidateCommand creates the validate command
func NewValidateCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check manifests and the library for consistency problems",
		Long: `Run the workspace consistency pass: dangling manifest references,
malformed resource files, resources claimed by multiple packages, and
missing level entities. Findings are reported, never repaired.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			report, err := validate.NewValidator(ws.resources, ws.packages, ws.logger).Run()
			if err != nil {
				return err
			}

			if !report.HasIssues() {
				color.Green("Workspace is consistent.")
				return nil
			}

			for _, issue := range report.Issues {
				color.Yellow("  %s", issue.String())
			}
			return fmt.Errorf("%d consistency issue(s) found", report.Count())
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
