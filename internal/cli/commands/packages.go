package commands

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/packsmith-editor/packsmith/internal/cli/ui"
	"github.com/packsmith-editor/packsmith/internal/pack"
)

// NewPackagesCommand creates the packages command group
func NewPackagesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "packages",
		Short: "Inspect and manage package manifests",
	}

	cmd.AddCommand(newPackagesListCommand())
	cmd.AddCommand(newPackagesCreateCommand())
	cmd.AddCommand(newPackagesOpenCommand())

	return cmd
}

func newPackagesListCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List every package in the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			infos, err := ws.packages.ListPackages()
			if err != nil {
				return err
			}
			lastOpened, err := ws.packages.LastOpened()
			if err != nil {
				return err
			}

			if len(infos) == 0 {
				color.Yellow("No packages found.")
				return nil
			}

			table := ui.NewTable(cmd.OutOrStdout(), []string{"", "Name", "ID", "Description"})
			for _, info := range infos {
				marker := ""
				if info.PackageID == lastOpened {
					marker = "*"
				}
				table.AddRow(marker, info.Name, info.PackageID, info.Description)
			}
			table.Render()
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}

func newPackagesCreateCommand() *cobra.Command {
	var description string
	var verbose bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			idx, err := ws.packages.CreatePackage(args[0])
			if err != nil {
				return err
			}
			if description != "" {
				idx.Description = description
				if err := ws.packages.SaveIndex(idx); err != nil {
					return err
				}
			}

			color.Green("Created package %q", idx.Name)
			fmt.Fprintf(cmd.OutOrStdout(), "  id: %s\n", idx.PackageID)
			return nil
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Package description")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}

func newPackagesOpenCommand() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "open <package-id>",
		Short: "Record the last-opened package",
		Long: fmt.Sprintf(`Record which package the editor should reopen.

The reserved identifiers %q and %q select the synthetic all-resources and
unreferenced-resources views.`, pack.GlobalViewID, pack.UnclassifiedViewID),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace(verbose)
			if err != nil {
				return err
			}

			packageID := args[0]
			if packageID != pack.GlobalViewID && packageID != pack.UnclassifiedViewID {
				idx, err := ws.packages.LoadIndex(packageID)
				if err != nil {
					return err
				}
				if idx == nil {
					infos, err := ws.packages.ListPackages()
					if err != nil {
						return err
					}
					var known []string
					for _, info := range infos {
						known = append(known, info.PackageID, info.Name)
					}
					suggestions := ui.FindSimilar(packageID, known)
					fmt.Fprint(cmd.ErrOrStderr(), ui.PackageNotFoundError(packageID, suggestions, false))
					return fmt.Errorf("no package with id %q", packageID)
				}
			}

			if err := ws.packages.SetLastOpened(packageID); err != nil {
				return err
			}
			color.Green("Last-opened package set to %s", packageID)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	return cmd
}
