// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/gscientist/internal/project"
	"github.com/pdiddy/gscientist/internal/search"
	"github.com/pdiddy/gscientist/pkg/types"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage research projects",
	Long: `Project manages research projects kept in a local SQLite database. Each
project has a workspace directory with the folders Literature Review,
Proposal, Experiment, and Manuscript. Search results saved with --project
are stored in the project and indexed for full-text search.`,
}

// openStore opens the configured project database.
func openStore() (*project.Store, error) {
	path := cfg.Project.DBPath
	if path == "" {
		path = project.DefaultDBPath()
	}
	return project.Open(path, logger.With().Str("component", "project").Logger())
}

var projectCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project and its workspace folders",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		workspace, _ := cmd.Flags().GetString("workspace")
		if workspace == "" {
			root := cfg.Project.WorkspaceRoot
			if root == "" {
				root = "."
			}
			workspace = filepath.Join(root, args[0])
		}
		p, err := store.CreateProject(cmd.Context(), args[0], workspace)
		if err != nil {
			return err
		}
		fmt.Printf("Created project %s (%s) at %s\n", p.Name, p.ID, p.WorkspacePath)
		return nil
	},
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List projects",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		projects, err := store.ListProjects(cmd.Context())
		if err != nil {
			return err
		}
		if len(projects) == 0 {
			fmt.Println("No projects.")
			return nil
		}
		fmt.Printf("%-24s  %-36s  %s\n", "Name", "ID", "Workspace")
		fmt.Println(strings.Repeat("-", 100))
		for _, p := range projects {
			fmt.Printf("%-24s  %-36s  %s\n", p.Name, p.ID, p.WorkspacePath)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <project>",
	Short: "Show a project's folder structure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		folders, err := store.ProjectStructure(cmd.Context(), p.ID)
		if err != nil {
			return err
		}

		fmt.Printf("%s  (%s)\n", p.Name, p.WorkspacePath)
		depth := map[string]int{"": 0}
		for _, f := range folders {
			d := depth[f.ParentID] + 1
			depth[f.ID] = d
			fmt.Printf("%s%s\n", strings.Repeat("  ", d), f.Name)
		}
		return nil
	},
}

var projectRenameCmd = &cobra.Command{
	Use:   "rename <project> <new-name>",
	Short: "Rename a project",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return store.RenameProject(cmd.Context(), p.ID, args[1])
	},
}

var projectDeleteCmd = &cobra.Command{
	Use:   "delete <project>",
	Short: "Delete a project from the database (workspace files are kept)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if err := store.DeleteProject(cmd.Context(), p.ID); err != nil {
			return err
		}
		fmt.Printf("Deleted project %s\n", p.Name)
		return nil
	},
}

var projectMkdirCmd = &cobra.Command{
	Use:   "mkdir <project> <folder>",
	Short: "Create a folder in a project",
	Long: `Mkdir creates a folder at the project root, or under the top-level folder
named by --parent.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		p, err := store.Resolve(ctx, args[0])
		if err != nil {
			return err
		}
		var parentID string
		if parent, _ := cmd.Flags().GetString("parent"); parent != "" {
			f, err := store.FolderByName(ctx, p.ID, parent)
			if err != nil {
				return fmt.Errorf("parent folder %q: %w", parent, err)
			}
			parentID = f.ID
		}
		f, err := store.CreateFolder(ctx, p.ID, parentID, args[1])
		if err != nil {
			return err
		}
		fmt.Printf("Created %s\n", f.Path)
		return nil
	},
}

var projectImportCmd = &cobra.Command{
	Use:   "import <registry.yaml>",
	Short: "Import projects from a name: workspace YAML registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		n, err := store.ImportRegistry(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d project(s)\n", n)
		return nil
	},
}

var projectPapersCmd = &cobra.Command{
	Use:   "papers <project>",
	Short: "List the papers saved in a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		papers, err := store.ListPapers(cmd.Context(), p.ID)
		if err != nil {
			return err
		}
		return printPapers(cmd, papers)
	},
}

var projectFindCmd = &cobra.Command{
	Use:   "find <project> <terms...>",
	Short: "Full-text search over a project's saved papers",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		p, err := store.Resolve(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")
		papers, err := store.SearchPapers(cmd.Context(), p.ID, strings.Join(args[1:], " "), limit)
		if err != nil {
			return err
		}
		return printPapers(cmd, papers)
	},
}

// printPapers writes papers as a table, or as JSON with --json, and
// exports them when --output is set.
func printPapers(cmd *cobra.Command, papers []types.Paper) error {
	res := search.Result{Papers: papers}
	if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
		if err := search.FormatJSON(res, os.Stdout); err != nil {
			return err
		}
	} else {
		search.FormatTable(res, os.Stdout)
	}
	if output, _ := cmd.Flags().GetString("output"); output != "" {
		return exportResults(cmd, papers, output)
	}
	return nil
}

func init() {
	projectCreateCmd.Flags().String("workspace", "", "workspace directory (default: <project.workspace_root>/<name>)")
	projectMkdirCmd.Flags().String("parent", "", "name of the top-level folder to create under")

	for _, c := range []*cobra.Command{projectPapersCmd, projectFindCmd} {
		c.Flags().Bool("json", false, "print papers as JSON")
		c.Flags().String("output", "", "export papers to this file")
		c.Flags().String("format", "", "export format: csv, json, yaml, excel, csl (default: from extension)")
	}
	projectFindCmd.Flags().Int("limit", 20, "maximum number of matches")

	projectCmd.AddCommand(projectCreateCmd)
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRenameCmd)
	projectCmd.AddCommand(projectDeleteCmd)
	projectCmd.AddCommand(projectMkdirCmd)
	projectCmd.AddCommand(projectImportCmd)
	projectCmd.AddCommand(projectPapersCmd)
	projectCmd.AddCommand(projectFindCmd)

	rootCmd.AddCommand(projectCmd)
}
