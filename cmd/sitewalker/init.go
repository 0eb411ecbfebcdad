package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewalker/internal/config"
)

//go:embed templates/site.yaml
var siteTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a site definition template",
		Long: `Init writes a commented site definition to the current directory.

The generated file includes:
- The site key, title and root URL
- An extract walker that follows links from the root page
- An image walker that downloads pictures from matching pages

Examples:
  # Create site.yaml in current directory
  sitewalker init

  # Create the file at a specific path
  sitewalker init -o sites/blog.yaml

  # Force overwrite existing file
  sitewalker init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultSiteFile,
		"Output file path for the site definition")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("site file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := siteTemplate.ReadFile("templates/site.yaml")
	if err != nil {
		return fmt.Errorf("failed to read site template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write site file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created site file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit the key, title, url and walkers, then run:")
	fmt.Fprintf(out, "  sitewalker run %s -r\n", outputPath)

	return nil
}
