package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add <file>",
		Short: "Register or update a site from its definition file",
		Long: `Add stores the site described in a YAML file.

A site whose key already exists is updated and its walkers are replaced;
discovered pages and the queue are kept. A site without any page gets its
root URL queued so that the first run has something to fetch.

Examples:
  sitewalker add site.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: runAddCmd,
	}
}

// runAddCmd executes the add command.
func runAddCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)
	ctx := cmd.Context()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	site, err := addSite(ctx, db, args[0])
	if err != nil {
		return err
	}

	pages, err := db.ListPages(ctx, site)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		m, err := newManager(cfg, db, site, logger)
		if err != nil {
			return err
		}
		if err := m.ResetQueue(ctx); err != nil {
			return err
		}
	}

	fmt.Fprintf(cmd.OutOrStdout(), "site %q stored (id: %d, walkers: %d)\n", site.Key, site.ID, len(site.Rules))
	return nil
}
