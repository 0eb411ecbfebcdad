package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewalker/internal/config"
	"github.com/nao1215/sitewalker/internal/database"
	swlog "github.com/nao1215/sitewalker/internal/log"
)

// NewRootCmd creates the root command for sitewalker.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sitewalker",
		Short: "Step-by-step web site walker",
		Long: `sitewalker walks a single web site one page at a time.

Sites are described in YAML files with a list of walker rules. Each step
dequeues the next page, fetches it, and runs every rule whose URL pattern
matches: "extract" rules queue new links, "image" rules download the
linked files into a folder per site and parent page.

Progress is kept in a SQLite database, so a walk can be stopped and
resumed at any time.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	flags := cmd.PersistentFlags()
	flags.BoolP("verbose", "v", false, "Enable verbose logging")
	flags.String("db-dir", "", "Directory of the database (default: XDG data directory)")
	flags.String("download-dir", "", "Root directory for downloaded files (default: <data dir>/downloads)")
	flags.Duration("interval", config.DefaultRequestInterval, "Minimum interval between two requests")
	flags.Duration("timeout", config.DefaultTimeout, "Timeout for each request")
	flags.String("user-agent", config.DefaultUserAgent, "User-Agent header sent with requests")
	flags.String("proxy", "", "Route requests through a SOCKS5 proxy (host:port)")

	// Add subcommands
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewAddCmd())
	cmd.AddCommand(NewListCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewRunCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildConfig creates a Config from the persistent flags.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.Verbose, err = flags.GetBool("verbose"); err != nil {
		return nil, err
	}

	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}

	downloadDir, err := flags.GetString("download-dir")
	if err != nil {
		return nil, err
	}
	if downloadDir != "" {
		cfg.DownloadDir = downloadDir
	}

	if cfg.RequestInterval, err = flags.GetDuration("interval"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the process logger on stderr.
func setupLogger(cfg *config.Config) *slog.Logger {
	return swlog.NewLogger(os.Stderr, cfg.Verbose)
}

// openDB opens (and creates if needed) the site database.
func openDB(cfg *config.Config) (*database.SiteDB, error) {
	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}
