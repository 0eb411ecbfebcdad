package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewalker/internal/config"
	"github.com/nao1215/sitewalker/internal/model"
	"github.com/nao1215/sitewalker/internal/walker"
)

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <file|key|id>",
		Short: "Walk a site for a number of steps",
		Long: `Run performs walk steps on a site.

When a site file is given it is stored first, as with "add". A step
dequeues the highest priority page, fetches it, and runs every matching
walker. The run ends after the requested number of steps, when the queue
is empty, or on the first error.

Examples:
  # Queue the root page again and walk 10 steps
  sitewalker run site.yaml -r -t 10

  # Start over: forget every page, then walk
  sitewalker run example -c -t 100

  # Re-run the head of the queue without removing it
  sitewalker run example -p`,
		Args: cobra.ExactArgs(1),
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("times", "t", config.DefaultSteps,
		"Number of steps to perform")
	cmd.Flags().BoolP("peek", "p", false,
		"Leave processed entries in the queue")
	cmd.Flags().BoolP("clear", "c", false,
		"Delete every page and queue entry of the site before walking")
	cmd.Flags().BoolP("reset", "r", false,
		"Empty the queue and queue the root page before walking")

	return cmd
}

// runOptions holds the run command flags.
type runOptions struct {
	times int
	peek  bool
	clear bool
	reset bool
}

func getRunOptions(cmd *cobra.Command) (runOptions, error) {
	var (
		opts runOptions
		err  error
	)
	if opts.times, err = cmd.Flags().GetInt("times"); err != nil {
		return opts, err
	}
	if opts.times < 0 {
		return opts, fmt.Errorf("--times must not be negative: %d", opts.times)
	}
	if opts.peek, err = cmd.Flags().GetBool("peek"); err != nil {
		return opts, err
	}
	if opts.clear, err = cmd.Flags().GetBool("clear"); err != nil {
		return opts, err
	}
	if opts.reset, err = cmd.Flags().GetBool("reset"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runRunCmd executes the run command.
func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := getRunOptions(cmd)
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	// Cancel the walk on interrupt; the current request is aborted and
	// already committed progress stays in the database.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	site, err := resolveSite(ctx, db, args[0], true)
	if err != nil {
		return err
	}

	m, err := newManager(cfg, db, site, logger, walker.WithPeek(opts.peek))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.clear {
		if err := m.ClearPages(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "pages cleared")
	}
	if opts.reset {
		if err := m.ResetQueue(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "queue reset")
	}

	total, err := m.Run(ctx, opts.times, func(i int, stat model.WalkerStat) {
		fmt.Fprintf(out, "[%d/%d] %s\n", i, opts.times, stat)
	})
	switch {
	case errors.Is(err, walker.ErrQueueEmpty):
		fmt.Fprintln(out, "queue is empty")
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(out, "interrupted")
	case err != nil:
		return fmt.Errorf("step failed on site %q: %w", site.Key, err)
	}

	fmt.Fprintf(out, "total %s\n", total)
	return nil
}
