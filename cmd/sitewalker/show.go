package main

import (
	"errors"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitewalker/internal/report"
)

// errFormatConflict is returned when more than one output format is requested.
var errFormatConflict = errors.New("--json and --markdown are mutually exclusive")

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <file|key|id>",
		Short: "Show a site with its queue and page tree",
		Long: `Show prints a site's counters, walkers, queued pages and the tree of
discovered pages built from their parent links.

Examples:
  sitewalker show example
  sitewalker show site.yaml --markdown > example.md
  sitewalker show 1 --json`,
		Args: cobra.ExactArgs(1),
		RunE: runShowCmd,
	}
	addFormatFlags(cmd)
	cmd.Flags().Bool("no-pages", false, "Omit the page tree (text output only)")
	return cmd
}

// addFormatFlags registers the output format flags.
func addFormatFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown (mutually exclusive with --json)")
}

// reportWriter picks the writer selected by the format flags.
func reportWriter(cmd *cobra.Command) (report.Writer, error) {
	jsonOut, err := cmd.Flags().GetBool("json")
	if err != nil {
		return nil, err
	}
	markdownOut, err := cmd.Flags().GetBool("markdown")
	if err != nil {
		return nil, err
	}

	out := cmd.OutOrStdout()
	switch {
	case jsonOut && markdownOut:
		return nil, errFormatConflict
	case jsonOut:
		return report.NewJSONWriter(out, report.WithPrettyPrint()), nil
	case markdownOut:
		return report.NewMarkdownWriter(out), nil
	}

	var opts []report.SimpleWriterOption
	if f := cmd.Flags().Lookup("no-pages"); f != nil {
		if hide, err := strconv.ParseBool(f.Value.String()); err == nil && hide {
			opts = append(opts, report.WithPages(false))
		}
	}
	return report.NewSimpleWriter(out, opts...), nil
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	w, err := reportWriter(cmd)
	if err != nil {
		return err
	}

	db, err := openDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	site, err := resolveSite(ctx, db, args[0], false)
	if err != nil {
		return err
	}

	dump, err := db.Dump(ctx, strconv.FormatInt(site.ID, 10))
	if err != nil {
		return err
	}

	_, err = w.WriteSite(dump)
	return err
}
