package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/nforsman/scandir"
)

// NewCountCommand creates the count subcommand.
func NewCountCommand() *cobra.Command {
	flags := &scanFlags{}

	cmd := &cobra.Command{
		Use:   "count [path]",
		Short: "Count a directory tree without listing it",
		Long: `Count walks the tree rooted at path (default ".") and prints
aggregate totals. With --extended it also sums sizes, disk usage, and
hardlink counts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runCount(ctx, cmd.OutOrStdout(), path, flags.options())
		},
		SilenceUsage: true,
	}

	flags.register(cmd)

	return cmd
}

func runCount(ctx context.Context, out io.Writer, path string, opts *scandir.Options) error {
	counter, err := scandir.NewCount(path, opts)
	if err != nil {
		return err
	}
	stats, err := counter.Collect(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Dirs:      %s\n", humanize.Comma(stats.Dirs))
	fmt.Fprintf(out, "Files:     %s\n", humanize.Comma(stats.Files))
	fmt.Fprintf(out, "Symlinks:  %s\n", humanize.Comma(stats.Symlinks))
	fmt.Fprintf(out, "Other:     %s\n", humanize.Comma(stats.Other))
	if opts.ReturnType == scandir.ReturnExtended {
		fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(stats.Size)))
		fmt.Fprintf(out, "Usage:     %s\n", humanize.IBytes(uint64(stats.Usage)))
		fmt.Fprintf(out, "Hardlinks: %s\n", humanize.Comma(stats.Hardlinks))
	}
	fmt.Fprintf(out, "Errors:    %s\n", humanize.Comma(int64(len(stats.Errors))))
	fmt.Fprintf(out, "Duration:  %s\n", stats.Duration.Round(time.Millisecond))

	if len(stats.Errors) > 0 {
		errC := color.New(color.FgRed)
		useColor := isatty.IsTerminal(os.Stderr.Fd())
		for _, e := range stats.Errors {
			line := fmt.Sprintf("error  %s: %s", e.Path, e.Message)
			if useColor {
				line = errC.Sprint(line)
			}
			fmt.Fprintln(os.Stderr, line)
		}
	}
	return nil
}
