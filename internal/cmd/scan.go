package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
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

// NewScanCommand creates the scan subcommand.
func NewScanCommand() *cobra.Command {
	flags := &scanFlags{}
	var quiet, jsonOut bool

	cmd := &cobra.Command{
		Use:   "scan [path]",
		Short: "Stream directory entries to stdout",
		Long: `Scan walks the tree rooted at path (default ".") and streams every
entry as it is found. Errors go to stderr; a summary line closes the
output. Interrupting with Ctrl-C stops the walk and prints the summary
for what was seen. With --json every result, errors included, is one
JSON object per line on stdout and no summary is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "."
			if len(args) == 1 {
				path = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScan(ctx, cmd.OutOrStdout(), path, flags.options(), quiet, jsonOut)
		},
		SilenceUsage: true,
	}

	flags.register(cmd)
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "print only the summary")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit one JSON object per result line")

	return cmd
}

// scanTally accumulates listing totals for the summary line.
type scanTally struct {
	dirs, files, symlinks, others, errs int64
	size                                int64
}

func (t *scanTally) entries() int64 {
	return t.dirs + t.files + t.symlinks + t.others
}

func runScan(ctx context.Context, out io.Writer, path string, opts *scandir.Options, quiet, jsonOut bool) error {
	opts.Store = false
	eng, err := scandir.New(path, opts)
	if err != nil {
		return err
	}
	seq, err := eng.Iter(ctx)
	if err != nil {
		return err
	}
	if jsonOut {
		return streamJSON(out, seq)
	}

	colorOutput := isatty.IsTerminal(os.Stdout.Fd())
	tag := kindTagger(colorOutput)
	errC := color.New(color.FgRed)

	var tally scanTally
	for res := range seq {
		if res.Err != nil {
			tally.errs++
			line := fmt.Sprintf("error  %s: %s", res.Err.Path, res.Err.Message)
			if colorOutput {
				line = errC.Sprint(line)
			}
			fmt.Fprintln(os.Stderr, line)
			continue
		}
		e := res.Entry
		switch e.Kind {
		case scandir.KindDir:
			tally.dirs++
		case scandir.KindFile:
			tally.files++
		case scandir.KindSymlink:
			tally.symlinks++
		default:
			tally.others++
		}
		if e.Meta != nil {
			tally.size += e.Meta.Size
		}
		if quiet {
			continue
		}
		if e.Meta != nil {
			fmt.Fprintf(out, "%s  %9s  %s\n", tag(e.Kind), humanize.IBytes(uint64(e.Meta.Size)), e.Path)
		} else {
			fmt.Fprintf(out, "%s  %s\n", tag(e.Kind), e.Path)
		}
	}

	printScanSummary(out, &tally, eng.Duration(), opts.ReturnType == scandir.ReturnExtended, ctx.Err() != nil)
	return nil
}

// scanLine is one --json output record. Entry lines carry kind (and
// size/mtime in extended mode); error lines carry the error field.
type scanLine struct {
	Path  string `json:"path"`
	Kind  string `json:"kind,omitempty"`
	Size  *int64 `json:"size,omitempty"`
	MTime string `json:"mtime,omitempty"`
	Error string `json:"error,omitempty"`
}

func streamJSON(out io.Writer, seq iter.Seq[scandir.Result]) error {
	enc := json.NewEncoder(out)
	for res := range seq {
		var line scanLine
		if res.Err != nil {
			line = scanLine{Path: res.Err.Path, Error: res.Err.Message}
		} else {
			line = scanLine{Path: res.Entry.Path, Kind: res.Entry.Kind.String()}
			if m := res.Entry.Meta; m != nil {
				size := m.Size
				line.Size = &size
				line.MTime = m.MTime.UTC().Format(time.RFC3339)
			}
		}
		if err := enc.Encode(line); err != nil {
			return err
		}
	}
	return nil
}

// kindTagger returns the single-letter kind column formatter.
func kindTagger(colorOutput bool) func(scandir.Kind) string {
	if !colorOutput {
		return func(k scandir.Kind) string {
			return plainTag(k)
		}
	}
	dirC := color.New(color.FgBlue, color.Bold)
	linkC := color.New(color.FgCyan)
	otherC := color.New(color.FgYellow)
	return func(k scandir.Kind) string {
		switch k {
		case scandir.KindDir:
			return dirC.Sprint("d")
		case scandir.KindSymlink:
			return linkC.Sprint("l")
		case scandir.KindFile:
			return "f"
		default:
			return otherC.Sprint("o")
		}
	}
}

func plainTag(k scandir.Kind) string {
	switch k {
	case scandir.KindDir:
		return "d"
	case scandir.KindSymlink:
		return "l"
	case scandir.KindFile:
		return "f"
	default:
		return "o"
	}
}

func printScanSummary(out io.Writer, tally *scanTally, d time.Duration, extended, interrupted bool) {
	summary := fmt.Sprintf("%s dirs, %s files, %s symlinks, %s errors",
		humanize.Comma(tally.dirs), humanize.Comma(tally.files),
		humanize.Comma(tally.symlinks), humanize.Comma(tally.errs))
	if extended {
		summary += ", " + humanize.IBytes(uint64(tally.size))
	}
	if secs := d.Seconds(); secs > 0 {
		summary += fmt.Sprintf(" in %s (%.0f entries/s)",
			d.Round(time.Millisecond), float64(tally.entries())/secs)
	}
	if interrupted {
		summary += " [interrupted]"
	}
	fmt.Fprintln(out, summary)
}
