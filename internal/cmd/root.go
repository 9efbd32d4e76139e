// Package cmd builds the scandir command tree.
package cmd

import (
	"github.com/spf13/cobra"

	"github.com/nforsman/scandir"
)

// Version is injected at build time via -ldflags; defaults to "dev".
var Version = "dev"

// NewRootCommand creates the root scandir command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scandir",
		Short: "Fast filtered filesystem traversal",
		Long: `Scandir walks directory trees with glob filtering, depth and file
limits, and optional extended metadata.

scan streams every entry to stdout, count prints aggregate totals, and
serve runs the scan service with scheduled scans, history, and an HTTP API.`,
		Version:      Version,
		SilenceUsage: true,
	}

	cmd.AddCommand(NewScanCommand())
	cmd.AddCommand(NewCountCommand())
	cmd.AddCommand(NewServeCommand())

	return cmd
}

// scanFlags holds the traversal flags shared by scan and count.
type scanFlags struct {
	extended      bool
	sorted        bool
	skipHidden    bool
	maxDepth      int
	maxFiles      int
	dirInclude    []string
	dirExclude    []string
	fileInclude   []string
	fileExclude   []string
	caseSensitive bool
}

func (f *scanFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.BoolVarP(&f.extended, "extended", "x", false, "collect size, timestamps and ownership metadata")
	fl.BoolVar(&f.sorted, "sorted", false, "walk directory listings in lexical order")
	fl.BoolVar(&f.skipHidden, "skip-hidden", false, "skip hidden files and directories")
	fl.IntVar(&f.maxDepth, "max-depth", 0, "descend at most this many levels (0 = unlimited)")
	fl.IntVar(&f.maxFiles, "max-files", 0, "stop after this many files (0 = unlimited)")
	fl.StringSliceVar(&f.dirInclude, "dir-include", nil, "directory name globs to descend into")
	fl.StringSliceVar(&f.dirExclude, "dir-exclude", nil, "directory name globs to prune")
	fl.StringSliceVar(&f.fileInclude, "file-include", nil, "file name globs to report")
	fl.StringSliceVar(&f.fileExclude, "file-exclude", nil, "file name globs to drop")
	fl.BoolVar(&f.caseSensitive, "case-sensitive", false, "match globs case-sensitively")
}

func (f *scanFlags) options() *scandir.Options {
	rt := scandir.ReturnBasic
	if f.extended {
		rt = scandir.ReturnExtended
	}
	return &scandir.Options{
		Sorted:        f.sorted,
		SkipHidden:    f.skipHidden,
		MaxDepth:      f.maxDepth,
		MaxFiles:      f.maxFiles,
		DirInclude:    f.dirInclude,
		DirExclude:    f.dirExclude,
		FileInclude:   f.fileInclude,
		FileExclude:   f.fileExclude,
		CaseSensitive: f.caseSensitive,
		ReturnType:    rt,
	}
}
