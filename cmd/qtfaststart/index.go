package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/scott-cotton/cli"

	"github.com/danielgtaylor/qtfaststart/pkg/atomic"
)

func dumpIndex(cfg *IndexConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Cmd.Parse(cc, args)
	if err != nil {
		cfg.Cmd.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: index needs at least one file", cli.ErrUsage)
	}

	for _, path := range args {
		if len(args) > 1 {
			fmt.Fprintf(cc.Out, "%s:\n", path)
		}
		if err := dumpOne(cfg, cc, path); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	return nil
}

func dumpOne(cfg *IndexConfig, cc *cli.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	index, err := atomic.Scan(f)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cc.Out, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tOFFSET\tSIZE")
	for _, atom := range index.Atoms {
		typ := atom.Type
		if atom.IsZeroAtom() {
			typ = "(zero)"
		}
		fmt.Fprintf(w, "%s\t%d\t%d\n", typ, atom.Offset, atom.Size)
	}
	return w.Flush()
}
