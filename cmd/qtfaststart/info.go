package main

import (
	"encoding/json"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/danielgtaylor/qtfaststart/internal/analyzer"
)

func info(cfg *InfoConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Cmd.Parse(cc, args)
	if err != nil {
		cfg.Cmd.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: info needs at least one file", cli.ErrUsage)
	}

	for _, path := range args {
		md, err := analyzer.GetMetadata(path)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		if cfg.JSON {
			enc := json.NewEncoder(cc.Out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(md); err != nil {
				return err
			}
			continue
		}

		fmt.Fprintf(cc.Out, "%s\n", path)
		fmt.Fprintf(cc.Out, "  size:       %d bytes\n", md.Size)
		fmt.Fprintf(cc.Out, "  duration:   %.2fs\n", md.Duration)
		if md.Width > 0 || md.Height > 0 {
			fmt.Fprintf(cc.Out, "  dimensions: %dx%d\n", md.Width, md.Height)
		}
		if md.Codec != "" {
			fmt.Fprintf(cc.Out, "  codec:      %s\n", md.Codec)
		}
		fmt.Fprintf(cc.Out, "  modified:   %s\n", md.Modified.Format("2006-01-02 15:04:05"))
	}
	return nil
}
