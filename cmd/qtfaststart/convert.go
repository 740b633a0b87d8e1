package main

import (
	"errors"
	"fmt"

	"github.com/scott-cotton/cli"

	"github.com/danielgtaylor/qtfaststart/internal/optimizer"
)

// Exit codes: 1 for structural or I/O errors, 2 when the file was already
// set up for streaming and nothing was written.
const exitAlreadyOptimized = 2

func convert(cfg *ConvertConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Cmd.Parse(cc, args)
	if err != nil {
		cfg.Cmd.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	opts := cfg.options()

	if cfg.InPlace {
		if len(args) == 0 {
			return fmt.Errorf("%w: convert -i needs at least one file", cli.ErrUsage)
		}
		for _, path := range args {
			if err := reportConvert(cfg, cc, path, optimizer.OptimizeInPlace(path, opts)); err != nil {
				return err
			}
		}
		return nil
	}

	if len(args) != 2 {
		return fmt.Errorf("%w: convert needs an input and an output file (or -i for in place)", cli.ErrUsage)
	}
	return reportConvert(cfg, cc, args[0], optimizer.Process(args[0], args[1], opts))
}

func reportConvert(cfg *ConvertConfig, cc *cli.Context, path string, err error) error {
	switch {
	case errors.Is(err, optimizer.ErrAlreadyOptimized):
		fmt.Fprintf(cc.Out, "%s: already set up for streaming, nothing to do\n", path)
		return cli.ExitCodeErr(exitAlreadyOptimized)
	case err != nil:
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(cc.Out, "%s: converted\n", path)
	return nil
}
