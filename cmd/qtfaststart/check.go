package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/scott-cotton/cli"

	"github.com/danielgtaylor/qtfaststart/internal/analyzer"
)

// check exits 0 when every file is streamable, exitNeedsConvert when any
// file would benefit from converting, and 1 on structural errors.
const exitNeedsConvert = 2

var (
	verdictGood = color.New(color.FgGreen)
	verdictSlow = color.New(color.FgYellow)
	verdictBad  = color.New(color.FgRed)
)

func check(cfg *CheckConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Cmd.Parse(cc, args)
	if err != nil {
		cfg.Cmd.Usage(cc, err)
		return cli.ExitCodeErr(1)
	}
	if len(args) == 0 {
		return fmt.Errorf("%w: check needs at least one file", cli.ErrUsage)
	}

	exit := 0
	for _, path := range args {
		fast, err := analyzer.CheckFastStart(path)
		switch {
		case err != nil:
			verdictBad.Fprintf(cc.Out, "%s: %v\n", path, err)
			exit = 1
		case fast:
			verdictGood.Fprintf(cc.Out, "%s: fast start\n", path)
		default:
			verdictSlow.Fprintf(cc.Out, "%s: moov after mdat, needs converting\n", path)
			if exit == 0 {
				exit = exitNeedsConvert
			}
		}

		if cfg.Validate && err == nil {
			complete, verr := analyzer.ValidateFile(path)
			switch {
			case verr != nil:
				verdictBad.Fprintf(cc.Out, "%s: %v\n", path, verr)
				exit = 1
			case !complete:
				verdictBad.Fprintf(cc.Out, "%s: truncated, atoms extend past end of file\n", path)
				exit = 1
			}
		}
	}

	if exit != 0 {
		return cli.ExitCodeErr(exit)
	}
	return nil
}
