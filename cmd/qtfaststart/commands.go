package main

import (
	"errors"
	"os"

	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	sOpts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	opts := append(sOpts,
		&cli.Opt{
			Name:        "limit",
			Aliases:     []string{"l"},
			Description: "copy at most this many bytes per atom (truncated samples)",
			Type:        cli.NamedFuncOpt(cfg.limitOpt, "(bytes)"),
		},
		&cli.Opt{
			Name:        "config",
			Description: "config file path (default ~/.config/qtfaststart/config.yaml)",
			Type:        cli.NamedFuncOpt(cfg.configOpt, "(filepath)"),
		})

	return cli.NewCommandAt(&cfg.Main, "qtfaststart").
		WithSynopsis("qtfaststart [opts] command [opts]").
		WithDescription("qtfaststart rearranges MP4/MOV files for progressive streaming.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return qtMain(cfg, cc, args)
		}).
		WithSubs(
			ConvertCommand(cfg),
			CheckCommand(cfg),
			IndexCommand(cfg),
			InfoCommand(cfg))
}

func qtMain(cfg *MainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Main.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		return cli.ErrNoCommandProvided
	}
	sub := cfg.Main.FindSub(cc, args[0])
	if sub == nil {
		// bare file arguments run the default convert command
		return cfg.Convert.Run(cc, args)
	}
	err = sub.Run(cc, args[1:])
	if errors.Is(err, cli.ErrUsage) {
		sub.Usage(cc, err)
		os.Exit(sub.Exit(cc, err))
	}
	return err
}

func ConvertCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ConvertConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	cmd := cli.NewCommandAt(&cfg.Cmd, "convert").
		WithAliases("c", "co").
		WithSynopsis("convert <in.mp4> <out.mp4>  |  convert -i <file.mp4> [files...]").
		WithDescription("Move moov metadata ahead of the media data and fix chunk offsets.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return convert(cfg, cc, args)
		})
	mainCfg.Convert = cmd
	return cmd
}

func CheckCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &CheckConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Cmd, "check").
		WithAliases("ch").
		WithSynopsis("check [-validate] [files]").
		WithDescription("Report whether files are already set up for streaming.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return check(cfg, cc, args)
		})
}

func IndexCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &IndexConfig{MainConfig: mainCfg}
	return cli.NewCommandAt(&cfg.Cmd, "index").
		WithAliases("ix").
		WithSynopsis("index [files]").
		WithDescription("Dump the top-level atom table of each file.").
		WithRun(func(cc *cli.Context, args []string) error {
			return dumpIndex(cfg, cc, args)
		})
}

func InfoCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &InfoConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Cmd, "info").
		WithSynopsis("info [-json] [files]").
		WithDescription("Print a metadata summary (duration, dimensions, codec).").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return info(cfg, cc, args)
		})
}
