package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog"
	"github.com/scott-cotton/cli"

	"github.com/danielgtaylor/qtfaststart/internal/config"
	"github.com/danielgtaylor/qtfaststart/internal/optimizer"
)

type MainConfig struct {
	MoovToEnd bool `cli:"name=moov-to-end aliases=e desc='place moov after mdat instead of before it'"`
	KeepFree  bool `cli:"name=keep-free aliases=k desc='keep free atoms instead of dropping them'"`
	Verbose   bool `cli:"name=v aliases=verbose desc='log engine diagnostics to stderr'"`

	Limit      int64
	ConfigPath string

	file *config.Config

	Main    *cli.Command
	Convert *cli.Command
}

func (cfg *MainConfig) limitOpt(cc *cli.Context, a string) (any, error) {
	n, err := strconv.ParseInt(a, 10, 64)
	if err != nil || n < 0 {
		return nil, fmt.Errorf("%w: invalid byte limit %q", cli.ErrUsage, a)
	}
	cfg.Limit = n
	return n, nil
}

func (cfg *MainConfig) configOpt(cc *cli.Context, a string) (any, error) {
	cfg.ConfigPath = a
	return a, nil
}

// fileConfig loads the user config once; flags override its values.
func (cfg *MainConfig) fileConfig() *config.Config {
	if cfg.file == nil {
		loaded, err := config.Load(cfg.ConfigPath)
		if err != nil {
			loaded = config.Default()
		}
		cfg.file = loaded
	}
	return cfg.file
}

func (cfg *MainConfig) logger() zerolog.Logger {
	level := zerolog.WarnLevel
	if parsed, err := zerolog.ParseLevel(cfg.fileConfig().LogLevel); err == nil {
		level = parsed
	}
	if cfg.Verbose {
		level = zerolog.DebugLevel
	}
	w := zerolog.ConsoleWriter{Out: os.Stderr}
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

func (cfg *MainConfig) options() optimizer.Options {
	file := cfg.fileConfig()

	layout := optimizer.MoovFirst
	if cfg.MoovToEnd || file.MoovToEnd {
		layout = optimizer.MoovLast
	}
	limit := file.Limit
	if cfg.Limit > 0 {
		limit = cfg.Limit
	}
	log := cfg.logger()
	return optimizer.Options{
		Layout:   layout,
		KeepFree: cfg.KeepFree || file.KeepFree,
		Limit:    limit,
		Log:      &log,
	}
}

type ConvertConfig struct {
	*MainConfig
	InPlace bool `cli:"name=i aliases=in-place desc='rewrite files in place through a backup'"`

	Cmd *cli.Command
}

type CheckConfig struct {
	*MainConfig
	Validate bool `cli:"name=validate desc='also check that the file is complete'"`

	Cmd *cli.Command
}

type IndexConfig struct {
	*MainConfig

	Cmd *cli.Command
}

type InfoConfig struct {
	*MainConfig
	JSON bool `cli:"name=json desc='emit metadata as JSON'"`

	Cmd *cli.Command
}
