package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"git.home.luguber.info/inful/groovybuild/internal/config"
	"git.home.luguber.info/inful/groovybuild/internal/errors"
	"git.home.luguber.info/inful/groovybuild/internal/version"
)

var CLI struct {
	Config  string `short:"c" help:"Configuration file path" default:"groovybuild.yaml"`
	Verbose bool   `short:"v" help:"Enable verbose logging"`

	Build struct {
		Rebuild bool `short:"r" help:"Recompile everything, ignoring recorded stamps"`
	} `cmd:"" help:"Compile changed sources across all module chunks"`

	Watch struct{} `cmd:"" help:"Watch source roots and rebuild on changes"`

	Index struct {
		Source string `short:"s" help:"List outputs recorded for a source file" xor:"query"`
		Target string `short:"t" help:"List sources tracked for a target (module:kind)" xor:"query"`
	} `cmd:"" help:"Inspect the source-to-output index"`

	Init struct {
		Force bool `help:"Overwrite existing configuration file"`
	} `cmd:"" help:"Initialize a new configuration file"`

	Version struct{} `cmd:"" help:"Print version information"`
}

func main() {
	kctx := kong.Parse(&CLI)

	switch kctx.Command() {
	case "init":
		setupLogging(nil)
		if err := config.Init(CLI.Config, CLI.Init.Force); err != nil {
			slog.Error("Init failed", "error", err)
			os.Exit(1)
		}
		slog.Info("Configuration written", "path", CLI.Config)
		return
	case "version":
		kctx.Printf("groovybuild %s (commit %s, built %s)", version.Version, version.GitCommit, version.BuildTime)
		return
	}

	adapter := errors.NewCLIErrorAdapter(CLI.Verbose, nil)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		setupLogging(nil)
		adapter.HandleError(errors.Wrap(err, errors.CategoryConfig, errors.SeverityFatal,
			"failed to load configuration").WithContext("path", CLI.Config))
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch kctx.Command() {
	case "build":
		adapter.HandleError(runBuild(ctx, cfg, CLI.Build.Rebuild))
	case "watch":
		adapter.HandleError(runWatch(ctx, cfg))
	case "index":
		adapter.HandleError(runIndex(ctx, cfg, CLI.Index.Source, CLI.Index.Target))
	default:
		kctx.Fatalf("unknown command: %s", kctx.Command())
	}
}

// setupLogging installs the process-wide logger. A nil config gives the
// bootstrap logger used before configuration is available.
func setupLogging(cfg *config.Config) {
	level := slog.LevelInfo
	format := config.LogFormatText
	if cfg != nil {
		switch cfg.Logging.Level {
		case config.LogLevelDebug:
			level = slog.LevelDebug
		case config.LogLevelWarn:
			level = slog.LevelWarn
		case config.LogLevelError:
			level = slog.LevelError
		}
		format = cfg.Logging.Format
	}
	if CLI.Verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if format == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
