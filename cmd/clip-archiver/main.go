package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	clip_archiver "github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/async"
	"github.com/alanbriolat/clip-archiver/internal/config"
	_ "github.com/alanbriolat/clip-archiver/providers"
)

const version = "1.0.0"

func main() {
	level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
	zapConfig := zap.NewDevelopmentConfig()
	zapConfig.Level = level
	zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	logger, err := zapConfig.Build()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()
	zap.RedirectStdLog(logger)
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = clip_archiver.WithLogger(ctx, logger)

	app := newApp(ctx, logger, level)
	result := async.Run(func() error { return app.Run(os.Args) })

	select {
	case err = <-result:
	case <-ctx.Done():
		stop()
		err = <-result
		logger.Info("shutting down gracefully")
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(err.Error())
	}
}

func newApp(ctx context.Context, logger *zap.Logger, level zap.AtomicLevel) *cli.App {
	commonFlags := []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE` (default: " + config.DefaultPath + " if present)",
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"v"},
			Usage:   "enable verbose logging",
		},
		&cli.StringFlag{
			Name:  "log-file",
			Usage: "also write debug-level logs to `FILE`",
		},
	}
	var closeLogFile func()
	// Shared by every command that reads configuration.
	loadConfig := func(c *cli.Context) (config.Config, error) {
		cfg, err := config.Load(c.String("config"), logger)
		if err != nil {
			return cfg, err
		}
		if err := applyLogLevel(level, cfg.LogLevel, c.Bool("verbose")); err != nil {
			return cfg, err
		}
		if c.IsSet("log-file") {
			cfg.LogFile = c.String("log-file")
		}
		if cfg.LogFile != "" && closeLogFile == nil {
			teed, closeFn, err := withLogFile(logger, cfg.LogFile)
			if err != nil {
				return cfg, err
			}
			logger, closeLogFile = teed, closeFn
			zap.ReplaceGlobals(logger)
		}
		return cfg, nil
	}

	return &cli.App{
		Name:    "clip-archiver",
		Usage:   "monitor the clipboard and download videos automatically",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "start",
				Usage: "start the video downloader",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:    "output-dir",
						Aliases: []string{"o"},
						Usage:   "save downloaded videos to `DIR`",
					},
					&cli.StringFlag{
						Name:    "manual-url",
						Aliases: []string{"u"},
						Usage:   "download `URL` and exit, without monitoring the clipboard",
					},
					&cli.BoolFlag{
						Name:  "monitor",
						Value: true,
						Usage: "monitor the clipboard (use --monitor=false to disable)",
					},
					&cli.StringFlag{
						Name:    "quality",
						Aliases: []string{"q"},
						Usage:   "video quality: best, worst, audio or a maximum height like 720p",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "preferred container `FORMAT`, e.g. mp4",
					},
					&cli.StringFlag{
						Name:  "archive",
						Usage: "remember downloaded URLs across runs in `FILE`",
					},
					&cli.StringFlag{
						Name:  "history",
						Usage: "record every download attempt in the SQLite database `FILE`",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "serve Prometheus metrics on `ADDR`, e.g. :9090",
					},
					&cli.BoolFlag{
						Name:  "install-ytdlp",
						Usage: "download yt-dlp if it is not already installed",
					},
				}, commonFlags...),
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					applyStartFlags(c, &cfg)
					if err := cfg.Validate(); err != nil {
						return err
					}
					config.LogChanges(logger, cfg)
					return start(ctx, logger, cfg, startOptions{
						manualURL:    c.String("manual-url"),
						monitor:      c.Bool("monitor"),
						installYtdlp: c.Bool("install-ytdlp"),
					})
				},
			},
			{
				Name:  "history",
				Usage: "list recorded download attempts",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "history",
						Usage: "read the SQLite database `FILE`",
					},
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Value:   20,
						Usage:   "show at most `N` entries, 0 for all",
					},
				}, commonFlags...),
				Action: func(c *cli.Context) error {
					cfg, err := loadConfig(c)
					if err != nil {
						return err
					}
					if c.IsSet("history") {
						cfg.HistoryDB = c.String("history")
					}
					return showHistory(ctx, logger, c.App.Writer, cfg, c.Int("limit"))
				},
			},
			{
				Name:  "providers",
				Usage: "list download providers in matching order",
				Action: func(c *cli.Context) error {
					for _, p := range clip_archiver.DefaultProviderRegistry.List() {
						fmt.Fprintf(c.App.Writer, "%-10s %6d  %s\n", p.Name, p.Priority, p.Description)
					}
					return nil
				},
			},
		},
		After: func(*cli.Context) error {
			if closeLogFile != nil {
				closeLogFile()
			}
			return nil
		},
		HideHelpCommand: true,
	}
}

func applyStartFlags(c *cli.Context, cfg *config.Config) {
	if c.IsSet("output-dir") {
		cfg.DownloadPath = c.String("output-dir")
	}
	if c.IsSet("quality") {
		cfg.Quality = c.String("quality")
	}
	if c.IsSet("format") {
		cfg.Format = c.String("format")
	}
	if c.IsSet("archive") {
		cfg.ArchiveFile = c.String("archive")
	}
	if c.IsSet("history") {
		cfg.HistoryDB = c.String("history")
	}
	if c.IsSet("metrics-addr") {
		cfg.MetricsAddr = c.String("metrics-addr")
	}
}

func applyLogLevel(level zap.AtomicLevel, name string, verbose bool) error {
	if verbose {
		level.SetLevel(zapcore.DebugLevel)
		return nil
	}
	if name == "" {
		return nil
	}
	l, err := zapcore.ParseLevel(name)
	if err != nil {
		return fmt.Errorf("%w: log_level: %w", config.ErrInvalid, err)
	}
	level.SetLevel(l)
	return nil
}
