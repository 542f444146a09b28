package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"

	clip_archiver "github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/internal/clipboard"
	"github.com/alanbriolat/clip-archiver/internal/config"
	"github.com/alanbriolat/clip-archiver/internal/extract"
	"github.com/alanbriolat/clip-archiver/internal/history"
	"github.com/alanbriolat/clip-archiver/internal/metrics"
	"github.com/alanbriolat/clip-archiver/internal/monitor"
	"github.com/alanbriolat/clip-archiver/internal/progress"
	"github.com/alanbriolat/clip-archiver/internal/seen"
	"github.com/alanbriolat/clip-archiver/provider/ytdlp"
)

type startOptions struct {
	manualURL    string
	monitor      bool
	installYtdlp bool
}

func start(ctx context.Context, logger *zap.Logger, cfg config.Config, opts startOptions) error {
	log := logger.Sugar()

	if opts.manualURL == "" && !opts.monitor {
		log.Warn("nothing to do: no URL given and clipboard monitoring disabled")
		return nil
	}

	if err := os.MkdirAll(cfg.DownloadPath, 0o755); err != nil {
		return fmt.Errorf("failed to create download directory: %w", err)
	}

	registry, err := clip_archiver.DefaultProviderRegistry.Subset(cfg.Providers...)
	if err != nil {
		return err
	}
	if opts.installYtdlp {
		if _, err := registry.Get(ytdlp.Name); err == nil {
			log.Info("checking yt-dlp installation")
			if err := ytdlp.EnsureInstalled(ctx); err != nil {
				return err
			}
		}
	}

	archive, err := seen.OpenArchive(cfg.ArchiveBackend, cfg.ArchiveFile)
	if err != nil {
		return err
	}
	seenSet, err := seen.New(archive, logger)
	if err != nil {
		_ = archive.Close()
		return err
	}
	defer seenSet.Close()

	dispatcher := &clip_archiver.Dispatcher{
		Registry: registry,
		Options:  cfg.DownloadOptions(),
		Progress: progress.Factory(os.Stderr),
		Logger:   logger.Named("dispatch"),
	}
	if cfg.HistoryDB != "" {
		db, err := history.Open(cfg.HistoryDB, logger)
		if err != nil {
			return err
		}
		defer db.Close()
		dispatcher.History = db
	}

	m := metrics.New()
	if cfg.MetricsAddr != "" {
		go func() {
			log.Infof("serving metrics on %s", cfg.MetricsAddr)
			if err := m.Serve(ctx, cfg.MetricsAddr); err != nil {
				log.Errorf("metrics server failed: %v", err)
			}
		}()
	}

	var clip clipboard.Clipboard
	if opts.manualURL == "" {
		if clip, err = clipboard.New(cfg.Clipboard); err != nil {
			return err
		}
		if err := clipboard.Verify(clip); err != nil {
			log.Info("please ensure xclip, xsel or wl-clipboard is installed on Linux systems")
			return err
		}
		log.Debugf("clipboard access verified using %s", clip.Name())
	}

	mon := monitor.New(
		cfg.MonitorConfig(),
		clip,
		extract.NewAllowList(cfg.SupportedPlatforms...),
		seenSet,
		dispatcher,
		monitor.WithLogger(logger.Named("monitor")),
		monitor.WithMetrics(m),
	)

	if opts.manualURL != "" {
		if err := mon.ProcessURL(ctx, opts.manualURL); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	}

	fmt.Fprintln(os.Stderr, "Starting clipboard monitor. Press Ctrl+C to stop.")
	return mon.Run(ctx)
}

func showHistory(ctx context.Context, logger *zap.Logger, w io.Writer, cfg config.Config, limit int) error {
	if cfg.HistoryDB == "" {
		return errors.New("no history database configured (set history_db or use --history)")
	}
	db, err := history.Open(cfg.HistoryDB, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.List(ctx, limit)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tSTATUS\tPROVIDER\tDURATION\tURL\tTITLE")
	for _, e := range entries {
		status := "ok"
		if !e.Succeeded() {
			status = "failed"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), status, e.Provider, e.Duration().Round(time.Second), e.URL, e.Title)
	}
	return tw.Flush()
}
