// Package monitor watches the clipboard for video URLs and dispatches each new one exactly once.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	clip_archiver "github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/internal/clipboard"
	"github.com/alanbriolat/clip-archiver/internal/extract"
	"github.com/alanbriolat/clip-archiver/internal/metrics"
	"github.com/alanbriolat/clip-archiver/internal/seen"
)

const (
	DefaultPollInterval = time.Second
	DefaultErrorBackoff = 5 * time.Second
)

type Config struct {
	PollInterval time.Duration
	ErrorBackoff time.Duration
}

func DefaultConfig() Config {
	return Config{PollInterval: DefaultPollInterval, ErrorBackoff: DefaultErrorBackoff}
}

type Option func(m *Monitor)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Monitor) {
		m.log = logger.Sugar()
	}
}

func WithMetrics(metrics *metrics.Metrics) Option {
	return func(m *Monitor) {
		m.metrics = metrics
	}
}

type Monitor struct {
	config     Config
	clipboard  clipboard.Clipboard
	allowList  *extract.AllowList
	seen       *seen.Set
	downloader clip_archiver.Downloader
	metrics    *metrics.Metrics
	log        *zap.SugaredLogger

	// last is the most recent clipboard text that was processed.
	last string
}

// New creates a Monitor. clip may be nil if only ProcessURL will be used.
func New(
	config Config,
	clip clipboard.Clipboard,
	allowList *extract.AllowList,
	seenSet *seen.Set,
	downloader clip_archiver.Downloader,
	options ...Option,
) *Monitor {
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.ErrorBackoff <= 0 {
		config.ErrorBackoff = DefaultErrorBackoff
	}
	m := &Monitor{
		config:     config,
		clipboard:  clip,
		allowList:  allowList,
		seen:       seenSet,
		downloader: downloader,
	}
	for _, o := range options {
		o(m)
	}
	if m.log == nil {
		m.log = zap.S().Named("monitor")
	}
	if m.metrics == nil {
		m.metrics = metrics.New()
	}
	m.metrics.SeenEntries.Set(float64(seenSet.Count()))
	return m
}

// Run polls the clipboard until ctx is cancelled. Clipboard errors are logged and followed by a longer pause; they
// never stop the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.log.Infow("clipboard monitoring started", "clipboard", m.clipboard.Name(), "domains", m.allowList.Domains())
	for {
		if ctx.Err() != nil {
			break
		}
		delay := m.config.PollInterval
		if _, err := m.Poll(ctx); err != nil {
			m.log.Errorf("error monitoring clipboard: %v", err)
			delay = m.config.ErrorBackoff
		}
		if !sleep(ctx, delay) {
			break
		}
	}
	m.log.Info("clipboard monitoring stopped")
	return nil
}

// Poll reads the clipboard once and processes its content if it changed since the last time.
func (m *Monitor) Poll(ctx context.Context) (changed bool, err error) {
	m.metrics.ClipboardReads.Inc()
	text, err := m.clipboard.Read()
	if err != nil {
		m.metrics.ClipboardErrors.Inc()
		if !errors.Is(err, clipboard.ErrRead) {
			err = fmt.Errorf("%w: %w", clipboard.ErrRead, err)
		}
		return false, err
	}
	if text == "" || text == m.last {
		return false, nil
	}
	m.last = text
	m.metrics.ClipboardChanges.Inc()
	m.ProcessContent(ctx, text)
	return true, nil
}

// ProcessContent dispatches every supported URL in text that has not been seen before, in order of appearance, and
// returns how many were dispatched.
func (m *Monitor) ProcessContent(ctx context.Context, text string) (dispatched int) {
	urls := extract.URLs(text)
	m.metrics.URLsFound.Add(float64(len(urls)))
	for _, url := range urls {
		if ctx.Err() != nil {
			m.log.Debug("interrupted, abandoning remaining URLs")
			break
		}
		id := seen.HashURL(url)
		if m.seen.Contains(id) {
			m.log.Debugw("skipping seen URL", "url", url)
			m.metrics.URLsSkipped.WithLabelValues(metrics.SkipSeen).Inc()
			continue
		}
		if !m.allowList.IsSupported(url) {
			m.log.Debugw("skipping unsupported URL", "url", url)
			m.metrics.URLsSkipped.WithLabelValues(metrics.SkipUnsupported).Inc()
			continue
		}
		m.log.Infof("found video URL: %s", url)
		_ = m.dispatch(ctx, url, id)
		dispatched++
	}
	return dispatched
}

// ProcessURL downloads a single URL given explicitly by the user. The allow-list is not consulted, but a URL that
// has already been seen is not downloaded again.
func (m *Monitor) ProcessURL(ctx context.Context, url string) error {
	id := seen.HashURL(url)
	if m.seen.Contains(id) {
		m.log.Infof("already downloaded: %s", url)
		m.metrics.URLsSkipped.WithLabelValues(metrics.SkipSeen).Inc()
		return nil
	}
	m.log.Infof("starting download for: %s", url)
	return m.dispatch(ctx, url, id)
}

func (m *Monitor) dispatch(ctx context.Context, url string, id seen.ID) error {
	m.metrics.DownloadsStarted.Inc()
	start := time.Now()
	err := m.downloader.Download(ctx, url)
	m.metrics.DownloadDuration.Observe(time.Since(start).Seconds())

	// Attempted URLs are not retried, whatever the outcome
	if m.seen.Insert(id) {
		m.metrics.SeenEntries.Inc()
	}
	if err != nil {
		m.metrics.DownloadsFailed.Inc()
		m.log.Errorw("download failed", "url", url, "error", err)
		return err
	}
	m.metrics.DownloadsCompleted.Inc()
	if err := m.seen.Commit(id); err != nil {
		m.log.Warnw("failed to archive URL", "url", url, "error", err)
	}
	return nil
}

// sleep waits for d, returning false if ctx was cancelled first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
