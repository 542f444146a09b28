package clip_archiver

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Downloader is the contract the clipboard monitor relies on: fetch one URL, synchronously.
type Downloader interface {
	Download(ctx context.Context, url string) error
}

// ProgressTracker displays the progress of a single download.
type ProgressTracker interface {
	Update(downloaded int, expected int)
	Finish(err error)
}

// Attempt describes one finished dispatch, successful or not.
type Attempt struct {
	URL        string
	Provider   string
	Title      string
	Files      []string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// History stores the outcome of every dispatch.
type History interface {
	Record(ctx context.Context, attempt Attempt) error
}

// Dispatcher routes a URL to the first matching provider and runs the download to completion.
type Dispatcher struct {
	Registry *ProviderRegistry
	Options  DownloadOptions
	// Progress, if set, is called once per download to get a tracker for it.
	Progress   func(url string) ProgressTracker
	History    History
	HTTPClient *http.Client
	Logger     *zap.Logger
}

var _ Downloader = (*Dispatcher)(nil)

func (d *Dispatcher) Download(ctx context.Context, url string) (err error) {
	log := d.logger().Sugar().With("url", url)
	attempt := Attempt{URL: url, StartedAt: time.Now()}
	defer func() {
		attempt.FinishedAt = time.Now()
		attempt.Err = err
		if d.History != nil {
			// Interrupted attempts are still recorded
			if herr := d.History.Record(context.WithoutCancel(ctx), attempt); herr != nil {
				log.Warnf("failed to record download history: %v", herr)
			}
		}
	}()

	match, err := d.Registry.Match(url)
	if err != nil {
		return fmt.Errorf("match failed: %w", err)
	}
	attempt.Provider = match.ProviderName
	log = log.With("provider", match.ProviderName)

	log.Debug("starting recon")
	resolved, err := match.Source.Recon(ctx, d.Options)
	if err != nil {
		return fmt.Errorf("[%s] recon failed: %w", match.ProviderName, err)
	}
	attempt.Title = resolved.Info().Title

	var tracker ProgressTracker
	if d.Progress != nil {
		tracker = d.Progress(url)
	}
	builder := NewDownloadBuilder().
		WithContext(WithLogger(ctx, d.logger())).
		WithOptions(d.Options)
	if d.HTTPClient != nil {
		builder = builder.WithHTTPClient(d.HTTPClient)
	}
	if tracker != nil {
		builder = builder.WithProgressCallback(tracker.Update)
	}
	dl := builder.Build()

	log.Infof("downloading %q", attempt.Title)
	err = resolved.Download(dl)
	attempt.Files = dl.Files()
	if tracker != nil {
		tracker.Finish(err)
	}
	if err != nil {
		return fmt.Errorf("[%s] download failed: %w", match.ProviderName, err)
	}
	log.Infow("download complete", "files", attempt.Files)
	return nil
}

func (d *Dispatcher) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.L().Named("dispatch")
	}
	return d.Logger
}
