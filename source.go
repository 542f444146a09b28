package clip_archiver

import (
	"context"
)

// SourceInfo is what a provider learns about a video during Recon.
type SourceInfo struct {
	ID        string
	Title     string
	Ext       string
	Extractor string
}

type Source interface {
	// URL should return the canonical URL for this source. It is assumed that the Provider.Match that created the
	// Source would successfully match this canonical URL.
	URL() string
	// Recon should fetch whatever is needed to start downloading, e.g. video metadata and stream formats.
	Recon(ctx context.Context, opts DownloadOptions) (ResolvedSource, error)
}

type ResolvedSource interface {
	// Info may have empty fields if the provider only learns them while downloading.
	Info() SourceInfo
	// Download should fetch the actual video, reporting progress through the Download.
	Download(d Download) error
}
