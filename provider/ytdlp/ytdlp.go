// Package ytdlp hands URLs to the yt-dlp program, which knows how to download from most video sites.
package ytdlp

import (
	"bufio"
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/generic"
)

const progressInterval = 200 * time.Millisecond

const Name = "ytdlp"

// Printed by yt-dlp once each file is in its final location, one path per line.
const printAfterMove = "after_move:filepath"

var protocols = generic.NewSet("http", "https")

// EnsureInstalled downloads yt-dlp into the user cache if it is not already on the PATH.
func EnsureInstalled(ctx context.Context) error {
	if _, err := ytdlp.Install(ctx, nil); err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	return nil
}

func Match(s string) (clip_archiver.Source, error) {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	if !protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return nil, fmt.Errorf("missing host")
	}
	return &source{url: s}, nil
}

func New() clip_archiver.Provider {
	return clip_archiver.Provider{
		Name:        Name,
		Description: "any site supported by yt-dlp (requires the yt-dlp program)",
		Match:       Match,
		Priority:    clip_archiver.PriorityLowest,
	}
}

type source struct {
	url    string
	format string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

// Recon only validates options; yt-dlp does its own metadata extraction as part of the download.
func (s *source) Recon(_ context.Context, opts clip_archiver.DownloadOptions) (clip_archiver.ResolvedSource, error) {
	quality, err := clip_archiver.ParseQuality(opts.Quality)
	if err != nil {
		return nil, err
	}
	return &source{url: s.url, format: FormatSelector(quality)}, nil
}

func (s *source) Info() clip_archiver.SourceInfo {
	return clip_archiver.SourceInfo{Extractor: Name}
}

func (s *source) Download(d clip_archiver.Download) error {
	opts := d.Options()
	command := ytdlp.New().
		Format(s.format).
		Output(filepath.Join(opts.TargetDir, opts.OutputTemplate)).
		NoPlaylist().
		Print(printAfterMove).
		ProgressFunc(progressInterval, func(update ytdlp.ProgressUpdate) {
			d.SetProgress(update.DownloadedBytes, update.TotalBytes)
		})
	if opts.Format != "" {
		command = command.MergeOutputFormat(opts.Format)
	}

	result, err := command.Run(d.Context(), s.url)
	if err != nil {
		if result != nil && result.Stderr != "" {
			return fmt.Errorf("yt-dlp: %w: %s", err, lastLine(result.Stderr))
		}
		return fmt.Errorf("yt-dlp: %w", err)
	}
	for _, path := range parseFiles(result.Stdout) {
		d.AddFile(path)
	}
	return nil
}

// FormatSelector translates a quality into a yt-dlp format selector.
func FormatSelector(q clip_archiver.Quality) string {
	switch q.Kind {
	case clip_archiver.QualityWorst:
		return "worst"
	case clip_archiver.QualityAudio:
		return "bestaudio/best"
	case clip_archiver.QualityMaxHeight:
		return fmt.Sprintf("best[height<=%d]/worst", q.MaxHeight)
	default:
		return "best"
	}
}

// parseFiles picks the printed file paths out of yt-dlp's stdout, skipping anything that looks like JSON.
func parseFiles(stdout string) []string {
	var files []string
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "{") || strings.HasPrefix(line, "[") {
			continue
		}
		files = append(files, line)
	}
	return files
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

func init() {
	clip_archiver.DefaultProviderRegistry.MustAdd(New())
}
