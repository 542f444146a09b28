package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"

	"github.com/alanbriolat/clip-archiver"
)

var (
	ErrNoFormat        = errors.New("no suitable format")
	errUnknownHostname = errors.New("unrecognised hostname")
	errNoVideoID       = errors.New("could not extract video ID")
)

type source struct {
	videoID string
}

func (s *source) URL() string {
	return fmt.Sprintf("https://www.youtube.com/watch?v=%s", s.videoID)
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(ctx context.Context, opts clip_archiver.DownloadOptions) (clip_archiver.ResolvedSource, error) {
	quality, err := clip_archiver.ParseQuality(opts.Quality)
	if err != nil {
		return nil, err
	}
	client := youtube.Client{}
	video, err := client.GetVideoContext(ctx, s.URL())
	if err != nil {
		return nil, fmt.Errorf("failed to get video info: %w", err)
	}
	format, err := selectFormat(video.Formats, quality, opts.Format)
	if err != nil {
		return nil, err
	}
	return &resolvedSource{
		source: *s,
		client: client,
		video:  video,
		format: format,
	}, nil
}

type resolvedSource struct {
	source
	client youtube.Client
	video  *youtube.Video
	format *youtube.Format
}

func (s *resolvedSource) Info() clip_archiver.SourceInfo {
	return clip_archiver.SourceInfo{
		ID:        s.video.ID,
		Title:     s.video.Title,
		Ext:       extension(s.format.MimeType),
		Extractor: "youtube",
	}
}

func (s *resolvedSource) Download(d clip_archiver.Download) error {
	stream, size, err := s.client.GetStreamContext(d.Context(), s.video, s.format)
	if err != nil {
		return fmt.Errorf("failed to get stream: %w", err)
	}
	defer stream.Close()
	d.AddExpectedBytes(int(size))
	return d.SaveStream(d.Options().TargetPath(s.Info()), stream)
}

func (s *resolvedSource) String() string {
	return fmt.Sprintf("%s [%s]", s.video.Title, s.video.ID)
}

// selectFormat picks a stream with both audio and video (or audio only, for QualityAudio). container, if set, is
// preferred but not required.
func selectFormat(formats []youtube.Format, quality clip_archiver.Quality, container string) (*youtube.Format, error) {
	var candidates []*youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels == 0 {
			continue
		}
		isAudio := strings.HasPrefix(f.MimeType, "audio/")
		if (quality.Kind == clip_archiver.QualityAudio) != isAudio {
			continue
		}
		candidates = append(candidates, f)
	}
	if container != "" {
		var preferred []*youtube.Format
		for _, f := range candidates {
			if extension(f.MimeType) == container {
				preferred = append(preferred, f)
			}
		}
		if len(preferred) > 0 {
			candidates = preferred
		}
	}
	if len(candidates) == 0 {
		return nil, ErrNoFormat
	}

	better := func(a, b *youtube.Format) bool {
		if a.Height != b.Height {
			return a.Height > b.Height
		}
		return a.Bitrate > b.Bitrate
	}
	var best *youtube.Format
	for _, f := range candidates {
		switch quality.Kind {
		case clip_archiver.QualityWorst:
			if best == nil || better(best, f) {
				best = f
			}
		case clip_archiver.QualityMaxHeight:
			if f.Height <= quality.MaxHeight && (best == nil || better(f, best)) {
				best = f
			}
		default:
			if best == nil || better(f, best) {
				best = f
			}
		}
	}
	if best == nil {
		// Nothing small enough, settle for the smallest there is
		return selectFormat(formats, clip_archiver.Quality{Kind: clip_archiver.QualityWorst}, container)
	}
	return best, nil
}

// extension turns a MIME type like `video/mp4; codecs="avc1"` into a file extension.
func extension(mimeType string) string {
	mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	switch mimeType {
	case "audio/mp4":
		return "m4a"
	case "video/3gpp":
		return "3gp"
	}
	if parts := strings.SplitN(mimeType, "/", 2); len(parts) == 2 && parts[1] != "" {
		return parts[1]
	}
	return "bin"
}

func Match(s string) (clip_archiver.Source, error) {
	if parsedURL, err := url.Parse(s); err != nil {
		return nil, err
	} else if videoID, err := extractVideoID(parsedURL); err != nil {
		return nil, err
	} else {
		return &source{videoID: videoID}, nil
	}
}

func New() clip_archiver.Provider {
	return clip_archiver.Provider{
		Name:        "youtube",
		Description: "native YouTube downloader, no external programs needed",
		Match:       Match,
	}
}

// Extract video ID from YouTube URL.
//
// Allowed URL formats:
//
//	http(s?)://(www.|m.|music.)?youtube.com/(watch|details)?v={VIDEO_ID}
//	http(s?)://(www.|m.|music.)?youtube.com/(v|embed|shorts|live)/{VIDEO_ID}
//	http(s?)://youtu.be/{VIDEO_ID}
func extractVideoID(url *url.URL) (string, error) {
	var id string
	switch strings.ToLower(url.Hostname()) {
	case "youtube.com", "www.youtube.com", "m.youtube.com", "music.youtube.com":
		segments := strings.Split(strings.Trim(url.Path, "/"), "/")
		switch {
		case url.Path == "/watch" || url.Path == "/details":
			if !url.Query().Has("v") {
				return "", fmt.Errorf("missing ?v= query parameter")
			}
			id = url.Query().Get("v")
		case len(segments) >= 2 && (segments[0] == "v" || segments[0] == "embed" || segments[0] == "shorts" || segments[0] == "live"):
			id = segments[1]
		}
	case "youtu.be":
		id = strings.Trim(url.Path, "/")
	default:
		return "", errUnknownHostname
	}
	if id == "" || strings.Contains(id, "/") {
		return "", errNoVideoID
	}
	return id, nil
}

func init() {
	clip_archiver.DefaultProviderRegistry.MustAdd(New())
}
