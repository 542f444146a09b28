package raw

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/generic"
)

var ErrNoFilename = errors.New("cannot extract valid filename")

// Config decides which URLs count as direct links to a media file.
type Config struct {
	Protocols  generic.Set[string]
	Extensions generic.Set[string]
}

func NewConfig() Config {
	return Config{
		Protocols: generic.NewSet(
			"http",
			"https",
		),
		Extensions: generic.NewSet(
			"flv",
			"m4a",
			"m4v",
			"mkv",
			"mov",
			"mp3",
			"mp4",
			"webm",
		),
	}
}

func (c *Config) Match(s string) (clip_archiver.Source, error) {
	// Expect string to be a URL
	parsedURL, err := url.Parse(s)
	if err != nil {
		return nil, err
	}
	// Check that scheme/protocol is valid
	if !c.Protocols.Contains(parsedURL.Scheme) {
		return nil, fmt.Errorf("unknown URL scheme %v", parsedURL.Scheme)
	}
	// Attempt to extract filename and extension
	filename, err := filenameFromURL(parsedURL)
	if err != nil {
		return nil, err
	}
	extension := strings.ToLower(strings.TrimPrefix(path.Ext(filename), "."))
	if extension == "" {
		return nil, fmt.Errorf("no file extension found")
	}
	if !c.Extensions.Contains(extension) {
		return nil, fmt.Errorf("unknown file extension %v", extension)
	}
	res := source{
		url:  s,
		name: strings.TrimSuffix(filename, path.Ext(filename)),
		ext:  extension,
	}
	return &res, nil
}

func (c Config) Provider() clip_archiver.Provider {
	return clip_archiver.Provider{
		Name:        "raw",
		Description: "direct links to media files, fetched over HTTP",
		Match:       c.Match,
	}
}

type source struct {
	url  string
	name string
	ext  string
}

func (s *source) URL() string {
	return s.url
}

func (s *source) String() string {
	return s.URL()
}

func (s *source) Recon(context.Context, clip_archiver.DownloadOptions) (clip_archiver.ResolvedSource, error) {
	return s, nil
}

func (s *source) Info() clip_archiver.SourceInfo {
	return clip_archiver.SourceInfo{
		ID:        s.name,
		Title:     s.name,
		Ext:       s.ext,
		Extractor: "raw",
	}
}

func (s *source) Download(d clip_archiver.Download) error {
	return d.SaveURL(d.Options().TargetPath(s.Info()), s.url)
}

// filenameFromURL returns the last path element of the URL, unescaped.
func filenameFromURL(u *url.URL) (string, error) {
	if u == nil {
		return "", ErrNoFilename
	}
	p := strings.Trim(u.Path, "/")
	if p == "" {
		return "", ErrNoFilename
	}
	filename := path.Base(p)
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

func init() {
	clip_archiver.DefaultProviderRegistry.MustAdd(
		NewConfig().Provider().WithPriority(clip_archiver.PriorityDefault + 10),
	)
}
