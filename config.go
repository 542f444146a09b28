package clip_archiver

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	DefaultFormat         = "mp4"
	DefaultQuality        = "best"
	DefaultOutputTemplate = "%(title)s.%(ext)s"
)

// DownloadOptions are the per-download settings handed to every provider.
type DownloadOptions struct {
	// Format is the preferred container extension, e.g. "mp4". Empty means whatever the source offers.
	Format string
	// OutputTemplate is a file name template in yt-dlp syntax, relative to TargetDir.
	OutputTemplate string
	// Quality is one of "best", "worst", "audio", or a maximum height such as "720" or "720p".
	Quality   string
	TargetDir string
}

func DefaultDownloadOptions() DownloadOptions {
	return DownloadOptions{
		Format:         DefaultFormat,
		OutputTemplate: DefaultOutputTemplate,
		Quality:        DefaultQuality,
		TargetDir:      ".",
	}
}

type QualityKind int

const (
	QualityBest QualityKind = iota
	QualityWorst
	QualityAudio
	QualityMaxHeight
)

// Quality is a parsed quality selector.
type Quality struct {
	Kind      QualityKind
	MaxHeight int
}

// ParseQuality parses a quality selector. The empty string means best.
func ParseQuality(s string) (Quality, error) {
	switch s = strings.ToLower(strings.TrimSpace(s)); s {
	case "", "best":
		return Quality{Kind: QualityBest}, nil
	case "worst":
		return Quality{Kind: QualityWorst}, nil
	case "audio":
		return Quality{Kind: QualityAudio}, nil
	}
	height, err := strconv.Atoi(strings.TrimSuffix(s, "p"))
	if err != nil || height <= 0 {
		return Quality{}, fmt.Errorf("invalid quality %q: expected best, worst, audio or a height like 720p", s)
	}
	return Quality{Kind: QualityMaxHeight, MaxHeight: height}, nil
}

var templateField = regexp.MustCompile(`%\((\w+)\)s`)

// ExpandTemplate fills a yt-dlp style output template ("%(title)s.%(ext)s") from info. Unknown fields become "NA",
// as yt-dlp does. Path separators in values are replaced so a title can't escape the target directory.
func ExpandTemplate(template string, info SourceInfo) string {
	return templateField.ReplaceAllStringFunc(template, func(field string) string {
		var value string
		switch templateField.FindStringSubmatch(field)[1] {
		case "id":
			value = info.ID
		case "title":
			value = info.Title
		case "ext":
			value = info.Ext
		case "extractor":
			value = info.Extractor
		}
		if value == "" {
			return "NA"
		}
		return sanitizeFilename(value)
	})
}

var filenameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

func sanitizeFilename(s string) string {
	s = filenameReplacer.Replace(s)
	if strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}

// TargetPath is where a resolved source should be written according to the options.
func (o DownloadOptions) TargetPath(info SourceInfo) string {
	return filepath.Join(o.TargetDir, ExpandTemplate(o.OutputTemplate, info))
}
