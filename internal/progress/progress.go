// Package progress renders download progress on a terminal.
package progress

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	clip_archiver "github.com/alanbriolat/clip-archiver"
)

// Bar is a byte-count progress bar for a single download. Until the expected size is known it shows a spinner.
type Bar struct {
	bar    *progressbar.ProgressBar
	writer io.Writer
}

var _ clip_archiver.ProgressTracker = (*Bar)(nil)

func NewBar(w io.Writer, description string) *Bar {
	bar := progressbar.NewOptions64(
		-1,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
	)
	return &Bar{bar: bar, writer: w}
}

func (b *Bar) Update(downloaded int, expected int) {
	if expected > 0 && b.bar.GetMax() != expected {
		b.bar.ChangeMax(expected)
	}
	// Rendering errors (e.g. a detached terminal) must not interrupt the download
	_ = b.bar.Set(downloaded)
}

func (b *Bar) Finish(err error) {
	if err == nil {
		_ = b.bar.Finish()
	} else {
		_ = b.bar.Clear()
	}
	fmt.Fprintln(b.writer)
}

// Factory returns a Dispatcher.Progress function that draws a new bar on w for each download.
func Factory(w io.Writer) func(url string) clip_archiver.ProgressTracker {
	return func(url string) clip_archiver.ProgressTracker {
		return NewBar(w, "downloading")
	}
}
