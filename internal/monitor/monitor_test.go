package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	assert_ "github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/alanbriolat/clip-archiver/internal/clipboard"
	"github.com/alanbriolat/clip-archiver/internal/extract"
	"github.com/alanbriolat/clip-archiver/internal/metrics"
	"github.com/alanbriolat/clip-archiver/internal/seen"
)

type fakeDownloader struct {
	mu    sync.Mutex
	urls  []string
	fail  map[string]error
	block chan struct{}
}

func (d *fakeDownloader) Download(ctx context.Context, url string) error {
	if d.block != nil {
		select {
		case <-d.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.urls = append(d.urls, url)
	return d.fail[url]
}

func (d *fakeDownloader) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.urls...)
}

type memArchive struct {
	ids []seen.ID
}

func (a *memArchive) Load() ([]seen.ID, error) { return a.ids, nil }
func (a *memArchive) Append(id seen.ID) error  { a.ids = append(a.ids, id); return nil }
func (a *memArchive) Close() error             { return nil }

type fixture struct {
	clip       *clipboard.Memory
	seen       *seen.Set
	archive    *memArchive
	downloader *fakeDownloader
	metrics    *metrics.Metrics
	monitor    *Monitor
}

func newFixture(t *testing.T, clip *clipboard.Memory, config Config) *fixture {
	t.Helper()
	archive := &memArchive{}
	seenSet, err := seen.New(archive, zap.NewNop())
	require.NoError(t, err)
	f := &fixture{
		clip:       clip,
		seen:       seenSet,
		archive:    archive,
		downloader: &fakeDownloader{fail: map[string]error{}},
		metrics:    metrics.New(),
	}
	f.monitor = New(config, clip, extract.NewAllowList(extract.DefaultDomains...), seenSet, f.downloader,
		WithLogger(zap.NewNop()), WithMetrics(f.metrics))
	return f
}

const (
	videoA = "https://www.youtube.com/watch?v=A"
	videoB = "https://youtu.be/B"
)

func TestProcessContentDispatchesEachURLOnce(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, clipboard.NewMemory(), DefaultConfig())

	n := f.monitor.ProcessContent(context.Background(), videoA+" "+videoA+" "+videoB)
	assert.Equal(2, n)
	assert.Equal([]string{videoA, videoB}, f.downloader.URLs())
	assert.True(f.seen.Contains(seen.HashURL(videoA)))
	assert.True(f.seen.Contains(seen.HashURL(videoB)))

	// Same content again dispatches nothing
	n = f.monitor.ProcessContent(context.Background(), videoA+" "+videoA+" "+videoB)
	assert.Equal(0, n)
	assert.Len(f.downloader.URLs(), 2)
	// One skip for the repeated URL in the first pass, three in the second
	assert.Equal(4.0, testutil.ToFloat64(f.metrics.URLsSkipped.WithLabelValues(metrics.SkipSeen)))
}

func TestProcessContentSkipsUnsupported(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, clipboard.NewMemory(), DefaultConfig())

	n := f.monitor.ProcessContent(context.Background(), "see https://example.com/x and https://notyoutube.com/y")
	assert.Equal(0, n)
	assert.Empty(f.downloader.URLs())
	assert.Equal(0, f.seen.Count())
	assert.Equal(2.0, testutil.ToFloat64(f.metrics.URLsSkipped.WithLabelValues(metrics.SkipUnsupported)))

	assert.Equal(0, f.monitor.ProcessContent(context.Background(), "no links here"))
}

func TestProcessContentFailureStillMarksSeen(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, clipboard.NewMemory(), DefaultConfig())
	f.downloader.fail[videoA] = errors.New("boom")

	n := f.monitor.ProcessContent(context.Background(), videoA+"\n"+videoB)
	assert.Equal(2, n, "a failure must not abort the batch")
	assert.True(f.seen.Contains(seen.HashURL(videoA)))
	// Only successes reach the archive
	assert.Equal([]seen.ID{seen.HashURL(videoB)}, f.archive.ids)
	assert.Equal(1.0, testutil.ToFloat64(f.metrics.DownloadsFailed))
	assert.Equal(1.0, testutil.ToFloat64(f.metrics.DownloadsCompleted))

	assert.Equal(0, f.monitor.ProcessContent(context.Background(), videoA))
	assert.Len(f.downloader.URLs(), 2)
}

func TestProcessURL(t *testing.T) {
	assert := assert_.New(t)
	f := newFixture(t, clipboard.NewMemory(), DefaultConfig())
	const other = "https://example.com/video.mp4"

	// Manual mode ignores the allow-list
	assert.NoError(f.monitor.ProcessURL(context.Background(), other))
	assert.Equal([]string{other}, f.downloader.URLs())

	// ... but not the seen set
	assert.NoError(f.monitor.ProcessURL(context.Background(), other))
	assert.Len(f.downloader.URLs(), 1)

	boom := errors.New("boom")
	f.downloader.fail[videoA] = boom
	assert.ErrorIs(f.monitor.ProcessURL(context.Background(), videoA), boom)
}

func TestPoll(t *testing.T) {
	assert := assert_.New(t)
	readErr := errors.New("no display")
	clip := clipboard.NewMemory(
		clipboard.Reading{Text: ""},
		clipboard.Reading{Text: videoA},
		clipboard.Reading{Text: videoA},
		clipboard.Reading{Err: readErr},
		clipboard.Reading{Text: videoB},
	)
	f := newFixture(t, clip, DefaultConfig())
	ctx := context.Background()

	changed, err := f.monitor.Poll(ctx)
	assert.NoError(err)
	assert.False(changed, "empty clipboard is not a change")

	changed, err = f.monitor.Poll(ctx)
	assert.NoError(err)
	assert.True(changed)

	changed, err = f.monitor.Poll(ctx)
	assert.NoError(err)
	assert.False(changed)

	_, err = f.monitor.Poll(ctx)
	assert.ErrorIs(err, clipboard.ErrRead)
	assert.ErrorIs(err, readErr)

	changed, err = f.monitor.Poll(ctx)
	assert.NoError(err)
	assert.True(changed)

	assert.Equal([]string{videoA, videoB}, f.downloader.URLs())
	assert.Equal(1.0, testutil.ToFloat64(f.metrics.ClipboardErrors))
}

func TestPollSameURLInNewContent(t *testing.T) {
	assert := assert_.New(t)
	clip := clipboard.NewMemoryText(videoA, "again: "+videoA)
	f := newFixture(t, clip, DefaultConfig())

	changed, err := f.monitor.Poll(context.Background())
	require.NoError(t, err)
	assert.True(changed)
	changed, err = f.monitor.Poll(context.Background())
	require.NoError(t, err)
	assert.True(changed)
	assert.Len(f.downloader.URLs(), 1)
}

func TestRunStopsOnCancel(t *testing.T) {
	clip := clipboard.NewMemoryText(videoA, videoB)
	f := newFixture(t, clip, Config{PollInterval: time.Millisecond, ErrorBackoff: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool { return len(f.downloader.URLs()) == 2 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert_.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert_.Equal(t, []string{videoA, videoB}, f.downloader.URLs())
}

func TestRunBacksOffOnError(t *testing.T) {
	clip := clipboard.NewMemory(clipboard.Reading{Err: errors.New("no display")})
	f := newFixture(t, clip, Config{PollInterval: time.Millisecond, ErrorBackoff: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool { return clip.Reads() >= 1 }, time.Second, time.Millisecond)
	// The backoff is far longer than the test, so no further reads happen
	time.Sleep(20 * time.Millisecond)
	assert_.Equal(t, 1, clip.Reads())

	cancel()
	select {
	case err := <-done:
		assert_.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return during backoff")
	}
}

func TestRunCancelledDuringDownload(t *testing.T) {
	clip := clipboard.NewMemoryText(videoA + " " + videoB)
	f := newFixture(t, clip, Config{PollInterval: time.Millisecond})
	f.downloader.block = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.monitor.Run(ctx) }()

	require.Eventually(t, func() bool { return clip.Reads() >= 1 }, time.Second, time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert_.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert_.Empty(t, f.archive.ids)
}
