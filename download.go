package clip_archiver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
)

// ProgressFunc receives byte progress on the goroutine that is doing the download. expected is 0 while unknown.
type ProgressFunc func(downloaded int, expected int)

type Download interface {
	// AddDownloadedBytes increases how many bytes have been successfully downloaded so far.
	AddDownloadedBytes(n int)

	// AddExpectedBytes increases how many bytes are expected to be downloaded.
	AddExpectedBytes(n int)

	// SetProgress replaces both counters, for providers that report absolute progress.
	SetProgress(downloaded int, expected int)

	// Context is the cancellable context of this Download.
	Context() context.Context

	// Options are the settings the download was started with.
	Options() DownloadOptions

	// CreateFile creates a file at path (relative paths are relative to the target directory), creating parent
	// directories as needed.
	CreateFile(path string) (io.WriteCloser, error)

	// Progress returns the downloaded and expected bytes of the download.
	Progress() (int, int)

	// SaveHTTPRequest will execute the http.Request with Context() and then download the resulting stream like SaveStream.
	SaveHTTPRequest(path string, req *http.Request) error

	// SaveStream will download the stream to the named file, calling AddDownloadedBytes as necessary.
	SaveStream(path string, stream io.Reader) error

	// SaveURL will make a GET request to the URL and then download the resulting stream like SaveStream.
	SaveURL(path string, url string) error

	// Write will ignore the data but will send the byte count to AddDownloadedBytes. Allows progress tracking using
	// io.MultiWriter (but ensure the Download is the last writer to avoid counting failed writes).
	Write(p []byte) (n int, err error)

	// AddFile records a file written outside of CreateFile, e.g. by an external program.
	AddFile(path string)

	// Files lists the paths written through CreateFile or recorded with AddFile.
	Files() []string
}

type download struct {
	ctx              context.Context
	options          DownloadOptions
	client           *http.Client
	progressCallback ProgressFunc
	expectedBytes    int
	downloadedBytes  int
	files            []string
}

func (d *download) AddDownloadedBytes(n int) {
	d.downloadedBytes += n
	d.notify()
}

func (d *download) AddExpectedBytes(n int) {
	if n > 0 {
		d.expectedBytes += n
		d.notify()
	}
}

func (d *download) SetProgress(downloaded int, expected int) {
	d.downloadedBytes = downloaded
	d.expectedBytes = expected
	d.notify()
}

func (d *download) notify() {
	if d.progressCallback != nil {
		d.progressCallback(d.Progress())
	}
}

func (d *download) Context() context.Context {
	return d.ctx
}

func (d *download) Options() DownloadOptions {
	return d.options
}

func (d *download) CreateFile(path string) (io.WriteCloser, error) {
	targetPath := d.targetPath(path)
	if err := os.MkdirAll(filepath.Dir(targetPath), 0775); err != nil {
		return nil, err
	}
	f, err := os.Create(targetPath)
	if err != nil {
		return nil, err
	}
	d.files = append(d.files, targetPath)
	return f, nil
}

func (d *download) Progress() (int, int) {
	return d.downloadedBytes, d.expectedBytes
}

func (d *download) SaveHTTPRequest(path string, req *http.Request) error {
	if req == nil {
		return fmt.Errorf("nil request")
	}
	req = req.WithContext(d.Context())
	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("download failed: %s", resp.Status)
	}
	d.AddExpectedBytes(int(resp.ContentLength))
	return d.SaveStream(path, resp.Body)
}

func (d *download) SaveStream(path string, stream io.Reader) error {
	f, err := d.CreateFile(path)
	if err != nil {
		return fmt.Errorf("failed to open target file: %w", err)
	}
	defer f.Close()

	_, err = io.Copy(io.MultiWriter(f, d), &readerContext{ctx: d.ctx, r: stream})
	if err != nil {
		return fmt.Errorf("failed to save stream: %w", err)
	}
	return f.Close()
}

func (d *download) SaveURL(path string, url string) error {
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return d.SaveHTTPRequest(path, req)
}

func (d *download) Write(p []byte) (n int, err error) {
	n = len(p)
	d.AddDownloadedBytes(n)
	return n, nil
}

func (d *download) AddFile(path string) {
	d.files = append(d.files, d.targetPath(path))
}

func (d *download) Files() []string {
	return d.files
}

func (d *download) targetPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(d.options.TargetDir, path)
}

type DownloadBuilder interface {
	Build() Download
	WithContext(ctx context.Context) DownloadBuilder
	WithHTTPClient(client *http.Client) DownloadBuilder
	WithOptions(opts DownloadOptions) DownloadBuilder
	WithProgressCallback(f ProgressFunc) DownloadBuilder
}

type downloadBuilder struct {
	download
}

func NewDownloadBuilder() DownloadBuilder {
	return &downloadBuilder{
		download: download{
			ctx:     context.Background(),
			options: DefaultDownloadOptions(),
			client:  http.DefaultClient,
		},
	}
}

func (b *downloadBuilder) Build() Download {
	d := b.download
	d.files = nil
	return &d
}

func (b *downloadBuilder) WithContext(ctx context.Context) DownloadBuilder {
	b.ctx = ctx
	return b
}

func (b *downloadBuilder) WithHTTPClient(client *http.Client) DownloadBuilder {
	b.client = client
	return b
}

func (b *downloadBuilder) WithOptions(opts DownloadOptions) DownloadBuilder {
	b.options = opts
	return b
}

func (b *downloadBuilder) WithProgressCallback(f ProgressFunc) DownloadBuilder {
	b.progressCallback = f
	return b
}
