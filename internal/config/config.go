// Package config loads the clip-archiver configuration. Values are layered: built-in defaults, then the YAML config
// file, then CLIP_ARCHIVER_* environment variables. Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/r3labs/diff/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	clip_archiver "github.com/alanbriolat/clip-archiver"
	"github.com/alanbriolat/clip-archiver/internal/extract"
	"github.com/alanbriolat/clip-archiver/internal/monitor"
)

const (
	DefaultPath = "config.yaml"
	EnvPrefix   = "CLIP_ARCHIVER_"
)

var ErrInvalid = errors.New("invalid configuration")

type Config struct {
	DownloadPath       string        `yaml:"download_path" env:"DOWNLOAD_PATH" diff:"download_path"`
	SupportedPlatforms []string      `yaml:"supported_platforms" env:"SUPPORTED_PLATFORMS" diff:"supported_platforms"`
	Format             string        `yaml:"format" env:"FORMAT" diff:"format"`
	Quality            string        `yaml:"quality" env:"QUALITY" diff:"quality"`
	OutputTemplate     string        `yaml:"output_template" env:"OUTPUT_TEMPLATE" diff:"output_template"`
	PollInterval       time.Duration `yaml:"poll_interval" env:"POLL_INTERVAL" diff:"poll_interval"`
	ErrorBackoff       time.Duration `yaml:"error_backoff" env:"ERROR_BACKOFF" diff:"error_backoff"`
	// ArchiveFile records successfully downloaded URLs across runs; empty means in-memory only.
	ArchiveFile    string   `yaml:"archive_file" env:"ARCHIVE_FILE" diff:"archive_file"`
	ArchiveBackend string   `yaml:"archive_backend" env:"ARCHIVE_BACKEND" diff:"archive_backend"`
	HistoryDB      string   `yaml:"history_db" env:"HISTORY_DB" diff:"history_db"`
	Clipboard      string   `yaml:"clipboard" env:"CLIPBOARD" diff:"clipboard"`
	Providers      []string `yaml:"providers" env:"PROVIDERS" diff:"providers"`
	MetricsAddr    string   `yaml:"metrics_addr" env:"METRICS_ADDR" diff:"metrics_addr"`
	LogLevel       string   `yaml:"log_level" env:"LOG_LEVEL" diff:"log_level"`
	// LogFile additionally receives all log output at debug level; empty means console only.
	LogFile string `yaml:"log_file" env:"LOG_FILE" diff:"log_file"`
}

func Default() Config {
	return Config{
		DownloadPath:       defaultDownloadPath(),
		SupportedPlatforms: append([]string(nil), extract.DefaultDomains...),
		Format:             clip_archiver.DefaultFormat,
		Quality:            clip_archiver.DefaultQuality,
		OutputTemplate:     clip_archiver.DefaultOutputTemplate,
		PollInterval:       monitor.DefaultPollInterval,
		ErrorBackoff:       monitor.DefaultErrorBackoff,
		ArchiveBackend:     "file",
		Clipboard:          "auto",
		LogLevel:           "info",
	}
}

func defaultDownloadPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Downloads")
}

// Load builds the configuration from defaults, the YAML file at path and the environment. If path is empty,
// DefaultPath is used when it exists. A file that cannot be parsed is logged and ignored; a file that was asked for
// explicitly but cannot be read is an error. The result is not validated, so that command-line flags can still
// override bad values; call Validate once they have been applied.
func Load(path string, logger *zap.Logger) (Config, error) {
	log := logger.Named("config").Sugar()
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		loaded, err := Parse(data)
		if err != nil {
			log.Errorf("error loading config: %v", err)
			log.Info("using default configuration")
		} else {
			log.Debugf("loaded config from %s", path)
			cfg = loaded
		}
	case !explicit && errors.Is(err, os.ErrNotExist):
		log.Debugf("no config file at %s, using defaults", path)
	default:
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Parse decodes YAML on top of the defaults. Keys that are absent keep their default value.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with any CLIP_ARCHIVER_* environment variables that are set.
func ApplyEnv(cfg *Config) error {
	return ApplyEnvFrom(cfg, nil)
}

// ApplyEnvFrom is ApplyEnv with an explicit environment; nil means the process environment.
func ApplyEnvFrom(cfg *Config, environment map[string]string) error {
	opts := env.Options{Prefix: EnvPrefix, Environment: environment}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return fmt.Errorf("failed to parse environment: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	var result *multierror.Error
	if c.DownloadPath == "" {
		result = multierror.Append(result, errors.New("download_path must not be empty"))
	}
	if len(c.SupportedPlatforms) == 0 {
		result = multierror.Append(result, errors.New("supported_platforms must not be empty"))
	}
	if _, err := clip_archiver.ParseQuality(c.Quality); err != nil {
		result = multierror.Append(result, err)
	}
	if c.PollInterval <= 0 {
		result = multierror.Append(result, fmt.Errorf("poll_interval must be positive, got %v", c.PollInterval))
	}
	if c.ErrorBackoff <= 0 {
		result = multierror.Append(result, fmt.Errorf("error_backoff must be positive, got %v", c.ErrorBackoff))
	}
	switch c.ArchiveBackend {
	case "", "file", "bolt":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown archive_backend %q", c.ArchiveBackend))
	}
	switch c.Clipboard {
	case "", "auto", "native", "command":
	default:
		result = multierror.Append(result, fmt.Errorf("unknown clipboard %q", c.Clipboard))
	}
	if result != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, result)
	}
	return nil
}

// DownloadOptions converts the download settings into the form providers use.
func (c Config) DownloadOptions() clip_archiver.DownloadOptions {
	return clip_archiver.DownloadOptions{
		Format:         c.Format,
		OutputTemplate: c.OutputTemplate,
		Quality:        c.Quality,
		TargetDir:      c.DownloadPath,
	}
}

func (c Config) MonitorConfig() monitor.Config {
	return monitor.Config{PollInterval: c.PollInterval, ErrorBackoff: c.ErrorBackoff}
}

// LogChanges logs every setting of cfg that differs from the defaults.
func LogChanges(logger *zap.Logger, cfg Config) {
	log := logger.Named("config").Sugar()
	changes, err := diff.Diff(Default(), cfg)
	if err != nil {
		log.Errorf("failed to diff config against defaults: %v", err)
		return
	}
	for _, change := range changes {
		log.Debugf("%v: %#v -> %#v", change.Path, change.From, change.To)
	}
}
