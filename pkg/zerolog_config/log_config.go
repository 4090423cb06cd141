package zerolog_config

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

// ElasticsearchWriter sends logs directly to Elasticsearch
type ElasticsearchWriter struct {
	URL    string
	Client *http.Client
}

func (ew ElasticsearchWriter) Write(p []byte) (n int, err error) {
	client := ew.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Post(ew.URL+"/_doc", "application/json", bytes.NewReader(p))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("elasticsearch returned %d", resp.StatusCode)
	}
	return len(p), nil
}

// Options configures the global logger
type Options struct {
	App              string
	Level            string
	LogDir           string // empty disables the file log
	ElasticsearchURL string // empty disables shipping
	Console          io.Writer
	NoColor          bool
	Now              func() time.Time
}

// LogFileName returns the daily log file of app under dir.
func LogFileName(dir, app string, now time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s_%s.log", app, now.Format("2006-01-02")))
}

// Startup replaces log.Logger with an ECS logger writing to the console, the
// daily log file and Elasticsearch. The returned closer closes the log file.
func Startup(opts Options) (io.Closer, error) {
	if opts.App == "" {
		return nil, fmt.Errorf("app name is required")
	}
	level := zerolog.InfoLevel
	if opts.Level != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(opts.Level))
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = l
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	writers := []io.Writer{zerolog.ConsoleWriter{Out: console, NoColor: opts.NoColor, TimeFormat: time.RFC3339}}

	var closer io.Closer = io.NopCloser(nil)
	if opts.LogDir != "" {
		if err := os.MkdirAll(opts.LogDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log dir: %w", err)
		}
		f, err := os.OpenFile(LogFileName(opts.LogDir, opts.App, now()), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writers = append(writers, f)
		closer = f
	}

	if opts.ElasticsearchURL != "" {
		writers = append(writers, ElasticsearchWriter{
			URL:    strings.TrimSuffix(opts.ElasticsearchURL, "/") + "/" + opts.App,
			Client: &http.Client{Timeout: 5 * time.Second},
		})
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = ecszerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Str("app", opts.App).Logger()
	return closer, nil
}
