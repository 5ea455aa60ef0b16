package download

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/sync/errgroup"
)

//go:generate go tool mockgen -destination=mocks/mock_fetcher.go -package=mocks github.com/yuanying/html2epub/internal/download Fetcher

// WindowSize is the maximum number of fetches in flight at once.
const WindowSize = 3

// Fetcher retrieves the bytes behind a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Task pairs a source URL with the local file it is written to.
type Task struct {
	URL  string
	Path string
}

// Status describes how a task ended.
type Status int

const (
	// StatusSkipped means the destination could not be created and no fetch was attempted.
	StatusSkipped Status = iota
	// StatusFailed means the fetch failed and the destination is left empty.
	StatusFailed
	// StatusOK means the destination holds the fetched bytes.
	StatusOK
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Result is the outcome of one task.
type Result struct {
	Task   Task
	Status Status
	Bytes  int64
	Err    error
}

// OK reports whether the destination holds the fetched bytes.
func (r Result) OK() bool {
	return r.Status == StatusOK
}

// Downloader runs download tasks in fixed-size windows.
type Downloader struct {
	fetcher Fetcher
	logger  *slog.Logger
}

// New creates a Downloader using fetcher for every task.
func New(fetcher Fetcher, logger *slog.Logger) *Downloader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Downloader{fetcher: fetcher, logger: logger}
}

// DownloadAll runs every task and returns one Result per task, in task order.
// Completion order inside a window is unspecified.
func (d *Downloader) DownloadAll(ctx context.Context, tasks []Task) []Result {
	results := make([]Result, len(tasks))

	for start := 0; start < len(tasks); start += WindowSize {
		end := min(start+WindowSize, len(tasks))
		d.logger.Debug("starting download window", "first", start, "last", end-1, "total", len(tasks))

		var g errgroup.Group
		for i := start; i < end; i++ {
			g.Go(func() error {
				// results[i] is written by this goroutine only.
				results[i] = d.run(ctx, tasks[i])
				return nil
			})
		}
		_ = g.Wait()
	}

	return results
}

// run creates the destination before fetching so that a failed fetch leaves
// an empty file behind rather than nothing.
func (d *Downloader) run(ctx context.Context, task Task) Result {
	res := Result{Task: task}

	f, err := os.Create(task.Path)
	if err != nil {
		res.Status = StatusSkipped
		res.Err = fmt.Errorf("failed to create %s: %w", task.Path, err)
		d.logger.Warn("skipping download", "url", task.URL, "path", task.Path, "error", err)
		return res
	}
	defer f.Close()

	data, err := d.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
		d.logger.Warn("download failed", "url", task.URL, "path", task.Path, "error", err)
		return res
	}

	n, err := f.Write(data)
	res.Bytes = int64(n)
	if err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to write %s: %w", task.Path, err)
		d.logger.Warn("download write failed", "url", task.URL, "path", task.Path, "error", err)
		return res
	}
	if err := f.Close(); err != nil {
		res.Status = StatusFailed
		res.Err = fmt.Errorf("failed to close %s: %w", task.Path, err)
		return res
	}

	res.Status = StatusOK
	d.logger.Debug("downloaded", "url", task.URL, "path", task.Path, "bytes", n)
	return res
}

// Summary counts results by status.
func Summary(results []Result) (ok, failed, skipped int) {
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		default:
			skipped++
		}
	}
	return ok, failed, skipped
}
