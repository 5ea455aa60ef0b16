package download_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/yuanying/html2epub/internal/download"
	"github.com/yuanying/html2epub/internal/download/mocks"
	"github.com/yuanying/html2epub/internal/fetch"
)

// testLogger returns a discard logger for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDownloadAll_WritesFetchedBytes(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "http://x/a.png").Return([]byte("aaa"), nil)
	fetcher.EXPECT().Fetch(gomock.Any(), "http://x/b.jpg").Return([]byte("bbbb"), nil)

	tasks := []download.Task{
		{URL: "http://x/a.png", Path: filepath.Join(dir, "0.png")},
		{URL: "http://x/b.jpg", Path: filepath.Join(dir, "1.jpg")},
	}
	results := download.New(fetcher, testLogger()).DownloadAll(context.Background(), tasks)

	require.Len(t, results, 2)
	for i, r := range results {
		assert.Equal(t, tasks[i], r.Task, "results must follow task order")
		assert.True(t, r.OK())
		assert.NoError(t, r.Err)
	}
	assert.EqualValues(t, 4, results[1].Bytes)

	got, err := os.ReadFile(tasks[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "aaa", string(got))
}

func TestDownloadAll_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	fetcher := mocks.NewMockFetcher(ctrl)

	results := download.New(fetcher, testLogger()).DownloadAll(context.Background(), nil)
	assert.Empty(t, results)
}

func TestDownloadAll_FailureLeavesEmptyFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	timeoutErr := &fetch.Error{URL: "http://slow/x.gif", Err: context.DeadlineExceeded}
	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "http://slow/x.gif").Return(nil, timeoutErr)
	fetcher.EXPECT().Fetch(gomock.Any(), "http://ok/y.gif").Return([]byte("gif"), nil)

	tasks := []download.Task{
		{URL: "http://slow/x.gif", Path: filepath.Join(dir, "0.gif")},
		{URL: "http://ok/y.gif", Path: filepath.Join(dir, "1.gif")},
	}
	results := download.New(fetcher, testLogger()).DownloadAll(context.Background(), tasks)

	assert.Equal(t, download.StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	assert.True(t, results[1].OK(), "a failure must not affect other tasks in the window")

	info, err := os.Stat(tasks[0].Path)
	require.NoError(t, err, "destination must exist after a failed fetch")
	assert.Zero(t, info.Size())
}

func TestDownloadAll_TruncatesExisting(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "0.png")
	require.NoError(t, os.WriteFile(path, []byte("stale content from a previous run"), 0o644))

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	download.New(fetcher, testLogger()).DownloadAll(context.Background(), []download.Task{{URL: "http://x/0.png", Path: path}})

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestDownloadAll_CreateFailureSkipsFetch(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), "http://x/ok.png").Return([]byte("ok"), nil)
	// No expectation for the unreachable destination: a call would fail the test.

	tasks := []download.Task{
		{URL: "http://x/never.png", Path: filepath.Join(dir, "missing-dir", "0.png")},
		{URL: "http://x/ok.png", Path: filepath.Join(dir, "1.png")},
	}
	results := download.New(fetcher, testLogger()).DownloadAll(context.Background(), tasks)

	assert.Equal(t, download.StatusSkipped, results[0].Status)
	assert.Error(t, results[0].Err)
	assert.True(t, results[1].OK())

	ok, failed, skipped := download.Summary(results)
	assert.Equal(t, 1, ok)
	assert.Equal(t, 0, failed)
	assert.Equal(t, 1, skipped)
}

func TestDownloadAll_WindowBound(t *testing.T) {
	ctrl := gomock.NewController(t)
	dir := t.TempDir()

	var (
		inFlight    atomic.Int32
		maxInFlight atomic.Int32
		mu          sync.Mutex
		started     = map[string]int{}
		finished    = map[string]int{}
		clock       int
	)
	tick := func(m map[string]int, url string) {
		mu.Lock()
		defer mu.Unlock()
		clock++
		m[url] = clock
	}

	fetcher := mocks.NewMockFetcher(ctrl)
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Times(7).DoAndReturn(
		func(ctx context.Context, url string) ([]byte, error) {
			tick(started, url)
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			inFlight.Add(-1)
			tick(finished, url)
			if url == "http://x/4" {
				return nil, errors.New("boom")
			}
			return []byte(url), nil
		})

	tasks := make([]download.Task, 7)
	for i := range tasks {
		tasks[i] = download.Task{
			URL:  fmt.Sprintf("http://x/%d", i),
			Path: filepath.Join(dir, fmt.Sprintf("%d", i)),
		}
	}
	results := download.New(fetcher, testLogger()).DownloadAll(context.Background(), tasks)

	assert.LessOrEqual(t, maxInFlight.Load(), int32(download.WindowSize))

	// Every task of a window must start after every task of the previous window finished.
	for i := download.WindowSize; i < len(tasks); i++ {
		windowStart := (i/download.WindowSize - 1) * download.WindowSize
		for j := windowStart; j < windowStart+download.WindowSize; j++ {
			assert.Greater(t, started[tasks[i].URL], finished[tasks[j].URL],
				"task %d started before task %d settled", i, j)
		}
	}

	for i, r := range results {
		info, err := os.Stat(tasks[i].Path)
		require.NoError(t, err)
		if i == 4 {
			assert.Equal(t, download.StatusFailed, r.Status)
			assert.Zero(t, info.Size())
			continue
		}
		assert.True(t, r.OK())
		assert.Equal(t, int64(len(tasks[i].URL)), info.Size())
	}
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "ok", download.StatusOK.String())
	assert.Equal(t, "failed", download.StatusFailed.String())
	assert.Equal(t, "skipped", download.StatusSkipped.String())
}
