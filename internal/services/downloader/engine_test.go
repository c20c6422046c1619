package downloader

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/utils"
)

func testEngineConfig() *config.Config {
	return &config.Config{
		DownloadRetryAttempts:       1,
		DownloadRetryBackoffSeconds: 1,
		RequestTimeoutSeconds:       5,
		UserAgent:                   "test-agent",
		RefererHost:                 "git.ir",
		RefererURL:                  "https://git.ir/",
	}
}

func newTestEngine(cfg *config.Config) *Engine {
	return NewEngine(cfg, utils.NoCookies{}, testLogger())
}

// fileServer serves content with HEAD and ranged GET support, recording the
// Range header of the last GET.
type fileServer struct {
	content   []byte
	lastRange string
}

func (f *fileServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodHead:
		w.Header().Set("Content-Length", strconv.Itoa(len(f.content)))
		w.WriteHeader(http.StatusOK)
	case http.MethodGet:
		f.lastRange = r.Header.Get("Range")
		if f.lastRange != "" {
			var from int
			fmt.Sscanf(f.lastRange, "bytes=%d-", &from)
			w.Header().Set("Content-Range",
				fmt.Sprintf("bytes %d-%d/%d", from, len(f.content)-1, len(f.content)))
			w.WriteHeader(http.StatusPartialContent)
			w.Write(f.content[from:])
			return
		}
		w.Write(f.content)
	}
}

func TestDownloadFullFile(t *testing.T) {
	server := &fileServer{content: []byte("hello course content")}
	ts := httptest.NewServer(server)
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())
	destination := filepath.Join(t.TempDir(), "out", "file.bin")

	result, err := engine.Download(context.Background(), ts.URL+"/file.bin", destination, nil)
	require.NoError(t, err)

	assert.Equal(t, int64(len(server.content)), result.TotalSize)
	assert.Equal(t, int64(len(server.content)), result.DownloadedBytes)

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, server.content, data)
}

func TestDownloadResumesPartialFile(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	server := &fileServer{content: content}
	ts := httptest.NewServer(server)
	defer ts.Close()

	destination := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(destination, content[:8], 0644))

	engine := newTestEngine(testEngineConfig())
	result, err := engine.Download(context.Background(), ts.URL+"/file.bin", destination, nil)
	require.NoError(t, err)

	assert.Equal(t, "bytes=8-", server.lastRange)
	assert.Equal(t, int64(len(content)), result.TotalSize)
	assert.Equal(t, int64(len(content)-8), result.DownloadedBytes)

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestDownloadRestartsWhenRangeIgnored(t *testing.T) {
	content := []byte("0123456789abcdefghij")
	mux := http.NewServeMux()
	mux.HandleFunc("/file.bin", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Content-Length", strconv.Itoa(len(content)))
			return
		}
		// Plain 200 regardless of any Range header.
		w.Write(content)
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	destination := filepath.Join(t.TempDir(), "file.bin")
	require.NoError(t, os.WriteFile(destination, []byte("stale-prefix"), 0644))

	engine := newTestEngine(testEngineConfig())
	result, err := engine.Download(context.Background(), ts.URL+"/file.bin", destination, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), result.DownloadedBytes)

	data, err := os.ReadFile(destination)
	require.NoError(t, err)
	assert.Equal(t, content, data)
}

func TestDownloadHTTPErrorCarriesStatusCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())
	_, err := engine.Download(context.Background(), ts.URL+"/file.bin",
		filepath.Join(t.TempDir(), "file.bin"), nil)
	require.Error(t, err)

	var downloadErr *DownloadError
	require.ErrorAs(t, err, &downloadErr)
	assert.Equal(t, http.StatusForbidden, downloadErr.StatusCode)
}

func TestDownloadSendsIdentityHeaders(t *testing.T) {
	var gotUA, gotReferer string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotReferer = r.Header.Get("Referer")
		w.Write([]byte("ok"))
	}))
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())
	_, err := engine.Download(context.Background(), ts.URL+"/file.bin",
		filepath.Join(t.TempDir(), "file.bin"), nil)
	require.NoError(t, err)

	assert.Equal(t, "test-agent", gotUA)
	// The test server is not the referer host, so no Referer is attached.
	assert.Empty(t, gotReferer)
}

func TestDownloadProgressCallback(t *testing.T) {
	server := &fileServer{content: []byte(strings.Repeat("x", 4096))}
	ts := httptest.NewServer(server)
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())

	var last Progress
	calls := 0
	_, err := engine.Download(context.Background(), ts.URL+"/file.bin",
		filepath.Join(t.TempDir(), "file.bin"), &Options{
			OnProgress: func(p Progress) {
				last = p
				calls++
			},
		})
	require.NoError(t, err)
	require.Greater(t, calls, 0)
	assert.Equal(t, int64(4096), last.Downloaded)
	assert.Equal(t, int64(4096), last.Total)
	assert.InDelta(t, 100.0, last.Percent, 0.01)
}

func TestDownloadSpeedCap(t *testing.T) {
	// Two chunk-sizes of payload: the limiter burst covers the first, the
	// second has to wait for token refill at the configured rate.
	server := &fileServer{content: []byte(strings.Repeat("x", 2*downloadChunkSize))}
	ts := httptest.NewServer(server)
	defer ts.Close()

	cfg := testEngineConfig()
	cfg.DownloadSpeedLimitKB = 4096
	engine := newTestEngine(cfg)

	destination := filepath.Join(t.TempDir(), "file.bin")
	started := time.Now()
	result, err := engine.Download(context.Background(), ts.URL+"/file.bin", destination, nil)
	require.NoError(t, err)

	// 1 MiB over burst at 4 MiB/s is ~250ms of enforced waiting.
	assert.GreaterOrEqual(t, time.Since(started), 150*time.Millisecond)
	assert.Equal(t, int64(2*downloadChunkSize), result.DownloadedBytes)

	info, err := os.Stat(destination)
	require.NoError(t, err)
	assert.Equal(t, int64(2*downloadChunkSize), info.Size())
}

func TestDownloadLogCallbackThrottled(t *testing.T) {
	server := &fileServer{content: []byte(strings.Repeat("x", 256*1024))}
	ts := httptest.NewServer(server)
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())

	logCalls := 0
	_, err := engine.Download(context.Background(), ts.URL+"/file.bin",
		filepath.Join(t.TempDir(), "file.bin"), &Options{
			OnLog: func(event string, fields map[string]interface{}) {
				logCalls++
			},
		})
	require.NoError(t, err)

	// Log events fire at most once per five seconds, so a sub-second
	// transfer emits none even across many chunks.
	assert.Zero(t, logCalls)
}

func TestRemoteSizeSingleAttemptWhenRetriesDisabled(t *testing.T) {
	hits := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer ts.Close()

	cfg := testEngineConfig()
	cfg.DownloadRetryAttempts = 0
	engine := newTestEngine(cfg)

	_, err := engine.RemoteSize(context.Background(), ts.URL+"/file.bin")
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestRemoteSize(t *testing.T) {
	server := &fileServer{content: []byte("hello")}
	ts := httptest.NewServer(server)
	defer ts.Close()

	engine := newTestEngine(testEngineConfig())
	size, err := engine.RemoteSize(context.Background(), ts.URL+"/file.bin")
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}
