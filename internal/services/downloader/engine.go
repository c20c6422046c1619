package downloader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/acmsdev/acms/internal/config"
	"github.com/acmsdev/acms/internal/utils"
)

const downloadChunkSize = 1 << 20 // 1 MiB

// DownloadError is a transport failure that preserves the HTTP status code
// when the server returned one. Status 0 means the request never got a
// response.
type DownloadError struct {
	URL        string
	StatusCode int
	Message    string
}

func (e *DownloadError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("download failed with status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("download failed: %s", e.Message)
}

// Progress is a snapshot of one in-flight download, delivered to the
// progress callback on every chunk.
type Progress struct {
	Downloaded int64
	Total      int64 // 0 when the total size is unknown
	Percent    float64
	SpeedBps   float64
	ETA        time.Duration // 0 when unknown
}

// ProgressFunc receives a Progress snapshot per chunk.
type ProgressFunc func(Progress)

// LogFunc receives throttled progress events suitable for logging.
type LogFunc func(event string, fields map[string]interface{})

// Result describes a completed download call. DownloadedBytes counts only
// the bytes fetched by this call; a resumed download reports the remainder,
// not the full file size.
type Result struct {
	Path            string
	TotalSize       int64 // 0 when the server did not report Content-Length
	DownloadedBytes int64
}

// Options carries the optional per-call knobs for Engine.Download.
type Options struct {
	Headers    map[string]string
	OnProgress ProgressFunc
	OnLog      LogFunc
}

// Engine fetches a URL to a local path with resume support, bounded retries,
// an optional throughput cap, and progress callbacks. One Engine handles one
// URL at a time per call; callers fan out across episodes if they want
// parallelism.
type Engine struct {
	client        *http.Client
	cookies       utils.CookieSource
	userAgent     string
	refererHost   string
	refererURL    string
	speedLimitKB  int
	retryAttempts int
	retryBackoff  time.Duration
	logger        *logrus.Logger
}

// NewEngine creates a download engine from configuration.
func NewEngine(cfg *config.Config, cookies utils.CookieSource, logger *logrus.Logger) *Engine {
	if cookies == nil {
		cookies = utils.NoCookies{}
	}
	// No overall client timeout: it would cap the whole body read and abort
	// long video transfers. The header timeout bounds unresponsive servers.
	return &Engine{
		client: &http.Client{
			Transport: &http.Transport{
				ResponseHeaderTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
				Proxy:                 http.ProxyFromEnvironment,
			},
		},
		cookies:       cookies,
		userAgent:     cfg.UserAgent,
		refererHost:   cfg.RefererHost,
		refererURL:    cfg.RefererURL,
		speedLimitKB:  cfg.DownloadSpeedLimitKB,
		retryAttempts: cfg.DownloadRetryAttempts,
		retryBackoff:  time.Duration(cfg.DownloadRetryBackoffSeconds) * time.Second,
		logger:        logger,
	}
}

// Download fetches rawURL into destination. If a partial file already exists
// and the server honors byte ranges, the transfer resumes where it left off.
func (e *Engine) Download(ctx context.Context, rawURL, destination string, opts *Options) (*Result, error) {
	if opts == nil {
		opts = &Options{}
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	totalSize, err := e.headTotalSize(ctx, rawURL, opts.Headers)
	if err != nil {
		return nil, err
	}

	var existing int64
	if info, statErr := os.Stat(destination); statErr == nil {
		existing = info.Size()
	}

	headers := e.prepareHeaders(rawURL, opts.Headers)
	resuming := existing > 0 && totalSize > 0 && existing < totalSize
	if resuming {
		headers["Range"] = fmt.Sprintf("bytes=%d-", existing)
	} else {
		existing = 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	e.applyHeaders(req, headers)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &DownloadError{URL: rawURL, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &DownloadError{URL: rawURL, StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	// Server ignored the range request; restart from zero.
	if resuming && resp.StatusCode == http.StatusOK {
		existing = 0
		resuming = false
	}

	flags := os.O_CREATE | os.O_WRONLY
	if resuming {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	output, err := os.OpenFile(destination, flags, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination: %w", err)
	}
	defer output.Close()

	downloaded, err := e.streamBody(ctx, resp.Body, output, existing, totalSize, opts)
	if err != nil {
		return nil, err
	}

	return &Result{
		Path:            destination,
		TotalSize:       totalSize,
		DownloadedBytes: downloaded - existing,
	}, nil
}

// RemoteSize checks that rawURL answers a HEAD request and returns the
// reported Content-Length, 0 when the server omits it.
func (e *Engine) RemoteSize(ctx context.Context, rawURL string) (int64, error) {
	return e.headTotalSize(ctx, rawURL, nil)
}

// headTotalSize issues a HEAD request, retried with exponential backoff on
// transient transport errors, to learn the Content-Length. Returns 0 when
// the server does not report one.
func (e *Engine) headTotalSize(ctx context.Context, rawURL string, extraHeaders map[string]string) (int64, error) {
	headers := e.prepareHeaders(rawURL, extraHeaders)

	var totalSize int64
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("failed to create request: %w", err))
		}
		e.applyHeaders(req, headers)

		resp, err := e.client.Do(req)
		if err != nil {
			return &DownloadError{URL: rawURL, Message: err.Error()}
		}
		defer resp.Body.Close()
		io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return backoff.Permanent(&DownloadError{URL: rawURL, StatusCode: resp.StatusCode, Message: resp.Status})
		}

		if length := resp.Header.Get("Content-Length"); length != "" {
			if parsed, parseErr := strconv.ParseInt(length, 10, 64); parseErr == nil && parsed > 0 {
				totalSize = parsed
			}
		}
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = e.retryBackoff
	policy.MaxInterval = 15 * time.Second

	maxRetries := e.retryAttempts - 1
	if maxRetries < 0 {
		maxRetries = 0
	}
	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, uint64(maxRetries)), ctx))
	if err != nil {
		return 0, err
	}
	return totalSize, nil
}

func (e *Engine) streamBody(ctx context.Context, body io.Reader, output *os.File, existing, totalSize int64, opts *Options) (int64, error) {
	var limiter *rate.Limiter
	if e.speedLimitKB > 0 {
		limitBps := rate.Limit(e.speedLimitKB * 1024)
		limiter = rate.NewLimiter(limitBps, downloadChunkSize)
	}

	buf := make([]byte, downloadChunkSize)
	downloaded := existing
	startedAt := time.Now()
	lastLog := startedAt

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if _, writeErr := output.Write(buf[:n]); writeErr != nil {
				return downloaded, fmt.Errorf("failed to write chunk: %w", writeErr)
			}
			downloaded += int64(n)

			elapsed := time.Since(startedAt)
			if elapsed <= 0 {
				elapsed = time.Millisecond
			}
			speed := float64(downloaded-existing) / elapsed.Seconds()

			if opts.OnProgress != nil {
				progress := Progress{Downloaded: downloaded, Total: totalSize, SpeedBps: speed}
				if totalSize > 0 {
					progress.Percent = float64(downloaded) / float64(totalSize) * 100
					if speed > 0 {
						progress.ETA = time.Duration(float64(totalSize-downloaded)/speed) * time.Second
					}
				}
				opts.OnProgress(progress)
			}

			if opts.OnLog != nil && time.Since(lastLog) >= 5*time.Second {
				opts.OnLog("download_progress", map[string]interface{}{
					"downloaded": downloaded,
					"total":      totalSize,
					"speed_bps":  speed,
				})
				lastLog = time.Now()
			}

			if limiter != nil {
				if err := limiter.WaitN(ctx, n); err != nil {
					return downloaded, err
				}
			}
		}

		if readErr == io.EOF {
			return downloaded, nil
		}
		if readErr != nil {
			return downloaded, &DownloadError{Message: readErr.Error()}
		}
	}
}

// prepareHeaders builds the outbound header set: a realistic browser user
// agent and locale, the caller's headers on top, and a Referer when the
// target host is the known referer-gated origin.
func (e *Engine) prepareHeaders(rawURL string, extra map[string]string) map[string]string {
	merged := map[string]string{
		"User-Agent":      e.userAgent,
		"Accept-Language": "en-US,en;q=0.9,fa;q=0.8",
		"Accept":          "*/*",
	}
	for key, value := range extra {
		merged[key] = value
	}

	if _, ok := merged["Referer"]; !ok && e.refererHost != "" {
		if parsed, err := url.Parse(rawURL); err == nil {
			host := strings.ToLower(parsed.Hostname())
			if host == e.refererHost || strings.HasSuffix(host, "."+e.refererHost) {
				merged["Referer"] = e.refererURL
			}
		}
	}
	return merged
}

func (e *Engine) applyHeaders(req *http.Request, headers map[string]string) {
	for key, value := range headers {
		req.Header.Set(key, value)
	}
	for name, value := range e.cookies.Cookies() {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
}
