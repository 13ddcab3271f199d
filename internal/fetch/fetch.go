// Package fetch retrieves tabular snapshot sources for the dataset loader:
// local CSV files, http(s) URLs, or standard input.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Snapshot size limits; a CSV snapshot larger than this is almost certainly
// a misconfigured source rather than real data
const (
	MaxSnapshotBytes = 64 * 1024 * 1024 // 64MB for files and stdin
	MaxHTTPBytes     = 64 * 1024 * 1024 // 64MB for HTTP bodies (may lack Content-Length)
)

// HTTP timeout configuration for remote snapshot sources
const HTTPRequestTimeout = 30 * time.Second

// phase-specific timeout thresholds derived from HTTPRequestTimeout
var (
	httpDialTimeout           = HTTPRequestTimeout / 6
	httpTLSTimeout            = HTTPRequestTimeout / 6
	httpResponseHeaderTimeout = HTTPRequestTimeout / 2
)

// cappedReadCloser enforces a byte limit on an underlying reader so one
// oversized source cannot exhaust memory during load.
type cappedReadCloser struct {
	io.ReadCloser
	remaining int64
	source    string
}

func (c *cappedReadCloser) Read(p []byte) (n int, err error) {
	if c.remaining <= 0 {
		return 0, fmt.Errorf("snapshot from %q exceeds size limit", c.source)
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err = c.ReadCloser.Read(p)
	c.remaining -= int64(n)
	return
}

// httpClient is shared across fetches; safe for concurrent use.
var httpClient = &http.Client{
	Timeout: HTTPRequestTimeout,
	Transport: &http.Transport{
		Dial: (&net.Dialer{
			Timeout: httpDialTimeout,
		}).Dial,
		TLSHandshakeTimeout:   httpTLSTimeout,
		ResponseHeaderTimeout: httpResponseHeaderTimeout,
		DisableKeepAlives:     true,
	},
}

// Open resolves a snapshot source into a size-limited reader.
// It supports three kinds of sources:
//   - "-" reads from standard input
//   - sources starting with "http://" or "https://" are fetched via HTTP
//   - everything else is treated as a local file path
//
// ctx allows for cancellation and timeout control of remote fetches.
func Open(ctx context.Context, source string) (io.ReadCloser, error) {
	switch {
	case source == "-":
		return &cappedReadCloser{
			ReadCloser: io.NopCloser(os.Stdin),
			remaining:  MaxSnapshotBytes,
			source:     "stdin",
		}, nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		return openURL(ctx, source)
	default:
		return openFile(source)
	}
}

// openURL fetches a remote snapshot over HTTP(S).
func openURL(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %q: %w", url, err)
	}
	req.Header.Set("User-Agent", "tickersift/0.1")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %q: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetching %q: status %d %s", url, resp.StatusCode, resp.Status)
	}

	// reject early when the server declares an oversized body
	if contentLength := resp.Header.Get("Content-Length"); contentLength != "" {
		if size, err := strconv.ParseInt(contentLength, 10, 64); err == nil && size > MaxHTTPBytes {
			resp.Body.Close()
			return nil, fmt.Errorf("snapshot at %q too large (%d bytes > %d byte limit)",
				url, size, MaxHTTPBytes)
		}
	}

	return &cappedReadCloser{
		ReadCloser: resp.Body,
		remaining:  MaxHTTPBytes,
		source:     url,
	}, nil
}

// openFile opens a local snapshot file, size-checked before reading.
func openFile(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("snapshot file %q does not exist", path)
	}
	if err != nil {
		return nil, fmt.Errorf("accessing snapshot file %q: %w", path, err)
	}
	if info.Size() > MaxSnapshotBytes {
		return nil, fmt.Errorf("snapshot file %q too large (%d bytes > %d byte limit)",
			path, info.Size(), MaxSnapshotBytes)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot file %q: %w", path, err)
	}
	return file, nil
}
