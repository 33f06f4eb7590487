package traceimport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const (
	fetchTimeout = 10 * time.Second
	maxFetchSize = 10 * 1024 * 1024 // 10 MB
)

var httpClient = &http.Client{Timeout: fetchTimeout}

// Open returns a reader for source. "" and "-" read stdin, http and https
// URLs are fetched (10-second timeout, 10 MB body limit), anything else is a
// file path.
func Open(ctx context.Context, source string, stdin io.Reader) (io.ReadCloser, error) {
	switch {
	case source == "" || source == "-":
		return io.NopCloser(stdin), nil
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		data, err := fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	default:
		f, err := os.Open(source) //nolint:gosec // user-supplied file path is expected
		if err != nil {
			return nil, fmt.Errorf("opening input: %w", err)
		}
		return f, nil
	}
}

func fetch(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching URL: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching URL: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close on read

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching URL: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxFetchSize {
		return nil, fmt.Errorf("response exceeds maximum size of %d MB", maxFetchSize/(1024*1024))
	}
	return data, nil
}

// TraceURL returns the query-API URL for one trace: <base>/api/traces/<id>.
func TraceURL(base, traceID string) (string, error) {
	if traceID == "" {
		return "", fmt.Errorf("trace ID is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing API URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("API URL %q must use http or https", base)
	}
	return u.JoinPath("api", "traces", traceID).String(), nil
}
