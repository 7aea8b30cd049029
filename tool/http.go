package tool

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// HTTPToolOption configures the HTTP fetch tool.
type HTTPToolOption func(*httpToolConfig)

type httpToolConfig struct {
	client          *http.Client
	allowedHosts    []string
	blockedHosts    []string
	maxResponseSize int64
	timeout         time.Duration
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) HTTPToolOption {
	return func(cfg *httpToolConfig) {
		cfg.client = c
	}
}

// WithAllowedHosts restricts requests to specific hosts only.
func WithAllowedHosts(hosts ...string) HTTPToolOption {
	return func(cfg *httpToolConfig) {
		cfg.allowedHosts = hosts
	}
}

// WithBlockedHosts blocks requests to specific hosts.
func WithBlockedHosts(hosts ...string) HTTPToolOption {
	return func(cfg *httpToolConfig) {
		cfg.blockedHosts = hosts
	}
}

// WithMaxResponseSize sets the maximum response body size.
// Default is 1MB.
func WithMaxResponseSize(bytes int64) HTTPToolOption {
	return func(cfg *httpToolConfig) {
		cfg.maxResponseSize = bytes
	}
}

// WithHTTPTimeout sets the request timeout.
// Default is 30 seconds.
func WithHTTPTimeout(d time.Duration) HTTPToolOption {
	return func(cfg *httpToolConfig) {
		cfg.timeout = d
	}
}

func applyHTTPOpts(opts []HTTPToolOption) *httpToolConfig {
	cfg := &httpToolConfig{
		maxResponseSize: 1024 * 1024, // 1MB default
		timeout:         30 * time.Second,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.client == nil {
		cfg.client = &http.Client{
			Timeout: cfg.timeout,
		}
	}
	return cfg
}

func (c *httpToolConfig) checkHost(urlStr string) error {
	u, err := url.Parse(urlStr)
	if err != nil {
		return err
	}

	host := u.Hostname()

	// Check blocked hosts
	for _, blocked := range c.blockedHosts {
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return fmt.Errorf("host %q is blocked", host)
		}
	}

	// Check allowed hosts (if set)
	if len(c.allowedHosts) > 0 {
		allowed := false
		for _, a := range c.allowedHosts {
			if host == a || strings.HasSuffix(host, "."+a) {
				allowed = true
				break
			}
		}
		if !allowed {
			return fmt.Errorf("host %q is not in allowed list", host)
		}
	}

	return nil
}

// httpFetchArgs defines arguments for the HTTP fetch tool.
type httpFetchArgs struct {
	URL string `json:"url" desc:"URL to fetch over GET" required:"true"`
}

// HTTPFetch returns a tool that fetches a URL over GET and returns the
// response body (capped at the configured maximum size).
func HTTPFetch(opts ...HTTPToolOption) Registration {
	cfg := applyHTTPOpts(opts)

	handler := func(ctx context.Context, args httpFetchArgs) (string, error) {
		if err := cfg.checkHost(args.URL); err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, args.URL, nil)
		if err != nil {
			return "", err
		}

		resp, err := cfg.client.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, cfg.maxResponseSize))
		if err != nil {
			return "", err
		}

		if resp.StatusCode >= 400 {
			return "", fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		}

		return string(body), nil
	}

	return Func("http_fetch", "Fetch the contents of a URL over HTTP GET", handler)
}
