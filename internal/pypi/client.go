package pypi

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ClientConfig tunes the index API client.
type ClientConfig struct {
	// BaseURL is the index JSON API root, e.g. Index.APIBase.
	BaseURL string

	// Total timeout for a request. A context deadline can still override it.
	Timeout time.Duration

	// Transport timeouts.
	DialTimeout    time.Duration
	TLSHandshake   time.Duration
	ResponseHeader time.Duration
}

// DefaultClientConfig returns conservative timeouts for idx. The client is
// used for quick pre-flight checks, so everything is kept short.
func DefaultClientConfig(idx Index) ClientConfig {
	return ClientConfig{
		BaseURL:        idx.APIBase,
		Timeout:        10 * time.Second,
		DialTimeout:    5 * time.Second,
		TLSHandshake:   5 * time.Second,
		ResponseHeader: 5 * time.Second,
	}
}

// Client queries an index JSON API.
type Client struct {
	http *http.Client
	base string
}

// NewClient builds a Client with a transport tuned per cfg.
func NewClient(cfg ClientConfig) *Client {
	dialer := &net.Dialer{Timeout: cfg.DialTimeout}
	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		TLSHandshakeTimeout:   cfg.TLSHandshake,
		ResponseHeaderTimeout: cfg.ResponseHeader,
	}
	return &Client{
		http: &http.Client{Transport: tr, Timeout: cfg.Timeout},
		base: cfg.BaseURL,
	}
}

// ReleaseExists reports whether the exact name/version is already published
// on the index. The name is normalized before the lookup.
func (c *Client) ReleaseExists(ctx context.Context, name, version string) (bool, error) {
	u := fmt.Sprintf("%s/pypi/%s/%s/json", c.base, url.PathEscape(NormalizeName(name)), url.PathEscape(version))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "pyship")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("index returned %s for %s", resp.Status, u)
	}
}
