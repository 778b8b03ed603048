package view

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// Client fetches resources from the table api. Its cookie jar plays the part
// of the browser's credentials: a session cookie set by Login rides along on
// every later request.
type Client struct {
	base *url.URL
	http *http.Client
}

// clientConfig collects options before NewClient builds the http client, so
// option order does not matter.
type clientConfig struct {
	http    *http.Client
	timeout time.Duration
}

// ClientOption configures NewClient.
type ClientOption func(*clientConfig)

// WithHTTPClient uses hc's transport and settings. hc itself is not
// modified; nil keeps the default.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds one request; zero leaves the transport default.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.timeout = d
	}
}

// NewClient talks to the api rooted at apiBase, e.g. http://host/api.
func NewClient(apiBase string, opts ...ClientOption) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(apiBase, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base: %w", err)
	}

	cfg := clientConfig{http: &http.Client{}}
	for _, opt := range opts {
		opt(&cfg)
	}

	hc := *cfg.http
	if cfg.timeout > 0 {
		hc.Timeout = cfg.timeout
	}
	if hc.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, err
		}
		hc.Jar = jar
	}

	return &Client{base: base, http: &hc}, nil
}

// endpoint appends name as a single path segment. Path holds the decoded
// form and RawPath the escaped one, so the name is escaped exactly once.
func (c *Client) endpoint(name string) string {
	u := *c.base
	u.RawPath = u.EscapedPath() + "/" + url.PathEscape(name)
	u.Path = u.Path + "/" + name
	return u.String()
}

// Fetch returns the raw body of GET {base}/{resource}.
func (c *Client) Fetch(ctx context.Context, resource string) ([]byte, error) {
	if resource == "" {
		return nil, ErrEmptyResource
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(resource), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch table %s: %w", resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &LoadError{Resource: resource, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read table %s: %w", resource, err)
	}
	return body, nil
}

// Login posts the credentials to {base}/login; the session cookie lands in the jar.
func (c *Client) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("login"), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrAuthRequired
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &LoadError{Resource: "login", StatusCode: resp.StatusCode}
	}
	return nil
}
