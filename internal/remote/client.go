// Package remote is a read-only client for a GitHub-style repository
// contents API.
//
// Two calls are used: get-file, which answers with a JSON envelope holding a
// base64 payload, and list-dir, which answers with an array of
// {name, type} entries. HTTP 403 and 429 are reported as rate limiting.
package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/starford/cmsloader/internal/apperr"
)

// DefaultBaseURL is the public GitHub API.
const DefaultBaseURL = "https://api.github.com"

const maxBody = 10 << 20

// ErrPartialListing is returned alongside the entries decoded before a
// directory listing broke off.
var ErrPartialListing = errors.New("partial listing")

// Config configures a Client.
type Config struct {
	BaseURL string
	Owner   string
	Repo    string
	Ref     string
	Token   string
	// Timeout bounds every request. Zero means 10s.
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Entry is one item of a directory listing.
type Entry struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Type string `json:"type"`
}

// IsFile reports whether the entry is a regular file.
func (e Entry) IsFile() bool { return e.Type == "file" }

type fileEnvelope struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Client talks to the contents API.
type Client struct {
	base    string
	owner   string
	repo    string
	ref     string
	token   string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:    base,
		owner:   cfg.Owner,
		repo:    cfg.Repo,
		ref:     cfg.Ref,
		token:   cfg.Token,
		timeout: timeout,
		http:    hc,
	}
}

// GetFile fetches the file at path and returns its text.
func (c *Client) GetFile(ctx context.Context, path string) (string, error) {
	var env fileEnvelope
	err := c.do(ctx, path, func(body io.Reader) error {
		if err := json.NewDecoder(body).Decode(&env); err != nil {
			return fmt.Errorf("remote: decode %s: %w: %v", path, apperr.ErrSourceUnavailable, err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if env.Encoding != "" && env.Encoding != "base64" {
		return "", fmt.Errorf("remote: %s: unsupported encoding %q: %w", path, env.Encoding, apperr.ErrSourceUnavailable)
	}
	return decodeContent(env.Content)
}

// ListDir lists the directory at path. When the listing breaks off midway the
// entries decoded so far are returned with an error wrapping
// ErrPartialListing.
func (c *Client) ListDir(ctx context.Context, path string) ([]Entry, error) {
	var entries []Entry
	err := c.do(ctx, path, func(body io.Reader) error {
		dec := json.NewDecoder(body)
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("remote: list %s: %w: %v", path, apperr.ErrSourceUnavailable, err)
		}
		if d, ok := tok.(json.Delim); !ok || d != '[' {
			return fmt.Errorf("remote: list %s: not a directory: %w", path, apperr.ErrSourceUnavailable)
		}
		for dec.More() {
			var e Entry
			if err := dec.Decode(&e); err != nil {
				return fmt.Errorf("remote: list %s: %w: %v", path, ErrPartialListing, err)
			}
			entries = append(entries, e)
		}
		return nil
	})
	if err != nil {
		return entries, err
	}
	return entries, nil
}

func (c *Client) do(ctx context.Context, path string, decode func(io.Reader) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.contentsURL(path), nil)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "cmsloader")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: get %s: %w: %v", path, apperr.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return fmt.Errorf("remote: get %s: status %d: %w", path, resp.StatusCode, apperr.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return fmt.Errorf("remote: get %s: status %d: %w", path, resp.StatusCode, apperr.ErrSourceUnavailable)
	}
	return decode(io.LimitReader(resp.Body, maxBody))
}

func (c *Client) contentsURL(path string) string {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	u := fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.base, url.PathEscape(c.owner), url.PathEscape(c.repo), strings.Join(segs, "/"))
	if c.ref != "" {
		u += "?ref=" + url.QueryEscape(c.ref)
	}
	return u
}

// decodeContent base64-decodes a payload and decodes the bytes as UTF-8.
// A leading byte order mark is dropped and invalid sequences become U+FFFD.
func decodeContent(content string) (string, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '\n', '\r', ' ', '\t':
			return -1
		}
		return r
	}, content)

	raw, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", fmt.Errorf("remote: base64: %w: %v", apperr.ErrSourceUnavailable, err)
	}
	text, _, err := transform.Bytes(unicode.UTF8BOM.NewDecoder(), raw)
	if err != nil {
		return "", fmt.Errorf("remote: utf-8: %w: %v", apperr.ErrSourceUnavailable, err)
	}
	return string(text), nil
}
