package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/starford/cmsloader/internal/apperr"
	"github.com/starford/cmsloader/internal/remote"
	"github.com/starford/cmsloader/internal/storage"
)

const maxStaticBody = 10 << 20

// contentPath joins prefix, collection and filename with forward slashes.
func contentPath(prefix, collection, filename string) string {
	return path.Join(prefix, collection, filename)
}

// FSStrategy reads <prefix>/<collection>/<filename> below a local content root.
type FSStrategy struct {
	store  storage.Provider
	prefix string
}

// NewFSStrategy creates a strategy over store.
func NewFSStrategy(store storage.Provider, prefix string) *FSStrategy {
	return &FSStrategy{store: store, prefix: prefix}
}

// Name implements Strategy.
func (s *FSStrategy) Name() string { return "fs:" + s.store.Root() }

// Fetch implements Strategy.
func (s *FSStrategy) Fetch(_ context.Context, collection, filename string) (string, error) {
	data, err := s.store.Read(contentPath(s.prefix, collection, filename))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSourceUnavailable, err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// HTTPStrategy fetches <base>/<prefix>/<collection>/<filename> from a static
// host. Any non-200 response counts as a miss.
type HTTPStrategy struct {
	base    string
	prefix  string
	timeout time.Duration
	client  *http.Client
}

// NewHTTPStrategy creates a strategy for a static host. A nil client uses a
// fresh http.Client; a non-positive timeout means 10s.
func NewHTTPStrategy(baseURL, prefix string, timeout time.Duration, client *http.Client) *HTTPStrategy {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPStrategy{
		base:    strings.TrimRight(baseURL, "/"),
		prefix:  prefix,
		timeout: timeout,
		client:  client,
	}
}

// Name implements Strategy.
func (s *HTTPStrategy) Name() string { return "http:" + s.base }

// Fetch implements Strategy.
func (s *HTTPStrategy) Fetch(ctx context.Context, collection, filename string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	segs := strings.Split(contentPath(s.prefix, collection, filename), "/")
	for i, seg := range segs {
		segs[i] = url.PathEscape(seg)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+"/"+strings.Join(segs, "/"), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSourceUnavailable, err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", apperr.ErrSourceUnavailable, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxStaticBody))
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperr.ErrSourceUnavailable, err)
	}
	return strings.ToValidUTF8(string(data), "\uFFFD"), nil
}

// FileGetter is the part of remote.Client used by RemoteStrategy.
type FileGetter interface {
	GetFile(ctx context.Context, path string) (string, error)
}

var _ FileGetter = (*remote.Client)(nil)

// RemoteStrategy fetches files through the contents API.
type RemoteStrategy struct {
	client FileGetter
	prefix string
}

// NewRemoteStrategy creates the remote strategy.
func NewRemoteStrategy(client FileGetter, prefix string) *RemoteStrategy {
	return &RemoteStrategy{client: client, prefix: prefix}
}

// Name implements Strategy.
func (s *RemoteStrategy) Name() string { return "remote" }

// Fetch implements Strategy. Errors wrap apperr.ErrRateLimited or
// apperr.ErrSourceUnavailable.
func (s *RemoteStrategy) Fetch(ctx context.Context, collection, filename string) (string, error) {
	return s.client.GetFile(ctx, contentPath(s.prefix, collection, filename))
}
