package display

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/yokitheyo/avatarpipeline/internal/config"
	"github.com/yokitheyo/avatarpipeline/internal/domain"
)

var (
	ErrImageUnavailable = errors.New("image unavailable")
	ErrForeignURI       = errors.New("uri does not belong to this object store")
)

type probeEntry struct {
	err      error
	storedAt time.Time
}

// HTTPLoader probes image URLs over HTTP. Outcomes, including failures, are cached for a
// short TTL so repeated resolutions of one avatar do not hit the origin.
type HTTPLoader struct {
	client *http.Client
	cache  *lru.Cache[string, probeEntry]
	ttl    time.Duration
	now    func() time.Time
}

func NewHTTPLoader(cfg config.DisplayConfig, client *http.Client) (*HTTPLoader, error) {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.ProbeTimeoutMs) * time.Millisecond}
	}
	size := cfg.ProbeCacheSize
	if size <= 0 {
		size = 1024
	}
	cache, err := lru.New[string, probeEntry](size)
	if err != nil {
		return nil, fmt.Errorf("create probe cache: %w", err)
	}
	return &HTTPLoader{
		client: client,
		cache:  cache,
		ttl:    time.Duration(cfg.ProbeCacheTTLSec) * time.Second,
		now:    time.Now,
	}, nil
}

func (l *HTTPLoader) Load(ctx context.Context, uri string) error {
	if entry, ok := l.cache.Get(uri); ok {
		if l.ttl > 0 && l.now().Sub(entry.storedAt) < l.ttl {
			return entry.err
		}
		l.cache.Remove(uri)
	}

	err := l.probe(ctx, uri)
	// A cancelled probe says nothing about the image.
	if ctx.Err() == nil && l.ttl > 0 {
		l.cache.Add(uri, probeEntry{err: err, storedAt: l.now()})
	}
	return err
}

func (l *HTTPLoader) probe(ctx context.Context, uri string) error {
	resp, err := l.do(ctx, http.MethodHead, uri)
	if err != nil {
		return err
	}
	if resp.StatusCode == http.StatusMethodNotAllowed {
		resp, err = l.do(ctx, http.MethodGet, uri)
		if err != nil {
			return err
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s returned %d", ErrImageUnavailable, uri, resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "image/") {
		return fmt.Errorf("%w: %s has content type %s", ErrImageUnavailable, uri, ct)
	}
	return nil
}

func (l *HTTPLoader) do(ctx context.Context, method, uri string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	resp.Body.Close()
	return resp, nil
}

// StoreLoader checks public URLs minted by an object store against the store's listing.
type StoreLoader struct {
	store domain.ObjectStore
}

func NewStoreLoader(store domain.ObjectStore) *StoreLoader {
	return &StoreLoader{store: store}
}

func (l *StoreLoader) Load(ctx context.Context, uri string) error {
	namespace, name, err := l.split(uri)
	if err != nil {
		return err
	}
	objects, err := l.store.List(ctx, namespace)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrImageUnavailable, err)
	}
	for _, o := range objects {
		if o.Name == name {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrImageUnavailable, uri)
}

// split recovers namespace and object name from the last two path segments and checks
// that the store would mint the same URL for them.
func (l *StoreLoader) split(uri string) (string, string, error) {
	trimmed := strings.TrimRight(uri, "/")
	i := strings.LastIndexByte(trimmed, '/')
	if i <= 0 {
		return "", "", fmt.Errorf("%w: %s", ErrForeignURI, uri)
	}
	name := trimmed[i+1:]
	rest := trimmed[:i]
	j := strings.LastIndexByte(rest, '/')
	if j < 0 {
		return "", "", fmt.Errorf("%w: %s", ErrForeignURI, uri)
	}
	namespace := rest[j+1:]
	if namespace == "" || name == "" || l.store.PublicURL(namespace, name) != uri {
		return "", "", fmt.Errorf("%w: %s", ErrForeignURI, uri)
	}
	return namespace, name, nil
}

// ChainLoader tries the store first for URLs it owns and falls back to HTTP for the rest.
type ChainLoader struct {
	store *StoreLoader
	http  Loader
}

func NewChainLoader(store *StoreLoader, remote Loader) *ChainLoader {
	return &ChainLoader{store: store, http: remote}
}

func (l *ChainLoader) Load(ctx context.Context, uri string) error {
	if l.store != nil {
		err := l.store.Load(ctx, uri)
		if !errors.Is(err, ErrForeignURI) {
			return err
		}
	}
	if l.http == nil {
		return fmt.Errorf("%w: %s", ErrImageUnavailable, uri)
	}
	return l.http.Load(ctx, uri)
}
