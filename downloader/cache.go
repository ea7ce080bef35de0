package downloader

import (
	"context"
	"sync"
	"time"
)

// CachingDownloader keeps successful downloads in memory and serves
// them again until their TTL lapses. The upstream rate limits per
// key, so restart loops and manual refreshes reuse the last payload
// instead of hitting the network.
type CachingDownloader struct {
	mu      sync.RWMutex
	entries map[string]cachedBody

	TimeNow func() time.Time
}

type cachedBody struct {
	body    []byte
	staleAt time.Time
}

func NewCachingDownloader() *CachingDownloader {
	return &CachingDownloader{
		entries: map[string]cachedBody{},
		TimeNow: time.Now,
	}
}

func (d *CachingDownloader) Get(
	ctx context.Context,
	url string,
	headers map[string]string,
	options GetOptions,
) ([]byte, error) {
	if options.Cache {
		if body, ok := d.fresh(url); ok {
			return body, nil
		}
	}

	body, err := HTTPGet(ctx, url, headers, options)
	if err != nil {
		return nil, err
	}

	if options.Cache {
		d.store(url, body, options.CacheTTL)
	}

	return body, nil
}

func (d *CachingDownloader) fresh(url string) ([]byte, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	entry, ok := d.entries[url]
	if !ok || !entry.staleAt.After(d.TimeNow()) {
		return nil, false
	}
	return entry.body, true
}

func (d *CachingDownloader) store(url string, body []byte, ttl time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// Stale entries only get cleaned out here. There are a handful
	// of URLs in play, so that's plenty.
	now := d.TimeNow()
	for key, entry := range d.entries {
		if !entry.staleAt.After(now) {
			delete(d.entries, key)
		}
	}

	d.entries[url] = cachedBody{body: body, staleAt: now.Add(ttl)}
}
