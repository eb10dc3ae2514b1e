// ABOUTME: TTL cache layered over a Translator to avoid re-translating repeated text
// ABOUTME: Uses go-cache with configurable expiration

package translator

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cached wraps a Translator with an in-memory TTL cache on Translate calls.
// Support conversations repeat short phrases constantly ("thanks", "one
// moment"), so even a small window cuts upstream traffic noticeably.
// Transcription is never cached: audio payloads are one-shot.
type Cached struct {
	inner Translator
	cache *gocache.Cache
}

// NewCached wraps inner with a cache whose entries expire after ttl.
func NewCached(inner Translator, ttl time.Duration) *Cached {
	return &Cached{
		inner: inner,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func cacheKey(text, sourceLang, targetLang string) string {
	return sourceLang + "\x00" + targetLang + "\x00" + text
}

// Translate returns a cached result when available, otherwise delegates to
// the wrapped Translator and caches a successful result. Failures are not
// cached, so a transient upstream error does not poison the window.
func (c *Cached) Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error) {
	key := cacheKey(text, sourceLang, targetLang)
	if hit, ok := c.cache.Get(key); ok {
		return hit.(string), nil
	}

	translated, err := c.inner.Translate(ctx, text, sourceLang, targetLang)
	if err != nil {
		return "", err
	}

	c.cache.SetDefault(key, translated)
	return translated, nil
}

// Transcribe delegates directly to the wrapped Translator.
func (c *Cached) Transcribe(ctx context.Context, audio []byte, filename, lang string) (string, error) {
	return c.inner.Transcribe(ctx, audio, filename, lang)
}
