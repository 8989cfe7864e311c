package app

import (
	"crypto/sha256"
	"edgeport/internal/engine/transform"
	"encoding/hex"

	lru "github.com/hashicorp/golang-lru/v2"
)

// resultCache memoises successful transforms by path and content, so watch
// mode only reruns the pipeline for files whose bytes actually changed.
type resultCache struct {
	entries *lru.Cache[string, transform.Result]
}

func newResultCache(size int) (*resultCache, error) {
	if size <= 0 {
		size = 1
	}
	entries, err := lru.New[string, transform.Result](size)
	if err != nil {
		return nil, err
	}
	return &resultCache{entries: entries}, nil
}

func cacheKey(path string, content []byte) string {
	h := sha256.New()
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (c *resultCache) get(path string, content []byte) (transform.Result, bool) {
	return c.entries.Get(cacheKey(path, content))
}

func (c *resultCache) put(path string, content []byte, res transform.Result) {
	c.entries.Add(cacheKey(path, content), res)
}

func (c *resultCache) len() int {
	return c.entries.Len()
}
