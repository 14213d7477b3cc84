// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fingerprint

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/jbfp/videocaster/internal/metrics"
)

// Cache memoises fingerprints by path, size and modification time, and
// collapses concurrent requests for the same file into one computation.
type Cache struct {
	group   singleflight.Group
	entries *expirable.LRU[string, Fingerprint]
	compute func(path string) (Fingerprint, error)
}

// NewCache returns a cache holding up to size entries for ttl each.
// A non-positive size disables caching but keeps request collapsing.
func NewCache(size int, ttl time.Duration) *Cache {
	c := &Cache{compute: ComputeFile}
	if size > 0 {
		c.entries = expirable.NewLRU[string, Fingerprint](size, nil, ttl)
	}
	return c
}

// Lookup returns the fingerprint of path, computing it at most once per
// file version.
func (c *Cache) Lookup(path string) (Fingerprint, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("stat: %w", err)
	}
	key := path + "|" + strconv.FormatInt(info.Size(), 10) + "|" + strconv.FormatInt(info.ModTime().UnixNano(), 10)

	if c.entries != nil {
		if fp, ok := c.entries.Get(key); ok {
			metrics.IncFingerprintCache(true)
			return fp, nil
		}
	}
	metrics.IncFingerprintCache(false)

	v, err, _ := c.group.Do(key, func() (any, error) {
		start := time.Now()
		fp, err := c.compute(path)
		metrics.ObserveFingerprintDuration(time.Since(start), err)
		if err != nil {
			return Fingerprint{}, err
		}
		if c.entries != nil {
			c.entries.Add(key, fp)
		}
		return fp, nil
	})
	if err != nil {
		return Fingerprint{}, err
	}
	return v.(Fingerprint), nil
}

// Len reports the number of cached fingerprints.
func (c *Cache) Len() int {
	if c.entries == nil {
		return 0
	}
	return c.entries.Len()
}
