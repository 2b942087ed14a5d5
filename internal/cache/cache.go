// Package cache holds the bounded in-process caches used in front of slow
// collaborators such as the insight generator.
package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is a string-keyed cache of T.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Len() int
}

// Expirer is implemented by caches that can drop stale entries in bulk.
type Expirer interface {
	CleanExpired() int
}

// Janitor periodically expires entries from registered caches.
type Janitor struct {
	caches []Expirer
}

func NewJanitor(caches ...Expirer) *Janitor {
	return &Janitor{caches: caches}
}

func (j *Janitor) Register(c Expirer) {
	j.caches = append(j.caches, c)
}

// Sweep expires every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	removed := 0
	for _, c := range j.caches {
		removed += c.CleanExpired()
	}
	return removed
}

// Run sweeps on every tick until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
