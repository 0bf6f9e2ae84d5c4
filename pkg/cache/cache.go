package cache

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/platformbuilds/datadog-badges/internal/badge"
)

// CacheBustParam is the query parameter polling clients add to defeat
// intermediate HTTP caches. It never takes part in the cache key.
const CacheBustParam = "badge-poll"

// DefaultTTL is used when no positive TTL is configured.
const DefaultTTL = 15 * time.Second

// Entry is a resolved badge decision: what to draw and which HTTP status to
// answer with. Rendering happens per request, so entries stay small.
type Entry struct {
	Options    badge.Options `json:"options"`
	StatusCode int          `json:"status_code"`
}

// BadgeCache is a short-lived store of badge decisions shared by all requests.
// Implementations never fail: storage problems degrade to misses, since the
// cache only saves upstream calls and never changes the answer.
type BadgeCache interface {
	// Get returns a live entry for key.
	Get(ctx context.Context, key string) (Entry, bool)
	// Put stores e under key, fresh as of now.
	Put(ctx context.Context, key string, e Entry)
	// Len reports the number of stored entries, or -1 when unknown.
	Len() int
	HealthCheck(ctx context.Context) error
	Close() error
}

// Key identifies one badge request.
type Key struct {
	Account   string
	MonitorID string
	Query     url.Values
}

// NewKey builds a key from the raw request query, dropping CacheBustParam.
func NewKey(account, monitorID string, query url.Values) Key {
	return Key{Account: account, MonitorID: monitorID, Query: NormalizeQuery(query)}
}

// NormalizeQuery returns a copy of q without CacheBustParam.
func NormalizeQuery(q url.Values) url.Values {
	out := make(url.Values, len(q))
	for k, vs := range q {
		if k == CacheBustParam {
			continue
		}
		out[k] = append([]string(nil), vs...)
	}
	return out
}

// String returns the canonical form used as the storage key. Query
// parameters are sorted by name so equivalent requests share an entry.
func (k Key) String() string {
	var b strings.Builder
	b.WriteString("badge:")
	b.WriteString(url.PathEscape(k.Account))
	b.WriteByte('/')
	b.WriteString(url.PathEscape(k.MonitorID))
	if len(k.Query) > 0 {
		b.WriteByte('?')
		b.WriteString(k.Query.Encode())
	}
	return b.String()
}
