package cache

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKey_IgnoresCacheBustParam(t *testing.T) {
	plain := NewKey("acme", "42", url.Values{"g": {"host:web"}})
	polled := NewKey("acme", "42", url.Values{"g": {"host:web"}, CacheBustParam: {"1700000000"}})

	assert.Equal(t, plain.String(), polled.String())
}

func TestKey_OrderIndependent(t *testing.T) {
	a, _ := url.ParseQuery("g=env:prod&x=1")
	b, _ := url.ParseQuery("x=1&g=env:prod")

	assert.Equal(t, NewKey("acme", "7", a).String(), NewKey("acme", "7", b).String())
}

func TestKey_Distinguishes(t *testing.T) {
	base := NewKey("acme", "7", nil).String()

	assert.NotEqual(t, base, NewKey("other", "7", nil).String())
	assert.NotEqual(t, base, NewKey("acme", "8", nil).String())
	assert.NotEqual(t, base, NewKey("acme", "7", url.Values{"g": {""}}).String())
	assert.Equal(t, "badge:acme/7", base)
}

func TestKey_EscapesPathSegments(t *testing.T) {
	// an account containing a slash must not collide with another monitor path
	k1 := NewKey("a/b", "c", nil).String()
	k2 := NewKey("a", "b/c", nil).String()
	assert.NotEqual(t, k1, k2)
}

func TestNormalizeQuery_DoesNotMutateInput(t *testing.T) {
	q := url.Values{"g": {"a"}, CacheBustParam: {"1"}}
	out := NormalizeQuery(q)

	assert.Contains(t, q, CacheBustParam)
	assert.NotContains(t, out, CacheBustParam)

	out["g"][0] = "changed"
	assert.Equal(t, "a", q.Get("g"))
}
