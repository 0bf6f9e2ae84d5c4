package main

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTarget(t *testing.T) {
	tgt, err := parseTarget("acme/123")
	require.NoError(t, err)
	assert.Equal(t, "acme", tgt.Account)
	assert.Equal(t, "123", tgt.MonitorID)
	assert.Equal(t, 1, tgt.Weight)
	assert.Nil(t, tgt.Query)

	tgt, err = parseTarget("acme/123?g&q=env:prod=5")
	require.NoError(t, err)
	assert.Equal(t, 5, tgt.Weight)
	assert.Equal(t, url.Values{"g": {""}, "q": {"env:prod"}}, tgt.Query)

	// a trailing '=' that is not a number belongs to the query
	tgt, err = parseTarget("acme/123?q=a=b")
	require.NoError(t, err)
	assert.Equal(t, 1, tgt.Weight)
	assert.Equal(t, "a=b", tgt.Query.Get("q"))

	_, err = parseTarget("acme")
	assert.Error(t, err)
	_, err = parseTarget("/123")
	assert.Error(t, err)
}
