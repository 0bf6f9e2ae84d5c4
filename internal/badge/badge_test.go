package badge

import (
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHumanDuration(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "0 seconds"},
		{-5 * time.Second, "0 seconds"},
		{time.Second, "1 second"},
		{59 * time.Second, "59 seconds"},
		{time.Minute, "1 minute"},
		{119 * time.Second, "1 minute"},
		{2 * time.Minute, "2 minutes"},
		{time.Hour, "1 hour"},
		{16 * time.Hour, "16 hours"},
		{24 * time.Hour, "1 day"},
		{6*24*time.Hour + 23*time.Hour, "6 days"},
		{7 * 24 * time.Hour, "1 week"},
		{15 * 24 * time.Hour, "2 weeks"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, HumanDuration(tc.d), tc.d.String())
	}
}

func TestRenderer_TextWidth(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	assert.Equal(t, 0, r.TextWidth(""))
	short := r.TextWidth("Ok")
	long := r.TextWidth("Unconfigured account: prod")
	assert.Greater(t, short, 0)
	assert.Greater(t, long, short)
}

func TestRenderer_SVG(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	now := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	since := now.Add(-16 * time.Hour)
	svg := r.SVG(Options{Status: "Alert", Color: ColorDanger, Since: &since}, now)

	assert.True(t, strings.HasPrefix(svg, "<svg "))
	assert.Contains(t, svg, `fill="#eb364b"`)
	assert.Contains(t, svg, ">Alert</text>")
	assert.Contains(t, svg, ">16 hours</text>")
	assert.NotContains(t, svg, "<path")
	assert.Contains(t, svg, `y2="100%"`)
}

func TestRenderer_SVG_MutedAndNoSince(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	plain := r.SVG(Options{Status: "Ok", Color: ColorSuccess}, time.Now())
	muted := r.SVG(Options{Status: "Ok", Color: ColorSuccess, Muted: true}, time.Now())

	assert.Contains(t, plain, ">n/a</text>")
	assert.Contains(t, muted, "<path")

	w := r.TextWidth("Ok") + padding + r.TextWidth("n/a") + padding
	assert.Contains(t, plain, `width="`+strconv.Itoa(w)+`"`)
	assert.Contains(t, muted, `width="`+strconv.Itoa(w+muteOffset)+`"`)
}

func TestRenderer_SVG_EscapesText(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	svg := r.SVG(Options{Status: "Unconfigured account: <a&b>", Color: ColorOther}, time.Now())
	assert.Contains(t, svg, "&lt;a&amp;b&gt;")
	assert.NotContains(t, svg, "<a&b>")
}

func TestRenderer_Concurrent(t *testing.T) {
	r, err := NewRenderer()
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = r.SVG(Options{Status: "Warn", Color: ColorWarning}, time.Now())
		}()
	}
	wg.Wait()
}
