// Package badge renders flat SVG status badges.
package badge

import (
	"fmt"
	"html"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	ColorDanger  = "#eb364b"
	ColorWarning = "#ffb52b"
	ColorSuccess = "#41c464"
	ColorOther   = "#949196"

	fontSize   = 11
	height     = 20
	padding    = 6
	muteOffset = 20
	noDuration = "n/a"
)

const muteGlyph = `<path
     d="m 9.7196219,4.2202987 -2.7802854,2.7796601 -3.1893438,0 C 3.3356217,6.9999588 3,7.3355788 3,7.7499488 l 0,4.4999592 c 0,0.41405 0.3356217,0.74999 0.7499927,0.74999 l 3.1893438,0 2.7802854,2.77966 c 0.4696831,0.46968 1.2803001,0.13969 1.2803001,-0.53031 l 0,-10.4986493 c 0,-0.67061 -0.811242,-0.99936 -1.2803001,-0.5303 z m 7.7064871,5.7796295 1.426236,-1.426239 c 0.196873,-0.19687 0.196873,-0.51624 0,-0.7131204 l -0.713118,-0.71311 c -0.196873,-0.19688 -0.516245,-0.19688 -0.713118,0 L 15.999873,8.5736892 14.573637,7.1474588 c -0.196873,-0.19688 -0.516245,-0.19688 -0.713118,0 l -0.713118,0.71311 c -0.196873,0.1968804 -0.196873,0.5162504 0,0.7131204 l 1.426236,1.426239 -1.425924,1.4259198 c -0.196873,0.19688 -0.196873,0.51625 0,0.71312 l 0.713118,0.71312 c 0.196874,0.19687 0.516245,0.19687 0.713118,0 l 1.425924,-1.42593 1.426236,1.42624 c 0.196873,0.19687 0.516245,0.19687 0.713118,0 l 0.713118,-0.71312 c 0.196873,-0.19687 0.196873,-0.51624 0,-0.71312 L 17.426109,9.9999282 Z"
     />`

// Options describes one badge. It is the value stored in the badge cache, so
// it holds the status start time rather than an elapsed duration.
type Options struct {
	// Status is shown on the left side of the badge.
	Status string `json:"status"`
	// Color is the HTML color of the left side.
	Color string `json:"color"`
	// Since is when the status began; the right side shows the time elapsed.
	Since *time.Time `json:"since,omitempty"`
	Muted bool       `json:"muted"`
}

// Renderer measures text with the Go regular font and produces SVG markup.
// It is safe for concurrent use.
type Renderer struct {
	mu   sync.Mutex
	face font.Face
}

func NewRenderer() (*Renderer, error) {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("parse badge font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    fontSize,
		DPI:     72,
		Hinting: font.HintingNone,
	})
	if err != nil {
		return nil, fmt.Errorf("create badge font face: %w", err)
	}
	return &Renderer{face: face}, nil
}

// TextWidth returns the rendered width of text in pixels, including the 2px
// letter spacing used by the badge layout.
func (r *Renderer) TextWidth(text string) int {
	n := utf8.RuneCountInString(text)
	if n == 0 {
		return 0
	}
	r.mu.Lock()
	adv := font.MeasureString(r.face, text)
	r.mu.Unlock()
	return adv.Ceil() + (n-1)*2
}

// SVG renders opts as of now.
func (r *Renderer) SVG(opts Options, now time.Time) string {
	duration := noDuration
	if opts.Since != nil {
		duration = HumanDuration(now.Sub(*opts.Since))
	}

	leftWidth := r.TextWidth(opts.Status) + padding
	rightWidth := r.TextWidth(duration) + padding
	offset := 0
	mute := ""
	if opts.Muted {
		offset = muteOffset
		mute = muteGlyph
	}
	total := offset + leftWidth + rightWidth
	status := html.EscapeString(opts.Status)
	color := html.EscapeString(opts.Color)

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" xmlns:xlink="http://www.w3.org/1999/xlink" width="%d" height="%d">
  <linearGradient id="smooth" x2="0" y2="100%%">
    <stop offset="0" stop-color="#bbb" stop-opacity=".1"/>
    <stop offset="1" stop-opacity=".1"/>
  </linearGradient>

  <mask id="round">
    <rect width="%d" height="%d" rx="3" fill="#fff"/>
  </mask>

  <g mask="url(#round)">
    <rect width="%d" height="%d" fill="%s"/>
    <rect x="%d" width="%d" height="%d" fill="#555"/>
    <rect width="%d" height="%d" fill="url(#smooth)"/>
  </g>

  <g fill="#fff" text-anchor="middle" font-family="DejaVu Sans,Verdana,Geneva,sans-serif" font-size="%d">
    %s
    <text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%d" y="14">%s</text>
    <text x="%d" y="15" fill="#010101" fill-opacity=".3">%s</text>
    <text x="%d" y="14">%s</text>
  </g>
</svg>`,
		total, height,
		total, height,
		offset+leftWidth, height, color,
		offset+leftWidth, rightWidth, height,
		total, height,
		fontSize,
		mute,
		offset+leftWidth/2, status,
		offset+leftWidth/2, status,
		offset+leftWidth+rightWidth/2, duration,
		offset+leftWidth+rightWidth/2, duration,
	)
	return b.String()
}

// HumanDuration formats d using its largest whole unit, from weeks down to
// seconds. Negative durations render as zero.
func HumanDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	units := []struct {
		size time.Duration
		name string
	}{
		{7 * 24 * time.Hour, "week"},
		{24 * time.Hour, "day"},
		{time.Hour, "hour"},
		{time.Minute, "minute"},
	}
	for _, u := range units {
		if n := int64(d / u.size); n > 0 {
			return plural(n, u.name)
		}
	}
	return plural(int64(d/time.Second), "second")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
