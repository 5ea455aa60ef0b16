package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	coverWidth  = 600
	coverHeight = 800
	// The title is drawn on a canvas this many times smaller and scaled up.
	coverScale = 4
)

var (
	coverBackground = color.NRGBA{R: 0x2f, G: 0x3e, B: 0x4e, A: 0xff}
	coverForeground = color.NRGBA{R: 0xf5, G: 0xf1, B: 0xe6, A: 0xff}
)

// DefaultCover renders a plain PNG cover showing title. It is used when no
// cover image is supplied.
func DefaultCover(title string) ([]byte, error) {
	face := basicfont.Face7x13
	w, h := coverWidth/coverScale, coverHeight/coverScale
	canvas := imaging.New(w, h, coverBackground)

	lineHeight := face.Metrics().Height.Ceil() + 2
	maxChars := (w - 8) / face.Advance
	lines := wrapTitle(title, maxChars)
	y := (h-len(lines)*lineHeight)/2 + face.Ascent

	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(coverForeground),
		Face: face,
	}
	for _, line := range lines {
		width := d.MeasureString(line).Ceil()
		d.Dot = fixed.P((w-width)/2, y)
		d.DrawString(line)
		y += lineHeight
	}

	img := imaging.Resize(canvas, coverWidth, coverHeight, imaging.NearestNeighbor)
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("failed to encode default cover: %w", err)
	}
	return buf.Bytes(), nil
}

// wrapTitle breaks title into lines of at most width runes, splitting on
// spaces where possible.
func wrapTitle(title string, width int) []string {
	var lines []string
	var cur []rune
	for _, word := range strings.Fields(title) {
		r := []rune(word)
		for len(r) > width {
			if len(cur) > 0 {
				lines = append(lines, string(cur))
				cur = nil
			}
			lines = append(lines, string(r[:width]))
			r = r[width:]
		}
		switch {
		case len(cur) == 0:
			cur = r
		case len(cur)+1+len(r) <= width:
			cur = append(append(cur, ' '), r...)
		default:
			lines = append(lines, string(cur))
			cur = r
		}
	}
	if len(cur) > 0 {
		lines = append(lines, string(cur))
	}
	return lines
}
