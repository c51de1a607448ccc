package main

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"
	"unicode"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// ---------------------------------------------------------------------------
// Template Rendering
// ---------------------------------------------------------------------------

// lineSpacing is the extra gap in pixels between wrapped lines.
const lineSpacing = 4

// Occurrence is one stamp position of a placeholder on a template page.
type Occurrence struct {
	X, Y int
	DX   int // horizontal correction for the hand-measured coordinate
	Wrap int // characters per line; 0 draws a single line
}

// Placement binds a placeholder to every position it is stamped at.
type Placement struct {
	Key Placeholder
	At  []Occurrence
}

// PlacementMap is the ordered list of placements of one template page.
type PlacementMap []Placement

// FontRules returns the pixel size for the n-th occurrence of key.
type FontRules func(key Placeholder, occurrence int) float64

// Renderer draws text and signatures onto template pages.
type Renderer struct {
	font *opentype.Font
}

// newRenderer parses a TrueType/OpenType font.
func newRenderer(ttf []byte) (*Renderer, error) {
	f, err := opentype.Parse(ttf)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return &Renderer{font: f}, nil
}

// loadRenderer reads the font file; any failure is a configuration error.
func loadRenderer(path string) (*Renderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Resource: "font " + path, Err: err}
	}
	r, err := newRenderer(data)
	if err != nil {
		return nil, &ConfigurationError{Resource: "font " + path, Err: err}
	}
	return r, nil
}

// loadTemplatePage decodes a pre-rasterized template page.
func loadTemplatePage(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigurationError{Resource: "template " + path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &ConfigurationError{Resource: "template " + path, Err: err}
	}
	return img, nil
}

// Render draws every text placement, then pastes the image placements, on a
// copy of page. Placeholders without a value render as the empty string.
func (r *Renderer) Render(page image.Image, placements PlacementMap, text map[Placeholder]string,
	images map[Placeholder]image.Image, sizes FontRules) (*image.RGBA, error) {

	b := page.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), page, b.Min, draw.Src)

	faces := make(map[float64]font.Face)
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for _, p := range placements {
		if _, ok := images[p.Key]; ok {
			continue
		}
		value := text[p.Key]
		for i, at := range p.At {
			if value == "" {
				continue
			}
			face, err := r.face(faces, sizes(p.Key, i))
			if err != nil {
				return nil, &RenderError{Step: string(p.Key), Err: err}
			}
			lines := []string{value}
			if at.Wrap > 0 {
				lines = wrapText(value, at.Wrap)
			}
			drawLines(dst, face, at.X+at.DX, at.Y, lines)
		}
	}

	for _, p := range placements {
		img := images[p.Key]
		if img == nil {
			continue
		}
		ib := img.Bounds()
		for _, at := range p.At {
			pt := image.Pt(at.X+at.DX, at.Y)
			draw.Draw(dst, image.Rectangle{Min: pt, Max: pt.Add(ib.Size())}, img, ib.Min, draw.Over)
		}
	}

	return dst, nil
}

// face returns a cached face of the given pixel size. Faces are per render
// call because they are not safe for concurrent use.
func (r *Renderer) face(cache map[float64]font.Face, size float64) (font.Face, error) {
	if f, ok := cache[size]; ok {
		return f, nil
	}
	f, err := opentype.NewFace(r.font, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("create font face at %.0fpx: %w", size, err)
	}
	cache[size] = f
	return f, nil
}

// drawLines draws black text whose first line's ascender touches y.
func drawLines(dst draw.Image, face font.Face, x, y int, lines []string) {
	m := face.Metrics()
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(color.Black),
		Face: face,
	}
	baseline := fixed.I(y) + m.Ascent
	for _, line := range lines {
		d.Dot = fixed.Point26_6{X: fixed.I(x), Y: baseline}
		d.DrawString(line)
		baseline += m.Height + fixed.I(lineSpacing)
	}
}

// wrapText breaks s into lines of at most width characters. Words are kept
// whole when they fit; longer words are split to fill the current line.
// Hyphenated words may break after the hyphen, as in "강남구-|역삼동".
func wrapText(s string, width int) []string {
	if width <= 0 {
		return []string{s}
	}

	// Chunks alternate between words and whitespace runs.
	var chunks [][]rune
	var cur []rune
	inSpace := false
	runes := []rune(s)
	for i, c := range runes {
		space := unicode.IsSpace(c)
		if space {
			c = ' '
		}
		if len(cur) > 0 && (space != inSpace || hyphenBreak(runes, i)) {
			chunks = append(chunks, cur)
			cur = nil
		}
		inSpace = space
		cur = append(cur, c)
	}
	if len(cur) > 0 {
		chunks = append(chunks, cur)
	}

	isSpace := func(r []rune) bool { return len(r) > 0 && r[0] == ' ' }

	var lines []string
	for len(chunks) > 0 {
		if isSpace(chunks[0]) && len(lines) > 0 {
			chunks = chunks[1:]
			continue
		}

		var line []rune
		for len(chunks) > 0 && len(line)+len(chunks[0]) <= width {
			line = append(line, chunks[0]...)
			chunks = chunks[1:]
		}
		if len(chunks) > 0 && len(chunks[0]) > width {
			room := width - len(line)
			if room < 1 {
				room = 1
			}
			line = append(line, chunks[0][:room]...)
			chunks[0] = chunks[0][room:]
		}

		text := strings.TrimRight(string(line), " ")
		if text != "" {
			lines = append(lines, text)
		}
	}
	return lines
}

// hyphenBreak reports whether a word may break before runes[i]: the previous
// rune is a hyphen following two letters and runes[i] starts another word.
// Numbers such as "123-45" stay together.
func hyphenBreak(runes []rune, i int) bool {
	if i < 3 || runes[i-1] != '-' {
		return false
	}
	if !unicode.IsLetter(runes[i-2]) || !unicode.IsLetter(runes[i-3]) {
		return false
	}
	return unicode.IsLetter(runes[i]) || unicode.IsDigit(runes[i])
}
