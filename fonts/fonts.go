// Package fonts provides the typefaces used to draw names onto certificates.
//
// The default face is Go Bold, which is compiled into the binary so that
// generation works without any font files on the host. TrueType and OpenType
// files can be loaded to match a template's design.
package fonts

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// Font is a parsed typeface that can produce faces at any size.
type Font struct {
	Name string // Name of the font, the file base name for loaded fonts
	Data []byte // Raw TrueType/OpenType data
	Hash string // SHA256 hash of Data

	otf *opentype.Font
}

var (
	boldOnce sync.Once
	bold     *Font
	boldErr  error
)

// Bold returns the embedded Go Bold font.
func Bold() (*Font, error) {
	boldOnce.Do(func() {
		bold, boldErr = Parse("Go-Bold", gobold.TTF)
	})
	return bold, boldErr
}

// Parse parses TrueType or OpenType font data.
func Parse(name string, data []byte) (*Font, error) {
	otf, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font %s: %w", name, err)
	}
	h := sha256.Sum256(data)
	return &Font{
		Name: name,
		Data: data,
		Hash: hex.EncodeToString(h[:]),
		otf:  otf,
	}, nil
}

// Load reads and parses a font file.
func Load(path string) (*Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read font: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Parse(name, data)
}

// Face returns a face of the given size in pixels. The caller closes it.
func (f *Font) Face(size float64) (font.Face, error) {
	return opentype.NewFace(f.otf, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Metrics returns the vertical metrics and string measurement helpers of
// the font at the given pixel size.
func (f *Font) Metrics(size float64) (*Metrics, error) {
	var buf sfnt.Buffer
	ppem := fixed.Int26_6(size * 64)
	m, err := f.otf.Metrics(&buf, ppem, font.HintingNone)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics of %s: %w", f.Name, err)
	}
	return &Metrics{
		Size:    size,
		Ascent:  fromFixed(m.Ascent),
		Descent: fromFixed(m.Descent),
		font:    f.otf,
		ppem:    ppem,
	}, nil
}

// Metrics holds the vertical metrics of a font at one size, in pixels.
// Ascent and Descent are both positive distances from the baseline.
type Metrics struct {
	Size    float64
	Ascent  float64
	Descent float64

	font *sfnt.Font
	ppem fixed.Int26_6
}

// StringWidth returns the advance width of text in pixels, kerning included.
// Runes without a glyph contribute half an em.
func (m *Metrics) StringWidth(text string) float64 {
	var (
		buf   sfnt.Buffer
		width fixed.Int26_6
		prev  sfnt.GlyphIndex
	)
	for i, r := range text {
		idx, err := m.font.GlyphIndex(&buf, r)
		if err != nil || idx == 0 {
			width += m.ppem / 2
			prev = 0
			continue
		}
		if i > 0 && prev != 0 {
			if k, err := m.font.Kern(&buf, prev, idx, m.ppem, font.HintingNone); err == nil {
				width += k
			}
		}
		adv, err := m.font.GlyphAdvance(&buf, idx, m.ppem, font.HintingNone)
		if err != nil {
			width += m.ppem / 2
		} else {
			width += adv
		}
		prev = idx
	}
	return fromFixed(width)
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
