// Package pdf inspects template documents: page count, page boxes and
// rotation, resolved through the page tree the way viewers do.
package pdf

import (
	"fmt"
	"io"

	pdflib "github.com/digitorus/pdf"
)

// letter is used when neither the page nor its ancestors define a MediaBox.
var letter = Box{0, 0, 612, 792}

// maxTreeDepth bounds the walk up the page tree for inherited attributes.
const maxTreeDepth = 32

// Box is a PDF rectangle [llx lly urx ury] in points.
type Box [4]float64

func (b Box) Width() float64  { return abs(b[2] - b[0]) }
func (b Box) Height() float64 { return abs(b[3] - b[1]) }

// Page describes one page of a document.
type Page struct {
	Number   int // 1-based
	MediaBox Box
	CropBox  Box // equals MediaBox when not set
	Rotate   int // 0, 90, 180 or 270
}

// Size returns the displayed page size in points, CropBox based and with
// the page rotation applied.
func (p Page) Size() (width, height float64) {
	width, height = p.CropBox.Width(), p.CropBox.Height()
	if p.Rotate == 90 || p.Rotate == 270 {
		width, height = height, width
	}
	return width, height
}

// Info summarises a document.
type Info struct {
	Pages    int
	Title    string
	Producer string
}

// Open parses a PDF from r.
func Open(r io.ReaderAt, size int64) (*pdflib.Reader, error) {
	rdr, err := pdflib.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return rdr, nil
}

// DocumentInfo reads the page count and the Info dictionary.
func DocumentInfo(r *pdflib.Reader) Info {
	info := r.Trailer().Key("Info")
	return Info{
		Pages:    r.NumPage(),
		Title:    info.Key("Title").Text(),
		Producer: info.Key("Producer").Text(),
	}
}

// PageAt resolves the geometry of a 1-based page number.
func PageAt(r *pdflib.Reader, number int) (Page, error) {
	if r == nil {
		return Page{}, fmt.Errorf("no reader available")
	}
	if number < 1 || number > r.NumPage() {
		return Page{}, fmt.Errorf("page %d out of range (1-%d)", number, r.NumPage())
	}
	v := r.Page(number).V
	if v.IsNull() {
		return Page{}, fmt.Errorf("page %d not found", number)
	}

	p := Page{Number: number, MediaBox: letter}
	if mb, ok := readBox(inherited(v, "MediaBox")); ok {
		p.MediaBox = mb
	}
	p.CropBox = p.MediaBox
	if cb, ok := readBox(inherited(v, "CropBox")); ok {
		p.CropBox = cb
	}

	rot := inherited(v, "Rotate")
	if rot.Kind() == pdflib.Integer {
		p.Rotate = normaliseRotation(int(rot.Int64()))
	}
	return p, nil
}

// inherited looks key up on the page and then on its ancestors.
func inherited(v pdflib.Value, key string) pdflib.Value {
	for i := 0; i < maxTreeDepth && !v.IsNull(); i++ {
		if val := v.Key(key); !val.IsNull() {
			return val
		}
		v = v.Key("Parent")
	}
	return pdflib.Value{}
}

func readBox(v pdflib.Value) (Box, bool) {
	if v.Kind() != pdflib.Array || v.Len() < 4 {
		return Box{}, false
	}
	var b Box
	for i := 0; i < 4; i++ {
		b[i] = v.Index(i).Float64()
	}
	if b.Width() == 0 || b.Height() == 0 {
		return Box{}, false
	}
	return b, true
}

func normaliseRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
