// Package testpdf builds small PDF and image templates for tests.
package testpdf

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/jung-kurt/gofpdf"
)

// PageSize is a page size in points.
type PageSize struct {
	W, H float64
}

// Document returns a PDF whose pages have the given sizes. The first size is
// the document default, so later pages carry their own MediaBox.
func Document(t testing.TB, title string, sizes ...PageSize) []byte {
	t.Helper()
	if len(sizes) == 0 {
		sizes = []PageSize{{612, 792}}
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: sizes[0].W, Ht: sizes[0].H},
	})
	pdf.SetTitle(title, false)
	pdf.SetFont("Helvetica", "", 12)
	for i, s := range sizes {
		pdf.AddPageFormat("P", gofpdf.SizeType{Wd: s.W, Ht: s.H})
		pdf.SetFillColor(230, 230, 250)
		pdf.Rect(10, 10, s.W-20, s.H-20, "F")
		pdf.Text(20, 40, "Page "+string(rune('1'+i)))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("failed to build PDF: %v", err)
	}
	return buf.Bytes()
}

// PNG returns a white w x h PNG with a coloured frame.
func PNG(t testing.TB, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	frame := color.RGBA{R: 30, G: 60, B: 160, A: 255}
	for x := 0; x < w; x++ {
		img.SetRGBA(x, 0, frame)
		img.SetRGBA(x, h-1, frame)
	}
	for y := 0; y < h; y++ {
		img.SetRGBA(0, y, frame)
		img.SetRGBA(w-1, y, frame)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes data into a fresh temporary directory and returns the path.
func WriteFile(t testing.TB, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}
