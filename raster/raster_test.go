package raster

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/digitorus/pdfcert/internal/testpdf"
)

func TestPopplerRasterize(t *testing.T) {
	p := &Poppler{}
	if !p.Available() {
		t.Skip("pdftoppm not installed")
	}

	path := testpdf.WriteFile(t, "template.pdf", testpdf.Document(t, "tpl",
		testpdf.PageSize{W: 400, H: 300},
		testpdf.PageSize{W: 200, H: 200},
	))

	img, err := p.Rasterize(context.Background(), path, 1, 400, 300)
	if err != nil {
		t.Fatalf("Rasterize() error = %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Errorf("size = %v, want 400x300", b)
	}

	small, err := p.Rasterize(context.Background(), path, 2, 50, 50)
	if err != nil {
		t.Fatalf("Rasterize(page 2) error = %v", err)
	}
	if b := small.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Errorf("size = %v, want 50x50", b)
	}
}

func TestPopplerMissingFile(t *testing.T) {
	p := &Poppler{}
	if !p.Available() {
		t.Skip("pdftoppm not installed")
	}
	if _, err := p.Rasterize(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"), 1, 10, 10); err == nil {
		t.Error("Rasterize() of a missing file must fail")
	}
}

func TestPopplerUnavailable(t *testing.T) {
	p := &Poppler{Binary: filepath.Join(t.TempDir(), "no-such-pdftoppm")}
	if p.Available() {
		t.Fatal("Available() = true for a missing binary")
	}
	_, err := p.Rasterize(context.Background(), "x.pdf", 1, 10, 10)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("Rasterize() error = %v, want ErrUnavailable", err)
	}
}

func TestPopplerArgumentValidation(t *testing.T) {
	p := &Poppler{}
	if _, err := p.Rasterize(context.Background(), "x.pdf", 0, 10, 10); err == nil {
		t.Error("page 0 must be rejected")
	}
	if _, err := p.Rasterize(context.Background(), "x.pdf", 1, 0, 10); err == nil {
		t.Error("zero width must be rejected")
	}
}
