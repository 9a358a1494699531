package fonts

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

func TestBold(t *testing.T) {
	f, err := Bold()
	if err != nil {
		t.Fatalf("Bold() error = %v", err)
	}
	if f.Name != "Go-Bold" {
		t.Errorf("Name = %q", f.Name)
	}
	if len(f.Hash) != 64 {
		t.Errorf("Hash = %q, want hex sha256", f.Hash)
	}

	again, _ := Bold()
	if again != f {
		t.Error("Bold() must return the same instance")
	}
}

func TestMetricsScaleWithSize(t *testing.T) {
	f, err := Bold()
	if err != nil {
		t.Fatal(err)
	}

	small, err := f.Metrics(20)
	if err != nil {
		t.Fatalf("Metrics(20) error = %v", err)
	}
	large, err := f.Metrics(40)
	if err != nil {
		t.Fatalf("Metrics(40) error = %v", err)
	}

	if small.Ascent <= 0 || small.Descent <= 0 {
		t.Fatalf("ascent/descent = %v/%v, want both positive", small.Ascent, small.Descent)
	}
	if large.Ascent < 1.9*small.Ascent || large.Ascent > 2.1*small.Ascent {
		t.Errorf("ascent %v at 40px is not about twice %v at 20px", large.Ascent, small.Ascent)
	}
	if large.Ascent > 40 {
		t.Errorf("ascent %v exceeds the pixel size", large.Ascent)
	}
}

func TestStringWidthMatchesFace(t *testing.T) {
	f, err := Bold()
	if err != nil {
		t.Fatal(err)
	}
	m, err := f.Metrics(40)
	if err != nil {
		t.Fatal(err)
	}
	face, err := f.Face(40)
	if err != nil {
		t.Fatal(err)
	}
	defer face.Close()

	for _, s := range []string{"Alice", "Bob", "Zoë Wayfarer", ""} {
		got := m.StringWidth(s)
		want := float64(font.MeasureString(face, s)) / 64
		if diff := got - want; diff > 1 || diff < -1 {
			t.Errorf("StringWidth(%q) = %v, face measures %v", s, got, want)
		}
	}
	if m.StringWidth("WWW") <= m.StringWidth("iii") {
		t.Error("wide glyphs must measure wider than narrow ones")
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Regular.ttf")
	if err := os.WriteFile(path, goregular.TTF, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.Name != "Regular" {
		t.Errorf("Name = %q, want Regular", f.Name)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.ttf")); err == nil {
		t.Error("Load() of a missing file must fail")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("junk", []byte("not a font")); err == nil {
		t.Error("Parse() must reject non-font data")
	}
}
