// Package raster turns PDF pages into pixel buffers.
//
// Rendering PDF content is delegated to an external rasterizer. The default
// implementation runs poppler's pdftoppm, which is widely packaged and
// produces print-quality output.
package raster

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/digitorus/pdfcert/images"
)

// Rasterizer renders page number page (1-based) of the PDF at path into a
// width x height RGBA buffer.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, page, width, height int) (*image.RGBA, error)
}

// ErrUnavailable is returned when the rasterizer binary cannot be found.
var ErrUnavailable = errors.New("pdftoppm not found, please install poppler-utils " +
	"(Debian/Ubuntu: apt-get install poppler-utils, macOS: brew install poppler)")

// Poppler rasterizes pages with pdftoppm.
type Poppler struct {
	// Binary is the pdftoppm executable; empty means "pdftoppm" from PATH.
	Binary string
	// TempDir is where intermediate images are written; empty means os.TempDir.
	TempDir string
	Logger  *log.Logger
}

func (p *Poppler) binary() string {
	if p.Binary != "" {
		return p.Binary
	}
	return "pdftoppm"
}

// Available reports whether the pdftoppm binary can be executed.
func (p *Poppler) Available() bool {
	if _, err := exec.LookPath(p.binary()); err != nil {
		return false
	}
	return exec.Command(p.binary(), "-v").Run() == nil
}

// Rasterize implements Rasterizer.
func (p *Poppler) Rasterize(ctx context.Context, path string, page, width, height int) (*image.RGBA, error) {
	if page < 1 {
		return nil, fmt.Errorf("invalid page number %d", page)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	if _, err := exec.LookPath(p.binary()); err != nil {
		return nil, ErrUnavailable
	}

	dir, err := os.MkdirTemp(p.TempDir, "pdfcert_*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			p.logf("failed to remove %s: %v", dir, err)
		}
	}()

	prefix := filepath.Join(dir, "page")
	args := []string{
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-scale-to-x", strconv.Itoa(width),
		"-scale-to-y", strconv.Itoa(height),
		"-singlefile",
		path,
		prefix,
	}
	cmd := exec.CommandContext(ctx, p.binary(), args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(output))
	}

	img, err := loadPNG(prefix + ".png")
	if err != nil {
		return nil, err
	}
	if b := img.Bounds(); b.Dx() != width || b.Dy() != height {
		// pdftoppm rounds the resolution it derives from -scale-to
		p.logf("pdftoppm produced %dx%d, resizing to %dx%d", b.Dx(), b.Dy(), width, height)
		img = images.Resize(img, width, height)
	}
	p.logf("rasterized %s page %d at %dx%d", filepath.Base(path), page, width, height)
	return img, nil
}

func (p *Poppler) logf(format string, args ...any) {
	if p.Logger != nil {
		p.Logger.Printf(format, args...)
	}
}

func loadPNG(path string) (*image.RGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open rendered page: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page: %w", err)
	}
	img, err := images.Decode(filepath.Base(path), data)
	if err != nil {
		return nil, err
	}
	return images.ToRGBA(img.Image()), nil
}
