package pdfcert

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"

	pdflib "github.com/digitorus/pdf"

	"github.com/digitorus/pdfcert/images"
	"github.com/digitorus/pdfcert/internal/pdf"
	"github.com/digitorus/pdfcert/raster"
)

// Template is a certificate background. Pages are 0-based; runs only ever
// use page 0.
type Template interface {
	// PageCount returns the number of pages.
	PageCount() int
	// PageSize returns the native pixel size of a page, one pixel per
	// PDF point (72 dpi).
	PageSize(page int) (width, height int, err error)
	// RenderPage renders a page into a new width x height buffer. Every
	// call returns a buffer the caller owns.
	RenderPage(ctx context.Context, page, width, height int) (*image.RGBA, error)
	Close() error
}

// TemplateOption configures OpenTemplate.
type TemplateOption func(*templateOptions)

type templateOptions struct {
	rasterizer raster.Rasterizer
	logger     *log.Logger
}

// WithRasterizer sets the rasterizer used for PDF templates. The default
// runs pdftoppm from PATH.
func WithRasterizer(r raster.Rasterizer) TemplateOption {
	return func(o *templateOptions) { o.rasterizer = r }
}

// WithTemplateLogger sets the logger for template operations.
func WithTemplateLogger(l *log.Logger) TemplateOption {
	return func(o *templateOptions) { o.logger = l }
}

// OpenTemplate opens a PDF or raster image (PNG, JPEG, GIF) template. The
// format is detected from the file contents.
func OpenTemplate(path string, opts ...TemplateOption) (Template, error) {
	o := templateOptions{}
	for _, opt := range opts {
		opt(&o)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, newError(DocumentOpenFailure, "", fmt.Errorf("failed to open template: %w", err))
	}

	header := make([]byte, 1024)
	n, err := f.ReadAt(header, 0)
	if err != nil && err != io.EOF {
		_ = f.Close()
		return nil, newError(DocumentOpenFailure, "", fmt.Errorf("failed to read template: %w", err))
	}

	if bytes.Contains(header[:n], []byte("%PDF-")) {
		t, err := openPDF(f, path, o)
		if err != nil {
			_ = f.Close()
			return nil, newError(DocumentOpenFailure, "", err)
		}
		return t, nil
	}

	defer func() { _ = f.Close() }()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, newError(DocumentOpenFailure, "", fmt.Errorf("failed to read template: %w", err))
	}
	img, err := images.Decode(filepath.Base(path), data)
	if err != nil {
		return nil, newError(DocumentOpenFailure, "", fmt.Errorf("template is neither a PDF nor a supported image: %w", err))
	}
	return NewImageTemplate(img.Image()), nil
}

// PDFTemplate is a template backed by a PDF file.
type PDFTemplate struct {
	path       string
	file       *os.File
	rdr        *pdflib.Reader
	info       pdf.Info
	rasterizer raster.Rasterizer
	logger     *log.Logger
}

func openPDF(f *os.File, path string, o templateOptions) (*PDFTemplate, error) {
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat template: %w", err)
	}
	rdr, err := pdf.Open(f, fi.Size())
	if err != nil {
		return nil, err
	}
	info := pdf.DocumentInfo(rdr)
	if info.Pages < 1 {
		return nil, fmt.Errorf("template %s has no pages", filepath.Base(path))
	}

	r := o.rasterizer
	if r == nil {
		r = &raster.Poppler{Logger: o.logger}
	}
	return &PDFTemplate{
		path:       path,
		file:       f,
		rdr:        rdr,
		info:       info,
		rasterizer: r,
		logger:     o.logger,
	}, nil
}

// Info returns the document summary.
func (t *PDFTemplate) Info() pdf.Info {
	return t.info
}

func (t *PDFTemplate) PageCount() int {
	return t.info.Pages
}

// Page returns the geometry of a page.
func (t *PDFTemplate) Page(page int) (pdf.Page, error) {
	if page < 0 || page >= t.info.Pages {
		return pdf.Page{}, fmt.Errorf("page %d out of range, template has %d pages", page, t.info.Pages)
	}
	return pdf.PageAt(t.rdr, page+1)
}

func (t *PDFTemplate) PageSize(page int) (int, int, error) {
	p, err := t.Page(page)
	if err != nil {
		return 0, 0, err
	}
	w, h := p.Size()
	return pixels(w), pixels(h), nil
}

func (t *PDFTemplate) RenderPage(ctx context.Context, page, width, height int) (*image.RGBA, error) {
	if page < 0 || page >= t.info.Pages {
		return nil, fmt.Errorf("page %d out of range, template has %d pages", page, t.info.Pages)
	}
	return t.rasterizer.Rasterize(ctx, t.path, page+1, width, height)
}

func (t *PDFTemplate) Close() error {
	return t.file.Close()
}

// ImageTemplate is a single-page template backed by a raster image.
type ImageTemplate struct {
	img image.Image
}

// NewImageTemplate wraps img. Its native size is its pixel size.
func NewImageTemplate(img image.Image) *ImageTemplate {
	return &ImageTemplate{img: img}
}

func (t *ImageTemplate) PageCount() int {
	return 1
}

func (t *ImageTemplate) PageSize(page int) (int, int, error) {
	if page != 0 {
		return 0, 0, fmt.Errorf("page %d out of range, template has 1 page", page)
	}
	b := t.img.Bounds()
	return b.Dx(), b.Dy(), nil
}

func (t *ImageTemplate) RenderPage(_ context.Context, page, width, height int) (*image.RGBA, error) {
	if page != 0 {
		return nil, fmt.Errorf("page %d out of range, template has 1 page", page)
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid target size %dx%d", width, height)
	}
	return images.Resize(t.img, width, height), nil
}

func (t *ImageTemplate) Close() error {
	return nil
}

// Preview renders page 0 scaled down to fit maxWidth x maxHeight, keeping
// its aspect ratio. Templates smaller than the box are rendered at native
// size.
func Preview(ctx context.Context, t Template, maxWidth, maxHeight int) (*image.RGBA, error) {
	if maxWidth <= 0 || maxHeight <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", maxWidth, maxHeight)
	}
	w, h, err := t.PageSize(0)
	if err != nil {
		return nil, newError(DocumentOpenFailure, "", err)
	}
	scale := math.Min(1, math.Min(float64(maxWidth)/float64(w), float64(maxHeight)/float64(h)))
	pw, ph := pixels(float64(w)*scale), pixels(float64(h)*scale)

	img, err := t.RenderPage(ctx, 0, pw, ph)
	if err != nil {
		return nil, newError(PageRenderFailure, "", err)
	}
	return img, nil
}

func pixels(v float64) int {
	return max(1, int(math.Round(v)))
}
