// Package encode writes rendered certificate pages as PDF documents.
package encode

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/mattetti/filebuffer"

	"github.com/digitorus/pdfcert/images"
)

// Creator is recorded in the Info dictionary when Options.Creator is empty.
const Creator = "pdfcert"

// Options controls document metadata and image compression.
type Options struct {
	Title   string
	Subject string
	Author  string
	Creator string

	// CreationDate defaults to the current time.
	CreationDate time.Time

	// JPEGQuality selects lossy JPEG page images when between 1 and 100.
	// Zero keeps the page lossless (PNG).
	JPEGQuality int
}

// PDF writes img as a single-page PDF. One pixel maps to one point, so a page
// rasterised at 72 dpi keeps the size of the template it came from.
func PDF(w io.Writer, img image.Image, opts Options) error {
	b := img.Bounds()
	width, height := float64(b.Dx()), float64(b.Dy())
	if width <= 0 || height <= 0 {
		return fmt.Errorf("cannot encode an empty %dx%d image", b.Dx(), b.Dy())
	}
	if opts.JPEGQuality < 0 || opts.JPEGQuality > 100 {
		return fmt.Errorf("invalid JPEG quality %d", opts.JPEGQuality)
	}

	pageImage, imageType, err := encodeImage(img, opts.JPEGQuality)
	if err != nil {
		return err
	}

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "pt",
		Size:           gofpdf.SizeType{Wd: width, Ht: height},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	creator := opts.Creator
	if creator == "" {
		creator = Creator
	}
	pdf.SetCreator(creator, true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	if opts.Subject != "" {
		pdf.SetSubject(opts.Subject, true)
	}
	if opts.Author != "" {
		pdf.SetAuthor(opts.Author, true)
	}
	if !opts.CreationDate.IsZero() {
		pdf.SetCreationDate(opts.CreationDate)
	}

	pdf.AddPage()
	imgOpts := gofpdf.ImageOptions{ImageType: imageType}
	pdf.RegisterImageOptionsReader("page", imgOpts, pageImage)
	pdf.ImageOptions("page", 0, 0, width, height, false, imgOpts, 0, "")

	// Assemble in memory so a failure never leaves a truncated document in w.
	buf := filebuffer.New(nil)
	if err := pdf.Output(buf); err != nil {
		return fmt.Errorf("failed to build PDF: %w", err)
	}
	if _, err := buf.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.Copy(w, buf); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}

func encodeImage(img image.Image, quality int) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	if quality > 0 {
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("failed to encode page image: %w", err)
		}
		return &buf, "JPG", nil
	}
	if err := images.EncodePNG(&buf, img); err != nil {
		return nil, "", fmt.Errorf("failed to encode page image: %w", err)
	}
	return &buf, "PNG", nil
}
