// Package images provides raster image resources for certificate templates.
//
// Templates can be raster images (JPEG, PNG, GIF) instead of PDF documents,
// and rasterised PDF pages are handled as RGBA buffers throughout.
package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"

	xdraw "golang.org/x/image/draw"
)

// Image represents a raster image resource.
type Image struct {
	Name   string // Identifier for the image
	Data   []byte // Raw image data (JPEG, PNG or GIF)
	Hash   string // SHA256 hash of image data
	Format string // Format reported by the decoder

	img image.Image
}

// Decode decodes raw image data.
func Decode(name string, data []byte) (*Image, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("invalid image data")
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	h := sha256.Sum256(data)
	return &Image{
		Name:   name,
		Data:   data,
		Hash:   hex.EncodeToString(h[:]),
		Format: format,
		img:    img,
	}, nil
}

// Load reads and decodes an image file.
func Load(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return Decode(filepath.Base(path), data)
}

// Image returns the decoded image.
func (i *Image) Image() image.Image {
	return i.img
}

// Size returns the pixel dimensions of the image.
func (i *Image) Size() (width, height int) {
	b := i.img.Bounds()
	return b.Dx(), b.Dy()
}

// ToRGBA returns img as an *image.RGBA with its origin at (0, 0). The result
// is always a new buffer, so callers may draw on it freely.
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// Resize scales img to exactly width x height. A copy is returned when the
// size already matches.
func Resize(img image.Image, width, height int) *image.RGBA {
	b := img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return ToRGBA(img)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	xdraw.CatmullRom.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}

// EncodePNG writes img as a PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
