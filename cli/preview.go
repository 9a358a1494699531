package cli

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/digitorus/pdfcert"
	"github.com/digitorus/pdfcert/config"
	"github.com/digitorus/pdfcert/images"
	"github.com/digitorus/pdfcert/raster"
)

func PreviewCommand() {
	previewFlags := flag.NewFlagSet("preview", flag.ExitOnError)

	configPath := configFlag(previewFlags)
	var width, height int
	var pdftoppm string
	previewFlags.IntVar(&width, "width", 0, "Maximum preview width (default from config, 800)")
	previewFlags.IntVar(&height, "height", 0, "Maximum preview height (default from config, 800)")
	previewFlags.StringVar(&pdftoppm, "pdftoppm", "", "Path to the pdftoppm binary")

	previewFlags.Usage = func() {
		fmt.Printf("Usage: %s preview [options] <template.pdf|png|jpg> <preview.png>\n\n", os.Args[0])
		fmt.Println("Render the first page of a template at preview resolution")
		fmt.Println("\nOptions:")
		previewFlags.PrintDefaults()
	}

	if err := previewFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse preview flags: %v", err)
		osExit(1)
		return
	}
	if previewFlags.NArg() < 2 {
		previewFlags.Usage()
		osExit(1)
		return
	}

	loadConfig(*configPath)
	if width == 0 {
		width = config.Settings.Render.PreviewWidth
	}
	if height == 0 {
		height = config.Settings.Render.PreviewHeight
	}
	if pdftoppm == "" {
		pdftoppm = config.Settings.Render.Pdftoppm
	}

	w, h, err := WritePreview(context.Background(), previewFlags.Arg(0), previewFlags.Arg(1), width, height, &raster.Poppler{Binary: pdftoppm})
	if err != nil {
		log.Println(err)
		osExit(1)
		return
	}
	// Print the size so it can be passed to generate -space.
	fmt.Printf("%dx%d\n", w, h)
}

// WritePreview renders a preview of the template into a PNG file and returns
// its size.
func WritePreview(ctx context.Context, templatePath, out string, maxWidth, maxHeight int, r raster.Rasterizer) (int, int, error) {
	tpl, err := pdfcert.OpenTemplate(templatePath, pdfcert.WithRasterizer(r))
	if err != nil {
		return 0, 0, err
	}
	defer func() { _ = tpl.Close() }()

	img, err := pdfcert.Preview(ctx, tpl, maxWidth, maxHeight)
	if err != nil {
		return 0, 0, err
	}

	f, err := os.Create(out)
	if err != nil {
		return 0, 0, err
	}
	if err := images.EncodePNG(f, img); err != nil {
		_ = f.Close()
		return 0, 0, err
	}
	if err := f.Close(); err != nil {
		return 0, 0, err
	}
	b := img.Bounds()
	return b.Dx(), b.Dy(), nil
}
