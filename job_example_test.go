package pdfcert_test

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"log"
	"os"
	"path/filepath"

	"github.com/digitorus/pdfcert"
	"github.com/digitorus/pdfcert/geom"
)

// ExampleJob_Run generates two certificates from an image template.
func ExampleJob_Run() {
	parent, err := os.MkdirTemp("", "pdfcert-example")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = os.RemoveAll(parent) }()

	// 1. Template: a blank 1000x1200 page
	page := image.NewRGBA(image.Rect(0, 0, 1000, 1200))
	draw.Draw(page, page.Bounds(), image.White, image.Point{}, draw.Src)
	tpl := pdfcert.NewImageTemplate(page)

	// 2. Text area in page pixels
	rect := geom.Rect{Left: 100, Top: 100, Right: 300, Bottom: 160}

	// 3. Run and follow progress
	progress := make(chan pdfcert.Progress, 2)
	res, err := pdfcert.NewJob(tpl, &rect).
		OutputDir(parent, "Certificates").
		Run(context.Background(), []string{"Alice", "Bob"}, progress)
	if err != nil {
		log.Fatal(err)
	}
	close(progress)

	for p := range progress {
		fmt.Printf("%d/%d %s\n", p.Completed, p.Total, filepath.Base(p.Path))
	}
	fmt.Println(filepath.Base(res.Dir))

	// Output:
	// 1/2 Alice.pdf
	// 2/2 Bob.pdf
	// Certificates_1
}
