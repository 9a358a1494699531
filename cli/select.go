package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/digitorus/pdfcert"
	"github.com/digitorus/pdfcert/geom"
	"github.com/digitorus/pdfcert/selection"
)

func SelectCommand() {
	selectFlags := flag.NewFlagSet("select", flag.ExitOnError)

	var view, from, to string
	selectFlags.StringVar(&view, "view", "800,800", "Size of the viewport the template is shown in, as width,height")
	selectFlags.StringVar(&from, "from", "", "Point where the drag starts, in viewport pixels (required)")
	selectFlags.StringVar(&to, "to", "", "Point where the drag ends, in viewport pixels (required)")

	selectFlags.Usage = func() {
		fmt.Printf("Usage: %s select [options] -from x,y -to x,y <template.pdf|png|jpg>\n\n", os.Args[0])
		fmt.Println("Map a drag on a template shown centred in a viewport to page pixels")
		fmt.Println("\nOptions:")
		selectFlags.PrintDefaults()
		fmt.Println("\nExample:")
		fmt.Printf("  %s select -view 500,600 -from 50,50 -to 150,80 template.pdf\n", os.Args[0])
	}

	if err := selectFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse select flags: %v", err)
		osExit(1)
		return
	}
	if selectFlags.NArg() < 1 || from == "" || to == "" {
		selectFlags.Usage()
		osExit(1)
		return
	}

	if err := runSelect(os.Stdout, selectFlags.Arg(0), view, from, to); err != nil {
		log.Println(err)
		osExit(1)
	}
}

func runSelect(w io.Writer, templatePath, view, from, to string) error {
	vw, vh, err := parseSize(view)
	if err != nil {
		return err
	}
	start, err := parsePoint(from)
	if err != nil {
		return err
	}
	end, err := parsePoint(to)
	if err != nil {
		return err
	}

	tpl, err := pdfcert.OpenTemplate(templatePath)
	if err != nil {
		return err
	}
	defer func() { _ = tpl.Close() }()
	pw, ph, err := tpl.PageSize(0)
	if err != nil {
		return err
	}

	viewRect, pageRect, err := Select(vw, vh, float64(pw), float64(ph), start, end)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(w, "view: %s\n", formatRect(viewRect))
	_, _ = fmt.Fprintf(w, "page: %s\n", formatRect(pageRect))
	return nil
}

// Select replays a drag from start to end over a pageWidth x pageHeight page
// shown in a viewWidth x viewHeight viewport. It returns the clamped
// selection in view space and in page pixels.
func Select(viewWidth, viewHeight, pageWidth, pageHeight float64, start, end geom.Point) (geom.Rect, geom.Rect, error) {
	s := selection.SetViewportSize(selection.State{}, viewWidth, viewHeight)
	s = selection.SetImageSize(s, nil, pageWidth, pageHeight)

	s, ok := selection.DragStart(s, start)
	if !ok {
		return geom.Rect{}, geom.Rect{}, errors.New("drag starts outside the displayed page")
	}
	s = selection.DragEnd(s, end)

	page := selection.ImageSelection(s)
	if page == nil || page.Empty() {
		return geom.Rect{}, geom.Rect{}, pdfcert.ErrEmptySelection
	}
	return *s.Committed, *page, nil
}
