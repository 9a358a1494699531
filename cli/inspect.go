package cli

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/digitorus/pdfcert"
)

func InspectCommand() {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)

	inspectFlags.Usage = func() {
		fmt.Printf("Usage: %s inspect <template.pdf|png|jpg>\n\n", os.Args[0])
		fmt.Println("Show the pages of a template and their size in pixels")
	}

	if err := inspectFlags.Parse(os.Args[2:]); err != nil {
		log.Printf("Failed to parse inspect flags: %v", err)
		osExit(1)
		return
	}
	if inspectFlags.NArg() < 1 {
		inspectFlags.Usage()
		osExit(1)
		return
	}

	if err := Inspect(os.Stdout, inspectFlags.Arg(0)); err != nil {
		log.Println(err)
		osExit(1)
	}
}

// Inspect writes a summary of the template at path to w.
func Inspect(w io.Writer, path string) error {
	tpl, err := pdfcert.OpenTemplate(path)
	if err != nil {
		return err
	}
	defer func() { _ = tpl.Close() }()

	if p, ok := tpl.(*pdfcert.PDFTemplate); ok {
		info := p.Info()
		_, _ = fmt.Fprintf(w, "Type:     PDF\n")
		if info.Title != "" {
			_, _ = fmt.Fprintf(w, "Title:    %s\n", info.Title)
		}
		if info.Producer != "" {
			_, _ = fmt.Fprintf(w, "Producer: %s\n", info.Producer)
		}
	} else {
		_, _ = fmt.Fprintf(w, "Type:     image\n")
	}
	_, _ = fmt.Fprintf(w, "Pages:    %d\n", tpl.PageCount())

	for i := 0; i < tpl.PageCount(); i++ {
		width, height, err := tpl.PageSize(i)
		if err != nil {
			return err
		}
		line := fmt.Sprintf("  %d: %dx%d", i+1, width, height)
		if p, ok := tpl.(*pdfcert.PDFTemplate); ok {
			if page, err := p.Page(i); err == nil && page.Rotate != 0 {
				line += fmt.Sprintf(" (rotated %d)", page.Rotate)
			}
		}
		if i == 0 {
			line += " certificates use this page"
		}
		_, _ = fmt.Fprintln(w, line)
	}
	return nil
}
