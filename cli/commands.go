package cli

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/digitorus/pdfcert/config"
	"github.com/digitorus/pdfcert/geom"
)

var osExit = os.Exit

func Usage() {
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  generate  Generate one certificate per name")
	fmt.Println("  preview   Render a low resolution preview of a template")
	fmt.Println("  select    Map a drag on a preview to a text area on the page")
	fmt.Println("  inspect   Show the pages of a template")
	fmt.Println("  verify    Verify a sealed certificate")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	osExit(1)
}

// configFlag registers -config on flags.
func configFlag(flags *flag.FlagSet) *string {
	return flags.String("config", config.DefaultLocation, "Path to the TOML config file, ignored when missing")
}

// loadConfig reads path into config.Settings. A missing file at the default
// location is not an error.
func loadConfig(path string) {
	err := config.Read(path)
	if err == nil {
		log.Printf("Using config %s", path)
		return
	}
	if path == config.DefaultLocation && errors.Is(err, fs.ErrNotExist) {
		return
	}
	log.Println(err)
	osExit(1)
}

// parseRect parses "left,top,right,bottom".
func parseRect(s string) (geom.Rect, error) {
	v, err := parseFloats(s, 4)
	if err != nil {
		return geom.Rect{}, fmt.Errorf("invalid rectangle %q, want left,top,right,bottom: %w", s, err)
	}
	return geom.NewRect(geom.Point{X: v[0], Y: v[1]}, geom.Point{X: v[2], Y: v[3]}), nil
}

// parsePoint parses "x,y".
func parsePoint(s string) (geom.Point, error) {
	v, err := parseFloats(s, 2)
	if err != nil {
		return geom.Point{}, fmt.Errorf("invalid point %q, want x,y: %w", s, err)
	}
	return geom.Point{X: v[0], Y: v[1]}, nil
}

// parseSize parses "width,height" or "widthxheight".
func parseSize(s string) (float64, float64, error) {
	v, err := parseFloats(strings.ReplaceAll(s, "x", ","), 2)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q, want width,height: %w", s, err)
	}
	if v[0] <= 0 || v[1] <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q, both dimensions must be positive", s)
	}
	return v[0], v[1], nil
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("expected %d values, got %d", n, len(parts))
	}
	v := make([]float64, n)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		v[i] = f
	}
	return v, nil
}

func formatRect(r geom.Rect) string {
	return fmt.Sprintf("%s,%s,%s,%s", formatFloat(r.Left), formatFloat(r.Top), formatFloat(r.Right), formatFloat(r.Bottom))
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
