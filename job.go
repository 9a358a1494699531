// Package pdfcert generates personalised certificates from a template.
//
// A run renders the first page of the template once per recipient, draws the
// recipient's name in bold, centred inside a selected rectangle, and writes
// the page as a single-page PDF named after the recipient. Every run gets its
// own numbered output directory.
//
// Basic usage:
//
//	tpl, err := pdfcert.OpenTemplate("template.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tpl.Close()
//
//	res, err := pdfcert.NewJob(tpl, geom.Rect{Left: 100, Top: 100, Right: 300, Bottom: 160}).
//	    OutputDir("out", "Certificates").
//	    Run(ctx, []string{"Alice", "Bob"}, nil)
package pdfcert

import (
	"image/color"
	"io"
	"log"

	"github.com/digitorus/pdfcert/fonts"
	"github.com/digitorus/pdfcert/geom"
	"github.com/digitorus/pdfcert/output"
	"github.com/digitorus/pdfcert/seal"
)

// Job describes a certificate run. Configure it with the chained setters
// and start it with Run, Start or Execute.
type Job struct {
	template Template
	rect     *geom.Rect

	// Size of the space rect was selected in; zero means native page pixels.
	spaceW, spaceH float64

	sink       output.Sink
	parent     string
	prefix     string
	duplicates output.DuplicatePolicy

	font        *fonts.Font
	color       color.Color
	heightRatio float64
	text        string
	quality     int

	sealer seal.Sealer
	logger *log.Logger
}

// NewJob creates a run over tpl with the text area rect. rect is in native
// page pixels unless SelectionSpace says otherwise.
func NewJob(tpl Template, rect *geom.Rect) *Job {
	return &Job{
		template: tpl,
		rect:     rect,
		parent:   ".",
		prefix:   output.DefaultPrefix,
		logger:   log.New(io.Discard, "", 0),
	}
}

// SelectionSpace declares that the selection rectangle was taken on a
// rendering of width x height pixels, for example the preview. It is
// scaled to native page pixels before drawing.
func (j *Job) SelectionSpace(width, height float64) *Job {
	j.spaceW, j.spaceH = width, height
	return j
}

// OutputDir makes the run create a fresh <parent>/<prefix>_<n> directory.
// This is the default, with parent "." and prefix "Certificates".
func (j *Job) OutputDir(parent, prefix string) *Job {
	j.parent, j.prefix = parent, prefix
	return j
}

// Duplicates sets how two identical names are stored in the run directory.
// The default overwrites, so the last one wins.
func (j *Job) Duplicates(p output.DuplicatePolicy) *Job {
	j.duplicates = p
	return j
}

// Output sends documents to sink instead of a run directory.
func (j *Job) Output(sink output.Sink) *Job {
	j.sink = sink
	return j
}

// Font sets the name font. The default is Go Bold.
func (j *Job) Font(f *fonts.Font) *Job {
	j.font = f
	return j
}

// Color sets the name colour. The default is black.
func (j *Job) Color(c color.Color) *Job {
	j.color = c
	return j
}

// HeightRatio sets the ratio between the selection height and the font
// size. The default is 1.5.
func (j *Job) HeightRatio(r float64) *Job {
	j.heightRatio = r
	return j
}

// Text sets the text drawn for every name. It may use {{Name}}, {{Initials}},
// {{Date}}, {{Index}} and {{Total}}. The default is "{{Name}}".
func (j *Job) Text(format string) *Job {
	j.text = format
	return j
}

// JPEGQuality stores pages as JPEG with the given quality (1-100) instead
// of lossless PNG.
func (j *Job) JPEGQuality(q int) *Job {
	j.quality = q
	return j
}

// Seal signs every document and stores the detached signature next to it
// as <name>.pdf.p7s.
func (j *Job) Seal(s seal.Sealer) *Job {
	j.sealer = s
	return j
}

// Logger sets the logger for run diagnostics. Logging is off by default.
func (j *Job) Logger(l *log.Logger) *Job {
	if l == nil {
		l = log.New(io.Discard, "", 0)
	}
	j.logger = l
	return j
}

// Progress is sent after a name's document has been written and closed.
type Progress struct {
	Completed int
	Total     int
	Name      string
	Path      string
}

// Result lists what a run wrote, also when it was aborted. A file whose
// write failed part way is listed too, since it may be left on disk.
type Result struct {
	// Dir is the run directory, empty when a custom sink was used.
	Dir   string
	Files []string
}
