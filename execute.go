package pdfcert

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/digitorus/pdfcert/encode"
	"github.com/digitorus/pdfcert/fonts"
	"github.com/digitorus/pdfcert/geom"
	"github.com/digitorus/pdfcert/internal/render"
	"github.com/digitorus/pdfcert/output"
)

// DefaultText is drawn when no text format is configured.
const DefaultText = "{{Name}}"

// Run generates one certificate per name, in order, and stops at the first
// failure. After each document is durably written a Progress value is sent
// on progress when it is not nil; Run never closes progress.
//
// The returned Result lists every file written before Run returned, also
// when the run was aborted. Errors are of type *Error.
func (j *Job) Run(ctx context.Context, names []string, progress chan<- Progress) (*Result, error) {
	if err := j.validate(names); err != nil {
		return nil, err
	}

	res := &Result{}
	sink := j.sink
	if sink == nil {
		dir, err := output.NextRunDir(j.parent, j.prefix)
		if err != nil {
			return res, newError(DirectoryCreationFailure, "", err)
		}
		j.logger.Printf("Generating certificates in folder: %s", dir)
		res.Dir = dir
		sink = output.NewDir(dir, j.duplicates)
	}

	width, height, err := j.template.PageSize(0)
	if err != nil {
		return res, newError(DocumentOpenFailure, "", err)
	}
	rect := j.nativeRect(width, height)
	if rect.Empty() {
		return res, newError(InputValidationFailure, "", fmt.Errorf("selection %v lies outside the %dx%d page", *j.rect, width, height))
	}

	font := j.font
	if font == nil {
		font, err = fonts.Bold()
		if err != nil {
			return res, newError(PageRenderFailure, "", err)
		}
	}

	started := time.Now()
	for i, name := range names {
		if err := ctx.Err(); err != nil {
			return res, newError(Cancelled, name, err)
		}

		gen := generation{
			job:    j,
			sink:   sink,
			font:   font,
			rect:   rect,
			width:  width,
			height: height,
			date:   started,
			index:  i,
			total:  len(names),
		}
		files, err := gen.certificate(ctx, name)
		res.Files = append(res.Files, files...)
		if err != nil {
			j.logger.Printf("Error generating certificates: %v", err)
			return res, err
		}

		if progress != nil {
			p := Progress{Completed: i + 1, Total: len(names), Name: name, Path: files[0]}
			select {
			case progress <- p:
			case <-ctx.Done():
				return res, newError(Cancelled, name, ctx.Err())
			}
		}
	}
	j.logger.Printf("Generated %d certificates in %s", len(names), time.Since(started).Round(time.Millisecond))
	return res, nil
}

// Execute runs the job without a context and reports only success. onProgress
// is called with 1, 2, ... after each written document and may be nil.
func (j *Job) Execute(names []string, onProgress func(completed int)) bool {
	r := j.Start(context.Background(), names)
	for p := range r.Progress() {
		if onProgress != nil {
			onProgress(p.Completed)
		}
	}
	_, err := r.Wait()
	return err == nil
}

// RunHandle is a job running in its own goroutine.
type RunHandle struct {
	progress chan Progress
	done     chan struct{}
	res      *Result
	err      error
}

// Start runs the job in a new goroutine. The caller drains Progress, which
// is closed when the run ends, and then collects the outcome with Wait.
func (j *Job) Start(ctx context.Context, names []string) *RunHandle {
	h := &RunHandle{
		progress: make(chan Progress, len(names)),
		done:     make(chan struct{}),
	}
	go func() {
		defer close(h.done)
		defer close(h.progress)
		h.res, h.err = j.Run(ctx, names, h.progress)
	}()
	return h
}

// Progress returns the progress channel of the run.
func (h *RunHandle) Progress() <-chan Progress {
	return h.progress
}

// Wait blocks until the run ends.
func (h *RunHandle) Wait() (*Result, error) {
	<-h.done
	return h.res, h.err
}

func (j *Job) validate(names []string) error {
	switch {
	case j.template == nil:
		return newError(InputValidationFailure, "", ErrNoTemplate)
	case j.rect == nil:
		return newError(InputValidationFailure, "", ErrNoSelection)
	case j.rect.Empty():
		return newError(InputValidationFailure, "", ErrEmptySelection)
	case len(names) == 0:
		return newError(InputValidationFailure, "", ErrNoNames)
	case j.spaceW < 0 || j.spaceH < 0:
		return newError(InputValidationFailure, "", fmt.Errorf("invalid selection space %vx%v", j.spaceW, j.spaceH))
	case j.quality < 0 || j.quality > 100:
		return newError(InputValidationFailure, "", fmt.Errorf("invalid JPEG quality %d", j.quality))
	}
	return nil
}

// nativeRect maps the selection into page pixels and clips it to the page.
func (j *Job) nativeRect(width, height int) geom.Rect {
	r := *j.rect
	if j.spaceW > 0 && j.spaceH > 0 {
		r = r.Scale(float64(width)/j.spaceW, float64(height)/j.spaceH)
	}
	return r.Clamp(geom.RectWH(0, 0, float64(width), float64(height)))
}

// generation holds what every name of a run shares.
type generation struct {
	job           *Job
	sink          output.Sink
	font          *fonts.Font
	rect          geom.Rect
	width, height int
	date          time.Time
	index, total  int
}

// certificate renders, encodes and stores the document for name and
// returns the paths written.
func (g generation) certificate(ctx context.Context, name string) ([]string, error) {
	j := g.job

	page, err := j.template.RenderPage(ctx, 0, g.width, g.height)
	if err != nil {
		return nil, newError(PageRenderFailure, name, err)
	}

	format := j.text
	if format == "" {
		format = DefaultText
	}
	text := render.ExpandTemplateVariables(format, render.TemplateContext{
		Name:  name,
		Date:  g.date,
		Index: g.index + 1,
		Total: g.total,
	})
	layout, err := render.DrawText(page, render.TextElement{
		Content:     text,
		Font:        g.font,
		Color:       j.color,
		Rect:        g.rect,
		HeightRatio: j.heightRatio,
	})
	if err != nil {
		return nil, newError(PageRenderFailure, name, err)
	}
	j.logger.Printf("%q: font size %.1f, baseline at (%.1f, %.1f)", name, layout.Size, layout.Origin.X, layout.Origin.Y)

	var doc bytes.Buffer
	err = encode.PDF(&doc, page, encode.Options{
		Title:        name,
		Subject:      "Certificate",
		CreationDate: g.date,
		JPEGQuality:  j.quality,
	})
	if err != nil {
		return nil, newError(EncodingOrWriteFailure, name, err)
	}

	var files []string
	path, err := store(g.sink, name, ".pdf", doc.Bytes())
	if path != "" {
		files = append(files, path)
	}
	if err != nil {
		return files, newError(EncodingOrWriteFailure, name, err)
	}

	if j.sealer != nil {
		sig, err := j.sealer.Seal(ctx, doc.Bytes())
		if err != nil {
			return files, newError(SealFailure, name, err)
		}
		sigPath, err := store(g.sink, name, ".pdf.p7s", sig)
		if sigPath != "" {
			files = append(files, sigPath)
		}
		if err != nil {
			return files, newError(EncodingOrWriteFailure, name, err)
		}
	}
	return files, nil
}

// store writes data as one artifact and closes it on every path.
func store(sink output.Sink, name, ext string, data []byte) (path string, err error) {
	w, path, err := sink.Create(name, ext)
	if err != nil {
		return "", fmt.Errorf("failed to create %s%s: %w", output.FileName(name), ext, err)
	}
	defer func() {
		if cerr := w.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if _, err := w.Write(data); err != nil {
		return path, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
