package pdfcert_test

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"io"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/digitorus/pdfcert"
	"github.com/digitorus/pdfcert/geom"
	"github.com/digitorus/pdfcert/internal/pdf"
	"github.com/digitorus/pdfcert/internal/testpki"
	"github.com/digitorus/pdfcert/output"
	"github.com/digitorus/pdfcert/seal"
)

// recordingTemplate keeps every buffer it renders so tests can inspect the
// drawn text after a run.
type recordingTemplate struct {
	pdfcert.Template

	mu      sync.Mutex
	renders []*image.RGBA
	fail    error
}

func (t *recordingTemplate) RenderPage(ctx context.Context, page, width, height int) (*image.RGBA, error) {
	if t.fail != nil {
		return nil, t.fail
	}
	img, err := t.Template.RenderPage(ctx, page, width, height)
	if err != nil {
		return nil, err
	}
	t.mu.Lock()
	t.renders = append(t.renders, img)
	t.mu.Unlock()
	return img, nil
}

func blankTemplate(w, h int) *recordingTemplate {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return &recordingTemplate{Template: pdfcert.NewImageTemplate(img)}
}

// inkBounds returns the bounds of all dark pixels in img.
func inkBounds(img *image.RGBA) image.Rectangle {
	var r image.Rectangle
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y).R < 128 {
				px := image.Rect(x, y, x+1, y+1)
				if r.Empty() {
					r = px
				} else {
					r = r.Union(px)
				}
			}
		}
	}
	return r
}

var errDiskFull = errors.New("disk full")

// memorySink keeps documents in memory and fails the write of the
// failAt-th artifact when failAt > 0.
type memorySink struct {
	mu      sync.Mutex
	files   map[string][]byte
	creates []string
	closes  int
	failAt  int
}

func (s *memorySink) Create(name, ext string) (io.WriteCloser, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creates = append(s.creates, name+ext)
	return &memoryFile{sink: s, path: name + ext, fail: len(s.creates) == s.failAt}, name + ext, nil
}

type memoryFile struct {
	bytes.Buffer
	sink *memorySink
	path string
	fail bool
}

func (f *memoryFile) Write(p []byte) (int, error) {
	if f.fail {
		return 0, errDiskFull
	}
	return f.Buffer.Write(p)
}

func (f *memoryFile) Close() error {
	f.sink.mu.Lock()
	defer f.sink.mu.Unlock()
	f.sink.closes++
	if !f.fail {
		if f.sink.files == nil {
			f.sink.files = make(map[string][]byte)
		}
		f.sink.files[f.path] = f.Bytes()
	}
	return nil
}

func collect(ch <-chan pdfcert.Progress) []int {
	var got []int
	for {
		select {
		case p := <-ch:
			got = append(got, p.Completed)
		default:
			return got
		}
	}
}

func readPage(t *testing.T, path string) (pdf.Info, float64, float64) {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	rdr, err := pdf.Open(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("%s does not parse: %v", path, err)
	}
	p, err := pdf.PageAt(rdr, 1)
	if err != nil {
		t.Fatal(err)
	}
	w, h := p.Size()
	return pdf.DocumentInfo(rdr), w, h
}

func TestRunAliceAndBob(t *testing.T) {
	parent := t.TempDir()
	tpl := blankTemplate(1000, 1200)
	rect := geom.Rect{Left: 100, Top: 100, Right: 300, Bottom: 160}
	progress := make(chan pdfcert.Progress, 2)

	res, err := pdfcert.NewJob(tpl, &rect).
		OutputDir(parent, "Certificates").
		Run(context.Background(), []string{"Alice", "Bob"}, progress)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if want := filepath.Join(parent, "Certificates_1"); res.Dir != want {
		t.Errorf("Dir = %s, want %s", res.Dir, want)
	}
	want := []string{
		filepath.Join(res.Dir, "Alice.pdf"),
		filepath.Join(res.Dir, "Bob.pdf"),
	}
	if !reflect.DeepEqual(res.Files, want) {
		t.Fatalf("Files = %v, want %v", res.Files, want)
	}
	for i, path := range res.Files {
		info, w, h := readPage(t, path)
		if info.Pages != 1 {
			t.Errorf("%s: %d pages, want 1", path, info.Pages)
		}
		if w != 1000 || h != 1200 {
			t.Errorf("%s: page %vx%v, want 1000x1200", path, w, h)
		}
		if name := []string{"Alice", "Bob"}[i]; info.Title != name {
			t.Errorf("%s: title %q, want %q", path, info.Title, name)
		}
	}

	if got := collect(progress); !reflect.DeepEqual(got, []int{1, 2}) {
		t.Errorf("progress = %v, want [1 2]", got)
	}

	if len(tpl.renders) != 2 || tpl.renders[0] == tpl.renders[1] {
		t.Fatalf("every name needs its own rendering, got %d", len(tpl.renders))
	}
	for i, img := range tpl.renders {
		ink := inkBounds(img)
		if ink.Empty() {
			t.Fatalf("rendering %d has no text", i)
		}
		if !ink.In(image.Rect(100, 100, 300, 160)) {
			t.Errorf("rendering %d: ink %v outside the selection", i, ink)
		}
		cx := float64(ink.Min.X+ink.Max.X) / 2
		if math.Abs(cx-200) > 4 {
			t.Errorf("rendering %d: ink centred at x=%.1f, want 200", i, cx)
		}
		cy := float64(ink.Min.Y+ink.Max.Y) / 2
		if math.Abs(cy-130) > 8 {
			t.Errorf("rendering %d: ink centred at y=%.1f, want about 130", i, cy)
		}
	}
	if inkBounds(tpl.renders[0]).Dx() == inkBounds(tpl.renders[1]).Dx() {
		t.Error("Alice and Bob should not render identically")
	}
}

func TestRunCreatesNextRunDirectory(t *testing.T) {
	parent := t.TempDir()
	first := filepath.Join(parent, "Certificates_1")
	if err := os.Mkdir(first, 0o755); err != nil {
		t.Fatal(err)
	}
	marker := filepath.Join(first, "Alice.pdf")
	if err := os.WriteFile(marker, []byte("earlier run"), 0o644); err != nil {
		t.Fatal(err)
	}

	rect := geom.RectWH(10, 10, 80, 30)
	res, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		OutputDir(parent, "Certificates").
		Run(context.Background(), []string{"Alice"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if want := filepath.Join(parent, "Certificates_2"); res.Dir != want {
		t.Errorf("Dir = %s, want %s", res.Dir, want)
	}

	data, err := os.ReadFile(marker)
	if err != nil || string(data) != "earlier run" {
		t.Errorf("earlier run was modified: %q, %v", data, err)
	}
	entries, _ := os.ReadDir(first)
	if len(entries) != 1 {
		t.Errorf("earlier run directory has %d entries, want 1", len(entries))
	}
}

func TestRunAbortsOnWriteFailure(t *testing.T) {
	sink := &memorySink{failAt: 2}
	rect := geom.RectWH(10, 10, 80, 30)
	progress := make(chan pdfcert.Progress, 3)

	res, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(sink).
		Run(context.Background(), []string{"Alice", "Bob", "Carol"}, progress)
	if err == nil {
		t.Fatal("Run() must fail")
	}
	if kind := pdfcert.KindOf(err); kind != pdfcert.EncodingOrWriteFailure {
		t.Errorf("kind = %v, want %v", kind, pdfcert.EncodingOrWriteFailure)
	}
	var e *pdfcert.Error
	if !errors.As(err, &e) || e.Name != "Bob" {
		t.Errorf("error = %v, want failure for Bob", err)
	}
	if !errors.Is(err, errDiskFull) {
		t.Errorf("error = %v, want wrapped disk full", err)
	}

	if want := []string{"Alice.pdf", "Bob.pdf"}; !reflect.DeepEqual(sink.creates, want) {
		t.Errorf("created %v, want %v", sink.creates, want)
	}
	if sink.closes != len(sink.creates) {
		t.Errorf("closed %d of %d artifacts", sink.closes, len(sink.creates))
	}
	if _, ok := sink.files["Carol.pdf"]; ok {
		t.Error("Carol must not be written after the abort")
	}
	if got := collect(progress); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("progress = %v, want [1]", got)
	}
	// Bob.pdf was created before the write failed, so it is reported.
	if want := []string{"Alice.pdf", "Bob.pdf"}; !reflect.DeepEqual(res.Files, want) {
		t.Errorf("Files = %v, want %v", res.Files, want)
	}
}

func TestRunValidation(t *testing.T) {
	rect := geom.RectWH(10, 10, 80, 30)
	flat := geom.RectWH(10, 10, 80, 0)
	tpl := blankTemplate(200, 100)

	tests := []struct {
		name  string
		job   *pdfcert.Job
		names []string
		want  error
	}{
		{"no template", pdfcert.NewJob(nil, &rect), []string{"Alice"}, pdfcert.ErrNoTemplate},
		{"no selection", pdfcert.NewJob(tpl, nil), []string{"Alice"}, pdfcert.ErrNoSelection},
		{"zero area", pdfcert.NewJob(tpl, &flat), []string{"Alice"}, pdfcert.ErrEmptySelection},
		{"no names", pdfcert.NewJob(tpl, &rect), nil, pdfcert.ErrNoNames},
		{"bad quality", pdfcert.NewJob(tpl, &rect).JPEGQuality(101), []string{"Alice"}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parent := t.TempDir()
			_, err := tt.job.OutputDir(parent, "").Run(context.Background(), tt.names, nil)
			if pdfcert.KindOf(err) != pdfcert.InputValidationFailure {
				t.Fatalf("Run() error = %v, want input validation failure", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Run() error = %v, want %v", err, tt.want)
			}
			if entries, _ := os.ReadDir(parent); len(entries) != 0 {
				t.Error("a refused run must not create a directory")
			}
		})
	}
}

func TestRunSelectionOutsidePage(t *testing.T) {
	rect := geom.RectWH(500, 500, 80, 30)
	_, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(&memorySink{}).
		Run(context.Background(), []string{"Alice"}, nil)
	if pdfcert.KindOf(err) != pdfcert.InputValidationFailure {
		t.Errorf("Run() error = %v, want input validation failure", err)
	}
}

func TestRunScalesSelectionSpace(t *testing.T) {
	tpl := blankTemplate(1000, 1200)
	// Selected on a 500x600 preview.
	rect := geom.Rect{Left: 50, Top: 50, Right: 150, Bottom: 80}

	_, err := pdfcert.NewJob(tpl, &rect).
		SelectionSpace(500, 600).
		Output(&memorySink{}).
		Run(context.Background(), []string{"Alice"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if b := tpl.renders[0].Bounds(); b.Dx() != 1000 || b.Dy() != 1200 {
		t.Errorf("rendered at %v, want native 1000x1200", b)
	}
	ink := inkBounds(tpl.renders[0])
	if !ink.In(image.Rect(100, 100, 300, 160)) {
		t.Errorf("ink %v outside the native selection", ink)
	}
	if ink.Dy() < 20 {
		t.Errorf("ink height %d, text was not scaled to native size", ink.Dy())
	}
}

func TestRunTextAndColor(t *testing.T) {
	tpl := blankTemplate(400, 200)
	rect := geom.RectWH(0, 50, 400, 60)
	red := color.RGBA{R: 200, A: 255}

	_, err := pdfcert.NewJob(tpl, &rect).
		Text("{{Initials}}").
		Color(red).
		HeightRatio(2).
		Output(&memorySink{}).
		Run(context.Background(), []string{"Ada Lovelace"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	var reds int
	img := tpl.renders[0]
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			c := img.RGBAAt(x, y)
			if c.R > 150 && c.G < 50 && c.B < 50 {
				reds++
			}
		}
	}
	if reds == 0 {
		t.Error("text was not drawn in the configured colour")
	}
	if w := inkBounds(tpl.renders[0]).Dx(); w > 0 {
		t.Errorf("found %d px of dark ink, want only red text", w)
	}
}

func TestRunRenderFailure(t *testing.T) {
	parent := t.TempDir()
	tpl := blankTemplate(200, 100)
	tpl.fail = errors.New("rasterizer crashed")
	rect := geom.RectWH(10, 10, 80, 30)

	res, err := pdfcert.NewJob(tpl, &rect).
		OutputDir(parent, "Certificates").
		Run(context.Background(), []string{"Alice", "Bob"}, nil)
	if pdfcert.KindOf(err) != pdfcert.PageRenderFailure {
		t.Fatalf("Run() error = %v, want page render failure", err)
	}
	if len(res.Files) != 0 {
		t.Errorf("Files = %v, want none", res.Files)
	}
	if res.Dir == "" {
		t.Error("the run directory is created before rendering")
	}
}

func TestRunDirectoryFailure(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(parent, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	rect := geom.RectWH(10, 10, 80, 30)

	_, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		OutputDir(parent, "Certificates").
		Run(context.Background(), []string{"Alice"}, nil)
	if pdfcert.KindOf(err) != pdfcert.DirectoryCreationFailure {
		t.Errorf("Run() error = %v, want directory creation failure", err)
	}
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sink := &memorySink{}
	rect := geom.RectWH(10, 10, 80, 30)

	_, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(sink).
		Run(ctx, []string{"Alice"}, nil)
	if pdfcert.KindOf(err) != pdfcert.Cancelled || !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want cancellation", err)
	}
	if len(sink.creates) != 0 {
		t.Errorf("created %v after cancellation", sink.creates)
	}
}

func TestRunDuplicateNames(t *testing.T) {
	rect := geom.RectWH(10, 10, 80, 30)
	names := []string{"Alice", "Alice"}

	res, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		OutputDir(t.TempDir(), "").
		Run(context.Background(), names, nil)
	if err != nil {
		t.Fatal(err)
	}
	entries, _ := os.ReadDir(res.Dir)
	if len(entries) != 1 || len(res.Files) != 2 {
		t.Errorf("overwrite: %d files on disk, %d reported; want 1 and 2", len(entries), len(res.Files))
	}

	res, err = pdfcert.NewJob(blankTemplate(200, 100), &rect).
		OutputDir(t.TempDir(), "").
		Duplicates(output.Suffix).
		Run(context.Background(), names, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(res.Dir, "Alice.pdf"), filepath.Join(res.Dir, "Alice (2).pdf")}
	if !reflect.DeepEqual(res.Files, want) {
		t.Errorf("suffix: Files = %v, want %v", res.Files, want)
	}
}

func TestRunSealed(t *testing.T) {
	pki := testpki.New(t)
	key, cert := pki.IssueLeaf("Certificate Office")
	signer := &seal.Signer{Certificate: cert, Key: key, Chain: pki.Chain()}
	rect := geom.RectWH(10, 10, 80, 30)

	res, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		OutputDir(t.TempDir(), "").
		Seal(signer).
		Run(context.Background(), []string{"Alice"}, nil)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(res.Files) != 2 || res.Files[1] != res.Files[0]+".p7s" {
		t.Fatalf("Files = %v, want document and sidecar", res.Files)
	}

	doc, err := os.ReadFile(res.Files[0])
	if err != nil {
		t.Fatal(err)
	}
	sig, err := os.ReadFile(res.Files[1])
	if err != nil {
		t.Fatal(err)
	}
	v, err := seal.Verify(doc, sig, pki.Pool())
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if !v.Trusted {
		t.Error("signature should chain to the test root")
	}
}

type failingSealer struct{}

func (failingSealer) Seal(context.Context, []byte) ([]byte, error) {
	return nil, errors.New("token not present")
}

func TestRunSealFailure(t *testing.T) {
	rect := geom.RectWH(10, 10, 80, 30)
	sink := &memorySink{}
	res, err := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(sink).
		Seal(failingSealer{}).
		Run(context.Background(), []string{"Alice", "Bob"}, nil)
	if pdfcert.KindOf(err) != pdfcert.SealFailure {
		t.Fatalf("Run() error = %v, want seal failure", err)
	}
	if !reflect.DeepEqual(res.Files, []string{"Alice.pdf"}) {
		t.Errorf("Files = %v, want the unsealed document only", res.Files)
	}
}

func TestExecute(t *testing.T) {
	rect := geom.RectWH(10, 10, 80, 30)
	var got []int
	ok := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(&memorySink{}).
		Execute([]string{"A", "B", "C", "D", "E"}, func(n int) { got = append(got, n) })
	if !ok {
		t.Fatal("Execute() = false, want true")
	}
	if want := []int{1, 2, 3, 4, 5}; !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}

	got = nil
	ok = pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(&memorySink{failAt: 3}).
		Execute([]string{"A", "B", "C", "D"}, func(n int) { got = append(got, n) })
	if ok {
		t.Error("Execute() = true, want false")
	}
	if want := []int{1, 2}; !reflect.DeepEqual(got, want) {
		t.Errorf("progress = %v, want %v", got, want)
	}

	if pdfcert.NewJob(nil, &rect).Execute([]string{"A"}, nil) {
		t.Error("Execute() without template must fail")
	}
}

func TestStart(t *testing.T) {
	rect := geom.RectWH(10, 10, 80, 30)
	names := []string{"Alice", "Bob", "Carol"}
	sink := &memorySink{}

	run := pdfcert.NewJob(blankTemplate(200, 100), &rect).
		Output(sink).
		Start(context.Background(), names)

	var got []pdfcert.Progress
	for p := range run.Progress() {
		got = append(got, p)
	}
	if _, err := run.Wait(); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d progress updates, want %d", len(got), len(names))
	}
	for i, p := range got {
		if p.Completed != i+1 || p.Total != 3 || p.Name != names[i] || p.Path != names[i]+".pdf" {
			t.Errorf("progress %d = %+v", i, p)
		}
	}
}
