// Package output manages the directories and files a certificate run
// writes to.
package output

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// DefaultPrefix names run directories when no prefix is configured.
const DefaultPrefix = "Certificates"

// maxRuns bounds the probe in NextRunDir.
const maxRuns = 100000

// NextRunDir creates and returns the first <parent>/<prefix>_<n> directory,
// n = 1, 2, ..., that does not exist yet. Existing directories are never
// reused, even when empty.
func NextRunDir(parent, prefix string) (string, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if strings.ContainsAny(prefix, `/\`) {
		return "", fmt.Errorf("invalid run directory prefix %q", prefix)
	}
	if parent == "" {
		parent = "."
	}
	info, err := os.Stat(parent)
	if err != nil {
		return "", fmt.Errorf("failed to access output parent: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("output parent %s is not a directory", parent)
	}

	for n := 1; n <= maxRuns; n++ {
		dir := filepath.Join(parent, prefix+"_"+strconv.Itoa(n))
		err := os.Mkdir(dir, 0o755)
		if err == nil {
			return dir, nil
		}
		if errors.Is(err, os.ErrExist) {
			continue
		}
		return "", fmt.Errorf("failed to create run directory: %w", err)
	}
	return "", fmt.Errorf("no free run directory for prefix %s in %s", prefix, parent)
}

// DuplicatePolicy decides what happens when two names map to the same file.
type DuplicatePolicy int

const (
	// Overwrite replaces the earlier file; the last write wins.
	Overwrite DuplicatePolicy = iota
	// Suffix keeps every file by appending " (2)", " (3)", ... to later ones.
	Suffix
)

func (p DuplicatePolicy) String() string {
	switch p {
	case Overwrite:
		return "overwrite"
	case Suffix:
		return "suffix"
	default:
		return "DuplicatePolicy(" + strconv.Itoa(int(p)) + ")"
	}
}

// ParseDuplicatePolicy maps "overwrite" and "suffix" to a policy. The empty
// string selects Overwrite.
func ParseDuplicatePolicy(s string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "overwrite":
		return Overwrite, nil
	case "suffix":
		return Suffix, nil
	}
	return Overwrite, fmt.Errorf("unknown duplicate policy %q", s)
}

// Sink receives the documents of a run.
type Sink interface {
	// Create opens the artifact for name. ext includes the leading dot.
	Create(name, ext string) (io.WriteCloser, string, error)
}

// Dir writes documents as files inside one directory.
type Dir struct {
	Path       string
	Duplicates DuplicatePolicy

	mu   sync.Mutex
	seen map[string]int
}

// NewDir returns a sink writing into path, which must already exist.
func NewDir(path string, policy DuplicatePolicy) *Dir {
	return &Dir{Path: path, Duplicates: policy}
}

// Create opens <name><ext> for writing. The returned file is synced to disk
// when it is closed.
func (d *Dir) Create(name, ext string) (io.WriteCloser, string, error) {
	path := filepath.Join(d.Path, d.fileName(name, ext))
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, "", err
	}
	return &syncFile{File: f}, path, nil
}

func (d *Dir) fileName(name, ext string) string {
	base := FileName(name)
	if d.Duplicates != Suffix {
		return base + ext
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = make(map[string]int)
	}
	key := strings.ToLower(base + ext)
	d.seen[key]++
	if n := d.seen[key]; n > 1 {
		return fmt.Sprintf("%s (%d)%s", base, n, ext)
	}
	return base + ext
}

// FileName turns a recipient name into a file name. Path separators, NUL
// and other control characters become underscores; "." and ".." are
// escaped so a name can never leave the run directory.
func FileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == 0:
			return '_'
		case r < 0x20 || r == 0x7f:
			return '_'
		}
		return r
	}, name)
	if mapped == "." || mapped == ".." || mapped == "" {
		return strings.Repeat("_", len(mapped)+1)
	}
	return mapped
}

type syncFile struct {
	*os.File
}

func (f *syncFile) Close() error {
	syncErr := f.File.Sync()
	closeErr := f.File.Close()
	if syncErr != nil {
		return syncErr
	}
	return closeErr
}
