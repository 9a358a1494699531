// Package names reads recipient name lists.
//
// A name list is a text file with one name per line. Files may be UTF-8,
// with or without a byte order mark, or UTF-16 with a byte order mark.
// Blank lines are dropped, surrounding whitespace is trimmed and the
// remaining names keep their file order.
package names

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxLineLength is the longest line Parse accepts.
const MaxLineLength = 64 * 1024

// Parse reads names from r.
func Parse(r io.Reader) ([]string, error) {
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	scanner := bufio.NewScanner(transform.NewReader(r, decoder))
	scanner.Buffer(make([]byte, 0, 4096), MaxLineLength)

	var names []string
	for scanner.Scan() {
		name := strings.TrimSpace(scanner.Text())
		if name == "" {
			continue
		}
		names = append(names, norm.NFC.String(name))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read names: %w", err)
	}
	return names, nil
}

// ReadFile reads names from the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open name list: %w", err)
	}
	defer func() { _ = f.Close() }()
	return Parse(f)
}
