// Package csv reads delimited text into a neoframe.Frame. The first record
// is the header. Cells matching a null token become null; with type
// inference enabled the remaining cells are parsed as integers, floats or
// booleans where they look like one.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-neoframe"
)

const utf8BOM = "\uFEFF"

// DefaultNullTokens are the cell values read as null when Options.NullTokens
// is nil.
var DefaultNullTokens = []string{"", "NA", "NaN", "null", "NULL"}

// Options configures the reader. The zero value reads comma-separated text
// with DefaultNullTokens and no type inference.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// NullTokens lists cell values treated as null. Nil selects
	// DefaultNullTokens; an empty non-nil slice disables null detection.
	NullTokens []string

	// InferTypes parses integer, float and boolean cells. Numbers with a
	// leading zero (e.g. zip codes) stay strings.
	InferTypes bool

	// TrimSpace trims leading and trailing spaces from every cell.
	TrimSpace bool
}

// Read parses all of r into a Frame.
func Read(r io.Reader, opt Options) (*neoframe.Frame, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.ReuseRecord = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.TrimSpace(h)
	}
	names[0] = strings.TrimPrefix(names[0], utf8BOM)

	nulls := opt.NullTokens
	if nulls == nil {
		nulls = DefaultNullTokens
	}
	isNull := make(map[string]bool, len(nulls))
	for _, t := range nulls {
		isNull[t] = true
	}

	seen := make(map[string]bool, len(names))
	for _, n := range names {
		if seen[n] {
			return nil, fmt.Errorf("csv: duplicate header %q", n)
		}
		seen[n] = true
	}
	frame := neoframe.NewFrame(names...)

	row := make([]neoframe.Value, len(names))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		for i, cell := range rec {
			if opt.TrimSpace {
				cell = strings.TrimSpace(cell)
			}
			row[i] = parseCell(cell, isNull, opt.InferTypes)
		}
		if err := frame.AppendRow(row...); err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
	}
	return frame, nil
}

// ReadFile opens path and parses it with Read.
func ReadFile(path string, opt Options) (*neoframe.Frame, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Read(f, opt)
}

func parseCell(cell string, isNull map[string]bool, infer bool) neoframe.Value {
	if isNull[cell] {
		return neoframe.Null()
	}
	if !infer {
		return neoframe.String(cell)
	}
	if strings.ContainsAny(cell, "0123456789") && !hasLeadingZero(cell) {
		if i, err := strconv.ParseInt(cell, 10, 64); err == nil {
			return neoframe.Int(i)
		}
		if f, err := strconv.ParseFloat(cell, 64); err == nil {
			return neoframe.Float(f)
		}
	}
	switch strings.ToLower(cell) {
	case "true":
		return neoframe.Bool(true)
	case "false":
		return neoframe.Bool(false)
	}
	return neoframe.String(cell)
}

// hasLeadingZero reports identifiers like "007" or "-01" that must keep
// their textual form. "0" and "0.5" are numbers.
func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}
