// Package render writes assembled rows in an HCAI layout, as fixed-width
// text or as CSV.
package render

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"stealthcompany.com/dischargeformat/internal/layout"
	"stealthcompany.com/dischargeformat/internal/record"
)

// Format is an output encoding.
type Format string

const (
	FixedWidth Format = "fw"
	Delimited  Format = "csv"
)

// Ext returns the file extension for the format.
func (f Format) Ext() string {
	if f == Delimited {
		return ".csv"
	}
	return ".txt"
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fw", "fixed", "fixedwidth", "sas", "txt":
		return FixedWidth, nil
	case "csv":
		return Delimited, nil
	}
	return "", fmt.Errorf("unknown output format %q", s)
}

// Options selects the encoding and whether excluded fields are emitted.
type Options struct {
	Format  Format
	Verbose bool
}

// Render writes rows to w. Verbose output uses every layout field,
// otherwise the layout's final field set.
func Render(w io.Writer, rows []*record.Row, lay *layout.Layout, opts Options) error {
	fields := lay.Fields(opts.Verbose)
	switch opts.Format {
	case FixedWidth:
		return renderFixed(w, rows, fields)
	case Delimited:
		return renderCSV(w, rows, fields)
	}
	return fmt.Errorf("unknown output format %q", opts.Format)
}

func renderFixed(w io.Writer, rows []*record.Row, fields []layout.Field) error {
	bw := bufio.NewWriter(w)
	var line strings.Builder
	for _, r := range rows {
		line.Reset()
		for _, f := range fields {
			line.WriteString(Pad(r.String(f.Key), f.Width, f.Justify))
		}
		line.WriteByte('\n')
		if _, err := bw.WriteString(line.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func renderCSV(w io.Writer, rows []*record.Row, fields []layout.Field) error {
	cw := csv.NewWriter(w)
	header := make([]string, len(fields))
	for i, f := range fields {
		header[i] = f.Name
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	rec := make([]string, len(fields))
	for _, r := range rows {
		for i, f := range fields {
			rec[i] = r.String(f.Key)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Pad fits s to exactly width characters, truncating on the right or
// padding with spaces on the side opposite to justify. Control characters
// become spaces so a value can never break the record onto a second line.
func Pad(s string, width int, justify layout.Justify) string {
	if width <= 0 {
		return ""
	}
	s = strings.Map(blankControl, s)
	n := utf8.RuneCountInString(s)
	if n > width {
		runes := []rune(s)
		return string(runes[:width])
	}
	fill := strings.Repeat(" ", width-n)
	if justify == layout.Right {
		return fill + s
	}
	return s + fill
}

func blankControl(r rune) rune {
	if unicode.IsControl(r) {
		return ' '
	}
	return r
}
