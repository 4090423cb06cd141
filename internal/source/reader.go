package source

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
)

// DefaultChunkSize is the number of records returned per Next call.
const DefaultChunkSize = 50000

// Record is one source row seen through its table's column mapping.
type Record struct {
	values []string
	idx    map[string]int
}

// Get returns the normalized value of field, "" when the column is absent.
func (r Record) Get(field string) string {
	i, ok := r.idx[field]
	if !ok || i < 0 || i >= len(r.values) {
		return ""
	}
	return r.values[i]
}

// Resolution records how each column of a table was located.
type Resolution struct {
	Named      []string
	Positional []string
	Missing    []string
}

// TableReader streams one source CSV in chunks. Columns are located by
// header name; a column whose name is not found falls back to its reference
// position, and the fallback is logged. A header row that names none of the
// table's columns is rejected rather than read as data.
type TableReader struct {
	spec      TableSpec
	path      string
	file      *os.File
	csv       *csv.Reader
	idx       map[string]int
	width     int
	rowNum    int64
	chunkSize int
	res       Resolution
}

// OpenTable opens path and resolves spec's columns against its header row.
func OpenTable(path string, spec TableSpec, chunkSize int) (*TableReader, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNoInputData, path)
		}
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	bufReader := bufio.NewReaderSize(file, 256*1024)

	// Skip UTF-8 BOM if present
	if bom, err := bufReader.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = false

	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	r := &TableReader{
		spec:      spec,
		path:      path,
		file:      file,
		csv:       reader,
		chunkSize: chunkSize,
	}
	if err := r.readHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return r, nil
}

func (r *TableReader) readHeader() error {
	header, err := r.csv.Read()
	if err == io.EOF {
		return fmt.Errorf("%w: %s is empty", ErrNoInputData, r.path)
	}
	if err != nil {
		return &MalformedInputError{Table: r.spec.Name, Path: r.path, Row: 1, Reason: err.Error()}
	}
	r.rowNum++

	idx, res, err := resolveColumns(r.spec, header)
	if err != nil {
		var mie *MalformedInputError
		if errors.As(err, &mie) {
			mie.Path = r.path
		}
		return err
	}
	r.idx = idx
	r.width = len(header)
	r.res = res

	logger := log.With().Str("table", r.spec.Name).Str("version", r.spec.Version).Logger()
	for _, f := range res.Positional {
		logger.Warn().Str("field", f).Int("index", idx[f]).Msg("Column resolved by position")
	}
	for _, f := range res.Missing {
		logger.Debug().Str("field", f).Msg("Optional column not present")
	}
	return nil
}

// resolveColumns maps spec fields to column indexes for the given header.
func resolveColumns(spec TableSpec, header []string) (map[string]int, Resolution, error) {
	byName := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := byName[key]; !dup {
			byName[key] = i
		}
	}

	idx := make(map[string]int, len(spec.Columns))
	var res Resolution
	for _, col := range spec.Columns {
		for _, h := range col.Headers {
			if i, ok := byName[strings.ToLower(h)]; ok {
				idx[col.Field] = i
				res.Named = append(res.Named, col.Field)
				break
			}
		}
	}

	if len(res.Named) == 0 {
		return nil, res, &MalformedInputError{
			Table:  spec.Name,
			Row:    1,
			Reason: fmt.Sprintf("header row names none of the %s columns (schema %s)", spec.Name, spec.Version),
		}
	}
	for _, col := range spec.Columns {
		if _, ok := idx[col.Field]; ok {
			continue
		}
		if col.Index >= 0 && col.Index < len(header) {
			idx[col.Field] = col.Index
			res.Positional = append(res.Positional, col.Field)
			continue
		}
		if col.Required {
			return nil, res, &MalformedInputError{
				Table:  spec.Name,
				Field:  col.Field,
				Row:    1,
				Reason: fmt.Sprintf("column not found by name %v or position %d (schema %s, %d columns)", col.Headers, col.Index, spec.Version, len(header)),
			}
		}
		res.Missing = append(res.Missing, col.Field)
	}
	return idx, res, nil
}

// Resolution reports how the columns were located
func (r *TableReader) Resolution() Resolution {
	return r.res
}

// RowNum returns the number of file rows consumed, header included.
func (r *TableReader) RowNum() int64 {
	return r.rowNum
}

// Next returns the next chunk of records, or io.EOF when the file is exhausted.
func (r *TableReader) Next() ([]Record, error) {
	chunk := make([]Record, 0, min(r.chunkSize, 1024))
	for len(chunk) < r.chunkSize {
		row, err := r.csv.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &MalformedInputError{Table: r.spec.Name, Path: r.path, Row: r.rowNum + 1, Reason: err.Error()}
		}
		r.rowNum++
		if err := r.checkWidth(row); err != nil {
			return nil, err
		}
		chunk = append(chunk, Record{values: normalizeRow(row), idx: r.idx})
	}
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

func (r *TableReader) checkWidth(row []string) error {
	for _, col := range r.spec.Columns {
		if !col.Required {
			continue
		}
		if i := r.idx[col.Field]; i >= len(row) {
			return &MalformedInputError{
				Table:  r.spec.Name,
				Path:   r.path,
				Field:  col.Field,
				Row:    r.rowNum,
				Reason: fmt.Sprintf("row has %d columns, header has %d", len(row), r.width),
			}
		}
	}
	return nil
}

// Close closes the underlying file
func (r *TableReader) Close() error {
	return r.file.Close()
}

// normalizeRow trims values, repairs invalid UTF-8 and blanks NaN/NULL markers.
func normalizeRow(row []string) []string {
	out := make([]string, len(row))
	for i, v := range row {
		v = strings.ToValidUTF8(strings.TrimSpace(v), "\uFFFD")
		if strings.EqualFold(v, "nan") || strings.EqualFold(v, "null") {
			v = ""
		}
		out[i] = v
	}
	return out
}
