package codemap

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// LoadOverrides merges "<table name>.csv" files found in dir into the set.
// Each file holds source,target pairs; a first row of "source,target" is
// treated as a header. Missing files are skipped. Returns the number of
// entries merged.
func (s *Set) LoadOverrides(dir string) (int, error) {
	if dir == "" {
		return 0, nil
	}
	total := 0
	for name, table := range s.Tables() {
		path := filepath.Join(dir, name+".csv")
		entries, err := readPairs(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return total, fmt.Errorf("failed to load mapping override %s: %w", path, err)
		}
		table.Merge(entries)
		total += len(entries)
		log.Info().Str("table", name).Int("entries", len(entries)).Msg("Loaded mapping override")
	}
	return total, nil
}

func readPairs(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	entries := make(map[string]string)
	line := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		line++
		if len(rec) < 2 {
			return nil, fmt.Errorf("line %d: expected 2 columns, got %d", line, len(rec))
		}
		if line == 1 && strings.EqualFold(rec[0], "source") && strings.EqualFold(rec[1], "target") {
			continue
		}
		entries[rec[0]] = rec[1]
	}
	return entries, nil
}
