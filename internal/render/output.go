package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// OutputError reports a failure writing a result file.
type OutputError struct {
	Path string
	Op   string
	Err  error
}

func (e *OutputError) Error() string {
	return fmt.Sprintf("failed to %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}

const timestampLayout = "01-02-2006_1504"

// Namer builds output paths under Dir.
type Namer struct {
	Dir string
	Now func() time.Time
}

// Path returns {Dir}/formatted_data/{family}/{format}_{family}_{timestamp}{ext}.
func (n Namer) Path(family string, format Format) string {
	return n.File(family, string(format), format.Ext())
}

// File returns {Dir}/formatted_data/{family}/{prefix}_{family}_{timestamp}{ext}.
func (n Namer) File(family, prefix, ext string) string {
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	name := fmt.Sprintf("%s_%s_%s%s", prefix, family, now().Format(timestampLayout), ext)
	return filepath.Join(n.Dir, "formatted_data", family, name)
}

// YearPath returns the per-year file for base: a directory named after base
// without its extension, holding {basename}_{year}{ext}.
func YearPath(base string, year int) string {
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return filepath.Join(stem, filepath.Base(stem)+"_"+strconv.Itoa(year)+ext)
}

// WriteFile writes path atomically: content goes to a temp file in the same
// directory which is renamed over path only after write succeeds.
func WriteFile(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return &OutputError{Path: dir, Op: "create directory", Err: err}
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return &OutputError{Path: path, Op: "create", Err: err}
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err := write(tmp); err != nil {
		return &OutputError{Path: path, Op: "write", Err: err}
	}
	if err := tmp.Sync(); err != nil {
		return &OutputError{Path: path, Op: "sync", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &OutputError{Path: path, Op: "close", Err: err}
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return &OutputError{Path: path, Op: "chmod", Err: err}
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return &OutputError{Path: path, Op: "rename", Err: err}
	}
	return nil
}
