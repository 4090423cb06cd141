package layout

import (
	"embed"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed layouts/*.yaml
var builtin embed.FS

// Justify selects which side a fixed-width value is padded on.
type Justify string

const (
	Left  Justify = "left"
	Right Justify = "right"
)

// Field is one entry of an output schema.
type Field struct {
	Key      string
	Name     string
	Width    int
	Justify  Justify
	Required bool
}

// Layout is an ordered field schema plus the set of fields dropped from
// non-verbose output.
type Layout struct {
	Family     string
	Title      string
	DateFormat string

	fields  []Field
	exclude map[string]bool
	byKey   map[string]int
}

var ErrUnknownFamily = errors.New("unknown layout family")

// Go reference layouts for the two HCAI date encodings.
var dateLayouts = map[string]string{
	"mmddyyyy": "01022006",
	"yyyymmdd": "20060102",
}

type document struct {
	Family     string   `yaml:"family"`
	Title      string   `yaml:"title"`
	DateFormat string   `yaml:"date_format"`
	Exclude    []string `yaml:"exclude"`
	Fields     []entry  `yaml:"fields"`
}

type entry struct {
	Key      string  `yaml:"key"`
	Name     string  `yaml:"name"`
	Width    int     `yaml:"width"`
	Justify  Justify `yaml:"justify"`
	Required *bool   `yaml:"required"`
	Repeat   *struct {
		From int `yaml:"from"`
		To   int `yaml:"to"`
	} `yaml:"repeat"`
	Fields []entry `yaml:"fields"`
}

// Parse decodes a YAML layout document and expands its repeat blocks.
func Parse(data []byte) (*Layout, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode layout: %w", err)
	}
	if doc.Family == "" {
		return nil, errors.New("layout has no family")
	}
	if _, ok := dateLayouts[doc.DateFormat]; !ok {
		return nil, fmt.Errorf("layout %s: unsupported date_format %q", doc.Family, doc.DateFormat)
	}

	l := &Layout{
		Family:     doc.Family,
		Title:      doc.Title,
		DateFormat: doc.DateFormat,
		exclude:    make(map[string]bool, len(doc.Exclude)),
		byKey:      make(map[string]int),
	}
	for _, k := range doc.Exclude {
		l.exclude[k] = true
	}
	if err := l.expand(doc.Fields, ""); err != nil {
		return nil, fmt.Errorf("layout %s: %w", doc.Family, err)
	}
	if len(l.fields) == 0 {
		return nil, fmt.Errorf("layout %s has no fields", doc.Family)
	}
	return l, nil
}

func (l *Layout) expand(entries []entry, n string) error {
	for _, e := range entries {
		if e.Repeat != nil {
			if e.Repeat.From > e.Repeat.To {
				return fmt.Errorf("repeat block %d..%d is empty", e.Repeat.From, e.Repeat.To)
			}
			for i := e.Repeat.From; i <= e.Repeat.To; i++ {
				if err := l.expand(e.Fields, strconv.Itoa(i)); err != nil {
					return err
				}
			}
			continue
		}

		f := Field{
			Key:      strings.ReplaceAll(e.Key, "{n}", n),
			Name:     strings.ReplaceAll(e.Name, "{n}", n),
			Width:    e.Width,
			Justify:  e.Justify,
			Required: e.Required == nil || *e.Required,
		}
		if f.Justify == "" {
			f.Justify = Left
		}
		switch {
		case f.Key == "":
			return fmt.Errorf("field %q has no key", f.Name)
		case f.Width < 0:
			return fmt.Errorf("field %s has negative width", f.Key)
		case f.Justify != Left && f.Justify != Right:
			return fmt.Errorf("field %s: invalid justify %q", f.Key, f.Justify)
		}
		if _, dup := l.byKey[f.Key]; dup {
			return fmt.Errorf("duplicate field key %s", f.Key)
		}
		l.byKey[f.Key] = len(l.fields)
		l.fields = append(l.fields, f)
	}
	return nil
}

// All returns every field in declared order (the verbose schema).
func (l *Layout) All() []Field {
	out := make([]Field, len(l.fields))
	copy(out, l.fields)
	return out
}

// Final returns the declared fields minus the exclude set.
func (l *Layout) Final() []Field {
	out := make([]Field, 0, len(l.fields))
	for _, f := range l.fields {
		if !l.exclude[f.Key] {
			out = append(out, f)
		}
	}
	return out
}

// Fields returns All when verbose, Final otherwise.
func (l *Layout) Fields(verbose bool) []Field {
	if verbose {
		return l.All()
	}
	return l.Final()
}

// Field looks up a field by key.
func (l *Layout) Field(key string) (Field, bool) {
	i, ok := l.byKey[key]
	if !ok {
		return Field{}, false
	}
	return l.fields[i], true
}

func (l *Layout) Excluded(key string) bool {
	return l.exclude[key]
}

// RecordWidth is the fixed-width line length, newline excluded.
func (l *Layout) RecordWidth(verbose bool) int {
	w := 0
	for _, f := range l.Fields(verbose) {
		w += f.Width
	}
	return w
}

// DateLayout returns the Go time layout for the family's date encoding.
func (l *Layout) DateLayout() string {
	return dateLayouts[l.DateFormat]
}

var files = map[string]string{
	"HCAIPDD":       "layouts/hcai_pdd.yaml",
	"HCAIInpatient": "layouts/hcai_inpatient.yaml",
}

// Families lists the built-in layout families in sorted order.
func Families() []string {
	out := make([]string, 0, len(files))
	for k := range files {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Load returns the built-in layout for family.
func Load(family string) (*Layout, error) {
	name, ok := files[family]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFamily, family)
	}
	data, err := builtin.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout %s: %w", name, err)
	}
	return Parse(data)
}
