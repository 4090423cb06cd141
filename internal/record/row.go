package record

import (
	"strings"

	"gopkg.in/guregu/null.v3"
)

// ListSeparator joins list-valued fields (raw procedure and diagnosis lists)
// into their single text column.
const ListSeparator = ";"

// Row is one assembled discharge record, keyed by layout field key.
// A key that was never set is absent; a key set to null is present but blank.
type Row struct {
	PatientID   string
	EncounterID string

	values map[string]null.String
	lists  map[string][]string
}

// New creates an empty row for the given patient
func New(patientID string) *Row {
	return &Row{
		PatientID: patientID,
		values:    make(map[string]null.String),
		lists:     make(map[string][]string),
	}
}

// Set stores a non-null value
func (r *Row) Set(key, value string) {
	r.values[key] = null.StringFrom(value)
}

// SetValue stores v as-is, null included
func (r *Row) SetValue(key string, v null.String) {
	r.values[key] = v
}

// SetNull marks key as present with no value
func (r *Row) SetNull(key string) {
	r.values[key] = null.String{}
}

// SetList stores an ordered list and its joined text form under the same key.
func (r *Row) SetList(key string, items []string) {
	cp := make([]string, len(items))
	copy(cp, items)
	r.lists[key] = cp
	r.values[key] = null.StringFrom(strings.Join(cp, ListSeparator))
}

// Get returns the value and whether the key is present at all.
func (r *Row) Get(key string) (null.String, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Value returns the value for key, null when absent.
func (r *Row) Value(key string) null.String {
	return r.values[key]
}

// String returns the value for key, "" when absent or null.
func (r *Row) String(key string) string {
	return r.values[key].ValueOrZero()
}

// Has reports whether key is present (null or not).
func (r *Row) Has(key string) bool {
	_, ok := r.values[key]
	return ok
}

// List returns the ordered list stored under key.
func (r *Row) List(key string) []string {
	return r.lists[key]
}

// Len returns the number of present keys
func (r *Row) Len() int {
	return len(r.values)
}

// Clone returns a deep copy of the row.
func (r *Row) Clone() *Row {
	c := New(r.PatientID)
	c.EncounterID = r.EncounterID
	for k, v := range r.values {
		c.values[k] = v
	}
	for k, l := range r.lists {
		cp := make([]string, len(l))
		copy(cp, l)
		c.lists[k] = cp
	}
	return c
}
