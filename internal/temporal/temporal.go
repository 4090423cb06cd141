// Package temporal computes ages and stay lengths between two dates under
// the HCAI reporting conventions.
package temporal

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"gopkg.in/guregu/null.v3"
)

// Mode selects the reporting convention used by Duration.
type Mode int

const (
	AgeDays Mode = iota
	StayDays
	AdjustedStayDays
	AgeYears
	AgeRange5
	AgeRange10
)

var modeNames = map[Mode]string{
	AgeDays:          "agedays",
	StayDays:         "staydays",
	AdjustedStayDays: "adjstaydays",
	AgeYears:         "years",
	AgeRange5:        "range5",
	AgeRange10:       "range10",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return "mode(" + strconv.Itoa(int(m)) + ")"
}

// ParseMode resolves a mode from its textual name
func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(name, s) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown duration mode %q", s)
}

// ErrUnparseable is returned by Parse when no known encoding matches.
var ErrUnparseable = errors.New("unparseable date")

// State tells whether a Value carries a number.
type State int

const (
	Defined State = iota
	// Undefined means an input date was empty.
	Undefined
	// Unparseable means an input date was present but could not be read.
	Unparseable
)

// Value is the result of Duration. Band modes carry Text, other modes carry N.
type Value struct {
	N     int
	Text  string
	State State
}

// Valid reports whether the value carries a result
func (v Value) Valid() bool { return v.State == Defined }

// String renders the value; non-defined values render empty.
func (v Value) String() string {
	if !v.Valid() {
		return ""
	}
	if v.Text != "" {
		return v.Text
	}
	return strconv.Itoa(v.N)
}

// Null converts the value for storage in a record row.
func (v Value) Null() null.String {
	return null.NewString(v.String(), v.Valid())
}

var isoLayouts = []string{
	"2006-01-02T15:04:05Z",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Parse reads a date in the compact numeric encoding (MMDDYYYY first, then
// YYYYMMDD) or ISO-8601, falling back to a strict permissive parse.
// The returned time keeps the wall clock and drops the zone.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrUnparseable
	}
	if len(s) == 8 && isDigits(s) {
		for _, layout := range []string{"01022006", "20060102"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return wall(t), nil
		}
	}
	t, err := dateparse.ParseStrict(s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	return wall(t), nil
}

func wall(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Duration computes the measure selected by mode between date1 and date2.
// Either date may use any encoding Parse accepts.
func Duration(date1, date2 string, mode Mode) Value {
	if strings.TrimSpace(date1) == "" || strings.TrimSpace(date2) == "" {
		return Value{State: Undefined}
	}
	t1, err := Parse(date1)
	if err != nil {
		return Value{State: Unparseable}
	}
	t2, err := Parse(date2)
	if err != nil {
		return Value{State: Unparseable}
	}
	return Between(t1, t2, mode)
}

// Between is Duration for already parsed times.
func Between(t1, t2 time.Time, mode Mode) Value {
	switch mode {
	case AgeDays:
		d := Days(t1, t2)
		if d >= 366 {
			return Value{N: 0}
		}
		return Value{N: max(d, 1)}
	case StayDays:
		return Value{N: Days(t1, t2)}
	case AdjustedStayDays:
		return Value{N: max(Days(t1, t2), 1)}
	case AgeYears:
		return Value{N: Years(t1, t2)}
	case AgeRange5:
		return band(Years(t1, t2), 5)
	case AgeRange10:
		return band(Years(t1, t2), 10)
	}
	return Value{State: Undefined}
}

const day = 24 * time.Hour

// Days is the floored whole-day difference t2 - t1.
func Days(t1, t2 time.Time) int {
	d := t2.Sub(t1)
	n := int(d / day)
	if d < 0 && d%day != 0 {
		n--
	}
	return n
}

// Years is the calendar whole-year difference t2 - t1, honoring
// month, day and clock rollover.
func Years(t1, t2 time.Time) int {
	if t2.Before(t1) {
		return -Years(t2, t1)
	}
	y := t2.Year() - t1.Year()
	if anniversaryAfter(t1, t2) {
		y--
	}
	return y
}

// anniversaryAfter reports whether t1's month/day/clock falls later in the
// year than t2's.
func anniversaryAfter(t1, t2 time.Time) bool {
	if t1.Month() != t2.Month() {
		return t1.Month() > t2.Month()
	}
	if t1.Day() != t2.Day() {
		return t1.Day() > t2.Day()
	}
	c1 := t1.Sub(time.Date(t1.Year(), t1.Month(), t1.Day(), 0, 0, 0, 0, t1.Location()))
	c2 := t2.Sub(time.Date(t2.Year(), t2.Month(), t2.Day(), 0, 0, 0, 0, t2.Location()))
	return c1 > c2
}

// band maps whole years to a 1-based band of the given width:
// ceil((years+1)/width), which for whole years is years/width + 1.
func band(years, width int) Value {
	if years < 0 {
		return Value{State: Undefined}
	}
	b := years/width + 1
	return Value{N: b, Text: fmt.Sprintf("%02d", b)}
}
