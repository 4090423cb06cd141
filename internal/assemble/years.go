package assemble

import (
	"fmt"
	"strconv"
	"strings"
)

// YearRange is an inclusive range of discharge years.
type YearRange struct {
	From int
	To   int
}

// ParseYearRange parses "YYYY-YYYY". A single year is a one-year range.
func ParseYearRange(s string) (YearRange, error) {
	s = strings.TrimSpace(s)
	from, to, found := strings.Cut(s, "-")
	if !found {
		to = from
	}
	f, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid year range %q: %w", s, err)
	}
	t, err := strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return YearRange{}, fmt.Errorf("invalid year range %q: %w", s, err)
	}
	if f > t {
		return YearRange{}, fmt.Errorf("invalid year range %q: start after end", s)
	}
	return YearRange{From: f, To: t}, nil
}

func (r YearRange) Contains(year int) bool {
	return year >= r.From && year <= r.To
}

// Years lists every year of the range in order.
func (r YearRange) Years() []int {
	out := make([]int, 0, r.To-r.From+1)
	for y := r.From; y <= r.To; y++ {
		out = append(out, y)
	}
	return out
}

func (r YearRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}
