package temporal

import (
	"errors"
	"testing"
	"time"
)

func TestParseEncodings(t *testing.T) {
	want := time.Date(2020, time.March, 4, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"compact month first", "03042020", want},
		{"compact year first", "20200304", want},
		{"iso date", "2020-03-04", want},
		{"iso timestamp", "2020-03-04T00:00:00Z", want},
		{"iso with clock", "2020-03-04T13:30:00Z", want.Add(13*time.Hour + 30*time.Minute)},
		{"rfc3339 offset keeps wall clock", "2020-03-04T08:00:00-05:00", want.Add(8 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.input, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("Parse(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "not a date", "99999999", "2020-13-45"} {
		if _, err := Parse(in); !errors.Is(err, ErrUnparseable) {
			t.Errorf("Parse(%q) error = %v, want ErrUnparseable", in, err)
		}
	}
}

func TestAgeDaysBoundary(t *testing.T) {
	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		days int
		want int
	}{
		{"same day clamps to one", 0, 1},
		{"negative clamps to one", -3, 1},
		{"one day", 1, 1},
		{"365 days", 365, 365},
		{"366 days", 366, 0},
		{"two years", 800, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Between(start, start.AddDate(0, 0, tt.days), AgeDays)
			if !got.Valid() || got.N != tt.want {
				t.Errorf("AgeDays(%d) = %+v, want %d", tt.days, got, tt.want)
			}
		})
	}
}

func TestStayDays(t *testing.T) {
	tests := []struct {
		name   string
		d1, d2 string
		mode   Mode
		want   string
		state  State
	}{
		{"raw stay", "01012020", "20200105", StayDays, "4", Defined},
		{"zero stay", "2020-01-01", "2020-01-01", StayDays, "0", Defined},
		{"adjusted zero stay", "2020-01-01", "2020-01-01", AdjustedStayDays, "1", Defined},
		{"adjusted long stay", "2020-01-01", "2020-01-11", AdjustedStayDays, "10", Defined},
		{"procedure before admission", "01102020", "20200108", StayDays, "-2", Defined},
		{"missing date propagates", "", "20200108", StayDays, "", Undefined},
		{"garbage date is sentinel", "bogus", "20200108", StayDays, "", Unparseable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duration(tt.d1, tt.d2, tt.mode)
			if got.State != tt.state {
				t.Fatalf("state = %v, want %v", got.State, tt.state)
			}
			if got.String() != tt.want {
				t.Errorf("value = %q, want %q", got.String(), tt.want)
			}
			if got.Null().Valid != (tt.state == Defined) {
				t.Errorf("Null().Valid = %v", got.Null().Valid)
			}
		})
	}
}

func TestFloorDaysWithClock(t *testing.T) {
	t1 := time.Date(2020, 1, 1, 18, 0, 0, 0, time.UTC)
	t2 := time.Date(2020, 1, 2, 6, 0, 0, 0, time.UTC)
	if d := Days(t1, t2); d != 0 {
		t.Errorf("Days = %d, want 0", d)
	}
	if d := Days(t2, t1); d != -1 {
		t.Errorf("Days reversed = %d, want -1", d)
	}
}

func TestAgeYearsCalendarAware(t *testing.T) {
	tests := []struct {
		name   string
		d1, d2 string
		want   int
	}{
		{"day before birthday", "2000-06-15", "2010-06-14", 9},
		{"on birthday", "2000-06-15", "2010-06-15", 10},
		{"leap day birth before anniversary", "2020-02-29", "2021-02-28", 0},
		{"leap day birth after anniversary", "2020-02-29", "2021-03-01", 1},
		{"mixed encodings", "06152000", "20100616", 10},
		{"reversed", "2010-06-15", "2000-06-15", -10},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Duration(tt.d1, tt.d2, AgeYears)
			if !got.Valid() || got.N != tt.want {
				t.Errorf("AgeYears = %+v, want %d", got, tt.want)
			}
		})
	}
}

func TestAgeRangeBoundaries(t *testing.T) {
	birth := time.Date(2000, time.May, 10, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		age  int
		mode Mode
		want string
	}{
		{0, AgeRange5, "01"},
		{4, AgeRange5, "01"},
		{5, AgeRange5, "02"},
		{9, AgeRange5, "02"},
		{10, AgeRange5, "03"},
		{0, AgeRange10, "01"},
		{9, AgeRange10, "01"},
		{10, AgeRange10, "02"},
		{85, AgeRange10, "09"},
		{100, AgeRange5, "21"},
	}
	for _, tt := range tests {
		t.Run(tt.mode.String(), func(t *testing.T) {
			got := Between(birth, birth.AddDate(tt.age, 0, 0), tt.mode)
			if got.String() != tt.want {
				t.Errorf("%s at age %d = %q, want %q", tt.mode, tt.age, got.String(), tt.want)
			}
		})
	}
}

func TestParseMode(t *testing.T) {
	for m, name := range modeNames {
		got, err := ParseMode(name)
		if err != nil || got != m {
			t.Errorf("ParseMode(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseMode("weeks"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
