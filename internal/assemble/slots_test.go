package assemble

import "testing"

func TestSpread(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		items     []string
		principal string
		others    map[int]string
		dropped   int
	}{
		{"empty", 25, nil, "", map[int]string{}, 0},
		{"principal only", 25, []string{"P1"}, "P1", map[int]string{}, 0},
		{"first other slot", 25, []string{"P1", "P2"}, "P1", map[int]string{1: "P2"}, 0},
		{"three", 25, []string{"P1", "P2", "P3"}, "P1", map[int]string{1: "P2", 2: "P3"}, 0},
		{"overflow", 2, []string{"P1", "P2", "P3", "P4"}, "P1", map[int]string{1: "P2"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var principal string
			others := map[int]string{}
			dropped := Spread(Slots{Size: tt.size, Base: 1}, tt.items,
				func(s string) { principal = s },
				func(slot int, s string) { others[slot] = s })

			if principal != tt.principal {
				t.Errorf("principal = %q, want %q", principal, tt.principal)
			}
			if dropped != tt.dropped {
				t.Errorf("dropped = %d, want %d", dropped, tt.dropped)
			}
			if len(others) != len(tt.others) {
				t.Fatalf("others = %v, want %v", others, tt.others)
			}
			for k, v := range tt.others {
				if others[k] != v {
					t.Errorf("slot %d = %q, want %q", k, others[k], v)
				}
			}
		})
	}
}

func TestSlotNumbering(t *testing.T) {
	s := Slots{Size: 25, Base: 1}
	if s.Slot(1) != 1 || s.Slot(24) != 24 {
		t.Errorf("Slot(1)=%d Slot(24)=%d", s.Slot(1), s.Slot(24))
	}
	if s.Others() != 24 {
		t.Errorf("Others = %d, want 24", s.Others())
	}
}

func TestParseYearRange(t *testing.T) {
	tests := []struct {
		in      string
		want    YearRange
		wantErr bool
	}{
		{"2018-2020", YearRange{2018, 2020}, false},
		{" 2019 - 2019 ", YearRange{2019, 2019}, false},
		{"2021", YearRange{2021, 2021}, false},
		{"2020-2018", YearRange{}, true},
		{"abc-2020", YearRange{}, true},
		{"", YearRange{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseYearRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}

	r := YearRange{2018, 2020}
	if years := r.Years(); len(years) != 3 || years[0] != 2018 || years[2] != 2020 {
		t.Errorf("Years = %v", years)
	}
	if !r.Contains(2018) || !r.Contains(2020) || r.Contains(2021) {
		t.Error("Contains is not inclusive")
	}
}
