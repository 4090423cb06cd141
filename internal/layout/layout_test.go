package layout

import (
	"errors"
	"strings"
	"testing"
)

func TestLoadBuiltin(t *testing.T) {
	tests := []struct {
		family      string
		dateLayout  string
		all         int
		final       int
		allWidth    int
		finalWidth  int
		diagWidth   int
		chargeRight bool
	}{
		{"HCAIPDD", "01022006", 225, 221, 2818, 1718, 8, true},
		{"HCAIInpatient", "20060102", 159, 154, 2531, 1431, 7, true},
	}

	for _, tt := range tests {
		t.Run(tt.family, func(t *testing.T) {
			l, err := Load(tt.family)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if l.DateLayout() != tt.dateLayout {
				t.Errorf("DateLayout = %q, want %q", l.DateLayout(), tt.dateLayout)
			}
			if got := len(l.All()); got != tt.all {
				t.Errorf("len(All) = %d, want %d", got, tt.all)
			}
			if got := len(l.Final()); got != tt.final {
				t.Errorf("len(Final) = %d, want %d", got, tt.final)
			}
			if got := l.RecordWidth(true); got != tt.allWidth {
				t.Errorf("verbose width = %d, want %d", got, tt.allWidth)
			}
			if got := l.RecordWidth(false); got != tt.finalWidth {
				t.Errorf("final width = %d, want %d", got, tt.finalWidth)
			}
			f, ok := l.Field("odiag24")
			if !ok || f.Width != tt.diagWidth || f.Required {
				t.Errorf("odiag24 = %+v, %v", f, ok)
			}
			if _, ok := l.Field("odiag25"); ok {
				t.Error("odiag25 should not exist")
			}
			charge, _ := l.Field("charge")
			if (charge.Justify == Right) != tt.chargeRight {
				t.Errorf("charge justify = %s", charge.Justify)
			}
			for _, f := range l.Final() {
				if l.Excluded(f.Key) {
					t.Errorf("Final contains excluded field %s", f.Key)
				}
			}
		})
	}
}

func TestOrderFollowsDeclaration(t *testing.T) {
	l, err := Load("HCAIPDD")
	if err != nil {
		t.Fatal(err)
	}
	all := l.All()
	if all[0].Key != "typcare" || all[len(all)-1].Key != "notinuse2" {
		t.Errorf("unexpected first/last fields %s/%s", all[0].Key, all[len(all)-1].Key)
	}
	idx := map[string]int{}
	for i, f := range all {
		idx[f.Key] = i
	}
	if !(idx["proc_p"] < idx["oproc1"] && idx["oproc1"] < idx["procdt1"] && idx["procdy1"] < idx["oproc2"]) {
		t.Error("procedure triplets out of order")
	}
	if !(idx["diag_p"] < idx["odiag1"] && idx["opoa24"] < idx["diag_codes"]) {
		t.Error("diagnosis pairs out of order")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	l, _ := Load("HCAIInpatient")
	all := l.All()
	all[0].Width = 99
	if f, _ := l.Field(all[0].Key); f.Width == 99 {
		t.Error("All exposed the internal slice")
	}
}

func TestLoadUnknownFamily(t *testing.T) {
	if _, err := Load("HCAI_XYZ"); !errors.Is(err, ErrUnknownFamily) {
		t.Fatalf("got %v, want ErrUnknownFamily", err)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"no family", "date_format: mmddyyyy\nfields: [{key: a, width: 1}]", "no family"},
		{"bad date", "family: X\ndate_format: ddmmyy\nfields: [{key: a, width: 1}]", "unsupported date_format"},
		{"duplicate", "family: X\ndate_format: mmddyyyy\nfields: [{key: a, width: 1}, {key: a, width: 2}]", "duplicate field key a"},
		{"justify", "family: X\ndate_format: mmddyyyy\nfields: [{key: a, width: 1, justify: center}]", "invalid justify"},
		{"empty", "family: X\ndate_format: mmddyyyy\nfields: []", "no fields"},
		{"repeat dup", "family: X\ndate_format: mmddyyyy\nfields:\n  - repeat: {from: 1, to: 2}\n    fields: [{key: a, width: 1}]", "duplicate field key a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("got %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestFamilies(t *testing.T) {
	got := Families()
	if len(got) != 2 || got[0] != "HCAIInpatient" || got[1] != "HCAIPDD" {
		t.Errorf("Families = %v", got)
	}
}
