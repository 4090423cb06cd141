package assemble

import (
	"context"
	"errors"
	"testing"
	"time"

	"stealthcompany.com/dischargeformat/internal/record"
	"stealthcompany.com/dischargeformat/internal/source"
)

func fixture() *source.Tables {
	return &source.Tables{
		Patients: []source.Patient{
			{ID: "p1", BirthDate: "1990-01-02", SSN: "999-11-2222", Race: "white", Ethnicity: "hispanic", Gender: "F",
				Street: "1 Main St", City: "Oakland", State: "California", County: "Alameda County", Zip: "94601"},
			{ID: "p2", BirthDate: "2021-01-01", Race: "asian", Ethnicity: "nonhispanic", Gender: "M",
				City: "Fresno", State: "California", County: "Fresno County"},
			{ID: "p3", BirthDate: "1970-07-07"},
		},
		Encounters: []source.Encounter{
			{ID: "e1", PatientID: "p1", Start: "2020-01-01T10:00:00Z", Stop: "2020-01-03T09:00:00Z", OrganizationID: "o1",
				PayerID: "y1", Class: "inpatient", TotalCost: "1234.56", ReasonCode: "72892002"},
			{ID: "e2", PatientID: "p2", Start: "2021-03-05T01:00:00Z", Stop: "2021-03-05T05:00:00Z", OrganizationID: "o1",
				PayerID: "y2", Class: "emergency", TotalCost: "12345678.9"},
			{ID: "e3", PatientID: "p1", Start: "2020-06-01T08:00:00Z", Stop: "2020-06-01T09:00:00Z", OrganizationID: "o1",
				PayerID: "y1", Class: "ambulatory"},
			{ID: "e4", PatientID: "p1", Start: "2020-07-01T08:00:00Z", Stop: "2020-07-02T09:00:00Z", OrganizationID: "o9",
				PayerID: "y1", Class: "inpatient"},
		},
		Organizations: []source.Organization{{ID: "o1", Name: "General Hospital", Zip: "94602"}},
		Payers: []source.Payer{
			{ID: "y1", Name: "Medicare", Ownership: "GOVERNMENT"},
			{ID: "y2", Name: "NO_INSURANCE", Ownership: "NO_INSURANCE"},
		},
		Procedures: []source.Procedure{
			{EncounterID: "e1", Start: "2020-01-02T08:00:00Z", Code: "65200003"},
			{EncounterID: "e1", Start: "2020-01-02T09:00:00Z", Code: "66348005"},
		},
		Diagnoses: []source.Diagnosis{
			{EncounterID: "e1", CoverageID: "c1", Code: "72892002", PresentOnAdmission: "Y"},
			{EncounterID: "e1", CoverageID: "c1", Code: "999999", PresentOnAdmission: "N"},
			{EncounterID: "e1", CoverageID: "c1", Code: "44054006", PresentOnAdmission: "N"},
			{EncounterID: "e1", CoverageID: "c2", Code: "38341003", PresentOnAdmission: "Y"},
		},
		Coverages: []source.Coverage{{ID: "c1", Type: "HMO"}, {ID: "c2", Type: "PPO"}},
		Observations: []source.Observation{
			{EncounterID: "e1", Description: "Body Height", Value: "170"},
			{EncounterID: "e1", Description: "Preferred language", Value: "Spanish (language)"},
			{EncounterID: "e1", Description: "Preferred language", Value: "English (language)"},
		},
	}
}

func encounterIDs(rows []*record.Row) []string {
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.EncounterID)
	}
	return ids
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAssembleFilters(t *testing.T) {
	tests := []struct {
		name   string
		cfg    Config
		want   []string
		verify func(t *testing.T, st Stats)
	}{
		{
			name: "all classes",
			cfg:  Config{},
			want: []string{"e1", "e3", "e2"},
			verify: func(t *testing.T, st Stats) {
				if st.Unmatched != 1 || st.NoEncounters != 1 {
					t.Errorf("unmatched=%d noEncounters=%d", st.Unmatched, st.NoEncounters)
				}
			},
		},
		{
			name: "class filter",
			cfg:  Config{EncounterClasses: []string{"Inpatient", "emergency"}},
			want: []string{"e1", "e2"},
			verify: func(t *testing.T, st Stats) {
				if st.ClassFiltered != 1 {
					t.Errorf("ClassFiltered = %d, want 1", st.ClassFiltered)
				}
			},
		},
		{
			name: "year range",
			cfg:  Config{Years: &YearRange{From: 2021, To: 2021}},
			want: []string{"e2"},
			verify: func(t *testing.T, st Stats) {
				if st.YearFiltered != 2 {
					t.Errorf("YearFiltered = %d, want 2", st.YearFiltered)
				}
			},
		},
		{
			name: "single class",
			cfg:  Config{EncounterClasses: []string{"wellness"}},
			want: nil,
			verify: func(t *testing.T, st Stats) {
				if st.Rows != 0 || st.NoEncounters != 3 {
					t.Errorf("rows=%d noEncounters=%d", st.Rows, st.NoEncounters)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, st, err := New(tt.cfg, nil).Assemble(context.Background(), fixture())
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			if got := encounterIDs(rows); !equalStrings(got, tt.want) {
				t.Errorf("encounters = %v, want %v", got, tt.want)
			}
			seen := map[string]bool{}
			for _, r := range rows {
				key := r.PatientID + "/" + r.EncounterID
				if seen[key] {
					t.Errorf("pair %s emitted twice", key)
				}
				seen[key] = true
			}
			tt.verify(t, st)
		})
	}
}

func assembleOne(t *testing.T, cfg Config, tables *source.Tables, encounterID string) (*record.Row, Stats) {
	t.Helper()
	rows, st, err := New(cfg, nil).Assemble(context.Background(), tables)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	for _, r := range rows {
		if r.EncounterID == encounterID {
			return r, st
		}
	}
	t.Fatalf("encounter %s not in output", encounterID)
	return nil, st
}

func TestAssembleFields(t *testing.T) {
	cfg := Config{CountryCode: "US"}
	e1, _ := assembleOne(t, cfg, fixture(), "e1")
	e2, _ := assembleOne(t, cfg, fixture(), "e2")

	tests := []struct {
		row  *record.Row
		key  string
		want string
	}{
		{e1, record.DateOfBirth, "01021990"},
		{e1, record.DateOfBirthRaw, "01021990"},
		{e1, record.Sex, "F"},
		{e1, record.Ethnicity, "E1"},
		{e1, record.Race, "R5"},
		{e1, record.SSN, "999112222"},
		{e1, record.RecordLinkage, "999112222"},
		{e1, record.AbstractRecord, "999-11-2222"},
		{e1, record.AddressZip, "94601"},
		{e1, record.AddressCounty, "01"},
		{e1, record.AddressState, "CA"},
		{e1, record.AddressCountry, "US"},
		{e1, record.FacilityID, "010735"},
		{e1, record.FacilityName, "General Hospital"},
		{e1, record.HospitalZip, "94602"},
		{e1, record.PayerCategory, "01"},
		{e1, record.AdmitDate, "01012020"},
		{e1, record.AdmitWeekday, "4"},
		{e1, record.AdmitMonth, "1"},
		{e1, record.AdmitQuarter, "1"},
		{e1, record.AdmitYear, "2020"},
		{e1, record.DischDate, "01032020"},
		{e1, record.DischYear, "2020"},
		{e1, record.LengthOfStay, "2"},
		{e1, record.AdjLengthOfStay, "2"},
		{e1, record.AgeYearsAdmit, "29"},
		{e1, record.AgeYearsDisch, "30"},
		{e1, record.AgeRangeAdmit, "06"},
		{e1, record.AgeRangeDisch, "07"},
		{e1, record.AgeRangeDisch10, "04"},
		{e1, record.AgeDaysAdmit, "0"},
		{e1, record.TotalCharges, "1234"},
		{e1, record.LanguageWriteIn, "Spanish"},
		{e1, record.LanguageCode, "SPA"},
		{e2, record.SSN, MissingSSN},
		{e2, record.AbstractRecord, MissingSSN},
		{e2, record.AddressZip, MissingZip},
		{e2, record.PayerCategory, "08"},
		{e2, record.TotalCharges, "9999999"},
		{e2, record.AgeDaysAdmit, "63"},
		{e2, record.AgeRangeAdmit, "01"},
		{e2, record.LengthOfStay, "0"},
		{e2, record.AdjLengthOfStay, "1"},
		{e2, record.AdmitQuarter, "1"},
	}
	for _, tt := range tests {
		t.Run(tt.row.EncounterID+"/"+tt.key, func(t *testing.T) {
			if got := tt.row.String(tt.key); got != tt.want {
				t.Errorf("%s = %q, want %q", tt.key, got, tt.want)
			}
		})
	}

	for _, key := range []string{record.LanguageWriteIn, record.LanguageCode, record.PrincipalDiagnosis, record.TypeOfCoverage} {
		v, ok := e2.Get(key)
		if !ok || v.Valid {
			t.Errorf("e2 %s should be present and null, got %v %v", key, v, ok)
		}
	}
}

func TestAssembleInpatientDateEncoding(t *testing.T) {
	row, _ := assembleOne(t, Config{DateLayout: "20060102"}, fixture(), "e1")
	if got := row.String(record.DateOfBirth); got != "19900102" {
		t.Errorf("bthdate = %q, want 19900102", got)
	}
	if got := row.String(record.AdmitDate); got != "20200101" {
		t.Errorf("admtdate = %q, want 20200101", got)
	}
}

func TestAssembleProcedures(t *testing.T) {
	row, st := assembleOne(t, Config{}, fixture(), "e1")

	checks := map[string]string{
		record.PrincipalProcCode: "0UH97HZ",
		record.PrincipalProcDate: "20200102",
		record.PrincipalProcDays: "1",
		record.OtherProcCode(1):  "66348005",
		record.OtherProcDate(1):  "20200102",
		record.OtherProcDays(1):  "1",
		record.ProcedureCodes:    "0UH97HZ;66348005",
		record.MSDRG:             "807",
		record.MDC:               "14",
	}
	for key, want := range checks {
		if got := row.String(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if row.Has(record.OtherProcCode(2)) {
		t.Error("oproc2 should be unset")
	}
	if st.ProcedureOverflow != 0 {
		t.Errorf("ProcedureOverflow = %d", st.ProcedureOverflow)
	}

	other, _ := assembleOne(t, Config{}, fixture(), "e3")
	if other.Has(record.PrincipalProcCode) || other.Has(record.MSDRG) {
		t.Error("encounter without procedures should have no procedure fields")
	}
}

func TestAssembleProcedureOverflow(t *testing.T) {
	tables := fixture()
	tables.Procedures = append(tables.Procedures, source.Procedure{EncounterID: "e1", Start: "2020-01-03", Code: "11466000"})

	row, st := assembleOne(t, Config{MaxProcedures: 2}, tables, "e1")
	if st.ProcedureOverflow != 1 {
		t.Errorf("ProcedureOverflow = %d, want 1", st.ProcedureOverflow)
	}
	if row.Has(record.OtherProcCode(2)) {
		t.Error("overflowing procedure should not be placed")
	}
	if got := len(row.List(record.ProcedureCodes)); got != 3 {
		t.Errorf("raw list length = %d, want 3", got)
	}
	// 11466000 is the last matching rule
	if got := row.String(record.MSDRG); got != "788" {
		t.Errorf("MSDRG = %q, want 788", got)
	}
}

func TestAssembleDiagnoses(t *testing.T) {
	row, st := assembleOne(t, Config{}, fixture(), "e1")

	checks := map[string]string{
		record.PrincipalDiagnosis: "Z3490",
		record.PrincipalPOA:       "Y",
		record.OtherDiagnosis(1):  "E119",
		record.OtherPOA(1):        "N",
		record.DiagnosisCodes:     "Z3490;E119",
		record.POAList:            "Y;N",
		record.TypeOfCoverage:     "1",
	}
	for key, want := range checks {
		if got := row.String(key); got != want {
			t.Errorf("%s = %q, want %q", key, got, want)
		}
	}
	if got := len(row.List(record.DiagnosisCodes)); got != 2 {
		t.Errorf("diagnosis list length = %d, want 2", got)
	}
	if row.Has(record.OtherDiagnosis(2)) {
		t.Error("odiag2 should be unset")
	}
	if st.DroppedDiagnoses != 1 || st.ExtraCoverageGroups != 1 {
		t.Errorf("dropped=%d extraGroups=%d", st.DroppedDiagnoses, st.ExtraCoverageGroups)
	}
}

func TestAssembleReasonCodeWithoutClaims(t *testing.T) {
	tables := fixture()
	tables.Diagnoses = nil
	row, _ := assembleOne(t, Config{}, tables, "e1")
	if got := row.String(record.PrincipalDiagnosis); got != "Z3490" {
		t.Errorf("diag_p = %q, want reason code translation Z3490", got)
	}
}

func TestAssembleDuplicateKeys(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*source.Tables)
		table  string
	}{
		{"payer", func(s *source.Tables) { s.Payers = append(s.Payers, s.Payers[0]) }, "payers"},
		{"organization", func(s *source.Tables) { s.Organizations = append(s.Organizations, s.Organizations[0]) }, "organizations"},
		{"patient", func(s *source.Tables) { s.Patients = append(s.Patients, s.Patients[1]) }, "patients"},
		{"encounter", func(s *source.Tables) { s.Encounters = append(s.Encounters, s.Encounters[0]) }, "encounters"},
		{"coverage", func(s *source.Tables) {
			s.Coverages = append(s.Coverages, source.Coverage{ID: s.Coverages[0].ID, Type: "PPO"})
		}, "coverages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := fixture()
			tt.mutate(tables)
			_, _, err := New(Config{}, nil).Assemble(context.Background(), tables)
			var dke *DuplicateKeyError
			if !errors.As(err, &dke) {
				t.Fatalf("expected DuplicateKeyError, got %v", err)
			}
			if dke.Table != tt.table || !dke.Retryable() {
				t.Errorf("unexpected error %+v", dke)
			}
		})
	}
}

func TestAssembleDropsInvalidInterval(t *testing.T) {
	tables := fixture()
	tables.Encounters[0].Stop = "2019-12-31T00:00:00Z"
	rows, st, err := New(Config{}, nil).Assemble(context.Background(), tables)
	if err != nil {
		t.Fatal(err)
	}
	if st.InvalidEncounters != 1 {
		t.Errorf("InvalidEncounters = %d, want 1", st.InvalidEncounters)
	}
	for _, r := range rows {
		if r.EncounterID == "e1" {
			t.Error("e1 should have been dropped")
		}
	}
}

func TestAssembleCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := New(Config{}, nil).Assemble(ctx, fixture()); !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}

func TestHCAIWeekday(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2020-01-05", 1}, // Sunday
		{"2020-01-06", 2},
		{"2020-01-10", 6},
		{"2020-01-11", 7}, // Saturday
	}
	for _, tt := range tests {
		t.Run(tt.date, func(t *testing.T) {
			d, _ := time.Parse("2006-01-02", tt.date)
			if got := hcaiWeekday(d); got != tt.want {
				t.Errorf("hcaiWeekday(%s) = %d, want %d", tt.date, got, tt.want)
			}
		})
	}
}

func TestTotalCharges(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		valid  bool
		parsed bool
	}{
		{"1234.56", "1234", true, true},
		{"99999999.99", "9999999", true, true},
		{"0.75", "0", true, true},
		{"42", "42", true, true},
		{"", "", false, true},
		{"n/a", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := totalCharges(tt.raw)
			if ok != tt.parsed || got.Valid != tt.valid || got.ValueOrZero() != tt.want {
				t.Errorf("totalCharges(%q) = %v, %v", tt.raw, got, ok)
			}
		})
	}
}
