package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, rel, content string) {
	t.Helper()
	path := filepath.Join(dir, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

const patientsCSV = "Id,BIRTHDATE,DEATHDATE,SSN,DRIVERS,PASSPORT,PREFIX,FIRST,MIDDLE,LAST,SUFFIX,MAIDEN,MARITAL,RACE,ETHNICITY,GENDER,BIRTHPLACE,ADDRESS,CITY,STATE,COUNTY,FIPS,ZIP\n" +
	"p1,1990-01-02,,999-11-2222,,,Ms.,Ana,,Ruiz,,,M,white,hispanic,F,Somewhere,1 Main St,Oakland,California,Alameda County,06001,94601\n" +
	"p2,1985-05-06,,,,,Mr.,Bo,,Lee,,,S,asian,nonhispanic,M,Elsewhere,2 Oak Ave,Fresno,California,Fresno County,06019,NaN\n"

const encountersCSV = "Id,START,STOP,PATIENT,ORGANIZATION,PROVIDER,PAYER,ENCOUNTERCLASS,CODE,DESCRIPTION,BASE_ENCOUNTER_COST,TOTAL_CLAIM_COST,PAYER_COVERAGE,REASONCODE,REASONDESCRIPTION\n" +
	"e1,2020-01-01T10:00:00Z,2020-01-03T10:00:00Z,p1,o1,pr1,y1,Inpatient,1,x,10.0,1234.56,0,72892002,Normal pregnancy\n"

func TestOpenTableResolvesByName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "patients.csv", patientsCSV)

	r, err := OpenTable(filepath.Join(dir, "patients.csv"), PatientsSpec, 10)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	defer r.Close()

	res := r.Resolution()
	if len(res.Positional) != 0 {
		t.Errorf("unexpected positional columns %v", res.Positional)
	}

	chunk, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if len(chunk) != 2 {
		t.Fatalf("got %d records, want 2", len(chunk))
	}
	// The MIDDLE column shifts race by one against the reference positions.
	if got := chunk[0].Get("race"); got != "white" {
		t.Errorf("race = %q, want white", got)
	}
	if got := chunk[0].Get("zip"); got != "94601" {
		t.Errorf("zip = %q, want 94601", got)
	}
	if got := chunk[1].Get("zip"); got != "" {
		t.Errorf("NaN zip should normalize to empty, got %q", got)
	}
	if got := chunk[0].Get("homeless"); got != "" {
		t.Errorf("absent optional column = %q", got)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("expected io.EOF, got %v", err)
	}
}

func TestOpenTableRejectsUnrecognisedHeader(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"renamed header", "Ident,Nom,Proprietaire\ny1,Medicare,GOVERNMENT\n"},
		{"no header", "y1,Medicare,GOVERNMENT\ny2,Aetna,PRIVATE\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, "payers.csv", tt.content)

			r, err := OpenTable(filepath.Join(dir, "payers.csv"), PayersSpec, 10)
			if err == nil {
				r.Close()
				t.Fatal("expected the header row to be rejected")
			}
			var mie *MalformedInputError
			if !errors.As(err, &mie) {
				t.Fatalf("expected MalformedInputError, got %v", err)
			}
			if mie.Row != 1 || mie.Path == "" {
				t.Errorf("unexpected error detail %+v", mie)
			}
		})
	}
}

func TestOpenTablePositionalFallback(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "cov.csv", "Coverage id,Member id,Start,End,Plan kind\nc1,m1,2020,2021,HMO\n")

	r, err := OpenTable(filepath.Join(dir, "cov.csv"), CoveragesSpec, 10)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	defer r.Close()
	res := r.Resolution()
	if len(res.Positional) != 1 || res.Positional[0] != "type" {
		t.Fatalf("Positional = %v, want [type]", res.Positional)
	}
	chunk, _ := r.Next()
	if got := chunk[0].Get("type"); got != "HMO" {
		t.Errorf("type = %q, want HMO", got)
	}
}

func TestOpenTableMissingRequiredColumn(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "payers.csv", "Id,NAME\ny1,Medicare\n")

	_, err := OpenTable(filepath.Join(dir, "payers.csv"), PayersSpec, 10)
	var mie *MalformedInputError
	if !errors.As(err, &mie) {
		t.Fatalf("expected MalformedInputError, got %v", err)
	}
	if mie.Field != "ownership" || mie.Path == "" {
		t.Errorf("unexpected error detail %+v", mie)
	}
}

func TestOpenTableShortRow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "payers.csv", "Id,NAME,OWNERSHIP\ny1,Medicare,GOVERNMENT\ny2\n")

	r, err := OpenTable(filepath.Join(dir, "payers.csv"), PayersSpec, 10)
	if err != nil {
		t.Fatalf("OpenTable: %v", err)
	}
	defer r.Close()
	_, err = r.Next()
	var mie *MalformedInputError
	if !errors.As(err, &mie) || mie.Row != 3 {
		t.Fatalf("expected MalformedInputError at row 3, got %v", err)
	}
}

func TestOpenTableMissingAndEmpty(t *testing.T) {
	dir := t.TempDir()
	if _, err := OpenTable(filepath.Join(dir, "nope.csv"), PatientsSpec, 10); !errors.Is(err, ErrNoInputData) {
		t.Errorf("missing file: got %v, want ErrNoInputData", err)
	}
	writeFile(t, dir, "empty.csv", "")
	if _, err := OpenTable(filepath.Join(dir, "empty.csv"), PatientsSpec, 10); !errors.Is(err, ErrNoInputData) {
		t.Errorf("empty file: got %v, want ErrNoInputData", err)
	}
}

func TestNextChunks(t *testing.T) {
	dir := t.TempDir()
	content := "Id,NAME,OWNERSHIP\n"
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		content += id + ",n,PRIVATE\n"
	}
	writeFile(t, dir, "payers.csv", content)

	r, err := OpenTable(filepath.Join(dir, "payers.csv"), PayersSpec, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	var sizes []int
	var ids []string
	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		sizes = append(sizes, len(chunk))
		for _, rec := range chunk {
			ids = append(ids, rec.Get("id"))
		}
	}
	if len(sizes) != 3 || sizes[0] != 2 || sizes[2] != 1 {
		t.Errorf("chunk sizes = %v, want [2 2 1]", sizes)
	}
	if len(ids) != 5 || ids[0] != "a" || ids[4] != "e" {
		t.Errorf("ids = %v", ids)
	}
	if r.RowNum() != 6 {
		t.Errorf("RowNum = %d, want 6", r.RowNum())
	}
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, PatientsSpec.Path, patientsCSV)
	writeFile(t, dir, EncountersSpec.Path, encountersCSV)
	writeFile(t, dir, OrganizationsSpec.Path, "Id,NAME,ADDRESS,CITY,STATE,ZIP\no1,General,1 Rd,Oakland,CA,94602\n")
	writeFile(t, dir, PayersSpec.Path, "Id,NAME,OWNERSHIP\ny1,Medicare,GOVERNMENT\n")
	writeFile(t, dir, ProceduresSpec.Path, "START,STOP,PATIENT,ENCOUNTER,CODE,DESCRIPTION\n2020-01-01T11:00:00Z,,p1,e1,65200003,IUD\n")

	tables, stats, err := NewLoader(dir, 0).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(tables.Patients) != 2 || len(tables.Encounters) != 1 || len(tables.Procedures) != 1 {
		t.Fatalf("unexpected table sizes: %d patients, %d encounters, %d procedures",
			len(tables.Patients), len(tables.Encounters), len(tables.Procedures))
	}
	if tables.Encounters[0].Class != "inpatient" {
		t.Errorf("class = %q, want lowercased inpatient", tables.Encounters[0].Class)
	}
	if tables.Encounters[0].TotalCost != "1234.56" {
		t.Errorf("total cost = %q", tables.Encounters[0].TotalCost)
	}
	if tables.Organizations[0].Zip != "94602" {
		t.Errorf("org zip = %q", tables.Organizations[0].Zip)
	}

	skipped := map[string]bool{}
	for _, st := range stats {
		if st.Skipped {
			skipped[st.Table] = true
		}
	}
	for _, name := range []string{"claims", "coverages", "observations"} {
		if !skipped[name] {
			t.Errorf("expected optional table %s to be skipped", name)
		}
	}
}

func TestLoaderRequiresPatients(t *testing.T) {
	dir := t.TempDir()
	_, _, err := NewLoader(dir, 0).Load(context.Background())
	if !errors.Is(err, ErrNoInputData) {
		t.Fatalf("got %v, want ErrNoInputData", err)
	}
}

func TestLoaderRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := NewLoader(t.TempDir(), 0).Load(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got %v, want context.Canceled", err)
	}
}
