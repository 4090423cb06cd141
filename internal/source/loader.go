package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// TableStats summarizes one table read.
type TableStats struct {
	Table      string
	Rows       int
	Chunks     int
	Skipped    bool // optional table not present
	Positional int  // columns resolved by position
}

// Loader reads every source table from a generator output directory.
type Loader struct {
	Dir       string
	ChunkSize int
}

// NewLoader creates a loader for the given generator output directory
func NewLoader(dir string, chunkSize int) *Loader {
	return &Loader{Dir: dir, ChunkSize: chunkSize}
}

// Load reads all tables. Missing required tables yield ErrNoInputData;
// missing optional tables are logged and left empty.
func (l *Loader) Load(ctx context.Context) (*Tables, []TableStats, error) {
	t := &Tables{}
	var stats []TableStats

	steps := []struct {
		spec TableSpec
		add  func(Record)
	}{
		{PatientsSpec, func(r Record) { t.Patients = append(t.Patients, toPatient(r)) }},
		{EncountersSpec, func(r Record) { t.Encounters = append(t.Encounters, toEncounter(r)) }},
		{OrganizationsSpec, func(r Record) { t.Organizations = append(t.Organizations, toOrganization(r)) }},
		{PayersSpec, func(r Record) { t.Payers = append(t.Payers, toPayer(r)) }},
		{ProceduresSpec, func(r Record) { t.Procedures = append(t.Procedures, toProcedure(r)) }},
		{ClaimsSpec, func(r Record) { t.Diagnoses = append(t.Diagnoses, toDiagnosis(r)) }},
		{CoveragesSpec, func(r Record) { t.Coverages = append(t.Coverages, toCoverage(r)) }},
		{ObservationsSpec, func(r Record) { t.Observations = append(t.Observations, toObservation(r)) }},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, stats, err
		}
		st, err := l.readTable(ctx, step.spec, step.add)
		if err != nil {
			return nil, stats, err
		}
		stats = append(stats, st)
	}

	if len(t.Patients) == 0 {
		return nil, stats, fmt.Errorf("%w: %s has no patient rows", ErrNoInputData, filepath.Join(l.Dir, PatientsSpec.Path))
	}
	return t, stats, nil
}

func (l *Loader) readTable(ctx context.Context, spec TableSpec, add func(Record)) (TableStats, error) {
	st := TableStats{Table: spec.Name}
	path := filepath.Join(l.Dir, spec.Path)

	r, err := OpenTable(path, spec, l.ChunkSize)
	if err != nil {
		if !spec.Required && errors.Is(err, ErrNoInputData) {
			log.Warn().Str("table", spec.Name).Str("path", path).Msg("Optional source table not found, continuing without it")
			st.Skipped = true
			return st, nil
		}
		return st, err
	}
	defer r.Close()
	st.Positional = len(r.Resolution().Positional)

	for {
		chunk, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return st, err
		}
		for _, rec := range chunk {
			add(rec)
		}
		st.Rows += len(chunk)
		st.Chunks++
		log.Debug().Str("table", spec.Name).Int("chunk", st.Chunks).Int("rows", st.Rows).Msg("Read chunk")
		if err := ctx.Err(); err != nil {
			return st, err
		}
	}

	log.Info().Str("table", spec.Name).Int("rows", st.Rows).Int("chunks", st.Chunks).Msg("Loaded source table")
	return st, nil
}

func toPatient(r Record) Patient {
	return Patient{
		ID:        r.Get("id"),
		BirthDate: r.Get("birthdate"),
		SSN:       r.Get("ssn"),
		Race:      r.Get("race"),
		Ethnicity: r.Get("ethnicity"),
		Gender:    r.Get("gender"),
		Street:    r.Get("address"),
		City:      r.Get("city"),
		State:     r.Get("state"),
		County:    r.Get("county"),
		Zip:       r.Get("zip"),
		Homeless:  r.Get("homeless"),
	}
}

func toEncounter(r Record) Encounter {
	return Encounter{
		ID:             r.Get("id"),
		Start:          r.Get("start"),
		Stop:           r.Get("stop"),
		PatientID:      r.Get("patient"),
		OrganizationID: r.Get("organization"),
		PayerID:        r.Get("payer"),
		Class:          strings.ToLower(r.Get("class")),
		TotalCost:      r.Get("total_cost"),
		ReasonCode:     r.Get("reason_code"),
	}
}

func toProcedure(r Record) Procedure {
	return Procedure{EncounterID: r.Get("encounter"), Start: r.Get("start"), Code: r.Get("code")}
}

func toDiagnosis(r Record) Diagnosis {
	return Diagnosis{
		EncounterID:        r.Get("encounter"),
		CoverageID:         r.Get("coverage"),
		Code:               r.Get("code"),
		PresentOnAdmission: r.Get("poa"),
	}
}

func toCoverage(r Record) Coverage {
	return Coverage{ID: r.Get("id"), Type: r.Get("type")}
}

func toOrganization(r Record) Organization {
	return Organization{ID: r.Get("id"), Name: r.Get("name"), Zip: r.Get("zip")}
}

func toPayer(r Record) Payer {
	return Payer{ID: r.Get("id"), Name: r.Get("name"), Ownership: r.Get("ownership")}
}

func toObservation(r Record) Observation {
	return Observation{EncounterID: r.Get("encounter"), Description: r.Get("description"), Value: r.Get("value")}
}
