// Package synth fills the discharge fields the generator does not produce:
// constants, seeded categorical draws, coverage rules and sequential ids.
package synth

import (
	"slices"
	"strconv"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/dischargeformat/internal/codemap"
	"stealthcompany.com/dischargeformat/internal/record"
)

const (
	TypeOfCare = "1"

	patientIDBase = 100000000000
	dataIDBase    = 1000000001
	counterBase   = 1

	zeroPlanCode = "0000"
	noCoverage   = "0"
)

// Draw assigns Key a value chosen uniformly from Options on every row.
type Draw struct {
	Key     string
	Options []string
}

// Redraw replaces Key with a value from Options on rows where When equals Equals.
type Redraw struct {
	When    string
	Equals  string
	Key     string
	Options []string
}

// DefaultDraws are applied in order before any redraw.
func DefaultDraws() []Draw {
	return []Draw{
		{Key: record.TypeOfAdmission, Options: []string{"1", "2", "3", "4", "5", "9"}},
		{Key: record.PointOfOrigin, Options: []string{"1", "2", "4", "5", "6", "8", "D", "E", "F", "G"}},
		{Key: record.RouteOfAdmission, Options: []string{"3"}},
		{Key: record.Disposition, Options: codemap.Disposition()},
		{Key: record.DNR, Options: []string{"Y", "N"}},
	}
}

func DefaultRedraws() []Redraw {
	return []Redraw{
		{When: record.TypeOfAdmission, Equals: "4", Key: record.PointOfOrigin, Options: []string{"5", "6"}},
		{When: record.TypeOfAdmission, Equals: "1", Key: record.RouteOfAdmission, Options: []string{"1", "2"}},
	}
}

// Payer categories that carry no coverage type, and coverage types
// reported with the zero plan code.
var (
	uncoveredCategories = []string{"07", "08", "09"}
	zeroPlanCoverages   = []string{"0", "2", "3"}
)

// Stats summarizes one Apply call.
type Stats struct {
	Rows           int
	Redrawn        map[string]int
	CoverageZeroed int
	PlanCodes      int
	DistinctSSNs   int
}

// Generator applies the synthetic attribute rules with a seeded source.
type Generator struct {
	Seed    int64
	Draws   []Draw
	Redraws []Redraw

	faker *gofakeit.Faker
}

// New creates a generator whose draws are fully determined by seed.
func New(seed int64) *Generator {
	return &Generator{
		Seed:    seed,
		Draws:   DefaultDraws(),
		Redraws: DefaultRedraws(),
		faker:   gofakeit.New(uint64(seed)),
	}
}

// Apply enriches rows in place. Each rule runs over all rows before the
// next, so the draw sequence depends only on the seed and the row count.
func (g *Generator) Apply(rows []*record.Row) Stats {
	st := Stats{Rows: len(rows), Redrawn: make(map[string]int)}

	for _, r := range rows {
		r.Set(record.TypeOfCare, TypeOfCare)
	}
	for _, d := range g.Draws {
		for _, r := range rows {
			r.Set(d.Key, g.faker.RandomString(d.Options))
		}
	}
	for _, rd := range g.Redraws {
		for _, r := range rows {
			if r.String(rd.When) != rd.Equals {
				continue
			}
			r.Set(rd.Key, g.faker.RandomString(rd.Options))
			st.Redrawn[rd.Key]++
		}
	}

	for _, r := range rows {
		if slices.Contains(uncoveredCategories, r.String(record.PayerCategory)) {
			r.Set(record.TypeOfCoverage, noCoverage)
			st.CoverageZeroed++
		}
		if slices.Contains(zeroPlanCoverages, r.String(record.TypeOfCoverage)) {
			r.Set(record.PlanCode, zeroPlanCode)
			st.PlanCodes++
		}
	}

	seen := make(map[string]struct{}, len(rows))
	for i, r := range rows {
		seen[r.String(record.SSN)] = struct{}{}
		r.Set(record.PatientIDNumber, strconv.Itoa(patientIDBase+len(seen)))
		r.Set(record.DataSetID, strconv.Itoa(dataIDBase+i))
		r.Set(record.Counter, strconv.Itoa(counterBase+i))
	}
	st.DistinctSSNs = len(seen)

	log.Info().
		Int64("seed", g.Seed).
		Int("rows", st.Rows).
		Int("coverage_zeroed", st.CoverageZeroed).
		Int("plan_codes", st.PlanCodes).
		Int("distinct_ssn", st.DistinctSSNs).
		Msg("Applied synthetic attributes")
	return st
}
