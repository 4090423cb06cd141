// Package assemble joins the generator source tables into one wide discharge
// record per qualifying encounter.
package assemble

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"gopkg.in/guregu/null.v3"

	"stealthcompany.com/dischargeformat/internal/codemap"
	"stealthcompany.com/dischargeformat/internal/record"
	"stealthcompany.com/dischargeformat/internal/source"
	"stealthcompany.com/dischargeformat/internal/temporal"
)

const (
	DefaultMaxProcedures = 25
	DefaultMaxDiagnoses  = 25
	DefaultFacilityID    = "010735"

	MissingSSN = "000000001"
	MissingZip = "XXXXX"
	MaxCharges = 9999999

	// PreferredLanguage is the observation description carrying the spoken language.
	PreferredLanguage = "Preferred language"

	procedureDateLayout = "20060102"
)

// Config controls which encounters qualify and how dates are encoded.
type Config struct {
	EncounterClasses []string // lowercase classes, empty means all
	Years            *YearRange
	DateLayout       string // Go layout of the target date encoding
	CountryCode      string
	FacilityID       string
	MaxProcedures    int
	MaxDiagnoses     int
}

func (c Config) withDefaults() Config {
	if c.DateLayout == "" {
		c.DateLayout = "01022006"
	}
	if c.FacilityID == "" {
		c.FacilityID = DefaultFacilityID
	}
	if c.MaxProcedures <= 0 {
		c.MaxProcedures = DefaultMaxProcedures
	}
	if c.MaxDiagnoses <= 0 {
		c.MaxDiagnoses = DefaultMaxDiagnoses
	}
	return c
}

// Stats counts what the assembler kept and dropped.
type Stats struct {
	Patients            int
	Encounters          int
	ClassFiltered       int
	InvalidEncounters   int
	UnknownPatient      int
	Unmatched           int
	YearFiltered        int
	NoEncounters        int
	Rows                int
	DroppedDiagnoses    int
	ExtraCoverageGroups int
	ProcedureOverflow   int
	DiagnosisOverflow   int
	ParseErrors         map[string]int
}

func (s *Stats) parseError(field string) {
	if s.ParseErrors == nil {
		s.ParseErrors = make(map[string]int)
	}
	s.ParseErrors[field]++
}

// Assembler builds discharge rows from source tables.
type Assembler struct {
	cfg     Config
	codes   *codemap.Set
	classes map[string]bool
	procs   Slots
	diags   Slots
}

// New creates an assembler. A nil code set uses codemap.Default().
func New(cfg Config, codes *codemap.Set) *Assembler {
	cfg = cfg.withDefaults()
	if codes == nil {
		codes = codemap.Default()
	}
	classes := make(map[string]bool, len(cfg.EncounterClasses))
	for _, c := range cfg.EncounterClasses {
		if c = strings.ToLower(strings.TrimSpace(c)); c != "" {
			classes[c] = true
		}
	}
	return &Assembler{
		cfg:     cfg,
		codes:   codes,
		classes: classes,
		procs:   Slots{Size: cfg.MaxProcedures, Base: 1},
		diags:   Slots{Size: cfg.MaxDiagnoses, Base: 1},
	}
}

// encounter is a qualifying encounter with its joined lookups.
type encounter struct {
	src   source.Encounter
	admit time.Time
	disch time.Time
	org   source.Organization
	payer source.Payer
}

type procedureItem struct {
	code string
	date null.String
	days null.String
}

type diagnosisGroup struct {
	coverage string
	codes    []string
	poas     []string
}

// Assemble returns one row per qualifying encounter, ordered by patient
// source order then encounter source order.
func (a *Assembler) Assemble(ctx context.Context, t *source.Tables) ([]*record.Row, Stats, error) {
	var st Stats
	st.Patients = len(t.Patients)
	st.Encounters = len(t.Encounters)

	patientIdx, err := indexUnique("patients", t.Patients, func(p source.Patient) string { return p.ID })
	if err != nil {
		return nil, st, err
	}
	orgIdx, err := indexUnique("organizations", t.Organizations, func(o source.Organization) string { return o.ID })
	if err != nil {
		return nil, st, err
	}
	payerIdx, err := indexUnique("payers", t.Payers, func(p source.Payer) string { return p.ID })
	if err != nil {
		return nil, st, err
	}
	if _, err := indexUnique("encounters", t.Encounters, func(e source.Encounter) string { return e.ID }); err != nil {
		return nil, st, err
	}
	coverageIdx, err := indexUnique("coverages", t.Coverages, func(c source.Coverage) string { return c.ID })
	if err != nil {
		return nil, st, err
	}

	byPatient := make([][]encounter, len(t.Patients))
	for _, e := range t.Encounters {
		if len(a.classes) > 0 && !a.classes[e.Class] {
			st.ClassFiltered++
			continue
		}
		admit, err1 := temporal.Parse(e.Start)
		disch, err2 := temporal.Parse(e.Stop)
		if err1 != nil || err2 != nil {
			st.InvalidEncounters++
			st.parseError(record.AdmitDate)
			log.Warn().Str("encounter", e.ID).Str("start", e.Start).Str("stop", e.Stop).Msg("Dropping encounter with unparseable dates")
			continue
		}
		if disch.Before(admit) {
			st.InvalidEncounters++
			log.Warn().Str("encounter", e.ID).Time("start", admit).Time("stop", disch).Msg("Dropping encounter that stops before it starts")
			continue
		}
		pi, ok := patientIdx[e.PatientID]
		if !ok {
			st.UnknownPatient++
			log.Warn().Str("encounter", e.ID).Str("patient", e.PatientID).Msg("Dropping encounter for unknown patient")
			continue
		}
		oi, okOrg := orgIdx[e.OrganizationID]
		yi, okPayer := payerIdx[e.PayerID]
		if !okOrg || !okPayer {
			st.Unmatched++
			log.Warn().Str("encounter", e.ID).Bool("organization", okOrg).Bool("payer", okPayer).Msg("Dropping encounter without matching organization or payer")
			continue
		}
		if a.cfg.Years != nil && !a.cfg.Years.Contains(disch.Year()) {
			st.YearFiltered++
			continue
		}
		byPatient[pi] = append(byPatient[pi], encounter{
			src:   e,
			admit: admit,
			disch: disch,
			org:   t.Organizations[oi],
			payer: t.Payers[yi],
		})
	}
	if err := ctx.Err(); err != nil {
		return nil, st, err
	}

	procs := a.groupProcedures(t.Procedures)
	diags := a.groupDiagnoses(t.Diagnoses, &st)
	coverages := make(map[string]string, len(coverageIdx))
	for id, i := range coverageIdx {
		coverages[id] = t.Coverages[i].Type
	}
	languages := make(map[string]string)
	for _, o := range t.Observations {
		if o.Description != PreferredLanguage {
			continue
		}
		if _, seen := languages[o.EncounterID]; !seen {
			languages[o.EncounterID] = o.Value
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, st, err
	}

	var rows []*record.Row
	for pi, encs := range byPatient {
		if len(encs) == 0 {
			st.NoEncounters++
			continue
		}
		p := t.Patients[pi]
		base, dob := a.patientBase(p, &st)
		for _, e := range encs {
			row := base.Clone()
			row.EncounterID = e.src.ID
			a.setEncounter(row, e, dob, &st)
			a.setProcedures(row, e, procs[e.src.ID], &st)
			a.setDiagnoses(row, e, diags[e.src.ID], coverages, &st)
			a.setLanguage(row, languages[e.src.ID])
			rows = append(rows, row)
		}
		if pi%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, st, err
			}
		}
	}
	st.Rows = len(rows)

	log.Info().
		Int("patients", st.Patients).
		Int("encounters", st.Encounters).
		Int("class_filtered", st.ClassFiltered).
		Int("year_filtered", st.YearFiltered).
		Int("unmatched", st.Unmatched).
		Int("invalid", st.InvalidEncounters).
		Int("rows", st.Rows).
		Msg("Assembled discharge records")
	return rows, st, nil
}

func indexUnique[T any](table string, items []T, key func(T) string) (map[string]int, error) {
	idx := make(map[string]int, len(items))
	for i, it := range items {
		k := key(it)
		if _, dup := idx[k]; dup {
			return nil, &DuplicateKeyError{Table: table, Key: k}
		}
		idx[k] = i
	}
	return idx, nil
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (a *Assembler) patientBase(p source.Patient, st *Stats) (*record.Row, *time.Time) {
	row := record.New(p.ID)

	var dob *time.Time
	switch t, err := temporal.Parse(p.BirthDate); {
	case strings.TrimSpace(p.BirthDate) == "":
		row.SetNull(record.DateOfBirth)
		row.SetNull(record.DateOfBirthRaw)
	case err != nil:
		st.parseError(record.DateOfBirth)
		row.SetNull(record.DateOfBirth)
		row.SetNull(record.DateOfBirthRaw)
	default:
		d := dateOnly(t)
		dob = &d
		row.Set(record.DateOfBirth, d.Format(a.cfg.DateLayout))
		row.Set(record.DateOfBirthRaw, d.Format(a.cfg.DateLayout))
	}

	row.Set(record.Sex, a.codes.Sex.Translate(p.Gender))
	row.Set(record.Ethnicity, a.codes.Ethnicity.Translate(p.Ethnicity))
	row.Set(record.Race, a.codes.Race.Translate(p.Race))

	ssn := strings.ReplaceAll(p.SSN, "-", "")
	abstract := p.SSN
	if ssn == "" {
		ssn = MissingSSN
		abstract = MissingSSN
	}
	row.Set(record.SSN, ssn)
	row.Set(record.RecordLinkage, ssn)
	row.Set(record.AbstractRecord, abstract)

	row.SetValue(record.AddressStreet, null.NewString(p.Street, p.Street != ""))
	row.SetValue(record.AddressCity, null.NewString(p.City, p.City != ""))
	row.Set(record.AddressCounty, a.codes.County.Translate(p.County))
	state := a.codes.State.Translate(p.State)
	row.SetValue(record.AddressState, null.NewString(state, state != ""))
	zip := p.Zip
	if zip == "" {
		zip = MissingZip
	}
	row.Set(record.AddressZip, zip)
	row.SetValue(record.AddressCountry, null.NewString(a.cfg.CountryCode, a.cfg.CountryCode != ""))
	if p.Homeless != "" {
		row.Set(record.AddressHomeless, homelessFlag(p.Homeless))
	}
	return row, dob
}

func homelessFlag(v string) string {
	switch strings.ToLower(v) {
	case "true", "t", "y", "yes", "1":
		return "Y"
	}
	return "N"
}

func (a *Assembler) setEncounter(row *record.Row, e encounter, dob *time.Time, st *Stats) {
	admit, disch := dateOnly(e.admit), dateOnly(e.disch)

	row.Set(record.FacilityID, a.cfg.FacilityID)
	row.Set(record.FacilityName, e.org.Name)
	row.SetValue(record.HospitalZip, null.NewString(e.org.Zip, e.org.Zip != ""))
	row.Set(record.PayerCategory, codemap.PayerCategory(e.payer.Name, e.payer.Ownership))

	row.Set(record.AdmitDate, admit.Format(a.cfg.DateLayout))
	row.Set(record.AdmitWeekday, strconv.Itoa(hcaiWeekday(admit)))
	row.Set(record.AdmitMonth, strconv.Itoa(int(admit.Month())))
	row.Set(record.AdmitQuarter, strconv.Itoa(quarter(admit)))
	row.Set(record.AdmitYear, strconv.Itoa(admit.Year()))
	row.Set(record.DischDate, disch.Format(a.cfg.DateLayout))
	row.Set(record.DischMonth, strconv.Itoa(int(disch.Month())))
	row.Set(record.DischQuarter, strconv.Itoa(quarter(disch)))
	row.Set(record.DischYear, strconv.Itoa(disch.Year()))

	row.SetValue(record.LengthOfStay, temporal.Between(admit, disch, temporal.StayDays).Null())
	row.SetValue(record.AdjLengthOfStay, temporal.Between(admit, disch, temporal.AdjustedStayDays).Null())

	ages := []struct {
		key  string
		at   time.Time
		mode temporal.Mode
	}{
		{record.AgeDaysAdmit, admit, temporal.AgeDays},
		{record.AgeDaysDisch, disch, temporal.AgeDays},
		{record.AgeYearsAdmit, admit, temporal.AgeYears},
		{record.AgeYearsDisch, disch, temporal.AgeYears},
		{record.AgeRangeAdmit, admit, temporal.AgeRange5},
		{record.AgeRangeDisch, disch, temporal.AgeRange5},
		{record.AgeRangeDisch10, disch, temporal.AgeRange10},
	}
	for _, age := range ages {
		if dob == nil {
			row.SetNull(age.key)
			continue
		}
		row.SetValue(age.key, temporal.Between(*dob, age.at, age.mode).Null())
	}

	charge, ok := totalCharges(e.src.TotalCost)
	if !ok {
		st.parseError(record.TotalCharges)
	}
	row.SetValue(record.TotalCharges, charge)

	dx := a.codes.SnomedICD.Translate(e.src.ReasonCode)
	row.SetValue(record.PrincipalDiagnosis, null.NewString(dx, dx != ""))
}

// hcaiWeekday numbers days 1 (Sunday) through 7 (Saturday).
func hcaiWeekday(t time.Time) int {
	return int(t.Weekday()) + 1
}

func quarter(t time.Time) int {
	return (int(t.Month())-1)/3 + 1
}

// totalCharges keeps the integer part of the claim cost, capped at
// MaxCharges. ok is false when a non-empty value does not parse.
func totalCharges(raw string) (null.String, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return null.String{}, true
	}
	whole, _, _ := strings.Cut(raw, ".")
	if whole == "" || whole == "-" {
		whole = "0"
	}
	n, err := strconv.Atoi(whole)
	if err != nil {
		return null.String{}, false
	}
	return null.StringFrom(strconv.Itoa(min(n, MaxCharges))), true
}

func (a *Assembler) groupProcedures(procs []source.Procedure) map[string][]source.Procedure {
	out := make(map[string][]source.Procedure)
	for _, p := range procs {
		out[p.EncounterID] = append(out[p.EncounterID], p)
	}
	return out
}

// groupDiagnoses translates claim diagnoses and groups them by encounter and
// coverage in first-seen order. Lines whose code does not translate are dropped.
func (a *Assembler) groupDiagnoses(diags []source.Diagnosis, st *Stats) map[string][]*diagnosisGroup {
	out := make(map[string][]*diagnosisGroup)
	for _, d := range diags {
		code := a.codes.SnomedICD.Translate(d.Code)
		if code == "" {
			st.DroppedDiagnoses++
			continue
		}
		var g *diagnosisGroup
		for _, existing := range out[d.EncounterID] {
			if existing.coverage == d.CoverageID {
				g = existing
				break
			}
		}
		if g == nil {
			g = &diagnosisGroup{coverage: d.CoverageID}
			out[d.EncounterID] = append(out[d.EncounterID], g)
		}
		g.codes = append(g.codes, code)
		g.poas = append(g.poas, d.PresentOnAdmission)
	}
	return out
}

func (a *Assembler) setProcedures(row *record.Row, e encounter, procs []source.Procedure, st *Stats) {
	if len(procs) == 0 {
		return
	}
	admit := dateOnly(e.admit)
	items := make([]procedureItem, 0, len(procs))
	codes := make([]string, 0, len(procs))
	dates := make([]string, 0, len(procs))
	for _, p := range procs {
		it := procedureItem{code: a.codes.LARCProcedure.Translate(p.Code)}
		if t, err := temporal.Parse(p.Start); err != nil {
			st.parseError(record.PrincipalProcDate)
		} else {
			d := dateOnly(t)
			it.date = null.StringFrom(d.Format(procedureDateLayout))
			it.days = temporal.Between(admit, d, temporal.StayDays).Null()
		}
		items = append(items, it)
		codes = append(codes, it.code)
		dates = append(dates, it.date.ValueOrZero())
	}

	row.SetList(record.ProcedureCodes, codes)
	row.SetList(record.ProcedureDates, dates)

	dropped := Spread(a.procs, items,
		func(it procedureItem) {
			row.Set(record.PrincipalProcCode, it.code)
			row.SetValue(record.PrincipalProcDate, it.date)
			row.SetValue(record.PrincipalProcDays, it.days)
		},
		func(slot int, it procedureItem) {
			row.Set(record.OtherProcCode(slot), it.code)
			row.SetValue(record.OtherProcDate(slot), it.date)
			row.SetValue(record.OtherProcDays(slot), it.days)
		})
	if dropped > 0 {
		st.ProcedureOverflow += dropped
		log.Warn().Str("encounter", e.src.ID).Int("procedures", len(items)).Int("dropped", dropped).Msg("Procedure list exceeds the available slots, truncating")
	}

	if drg, ok := codemap.LARCGroup(codes); ok {
		row.Set(record.MSDRG, drg.Code)
		row.Set(record.MDC, drg.MDC)
	}
}

func (a *Assembler) setDiagnoses(row *record.Row, e encounter, groups []*diagnosisGroup, coverages map[string]string, st *Stats) {
	row.SetNull(record.PrincipalPOA)
	row.SetNull(record.TypeOfCoverage)
	if len(groups) == 0 {
		return
	}
	if len(groups) > 1 {
		st.ExtraCoverageGroups += len(groups) - 1
		log.Warn().Str("encounter", e.src.ID).Int("coverages", len(groups)).Msg("Encounter has diagnoses under several coverages, using the first")
	}
	g := groups[0]

	if ct, ok := coverages[g.coverage]; ok {
		row.Set(record.TypeOfCoverage, a.codes.CoverageType.Translate(ct))
	}

	row.SetList(record.DiagnosisCodes, g.codes)
	row.SetList(record.POAList, g.poas)

	pairs := make([][2]string, len(g.codes))
	for i := range g.codes {
		pairs[i] = [2]string{g.codes[i], g.poas[i]}
	}
	dropped := Spread(a.diags, pairs,
		func(p [2]string) {
			row.Set(record.PrincipalDiagnosis, p[0])
			row.SetValue(record.PrincipalPOA, null.NewString(p[1], p[1] != ""))
		},
		func(slot int, p [2]string) {
			row.Set(record.OtherDiagnosis(slot), p[0])
			row.SetValue(record.OtherPOA(slot), null.NewString(p[1], p[1] != ""))
		})
	if dropped > 0 {
		st.DiagnosisOverflow += dropped
		log.Warn().Str("encounter", e.src.ID).Int("diagnoses", len(pairs)).Int("dropped", dropped).Msg("Diagnosis list exceeds the available slots, truncating")
	}
}

func (a *Assembler) setLanguage(row *record.Row, value string) {
	if value == "" {
		row.SetNull(record.LanguageWriteIn)
		row.SetNull(record.LanguageCode)
		return
	}
	writeIn := a.codes.LanguageWriteIn.Translate(value)
	row.SetValue(record.LanguageWriteIn, null.NewString(writeIn, writeIn != ""))
	code := a.codes.Language.Translate(writeIn)
	row.SetValue(record.LanguageCode, null.NewString(code, code != ""))
}
