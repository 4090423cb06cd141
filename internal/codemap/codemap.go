// Package codemap translates generator vocabulary into HCAI target codes.
//
// Each table is a black-box Translator; the built-in tables cover the codes
// the generator emits by default and can be extended or replaced with
// two-column CSV files (see LoadOverrides).
package codemap

import (
	"strings"
)

// Translator maps one source code to one target code.
type Translator interface {
	Translate(code string) string
}

// Table is a map-backed Translator with a fallback for unknown codes.
type Table struct {
	Name     string
	entries  map[string]string
	fallback func(code string) string
	fold     bool
}

// NewTable builds a table. When fold is true, lookups are case-insensitive.
// A nil fallback returns def for unknown codes.
func NewTable(name string, entries map[string]string, def string, fold bool) *Table {
	t := &Table{Name: name, entries: make(map[string]string, len(entries)), fold: fold}
	for k, v := range entries {
		t.entries[t.key(k)] = v
	}
	t.fallback = func(string) string { return def }
	return t
}

// newPassthrough builds a table that returns unknown codes unchanged.
func newPassthrough(name string, entries map[string]string) *Table {
	t := NewTable(name, entries, "", false)
	t.fallback = func(code string) string { return code }
	return t
}

func (t *Table) key(code string) string {
	code = strings.TrimSpace(code)
	if t.fold {
		return strings.ToLower(code)
	}
	return code
}

// Translate returns the mapped code or the table fallback
func (t *Table) Translate(code string) string {
	if v, ok := t.entries[t.key(code)]; ok {
		return v
	}
	return t.fallback(code)
}

// Len returns the number of explicit entries
func (t *Table) Len() int {
	return len(t.entries)
}

// Merge adds or replaces entries.
func (t *Table) Merge(entries map[string]string) {
	for k, v := range entries {
		t.entries[t.key(k)] = v
	}
}

// Set bundles every lookup the assembler needs.
type Set struct {
	Ethnicity       *Table
	Race            *Table
	Sex             *Table
	SnomedICD       *Table
	LARCProcedure   *Table
	CoverageType    *Table
	LanguageWriteIn *Table
	Language        *Table
	County          *Table
	State           *Table
}

// Default returns a Set built from the built-in tables.
func Default() *Set {
	return &Set{
		Ethnicity:       NewTable("ethnicity", ethnicityCodes, "99", false),
		Race:            NewTable("race", raceCodes, "99", false),
		Sex:             NewTable("sex", sexCodes, "U", false),
		SnomedICD:       NewTable("snomed_icd", snomedICD, "", false),
		LARCProcedure:   newPassthrough("larc_procedure", larcProcedures),
		CoverageType:    NewTable("coverage_type", coverageTypes, "3", true),
		LanguageWriteIn: newLanguageWriteIn(),
		Language:        NewTable("language", languageCodes, "", true),
		County:          newCountyTable(),
		State:           newStateTable(),
	}
}

// Tables returns the set's tables by name, used for overrides and listing.
func (s *Set) Tables() map[string]*Table {
	return map[string]*Table{
		s.Ethnicity.Name:       s.Ethnicity,
		s.Race.Name:            s.Race,
		s.Sex.Name:             s.Sex,
		s.SnomedICD.Name:       s.SnomedICD,
		s.LARCProcedure.Name:   s.LARCProcedure,
		s.CoverageType.Name:    s.CoverageType,
		s.LanguageWriteIn.Name: s.LanguageWriteIn,
		s.Language.Name:        s.Language,
		s.County.Name:          s.County,
		s.State.Name:           s.State,
	}
}

// PayerCategory classifies a payer by its name and ownership class.
func PayerCategory(name, ownership string) string {
	switch strings.ToUpper(strings.TrimSpace(ownership)) {
	case "GOVERNMENT":
		if c, ok := governmentPayers[strings.ToLower(strings.TrimSpace(name))]; ok {
			return c
		}
		return "06"
	case "PRIVATE":
		return "03"
	case "NO_INSURANCE":
		return "08"
	}
	return "09"
}

// Disposition returns the HCAI patient disposition options.
func Disposition() []string {
	out := make([]string, len(dispositionCodes))
	copy(out, dispositionCodes)
	return out
}

// DRG is an MS-DRG assignment with its major diagnostic category.
type DRG struct {
	Code string
	MDC  string
}

// LARCGroup assigns an MS-DRG from the procedure codes of one encounter.
// Rules are checked in order and the last match wins.
func LARCGroup(codes []string) (DRG, bool) {
	var out DRG
	found := false
	for _, rule := range larcDRGRules {
		for _, c := range codes {
			if c == rule.procedure {
				out = rule.drg
				found = true
				break
			}
		}
	}
	return out, found
}
