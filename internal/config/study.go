package config

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Study is a named preset of run settings.
type Study struct {
	EncounterType string
	FormatType    string
	SettingsFile  string
}

var studies = map[string]Study{
	"LARC": {
		EncounterType: "emergency",
		FormatType:    FormatPDDCSV,
		SettingsFile:  filepath.Join("StudyOverrides", "LARC", "synthea_settings"),
	},
}

// ApplyStudy overrides encounter type, format and settings file with the
// preset named by STUDY.
func (c *Config) ApplyStudy() error {
	name := strings.TrimSpace(c.Study)
	if name == "" {
		return nil
	}
	s, ok := studies[strings.ToUpper(name)]
	if !ok {
		return fmt.Errorf("unknown STUDY %q", c.Study)
	}
	c.EncounterType = s.EncounterType
	c.FormatType = s.FormatType
	c.SettingsFile = s.SettingsFile
	return nil
}
