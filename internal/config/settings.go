package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const defaultCountryCode = "US"

// Settings are the generator settings the formatter needs.
type Settings struct {
	CountryCode string
}

// ReadSettings reads a generator settings file in Java properties format. A
// missing file yields the defaults.
func ReadSettings(path string) (Settings, error) {
	s := Settings{CountryCode: defaultCountryCode}
	if path == "" {
		return s, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		log.Warn().Str("path", path).Str("country_code", s.CountryCode).Msg("Generator settings file not found, using defaults")
		return s, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("properties")
	if err := v.ReadInConfig(); err != nil {
		return s, fmt.Errorf("failed to read settings %s: %w", path, err)
	}
	if cc := strings.TrimSpace(v.GetString("generate.geography.country_code")); cc != "" {
		s.CountryCode = cc
	}
	return s, nil
}
