package render

import (
	"sort"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/dischargeformat/internal/layout"
	"stealthcompany.com/dischargeformat/internal/record"
)

// Completeness reports the fields that had to be filled with null.
type Completeness struct {
	MissingRequired map[string]int
	MissingOptional map[string]int
}

// Fields returns the missing required field keys in sorted order.
func (c Completeness) Fields() []string {
	out := make([]string, 0, len(c.MissingRequired))
	for k := range c.MissingRequired {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Complete ensures every row holds every field of lay. Absent fields are set
// to null; absent required fields are logged once per field.
func Complete(rows []*record.Row, lay *layout.Layout) Completeness {
	c := Completeness{
		MissingRequired: make(map[string]int),
		MissingOptional: make(map[string]int),
	}
	fields := lay.All()
	for _, r := range rows {
		for _, f := range fields {
			if r.Has(f.Key) {
				continue
			}
			r.SetNull(f.Key)
			if f.Required {
				c.MissingRequired[f.Key]++
			} else {
				c.MissingOptional[f.Key]++
			}
		}
	}
	for _, k := range c.Fields() {
		log.Warn().Str("layout", lay.Family).Str("field", k).Int("rows", c.MissingRequired[k]).Msg("Required field missing, filled with null")
	}
	return c
}
