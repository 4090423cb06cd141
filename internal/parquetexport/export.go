// Package parquetexport writes assembled rows as a tall parquet table, one
// row per (record, field), for loading into analytical engines.
package parquetexport

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/dischargeformat/internal/layout"
	"stealthcompany.com/dischargeformat/internal/record"
	"stealthcompany.com/dischargeformat/internal/render"
)

const batchSize = 10000

// FieldValue is one field of one discharge record.
type FieldValue struct {
	RunID       string  `parquet:"run_id"`
	Layout      string  `parquet:"layout"`
	RowIndex    int64   `parquet:"row_index"`
	PatientID   string  `parquet:"patient_id"`
	EncounterID string  `parquet:"encounter_id"`
	Field       string  `parquet:"field"`
	Value       *string `parquet:"value,optional"`
}

// Export writes every layout field of every row to path and returns the
// number of parquet rows written. Null values are stored as parquet nulls.
func Export(path, runID string, rows []*record.Row, lay *layout.Layout) (int, error) {
	fields := lay.All()
	total := 0

	err := render.WriteFile(path, func(w io.Writer) error {
		writer := parquet.NewGenericWriter[FieldValue](w,
			parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
			parquet.CreatedBy("dischargefmt", "1.0", ""),
		)

		batch := make([]FieldValue, 0, batchSize)
		flush := func() error {
			n, err := writer.Write(batch)
			total += n
			batch = batch[:0]
			if err != nil {
				return fmt.Errorf("write parquet rows: %w", err)
			}
			return nil
		}

		for i, r := range rows {
			for _, f := range fields {
				fv := FieldValue{
					RunID:       runID,
					Layout:      lay.Family,
					RowIndex:    int64(i),
					PatientID:   r.PatientID,
					EncounterID: r.EncounterID,
					Field:       f.Key,
				}
				if v := r.Value(f.Key); v.Valid {
					s := v.String
					fv.Value = &s
				}
				batch = append(batch, fv)
				if len(batch) == batchSize {
					if err := flush(); err != nil {
						writer.Close()
						return err
					}
				}
			}
		}
		if err := flush(); err != nil {
			writer.Close()
			return err
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("close parquet writer: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	log.Info().Str("path", path).Int("records", len(rows)).Int("values", total).Msg("Wrote parquet export")
	return total, nil
}

// ReadAll reads an export back into memory.
func ReadAll(path string) ([]FieldValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[FieldValue](f)
	defer reader.Close()

	out := make([]FieldValue, reader.NumRows())
	n, err := reader.Read(out)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read parquet: %w", err)
	}
	return out[:n], nil
}
