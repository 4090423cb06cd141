// Package pgstage stages assembled discharge records in PostgreSQL for
// downstream validation queries.
package pgstage

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/dischargeformat/internal/layout"
	"stealthcompany.com/dischargeformat/internal/record"
)

//go:embed schema.sql
var schema string

const copyBatch = 10000

var valueColumns = []string{"run_id", "layout", "row_index", "patient_id", "encounter_id", "field", "value"}

// Stager writes runs into the staging tables.
type Stager struct {
	pool *pgxpool.Pool
}

// Connect opens a pool against connStr and verifies it.
func Connect(ctx context.Context, connStr string) (*Stager, error) {
	poolConfig, err := pgxpool.ParseConfig(connStr)
	if err != nil {
		return nil, fmt.Errorf("parse connection: %w", err)
	}
	poolConfig.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &Stager{pool: pool}, nil
}

// EnsureSchema creates the staging tables when absent.
func (s *Stager) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Stage replaces any previous copy of runID's layout with rows, one value per layout
// field, inside a single transaction. It returns the number of values copied.
func (s *Stager) Stage(ctx context.Context, runID string, seed int64, rows []*record.Row, lay *layout.Layout) (int64, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM discharge_runs WHERE run_id = $1 AND layout = $2`, runID, lay.Family); err != nil {
		return 0, fmt.Errorf("clear run: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO discharge_runs (run_id, layout, seed, row_count) VALUES ($1, $2, $3, $4)`,
		runID, lay.Family, seed, len(rows)); err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	fields := lay.All()
	pending := make([][]any, 0, copyBatch)
	var copied int64
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		n, err := tx.CopyFrom(ctx, pgx.Identifier{"discharge_values"}, valueColumns, pgx.CopyFromRows(pending))
		if err != nil {
			return fmt.Errorf("copy discharge_values: %w", err)
		}
		copied += n
		pending = pending[:0]
		return nil
	}

	for i, r := range rows {
		for _, f := range fields {
			var value any
			if v := r.Value(f.Key); v.Valid {
				value = v.String
			}
			pending = append(pending, []any{runID, lay.Family, int32(i), r.PatientID, r.EncounterID, f.Key, value})
			if len(pending) == copyBatch {
				if err := flush(); err != nil {
					return copied, err
				}
			}
		}
	}
	if err := flush(); err != nil {
		return copied, err
	}
	if err := tx.Commit(ctx); err != nil {
		return copied, fmt.Errorf("commit: %w", err)
	}

	log.Info().Str("run_id", runID).Str("layout", lay.Family).Int64("values", copied).Msg("Staged run in postgres")
	return copied, nil
}

// Value returns one staged value; ok is false when it is null.
func (s *Stager) Value(ctx context.Context, runID, encounterID, field string) (value string, ok bool, err error) {
	var v *string
	err = s.pool.QueryRow(ctx,
		`SELECT value FROM discharge_values WHERE run_id = $1 AND encounter_id = $2 AND field = $3`,
		runID, encounterID, field).Scan(&v)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

// Count returns the number of staged values for runID.
func (s *Stager) Count(ctx context.Context, runID string) (int64, error) {
	var n int64
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM discharge_values WHERE run_id = $1`, runID).Scan(&n)
	return n, err
}

func (s *Stager) Close() {
	s.pool.Close()
}
