// Package orchestrator sequences a formatting run: load, assemble, synthesize,
// render and the optional sinks.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"stealthcompany.com/dischargeformat/internal/assemble"
	"stealthcompany.com/dischargeformat/internal/codemap"
	"stealthcompany.com/dischargeformat/internal/config"
	"stealthcompany.com/dischargeformat/internal/couchbase"
	"stealthcompany.com/dischargeformat/internal/layout"
	"stealthcompany.com/dischargeformat/internal/metrics"
	"stealthcompany.com/dischargeformat/internal/parquetexport"
	"stealthcompany.com/dischargeformat/internal/record"
	"stealthcompany.com/dischargeformat/internal/render"
	"stealthcompany.com/dischargeformat/internal/source"
	"stealthcompany.com/dischargeformat/internal/synth"
)

// Registry records runs and serializes writers of one output directory.
type Registry interface {
	Lock(ctx context.Context, runID string) error
	Unlock(ctx context.Context) error
	BeginRun(ctx context.Context, m *couchbase.RunManifest) error
	CompleteRun(ctx context.Context, m *couchbase.RunManifest) error
}

// Stager copies finished rows into a relational staging store.
type Stager interface {
	Stage(ctx context.Context, runID string, seed int64, rows []*record.Row, lay *layout.Layout) (int64, error)
}

// Runner executes one formatting run.
type Runner struct {
	Config *config.Config
	Seed   int64
	RunID  string
	Now    func() time.Time

	Metrics  *metrics.Set
	Tracker  *metrics.Tracker
	Registry Registry // optional
	Stager   Stager   // optional

	elapsed map[string]time.Duration
}

// Result summarizes a completed run.
type Result struct {
	RunID   string
	Seed    int64
	Files   []string
	Rows    map[string]int
	Elapsed map[string]time.Duration
}

// Run executes the pipeline. ctx is checked between stages; a cancelled run
// writes no further files.
func (r *Runner) Run(ctx context.Context) (res *Result, err error) {
	if r.Config == nil {
		return nil, errors.New("runner has no configuration")
	}
	if r.Now == nil {
		r.Now = time.Now
	}
	if r.Metrics == nil {
		r.Metrics = metrics.New()
	}
	if r.Tracker == nil {
		r.Tracker = &metrics.Tracker{}
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	r.elapsed = make(map[string]time.Duration)

	cfg := r.Config
	targets, err := cfg.Targets()
	if err != nil {
		return nil, err
	}
	years, err := cfg.Years()
	if err != nil {
		return nil, err
	}

	res = &Result{RunID: r.RunID, Seed: r.Seed, Rows: make(map[string]int), Elapsed: r.elapsed}
	started := r.Now()
	r.Tracker.Update(func(s *metrics.Status) {
		s.RunID = r.RunID
		s.StartedAt = started
		s.Done = false
		s.Error = ""
	})
	logger := log.With().Str("runId", r.RunID).Logger()
	logger.Info().Int64("seed", r.Seed).Str("input", cfg.SyntheaOutputDir).Str("formatType", cfg.FormatType).Msg("Starting formatting run")

	if r.Registry != nil {
		if err := r.Registry.Lock(ctx, r.RunID); err != nil {
			return nil, fmt.Errorf("failed to lock output: %w", err)
		}
		defer func() {
			if uerr := r.Registry.Unlock(context.WithoutCancel(ctx)); uerr != nil {
				logger.Warn().Err(uerr).Msg("Failed to release output lock")
			}
		}()

		manifest := &couchbase.RunManifest{
			RunID:     r.RunID,
			Seed:      r.Seed,
			InputDir:  cfg.SyntheaOutputDir,
			StartedAt: started.UTC(),
		}
		if err := r.Registry.BeginRun(ctx, manifest); err != nil {
			return nil, fmt.Errorf("failed to record run: %w", err)
		}
		defer func() {
			manifest.Files = res.Files
			manifest.Rows = res.Rows
			for family := range res.Rows {
				manifest.Layouts = append(manifest.Layouts, family)
			}
			sort.Strings(manifest.Layouts)
			manifest.Finish(r.Now(), err)
			if cerr := r.Registry.CompleteRun(context.WithoutCancel(ctx), manifest); cerr != nil {
				logger.Warn().Err(cerr).Msg("Failed to record run completion")
			}
		}()
	}

	defer func() {
		r.Tracker.Update(func(s *metrics.Status) {
			s.Done = true
			s.Rows = res.Rows
			if err != nil {
				s.Error = err.Error()
			}
		})
	}()

	var tables *source.Tables
	var settings config.Settings
	codes := codemap.Default()
	err = r.stage("load", func() error {
		var lerr error
		settings, lerr = config.ReadSettings(cfg.SettingsFile)
		if lerr != nil {
			return lerr
		}
		if cfg.MappingDir != "" {
			n, lerr := codes.LoadOverrides(cfg.MappingDir)
			if lerr != nil {
				return fmt.Errorf("failed to load code overrides: %w", lerr)
			}
			logger.Info().Int("entries", n).Str("dir", cfg.MappingDir).Msg("Loaded code table overrides")
		}
		var stats []source.TableStats
		tables, stats, lerr = source.NewLoader(cfg.SyntheaOutputDir, cfg.SourceChunkSize).Load(ctx)
		for _, st := range stats {
			r.Metrics.Pipeline.SetRows("load_"+st.Table, st.Rows)
		}
		return lerr
	})
	if err != nil {
		return res, err
	}

	namer := render.Namer{Dir: cfg.OutputDir, Now: r.Now}
	for _, family := range families(targets) {
		if err = ctx.Err(); err != nil {
			return res, err
		}
		var files []string
		files, err = r.runFamily(ctx, family, formatsOf(targets, family), tables, settings, codes, years, namer, res)
		res.Files = append(res.Files, files...)
		if err != nil {
			return res, err
		}
	}

	r.Metrics.Pipeline.MarkSuccess(r.Now())
	r.logSummary(logger, res)
	return res, nil
}

func (r *Runner) runFamily(ctx context.Context, family string, formats []render.Format, tables *source.Tables,
	settings config.Settings, codes *codemap.Set, years *assemble.YearRange, namer render.Namer, res *Result) ([]string, error) {
	cfg := r.Config
	lay, err := layout.Load(family)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("runId", r.RunID).Str("layout", family).Logger()

	var rows []*record.Row
	err = r.stage("assemble", func() error {
		a := assemble.New(assemble.Config{
			EncounterClasses: cfg.EncounterClasses(),
			Years:            years,
			DateLayout:       lay.DateLayout(),
			CountryCode:      settings.CountryCode,
			FacilityID:       cfg.FacilityID,
		}, codes)
		var st assemble.Stats
		var aerr error
		rows, st, aerr = a.Assemble(ctx, tables)
		r.Metrics.Pipeline.RecordAssembly(st)
		r.Metrics.Pipeline.SetRows("assemble", len(rows))
		return aerr
	})
	if err != nil {
		return nil, err
	}
	res.Rows[family] = len(rows)
	r.Tracker.Update(func(s *metrics.Status) {
		if s.Rows == nil {
			s.Rows = make(map[string]int)
		}
		s.Rows[family] = len(rows)
	})

	if err := r.stage("synthesize", func() error {
		st := synth.New(r.Seed).Apply(rows)
		r.Metrics.Pipeline.RecordSynthesis(st)
		logger.Info().Int("rows", st.Rows).Int("distinctSSNs", st.DistinctSSNs).Int("coverageZeroed", st.CoverageZeroed).Msg("Synthetic attributes applied")
		return ctx.Err()
	}); err != nil {
		return nil, err
	}

	if err := r.stage("complete", func() error {
		c := render.Complete(rows, lay)
		r.Metrics.Pipeline.RecordCompleteness(family, c)
		return ctx.Err()
	}); err != nil {
		return nil, err
	}

	var files []string
	for _, format := range formats {
		err := r.stage("render", func() error {
			written, werr := r.writeOutput(ctx, namer.Path(family, format), rows, lay, format, years)
			files = append(files, written...)
			return werr
		})
		if err != nil {
			return files, err
		}
	}

	if cfg.ParquetExport {
		path := namer.File(family, "values", ".parquet")
		err := r.stage("parquet", func() error {
			n, perr := parquetexport.Export(path, r.RunID, rows, lay)
			if perr == nil {
				logger.Info().Str("path", path).Int("values", n).Msg("Parquet export written")
			}
			return perr
		})
		if err != nil {
			return files, err
		}
		files = append(files, path)
	}

	if r.Stager != nil {
		err := r.stage("stage", func() error {
			n, serr := r.Stager.Stage(ctx, r.RunID, r.Seed, rows, lay)
			if serr == nil {
				logger.Info().Int64("values", n).Msg("Rows staged")
			}
			return serr
		})
		if err != nil {
			return files, err
		}
	}
	return files, nil
}

// writeOutput writes the combined file and, when partitioning, one more file
// per year of the range.
func (r *Runner) writeOutput(ctx context.Context, base string, rows []*record.Row, lay *layout.Layout,
	format render.Format, years *assemble.YearRange) ([]string, error) {
	opts := render.Options{Format: format, Verbose: r.Config.Verbose}
	write := func(path string, rows []*record.Row) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := render.WriteFile(path, func(w io.Writer) error {
			return render.Render(w, rows, lay, opts)
		})
		if err != nil {
			return err
		}
		r.Metrics.Pipeline.FileWritten(lay.Family, format)
		log.Info().Str("path", path).Int("rows", len(rows)).Str("format", string(format)).Msg("Output file written")
		return nil
	}

	if err := write(base, rows); err != nil {
		return nil, err
	}
	files := []string{base}
	if !r.Config.Yearly || years == nil {
		return files, nil
	}

	yearList := years.Years()
	parts := render.Partition(rows, yearList)
	for _, y := range yearList {
		path := render.YearPath(base, y)
		if err := write(path, parts[y]); err != nil {
			return files, err
		}
		files = append(files, path)
	}
	return files, nil
}

// stage runs fn as a named, timed pipeline stage.
func (r *Runner) stage(name string, fn func() error) error {
	r.Tracker.Update(func(s *metrics.Status) { s.Stage = name })
	log.Info().Str("stage", name).Msg("Stage started")

	start := time.Now()
	err := fn()
	d := time.Since(start)

	r.elapsed[name] += d
	r.Metrics.Pipeline.ObserveStage(name, d)
	if err != nil {
		log.Error().Err(err).Str("stage", name).Dur("elapsed", d).Msg("Stage failed")
		return err
	}
	log.Info().Str("stage", name).Dur("elapsed", d).Msg("Stage finished")
	return nil
}

func (r *Runner) logSummary(logger zerolog.Logger, res *Result) {
	ev := logger.Info().Int("files", len(res.Files))
	for _, name := range []string{"load", "assemble", "synthesize", "complete", "render", "parquet", "stage"} {
		if d, ok := r.elapsed[name]; ok {
			ev = ev.Dur(name, d)
		}
	}
	for family, n := range res.Rows {
		ev = ev.Int("rows_"+family, n)
	}
	ev.Msg("Formatting run complete")
}

// families returns the distinct layout families of targets in order.
func families(targets []config.Target) []string {
	var out []string
	seen := map[string]bool{}
	for _, t := range targets {
		if !seen[t.Family] {
			seen[t.Family] = true
			out = append(out, t.Family)
		}
	}
	return out
}

func formatsOf(targets []config.Target, family string) []render.Format {
	var out []render.Format
	for _, t := range targets {
		if t.Family == family {
			out = append(out, t.Format)
		}
	}
	return out
}
