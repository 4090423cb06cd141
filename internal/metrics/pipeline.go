package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"stealthcompany.com/dischargeformat/internal/assemble"
	"stealthcompany.com/dischargeformat/internal/render"
	"stealthcompany.com/dischargeformat/internal/synth"
)

// Pipeline holds the formatting run metrics
type Pipeline struct {
	stageDuration     *prometheus.HistogramVec
	rows              *prometheus.GaugeVec
	parseErrors       *prometheus.CounterVec
	missingFields     *prometheus.CounterVec
	slotOverflow      *prometheus.CounterVec
	droppedEncounters *prometheus.CounterVec
	redrawn           *prometheus.CounterVec
	filesWritten      *prometheus.CounterVec
	lastSuccess       prometheus.Gauge
}

// NewPipeline creates and registers the pipeline collectors
func NewPipeline(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Time spent in each pipeline stage",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
			[]string{"stage"},
		),
		rows: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows",
				Help:      "Rows produced by the last run of each stage",
			},
			[]string{"stage"},
		),
		parseErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "parse_errors_total",
				Help:      "Source values that could not be parsed, by field",
			},
			[]string{"field"},
		),
		missingFields: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "missing_fields_total",
				Help:      "Output fields filled with null because no value was produced",
			},
			[]string{"layout", "field", "required"},
		),
		slotOverflow: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "slot_overflow_total",
				Help:      "Codes dropped because an encounter had more than the layout holds",
			},
			[]string{"kind"},
		),
		droppedEncounters: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_encounters_total",
				Help:      "Encounters not emitted, by reason",
			},
			[]string{"reason"},
		),
		redrawn: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "synthetic_redraws_total",
				Help:      "Synthetic attributes redrawn by consistency rules",
			},
			[]string{"field"},
		),
		filesWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "files_written_total",
				Help:      "Output files written",
			},
			[]string{"layout", "format"},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful run",
			},
		),
	}
	reg.MustRegister(
		p.stageDuration,
		p.rows,
		p.parseErrors,
		p.missingFields,
		p.slotOverflow,
		p.droppedEncounters,
		p.redrawn,
		p.filesWritten,
		p.lastSuccess,
	)
	return p
}

// ObserveStage records how long a stage took
func (p *Pipeline) ObserveStage(stage string, d time.Duration) {
	p.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// SetRows records the row count a stage produced
func (p *Pipeline) SetRows(stage string, n int) {
	p.rows.WithLabelValues(stage).Set(float64(n))
}

// RecordAssembly records the counters of one assembly pass.
func (p *Pipeline) RecordAssembly(st assemble.Stats) {
	for field, n := range st.ParseErrors {
		p.parseErrors.WithLabelValues(field).Add(float64(n))
	}
	dropped := map[string]int{
		"class":           st.ClassFiltered,
		"invalid":         st.InvalidEncounters,
		"unknown_patient": st.UnknownPatient,
		"unmatched":       st.Unmatched,
		"year":            st.YearFiltered,
	}
	for reason, n := range dropped {
		if n > 0 {
			p.droppedEncounters.WithLabelValues(reason).Add(float64(n))
		}
	}
	if st.ProcedureOverflow > 0 {
		p.slotOverflow.WithLabelValues("procedure").Add(float64(st.ProcedureOverflow))
	}
	if st.DiagnosisOverflow > 0 {
		p.slotOverflow.WithLabelValues("diagnosis").Add(float64(st.DiagnosisOverflow))
	}
}

// RecordSynthesis records the redraw counters of one synthesis pass
func (p *Pipeline) RecordSynthesis(st synth.Stats) {
	for field, n := range st.Redrawn {
		p.redrawn.WithLabelValues(field).Add(float64(n))
	}
}

// RecordCompleteness records the fields a layout had to fill with null.
func (p *Pipeline) RecordCompleteness(layoutName string, c render.Completeness) {
	for field, n := range c.MissingRequired {
		p.missingFields.WithLabelValues(layoutName, field, "true").Add(float64(n))
	}
	for field, n := range c.MissingOptional {
		p.missingFields.WithLabelValues(layoutName, field, "false").Add(float64(n))
	}
}

// FileWritten counts one output file
func (p *Pipeline) FileWritten(layoutName string, format render.Format) {
	p.filesWritten.WithLabelValues(layoutName, string(format)).Inc()
}

// MarkSuccess stamps the end of a successful run
func (p *Pipeline) MarkSuccess(now time.Time) {
	p.lastSuccess.Set(float64(now.Unix()))
}
