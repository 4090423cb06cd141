package metrics

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// SystemCollector samples host, process and Go runtime gauges
type SystemCollector struct {
	// System metrics
	systemCPUUsage    *prometheus.GaugeVec
	systemMemoryUsage *prometheus.GaugeVec

	// Go runtime metrics
	goGoroutines    prometheus.Gauge
	goHeapAlloc     prometheus.Gauge
	goHeapSys       prometheus.Gauge
	goGCPauseNs     prometheus.Histogram
	goGCCPUFraction prometheus.Gauge

	// Process metrics
	processRSS       prometheus.Gauge
	processOpenFDs   prometheus.Gauge
	processStartTime prometheus.Gauge

	proc *process.Process
	mu   sync.Mutex
}

// NewSystemCollector creates and registers the host collectors
func NewSystemCollector(reg prometheus.Registerer) *SystemCollector {
	sc := &SystemCollector{
		systemCPUUsage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_cpu_usage_percent",
				Help: "Current CPU usage percentage",
			},
			[]string{"core"},
		),
		systemMemoryUsage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "system_memory_usage_bytes",
				Help: "Current memory usage in bytes",
			},
			[]string{"type"},
		),
		goGoroutines: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "go_goroutines",
			Help: "Number of goroutines that currently exist",
		}),
		goHeapAlloc: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "go_heap_alloc_bytes",
			Help: "Heap memory usage in bytes",
		}),
		goHeapSys: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "go_heap_sys_bytes",
			Help: "Heap memory reserved in bytes",
		}),
		goGCPauseNs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "go_gc_pause_nanoseconds",
			Help:    "GC pause time in nanoseconds",
			Buckets: prometheus.ExponentialBuckets(1000, 2, 20),
		}),
		goGCCPUFraction: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "go_gc_cpu_fraction",
			Help: "Fraction of CPU time used by GC",
		}),
		processRSS: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "process_resident_memory_bytes",
			Help: "Resident set size of this process in bytes",
		}),
		processOpenFDs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "process_open_fds",
			Help: "Number of open file descriptors",
		}),
		processStartTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "process_start_time_seconds",
			Help: "Start time of the process since unix epoch in seconds",
		}),
	}

	reg.MustRegister(
		sc.systemCPUUsage,
		sc.systemMemoryUsage,
		sc.goGoroutines,
		sc.goHeapAlloc,
		sc.goHeapSys,
		sc.goGCPauseNs,
		sc.goGCCPUFraction,
		sc.processRSS,
		sc.processOpenFDs,
		sc.processStartTime,
	)

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn().Err(err).Msg("Process metrics unavailable")
	} else {
		sc.proc = proc
		if created, err := proc.CreateTime(); err == nil {
			sc.processStartTime.Set(float64(created) / 1000)
		}
	}
	return sc
}

// Run samples every interval until ctx is done.
func (sc *SystemCollector) Run(ctx context.Context, interval time.Duration) {
	sc.Collect()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sc.Collect()
		}
	}
}

// Collect takes one sample of every gauge
func (sc *SystemCollector) Collect() {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	sc.collectSystemMetrics()
	sc.collectProcessMetrics()
	sc.collectGoRuntimeMetrics()
}

func (sc *SystemCollector) collectSystemMetrics() {
	if cpuPercentages, err := cpu.Percent(0, true); err == nil {
		for i, percentage := range cpuPercentages {
			sc.systemCPUUsage.WithLabelValues(fmt.Sprintf("cpu%d", i)).Set(percentage)
		}
	}

	if vmstat, err := mem.VirtualMemory(); err == nil {
		sc.systemMemoryUsage.WithLabelValues("total").Set(float64(vmstat.Total))
		sc.systemMemoryUsage.WithLabelValues("available").Set(float64(vmstat.Available))
		sc.systemMemoryUsage.WithLabelValues("used").Set(float64(vmstat.Used))
		sc.systemMemoryUsage.WithLabelValues("free").Set(float64(vmstat.Free))
	}
}

func (sc *SystemCollector) collectProcessMetrics() {
	if sc.proc == nil {
		return
	}
	if info, err := sc.proc.MemoryInfo(); err == nil {
		sc.processRSS.Set(float64(info.RSS))
	}
	// Not supported on every platform
	if fds, err := sc.proc.NumFDs(); err == nil {
		sc.processOpenFDs.Set(float64(fds))
	}
}

func (sc *SystemCollector) collectGoRuntimeMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	sc.goGoroutines.Set(float64(runtime.NumGoroutine()))
	sc.goHeapAlloc.Set(float64(m.HeapAlloc))
	sc.goHeapSys.Set(float64(m.HeapSys))
	sc.goGCPauseNs.Observe(float64(m.PauseNs[(m.NumGC+255)%256]))
	sc.goGCCPUFraction.Set(m.GCCPUFraction)
}
