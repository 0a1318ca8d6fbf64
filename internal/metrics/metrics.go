// Package metrics records pipeline counters in a private Prometheus registry
// and snapshots them to a textfile next to the report.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"visionfix/internal/ledger"
	"visionfix/internal/logging"
	"visionfix/internal/perception"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "visionfix"

// Collection results.
const (
	CollectionOK     = "ok"
	CollectionFailed = "failed"
	CollectionEmpty  = "empty"
)

// Recorder holds every pipeline metric. A nil *Recorder records nothing.
type Recorder struct {
	registry *prometheus.Registry

	cycles            prometheus.Counter
	collections       *prometheus.CounterVec
	artifacts         prometheus.Counter
	analyses          *prometheus.CounterVec
	defects           prometheus.Counter
	bugsNew           prometheus.Counter
	fixAttempts       *prometheus.CounterVec
	bugs              *prometheus.GaugeVec
	runDuration       prometheus.Gauge
	inferenceDuration *prometheus.HistogramVec
	inferenceErrors   *prometheus.CounterVec
}

// New creates a recorder with its own registry.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	r := &Recorder{
		registry: reg,
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "cycles_total",
			Help: "Cycles started",
		}),
		collections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "collect", Name: "runs_total",
			Help: "Screenshot collections by result",
		}, []string{"result"}),
		artifacts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "collect", Name: "artifacts_total",
			Help: "Screenshots captured",
		}),
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "vision", Name: "analyses_total",
			Help: "Screenshot analyses by result",
		}, []string{"result"}),
		defects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "vision", Name: "defects_reported_total",
			Help: "Defects reported by the vision model, duplicates included",
		}),
		bugsNew: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "bugs_new_total",
			Help: "Distinct bugs added to the ledger",
		}),
		fixAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "fix", Name: "attempts_total",
			Help: "Fix attempts by outcome",
		}, []string{"outcome"}),
		bugs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ledger", Name: "bugs",
			Help: "Bugs by final status",
		}, []string{"status"}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "pipeline", Name: "run_duration_seconds",
			Help: "Wall time of the run",
		}),
		inferenceDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "inference", Name: "request_duration_seconds",
			Help:    "Inference request latency",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"provider", "op", "model", "status"}),
		inferenceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "inference", Name: "errors_total",
			Help: "Inference failures by kind",
		}, []string{"provider", "kind"}),
	}
	reg.MustRegister(
		r.cycles, r.collections, r.artifacts, r.analyses, r.defects, r.bugsNew,
		r.fixAttempts, r.bugs, r.runDuration, r.inferenceDuration, r.inferenceErrors,
	)
	return r
}

// Registry exposes the registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// RecordCycle counts a started cycle.
func (r *Recorder) RecordCycle() {
	if r == nil {
		return
	}
	r.cycles.Inc()
}

// RecordCollection counts one collection and the screenshots it produced.
func (r *Recorder) RecordCollection(result string, artifacts int) {
	if r == nil {
		return
	}
	r.collections.WithLabelValues(result).Inc()
	r.artifacts.Add(float64(artifacts))
}

// RecordAnalysis counts one screenshot analysis.
func (r *Recorder) RecordAnalysis(ok bool, defects int) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.analyses.WithLabelValues(result).Inc()
	r.defects.Add(float64(defects))
}

// RecordNewBugs counts bugs added to the ledger.
func (r *Recorder) RecordNewBugs(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.bugsNew.Add(float64(n))
}

// RecordFixAttempt counts one fix attempt.
func (r *Recorder) RecordFixAttempt(outcome ledger.Outcome) {
	if r == nil {
		return
	}
	r.fixAttempts.WithLabelValues(string(outcome)).Inc()
}

// SetFinal records the final partition and run duration.
func (r *Recorder) SetFinal(p ledger.Partition, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.bugs.WithLabelValues(string(ledger.StatusFixed)).Set(float64(len(p.Fixed)))
	r.bugs.WithLabelValues(string(ledger.StatusUnresolved)).Set(float64(len(p.Unresolved)))
	r.bugs.WithLabelValues(string(ledger.StatusRemaining)).Set(float64(len(p.Remaining)))
	r.runDuration.Set(elapsed.Seconds())
}

// ObserveInference implements perception.Observer.
func (r *Recorder) ObserveInference(provider, op, model string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		kind := string(perception.KindOf(err))
		if kind == "" {
			kind = "other"
		}
		r.inferenceErrors.WithLabelValues(provider, kind).Inc()
	}
	r.inferenceDuration.WithLabelValues(provider, op, model, status).Observe(elapsed.Seconds())
}

// WriteTextfile writes pipeline-<stamp>.prom into dir.
func (r *Recorder) WriteTextfile(dir, stamp string) (string, error) {
	if r == nil {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create metrics dir: %w", err)
	}
	path := filepath.Join(dir, "pipeline-"+stamp+".prom")
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		logging.MetricsWarn("Failed to write metrics snapshot: %v", err)
		return "", fmt.Errorf("write metrics: %w", err)
	}
	logging.Metrics("Metrics snapshot saved to %s", path)
	return path, nil
}

var _ perception.Observer = (*Recorder)(nil)
