// Package metrics records the progress of a rolling run as Prometheus
// metrics, exported through the node_exporter textfile collector.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fleetops/fleetops/pkg/hostset"
	"github.com/fleetops/fleetops/pkg/rolling"
)

const namespace = "fleetops"

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder is a rolling.Observer. It owns a dedicated registry so that a
// textfile export contains the run metrics only.
type Recorder struct {
	registry *prometheus.Registry

	batches        *prometheus.CounterVec
	hosts          *prometheus.CounterVec
	batchDuration  *prometheus.HistogramVec
	currentState   *prometheus.GaugeVec
	lastBatchIndex prometheus.Gauge
	lastFinished   prometheus.Gauge

	action string
	now    func() time.Time
}

func NewRecorder(action string, now func() time.Time) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Batches processed by the run, by outcome.",
		}, []string{"action", "outcome"}),
		hosts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hosts_total",
			Help:      "Hosts processed by the run, by outcome.",
		}, []string{"action", "outcome"}),
		batchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_duration_seconds",
			Help:      "Wall time of a batch, grace sleep included.",
			Buckets:   prometheus.ExponentialBuckets(15, 2, 8),
		}, []string{"action"}),
		currentState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_state",
			Help:      "1 for the state the current batch is in.",
		}, []string{"action", "state"}),
		lastBatchIndex: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_index",
			Help:      "1-based index of the last batch started.",
		}),
		lastFinished: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_batch_finished_timestamp_seconds",
			Help:      "Unix time the last batch finished at.",
		}),
		action: action,
		now:    now,
	}

	r.registry.MustRegister(r.batches, r.hosts, r.batchDuration, r.currentState, r.lastBatchIndex, r.lastFinished)
	return r
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func (r *Recorder) BatchStarted(batch hostset.Batch) {
	r.lastBatchIndex.Set(float64(batch.Index))
}

func (r *Recorder) StateChanged(_ hostset.Batch, state rolling.State) {
	r.currentState.Reset()
	r.currentState.WithLabelValues(r.action, state.String()).Set(1)
}

func (r *Recorder) BatchFinished(batch hostset.Batch, err error, elapsed time.Duration) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}

	r.batches.WithLabelValues(r.action, outcome).Inc()
	r.hosts.WithLabelValues(r.action, outcome).Add(float64(batch.Hosts.Len()))
	r.batchDuration.WithLabelValues(r.action).Observe(elapsed.Seconds())
	r.lastFinished.Set(float64(r.now().Unix()))
}

// WriteTextfile atomically replaces path with the current metrics.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}

var _ rolling.Observer = &Recorder{}
