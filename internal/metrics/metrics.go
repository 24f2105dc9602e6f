// Package metrics implements the worker's Instrumentation interface on
// top of a caller-supplied prometheus.Registry, so multiple sessions in
// one process (or a test) never collide on the default global registry.
// Every increment is a plain atomic counter add — no allocation, no
// label lookup on the hot path — for the counters the worker touches
// per iteration.
//
// Grounded on smazurov-videonode/internal/streaming/webrtc_metrics.go's
// Namespace/Subsystem-scoped counter style, adapted from promauto's
// implicit global registration to an explicit MustRegister against a
// registry the façade owns.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/qa40x-go/streamdriver/internal/worker"
)

const namespace = "qa40x"

// Collector is a prometheus.Registry-backed worker.Instrumentation.
// Construct one per session with New and pass it as worker.Config.Instrument.
type Collector struct {
	writes  prometheus.Counter
	reads   prometheus.Counter
	pings   prometheus.Counter
	aborts  prometheus.Counter
	faults  prometheus.Counter
	resets  prometheus.Counter
}

var _ worker.Instrumentation = (*Collector)(nil)

// New creates a Collector and registers its counters on reg, labeled
// with the device variant and session id so multiple concurrent
// Collectors (tests, or a future multi-device façade) stay distinguishable.
func New(reg *prometheus.Registry, variant, sessionID string) *Collector {
	labels := prometheus.Labels{"variant": variant, "session": sessionID}
	c := &Collector{
		writes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "writes_issued_total",
			Help:        "OUT-data transfers started by the streaming worker.",
			ConstLabels: labels,
		}),
		reads: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "reads_issued_total",
			Help:        "IN-data transfers started by the streaming worker.",
			ConstLabels: labels,
		}),
		pings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "pings_issued_total",
			Help:        "Keep-alive register writes started (QA401 only).",
			ConstLabels: labels,
		}),
		aborts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "transfers_aborted_total",
			Help:        "Faults that triggered an abort-and-drain shutdown.",
			ConstLabels: labels,
		}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "faults_total",
			Help:        "Worker faults (HwMalfunction, panic, failed reset).",
			ConstLabels: labels,
		}),
		resets: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "resets_issued_total",
			Help:        "device.Reset calls issued, including the shutdown safe-default reset.",
			ConstLabels: labels,
		}),
	}
	reg.MustRegister(c.writes, c.reads, c.pings, c.aborts, c.faults, c.resets)
	return c
}

func (c *Collector) WriteIssued() { c.writes.Inc() }
func (c *Collector) ReadIssued()  { c.reads.Inc() }
func (c *Collector) PingIssued()  { c.pings.Inc() }
func (c *Collector) Aborted()     { c.aborts.Inc() }
func (c *Collector) Faulted()     { c.faults.Inc() }
func (c *Collector) ResetIssued() { c.resets.Inc() }
