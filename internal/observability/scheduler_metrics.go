package observability

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// SchedulerCollector exposes metrics about the scheduler policies
// themselves, as opposed to the core driver loop SimCollector instruments.
type SchedulerCollector struct {
	gatherer prometheus.Gatherer

	PickDuration     prometheus.Histogram
	ReadyQueueDepth  prometheus.Gauge
	PreemptionsTotal prometheus.Counter
	IdleRatio        prometheus.Gauge
}

// NewSchedulerCollector registers scheduler metrics against the provided registerer.
func NewSchedulerCollector(reg prometheus.Registerer) (*SchedulerCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	pickHistogram := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedsi_pick_duration_seconds",
		Help:    "Wall-clock time spent inside a Policy.Pick call, for profiling policy implementations.",
		Buckets: []float64{0.0000001, 0.000001, 0.00001, 0.0001, 0.001, 0.01},
	})
	pickHistogram, err := registerHistogram(reg, pickHistogram, "schedsi_pick_duration_seconds")
	if err != nil {
		return nil, err
	}

	queueGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedsi_ready_queue_depth",
		Help: "Number of chains currently in a scheduler's ready queue.",
	})
	queueGauge, err = registerGauge(reg, queueGauge, "schedsi_ready_queue_depth")
	if err != nil {
		return nil, err
	}

	preemptions := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedsi_preemptions_total",
		Help: "Cumulative number of threads preempted by a timer before finishing their slice.",
	})
	preemptions, err = registerCounter(reg, preemptions, "schedsi_preemptions_total")
	if err != nil {
		return nil, err
	}

	idleRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedsi_idle_ratio",
		Help: "Fraction of total simulated time the root scheduler has spent idle.",
	})
	idleRatio, err = registerGauge(reg, idleRatio, "schedsi_idle_ratio")
	if err != nil {
		return nil, err
	}

	return &SchedulerCollector{
		gatherer:         gatherer,
		PickDuration:     pickHistogram,
		ReadyQueueDepth:  queueGauge,
		PreemptionsTotal: preemptions,
		IdleRatio:        idleRatio,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *SchedulerCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObservePick records how long a Policy.Pick call took.
func (c *SchedulerCollector) ObservePick(d time.Duration) {
	if c == nil || c.PickDuration == nil {
		return
	}
	c.PickDuration.Observe(d.Seconds())
}

// SetReadyQueueDepth updates the ready-queue depth gauge.
func (c *SchedulerCollector) SetReadyQueueDepth(depth int) {
	if c == nil || c.ReadyQueueDepth == nil {
		return
	}
	c.ReadyQueueDepth.Set(float64(depth))
}

// IncPreemptions increments the preemption counter.
func (c *SchedulerCollector) IncPreemptions() {
	if c == nil || c.PreemptionsTotal == nil {
		return
	}
	c.PreemptionsTotal.Inc()
}

// SetIdleRatio sets the fraction of simulated time spent idle, clamped to [0, 1].
func (c *SchedulerCollector) SetIdleRatio(ratio float64) {
	if c == nil || c.IdleRatio == nil {
		return
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	c.IdleRatio.Set(ratio)
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
