package observability

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SimCollector bundles the Prometheus metrics a running simulation exposes:
// counters and gauges driven straight off a cpucore.Core's own bookkeeping,
// so a long batch run can be watched with an ordinary Prometheus scrape
// instead of tailing the event log.
type SimCollector struct {
	gatherer prometheus.Gatherer

	StepsTotal         prometheus.Counter
	ContextSwitches    *prometheus.CounterVec
	ThreadsFinished    prometheus.Counter
	CoreFailures       prometheus.Counter
	SimulatedTime      prometheus.Gauge
	IdleTime           prometheus.Gauge
	ModuleSwitchTime   prometheus.Gauge
}

// NewSimCollector registers simulation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when
// nil.
func NewSimCollector(reg prometheus.Registerer) (*SimCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	steps, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedsi_core_steps_total",
		Help: "Total number of atomic core operations executed.",
	}), "schedsi_core_steps_total")
	if err != nil {
		return nil, err
	}

	switches, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedsi_context_switches_total",
		Help: "Total number of context switches performed, labeled by direction (up/down).",
	}, []string{"direction"}), "schedsi_context_switches_total")
	if err != nil {
		return nil, err
	}

	finished, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedsi_threads_finished_total",
		Help: "Total number of threads that have run to completion.",
	}), "schedsi_threads_finished_total")
	if err != nil {
		return nil, err
	}

	failures, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "schedsi_core_failures_total",
		Help: "Total number of fatal core errors (malformed request, hang, timer violation).",
	}), "schedsi_core_failures_total")
	if err != nil {
		return nil, err
	}

	simTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedsi_simulated_time",
		Help: "Current simulated time, in cputime units, of the most recently stepped core.",
	}), "schedsi_simulated_time")
	if err != nil {
		return nil, err
	}

	idle, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedsi_idle_time",
		Help: "Cumulative simulated time the root scheduler has spent idle.",
	}), "schedsi_idle_time")
	if err != nil {
		return nil, err
	}

	switchTime, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedsi_module_switch_time",
		Help: "Cumulative simulated time charged to module-boundary context-switch cost.",
	}), "schedsi_module_switch_time")
	if err != nil {
		return nil, err
	}

	return &SimCollector{
		gatherer:         gatherer,
		StepsTotal:       steps,
		ContextSwitches:  switches,
		ThreadsFinished:  finished,
		CoreFailures:     failures,
		SimulatedTime:    simTime,
		IdleTime:         idle,
		ModuleSwitchTime: switchTime,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *SimCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
