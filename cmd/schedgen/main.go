// Command schedgen builds a module hierarchy from a JSON workload
// description, runs it to completion, and writes the resulting event
// stream to one or more sinks.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/z33ky/schedsi/eventsink"
	"github.com/z33ky/schedsi/hierarchy"
	"github.com/z33ky/schedsi/internal/logging"
	"github.com/z33ky/schedsi/internal/observability"
	"github.com/z33ky/schedsi/module"
	"github.com/z33ky/schedsi/registry"
	"github.com/z33ky/schedsi/scheduler"
	"github.com/z33ky/schedsi/thread"
	"github.com/z33ky/schedsi/timectrl"
	"github.com/z33ky/schedsi/world"
	"go.opentelemetry.io/otel"
)

func main() {
	hierarchyPath := flag.String("hierarchy", "", "path to the JSON hierarchy/workload document")
	textOut := flag.String("text", "", "path to write human-readable events to (\"-\" for stdout)")
	binaryOut := flag.String("binary", "", "path to write the binary event log to")
	svgOut := flag.String("svg", "", "path to write an SVG Gantt chart to")
	maxSteps := flag.Int("max-steps", 10_000_000, "abort if the simulation has not terminated after this many core steps")
	pace := flag.Duration("pace", 0, "if set, throttle so one unit of simulated time takes this long of wall-clock time (for watching a run live); 0 runs as fast as possible")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus metrics at this address until the run completes")

	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	if *hierarchyPath == "" {
		log.Error(ctx, "missing required flag", logging.String("flag", "-hierarchy"))
		os.Exit(2)
	}

	tracingShutdown, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, tracingShutdown, log)

	tracer := otel.Tracer("schedgen")
	ctx, span := tracer.Start(ctx, "schedgen.run")
	defer span.End()

	var collector *observability.SimCollector
	var schedCollector *observability.SchedulerCollector
	if *metricsAddr != "" {
		collector, err = observability.NewSimCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to initialise metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		schedCollector, err = observability.NewSchedulerCollector(nil)
		if err != nil {
			log.Error(ctx, "failed to initialise scheduler metrics", logging.String("error", err.Error()))
			os.Exit(1)
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", collector.Handler())
			log.Info(ctx, "serving metrics", logging.String("addr", *metricsAddr))
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics server exited", logging.String("error", err.Error()))
			}
		}()
	}

	f, err := os.Open(*hierarchyPath)
	if err != nil {
		log.Error(ctx, "failed to open hierarchy document", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer f.Close()

	w, reg, err := hierarchy.Build(f)
	if err != nil {
		log.Error(ctx, "failed to build hierarchy", logging.String("error", err.Error()))
		os.Exit(1)
	}

	if schedCollector != nil {
		for _, tid := range reg.AllThreadIDs() {
			t, ok := reg.Thread(tid)
			if !ok {
				continue
			}
			if sched, ok := t.(*scheduler.Scheduler); ok {
				sched.SetMetrics(schedCollector)
			}
		}
	}

	var sinks []eventsink.Sink
	var closers []func() error

	if *textOut != "" {
		out := os.Stdout
		if *textOut != "-" {
			tf, err := os.Create(*textOut)
			if err != nil {
				log.Error(ctx, "failed to create text output", logging.String("error", err.Error()))
				os.Exit(1)
			}
			defer tf.Close()
			out = tf
		}
		sinks = append(sinks, eventsink.NewTextSink(out))
	}

	var bin *eventsink.BinarySink
	if *binaryOut != "" {
		bf, err := os.Create(*binaryOut)
		if err != nil {
			log.Error(ctx, "failed to create binary output", logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer bf.Close()
		bin = eventsink.NewBinarySink(bf)
		sinks = append(sinks, bin)
		closers = append(closers, bin.Flush)
	}

	var svg *eventsink.SVGSink
	if *svgOut != "" {
		sf, err := os.Create(*svgOut)
		if err != nil {
			log.Error(ctx, "failed to create SVG output", logging.String("error", err.Error()))
			os.Exit(1)
		}
		defer sf.Close()
		svg = eventsink.NewSVGSink(sf)
		sinks = append(sinks, svg)
		closers = append(closers, svg.Close)
	}

	if collector != nil {
		sinks = append(sinks, metricsSink{collector: collector})
	}
	if len(sinks) > 0 {
		hierarchy.AttachSink(w, eventsink.NewMultiplexer(sinks...))
	}

	if *pace > 0 {
		pacer := timectrl.NewPacer(timectrl.RealTime, *pace)
		if err := runPaced(w, *maxSteps, pacer); err != nil {
			log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
			os.Exit(1)
		}
	} else if err := w.Run(*maxSteps); err != nil {
		log.Error(ctx, "simulation failed", logging.String("error", err.Error()))
		os.Exit(1)
	}

	emitStatistics(reg, sinks)
	emitCoreStatistics(w, sinks, collector, schedCollector)

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Error(ctx, "failed to flush output", logging.String("error", err.Error()))
			os.Exit(1)
		}
	}

	log.Info(ctx, "simulation complete")
}

// metricsSink mirrors the live event stream into collector's Prometheus
// counters, so a scrape mid-run sees activity without waiting for the
// final CoreStatistics snapshot.
type metricsSink struct {
	collector *observability.SimCollector
}

func (m metricsSink) Emit(e eventsink.Event) {
	switch e.Kind {
	case eventsink.ThreadExecute, eventsink.ThreadYield, eventsink.CoreIdle:
		m.collector.StepsTotal.Inc()
	case eventsink.ContextSwitch:
		m.collector.ContextSwitches.WithLabelValues(e.Direction.String()).Inc()
	case eventsink.ThreadFinish:
		m.collector.ThreadsFinished.Inc()
	case eventsink.CoreFailure:
		m.collector.CoreFailures.Inc()
	}
}

// runPaced drives w exactly like World.Run, but sleeps after each step so
// the simulated clock advances at the rate pacer was built with. It has no
// effect on the event stream produced; it only changes how fast schedgen
// itself gets there.
func runPaced(w *world.World, maxSteps int, pacer *timectrl.Pacer) error {
	for i := 0; i < maxSteps; i++ {
		before := w.Now()
		done, err := w.Step()
		if err != nil {
			return err
		}
		after := w.Now()
		if delta := after.Sub(before); delta.IsPositive() {
			pacer.Wait(delta)
		}
		if done {
			return nil
		}
	}
	return fmt.Errorf("schedgen: exceeded %d steps without terminating", maxSteps)
}

// emitCoreStatistics pushes a CoreStatistics event for every core that
// terminated, and mirrors the same numbers into collector's and
// schedCollector's Prometheus gauges when metrics are enabled.
func emitCoreStatistics(w *world.World, sinks []eventsink.Sink, collector *observability.SimCollector, schedCollector *observability.SchedulerCollector) {
	final := w.FinalStatistics()
	if len(sinks) > 0 {
		mux := eventsink.NewMultiplexer(sinks...)
		for _, stats := range final {
			mux.Emit(eventsink.Event{Kind: eventsink.CoreStatistics, CoreStats: stats})
		}
	}
	if collector != nil {
		for _, stats := range final {
			collector.SimulatedTime.Set(stats.TotalTime.Float64())
			collector.IdleTime.Set(stats.IdleTime.Float64())
			collector.ModuleSwitchTime.Set(stats.SwitchTime.Float64())
		}
	}
	if schedCollector != nil {
		for _, stats := range final {
			total := stats.TotalTime.Float64()
			if total > 0 {
				schedCollector.SetIdleRatio(stats.IdleTime.Float64() / total)
			}
		}
	}
}

// emitStatistics pushes a ThreadStatistics event for every thread in the
// registry through every sink, so a replay consumer sees the same final
// counters a live run would have logged.
func emitStatistics(reg *registry.Registry[*module.Module, thread.Thread], sinks []eventsink.Sink) {
	if len(sinks) == 0 {
		return
	}
	mux := eventsink.NewMultiplexer(sinks...)
	for _, tid := range reg.AllThreadIDs() {
		t, ok := reg.Thread(tid)
		if !ok {
			continue
		}
		stats := t.Stats()
		counters := eventsink.ThreadCounters{
			ExecutionTime: stats.ExecutionTime,
			CtxSwitchIn:   stats.CtxSwitchIn,
			CtxSwitchOut:  stats.CtxSwitchOut,
			WaitSamples:   stats.WaitSamples,
		}
		for _, run := range stats.Runs {
			counters.RunStarts = append(counters.RunStarts, run.StartTime)
			counters.RunTimes = append(counters.RunTimes, run.RunTime)
		}
		mux.Emit(eventsink.Event{
			Kind:        eventsink.ThreadStatistics,
			ThreadID:    tid,
			ThreadStats: counters,
		})
	}
}
