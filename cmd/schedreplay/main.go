// Command schedreplay reads a binary event log produced by schedgen and
// re-renders it as text and/or an SVG Gantt chart, without re-running the
// simulation: the log is the full authority for the run's sequence.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/z33ky/schedsi/eventsink"
)

func main() {
	in := flag.String("in", "", "path to the binary event log to replay")
	textOut := flag.String("text", "-", "path to write human-readable events to (\"-\" for stdout, \"\" to suppress)")
	svgOut := flag.String("svg", "", "path to write an SVG Gantt chart to")

	flag.Parse()

	if *in == "" {
		fmt.Fprintln(os.Stderr, "schedreplay: -in is required")
		os.Exit(2)
	}

	f, err := os.Open(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedreplay: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	events, err := eventsink.DecodeAll(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "schedreplay: %v\n", err)
		os.Exit(1)
	}

	var sinks []eventsink.Sink

	if *textOut != "" {
		out := os.Stdout
		if *textOut != "-" {
			tf, err := os.Create(*textOut)
			if err != nil {
				fmt.Fprintf(os.Stderr, "schedreplay: %v\n", err)
				os.Exit(1)
			}
			defer tf.Close()
			out = tf
		}
		sinks = append(sinks, eventsink.NewTextSink(out))
	}

	var svg *eventsink.SVGSink
	if *svgOut != "" {
		sf, err := os.Create(*svgOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "schedreplay: %v\n", err)
			os.Exit(1)
		}
		defer sf.Close()
		svg = eventsink.NewSVGSink(sf)
		sinks = append(sinks, svg)
	}

	mux := eventsink.NewMultiplexer(sinks...)
	for _, e := range events {
		mux.Emit(e)
	}

	if svg != nil {
		if err := svg.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "schedreplay: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Fprintf(os.Stderr, "schedreplay: replayed %d events\n", len(events))
}
