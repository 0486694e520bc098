package eventsink

import (
	"fmt"
	"io"
	"sort"

	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// SVGSink renders a Gantt chart of thread execution over simulated time: one
// row per thread, one rectangle per ThreadExecute span. It buffers every
// span in memory and draws the whole picture on Close, since an SVG's
// viewBox depends on knowing the total extent up front.
type SVGSink struct {
	w    io.Writer
	rows map[registry.ThreadID][]span
	order []registry.ThreadID
	seen  map[registry.ThreadID]bool
	maxTime cputime.Time
	haveMax bool
}

type span struct {
	start, end cputime.Time
}

// NewSVGSink wraps w. Close must be called once the run ends to emit the
// document; nothing is written before then.
func NewSVGSink(w io.Writer) *SVGSink {
	return &SVGSink{
		w:    w,
		rows: make(map[registry.ThreadID][]span),
		seen: make(map[registry.ThreadID]bool),
	}
}

func (s *SVGSink) Emit(e Event) {
	if e.Kind != ThreadExecute {
		return
	}
	end := e.Time
	start := end.Sub(e.RunTime)
	s.rows[e.ThreadID] = append(s.rows[e.ThreadID], span{start: start, end: end})
	if !s.seen[e.ThreadID] {
		s.seen[e.ThreadID] = true
		s.order = append(s.order, e.ThreadID)
	}
	if !s.haveMax || s.maxTime.Less(end) {
		s.maxTime = end
		s.haveMax = true
	}
}

const (
	rowHeight  = 24
	rowPadding = 4
	leftMargin = 80
	pxPerUnit  = 20
)

// Close renders the accumulated spans as an SVG document and writes it to w.
func (s *SVGSink) Close() error {
	sort.Slice(s.order, func(i, j int) bool { return s.order[i] < s.order[j] })

	width := leftMargin + 40
	if s.haveMax {
		width += int(s.maxTime.Float64()*pxPerUnit) + 20
	}
	height := len(s.order)*(rowHeight+rowPadding) + rowPadding

	if _, err := fmt.Fprintf(s.w, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" font-family="monospace" font-size="12">`+"\n", width, height); err != nil {
		return err
	}

	palette := []string{"#4e79a7", "#f28e2b", "#e15759", "#76b7b2", "#59a14f", "#edc948", "#b07aa1", "#ff9da7"}

	for row, tid := range s.order {
		y := rowPadding + row*(rowHeight+rowPadding)
		color := palette[row%len(palette)]
		if _, err := fmt.Fprintf(s.w, `<text x="4" y="%d">tid=%d</text>`+"\n", y+rowHeight/2+4, tid); err != nil {
			return err
		}
		for _, sp := range s.rows[tid] {
			x := leftMargin + int(sp.start.Float64()*pxPerUnit)
			w := int(sp.end.Sub(sp.start).Float64() * pxPerUnit)
			if w < 1 {
				w = 1
			}
			if _, err := fmt.Fprintf(s.w, `<rect x="%d" y="%d" width="%d" height="%d" fill="%s"><title>%s-%s</title></rect>`+"\n",
				x, y, w, rowHeight, color, sp.start, sp.end); err != nil {
				return err
			}
		}
	}

	_, err := fmt.Fprintln(s.w, `</svg>`)
	return err
}
