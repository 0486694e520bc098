package eventsink

// Multiplexer fans one Event stream out to several Sinks, synchronously and
// in registration order.
type Multiplexer struct {
	sinks []Sink
}

// NewMultiplexer builds a Multiplexer over the given sinks.
func NewMultiplexer(sinks ...Sink) *Multiplexer {
	return &Multiplexer{sinks: sinks}
}

// Add registers another sink.
func (m *Multiplexer) Add(s Sink) {
	m.sinks = append(m.sinks, s)
}

func (m *Multiplexer) Emit(e Event) {
	for _, s := range m.sinks {
		s.Emit(e)
	}
}
