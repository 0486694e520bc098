package eventsink

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"sort"

	"github.com/z33ky/schedsi/cputime"
	"github.com/z33ky/schedsi/registry"
)

// BinarySink writes every Event as a self-delimiting tag-length-value
// record: a one-byte Kind tag, a uint32 payload length, then the payload.
// The payload layout is fixed per Kind so a reader never needs anything
// but the stream itself to reconstruct the sequence.
type BinarySink struct {
	w   *bufio.Writer
	err error
}

// NewBinarySink wraps w.
func NewBinarySink(w io.Writer) *BinarySink {
	return &BinarySink{w: bufio.NewWriter(w)}
}

// Flush must be called once the simulation ends to push buffered bytes out.
func (s *BinarySink) Flush() error {
	if s.err != nil {
		return s.err
	}
	return s.w.Flush()
}

func (s *BinarySink) Emit(e Event) {
	if s.err != nil {
		return
	}
	payload, err := encodePayload(e)
	if err != nil {
		s.err = err
		return
	}
	if err := s.w.WriteByte(byte(e.Kind)); err != nil {
		s.err = err
		return
	}
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	if _, err := s.w.Write(lenBuf[:]); err != nil {
		s.err = err
		return
	}
	if _, err := s.w.Write(payload); err != nil {
		s.err = err
	}
}

type byteWriter struct {
	buf []byte
}

func (b *byteWriter) putString(s string) {
	b.putUint32(uint32(len(s)))
	b.buf = append(b.buf, s...)
}

func (b *byteWriter) putTime(t cputime.Time) {
	b.putString(t.String())
}

func (b *byteWriter) putUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	b.buf = append(b.buf, tmp[:]...)
}

func (b *byteWriter) putInt64(v int64) {
	b.putUint32(uint32(v))
}

func (b *byteWriter) putBool(v bool) {
	if v {
		b.buf = append(b.buf, 1)
	} else {
		b.buf = append(b.buf, 0)
	}
}

func encodePayload(e Event) ([]byte, error) {
	w := &byteWriter{}
	w.putString(e.CoreUID)
	w.putTime(e.Time)

	switch e.Kind {
	case Schedule:
		w.putUint32(uint32(len(e.ChainSummary)))
		for _, ce := range e.ChainSummary {
			w.putInt64(int64(ce.ThreadID))
			w.putInt64(int64(ce.ModuleID))
			w.buf = append(w.buf, byte(ce.Relationship))
		}
	case ContextSwitch:
		w.buf = append(w.buf, byte(e.Direction))
		w.putTime(e.Cost)
	case ThreadExecute:
		w.putInt64(int64(e.ThreadID))
		w.putTime(e.RunTime)
	case ThreadYield, ThreadFinish:
		w.putInt64(int64(e.ThreadID))
	case TimerSet:
		w.putInt64(int64(e.CtxIndex))
		w.putBool(e.HasValue)
		w.putTime(e.Value)
	case TimerElapsed:
		w.putInt64(int64(e.CtxIndex))
	case CoreIdle:
		w.putTime(e.FromTime)
		w.putTime(e.ToTime)
	case ThreadStatistics:
		w.putInt64(int64(e.ThreadID))
		w.putTime(e.ThreadStats.ExecutionTime)
		w.putUint32(uint32(len(e.ThreadStats.RunStarts)))
		for i := range e.ThreadStats.RunStarts {
			w.putTime(e.ThreadStats.RunStarts[i])
			w.putTime(e.ThreadStats.RunTimes[i])
		}
		w.putUint32(uint32(len(e.ThreadStats.WaitSamples)))
		for _, ws := range e.ThreadStats.WaitSamples {
			w.putTime(ws)
		}
		w.putInt64(int64(e.ThreadStats.CtxSwitchIn))
		w.putInt64(int64(e.ThreadStats.CtxSwitchOut))
	case CoreStatistics:
		w.putTime(e.CoreStats.TotalTime)
		w.putTime(e.CoreStats.IdleTime)
		w.putTime(e.CoreStats.SwitchTime)
		w.putUint32(uint32(len(e.CoreStats.PerModule)))
		mods := make([]registry.ModuleID, 0, len(e.CoreStats.PerModule))
		for mod := range e.CoreStats.PerModule {
			mods = append(mods, mod)
		}
		sort.Slice(mods, func(i, j int) bool { return mods[i] < mods[j] })
		for _, mod := range mods {
			w.putInt64(int64(mod))
			w.putTime(e.CoreStats.PerModule[mod])
		}
	case CoreFailure:
		w.putString(e.Reason)
	default:
		return nil, fmt.Errorf("eventsink: cannot encode unknown kind %d", e.Kind)
	}
	return w.buf, nil
}

// DecodeAll reads every record from r until EOF and returns the Events in
// order. Used by the replay tool.
func DecodeAll(r io.Reader) ([]Event, error) {
	br := bufio.NewReader(r)
	var out []Event
	for {
		tag, err := br.ReadByte()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		var lenBuf [4]byte
		if _, err := io.ReadFull(br, lenBuf[:]); err != nil {
			return out, fmt.Errorf("eventsink: truncated record length: %w", err)
		}
		n := binary.BigEndian.Uint32(lenBuf[:])
		payload := make([]byte, n)
		if _, err := io.ReadFull(br, payload); err != nil {
			return out, fmt.Errorf("eventsink: truncated record payload: %w", err)
		}
		e, err := decodePayload(Kind(tag), payload)
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
}

type byteReader struct {
	buf []byte
	pos int
}

func (r *byteReader) getUint32() (uint32, error) {
	if r.pos+4 > len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos : r.pos+4])
	r.pos += 4
	return v, nil
}

func (r *byteReader) getInt64() (int64, error) {
	v, err := r.getUint32()
	return int64(int32(v)), err
}

func (r *byteReader) getBool() (bool, error) {
	if r.pos >= len(r.buf) {
		return false, io.ErrUnexpectedEOF
	}
	v := r.buf[r.pos] != 0
	r.pos++
	return v, nil
}

func (r *byteReader) getByte() (byte, error) {
	if r.pos >= len(r.buf) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) getString() (string, error) {
	n, err := r.getUint32()
	if err != nil {
		return "", err
	}
	if r.pos+int(n) > len(r.buf) {
		return "", io.ErrUnexpectedEOF
	}
	s := string(r.buf[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

func (r *byteReader) getTime() (cputime.Time, error) {
	s, err := r.getString()
	if err != nil {
		return cputime.Time{}, err
	}
	return cputime.Parse(s)
}

func decodePayload(kind Kind, payload []byte) (Event, error) {
	r := &byteReader{buf: payload}
	e := Event{Kind: kind}

	var err error
	if e.CoreUID, err = r.getString(); err != nil {
		return e, err
	}
	if e.Time, err = r.getTime(); err != nil {
		return e, err
	}

	switch kind {
	case Schedule:
		n, err := r.getUint32()
		if err != nil {
			return e, err
		}
		for i := uint32(0); i < n; i++ {
			tid, err := r.getInt64()
			if err != nil {
				return e, err
			}
			mod, err := r.getInt64()
			if err != nil {
				return e, err
			}
			rel, err := r.getByte()
			if err != nil {
				return e, err
			}
			e.ChainSummary = append(e.ChainSummary, ChainEntry{
				ThreadID:     registry.ThreadID(tid),
				ModuleID:     registry.ModuleID(mod),
				Relationship: Relationship(rel),
			})
		}
	case ContextSwitch:
		d, err := r.getByte()
		if err != nil {
			return e, err
		}
		e.Direction = Direction(d)
		if e.Cost, err = r.getTime(); err != nil {
			return e, err
		}
	case ThreadExecute:
		tid, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.ThreadID = registry.ThreadID(tid)
		if e.RunTime, err = r.getTime(); err != nil {
			return e, err
		}
	case ThreadYield, ThreadFinish:
		tid, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.ThreadID = registry.ThreadID(tid)
	case TimerSet:
		idx, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.CtxIndex = int(idx)
		if e.HasValue, err = r.getBool(); err != nil {
			return e, err
		}
		if e.Value, err = r.getTime(); err != nil {
			return e, err
		}
	case TimerElapsed:
		idx, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.CtxIndex = int(idx)
	case CoreIdle:
		var err error
		if e.FromTime, err = r.getTime(); err != nil {
			return e, err
		}
		if e.ToTime, err = r.getTime(); err != nil {
			return e, err
		}
	case ThreadStatistics:
		tid, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.ThreadID = registry.ThreadID(tid)
		if e.ThreadStats.ExecutionTime, err = r.getTime(); err != nil {
			return e, err
		}
		nRuns, err := r.getUint32()
		if err != nil {
			return e, err
		}
		for i := uint32(0); i < nRuns; i++ {
			start, err := r.getTime()
			if err != nil {
				return e, err
			}
			run, err := r.getTime()
			if err != nil {
				return e, err
			}
			e.ThreadStats.RunStarts = append(e.ThreadStats.RunStarts, start)
			e.ThreadStats.RunTimes = append(e.ThreadStats.RunTimes, run)
		}
		nWait, err := r.getUint32()
		if err != nil {
			return e, err
		}
		for i := uint32(0); i < nWait; i++ {
			ws, err := r.getTime()
			if err != nil {
				return e, err
			}
			e.ThreadStats.WaitSamples = append(e.ThreadStats.WaitSamples, ws)
		}
		in, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.ThreadStats.CtxSwitchIn = int(in)
		out, err := r.getInt64()
		if err != nil {
			return e, err
		}
		e.ThreadStats.CtxSwitchOut = int(out)
	case CoreStatistics:
		var err error
		if e.CoreStats.TotalTime, err = r.getTime(); err != nil {
			return e, err
		}
		if e.CoreStats.IdleTime, err = r.getTime(); err != nil {
			return e, err
		}
		if e.CoreStats.SwitchTime, err = r.getTime(); err != nil {
			return e, err
		}
		n, err := r.getUint32()
		if err != nil {
			return e, err
		}
		e.CoreStats.PerModule = make(map[registry.ModuleID]cputime.Time, n)
		for i := uint32(0); i < n; i++ {
			mod, err := r.getInt64()
			if err != nil {
				return e, err
			}
			t, err := r.getTime()
			if err != nil {
				return e, err
			}
			e.CoreStats.PerModule[registry.ModuleID(mod)] = t
		}
	case CoreFailure:
		var err error
		if e.Reason, err = r.getString(); err != nil {
			return e, err
		}
	default:
		return e, fmt.Errorf("eventsink: cannot decode unknown kind %d", kind)
	}
	return e, nil
}
