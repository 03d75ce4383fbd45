package sim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"guidanceops-sim/internal/path"
	"guidanceops-sim/internal/telemetry"
)

// replayCursor decodes one JSONL stream a record at a time.
type replayCursor[T any] struct {
	dec  *json.Decoder
	kind string
	ts   func(T) time.Time
	next T
	ok   bool
	read int
}

func newReplayCursor[T any](r io.Reader, kind string, ts func(T) time.Time) (*replayCursor[T], error) {
	c := &replayCursor[T]{dec: json.NewDecoder(r), kind: kind, ts: ts}
	return c, c.advance()
}

func (c *replayCursor[T]) advance() error {
	var v T
	if err := c.dec.Decode(&v); err != nil {
		c.ok = false
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("decode %s %d: %w", c.kind, c.read+1, err)
	}
	c.read++
	c.next, c.ok = v, true
	return nil
}

// takeAt returns the consecutive records stamped ts.
func (c *replayCursor[T]) takeAt(ts time.Time) ([]T, error) {
	var out []T
	for c != nil && c.ok && c.ts(c.next).Equal(ts) {
		out = append(out, c.next)
		if err := c.advance(); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (c *replayCursor[T]) peek() (time.Time, bool) {
	if c == nil || !c.ok {
		return time.Time{}, false
	}
	return c.ts(c.next), true
}

// Replay merges a telemetry log and an optional path event log by
// timestamp and writes both to writer. Records sharing a timestamp are
// flushed together, as one batch where the writer supports it. A speed >0
// scales the recorded gaps; speed <= 0 replays without delay. events is
// ignored unless writer implements PathEventWriter. It returns the number
// of records written.
func Replay(ctx context.Context, rows, events io.Reader, writer TelemetryWriter, speed float64) (int, error) {
	tc, err := newReplayCursor(rows, "row", func(r telemetry.TelemetryRow) time.Time { return r.Timestamp })
	if err != nil {
		return 0, err
	}
	var ec *replayCursor[path.EventRow]
	ew, _ := writer.(PathEventWriter)
	if events != nil && ew != nil {
		ec, err = newReplayCursor(events, "event", func(e path.EventRow) time.Time { return e.Timestamp })
		if err != nil {
			return 0, err
		}
	}

	var prev time.Time
	n := 0
	for {
		ts, ok := tc.peek()
		if ets, eok := ec.peek(); eok && (!ok || ets.Before(ts)) {
			ts, ok = ets, true
		}
		if !ok {
			return n, nil
		}
		if !prev.IsZero() && speed > 0 {
			if err := sleepCtx(ctx, time.Duration(float64(ts.Sub(prev))/speed)); err != nil {
				return n, err
			}
		}

		batch, err := tc.takeAt(ts)
		if len(batch) > 0 {
			if werr := writeRows(writer, batch); werr != nil {
				return n, werr
			}
			n += len(batch)
		}
		if err != nil {
			return n, err
		}
		evs, err := ec.takeAt(ts)
		if len(evs) > 0 {
			if werr := writeEvents(ew, evs); werr != nil {
				return n, werr
			}
			n += len(evs)
		}
		if err != nil {
			return n, err
		}
		prev = ts
	}
}

// ReplayLog replays telemetry rows from r to writer. See Replay.
func ReplayLog(ctx context.Context, r io.Reader, writer TelemetryWriter, speed float64) (int, error) {
	return Replay(ctx, r, nil, writer, speed)
}

// ReplayLogFile opens a file and replays its telemetry rows.
func ReplayLogFile(ctx context.Context, logPath string, writer TelemetryWriter, speed float64) (int, error) {
	return ReplayFiles(ctx, logPath, "", writer, speed)
}

// ReplayFiles replays a telemetry log merged with the path event log at
// eventsPath. An empty eventsPath replays telemetry only.
func ReplayFiles(ctx context.Context, telemetryPath, eventsPath string, writer TelemetryWriter, speed float64) (int, error) {
	f, err := os.Open(telemetryPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	var events io.Reader
	if eventsPath != "" {
		ef, err := os.Open(eventsPath)
		if err != nil {
			return 0, err
		}
		defer ef.Close()
		events = ef
	}
	return Replay(ctx, f, events, writer, speed)
}

func writeRows(w TelemetryWriter, rows []telemetry.TelemetryRow) error {
	if bw, ok := w.(batchWriter); ok {
		return bw.WriteBatch(rows)
	}
	for _, r := range rows {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

func writeEvents(w PathEventWriter, rows []path.EventRow) error {
	if bw, ok := w.(batchPathEventWriter); ok {
		return bw.WritePathEvents(rows)
	}
	for _, e := range rows {
		if err := w.WritePathEvent(e); err != nil {
			return err
		}
	}
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
