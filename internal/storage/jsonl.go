package storage

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/starford/folio/internal/apperr"
	"github.com/starford/folio/internal/eventlog"
)

// ErrCorrupt is returned for archives that are not a gapless run of events.
var ErrCorrupt = errors.New("storage: corrupt archive")

const maxLine = 16 << 20

// Export writes every event of log to path, one JSON object per line, and
// returns how many were written. The file is replaced atomically.
func Export(ctx context.Context, log *eventlog.Log, p Provider, path string) (int, error) {
	var buf bytes.Buffer
	n, err := Encode(&buf, log.Replay(ctx))
	if err != nil {
		return 0, err
	}
	if err := p.Write(path, buf.Bytes()); err != nil {
		return 0, err
	}
	return n, nil
}

// Encode writes events as JSON lines.
func Encode(w io.Writer, events iter.Seq2[eventlog.Event, error]) (int, error) {
	enc := json.NewEncoder(w)
	n := 0
	for ev, err := range events {
		if err != nil {
			return n, fmt.Errorf("storage: export: %w", err)
		}
		if err := enc.Encode(ev); err != nil {
			return n, fmt.Errorf("storage: encode #%d: %w", ev.Sequence, err)
		}
		n++
	}
	return n, nil
}

// Decode reads JSON lines written by Encode. Blank lines are skipped.
// Sequences must increase by one from the first event on.
func Decode(r io.Reader) ([]eventlog.Event, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)

	var (
		out  []eventlog.Event
		line int
	)
	for sc.Scan() {
		line++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		var ev eventlog.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrCorrupt, line, err)
		}
		if ev.Sequence == 0 || ev.Kind == "" || ev.EntityID == "" {
			return nil, fmt.Errorf("%w: line %d: incomplete event", ErrCorrupt, line)
		}
		if n := len(out); n > 0 && ev.Sequence != out[n-1].Sequence+1 {
			return nil, fmt.Errorf("%w: line %d: sequence %d after %d", ErrCorrupt, line, ev.Sequence, out[n-1].Sequence)
		}
		out = append(out, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("storage: read archive: %w", err)
	}
	return out, nil
}

// Import appends the events of the archive at path to st in one batch. The
// archive must continue the journal: its first sequence is the store head
// plus one. Importing into a journal that moved on fails with
// apperr.ErrConflict.
func Import(ctx context.Context, st eventlog.Store, p Provider, path string) (int, error) {
	data, err := p.Read(path)
	if err != nil {
		return 0, err
	}
	events, err := Decode(bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	if len(events) == 0 {
		return 0, nil
	}

	head, err := st.Head(ctx)
	if err != nil {
		return 0, err
	}
	if first := events[0].Sequence; first != head+1 {
		return 0, fmt.Errorf("%w: archive starts at %d, journal head is %d", apperr.ErrConflict, first, head)
	}
	if err := st.Append(ctx, head, events); err != nil {
		return 0, err
	}
	return len(events), nil
}
