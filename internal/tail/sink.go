package tail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tessro/startify/internal/logging"
	"github.com/tessro/startify/internal/session"
)

// Sink receives events in order.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

// Write calls f.
func (f SinkFunc) Write(ctx context.Context, e Event) error { return f(ctx, e) }

// MultiSink writes each event to every sink, continuing past failures.
type MultiSink []Sink

// Write implements Sink.
func (m MultiSink) Write(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Write(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewLineSink prints each event through a Formatter.
func NewLineSink(w io.Writer, f *Formatter) Sink {
	return SinkFunc(func(_ context.Context, e Event) error {
		_, err := fmt.Fprintln(w, f.Format(e))
		return err
	})
}

// NewJSONSink writes one JSON object per line.
func NewJSONSink(w io.Writer) Sink {
	enc := json.NewEncoder(w)
	return SinkFunc(func(_ context.Context, e Event) error {
		return enc.Encode(e)
	})
}

// Follow diffs every view received on views and writes the resulting events
// to sink. Sink failures are logged and do not stop the loop. It returns when
// views is closed or ctx is done.
func Follow(ctx context.Context, views <-chan *session.View, sink Sink, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	differ := NewDiffer()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case v, ok := <-views:
			if !ok {
				return nil
			}
			for _, e := range differ.Next(v) {
				if err := sink.Write(ctx, e); err != nil {
					logger.Warn("event sink failed", slog.String("event", string(e.Type)), logging.Error(err))
				}
			}
		}
	}
}
