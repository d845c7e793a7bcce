package trace

import (
	"context"
	"errors"
)

// Sink is a concrete destination for batches of trace Records. FlushBatch
// returns nil only when the whole slice was shipped; an error does not mean
// nothing was delivered, since a sink that writes record by record, or one
// member of a CompositeSink, can fail part-way through a batch.
type Sink interface {
	// FlushBatch ships records, in the order given, to the backend.
	FlushBatch(ctx context.Context, records []Record) error
	// Close releases any resources held by the sink. Idempotent.
	Close() error
}

// NullSink accepts and discards every batch. It is the factory's fallback
// when file logging is disabled and the host is not running standalone.
type NullSink struct{}

// NewNullSink constructs a NullSink.
func NewNullSink() *NullSink { return &NullSink{} }

// FlushBatch discards records and always succeeds.
func (NullSink) FlushBatch(context.Context, []Record) error { return nil }

// Close is a no-op.
func (NullSink) Close() error { return nil }

// CompositeSink fans a batch out to an ordered list of sinks. A failure in
// any one sink is surfaced but does not prevent the others from being
// attempted.
type CompositeSink struct {
	sinks []Sink
}

// NewCompositeSink builds a CompositeSink over the given sinks, fanned out in
// the given order. The returned writer takes ownership of each sink's
// lifetime: Close closes all of them.
func NewCompositeSink(sinks ...Sink) *CompositeSink {
	return &CompositeSink{sinks: sinks}
}

// FlushBatch attempts every sink regardless of earlier failures and joins
// their errors.
func (c *CompositeSink) FlushBatch(ctx context.Context, records []Record) error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.FlushBatch(ctx, records); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every underlying sink and joins their errors.
func (c *CompositeSink) Close() error {
	var errs []error
	for _, s := range c.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
