package simpleshare

import "context"

// NoopEventSink is a no-operation implementation of EventSink
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

// ItemUploaded does nothing and returns nil
func (n *NoopEventSink) ItemUploaded(ctx context.Context, id string, record *Record) error {
	return nil
}

// ItemResolved does nothing and returns nil
func (n *NoopEventSink) ItemResolved(ctx context.Context, id string, kind Kind, err error) error {
	return nil
}

// ItemDeleted does nothing and returns nil
func (n *NoopEventSink) ItemDeleted(ctx context.Context, id string) error {
	return nil
}

// ItemRenamed does nothing and returns nil
func (n *NoopEventSink) ItemRenamed(ctx context.Context, from, to string) error {
	return nil
}
