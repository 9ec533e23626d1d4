package analysis

import "context"

// Backend port (interface to the remote analysis capability).
// Analyze never returns a transport error; every failure mode is
// captured as data on the Outcome.
type Backend interface {
	Analyze(ctx context.Context, image []byte, filename string, intent Intent) Outcome
}

// ResultLog port (interface for the append-only result log).
// There are no update or delete operations on existing records.
type ResultLog interface {
	Append(ctx context.Context, rec *Record) error
	Latest(ctx context.Context, limit int) ([]*Record, error)
}

// ImageStore port (interface for durable image storage)
type ImageStore interface {
	Upload(ctx context.Context, data []byte, key, contentType string) (string, error)
}

// Notifier port (interface for push delivery). Deliver returns false,
// not an error, when no live connection exists for the identity;
// the payload is then discarded.
type Notifier interface {
	Deliver(id string, payload any) bool
}
