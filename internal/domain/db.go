package domain

import "context"

// Database is a storage backend's lifecycle. Backends bring their own
// schema and apply it in Migrate, which must be safe to call on every start.
type Database interface {
	Migrate(ctx context.Context) error
	Close() error
}
