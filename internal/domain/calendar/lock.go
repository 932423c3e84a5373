package calendar

import "context"

// RunLock is a held job lock. It expires on its own unless extended.
type RunLock interface {
	// Extend pushes expiry out by the lock TTL; errors.ErrLocked means the lock was lost
	Extend(ctx context.Context) error
	// Release frees the lock if it is still ours
	Release(ctx context.Context) error
}
