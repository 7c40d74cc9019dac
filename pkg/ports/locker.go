package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock obtained from a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serialises writers to one session's answer bags across replicas.
// session.Manager takes it after its in-process lock, so each replica contends once per session.
type DistributedLocker interface {
	// Lock waits until key is free or ctx is done. The lock lapses after ttl if never released,
	// so a crashed replica cannot wedge a session.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
