package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a lock taken through a DistributedLocker.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker serializes edits and runs of one workflow session across
// several autoflow processes sharing a store.
type DistributedLocker interface {
	// Lock takes the lock named key, waiting while another holder has it.
	// The lock lapses after ttl if the holder never calls the UnlockFunc.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
