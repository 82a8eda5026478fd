// Package ratelimit counts how often an actor invoked a guarded operation
// inside a fixed window and decides whether the next invocation is admitted.
//
// Two backends are provided. MemoryLimiter keeps buckets in process and is
// the default. RedisLimiter keeps them in Redis so several bot processes can
// share one budget.
package ratelimit

import (
	"context"
	"time"
)

// Kind distinguishes the two actor namespaces
type Kind int

const (
	User Kind = iota
	Group
)

func (k Kind) String() string {
	switch k {
	case User:
		return "user"
	case Group:
		return "group"
	default:
		return "unknown"
	}
}

// ActorKey identifies whose budget an invocation is charged to
type ActorKey struct {
	Kind Kind
	ID   string
}

// UserKey returns the key for a user id
func UserKey(id string) ActorKey { return ActorKey{Kind: User, ID: id} }

// GroupKey returns the key for a guild id
func GroupKey(id string) ActorKey { return ActorKey{Kind: Group, ID: id} }

func (k ActorKey) String() string {
	return k.Kind.String() + ":" + k.ID
}

// Decision is the result of a Check
type Decision struct {
	Limited    bool
	RetryAfter time.Duration
}

// Backend stores rate buckets.
//
// Check never mutates the count. Record charges one invocation, starting a
// fresh window when the previous one has elapsed. A limit <= 0 disables the
// check.
type Backend interface {
	Check(ctx context.Context, key ActorKey, limit int, window time.Duration) (Decision, error)
	Record(ctx context.Context, key ActorKey, window time.Duration) error
	// Sweep drops buckets that have been idle for at least two windows and
	// reports how many were removed.
	Sweep(ctx context.Context) (int, error)
}
