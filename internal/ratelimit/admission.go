package ratelimit

import (
	"context"
	"time"

	"github.com/keepmind9/shelfbot/internal/logger"
	"github.com/keepmind9/shelfbot/pkg/constants"
	"github.com/sirupsen/logrus"
)

// Scope names the budget that declined an invocation
type Scope int

const (
	ScopeNone Scope = iota
	ScopeUser
	ScopeGroup
)

func (s Scope) String() string {
	switch s {
	case ScopeUser:
		return "user"
	case ScopeGroup:
		return "server"
	default:
		return "none"
	}
}

// Verdict is the outcome of Admit
type Verdict struct {
	Allowed    bool
	Scope      Scope
	RetryAfter time.Duration
}

// AdmissionConfig holds the per-window limits. Zero values take the defaults.
type AdmissionConfig struct {
	UserLimit  int
	GroupLimit int
	Window     time.Duration
}

// Admission charges command invocations to the invoking user and its guild
type Admission struct {
	backend Backend
	config  AdmissionConfig
	log     *logrus.Entry
}

// NewAdmission creates an admission gate over backend
func NewAdmission(backend Backend, config AdmissionConfig) *Admission {
	if config.UserLimit == 0 {
		config.UserLimit = constants.DefaultUserCommandLimit
	}
	if config.GroupLimit == 0 {
		config.GroupLimit = constants.DefaultGuildCommandLimit
	}
	if config.Window <= 0 {
		config.Window = constants.DefaultRateLimitWindow
	}
	return &Admission{
		backend: backend,
		config:  config,
		log:     logger.ForComponent("ratelimit"),
	}
}

// Config returns the effective limits
func (a *Admission) Config() AdmissionConfig {
	return a.config
}

// Admit decides whether userID may run a guarded command in groupID.
// groupID is empty for direct messages. Both budgets are charged only when
// the invocation is allowed. Backend failures admit the invocation.
func (a *Admission) Admit(ctx context.Context, userID, groupID string) Verdict {
	userKey := UserKey(userID)
	if d := a.check(ctx, userKey, a.config.UserLimit); d.Limited {
		return Verdict{Scope: ScopeUser, RetryAfter: d.RetryAfter}
	}

	var groupKey ActorKey
	if groupID != "" {
		groupKey = GroupKey(groupID)
		if d := a.check(ctx, groupKey, a.config.GroupLimit); d.Limited {
			return Verdict{Scope: ScopeGroup, RetryAfter: d.RetryAfter}
		}
	}

	a.record(ctx, userKey)
	if groupID != "" {
		a.record(ctx, groupKey)
	}
	return Verdict{Allowed: true}
}

func (a *Admission) check(ctx context.Context, key ActorKey, limit int) Decision {
	d, err := a.backend.Check(ctx, key, limit, a.config.Window)
	if err != nil {
		a.log.WithFields(logrus.Fields{
			"key":   key.String(),
			"error": err,
		}).Warn("rate-limit-check-failed")
		return Decision{}
	}
	if d.Limited {
		a.log.WithFields(logrus.Fields{
			"key":         key.String(),
			"retry_after": d.RetryAfter.String(),
		}).Info("rate-limit-exceeded")
	}
	return d
}

func (a *Admission) record(ctx context.Context, key ActorKey) {
	if err := a.backend.Record(ctx, key, a.config.Window); err != nil {
		a.log.WithFields(logrus.Fields{
			"key":   key.String(),
			"error": err,
		}).Warn("rate-limit-record-failed")
	}
}
