package auth

import (
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

const (
	DefaultLockoutThreshold = 5
	DefaultLockoutDuration  = 30 * time.Minute
)

// LockoutPolicy is the failed-login state machine. It does no I/O; the
// engine loads and persists the state around it.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// DefaultLockoutPolicy locks an account for 30 minutes after 5 failures.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold, Duration: DefaultLockoutDuration}
}

// IsLocked reports whether the lock is still in force at now.
func (p LockoutPolicy) IsLocked(s model.LockoutState, now time.Time) bool {
	return s.LockUntil != nil && s.LockUntil.After(now)
}

// OnFailedAttempt counts a failure and locks once the threshold is
// reached. The counter keeps growing while locked; only OnSuccess resets it.
func (p LockoutPolicy) OnFailedAttempt(s model.LockoutState, now time.Time) model.LockoutState {
	s.FailedLoginAttempts++
	if s.FailedLoginAttempts >= p.Threshold {
		until := now.Add(p.Duration)
		s.LockUntil = &until
	}
	return s
}

// OnSuccess clears the counter and any lock.
func (p LockoutPolicy) OnSuccess(model.LockoutState) model.LockoutState {
	return model.LockoutState{}
}
