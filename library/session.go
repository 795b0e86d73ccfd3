package library

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
)

const (
	maxLoginFailures = 3
	lockoutDuration  = 30 * time.Minute
)

// SessionState is the persisted login state exposed to the outer
// authorization layer.
type SessionState struct {
	MemberID   string    `json:"member_id"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// SessionGuard owns login state and failed-attempt tracking. Lockout state
// is its exclusive property; the account store never sees it.
type SessionGuard struct {
	storage  Storage
	logger   *log.Logger
	clock    Clock
	accounts *AccountStore
	failures map[string]*LockoutState
	session  *SessionState
}

// NewSessionGuard restores lockout and session snapshots and returns the
// guard.
func NewSessionGuard(storage Storage, logger *log.Logger, clock Clock, accounts *AccountStore) (*SessionGuard, error) {
	failures, err := restoreSlot[map[string]*LockoutState](storage, logger, slotLockouts)
	if err != nil {
		return nil, fmt.Errorf("restore lockouts: %w", err)
	}
	if failures == nil {
		failures = make(map[string]*LockoutState)
	}
	session, err := restoreSlot[*SessionState](storage, logger, slotSession)
	if err != nil {
		return nil, fmt.Errorf("restore session: %w", err)
	}
	return &SessionGuard{
		storage:  storage,
		logger:   logger,
		clock:    clock,
		accounts: accounts,
		failures: failures,
		session:  session,
	}, nil
}

func (g *SessionGuard) persistFailures() error {
	return persistSlot(g.storage, slotLockouts, g.failures)
}

func (g *SessionGuard) persistSession() error {
	return persistSlot(g.storage, slotSession, g.session)
}

// remainingMinutes reports lockout time left, rounded up to whole minutes.
func remainingMinutes(lockedAt, now time.Time) int {
	remaining := lockoutDuration - now.Sub(lockedAt)
	return int((remaining + time.Minute - 1) / time.Minute)
}

// RecordFailure registers one failed authentication attempt for an
// identifier. The third consecutive failure locks the account for the full
// lockout window; a stale lock is cleared before the attempt counts again.
func (g *SessionGuard) RecordFailure(identifier string) FailureReport {
	now := g.clock.Now()

	state := g.failures[identifier]
	switch {
	case state == nil:
		state = &LockoutState{FailureCount: 1}
		g.failures[identifier] = state
	case state.LockedAt != nil:
		if now.Sub(*state.LockedAt) < lockoutDuration {
			return FailureReport{
				Count:            state.FailureCount,
				IsLocked:         true,
				RemainingMinutes: remainingMinutes(*state.LockedAt, now),
			}
		}
		// Lock expired: this attempt starts a fresh count.
		state = &LockoutState{FailureCount: 1}
		g.failures[identifier] = state
	default:
		state.FailureCount++
	}

	if state.FailureCount >= maxLoginFailures {
		state.LockedAt = &now
		g.logger.Warn("account locked after repeated failures", "identifier", identifier)
		if err := g.persistFailures(); err != nil {
			g.logger.Error("persisting lockout state", "err", err)
		}
		return FailureReport{Count: state.FailureCount, IsLocked: true, RemainingMinutes: 30}
	}

	if err := g.persistFailures(); err != nil {
		g.logger.Error("persisting lockout state", "err", err)
	}
	return FailureReport{Count: state.FailureCount}
}

// CheckLock reports whether an identifier is locked out. A lock whose window
// has elapsed is lazily cleared and reported as unlocked.
func (g *SessionGuard) CheckLock(identifier string) LockCheck {
	state := g.failures[identifier]
	if state == nil || state.LockedAt == nil {
		return LockCheck{}
	}

	now := g.clock.Now()
	if now.Sub(*state.LockedAt) >= lockoutDuration {
		delete(g.failures, identifier)
		if err := g.persistFailures(); err != nil {
			g.logger.Error("persisting lockout state", "err", err)
		}
		return LockCheck{}
	}
	return LockCheck{IsLocked: true, RemainingMinutes: remainingMinutes(*state.LockedAt, now)}
}

// Authenticate verifies a member's credential, tracking failures and lockout
// along the way. Success clears the failure record and logs the member in.
func (g *SessionGuard) Authenticate(memberID, credential string) AuthResult {
	if lock := g.CheckLock(memberID); lock.IsLocked {
		return AuthResult{Result: failure(fmt.Sprintf("account is locked, %d minute(s) remaining", lock.RemainingMinutes))}
	}

	member, ok := g.accounts.FindByMemberID(memberID)
	if !ok {
		return AuthResult{Result: failure("member not found")}
	}

	if HashCredential(credential) != member.CredentialHash {
		report := g.RecordFailure(memberID)
		if report.IsLocked {
			return AuthResult{Result: failure(fmt.Sprintf("too many failed attempts, account locked for %d minute(s)", report.RemainingMinutes))}
		}
		return AuthResult{Result: failure(fmt.Sprintf("invalid credential, attempt %d of %d", report.Count, maxLoginFailures))}
	}

	// Success clears the failure record entirely.
	delete(g.failures, memberID)
	if err := g.persistFailures(); err != nil {
		g.logger.Error("persisting lockout state", "err", err)
	}
	g.Login(member)
	return AuthResult{Result: success("authenticated"), Member: member, Role: member.Role}
}

// Login records identity and role into session state.
func (g *SessionGuard) Login(member *MemberRecord) {
	g.session = &SessionState{
		MemberID:   member.MemberID,
		Name:       member.Name,
		Role:       member.Role,
		LoggedInAt: g.clock.Now(),
	}
	if err := g.persistSession(); err != nil {
		g.logger.Error("persisting session state", "err", err)
	}
}

// Logout clears the session state.
func (g *SessionGuard) Logout() {
	g.session = nil
	if err := g.persistSession(); err != nil {
		g.logger.Error("persisting session state", "err", err)
	}
}

// IsLoggedIn reports whether a session is present.
func (g *SessionGuard) IsLoggedIn() bool { return g.session != nil }

// Role returns the logged-in role, or the empty role when logged out.
func (g *SessionGuard) Role() Role {
	if g.session == nil {
		return ""
	}
	return g.session.Role
}

// Session returns the current session state.
func (g *SessionGuard) Session() (*SessionState, bool) {
	if g.session == nil {
		return nil, false
	}
	return g.session, true
}
