package models

// LockState is the tag of the Lockout state.
type LockState int

const (
	Unlocked LockState = iota
	Locked
)

func (s LockState) String() string {
	if s == Locked {
		return "LOCKED"
	}
	return "UNLOCKED"
}

// Lockout is the brute-force protection state of an account: UNLOCKED with a
// count of consecutive failed logins, or LOCKED. The zero value is
// UNLOCKED(0). Values are immutable; transitions return a new Lockout.
type Lockout struct {
	state    LockState
	failures int
}

// LockoutFromColumns rebuilds the state from its persisted columns.
func LockoutFromColumns(failedAttempts int, locked bool) Lockout {
	if failedAttempts < 0 {
		failedAttempts = 0
	}
	if locked {
		return Lockout{state: Locked, failures: failedAttempts}
	}
	return Lockout{state: Unlocked, failures: failedAttempts}
}

func (l Lockout) State() LockState    { return l.state }
func (l Lockout) Locked() bool        { return l.state == Locked }
func (l Lockout) FailedAttempts() int { return l.failures }

// Succeed records a successful login. A locked account is never cleared by a
// login; only Unlock does that.
func (l Lockout) Succeed() Lockout {
	if l.Locked() {
		return l
	}
	return Lockout{state: Unlocked}
}

// Fail records a failed login and latches LOCKED once the count reaches
// threshold.
func (l Lockout) Fail(threshold int) Lockout {
	if l.Locked() {
		return l
	}
	n := l.failures + 1
	if n >= threshold {
		return Lockout{state: Locked, failures: n}
	}
	return Lockout{state: Unlocked, failures: n}
}

// Unlock is the administrative exit from LOCKED.
func (l Lockout) Unlock() Lockout {
	return Lockout{state: Unlocked}
}
