// Package ratelimit implements the per-connection, fail-closed message rate
// limiter. One Limiter belongs to exactly one connection and is touched only
// from that connection's inbound loop — there is no cross-connection shared
// state here, unlike internal/room.
package ratelimit

import "time"

const (
	// MaxMessagesPerSecond is the cap on messages accepted in any single
	// one-second window before it counts as a violation.
	MaxMessagesPerSecond = 50

	// MaxConsecutiveViolations is how many consecutive violating windows a
	// connection may have before it is closed fail-closed.
	MaxConsecutiveViolations = 3
)

// Clock supplies the current time. Production code uses time.Now; tests
// inject a fake so window rollover is deterministic.
type Clock func() time.Time

// Limiter is a fixed one-second window counter with a consecutive-violation
// tripwire. Not safe for concurrent use — callers that only ever touch it
// from one goroutine (the inbound loop) don't need a mutex here.
type Limiter struct {
	now    Clock
	limit  int
	maxHit int

	windowStart     time.Time
	windowCount     int
	windowViolated  bool
	consecutiveHits int
}

// New returns a Limiter allowing at most limit messages per one-second
// window, tripping fail-closed after maxConsecutiveViolations consecutive
// violating windows. clock is injectable so tests can drive window
// rollover without sleeping.
func New(limit, maxConsecutiveViolations int, clock Clock) *Limiter {
	if clock == nil {
		clock = time.Now
	}
	return &Limiter{
		now:         clock,
		limit:       limit,
		maxHit:      maxConsecutiveViolations,
		windowStart: clock(),
	}
}

// Record accounts for one more message and reports whether the connection
// must now be closed fail-closed. The caller must close the socket as soon
// as Record returns true — it keeps returning true on every subsequent call
// once tripped.
//
// A window's violation is detected the instant its count first exceeds the
// limit, not at the window's close — a connection flooding its third
// consecutive window is cut off partway through that window, per spec,
// rather than only at the boundary into a fourth.
func (l *Limiter) Record() (shouldClose bool) {
	if l.consecutiveHits >= l.maxHit {
		return true
	}
	now := l.now()
	if now.Sub(l.windowStart) >= time.Second {
		// A clean (non-violating) window resets the streak; a violating one
		// already bumped consecutiveHits the instant it tipped over, so a
		// rollover after a violation must not double-count it.
		if !l.windowViolated {
			l.consecutiveHits = 0
		}
		l.windowStart = now
		l.windowCount = 0
		l.windowViolated = false
	}

	l.windowCount++
	if l.windowCount > l.limit && !l.windowViolated {
		l.windowViolated = true
		l.consecutiveHits++
	}
	return l.consecutiveHits >= l.maxHit
}

// Violate bumps the consecutive-violation streak directly, independent of
// window accounting, and reports whether the connection must now close.
// Protocol errors (malformed JSON, an unknown frame type) are counted as a
// rate-limit violation per spec, not as a separate fault class — so a
// connection alternating between valid messages and garbage trips the same
// fail-closed threshold a flood would.
func (l *Limiter) Violate() (shouldClose bool) {
	l.consecutiveHits++
	l.windowViolated = true
	return l.consecutiveHits >= l.maxHit
}

// ConsecutiveViolations reports the current streak, for tests and metrics.
// A window that has already ended without a violation counts as having
// reset the streak, even before the next Record rolls the window over.
func (l *Limiter) ConsecutiveViolations() int {
	if !l.windowViolated && l.now().Sub(l.windowStart) >= time.Second {
		return 0
	}
	return l.consecutiveHits
}
