package domain

import "strings"

// SignalSide represents the direction of a trading signal
type SignalSide string

const (
	SideBuy  SignalSide = "BUY"
	SideSell SignalSide = "SELL"
)

// IsValid checks if the side is a known value
func (s SignalSide) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// SignalSideFromString parses a side string (case-insensitive)
func SignalSideFromString(s string) (SignalSide, bool) {
	side := SignalSide(strings.ToUpper(strings.TrimSpace(s)))
	return side, side.IsValid()
}

// PositionSide represents the direction of a held position
type PositionSide string

const (
	SideLong  PositionSide = "LONG"
	SideShort PositionSide = "SHORT"
)

// SignalStatus represents a signal's lifecycle state.
// Transitions are one-directional: queued is the only non-terminal state.
type SignalStatus string

const (
	SignalQueued    SignalStatus = "queued"
	SignalExecuted  SignalStatus = "executed"
	SignalRejected  SignalStatus = "rejected"
	SignalCancelled SignalStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from this status
func (s SignalStatus) Terminal() bool {
	return s == SignalExecuted || s == SignalRejected || s == SignalCancelled
}

// PositionStatus represents a position's lifecycle state
type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)
