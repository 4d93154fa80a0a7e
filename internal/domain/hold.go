package domain

import "time"

type HoldStatus string

const (
	HoldStatusActive   HoldStatus = "ACTIVE"
	HoldStatusExpired  HoldStatus = "EXPIRED"
	HoldStatusReleased HoldStatus = "RELEASED"
)

// Hold is a time-bounded reservation of specific seats for one attendee.
// The seat set is immutable after creation. ACTIVE is the only non-terminal
// status; EXPIRED (system reclaim) and RELEASED (attendee action) are
// terminal and mutually exclusive. Holds are never deleted, only marked.
type Hold struct {
	ID         string
	AttendeeID string
	EventID    string
	SeatIDs    []string
	Status     HoldStatus
	CreatedAt  time.Time
	ExpiresAt  time.Time
}
