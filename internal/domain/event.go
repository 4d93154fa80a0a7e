package domain

import "time"

// Event represents a ticketed event whose inventory is individual seats.
type Event struct {
	ID       string
	Name     string
	StartsAt time.Time
}
