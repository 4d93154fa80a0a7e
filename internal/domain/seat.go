package domain

type SeatStatus string

const (
	SeatStatusAvailable SeatStatus = "AVAILABLE"
	SeatStatusHeld      SeatStatus = "HELD"
	SeatStatusSold      SeatStatus = "SOLD"
)

// Seat is one sellable seat of an event. Status is the only mutable field
// and moves AVAILABLE -> HELD -> SOLD, or HELD -> AVAILABLE on release;
// SOLD is terminal. All status writes go through the ledger's conditional
// transition, never a plain update.
type Seat struct {
	ID             string
	EventID        string
	Section        string
	RowLabel       string
	SeatNumber     string
	BasePriceCents int64
	Currency       string
	Status         SeatStatus
}
