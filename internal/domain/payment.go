package domain

import "time"

type PaymentAttemptType string

const (
	PaymentAttemptAuthorize PaymentAttemptType = "AUTHORIZE"
	PaymentAttemptCapture   PaymentAttemptType = "CAPTURE"
)

type PaymentAttemptStatus string

const (
	PaymentAttemptSuccess  PaymentAttemptStatus = "SUCCESS"
	PaymentAttemptDeclined PaymentAttemptStatus = "DECLINED"
	PaymentAttemptTimeout  PaymentAttemptStatus = "TIMEOUT"
)

// PaymentAttempt is an append-only audit record of one gateway interaction.
type PaymentAttempt struct {
	ID        string
	OrderID   string
	Type      PaymentAttemptType
	Status    PaymentAttemptStatus
	Reason    string
	CreatedAt time.Time
}
