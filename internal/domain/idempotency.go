package domain

import "time"

// IdempotencyRecord binds a client-supplied key to the fingerprint of the
// request that first used it and, once the command finished, to its cached
// response. RequestHash is immutable: the same key with a different hash is
// a hard conflict, never silently accepted.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseJSON string
	ResourceID   string
	CreatedAt    time.Time
}
