package entity

import "time"

type OrderKind string

const (
	OrderIssued   OrderKind = "ISSUED"
	OrderReturned OrderKind = "RETURNED"
)

// Order is an append-only audit record of an issue or return.
type Order struct {
	ID         int64     `json:"id"`
	UserID     int64     `json:"user_id"`
	BookID     int64     `json:"book_id"`
	Kind       OrderKind `json:"kind"`
	OccurredAt time.Time `json:"occurred_at"`
}
