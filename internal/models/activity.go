package models

import "time"

// Outcome values recorded for each operation.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
)

// Activity records one relay or share operation.
type Activity struct {
	ID         int64     `json:"id"`
	Subject    string    `json:"subject"`
	Operation  string    `json:"operation"`
	Language   string    `json:"language"`
	Outcome    string    `json:"outcome"`
	Detail     string    `json:"detail"`
	DurationMS int64     `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}
