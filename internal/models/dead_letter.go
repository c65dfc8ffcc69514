package models

import "time"

// DeadLetter wraps a command the orchestrator could not complete, preserving
// it for diagnosis. Written once per unrecoverable failure, never retried by
// the system itself.
type DeadLetter struct {
	Command
	Error        string    `json:"error"`
	DLQTimestamp time.Time `json:"dlqTimestamp"`
}
