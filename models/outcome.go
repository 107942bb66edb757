package models

import (
	"strconv"
	"time"
)

// Status is the terminal state of one attempted item.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Outcome records one attempted item. Index is 1-based and follows
// discovery order.
type Outcome struct {
	Index  int    `json:"index"`
	Status Status `json:"status"`

	// Reason is a human-readable failure description; empty on success.
	Reason string `json:"reason,omitempty"`

	// Code is the error code of the failure; empty on success.
	Code string `json:"code,omitempty"`

	// DurationMs is the wall time spent on the item, including cleanup.
	DurationMs int64 `json:"duration_ms"`
}

// Succeeded reports whether the export confirmation was clicked.
func (o Outcome) Succeeded() bool {
	return o.Status == StatusSucceeded
}

// Label is the identity used in logs and failure listings.
func (o Outcome) Label() string {
	return "Song " + strconv.Itoa(o.Index)
}

// NewSucceeded returns a successful outcome for the item at index.
func NewSucceeded(index int, d time.Duration) Outcome {
	return Outcome{Index: index, Status: StatusSucceeded, DurationMs: d.Milliseconds()}
}

// NewFailed returns a failed outcome for the item at index.
func NewFailed(index int, code, reason string, d time.Duration) Outcome {
	return Outcome{
		Index:      index,
		Status:     StatusFailed,
		Reason:     reason,
		Code:       code,
		DurationMs: d.Milliseconds(),
	}
}
