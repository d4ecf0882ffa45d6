// Package models contains shared data models used across the Personify codebase.
package models

import "time"

// Status is the lifecycle state of an analysis request.
// Queued is initial; Done and Failed are terminal and absorbing.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether no further transitions can occur from s.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusDone, StatusFailed:
		return true
	case StatusQueued, StatusProcessing:
		return false
	default:
		return false
	}
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// AnalysisInput is the user-supplied payload an analysis is generated from.
type AnalysisInput struct {
	Name        string `json:"name"`
	Age         int    `json:"age"`
	Description string `json:"description"`
}

// FailureDetail is the structured diagnostic stored when an analysis fails.
// It is retained for operator inspection only and never exposed verbatim
// to end users.
type FailureDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// AnalysisState is the persisted record of one analysis request.
// Exactly one of Result/FailureDetail is populated, and only in the
// matching terminal status.
type AnalysisState struct {
	RequestID     string         `json:"request_id"`
	UserID        string         `json:"user_id"`
	Status        Status         `json:"status"`
	Input         AnalysisInput  `json:"input"`
	Result        string         `json:"result,omitempty"`
	FailureDetail *FailureDetail `json:"failure_detail,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}
