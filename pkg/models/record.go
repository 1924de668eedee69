package models

import "time"

// Record is an immutable audit entry written for every document mutated by a
// successful execution.
type Record struct {
	ID       string         `json:"_id,omitempty"`
	Key      string         `json:"_key,omitempty"`
	Date     time.Time      `json:"date"`
	User     RecordUser     `json:"user"`
	Action   RecordAction   `json:"action"`
	Document RecordDocument `json:"document"`
}

type RecordUser struct {
	Key      string `json:"key"`
	UserName string `json:"userName"`
}

type RecordAction struct {
	Key  string `json:"key"`
	Name string `json:"name"`
}

// RecordDocument captures the identity and transition of one mutated
// document. Data holds the submitted (pre-merge) payload.
type RecordDocument struct {
	Key      string         `json:"key"`
	Type     string         `json:"type"`
	OldState string         `json:"oldState"`
	NewState string         `json:"newState"`
	Data     map[string]any `json:"data,omitempty"`
}
