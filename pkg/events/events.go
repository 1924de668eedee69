// Package events defines event types for case lifecycle and audit
// notifications.
package events

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic all engine events are published to.
const Topic = "obpm.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CaseCreatedEvent     EventType = "case.created"
	ActionExecutedEvent  EventType = "action.executed"
	ExecutionFailedEvent EventType = "execution.failed"
	DocumentFlaggedEvent EventType = "document.flagged"
)

type BaseEvent struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	CaseKey   string         `json:"case_key,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

func NewBaseEvent(eventType EventType, caseKey string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		CaseKey:   caseKey,
		Metadata:  make(map[string]any),
	}
}

type CaseCreated struct {
	BaseEvent

	ActionKey string `json:"action_key"`
}

func (c CaseCreated) GetType() EventType {
	return CaseCreatedEvent
}

// DocumentChange captures one document transition inside an execution.
type DocumentChange struct {
	Key      string `json:"key"`
	Type     string `json:"type"`
	OldState string `json:"old_state"`
	NewState string `json:"new_state"`
}

type ActionExecuted struct {
	BaseEvent

	ActionKey  string           `json:"action_key"`
	ActionName string           `json:"action_name"`
	UserName   string           `json:"user_name"`
	Documents  []DocumentChange `json:"documents"`
}

func (a ActionExecuted) GetType() EventType {
	return ActionExecutedEvent
}

type ExecutionFailed struct {
	BaseEvent

	ActionKey string `json:"action_key"`
	Code      string `json:"code,omitempty"`
	Error     string `json:"error"`
}

func (e ExecutionFailed) GetType() EventType {
	return ExecutionFailedEvent
}

// DocumentFlagged marks a document the reconciliation sweep found in a
// partial state (orphan case, missing structural edge).
type DocumentFlagged struct {
	BaseEvent

	DocumentKey  string `json:"document_key"`
	DocumentType string `json:"document_type"`
	Reason       string `json:"reason"`
}

func (d DocumentFlagged) GetType() EventType {
	return DocumentFlaggedEvent
}
