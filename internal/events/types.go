// internal/events/types.go
package events

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/rovshanmuradov/aave-liquidator/internal/domain"
)

// EventType represents the type of event.
type EventType string

const (
	// CandidatesReturned is published after every get cycle, including follow-ups.
	CandidatesReturned EventType = "candidates.returned"
	// RefreshReturned is published after a manual refresh.
	RefreshReturned EventType = "candidates.refreshed"
	// CycleFailed is published when any cycle fails.
	CycleFailed EventType = "candidates.error"
	// LiquidationSubmitted is published once the node accepts a liquidation.
	LiquidationSubmitted EventType = "liquidation.submitted"
)

// Trigger names what started a pipeline cycle.
type Trigger string

const (
	TriggerGet       Trigger = "get"
	TriggerFollowUp  Trigger = "follow_up"
	TriggerRefresh   Trigger = "refresh"
	TriggerLiquidate Trigger = "liquidate"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
	CycleID   string
	Trigger   Trigger
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// CandidatesEvent carries the filtered list of a successful cycle.
type CandidatesEvent struct {
	BaseEvent
	Candidates []domain.Candidate
}

// ErrorEvent carries the failure of a cycle.
type ErrorEvent struct {
	BaseEvent
	Err error
}

// LiquidationEvent carries the hash of a submitted liquidation.
type LiquidationEvent struct {
	BaseEvent
	Holder common.Address
	TxHash common.Hash
}

// NewLiquidationEvent builds the event for an accepted liquidation transaction.
func NewLiquidationEvent(requestID string, holder common.Address, txHash common.Hash) LiquidationEvent {
	return LiquidationEvent{
		BaseEvent: BaseEvent{
			EventType: LiquidationSubmitted,
			EventTime: time.Now(),
			CycleID:   requestID,
			Trigger:   TriggerLiquidate,
		},
		Holder: holder,
		TxHash: txHash,
	}
}

// NewCandidatesEvent builds the success event for a trigger.
func NewCandidatesEvent(cycleID string, trigger Trigger, candidates []domain.Candidate) CandidatesEvent {
	typ := CandidatesReturned
	if trigger == TriggerRefresh {
		typ = RefreshReturned
	}
	return CandidatesEvent{
		BaseEvent: BaseEvent{
			EventType: typ,
			EventTime: time.Now(),
			CycleID:   cycleID,
			Trigger:   trigger,
		},
		Candidates: candidates,
	}
}

// NewErrorEvent builds the failure event for a trigger.
func NewErrorEvent(cycleID string, trigger Trigger, err error) ErrorEvent {
	return ErrorEvent{
		BaseEvent: BaseEvent{
			EventType: CycleFailed,
			EventTime: time.Now(),
			CycleID:   cycleID,
			Trigger:   trigger,
		},
		Err: err,
	}
}
