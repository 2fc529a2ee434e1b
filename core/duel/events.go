package duel

import (
	"context"
	"time"
)

type EventType string

const (
	EventChallenged EventType = "duel.challenged"
	EventAccepted   EventType = "duel.accepted"
	EventRejected   EventType = "duel.rejected"
	EventCompleted  EventType = "duel.completed"
)

type Event struct {
	Type       EventType `json:"type"`
	RequestID  string    `json:"requestId,omitempty"`
	DuelID     string    `json:"duelId,omitempty"`
	StudentIDs []string  `json:"studentIds"`
	WinnerID   *string   `json:"winnerId,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Notifier delivers duel events. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Observer receives duel outcomes (metrics).
type Observer interface {
	AnswerRecorded(correct bool)
	DuelCompleted(outcome Outcome)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }

type nopObserver struct{}

func (nopObserver) AnswerRecorded(bool)     {}
func (nopObserver) DuelCompleted(Outcome) {}
