package domain

import "context"

const (
	EventPRTracked = "pr.tracked"
	EventPRSignal  = "pr.signal"
	EventPRRemoved = "pr.removed"
)

type Event struct {
	Type    string
	Payload map[string]any
}

type EventBus interface {
	Publish(ctx context.Context, e Event)
}
