package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepRender      EventType = "step_render"
	EventStepSubmit      EventType = "step_submit"
	EventStepInvalid     EventType = "step_invalid"
	EventStepUnreachable EventType = "step_unreachable"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	JourneyID string    `json:"journey_id"`
}

// StepEvent describes one pass of the step lifecycle.
type StepEvent struct {
	EventBase
	Segment     string      `json:"segment"`
	Destination Destination `json:"-"`
	FieldErrors int         `json:"field_errors,omitempty"`
}

// NewStepEvent stamps a step event.
func NewStepEvent(kind EventType, journeyID, segment string) *StepEvent {
	return &StepEvent{
		EventBase: EventBase{Timestamp: time.Now(), Type: kind, JourneyID: journeyID},
		Segment:   segment,
	}
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepRender      func(context.Context, *StepEvent)
	OnStepSubmit      func(context.Context, *StepEvent)
	OnStepInvalid     func(context.Context, *StepEvent)
	OnStepUnreachable func(context.Context, *StepEvent)
}

// Emit dispatches the event to the matching hook, if any.
func (h LifecycleHooks) Emit(ctx context.Context, e *StepEvent) {
	var fn func(context.Context, *StepEvent)
	switch e.Type {
	case EventStepRender:
		fn = h.OnStepRender
	case EventStepSubmit:
		fn = h.OnStepSubmit
	case EventStepInvalid:
		fn = h.OnStepInvalid
	case EventStepUnreachable:
		fn = h.OnStepUnreachable
	}
	if fn != nil {
		fn(ctx, e)
	}
}

// Merge combines two hook sets, calling h before other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	chain := func(a, b func(context.Context, *StepEvent)) func(context.Context, *StepEvent) {
		switch {
		case a == nil:
			return b
		case b == nil:
			return a
		}
		return func(ctx context.Context, e *StepEvent) {
			a(ctx, e)
			b(ctx, e)
		}
	}
	return LifecycleHooks{
		OnStepRender:      chain(h.OnStepRender, other.OnStepRender),
		OnStepSubmit:      chain(h.OnStepSubmit, other.OnStepSubmit),
		OnStepInvalid:     chain(h.OnStepInvalid, other.OnStepInvalid),
		OnStepUnreachable: chain(h.OnStepUnreachable, other.OnStepUnreachable),
	}
}
