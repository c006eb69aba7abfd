package realtime

import (
	"context"
)

// Emitter delivers a message to subscribers, locally or through the bus.
type Emitter interface {
	Emit(ctx context.Context, msg SSEMessage)
}

type HubEmitter struct{ Hub *SSEHub }

func (e *HubEmitter) Emit(ctx context.Context, msg SSEMessage) {
	if e == nil || e.Hub == nil {
		return
	}
	e.Hub.Broadcast(msg)
}

// Publisher is the slice of bus.Bus the emitter needs.
type Publisher interface {
	Publish(ctx context.Context, msg SSEMessage) error
}

// BusEmitter publishes to every API instance; each one forwards into its hub.
type BusEmitter struct {
	Bus      Publisher
	Fallback *SSEHub
}

func (e *BusEmitter) Emit(ctx context.Context, msg SSEMessage) {
	if e == nil {
		return
	}
	if e.Bus != nil {
		if err := e.Bus.Publish(ctx, msg); err == nil {
			return
		}
	}
	if e.Fallback != nil {
		e.Fallback.Broadcast(msg)
	}
}
