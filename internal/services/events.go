package services

import (
	"context"
	"sync"

	"finanzas/internal/amqp"
	"finanzas/internal/log"
)

// Publisher sends change messages to the broker. *amqp.Client implements it.
type Publisher interface {
	PublishChange(ctx context.Context, msg *amqp.ChangeMessage) error
}

// Events fans a successful mutation out to the broker and to in-process
// listeners such as the dashboard cache. A nil *Events is a no-op.
type Events struct {
	publisher Publisher

	mu        sync.RWMutex
	listeners []func(userID string)
}

// NewEvents returns an event sink. publisher may be nil when AMQP is not
// configured.
func NewEvents(publisher Publisher) *Events {
	return &Events{publisher: publisher}
}

// OnChange registers fn to run after every mutation for a user.
func (e *Events) OnChange(fn func(userID string)) {
	if e == nil {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Changed notifies listeners and publishes the change. Publish failures are
// logged; the mutation already succeeded.
func (e *Events) Changed(ctx context.Context, entity amqp.Entity, op amqp.Op, userID, id string) {
	if e == nil {
		return
	}

	e.mu.RLock()
	listeners := append([]func(string){}, e.listeners...)
	e.mu.RUnlock()
	for _, fn := range listeners {
		fn(userID)
	}

	logger := log.FromContext(ctx)
	log.NewStructuredLogger(logger).LogMutation(ctx, string(entity), string(op), userID, string(entity), id)

	if e.publisher == nil {
		logger.DebugContext(ctx, "AMQP publisher not configured, skipping change message",
			log.FieldComponent, log.ComponentAMQP,
			log.FieldEntity, entity,
			log.FieldEntityID, id)
		return
	}
	if err := e.publisher.PublishChange(ctx, amqp.NewChangeMessage(entity, op, userID, id)); err != nil {
		logger.ErrorContext(ctx, "Failed to publish change message",
			log.NewFields().
				WithComponent(log.ComponentAMQP).
				WithEntity(string(entity), id).
				WithOperation(string(op)).
				WithUser(userID).
				WithError(err).
				WithErrorType(log.ErrorTypeNetwork).
				ToSlice()...)
	}
}
