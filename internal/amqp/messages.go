package amqp

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityGoal        Entity = "goal"
	EntityReminder    Entity = "reminder"
	EntityBudget      Entity = "budget"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

var ErrInvalidMessage = errors.New("invalid change message")

// ChangeMessage announces that one stored entity changed. It carries ids
// only; consumers read the current state from the database.
type ChangeMessage struct {
	Entity    Entity    `json:"entity"`
	Op        Op        `json:"op"`
	UserID    string    `json:"user_id"`
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewChangeMessage(entity Entity, op Op, userID, id string) *ChangeMessage {
	return &ChangeMessage{
		Entity:    entity,
		Op:        op,
		UserID:    userID,
		ID:        id,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ChangeMessage) Validate() error {
	switch m.Entity {
	case EntityTransaction, EntityGoal, EntityReminder, EntityBudget:
	default:
		return fmt.Errorf("%w: unknown entity %q", ErrInvalidMessage, m.Entity)
	}
	switch m.Op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return fmt.Errorf("%w: unknown op %q", ErrInvalidMessage, m.Op)
	}
	if m.UserID == "" {
		return fmt.Errorf("%w: missing user id", ErrInvalidMessage)
	}
	// Budget limits are one document per user and have no id of their own.
	if m.ID == "" && m.Entity != EntityBudget {
		return fmt.Errorf("%w: missing id", ErrInvalidMessage)
	}
	return nil
}

func (m *ChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ChangeMessageFromJSON decodes and validates a message body.
func ChangeMessageFromJSON(data []byte) (*ChangeMessage, error) {
	var msg ChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
