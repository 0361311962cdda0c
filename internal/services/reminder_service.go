package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"finanzas/internal/amqp"
	"finanzas/internal/core"
	"finanzas/internal/store"
)

type ReminderService struct {
	store  store.ReminderStore
	events *Events
}

func NewReminderService(st store.ReminderStore, events *Events) *ReminderService {
	return &ReminderService{store: st, events: events}
}

// ReminderInput holds the user-editable fields of a reminder.
type ReminderInput struct {
	Title       string    `json:"title"`
	Due         core.Date `json:"due"`
	Description string    `json:"description"`
}

func (in ReminderInput) apply(r *core.Reminder) {
	r.Title = strings.TrimSpace(in.Title)
	r.Due = in.Due
	r.Description = strings.TrimSpace(in.Description)
}

func (s *ReminderService) Create(ctx context.Context, userID string, in ReminderInput) (core.Reminder, error) {
	r := core.Reminder{Notes: []string{}}
	in.apply(&r)
	if err := r.Validate(); err != nil {
		return core.Reminder{}, invalid(err)
	}

	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	created, err := s.store.CreateReminder(ctx2, userID, r)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("save reminder: %w", err)
	}
	s.events.Changed(ctx, amqp.EntityReminder, amqp.OpCreate, userID, created.ID)
	return created, nil
}

// List returns every reminder of the user, soonest due first.
func (s *ReminderService) List(ctx context.Context, userID string) ([]core.Reminder, error) {
	ctx, cancel := withStorageTimeout(ctx)
	defer cancel()
	reminders, err := s.store.ListReminders(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	sort.SliceStable(reminders, func(i, j int) bool {
		return reminders[i].Due.Before(reminders[j].Due.Time)
	})
	return reminders, nil
}

// Update replaces title, due date and description. Notes are kept.
func (s *ReminderService) Update(ctx context.Context, userID, id string, in ReminderInput) (core.Reminder, error) {
	return s.modify(ctx, userID, id, func(r *core.Reminder) error {
		in.apply(r)
		return r.Validate()
	})
}

func (s *ReminderService) AddNote(ctx context.Context, userID, id, note string) (core.Reminder, error) {
	if err := core.ValidateNote(note); err != nil {
		return core.Reminder{}, invalid(err)
	}
	return s.modify(ctx, userID, id, func(r *core.Reminder) error {
		r.Notes = append(r.Notes, strings.TrimSpace(note))
		return nil
	})
}

func (s *ReminderService) modify(ctx context.Context, userID, id string, apply func(*core.Reminder) error) (core.Reminder, error) {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()

	r, err := s.store.GetReminder(ctx2, userID, id)
	if err != nil {
		return core.Reminder{}, fmt.Errorf("get reminder %s: %w", id, err)
	}
	if err := apply(&r); err != nil {
		return core.Reminder{}, invalid(err)
	}
	if err := s.store.UpdateReminder(ctx2, userID, id, r); err != nil {
		return core.Reminder{}, fmt.Errorf("update reminder %s: %w", id, err)
	}
	s.events.Changed(ctx, amqp.EntityReminder, amqp.OpUpdate, userID, id)
	return r, nil
}

func (s *ReminderService) Delete(ctx context.Context, userID, id string) error {
	ctx2, cancel := withStorageTimeout(ctx)
	defer cancel()
	if err := s.store.DeleteReminder(ctx2, userID, id); err != nil {
		return fmt.Errorf("delete reminder %s: %w", id, err)
	}
	s.events.Changed(ctx, amqp.EntityReminder, amqp.OpDelete, userID, id)
	return nil
}
