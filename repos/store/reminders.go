package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
)

// DueReminders returns up to limit pending reminders scheduled at or before
// now, earliest first. Documents that fail to decode are returned with Err set.
func (s *Service) DueReminders(ctx context.Context, now time.Time, limit int) ([]ReminderDoc, error) {
	docs, err := s.Client.Collection(remindersCollection).
		Where("status", "==", ReminderPending).
		Where("sendAt", "<=", now).
		OrderBy("sendAt", firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}

	out := make([]ReminderDoc, 0, len(docs))
	for _, doc := range docs {
		reminder, err := decodeReminder(doc.Ref.ID, doc.Data())
		out = append(out, ReminderDoc{ID: doc.Ref.ID, Reminder: reminder, Err: err})
	}
	return out, nil
}

// StaleSending lists reminders stuck in "sending" since before cutoff.
func (s *Service) StaleSending(ctx context.Context, cutoff time.Time, limit int) ([]string, error) {
	docs, err := s.Client.Collection(remindersCollection).
		Where("status", "==", ReminderSending).
		Where("lastAttemptAt", "<=", cutoff).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query stale reminders: %w", err)
	}
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

// ClaimReminder flips a reminder from pending to sending inside a transaction.
// It reports false when the reminder is no longer pending or is not yet due,
// which is how overlapping dispatcher runs avoid sending it twice.
func (s *Service) ClaimReminder(ctx context.Context, id string, now time.Time) (bool, error) {
	ref := s.Client.Collection(remindersCollection).Doc(id)
	claimed := false

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		claimed = false
		doc, err := tx.Get(ref)
		if err != nil {
			if isNotFound(err) {
				return nil
			}
			return err
		}
		reminder, err := decodeReminder(id, doc.Data())
		if err != nil {
			return err
		}
		if reminder.Status != ReminderPending || reminder.SendAt.After(now) {
			return nil
		}
		claimed = true
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: ReminderSending},
			{Path: "lastAttemptAt", Value: now},
		})
	})
	if err != nil {
		return false, fmt.Errorf("claim reminder %s: %w", id, err)
	}
	return claimed, nil
}

// ExpireStaleReminder moves a reminder that is still "sending" since before
// cutoff to "error". It reports whether the transition happened.
func (s *Service) ExpireStaleReminder(ctx context.Context, id string, cutoff, now time.Time) (bool, error) {
	ref := s.Client.Collection(remindersCollection).Doc(id)
	expired := false

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		expired = false
		doc, err := tx.Get(ref)
		if err != nil {
			return err
		}
		reminder, err := decodeReminder(id, doc.Data())
		if err != nil {
			return err
		}
		if reminder.Status != ReminderSending || reminder.LastAttemptAt.After(cutoff) {
			return nil
		}
		expired = true
		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: ReminderError},
			{Path: "error", Value: "claim expired while sending"},
			{Path: "lastAttemptAt", Value: now},
		})
	})
	if err != nil {
		return false, fmt.Errorf("expire reminder %s: %w", id, err)
	}
	return expired, nil
}

func (s *Service) MarkReminderSent(ctx context.Context, id string, outcome ReminderOutcome) error {
	updates := []firestore.Update{
		{Path: "status", Value: ReminderSent},
		{Path: "sentAt", Value: outcome.SentAt},
		{Path: "error", Value: firestore.Delete},
	}
	if outcome.Entregados != nil {
		updates = append(updates, firestore.Update{Path: "entregados", Value: *outcome.Entregados})
	}
	if outcome.Fallidos != nil {
		updates = append(updates, firestore.Update{Path: "fallidos", Value: *outcome.Fallidos})
	}
	if outcome.Note != "" {
		updates = append(updates, firestore.Update{Path: "note", Value: outcome.Note})
	}

	_, err := s.Client.Collection(remindersCollection).Doc(id).Update(ctx, updates)
	if err != nil {
		return fmt.Errorf("mark reminder %s sent: %w", id, err)
	}
	return nil
}

func (s *Service) MarkReminderError(ctx context.Context, id, message string, at time.Time) error {
	_, err := s.Client.Collection(remindersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: ReminderError},
		{Path: "error", Value: message},
		{Path: "lastAttemptAt", Value: at},
	})
	if err != nil {
		return fmt.Errorf("mark reminder %s error: %w", id, err)
	}
	return nil
}

func (s *Service) CreateReminder(ctx context.Context, reminder *Reminder) error {
	_, err := s.Client.Collection(remindersCollection).Doc(reminder.ID).Create(ctx, map[string]interface{}{
		"title":  reminder.Title,
		"body":   reminder.Body,
		"url":    reminder.URL,
		"sendAt": reminder.SendAt,
		"status": ReminderPending,
	})
	if err != nil {
		return fmt.Errorf("create reminder %s: %w", reminder.ID, err)
	}
	return nil
}
