package admin

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	docid "github.com/nvbf/quiniela/pkg/docid"
	store "github.com/nvbf/quiniela/repos/store"
)

var (
	ErrInvalidSendAt      = errors.New("sendAt must be an RFC3339 timestamp")
	ErrInvalidClosingTime = errors.New("fechaCierre must be an RFC3339 timestamp")
	ErrInvalidResults     = errors.New("resultados must hold one of L, E or V for every partido")
	ErrInvalidRound       = errors.New("jornada must be a positive integer")
)

type Store interface {
	CreateReminder(ctx context.Context, reminder *store.Reminder) error
	SaveRound(ctx context.Context, round int, closesAt time.Time) error
	SetResults(ctx context.Context, round int, results []string) error
	MigrateLegacyPredictions(ctx context.Context) (migrated, skipped int, err error)
}

type AdminService struct {
	store Store
}

func NewAdminService(s Store) *AdminService {
	return &AdminService{store: s}
}

// ScheduleReminder stores a pending reminder. Empty title, body and url are
// filled with defaults when it is dispatched.
func (s *AdminService) ScheduleReminder(ctx context.Context, request ReminderRequest) (*store.Reminder, error) {
	sendAt, err := time.Parse(time.RFC3339, strings.TrimSpace(request.SendAt))
	if err != nil {
		return nil, ErrInvalidSendAt
	}

	reminder := &store.Reminder{
		ID:     docid.NewReminderID(),
		Title:  strings.TrimSpace(request.Title),
		Body:   strings.TrimSpace(request.Body),
		URL:    strings.TrimSpace(request.URL),
		SendAt: sendAt.UTC(),
		Status: store.ReminderPending,
	}
	if err := s.store.CreateReminder(ctx, reminder); err != nil {
		log.Printf("Failed to create reminder in Firestore: %v\n", err)
		return nil, err
	}
	log.Printf("[Admin] Scheduled reminder %s for %s\n", reminder.ID, reminder.SendAt.Format(time.RFC3339))
	return reminder, nil
}

func (s *AdminService) SaveRound(ctx context.Context, round int, request RoundRequest) error {
	if round <= 0 {
		return ErrInvalidRound
	}
	closesAt, err := time.Parse(time.RFC3339, strings.TrimSpace(request.FechaCierre))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidClosingTime, err)
	}
	return s.store.SaveRound(ctx, round, closesAt.UTC())
}

// PublishResults stores the official outcome of every match in the round.
func (s *AdminService) PublishResults(ctx context.Context, round int, results []string) error {
	if round <= 0 {
		return ErrInvalidRound
	}
	normalized, err := NormalizeResults(results)
	if err != nil {
		return err
	}
	if err := s.store.SetResults(ctx, round, normalized); err != nil {
		return err
	}
	log.Printf("[Admin] Published resultados for jornada %d\n", round)
	return nil
}

func (s *AdminService) MigratePredictions(ctx context.Context) (*MigrationReport, error) {
	migrated, skipped, err := s.store.MigrateLegacyPredictions(ctx)
	if err != nil {
		return nil, err
	}
	log.Printf("[Admin] Migrated %d legacy quinielas, skipped %d\n", migrated, skipped)
	return &MigrationReport{Migrated: migrated, Skipped: skipped}, nil
}

// NormalizeResults requires exactly one valid outcome per match.
func NormalizeResults(results []string) ([]string, error) {
	if len(results) != store.MatchesPerRound {
		return nil, ErrInvalidResults
	}
	out := make([]string, len(results))
	for i, result := range results {
		if !store.ValidOutcome(result) {
			return nil, ErrInvalidResults
		}
		out[i] = store.NormalizeOutcome(result)
	}
	return out, nil
}
