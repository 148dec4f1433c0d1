package closure

import (
	"context"
	"fmt"
	"log"
	"time"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
	store "github.com/nvbf/quiniela/repos/store"
)

// Store is the persistence the closure job needs.
type Store interface {
	DueRounds(ctx context.Context, now time.Time) ([]*store.Round, error)
	OpenPredictions(ctx context.Context, round int) ([]store.PredictionRef, error)
	ClosePredictions(ctx context.Context, refs []store.PredictionRef, now time.Time) error
}

type ClosureService struct {
	store     Store
	clock     timehelper.Clock
	batchSize int
}

func NewClosureService(s Store, clock timehelper.Clock) *ClosureService {
	return &ClosureService{
		store:     s,
		clock:     clock,
		batchSize: store.MaxBatchWrites,
	}
}

type ClosedJourney struct {
	Jornada int `json:"jornada"`
	Updated int `json:"updated"`
}

type Summary struct {
	ClosedJourneys  []ClosedJourney `json:"closedJourneys"`
	CheckedJourneys int             `json:"checkedJourneys"`
}

// CloseDueRounds closes every still-open prediction of rounds whose closing
// time has passed. Commits are split into batches; a run interrupted between
// batches is completed by the next run since only open predictions are read.
func (s *ClosureService) CloseDueRounds(ctx context.Context) (*Summary, error) {
	now := s.clock.Now()
	rounds, err := s.store.DueRounds(ctx, now)
	if err != nil {
		return nil, err
	}

	summary := &Summary{ClosedJourneys: []ClosedJourney{}, CheckedJourneys: len(rounds)}
	for _, round := range rounds {
		refs, err := s.store.OpenPredictions(ctx, round.Numero)
		if err != nil {
			return summary, err
		}
		if len(refs) == 0 {
			continue
		}

		updated := 0
		for start := 0; start < len(refs); start += s.batchSize {
			end := start + s.batchSize
			if end > len(refs) {
				end = len(refs)
			}
			if err := s.store.ClosePredictions(ctx, refs[start:end], now); err != nil {
				return summary, fmt.Errorf("jornada %d after %d closed: %w", round.Numero, updated, err)
			}
			updated += end - start
		}

		log.Printf("[Closure] jornada %d: closed %d open predictions\n", round.Numero, updated)
		summary.ClosedJourneys = append(summary.ClosedJourneys, ClosedJourney{Jornada: round.Numero, Updated: updated})
	}
	return summary, nil
}
