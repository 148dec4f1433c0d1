package predictions

import (
	"context"
	"fmt"
	"time"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
	store "github.com/nvbf/quiniela/repos/store"
)

// Store is the persistence the prediction flow needs.
type Store interface {
	GetRound(ctx context.Context, round int) (*store.Round, error)
	OpenPrediction(ctx context.Context, uid string, round int, now time.Time) (*store.Prediction, error)
	FindPrediction(ctx context.Context, uid string, round int) (*store.Prediction, error)
	SavePrediction(ctx context.Context, uid string, round int, picks []string, submit bool, now time.Time) (*store.Prediction, error)
}

type PredictionService struct {
	store Store
	clock timehelper.Clock
}

func NewPredictionService(s Store, clock timehelper.Clock) *PredictionService {
	return &PredictionService{
		store: s,
		clock: clock,
	}
}

// Open returns the caller's prediction for a round, creating it on first use.
func (s *PredictionService) Open(ctx context.Context, uid string, round int) (*store.Prediction, error) {
	if _, err := s.store.GetRound(ctx, round); err != nil {
		return nil, err
	}
	return s.store.OpenPrediction(ctx, uid, round, s.clock.Now())
}

// Save validates and stores picks. Submitting requires every match picked and
// closes the prediction.
func (s *PredictionService) Save(ctx context.Context, uid string, round int, picks []string, submit bool) (*store.Prediction, error) {
	normalized, err := ValidatePicks(picks, submit)
	if err != nil {
		return nil, err
	}

	official, err := s.store.GetRound(ctx, round)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if !official.FechaCierre.IsZero() && !now.Before(official.FechaCierre) {
		return nil, store.ErrRoundClosed
	}

	existing, err := s.store.FindPrediction(ctx, uid, round)
	if err == nil && existing.Estado == store.PredictionClosed {
		return nil, store.ErrPredictionClosed
	}
	if err != nil && err != store.ErrNotFound {
		return nil, err
	}

	return s.store.SavePrediction(ctx, uid, round, normalized, submit, now)
}

// ValidatePicks enforces the fixed list length and the outcome domain. Blank
// entries are allowed only while the prediction is not being submitted.
func ValidatePicks(picks []string, submit bool) ([]string, error) {
	if len(picks) != store.MatchesPerRound {
		return nil, fmt.Errorf("%w: want %d pronosticos, got %d", store.ErrInvalidPrediction, store.MatchesPerRound, len(picks))
	}
	out := make([]string, len(picks))
	for i, pick := range picks {
		normalized := store.NormalizeOutcome(pick)
		if normalized == "" {
			if submit {
				return nil, fmt.Errorf("%w: partido %d has no pick", store.ErrInvalidPrediction, i+1)
			}
			continue
		}
		if !store.ValidOutcome(normalized) {
			return nil, fmt.Errorf("%w: %q is not L, E or V", store.ErrInvalidPrediction, pick)
		}
		out[i] = normalized
	}
	return out, nil
}
