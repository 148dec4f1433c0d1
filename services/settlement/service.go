package settlement

import (
	"context"
	"fmt"
	"log"

	store "github.com/nvbf/quiniela/repos/store"
)

// Store is the persistence the settlement needs.
type Store interface {
	FindPrediction(ctx context.Context, uid string, round int) (*store.Prediction, error)
	GetRound(ctx context.Context, round int) (*store.Round, error)
	ApplySettlement(ctx context.Context, ref store.PredictionRef, round, points, delta int) error
}

type SettlementService struct {
	store Store
}

func NewSettlementService(s Store) *SettlementService {
	return &SettlementService{
		store: s,
	}
}

// Result is what one settlement run computed and applied.
type Result struct {
	Puntos int `json:"puntos"`
	Delta  int `json:"-"`
}

// Settle scores a user's prediction for a round against the official results,
// closes it, and moves the user's running total by the change in points.
// Running it again with the same results applies a zero delta.
func (s *SettlementService) Settle(ctx context.Context, uid string, round int) (*Result, error) {
	prediction, err := s.store.FindPrediction(ctx, uid, round)
	if err != nil {
		return nil, fmt.Errorf("prediction %s/%d: %w", uid, round, err)
	}
	official, err := s.store.GetRound(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("jornada %d: %w", round, err)
	}
	// A round exists before it is played; without resultados there is nothing to score.
	if len(official.Resultados) == 0 {
		return nil, fmt.Errorf("jornada %d has no resultados: %w", round, store.ErrNotFound)
	}

	points := ComputePoints(prediction.Pronosticos, official.Resultados)
	delta := points - prediction.Puntos

	ref := store.PredictionRef{UserID: uid, Key: prediction.Key}
	if err := s.store.ApplySettlement(ctx, ref, round, points, delta); err != nil {
		return nil, err
	}

	log.Printf("[Settlement] %s jornada %d: %d puntos (delta %d)\n", uid, round, points, delta)
	return &Result{Puntos: points, Delta: delta}, nil
}

// ComputePoints counts positions where the normalized predicted outcome equals
// the official one, over the shorter of the two lists.
func ComputePoints(predicted, official []string) int {
	n := len(predicted)
	if len(official) < n {
		n = len(official)
	}
	points := 0
	for i := 0; i < n; i++ {
		if store.NormalizeOutcome(predicted[i]) == store.NormalizeOutcome(official[i]) {
			points++
		}
	}
	return points
}
