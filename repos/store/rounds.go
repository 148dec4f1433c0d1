package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/nvbf/quiniela/pkg/docid"
)

func (s *Service) GetRound(ctx context.Context, round int) (*Round, error) {
	doc, err := s.Client.Collection(roundsCollection).Doc(docid.RoundKey(round)).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get jornada %d: %w", round, err)
	}
	return decodeRound(doc.Ref.ID, doc.Data())
}

// DueRounds returns rounds whose closing time is at or before now.
func (s *Service) DueRounds(ctx context.Context, now time.Time) ([]*Round, error) {
	docs, err := s.Client.Collection(roundsCollection).
		Where("fechaCierre", "<=", now).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query due jornadas: %w", err)
	}

	rounds := make([]*Round, 0, len(docs))
	for _, doc := range docs {
		round, err := decodeRound(doc.Ref.ID, doc.Data())
		if err != nil {
			return nil, err
		}
		rounds = append(rounds, round)
	}
	return rounds, nil
}

func (s *Service) SaveRound(ctx context.Context, round int, closesAt time.Time) error {
	_, err := s.Client.Collection(roundsCollection).Doc(docid.RoundKey(round)).Set(ctx, map[string]interface{}{
		"numero":      round,
		"fechaCierre": closesAt,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save jornada %d: %w", round, err)
	}
	return nil
}

func (s *Service) SetResults(ctx context.Context, round int, results []string) error {
	_, err := s.Client.Collection(roundsCollection).Doc(docid.RoundKey(round)).Update(ctx, []firestore.Update{
		{Path: "resultados", Value: results},
	})
	if err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("set resultados for jornada %d: %w", round, err)
	}
	return nil
}
