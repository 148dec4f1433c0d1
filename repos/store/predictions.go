package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/nvbf/quiniela/pkg/docid"
)

// FindPrediction looks up a user's prediction for a round under the canonical
// key and falls back to the legacy prefixed key. The canonical document wins
// when both exist.
func (s *Service) FindPrediction(ctx context.Context, uid string, round int) (*Prediction, error) {
	for _, key := range []string{docid.RoundKey(round), docid.LegacyRoundKey(round)} {
		doc, err := s.prediction(PredictionRef{UserID: uid, Key: key}).Get(ctx)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("get prediction %s/%s: %w", uid, key, err)
		}
		prediction, err := decodePrediction(uid, key, doc.Data())
		if err != nil {
			return nil, err
		}
		if prediction.Jornada == 0 {
			prediction.Jornada = round
		}
		return prediction, nil
	}
	return nil, ErrNotFound
}

// OpenPrediction returns the user's prediction for a round, creating an empty
// open one on first access.
func (s *Service) OpenPrediction(ctx context.Context, uid string, round int, now time.Time) (*Prediction, error) {
	existing, err := s.FindPrediction(ctx, uid, round)
	if err == nil {
		return existing, nil
	}
	if err != ErrNotFound {
		return nil, err
	}

	prediction := &Prediction{
		UserID:      uid,
		Key:         docid.RoundKey(round),
		Jornada:     round,
		Pronosticos: make([]string, MatchesPerRound),
		Estado:      PredictionOpen,
		Actualizada: now,
	}
	_, err = s.prediction(PredictionRef{UserID: uid, Key: prediction.Key}).Create(ctx, map[string]interface{}{
		"jornada":     round,
		"pronosticos": outcomeList(prediction.Pronosticos),
		"estado":      PredictionOpen,
		"enviada":     false,
		"puntos":      0,
		"actualizada": now,
	})
	if err != nil {
		if isAlreadyExists(err) {
			return s.FindPrediction(ctx, uid, round)
		}
		return nil, fmt.Errorf("create prediction %s/%d: %w", uid, round, err)
	}
	return prediction, nil
}

// SavePrediction stores picks on an open prediction under the canonical key;
// submit also closes it. The closed check runs inside a transaction so a
// concurrent auto-closure cannot be overwritten.
func (s *Service) SavePrediction(ctx context.Context, uid string, round int, picks []string, submit bool, now time.Time) (*Prediction, error) {
	ref := s.prediction(PredictionRef{UserID: uid, Key: docid.RoundKey(round)})
	var saved *Prediction

	err := s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		current := &Prediction{Estado: PredictionOpen}
		doc, err := tx.Get(ref)
		switch {
		case err == nil:
			if current, err = decodePrediction(uid, ref.ID, doc.Data()); err != nil {
				return err
			}
		case isNotFound(err):
		default:
			return err
		}
		if current.Estado == PredictionClosed {
			return ErrPredictionClosed
		}

		saved = &Prediction{
			UserID:      uid,
			Key:         ref.ID,
			Jornada:     round,
			Pronosticos: picks,
			Estado:      PredictionOpen,
			Enviada:     submit,
			Puntos:      current.Puntos,
			Actualizada: now,
		}
		if submit {
			saved.Estado = PredictionClosed
		}
		return tx.Set(ref, map[string]interface{}{
			"jornada":     round,
			"pronosticos": outcomeList(picks),
			"estado":      saved.Estado,
			"enviada":     submit,
			"actualizada": now,
		}, firestore.MergeAll)
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// OpenPredictions lists every still-open prediction for a round across users.
func (s *Service) OpenPredictions(ctx context.Context, round int) ([]PredictionRef, error) {
	iter := s.Client.CollectionGroup(predictionsCollection).
		Where("jornada", "==", round).
		Where("estado", "==", PredictionOpen).
		Documents(ctx)
	defer iter.Stop()

	var refs []PredictionRef
	for {
		doc, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("query open predictions for jornada %d: %w", round, err)
		}
		owner := doc.Ref.Parent.Parent
		if owner == nil {
			continue
		}
		refs = append(refs, PredictionRef{UserID: owner.ID, Key: doc.Ref.ID})
	}
	return refs, nil
}

// ClosePredictions marks the given predictions closed by the automatic job in
// one batch commit. Callers keep len(refs) <= MaxBatchWrites.
func (s *Service) ClosePredictions(ctx context.Context, refs []PredictionRef, now time.Time) error {
	if len(refs) > MaxBatchWrites {
		return fmt.Errorf("batch of %d exceeds %d writes", len(refs), MaxBatchWrites)
	}
	batch := s.Client.Batch()
	for _, ref := range refs {
		batch.Update(s.prediction(ref), []firestore.Update{
			{Path: "estado", Value: PredictionClosed},
			{Path: "cierreAutomatico", Value: true},
			{Path: "actualizada", Value: now},
		})
	}
	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("commit close batch: %w", err)
	}
	return nil
}

// MigrateLegacyPredictions moves every users/*/quinielas/jornada_N document to
// users/*/quinielas/N. When a canonical document already exists it is kept and
// the legacy one is only deleted.
func (s *Service) MigrateLegacyPredictions(ctx context.Context) (migrated, skipped int, err error) {
	iter := s.Client.CollectionGroup(predictionsCollection).Documents(ctx)
	defer iter.Stop()

	for {
		doc, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return migrated, skipped, fmt.Errorf("scan predictions: %w", err)
		}
		round, legacy, err := docid.ParseRoundKey(doc.Ref.ID)
		if err != nil || !legacy || doc.Ref.Parent.Parent == nil {
			continue
		}

		data := doc.Data()
		data["jornada"] = round
		canonical := doc.Ref.Parent.Doc(docid.RoundKey(round))

		moved := false
		err = s.Client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
			moved = false
			_, err := tx.Get(canonical)
			switch {
			case err == nil:
			case isNotFound(err):
				if err := tx.Create(canonical, data); err != nil {
					return err
				}
				moved = true
			default:
				return err
			}
			return tx.Delete(doc.Ref)
		})
		if err != nil {
			log.Printf("Failed to migrate prediction %s: %v\n", doc.Ref.Path, err)
			return migrated, skipped, err
		}
		if moved {
			migrated++
		} else {
			skipped++
		}
	}
	return migrated, skipped, nil
}
