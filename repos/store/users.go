package store

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

func (s *Service) GetUser(ctx context.Context, uid string) (*User, error) {
	doc, err := s.user(uid).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user %s: %w", uid, err)
	}
	return decodeUser(uid, doc.Data())
}

func (s *Service) UserRole(ctx context.Context, uid string) (string, error) {
	user, err := s.GetUser(ctx, uid)
	if err != nil {
		return "", err
	}
	return user.Rol, nil
}

// TopUsers returns users ordered by cumulative points, highest first.
func (s *Service) TopUsers(ctx context.Context, limit int) ([]*User, error) {
	docs, err := s.Client.Collection(usersCollection).
		OrderBy("puntosTotales", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("query podium: %w", err)
	}

	users := make([]*User, 0, len(docs))
	for _, doc := range docs {
		user, err := decodeUser(doc.Ref.ID, doc.Data())
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

// ApplySettlement records the round's points on the prediction and moves the
// user's running total by delta. Both writes commit in one batch, so a rerun
// never sees new points without the matching total.
func (s *Service) ApplySettlement(ctx context.Context, ref PredictionRef, round, points, delta int) error {
	batch := s.Client.Batch()
	batch.Update(s.prediction(ref), []firestore.Update{
		{Path: "puntos", Value: points},
		{Path: "estado", Value: PredictionClosed},
		{Path: "enviada", Value: true},
	})
	batch.Set(s.user(ref.UserID), map[string]interface{}{
		"puntosTotales": firestore.Increment(delta),
		"puntosJornada": points,
		"ultimaJornada": round,
	}, firestore.MergeAll)

	if _, err := batch.Commit(ctx); err != nil {
		if isNotFound(err) {
			return ErrNotFound
		}
		return fmt.Errorf("settle %s/%s: %w", ref.UserID, ref.Key, err)
	}
	return nil
}
