package podium

import (
	"context"
	"log"

	store "github.com/nvbf/quiniela/repos/store"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Store interface {
	TopUsers(ctx context.Context, limit int) ([]*store.User, error)
}

type PodiumService struct {
	store Store
}

func NewPodiumService(s Store) *PodiumService {
	return &PodiumService{store: s}
}

// GetPodium ranks users by cumulative points. Tied users share a rank.
func (s *PodiumService) GetPodium(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	users, err := s.store.TopUsers(ctx, limit)
	if err != nil {
		log.Printf("Failed to read podium from Firestore: %v\n", err)
		return nil, err
	}

	entries := make([]Entry, 0, len(users))
	for i, user := range users {
		rank := i + 1
		if i > 0 && user.PuntosTotales == entries[i-1].PuntosTotales {
			rank = entries[i-1].Rank
		}
		entries = append(entries, Entry{
			Rank:          rank,
			UID:           user.UID,
			Nombre:        user.Nombre,
			PuntosTotales: user.PuntosTotales,
			UltimaJornada: user.UltimaJornada,
			PuntosJornada: user.PuntosJornada,
		})
	}
	return entries, nil
}
