package badges

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	push "github.com/nvbf/quiniela/repos/push"
	store "github.com/nvbf/quiniela/repos/store"
)

var (
	ErrUnauthenticated = errors.New("caller is not authenticated")
	ErrInvalidBadge    = errors.New("badgeId missing or unknown")
)

// Store is the persistence the badge notification needs.
type Store interface {
	UserDeviceTokens(ctx context.Context, uid string) ([]store.DeviceToken, error)
	DeleteDevice(ctx context.Context, device store.DeviceToken) error
}

// Pusher sends one multicast notification.
type Pusher interface {
	SendMulticast(ctx context.Context, tokens []string, notification push.Notification) (*push.BatchResult, error)
}

type BadgeService struct {
	store  Store
	pusher Pusher
}

func NewBadgeService(s Store, pusher Pusher) *BadgeService {
	return &BadgeService{
		store:  s,
		pusher: pusher,
	}
}

// Notify pushes the badge celebration to every device the caller registered
// and returns how many deliveries succeeded.
func (s *BadgeService) Notify(ctx context.Context, uid, badgeID string) (int, error) {
	if uid == "" {
		return 0, ErrUnauthenticated
	}
	badge, ok := Lookup(strings.TrimSpace(badgeID))
	if !ok {
		return 0, ErrInvalidBadge
	}

	devices, err := s.store.UserDeviceTokens(ctx, uid)
	if err != nil {
		return 0, err
	}
	if len(devices) == 0 {
		return 0, nil
	}

	owners := make(map[string][]store.DeviceToken, len(devices))
	var tokens []string
	for _, device := range devices {
		if _, seen := owners[device.Token]; !seen {
			tokens = append(tokens, device.Token)
		}
		owners[device.Token] = append(owners[device.Token], device)
	}

	notification := push.Notification{
		Title: badge.Title,
		Body:  badge.Body,
		Data:  map[string]string{"url": "/insignias", "badgeId": badge.ID},
		Path:  "/insignias",
	}

	delivered := 0
	var stale []store.DeviceToken
	for _, chunk := range push.Chunk(tokens, push.MaxMulticastTokens) {
		result, err := s.pusher.SendMulticast(ctx, chunk, notification)
		if err != nil {
			store.PruneDevices(ctx, s.store, stale)
			return delivered, fmt.Errorf("send badge %s to %s: %w", badge.ID, uid, err)
		}
		delivered += result.SuccessCount
		for _, token := range result.Unregistered {
			stale = append(stale, owners[token]...)
		}
	}

	store.PruneDevices(ctx, s.store, stale)
	log.Printf("[Badges] %s to %s: %d delivered\n", badge.ID, uid, delivered)
	return delivered, nil
}
