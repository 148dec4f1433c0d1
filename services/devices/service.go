package devices

import (
	"context"
	"errors"
	"strings"
	"time"

	timehelper "github.com/nvbf/quiniela/pkg/timeHelper"
	store "github.com/nvbf/quiniela/repos/store"
)

var ErrMissingToken = errors.New("token is required")

// Platforms the web client registers from.
var platforms = map[string]bool{"web": true, "android": true, "ios": true}

type Store interface {
	SaveDevice(ctx context.Context, uid, token, platform string, now time.Time) error
	DeleteDevice(ctx context.Context, device store.DeviceToken) error
}

type DeviceService struct {
	store Store
	clock timehelper.Clock
}

func NewDeviceService(s Store, clock timehelper.Clock) *DeviceService {
	return &DeviceService{
		store: s,
		clock: clock,
	}
}

// Register upserts the caller's push token. Unknown platforms are stored as web.
func (s *DeviceService) Register(ctx context.Context, uid, token, platform string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	platform = strings.ToLower(strings.TrimSpace(platform))
	if !platforms[platform] {
		platform = "web"
	}
	return s.store.SaveDevice(ctx, uid, token, platform, s.clock.Now())
}

func (s *DeviceService) Unregister(ctx context.Context, uid, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrMissingToken
	}
	return s.store.DeleteDevice(ctx, store.DeviceToken{UserID: uid, Token: token, DocID: token})
}
