package store

import (
	"context"
	"log"
)

// DeviceDeleter removes one device registration.
type DeviceDeleter interface {
	DeleteDevice(ctx context.Context, device DeviceToken) error
}

// PruneDevices deletes each registration independently and returns how many
// deletions succeeded. Failures are logged and never returned: cleanup must
// not change an outcome the caller already recorded.
func PruneDevices(ctx context.Context, deleter DeviceDeleter, devices []DeviceToken) int {
	deleted := 0
	for _, device := range devices {
		if err := deleter.DeleteDevice(ctx, device); err != nil {
			log.Printf("[Cleanup] Could not delete token for %s: %v\n", device.UserID, err)
			continue
		}
		deleted++
	}
	if len(devices) > 0 {
		log.Printf("[Cleanup] Pruned %d/%d unregistered tokens\n", deleted, len(devices))
	}
	return deleted
}
