package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// AllDeviceTokens reads every registration under users/*/devices. The owner
// comes from the document path; records without an owner or token are dropped.
func (s *Service) AllDeviceTokens(ctx context.Context) ([]DeviceToken, error) {
	return s.collectTokens(s.Client.CollectionGroup(devicesCollection).Documents(ctx))
}

func (s *Service) UserDeviceTokens(ctx context.Context, uid string) ([]DeviceToken, error) {
	return s.collectTokens(s.user(uid).Collection(devicesCollection).Documents(ctx))
}

func (s *Service) collectTokens(iter *firestore.DocumentIterator) ([]DeviceToken, error) {
	defer iter.Stop()

	var tokens []DeviceToken
	for {
		doc, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("read device tokens: %w", err)
		}
		if token, ok := deviceFromDoc(doc.Ref, doc.Data()); ok {
			tokens = append(tokens, token)
		}
	}
	return tokens, nil
}

func deviceFromDoc(ref *firestore.DocumentRef, data map[string]interface{}) (DeviceToken, bool) {
	if ref.Parent == nil || ref.Parent.Parent == nil {
		return DeviceToken{}, false
	}
	token, _ := optionalString(data, "token")
	if token == "" {
		token = ref.ID
	}
	owner := ref.Parent.Parent.ID
	if owner == "" || token == "" {
		return DeviceToken{}, false
	}
	return DeviceToken{UserID: owner, Token: token, DocID: ref.ID}, true
}

func (s *Service) SaveDevice(ctx context.Context, uid, token, platform string, now time.Time) error {
	_, err := s.user(uid).Collection(devicesCollection).Doc(token).Set(ctx, map[string]interface{}{
		"token":      token,
		"plataforma": platform,
		"creado":     now,
	}, firestore.MergeAll)
	if err != nil {
		return fmt.Errorf("save device for %s: %w", uid, err)
	}
	return nil
}

func (s *Service) DeleteDevice(ctx context.Context, device DeviceToken) error {
	id := device.DocID
	if id == "" {
		id = device.Token
	}
	_, err := s.user(device.UserID).Collection(devicesCollection).Doc(id).Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete device for %s: %w", device.UserID, err)
	}
	return nil
}
