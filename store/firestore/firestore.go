// Package firestore provides a Firestore implementation of the
// entitlement.GuestStore interface, one document per key.
package firestore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Store implements entitlement.GuestStore using Google Cloud Firestore.
type Store struct {
	client     *firestore.Client
	collection string
}

// Config holds Firestore store configuration.
type Config struct {
	// Collection is the Firestore collection for guest state documents.
	// Default: "guest_state".
	Collection string
}

type document struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// New creates a new Firestore guest store.
func New(client *firestore.Client, config Config) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client is required")
	}
	collection := config.Collection
	if collection == "" {
		collection = "guest_state"
	}
	return &Store{client: client, collection: collection}, nil
}

// Get implements entitlement.GuestStore.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	snap, err := s.doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("firestore get: %w", err)
	}

	var data document
	if err := snap.DataTo(&data); err != nil {
		return "", false, fmt.Errorf("firestore decode: %w", err)
	}
	return data.Value, true, nil
}

// Set implements entitlement.GuestStore.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.doc(key).Set(ctx, document{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("firestore set: %w", err)
	}
	return nil
}

// Delete implements entitlement.GuestStore.
func (s *Store) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if _, err := s.doc(key).Delete(ctx); err != nil {
			if status.Code(err) == codes.NotFound {
				continue
			}
			return fmt.Errorf("firestore delete %q: %w", key, err)
		}
	}
	return nil
}

func (s *Store) doc(key string) *firestore.DocumentRef {
	return s.client.Collection(s.collection).Doc(key)
}
