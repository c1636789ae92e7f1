package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// FirestoreConfig selects the project, database and collection holding the session documents
type FirestoreConfig struct {
	ProjectID       string
	Database        string
	Collection      string
	CredentialsFile string
}

// kvDoc is one stored key
type kvDoc struct {
	Value     string    `firestore:"value"`
	UpdatedAt time.Time `firestore:"updated_at"`
}

// FirestoreStore keeps one document per key in a collection
type FirestoreStore struct {
	client     *firestore.Client
	collection string
}

var _ Backend = (*FirestoreStore)(nil)

// NewFirestoreStore connects to Firestore. The emulator is honoured through
// FIRESTORE_EMULATOR_HOST by the client library itself.
func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("projectID is required")
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("collection is required")
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var client *firestore.Client
	var err error
	if cfg.Database != "" && cfg.Database != "(default)" {
		client, err = firestore.NewClientWithDatabase(ctx, cfg.ProjectID, cfg.Database, opts...)
	} else {
		client, err = firestore.NewClient(ctx, cfg.ProjectID, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return &FirestoreStore{client: client, collection: cfg.Collection}, nil
}

func (s *FirestoreStore) Name() string { return "firestore" }

func (s *FirestoreStore) Get(ctx context.Context, key string) (string, error) {
	snap, err := s.client.Collection(s.collection).Doc(key).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("firestore get %s: %w", key, err)
	}
	var doc kvDoc
	if err := snap.DataTo(&doc); err != nil {
		return "", fmt.Errorf("firestore decode %s: %w", key, err)
	}
	return doc.Value, nil
}

func (s *FirestoreStore) Set(ctx context.Context, key, value string) error {
	_, err := s.client.Collection(s.collection).Doc(key).Set(ctx, kvDoc{
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("firestore set %s: %w", key, err)
	}
	return nil
}

// Delete succeeds for missing documents; Firestore deletes are idempotent
func (s *FirestoreStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.Collection(s.collection).Doc(key).Delete(ctx); err != nil {
		return fmt.Errorf("firestore delete %s: %w", key, err)
	}
	return nil
}

// Health reads the tokens document; a missing document still proves connectivity
func (s *FirestoreStore) Health(ctx context.Context) error {
	_, err := s.client.Collection(s.collection).Doc(KeyTokens).Get(ctx)
	if err != nil && status.Code(err) != codes.NotFound {
		return err
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
