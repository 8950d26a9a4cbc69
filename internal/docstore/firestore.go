package docstore

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// DefaultCollection is the Firestore collection documents are written to.
const DefaultCollection = "sentiments"

// FirestoreConfig locates the Firestore collection.
type FirestoreConfig struct {
	ProjectID       string
	Collection      string
	CredentialsFile string // empty uses application default credentials
}

// Firestore stores documents in a Firestore collection. Timestamps are
// assigned by the server.
type Firestore struct {
	client     *firestore.Client
	collection string
}

// NewFirestore connects to Firestore.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	projectID := cfg.ProjectID
	if projectID == "" {
		projectID = firestore.DetectProjectID
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("firestore client: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = DefaultCollection
	}
	return &Firestore{client: client, collection: collection}, nil
}

// Add writes a document and returns the server-generated ID.
func (f *Firestore) Add(ctx context.Context, text string, emotions sentiment.Scores) (string, error) {
	if err := validate(text, emotions); err != nil {
		return "", err
	}

	ref, _, err := f.client.Collection(f.collection).Add(ctx, map[string]any{
		"text":      text,
		"emotions":  emotions.Map(),
		"timestamp": firestore.ServerTimestamp,
	})
	if err != nil {
		return "", errors.NewPersistence(err)
	}
	return ref.ID, nil
}

// List returns all documents ordered by server timestamp, newest first.
func (f *Firestore) List(ctx context.Context) ([]Document, error) {
	snaps, err := f.client.Collection(f.collection).
		OrderBy("timestamp", firestore.Desc).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, errors.NewPersistence(err)
	}

	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, documentFromData(snap.Ref.ID, snap.Data()))
	}
	return docs, nil
}

// Close releases the client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

// documentFromData converts a Firestore field map. Numeric emotion values
// may come back as float64 or int64; other types are skipped.
func documentFromData(id string, data map[string]any) Document {
	doc := Document{ID: id}
	if text, ok := data["text"].(string); ok {
		doc.Text = text
	}
	if ts, ok := data["timestamp"].(time.Time); ok {
		doc.Timestamp = ts.UTC()
	}

	emotions := make(map[string]float64)
	if raw, ok := data["emotions"].(map[string]any); ok {
		for label, v := range raw {
			switch n := v.(type) {
			case float64:
				emotions[label] = n
			case int64:
				emotions[label] = float64(n)
			}
		}
	}
	doc.Emotions = sentiment.FromMap(emotions)
	return doc
}
