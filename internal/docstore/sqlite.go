package docstore

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/lo"

	"github.com/hpungsan/emolens/internal/db"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// SQLite stores documents in the local database's sentiments table.
// IDs are ULIDs, monotonic within this store.
type SQLite struct {
	db  *sql.DB
	now func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewSQLite returns a store over database. The caller owns database.
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{
		db:      database,
		now:     time.Now,
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
}

// Add stores a document and returns its ID.
func (s *SQLite) Add(ctx context.Context, text string, emotions sentiment.Scores) (string, error) {
	if err := validate(text, emotions); err != nil {
		return "", err
	}

	emotionsJSON, err := json.Marshal(emotions)
	if err != nil {
		return "", errors.NewInternal(err)
	}

	now := s.now()
	s.mu.Lock()
	id, err := ulid.New(ulid.Timestamp(now), s.entropy)
	s.mu.Unlock()
	if err != nil {
		return "", errors.NewInternal(fmt.Errorf("generate id: %w", err))
	}

	row := db.SentimentRow{
		ID:           id.String(),
		Text:         text,
		EmotionsJSON: string(emotionsJSON),
		CreatedAt:    now.UnixMilli(),
	}
	if err := db.InsertSentiment(ctx, s.db, row); err != nil {
		return "", errors.NewPersistence(err)
	}
	return row.ID, nil
}

// List returns all documents, newest first.
func (s *SQLite) List(ctx context.Context) ([]Document, error) {
	rows, err := db.ListSentiments(ctx, s.db)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}

	docs := lo.Map(rows, func(r db.SentimentRow, _ int) Document {
		var emotions sentiment.Scores
		// A row that fails to decode keeps its text with empty emotions.
		_ = json.Unmarshal([]byte(r.EmotionsJSON), &emotions)
		return Document{
			ID:        r.ID,
			Text:      r.Text,
			Emotions:  emotions,
			Timestamp: time.UnixMilli(r.CreatedAt).UTC(),
		}
	})
	return docs, nil
}

// Close is a no-op; the database belongs to the caller.
func (s *SQLite) Close() error {
	return nil
}
