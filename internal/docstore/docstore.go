// Package docstore is the document store behind the persistence relay.
// Documents are immutable once added; there is no update or delete path.
package docstore

import (
	"context"
	"strings"
	"time"

	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/sentiment"
)

// Document is one saved analysis.
type Document struct {
	ID        string           `json:"id"`
	Text      string           `json:"text"`
	Emotions  sentiment.Scores `json:"emotions"`
	Timestamp time.Time        `json:"timestamp"`
}

// Store adds and lists documents. List returns newest first.
type Store interface {
	Add(ctx context.Context, text string, emotions sentiment.Scores) (string, error)
	List(ctx context.Context) ([]Document, error)
	Close() error
}

// validate rejects documents missing text or emotions.
func validate(text string, emotions sentiment.Scores) error {
	if strings.TrimSpace(text) == "" || emotions.Len() == 0 {
		return errors.NewValidation("Missing text or emotions")
	}
	return nil
}
