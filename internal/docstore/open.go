package docstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hpungsan/emolens/internal/config"
)

// Open returns the backend named by cfg.DocStore.
func Open(ctx context.Context, cfg *config.Config, database *sql.DB) (Store, error) {
	switch strings.ToLower(cfg.DocStore) {
	case "", "sqlite":
		return NewSQLite(database), nil
	case "firestore":
		return NewFirestore(ctx, FirestoreConfig{
			ProjectID:       cfg.FirestoreProject,
			Collection:      cfg.FirestoreCollection,
			CredentialsFile: cfg.FirestoreCredentials,
		})
	default:
		return nil, fmt.Errorf("unknown doc_store %q", cfg.DocStore)
	}
}
