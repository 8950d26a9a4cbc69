// Package history persists the bounded log of past analyses.
//
// The log lives in a single named SQLite slot. Every read goes to the
// database, so readers in other contexts always observe the last committed
// write and the store keeps no in-memory copy to drift out of sync.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/hpungsan/emolens/internal/db"
	"github.com/hpungsan/emolens/internal/errors"
)

// Store is the sole owner of the persisted history log.
type Store struct {
	db  *sql.DB
	max int

	// mu serializes read-modify-write cycles from this process. Other
	// processes are held off by the IMMEDIATE write lock.
	mu sync.Mutex
}

// NewStore returns a store capped at max records. max <= 0 uses MaxHistory.
func NewStore(database *sql.DB, max int) *Store {
	if max <= 0 {
		max = MaxHistory
	}
	return &Store{db: database, max: max}
}

// Max returns the capacity.
func (s *Store) Max() int {
	return s.max
}

// Append adds rec to the tail and drops records from the head until the
// log fits. The updated log is committed before Append returns.
// A failure is returned as a PERSISTENCE error and leaves the log unchanged.
func (s *Store) Append(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := db.WithImmediateTx(ctx, s.db, func(q db.Queryer) error {
		raw, _, err := db.GetSlot(ctx, q, SlotKey)
		if err != nil {
			return err
		}
		log, err := decodeLog(raw)
		if err != nil {
			return fmt.Errorf("decode %s: %w", SlotKey, err)
		}

		log = append(log, rec.Clone())
		if over := len(log) - s.max; over > 0 {
			log = log[over:]
		}

		data, err := json.Marshal(log)
		if err != nil {
			return err
		}
		return db.PutSlot(ctx, q, SlotKey, string(data))
	})
	if err != nil {
		return errors.NewPersistence(err)
	}
	return nil
}

// ReadAll returns a snapshot of the persisted log, oldest first.
// A slot that was never written yields an empty log.
func (s *Store) ReadAll(ctx context.Context) (Log, error) {
	raw, ok, err := db.GetSlot(ctx, s.db, SlotKey)
	if err != nil {
		return nil, errors.NewPersistence(err)
	}
	if !ok {
		return Log{}, nil
	}
	log, err := decodeLog(raw)
	if err != nil {
		return nil, errors.NewPersistence(fmt.Errorf("decode %s: %w", SlotKey, err))
	}
	return log, nil
}

// Latest returns the most recent record, or a NOT_FOUND error for an empty log.
func (s *Store) Latest(ctx context.Context) (Record, error) {
	log, err := s.ReadAll(ctx)
	if err != nil {
		return Record{}, err
	}
	rec, ok := log.Latest()
	if !ok {
		return Record{}, errors.NewNotFound("history record")
	}
	return rec, nil
}
