package history

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/hpungsan/emolens/internal/db"
	"github.com/hpungsan/emolens/internal/errors"
	"github.com/hpungsan/emolens/internal/sentiment"
)

func setupStore(t *testing.T, max int) (*Store, *sql.DB) {
	t.Helper()
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return NewStore(database, max), database
}

func record(i int) Record {
	return NewSuccess(fmt.Sprintf("text-%d", i), sentiment.NewScores(
		sentiment.Emotion{Label: "joy", Score: float64(i) / 1000},
	))
}

func TestReadAll_EmptyWhenNeverWritten(t *testing.T) {
	store, _ := setupStore(t, 0)

	log, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.NotNil(t, log)
	require.Len(t, log, 0)
	require.Equal(t, MaxHistory, store.Max())
}

func TestAppend_ThenReadAll(t *testing.T) {
	store, _ := setupStore(t, 10)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, record(1)))
	require.NoError(t, store.Append(ctx, record(2)))

	log, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 2)
	require.Equal(t, "text-1", log[0].SelectedText)
	require.Equal(t, "text-2", log[1].SelectedText)
	require.Nil(t, log[1].Error)
	v, ok := log[1].Result.Get("joy")
	require.True(t, ok)
	require.Equal(t, 0.002, v)
}

func TestAppend_CapEvictsOldestFirst(t *testing.T) {
	store, _ := setupStore(t, MaxHistory)
	ctx := context.Background()

	for i := 0; i < MaxHistory+5; i++ {
		require.NoError(t, store.Append(ctx, record(i)))
	}

	log, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, MaxHistory)
	require.Equal(t, "text-5", log[0].SelectedText)
	require.Equal(t, fmt.Sprintf("text-%d", MaxHistory+4), log[MaxHistory-1].SelectedText)
}

// TestAppend_KeepsLastMaxInOrder checks that after any number of appends the
// log holds exactly the most recent max records in their original order.
func TestAppend_KeepsLastMaxInOrder(t *testing.T) {
	database, err := db.Init(t.TempDir())
	require.NoError(t, err)
	defer database.Close()
	ctx := context.Background()

	rapid.Check(t, func(rt *rapid.T) {
		max := rapid.IntRange(1, 8).Draw(rt, "max")
		n := rapid.IntRange(0, 25).Draw(rt, "n")

		if err := db.PutSlot(ctx, database, SlotKey, "[]"); err != nil {
			rt.Fatalf("reset slot: %v", err)
		}
		store := NewStore(database, max)

		for i := 0; i < n; i++ {
			if err := store.Append(ctx, record(i)); err != nil {
				rt.Fatalf("Append(%d): %v", i, err)
			}
		}

		log, err := store.ReadAll(ctx)
		if err != nil {
			rt.Fatalf("ReadAll: %v", err)
		}

		want := n
		if want > max {
			want = max
		}
		if len(log) != want {
			rt.Fatalf("len = %d, want %d", len(log), want)
		}
		first := n - want
		for i, r := range log {
			if r.SelectedText != fmt.Sprintf("text-%d", first+i) {
				rt.Fatalf("log[%d] = %q, want text-%d", i, r.SelectedText, first+i)
			}
		}
	})
}

func TestAppend_DoesNotMutateStoredRecords(t *testing.T) {
	store, _ := setupStore(t, 10)
	ctx := context.Background()

	scores := sentiment.NewScores(sentiment.Emotion{Label: "joy", Score: 0.8})
	rec := NewSuccess("keep me", scores)
	require.NoError(t, store.Append(ctx, rec))

	before, err := store.ReadAll(ctx)
	require.NoError(t, err)

	// Mutating the caller's copy and appending more must not touch stored entries.
	rec.SelectedText = "changed"
	require.NoError(t, store.Append(ctx, record(2)))

	after, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Equal(t, before[0].SelectedText, after[0].SelectedText)
	v, _ := after[0].Result.Get("joy")
	require.Equal(t, 0.8, v)
}

func TestAppend_ConcurrentCallersAllLand(t *testing.T) {
	store, _ := setupStore(t, 100)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- store.Append(ctx, record(i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	log, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 20)
}

// Two handles on one file stand in for serve and a CLI process appending
// at the same time.
func TestAppend_SeparateProcessesAllLand(t *testing.T) {
	dir := t.TempDir()
	first, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { first.Close() })
	second, err := db.Init(dir)
	require.NoError(t, err)
	t.Cleanup(func() { second.Close() })

	stores := []*Store{NewStore(first, 100), NewStore(second, 100)}
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 40)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs <- stores[i%2].Append(ctx, record(i))
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	log, err := stores[0].ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 40)
}

func TestReadAll_CorruptEntryKeptAsInvalid(t *testing.T) {
	store, database := setupStore(t, 10)
	ctx := context.Background()

	raw := `[
		{"selectedText":"fine","result":{"joy":0.7},"error":null},
		{"selectedText":"broken","result":"not an object"},
		{"selectedText":"no result"}
	]`
	require.NoError(t, db.PutSlot(ctx, database, SlotKey, raw))

	log, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, log, 3)
	require.True(t, log[0].Valid())
	require.False(t, log[1].Valid())
	require.Equal(t, "broken", log[1].SelectedText)
	require.False(t, log[2].Valid())
}

func TestReadAll_SlotNotAnArray(t *testing.T) {
	store, database := setupStore(t, 10)
	ctx := context.Background()

	require.NoError(t, db.PutSlot(ctx, database, SlotKey, `{"oops":true}`))

	_, err := store.ReadAll(ctx)
	require.True(t, errors.Is(err, errors.ErrPersistence))
}

func TestAppend_ClosedDatabaseIsPersistenceError(t *testing.T) {
	store, database := setupStore(t, 10)
	database.Close()

	err := store.Append(context.Background(), record(1))
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrPersistence))
}

func TestLatest(t *testing.T) {
	store, _ := setupStore(t, 10)
	ctx := context.Background()

	_, err := store.Latest(ctx)
	require.True(t, errors.Is(err, errors.ErrNotFound))

	require.NoError(t, store.Append(ctx, record(1)))
	require.NoError(t, store.Append(ctx, record(2)))

	rec, err := store.Latest(ctx)
	require.NoError(t, err)
	require.Equal(t, "text-2", rec.SelectedText)
}

func TestLog_LatestValid(t *testing.T) {
	log := Log{record(1), NewFailure("bad", "Error fetching sentiment"), {SelectedText: "empty"}}

	rec, ok := log.LatestValid()
	require.True(t, ok)
	require.Equal(t, "text-1", rec.SelectedText)

	_, ok = Log{}.LatestValid()
	require.False(t, ok)
}
