package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db.Pool))
	return db
}

func TestUpsertAndList(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	row := ApplicationRow{
		ID:       "app-1",
		JobTitle: "Backend Engineer",
		Location: "Lyon",
		Phase:    "SEARCHING",
	}
	require.NoError(t, UpsertApplication(ctx, db.Pool, row))

	got, err := ListApplications(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "app-1", got[0].ID)
	assert.Equal(t, "SEARCHING", got[0].Phase)
	assert.False(t, got[0].CreatedAt.IsZero())
}

func TestUpsertUpdatesPhaseInPlace(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	base := ApplicationRow{ID: "app-1", JobTitle: "t", Location: "l", Phase: "SEARCHING"}
	require.NoError(t, UpsertApplication(ctx, db.Pool, base))

	base.Phase = "FAILED"
	base.Error = "timeout: the search did not finish in time, please try again"
	require.NoError(t, UpsertApplication(ctx, db.Pool, base))

	got, err := ListApplications(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, got, 1, "upsert must not duplicate the row")
	assert.Equal(t, "FAILED", got[0].Phase)
	assert.Contains(t, got[0].Error, "timeout")
}

func TestListOrdersNewestFirstAndLimits(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, UpsertApplication(ctx, db.Pool, ApplicationRow{
		ID: "app-old", JobTitle: "t", Location: "l", Phase: "COMPLETED", CreatedAt: old,
	}))
	require.NoError(t, UpsertApplication(ctx, db.Pool, ApplicationRow{
		ID: "app-new", JobTitle: "t", Location: "l", Phase: "SEARCHING",
	}))

	got, err := ListApplications(ctx, db.Pool, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "app-new", got[0].ID)

	got, err = ListApplications(ctx, db.Pool, 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
