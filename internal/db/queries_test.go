package db

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hpungsan/pngme/internal/config"
	"github.com/hpungsan/pngme/internal/errors"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := Init(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func testEntry(id, op, path string, createdAt int64) *Entry {
	return &Entry{
		ID:        id,
		Op:        op,
		Path:      path,
		ChunkType: "RuSt",
		Length:    3,
		CRC:       0xabd1d84e,
		Chunk:     []byte{0, 0, 0, 3, 'R', 'u', 'S', 't', 'a', 'b', 'c', 1, 2, 3, 4},
		CreatedAt: createdAt,
	}
}

func TestInsertAndGetEntry(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	in := testEntry("01ENTRY001", OpEncode, "/tmp/a.png", 1000)
	require.NoError(t, InsertEntry(ctx, database, in))

	got, err := GetEntry(ctx, database, "01ENTRY001")
	require.NoError(t, err)
	require.Equal(t, in, got)
}

func TestGetEntry_NotFound(t *testing.T) {
	database := setupDB(t)

	_, err := GetEntry(context.Background(), database, "01MISSING")
	require.True(t, errors.Is(err, errors.ErrNotFound))
}

func TestInsertEntry_DuplicateID(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	require.NoError(t, InsertEntry(ctx, database, testEntry("01DUP", OpEncode, "/tmp/a.png", 1000)))
	err := InsertEntry(ctx, database, testEntry("01DUP", OpEncode, "/tmp/a.png", 1000))
	require.True(t, errors.Is(err, errors.ErrInternal))
}

func TestListEntries(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	require.NoError(t, InsertEntry(ctx, database, testEntry("01A", OpEncode, "/tmp/a.png", 1000)))
	require.NoError(t, InsertEntry(ctx, database, testEntry("01B", OpRemove, "/tmp/a.png", 2000)))
	require.NoError(t, InsertEntry(ctx, database, testEntry("01C", OpEncode, "/tmp/b.png", 3000)))

	t.Run("all newest first", func(t *testing.T) {
		entries, err := ListEntries(ctx, database, EntryFilter{}, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 3)
		require.Equal(t, "01C", entries[0].ID)
		require.Equal(t, "01A", entries[2].ID)
	})

	t.Run("by path", func(t *testing.T) {
		path := "/tmp/a.png"
		entries, err := ListEntries(ctx, database, EntryFilter{Path: &path}, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		require.Equal(t, "01B", entries[0].ID)

		count, err := CountEntries(ctx, database, EntryFilter{Path: &path})
		require.NoError(t, err)
		require.Equal(t, 2, count)
	})

	t.Run("by path and op", func(t *testing.T) {
		path := "/tmp/a.png"
		op := OpRemove
		entries, err := ListEntries(ctx, database, EntryFilter{Path: &path, Op: &op}, 10, 0)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, OpRemove, entries[0].Op)
	})

	t.Run("pagination", func(t *testing.T) {
		entries, err := ListEntries(ctx, database, EntryFilter{}, 1, 1)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Equal(t, "01B", entries[0].ID)
	})

	t.Run("empty result is not nil", func(t *testing.T) {
		path := "/nowhere.png"
		entries, err := ListEntries(ctx, database, EntryFilter{Path: &path}, 10, 0)
		require.NoError(t, err)
		require.NotNil(t, entries)
		require.Empty(t, entries)
	})
}

func TestPruneEntries(t *testing.T) {
	database := setupDB(t)
	ctx := context.Background()

	old := time.Now().AddDate(0, 0, -30).Unix()
	recent := time.Now().Unix()
	require.NoError(t, InsertEntry(ctx, database, testEntry("01OLD", OpEncode, "/tmp/a.png", old)))
	require.NoError(t, InsertEntry(ctx, database, testEntry("01NEW", OpEncode, "/tmp/a.png", recent)))
	require.NoError(t, InsertEntry(ctx, database, testEntry("01OTHER", OpEncode, "/tmp/b.png", old)))

	days := 7
	path := "/tmp/a.png"
	n, err := PruneEntries(ctx, database, EntryFilter{Path: &path}, &days)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	count, err := CountEntries(ctx, database, EntryFilter{})
	require.NoError(t, err)
	require.Equal(t, 2, count)

	n, err = PruneEntries(ctx, database, EntryFilter{}, nil)
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestConfigurePool(t *testing.T) {
	database := setupDB(t)

	ConfigurePool(database, nil)
	ConfigurePool(database, &config.Config{DBMaxOpenConns: 1, DBMaxIdleConns: 1})
	require.Equal(t, 1, database.Stats().MaxOpenConnections)
}
