package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mzolotarev/filekeeper/internal/config"
	"github.com/mzolotarev/filekeeper/internal/media"
	"github.com/mzolotarev/filekeeper/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "test.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testArtifact(owner int64, key string) *storage.Artifact {
	return &storage.Artifact{
		OwnerID: owner,
		Kind:    storage.KindBatch,
		Items: []media.Item{
			{Kind: media.KindPhoto, FileID: "p1"},
			{Kind: media.KindDocument, FileID: "d1"},
		},
		Key:          key,
		OriginalName: "collection",
		Note:         "first note",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestInsertAndFindByKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	art := testArtifact(7, "Ab3dEf90")
	require.NoError(t, store.Insert(ctx, art))
	assert.NotZero(t, art.ID, "insert assigns the surrogate id")

	got, err := store.FindByKey(ctx, "Ab3dEf90")
	require.NoError(t, err)
	assert.Equal(t, art.ID, got.ID)
	assert.Equal(t, int64(7), got.OwnerID)
	assert.Equal(t, storage.KindBatch, got.Kind)
	assert.Equal(t, art.Items, got.Items, "payload order survives the round trip")
	assert.Equal(t, "first note", got.Note)
	assert.Nil(t, got.ChannelRef, "no channel ref before replication")
}

func TestFindByKeyMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.FindByKey(context.Background(), "zzzzzzzz")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestInsertDuplicateKey(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testArtifact(7, "Ab3dEf90")))
	err := store.Insert(ctx, testArtifact(8, "Ab3dEf90"))
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestSetChannelRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	art := testArtifact(7, "Ab3dEf90")
	require.NoError(t, store.Insert(ctx, art))
	require.NoError(t, store.SetChannelRef(ctx, art.ID, 4242))

	got, err := store.FindByKey(ctx, "Ab3dEf90")
	require.NoError(t, err)
	require.NotNil(t, got.ChannelRef)
	assert.Equal(t, 4242, *got.ChannelRef)
}

func TestSetChannelRefWriteOnce(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	art := testArtifact(7, "Ab3dEf90")
	require.NoError(t, store.Insert(ctx, art))
	require.NoError(t, store.SetChannelRef(ctx, art.ID, 99))

	err := store.SetChannelRef(ctx, art.ID, 100)
	assert.ErrorIs(t, err, storage.ErrChannelRefSet)

	got, err := store.FindByKey(ctx, "Ab3dEf90")
	require.NoError(t, err)
	require.NotNil(t, got.ChannelRef)
	assert.Equal(t, 99, *got.ChannelRef, "the recorded ref is immutable")

	err = store.SetChannelRef(ctx, art.ID+1000, 1)
	assert.ErrorIs(t, err, storage.ErrChannelRefSet, "a missing artifact accepts no ref")
}

func TestListByOwnerMostRecentFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testArtifact(7, "aaaaaaaa")))
	require.NoError(t, store.Insert(ctx, testArtifact(7, "bbbbbbbb")))
	require.NoError(t, store.Insert(ctx, testArtifact(9, "cccccccc")))

	summaries, err := store.ListByOwner(ctx, 7)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "bbbbbbbb", summaries[0].Key)
	assert.Equal(t, "aaaaaaaa", summaries[1].Key)

	empty, err := store.ListByOwner(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpdateNoteOwnership(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testArtifact(7, "Ab3dEf90")))

	err := store.UpdateNote(ctx, "Ab3dEf90", 8, "hijacked")
	assert.ErrorIs(t, err, storage.ErrNotFound, "a foreign key looks exactly like a missing one")

	require.NoError(t, store.UpdateNote(ctx, "Ab3dEf90", 7, "renamed"))
	got, err := store.FindByKey(ctx, "Ab3dEf90")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Note)
}

func TestDeleteReturnsChannelRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	art := testArtifact(7, "Ab3dEf90")
	require.NoError(t, store.Insert(ctx, art))
	require.NoError(t, store.SetChannelRef(ctx, art.ID, 99))

	_, err := store.Delete(ctx, "Ab3dEf90", 8)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ref, err := store.Delete(ctx, "Ab3dEf90", 7)
	require.NoError(t, err)
	require.NotNil(t, ref)
	assert.Equal(t, 99, *ref)

	_, err = store.FindByKey(ctx, "Ab3dEf90")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDeleteWithoutChannelRef(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, testArtifact(7, "Ab3dEf90")))
	ref, err := store.Delete(ctx, "Ab3dEf90", 7)
	require.NoError(t, err)
	assert.Nil(t, ref)
}
