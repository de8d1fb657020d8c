//go:build integration

package index

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lexgate/internal/conversation"
	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
	"lexgate/pkg/testutil/containers"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	client := containers.StartRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	firmID := id.NewFirmID()
	rec := testRecord(firmID)
	p := FromRecord(rec)

	require.NoError(t, store.Upsert(ctx, p))

	got, err := store.Get(ctx, firmID, rec.ConversationID)
	require.NoError(t, err)
	require.Equal(t, p.MessageCount, got.MessageCount)
	require.Equal(t, p.Status, got.Status)
	require.True(t, p.LastActivity.Equal(got.LastActivity))
}

func TestRedisStoreVersionGuard(t *testing.T) {
	client := containers.StartRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	rec := testRecord(id.NewFirmID())
	newer := FromRecord(rec)
	newer.Version = 7
	newer.MessageCount = 9
	older := FromRecord(rec)
	older.Version = 4

	require.NoError(t, store.Upsert(ctx, newer))
	require.NoError(t, store.Upsert(ctx, older))

	got, err := store.Get(ctx, rec.FirmID, rec.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 7, got.Version)
	require.Equal(t, 9, got.MessageCount)
}

func TestRedisStoreRecencyOrdering(t *testing.T) {
	client := containers.StartRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	firmID := id.NewFirmID()
	base := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	var ids []id.ConversationID
	for i := 0; i < 3; i++ {
		rec := testRecord(firmID)
		rec.UpdatedAt = base.Add(time.Duration(i) * time.Hour)
		p := FromRecord(rec)
		require.NoError(t, store.Upsert(ctx, p))
		ids = append(ids, rec.ConversationID)
	}

	recent, err := store.Recent(ctx, firmID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, ids[2], recent[0].ConversationID, "most recent activity first")
	require.Equal(t, ids[1], recent[1].ConversationID)
}

func TestRedisStoreRemove(t *testing.T) {
	client := containers.StartRedis(t)
	store := NewRedisStore(client)
	ctx := context.Background()

	rec := testRecord(id.NewFirmID())
	require.NoError(t, store.Upsert(ctx, FromRecord(rec)))
	require.NoError(t, store.Remove(ctx, rec.FirmID, rec.ConversationID))

	_, err := store.Get(ctx, rec.FirmID, rec.ConversationID)
	require.ErrorIs(t, err, sentinel.ErrNotFound)

	recent, err := store.Recent(ctx, rec.FirmID, 0)
	require.NoError(t, err)
	require.Empty(t, recent)

	// Removing again is a no-op.
	require.NoError(t, store.Remove(ctx, rec.FirmID, rec.ConversationID))
}
