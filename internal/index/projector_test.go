package index

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"lexgate/internal/classify"
	"lexgate/internal/conversation"
	"lexgate/internal/fieldcrypt"
	"lexgate/internal/platform/logger"
	id "lexgate/pkg/domain"
	"lexgate/pkg/platform/sentinel"
)

func testRecord(firmID id.FirmID) conversation.Record {
	now := time.Date(2026, 3, 10, 14, 0, 0, 0, time.UTC)
	return conversation.Record{
		ConversationID: id.NewConversationID(),
		FirmID:         firmID,
		CreatedAt:      now,
		UpdatedAt:      now,
		Status:         conversation.StatusActive,
		Phase:          conversation.PhaseInformationGathering,
		Messages: []conversation.Message{
			{
				MessageID: id.NewMessageID(),
				Sender:    conversation.SenderClient,
				Content:   fieldcrypt.EncryptedField{Ciphertext: []byte("sealed")},
				Class:     classify.Classification{ContainsPII: true, Level: classify.LevelConfidential},
				CreatedAt: now,
			},
		},
		Version: 2,
	}
}

func testConfig() ProjectorConfig {
	return ProjectorConfig{QueueSize: 64, Workers: 2, RetryBackoff: 5 * time.Millisecond, MaxRetries: 2}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestProjectorAppliesUpdates(t *testing.T) {
	store := NewInMemoryStore()
	projector := NewProjector(testConfig(), store, logger.Nop())
	defer projector.Close()

	firmID := id.NewFirmID()
	rec := testRecord(firmID)
	projector.ProjectRecord(rec)

	waitFor(t, func() bool {
		_, err := store.Get(context.Background(), firmID, rec.ConversationID)
		return err == nil
	})

	p, err := store.Get(context.Background(), firmID, rec.ConversationID)
	require.NoError(t, err)
	require.Equal(t, 1, p.MessageCount)
	require.Equal(t, classify.LevelConfidential, p.HighestLevel)
	require.Equal(t, conversation.StatusActive, p.Status)
}

func TestProjectorRemoval(t *testing.T) {
	store := NewInMemoryStore()
	projector := NewProjector(testConfig(), store, logger.Nop())
	defer projector.Close()

	firmID := id.NewFirmID()
	rec := testRecord(firmID)
	require.NoError(t, store.Upsert(context.Background(), FromRecord(rec)))

	projector.ProjectRemoval(firmID, rec.ConversationID)

	waitFor(t, func() bool {
		_, err := store.Get(context.Background(), firmID, rec.ConversationID)
		return errors.Is(err, sentinel.ErrNotFound)
	})
}

// flakyStore fails a fixed number of Upserts before recovering.
type flakyStore struct {
	*InMemoryStore
	mu        sync.Mutex
	failures  int
	attempted int
}

func (f *flakyStore) Upsert(ctx context.Context, p Projection) error {
	f.mu.Lock()
	f.attempted++
	fail := f.attempted <= f.failures
	f.mu.Unlock()
	if fail {
		return errors.New("store unavailable")
	}
	return f.InMemoryStore.Upsert(ctx, p)
}

func TestProjectorRetriesUntilStoreRecovers(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 2}
	projector := NewProjector(testConfig(), store, logger.Nop())
	defer projector.Close()

	firmID := id.NewFirmID()
	rec := testRecord(firmID)
	projector.ProjectRecord(rec)

	// The record store stayed authoritative while the index was stale;
	// once the index store recovers the projection catches up.
	waitFor(t, func() bool {
		_, err := store.Get(context.Background(), firmID, rec.ConversationID)
		return err == nil
	})
}

func TestProjectorAbandonsAfterMaxRetries(t *testing.T) {
	store := &flakyStore{InMemoryStore: NewInMemoryStore(), failures: 100}
	projector := NewProjector(testConfig(), store, logger.Nop())
	defer projector.Close()

	rec := testRecord(id.NewFirmID())
	projector.ProjectRecord(rec)

	// 1 initial attempt + MaxRetries retries, then the update is dropped.
	waitFor(t, func() bool {
		store.mu.Lock()
		defer store.mu.Unlock()
		return store.attempted >= 3
	})
	time.Sleep(50 * time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Equal(t, 3, store.attempted)
}

func TestUpsertKeepsNewerVersion(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	rec := testRecord(id.NewFirmID())
	newer := FromRecord(rec)
	newer.Version = 5
	older := FromRecord(rec)
	older.Version = 3

	require.NoError(t, store.Upsert(ctx, newer))
	require.NoError(t, store.Upsert(ctx, older))

	p, err := store.Get(ctx, rec.FirmID, rec.ConversationID)
	require.NoError(t, err)
	require.EqualValues(t, 5, p.Version, "a late older write never overwrites a newer projection")
}

func TestFromRecordProjectsNoContent(t *testing.T) {
	rec := testRecord(id.NewFirmID())
	p := FromRecord(rec)

	require.Equal(t, len(rec.Messages), p.MessageCount)
	// The projection type carries counts and labels only; this test
	// documents that nothing resembling message content is present.
	require.NotZero(t, p.LastActivity)
}
