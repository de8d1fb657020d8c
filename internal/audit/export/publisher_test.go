package export

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"lexgate/internal/audit"
	"lexgate/internal/classify"
	"lexgate/internal/platform/logger"
	id "lexgate/pkg/domain"
)

// capturingPublisher bypasses New so the tests exercise the ring and the
// record encoding without a broker.
func capturingPublisher(bufSize int, produced *[]*kgo.Record) *Publisher {
	return &Publisher{
		produce: func(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
			*produced = append(*produced, r)
			promise(r, nil)
		},
		log:     logger.Nop(),
		topic:   defaultTopic,
		ring:    make([]audit.Entry, bufSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

func exportEntry(firmID id.FirmID, count int) audit.Entry {
	return audit.Entry{
		AuditID:      id.NewAuditID(),
		Timestamp:    time.Date(2026, 4, 2, 11, 30, 0, 0, time.UTC),
		FirmID:       firmID,
		UserID:       id.NewUserID(),
		Action:       audit.ActionDataExported,
		ResourceType: "conversation",
		ResourceID:   id.NewConversationID().String(),
		Class:        classify.Classification{Level: classify.LevelConfidential, ContainsPII: true},
		AccessMethod: "api",
		Success:      true,
		Metadata:     audit.ExportMetadata{ResourceCount: count, Format: "json"},
		AuditHash:    "deadbeef",
	}
}

func TestPublisherEncodesAndKeysByFirm(t *testing.T) {
	var produced []*kgo.Record
	p := capturingPublisher(16, &produced)
	firmID := id.NewFirmID()

	first := exportEntry(firmID, 3)
	second := exportEntry(firmID, 7)
	p.EntryAppended(context.Background(), first)
	p.EntryAppended(context.Background(), second)
	p.flush()

	require.Len(t, produced, 2)
	assert.Equal(t, defaultTopic, produced[0].Topic)
	assert.Equal(t, []byte(firmID.String()), produced[0].Key)

	var rec exportRecord
	require.NoError(t, json.Unmarshal(produced[0].Value, &rec))
	assert.Equal(t, "lexgate.audit.v1", rec.Schema)
	assert.Equal(t, first.AuditID, rec.Entry.AuditID)
	assert.Equal(t, first.AuditHash, rec.Entry.AuditHash)

	md, err := audit.DecodeMetadata(rec.Metadata)
	require.NoError(t, err)
	assert.Equal(t, audit.ExportMetadata{ResourceCount: 3, Format: "json"}, md)

	var recSecond exportRecord
	require.NoError(t, json.Unmarshal(produced[1].Value, &recSecond))
	assert.Equal(t, second.AuditID, recSecond.Entry.AuditID, "flush keeps append order")
}

func TestPublisherEvictsOldestWhenFull(t *testing.T) {
	var produced []*kgo.Record
	p := capturingPublisher(2, &produced)
	firmID := id.NewFirmID()

	entries := []audit.Entry{exportEntry(firmID, 1), exportEntry(firmID, 2), exportEntry(firmID, 3)}
	for _, e := range entries {
		p.EntryAppended(context.Background(), e)
	}
	p.flush()

	require.Len(t, produced, 2)
	var rec exportRecord
	require.NoError(t, json.Unmarshal(produced[0].Value, &rec))
	assert.Equal(t, entries[1].AuditID, rec.Entry.AuditID, "oldest entry is dropped first")
}

func TestPublisherFlushDrainsBuffer(t *testing.T) {
	var produced []*kgo.Record
	p := capturingPublisher(8, &produced)

	p.EntryAppended(context.Background(), exportEntry(id.NewFirmID(), 1))
	p.flush()
	p.flush()

	assert.Len(t, produced, 1)
}

func TestPublisherShutdownDrainsBufferedEntries(t *testing.T) {
	var produced []*kgo.Record
	p := capturingPublisher(8, &produced)
	firmID := id.NewFirmID()

	p.EntryAppended(context.Background(), exportEntry(firmID, 1))
	p.EntryAppended(context.Background(), exportEntry(firmID, 2))
	// Drain the wake signal so only the shutdown path can flush.
	select {
	case <-p.wake:
	default:
	}

	go p.run()
	close(p.done)
	<-p.stopped

	assert.Len(t, produced, 2, "worker drains the ring before signalling stopped")
}

func TestPublisherToleratesProduceErrors(t *testing.T) {
	p := capturingPublisher(8, &[]*kgo.Record{})
	p.produce = func(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
		promise(r, errors.New("broker unavailable"))
	}

	p.EntryAppended(context.Background(), exportEntry(id.NewFirmID(), 1))
	p.flush()

	p.EntryAppended(context.Background(), exportEntry(id.NewFirmID(), 2))
	assert.NotPanics(t, p.flush)
}
