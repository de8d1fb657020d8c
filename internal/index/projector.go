package index

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"lexgate/internal/conversation"
	id "lexgate/pkg/domain"
)

// ProjectorConfig sizes the background projection workers.
type ProjectorConfig struct {
	QueueSize    int
	Workers      int
	RetryBackoff time.Duration
	MaxRetries   int
}

// DefaultProjectorConfig returns the production sizing.
func DefaultProjectorConfig() ProjectorConfig {
	return ProjectorConfig{
		QueueSize:    1024,
		Workers:      4,
		RetryBackoff: 2 * time.Second,
		MaxRetries:   5,
	}
}

type task struct {
	projection Projection
	remove     bool
	firmID     id.FirmID
	convID     id.ConversationID
	attempts   int
}

// Projector applies index updates asynchronously. Enqueueing never blocks
// the caller: when the queue is full the update is dropped and counted,
// which only costs index freshness because the record store stays
// authoritative. Failed writes are retried with a flat backoff and then
// abandoned with a log line.
type Projector struct {
	cfg   ProjectorConfig
	store Store
	log   *slog.Logger

	queue chan task
	group *errgroup.Group
	stop  context.CancelFunc
}

// NewProjector creates and starts the projection workers.
func NewProjector(cfg ProjectorConfig, store Store, log *slog.Logger) *Projector {
	if log == nil {
		log = slog.Default()
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultProjectorConfig().QueueSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultProjectorConfig().Workers
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)

	p := &Projector{
		cfg:   cfg,
		store: store,
		log:   log,
		queue: make(chan task, cfg.QueueSize),
		group: group,
		stop:  cancel,
	}
	for i := 0; i < cfg.Workers; i++ {
		group.Go(func() error {
			p.work(ctx)
			return nil
		})
	}
	return p
}

// ProjectRecord queues an index update for a conversation's current state.
func (p *Projector) ProjectRecord(rec conversation.Record) {
	p.enqueue(task{projection: FromRecord(rec)})
}

// ProjectRemoval queues removal of a deleted conversation's projection.
func (p *Projector) ProjectRemoval(firmID id.FirmID, convID id.ConversationID) {
	p.enqueue(task{remove: true, firmID: firmID, convID: convID})
}

func (p *Projector) enqueue(t task) {
	select {
	case p.queue <- t:
		queueDepth.Set(float64(len(p.queue)))
	default:
		updatesDropped.Inc()
		p.log.Warn("index update dropped, queue full",
			slog.String("conversation_id", t.conversationID().String()))
	}
}

func (t task) conversationID() id.ConversationID {
	if t.remove {
		return t.convID
	}
	return t.projection.ConversationID
}

func (p *Projector) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-p.queue:
			p.apply(ctx, t)
			queueDepth.Set(float64(len(p.queue)))
		}
	}
}

func (p *Projector) apply(ctx context.Context, t task) {
	var err error
	if t.remove {
		err = p.store.Remove(ctx, t.firmID, t.convID)
	} else {
		err = p.store.Upsert(ctx, t.projection)
	}
	if err == nil {
		updatesApplied.Inc()
		return
	}
	if ctx.Err() != nil {
		return
	}

	t.attempts++
	if t.attempts > p.cfg.MaxRetries {
		updatesAbandoned.Inc()
		p.log.Error("index update abandoned after retries",
			slog.String("conversation_id", t.conversationID().String()),
			slog.Int("attempts", t.attempts),
			slog.Any("error", err))
		return
	}

	updatesRetried.Inc()
	select {
	case <-ctx.Done():
	case <-time.After(p.cfg.RetryBackoff):
		p.apply(ctx, t)
	}
}

// Close stops the workers. Queued updates that have not started are
// discarded; the projection self-heals on the next write to each
// conversation.
func (p *Projector) Close() {
	p.stop()
	_ = p.group.Wait()
}
