// Package export streams appended audit entries to an external SIEM topic.
//
// Delivery here is best effort by design: the durable record is the audit
// chain in Postgres, and the Kafka stream is a downstream copy for security
// tooling. The publisher therefore never blocks or fails an append; when
// the broker is behind, the oldest buffered entries are dropped and counted.
package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"lexgate/internal/audit"
)

const (
	defaultTopic      = "lexgate.audit.v1"
	defaultBufferSize = 4096
	flushInterval     = 250 * time.Millisecond
)

var (
	published = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_siem_entries_published_total",
		Help: "Audit entries successfully handed to the Kafka producer.",
	})
	dropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_siem_entries_dropped_total",
		Help: "Audit entries dropped because the export buffer was full.",
	})
	publishErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "lexgate_siem_publish_errors_total",
		Help: "Kafka produce errors on the SIEM export path.",
	})
)

// Publisher buffers audit entries and ships them to Kafka in the
// background. It implements audit.Observer.
type Publisher struct {
	client  *kgo.Client
	produce func(ctx context.Context, r *kgo.Record, promise func(*kgo.Record, error))
	log     *slog.Logger
	topic   string

	mu   sync.Mutex
	ring []audit.Entry
	head int
	size int

	wake    chan struct{}
	done    chan struct{}
	stopped chan struct{}
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithTopic overrides the export topic name.
func WithTopic(topic string) Option {
	return func(p *Publisher) { p.topic = topic }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Publisher) { p.log = log }
}

// New creates a publisher and ensures the export topic exists. The caller
// owns the kgo.Client lifecycle up to Close.
func New(ctx context.Context, client *kgo.Client, opts ...Option) (*Publisher, error) {
	p := &Publisher{
		client:  client,
		log:     slog.Default(),
		topic:   defaultTopic,
		ring:    make([]audit.Entry, defaultBufferSize),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	p.produce = client.Produce
	for _, opt := range opts {
		opt(p)
	}

	if err := p.ensureTopic(ctx); err != nil {
		return nil, err
	}
	go p.run()
	return p, nil
}

// ensureTopic creates the export topic if the broker does not know it yet.
// An existing topic is not an error.
func (p *Publisher) ensureTopic(ctx context.Context) error {
	adm := kadm.NewClient(p.client)
	resp, err := adm.CreateTopic(ctx, 3, 1, nil, p.topic)
	if err != nil {
		return fmt.Errorf("create siem topic: %w", err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create siem topic %s: %w", p.topic, resp.Err)
	}
	return nil
}

// EntryAppended buffers an entry for export. Never blocks; when the ring is
// full the oldest entry is evicted.
func (p *Publisher) EntryAppended(_ context.Context, e audit.Entry) {
	p.mu.Lock()
	if p.size == len(p.ring) {
		p.head = (p.head + 1) % len(p.ring)
		p.size--
		dropped.Inc()
	}
	p.ring[(p.head+p.size)%len(p.ring)] = e
	p.size++
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

func (p *Publisher) run() {
	defer close(p.stopped)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			p.flush()
			return
		case <-p.wake:
			p.flush()
		case <-ticker.C:
			p.flush()
		}
	}
}

func (p *Publisher) flush() {
	p.mu.Lock()
	batch := make([]audit.Entry, 0, p.size)
	for i := 0; i < p.size; i++ {
		batch = append(batch, p.ring[(p.head+i)%len(p.ring)])
	}
	p.head = 0
	p.size = 0
	p.mu.Unlock()

	for _, e := range batch {
		rec, err := encodeRecord(p.topic, e)
		if err != nil {
			publishErrors.Inc()
			p.log.Error("encode siem record", slog.String("audit_id", e.AuditID.String()), slog.Any("error", err))
			continue
		}
		p.produce(context.Background(), rec, func(_ *kgo.Record, err error) {
			if err != nil {
				publishErrors.Inc()
				p.log.Error("publish siem record", slog.Any("error", err))
				return
			}
			published.Inc()
		})
	}
}

// Close stops the worker, waits for its final drain, flushes the producer
// and releases the client.
func (p *Publisher) Close(ctx context.Context) error {
	close(p.done)
	<-p.stopped
	if err := p.client.Flush(ctx); err != nil {
		return fmt.Errorf("flush siem producer: %w", err)
	}
	p.client.Close()
	return nil
}

// exportRecord is the wire shape written to the SIEM topic. The full entry
// is embedded so consumers can re-verify hashes independently. Metadata is
// carried as its tagged envelope since the entry itself does not marshal it.
type exportRecord struct {
	Schema   string          `json:"schema"`
	Entry    audit.Entry     `json:"entry"`
	Metadata json.RawMessage `json:"metadata,omitempty"`
}

func encodeRecord(topic string, e audit.Entry) (*kgo.Record, error) {
	md, err := audit.EncodeMetadata(e.Metadata)
	if err != nil {
		return nil, fmt.Errorf("encode export metadata: %w", err)
	}
	value, err := json.Marshal(exportRecord{Schema: "lexgate.audit.v1", Entry: e, Metadata: md})
	if err != nil {
		return nil, fmt.Errorf("marshal export record: %w", err)
	}
	return &kgo.Record{
		Topic: topic,
		// Keying by firm keeps each firm's entries ordered per partition.
		Key:   []byte(e.FirmID.String()),
		Value: value,
	}, nil
}
