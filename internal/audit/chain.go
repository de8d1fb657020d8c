package audit

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"lexgate/internal/classify"
	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/sentinel"
	"lexgate/pkg/requestcontext"
)

// Record is the caller-supplied portion of an audit entry. Identity,
// timing, hashes and the risk score are filled in by the ledger.
type Record struct {
	Action       Action
	ResourceType string
	ResourceID   string
	Class        classify.Classification
	Success      bool
	Metadata     Metadata
}

// Observer receives each entry after it has been durably appended. The
// ledger never fails an append because an observer errored; observation is
// strictly downstream of durability.
type Observer interface {
	EntryAppended(ctx context.Context, e Entry)
}

// Observers fans each appended entry out to several observers in order.
type Observers []Observer

func (os Observers) EntryAppended(ctx context.Context, e Entry) {
	for _, o := range os {
		o.EntryAppended(ctx, e)
	}
}

// Seal links a record onto a chain tail and computes its hash. It is the
// pure core of the append path: the tail travels in and out explicitly, so
// tests and replays can drive a chain without any shared mutable state.
// A zero tail starts a new chain and leaves PreviousHash empty.
func Seal(tail Tail, e Entry) (Entry, Tail, error) {
	if e.FirmID.IsNil() {
		return Entry{}, Tail{}, dErrors.New(dErrors.CodeInvalidInput, "audit entry requires a firm ID")
	}
	if e.Action == "" {
		return Entry{}, Tail{}, dErrors.New(dErrors.CodeInvalidInput, "audit entry requires an action")
	}

	if !tail.IsZero() {
		e.PreviousHash = tail.Hash
	} else {
		e.PreviousHash = ""
	}

	hash, err := ComputeHash(e)
	if err != nil {
		return Entry{}, Tail{}, dErrors.Wrap(err, dErrors.CodeInternal, "compute audit hash")
	}
	e.AuditHash = hash

	return e, Tail{AuditID: e.AuditID, Hash: hash}, nil
}

// Ledger serializes appends per firm and keeps each firm's tail threaded
// between calls. The in-memory tail is a cache of the store's tail row; on
// first use for a firm it is recovered from the store, so a restart resumes
// the chain rather than forking it.
type Ledger struct {
	store    Store
	log      *slog.Logger
	observer Observer

	mu    sync.Mutex
	tails map[id.FirmID]Tail
}

// LedgerOption configures a Ledger.
type LedgerOption func(*Ledger)

// WithObserver registers a post-append observer, typically the alert engine.
func WithObserver(o Observer) LedgerOption {
	return func(l *Ledger) { l.observer = o }
}

// WithLedgerLogger overrides the default logger.
func WithLedgerLogger(log *slog.Logger) LedgerOption {
	return func(l *Ledger) { l.log = log }
}

// NewLedger creates a ledger over the given store.
func NewLedger(store Store, opts ...LedgerOption) *Ledger {
	l := &Ledger{
		store: store,
		log:   slog.Default(),
		tails: make(map[id.FirmID]Tail),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Append builds, hashes and persists one entry for the firm in the request
// context, then notifies the observer. Appends for the same firm are
// serialized; concurrent appends for different firms do not contend beyond
// the tail-map lookup.
//
// Actor identity, session, access method and timestamp come from the
// context so every call site records them uniformly.
func (l *Ledger) Append(ctx context.Context, rec Record) (Entry, error) {
	firmID := requestcontext.FirmID(ctx)
	if firmID.IsNil() {
		return Entry{}, dErrors.New(dErrors.CodeInvalidInput, "audit append requires a firm in context")
	}

	// Postgres timestamptz holds microseconds; truncating here keeps the
	// hashed timestamp identical after a storage round-trip.
	ts := requestcontext.Now(ctx).Truncate(time.Microsecond)
	e := Entry{
		AuditID:      id.NewAuditID(),
		Timestamp:    ts,
		FirmID:       firmID,
		UserID:       requestcontext.UserID(ctx),
		SessionID:    requestcontext.SessionID(ctx),
		Action:       rec.Action,
		ResourceType: rec.ResourceType,
		ResourceID:   rec.ResourceID,
		Class:        rec.Class,
		AccessMethod: requestcontext.AccessMethod(ctx),
		Success:      rec.Success,
		Metadata:     rec.Metadata,
	}
	e.RiskScore = riskScore(rec.Action, rec.Class, ts, rec.Success)

	l.mu.Lock()
	defer l.mu.Unlock()

	tail, ok := l.tails[firmID]
	if !ok {
		recovered, err := l.recoverTail(ctx, firmID)
		if err != nil {
			return Entry{}, err
		}
		tail = recovered
	}

	sealed, newTail, err := Seal(tail, e)
	if err != nil {
		return Entry{}, err
	}

	if err := l.store.Append(ctx, sealed); err != nil {
		appendFailures.Inc()
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "persist audit entry")
	}
	l.tails[firmID] = newTail

	entriesAppended.WithLabelValues(string(sealed.Action)).Inc()
	riskScores.Observe(float64(sealed.RiskScore))
	l.log.DebugContext(ctx, "audit entry appended",
		slog.String("firm_id", firmID.String()),
		slog.String("audit_id", sealed.AuditID.String()),
		slog.String("action", string(sealed.Action)),
		slog.Int("risk_score", sealed.RiskScore))

	if l.observer != nil {
		l.observer.EntryAppended(ctx, sealed)
	}
	return sealed, nil
}

// recoverTail loads the firm's persisted tail. Called with l.mu held.
func (l *Ledger) recoverTail(ctx context.Context, firmID id.FirmID) (Tail, error) {
	last, err := l.store.Tail(ctx, firmID)
	switch {
	case err == nil:
		return Tail{AuditID: last.AuditID, Hash: last.AuditHash}, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return Tail{}, nil
	default:
		return Tail{}, dErrors.Wrap(err, dErrors.CodeInternal, "recover audit chain tail")
	}
}

// List returns a firm's entries, newest first.
func (l *Ledger) List(ctx context.Context, firmID id.FirmID, f Filter) ([]Entry, error) {
	if firmID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "audit list requires a firm ID")
	}
	entries, err := l.store.List(ctx, firmID, f)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "list audit entries")
	}
	return entries, nil
}

// Get returns one entry by ID.
func (l *Ledger) Get(ctx context.Context, firmID id.FirmID, auditID id.AuditID) (Entry, error) {
	e, err := l.store.Get(ctx, firmID, auditID)
	switch {
	case err == nil:
		return e, nil
	case errors.Is(err, sentinel.ErrNotFound):
		return Entry{}, dErrors.New(dErrors.CodeNotFound, "audit entry not found")
	default:
		return Entry{}, dErrors.Wrap(err, dErrors.CodeInternal, "get audit entry")
	}
}
