package conversation

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	id "lexgate/pkg/domain"
	dErrors "lexgate/pkg/domain-errors"
	"lexgate/pkg/platform/sentinel"
)

// Mutation is applied to a conversation record under the actor's exclusive
// ownership. It mutates rec in place; a non-nil error aborts the write and
// leaves the stored record untouched.
type Mutation func(ctx context.Context, rec *Record) error

const actorIdleTimeout = 2 * time.Minute

// Runtime gives each conversation a single writer. Every mutation for a
// conversation is funnelled through that conversation's actor goroutine, so
// two concurrent requests can never interleave their read-modify-write
// cycles. Actors spawn on first use and retire after an idle period.
type Runtime struct {
	store Store
	log   *slog.Logger

	mu     sync.Mutex
	actors map[id.ConversationID]*actor
	closed bool
	wg     sync.WaitGroup
}

// NewRuntime creates an actor runtime over the given store.
func NewRuntime(store Store, log *slog.Logger) *Runtime {
	if log == nil {
		log = slog.Default()
	}
	return &Runtime{
		store:  store,
		log:    log,
		actors: make(map[id.ConversationID]*actor),
	}
}

type command struct {
	ctx    context.Context
	fresh  *Record // non-nil for creation: inserted instead of loaded
	mutate Mutation
	delete bool
	reply  chan result
}

type result struct {
	rec Record
	err error
}

type actor struct {
	convID  id.ConversationID
	firmID  id.FirmID
	mailbox chan command

	// mu guards retired against the enqueue in send, closing the race
	// between an idle retirement and a command arriving for the same
	// conversation.
	mu      sync.Mutex
	retired bool
}

// Create inserts a new conversation through its actor so creation and
// immediate follow-up writes serialize like any other pair of mutations.
func (r *Runtime) Create(ctx context.Context, rec Record) (Record, error) {
	return r.send(ctx, rec.FirmID, rec.ConversationID, command{fresh: &rec})
}

// Mutate applies fn to the conversation under the single-writer guarantee
// and returns the updated record.
func (r *Runtime) Mutate(ctx context.Context, firmID id.FirmID, convID id.ConversationID, fn Mutation) (Record, error) {
	return r.send(ctx, firmID, convID, command{mutate: fn})
}

// Get reads the current record straight from the store. Reads bypass the
// actor: the store is authoritative and a committed write is always
// visible, so serializing reads through the mailbox buys nothing.
func (r *Runtime) Get(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Record, error) {
	rec, err := r.store.Get(ctx, firmID, convID)
	if err != nil {
		return Record{}, translateStoreErr(err, "load conversation")
	}
	return rec, nil
}

// Delete removes the conversation through its actor.
func (r *Runtime) Delete(ctx context.Context, firmID id.FirmID, convID id.ConversationID) (Record, error) {
	return r.send(ctx, firmID, convID, command{delete: true})
}

func (r *Runtime) send(ctx context.Context, firmID id.FirmID, convID id.ConversationID, cmd command) (Record, error) {
	cmd.ctx = ctx
	cmd.reply = make(chan result, 1)

	for {
		a, err := r.actorFor(firmID, convID)
		if err != nil {
			return Record{}, err
		}
		if a.enqueue(cmd) {
			break
		}
		// The actor retired between lookup and enqueue; look up again,
		// which spawns a fresh one.
	}

	// An accepted command is always executed and answered, even if the
	// caller's context has since been cancelled, so waiting on the reply
	// alone is safe and keeps the write outcome unambiguous.
	res := <-cmd.reply
	return res.rec, res.err
}

// enqueue places cmd in the mailbox unless the actor has retired.
func (a *actor) enqueue(cmd command) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.retired {
		return false
	}
	a.mailbox <- cmd
	return true
}

func (r *Runtime) actorFor(firmID id.FirmID, convID id.ConversationID) (*actor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, dErrors.New(dErrors.CodeActorWriteFailure, "conversation runtime is shut down")
	}
	if a, ok := r.actors[convID]; ok {
		return a, nil
	}

	a := &actor{convID: convID, firmID: firmID, mailbox: make(chan command, 16)}
	r.actors[convID] = a
	r.wg.Add(1)
	go r.run(a)
	r.log.Debug("conversation actor spawned", slog.String("conversation_id", convID.String()))
	return a, nil
}

// run is the actor loop: one goroutine, one conversation, commands applied
// strictly in arrival order.
func (r *Runtime) run(a *actor) {
	defer r.wg.Done()
	idle := time.NewTimer(actorIdleTimeout)
	defer idle.Stop()

	for {
		select {
		case cmd, ok := <-a.mailbox:
			if !ok {
				return
			}
			cmd.reply <- r.execute(cmd, a)
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(actorIdleTimeout)
		case <-idle.C:
			if r.retire(a) {
				return
			}
			idle.Reset(actorIdleTimeout)
		}
	}
}

// retire removes an idle actor unless a command raced in. TryLock keeps
// retirement from deadlocking against a sender that holds the actor lock
// while waiting for mailbox space.
func (r *Runtime) retire(a *actor) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !a.mu.TryLock() {
		return false
	}
	defer a.mu.Unlock()
	if len(a.mailbox) > 0 {
		return false
	}
	a.retired = true
	delete(r.actors, a.convID)
	return true
}

func (r *Runtime) execute(cmd command, a *actor) result {
	ctx := cmd.ctx

	switch {
	case cmd.fresh != nil:
		if err := r.store.Insert(ctx, *cmd.fresh); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return result{err: dErrors.New(dErrors.CodeConflict, "conversation already exists")}
			}
			return result{err: dErrors.Wrap(err, dErrors.CodeActorWriteFailure, "insert conversation")}
		}
		return result{rec: *cmd.fresh}

	case cmd.delete:
		rec, err := r.store.Get(ctx, a.firmID, a.convID)
		if err != nil {
			return result{err: translateStoreErr(err, "load conversation")}
		}
		if err := r.store.Delete(ctx, a.firmID, a.convID); err != nil {
			return result{err: translateStoreErr(err, "delete conversation")}
		}
		return result{rec: rec}

	default:
		rec, err := r.store.Get(ctx, a.firmID, a.convID)
		if err != nil {
			return result{err: translateStoreErr(err, "load conversation")}
		}
		if err := cmd.mutate(ctx, &rec); err != nil {
			return result{err: err}
		}
		rec.Version++
		if err := r.store.Update(ctx, rec); err != nil {
			return result{err: translateStoreErr(err, "update conversation")}
		}
		return result{rec: rec}
	}
}

func translateStoreErr(err error, op string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "conversation not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeActorWriteFailure, "concurrent write detected")
	default:
		return dErrors.Wrap(err, dErrors.CodeActorWriteFailure, op)
	}
}

// Close drains all actors. New commands are rejected once shutdown begins;
// commands already queued run to completion.
func (r *Runtime) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for convID, a := range r.actors {
		a.mu.Lock()
		a.retired = true
		a.mu.Unlock()
		close(a.mailbox)
		delete(r.actors, convID)
	}
	r.mu.Unlock()
	r.wg.Wait()
}
