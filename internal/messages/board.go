// Package messages implements the guestbook: the server-side service that
// stores messages and the client-side Board that shows a submission before
// the server has confirmed it.
package messages

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lehmann314159/folio/internal/models"
)

const (
	PlaceholderPrefix     = "temp_"
	DefaultReconcileDelay = time.Second
)

// State is where a single submission is in its lifecycle.
type State int

const (
	StateUnknown State = iota
	StatePending
	StateCommitting
	StateReconciled
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitting:
		return "committing"
	case StateReconciled:
		return "reconciled"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// Writer durably stores a message and returns its server-assigned id.
type Writer interface {
	Write(ctx context.Context, in models.MessageInput) (string, error)
}

// Lister loads the current collection, newest first.
type Lister interface {
	List(ctx context.Context) ([]models.Message, error)
}

// Feed delivers ordered snapshots of the whole collection. Errors on the
// second channel are not terminal; the feed ends when the snapshot channel closes.
type Feed interface {
	Subscribe(ctx context.Context) (<-chan []models.Message, <-chan error, error)
}

// IsPlaceholder reports whether id was assigned locally.
func IsPlaceholder(id string) bool {
	return strings.HasPrefix(id, PlaceholderPrefix)
}

// Board is the local, ordered view of the guestbook.
//
// Submit shows a placeholder immediately and then writes through Writer. On
// failure the placeholder is removed at once. On success it is left for the
// feed to replace: a snapshot carrying the placeholder's client token
// reconciles it, and otherwise a timer removes it after the reconcile delay.
// A snapshot always replaces the whole list.
type Board struct {
	writer   Writer
	delay    time.Duration
	schedule func(time.Duration, func()) (stop func())
	newID    func() string
	now      func() time.Time
	onChange func([]models.Message)

	mu       sync.Mutex
	items    []models.Message
	states   map[string]State
	stops    map[string]func()
	err      string
	inflight int
}

type BoardOption func(*Board)

func WithReconcileDelay(d time.Duration) BoardOption {
	return func(b *Board) { b.delay = d }
}

// WithScheduler replaces time.AfterFunc for the delayed placeholder removal.
func WithScheduler(schedule func(time.Duration, func()) (stop func())) BoardOption {
	return func(b *Board) { b.schedule = schedule }
}

func WithClock(now func() time.Time) BoardOption {
	return func(b *Board) { b.now = now }
}

// WithOnChange registers a callback that receives a copy of the list after
// every change. It runs outside the board's lock.
func WithOnChange(fn func([]models.Message)) BoardOption {
	return func(b *Board) { b.onChange = fn }
}

func NewBoard(w Writer, opts ...BoardOption) *Board {
	b := &Board{
		writer: w,
		delay:  DefaultReconcileDelay,
		schedule: func(d time.Duration, f func()) func() {
			t := time.AfterFunc(d, f)
			return func() { t.Stop() }
		},
		newID:  uuid.NewString,
		now:    time.Now,
		states: make(map[string]State),
		stops:  make(map[string]func()),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Submit adds in to the board and writes it. The returned id is the
// server's; the placeholder id can be read back with Placeholders or State.
func (b *Board) Submit(ctx context.Context, in models.MessageInput) (string, error) {
	tempID := PlaceholderPrefix + b.newID()
	in.ClientToken = tempID
	defer b.done()

	b.mutate(func() {
		b.inflight++
		b.items = append([]models.Message{{
			ID:          tempID,
			ClientToken: tempID,
			UserID:      in.UserID,
			UserName:    in.UserName,
			UserEmail:   in.UserEmail,
			UserAvatar:  in.UserAvatar,
			Content:     in.Content,
			CreatedAt:   b.now(),
		}}, b.items...)
		b.states[tempID] = StatePending
		b.err = ""
	})

	b.mu.Lock()
	b.states[tempID] = StateCommitting
	b.mu.Unlock()

	id, err := b.writer.Write(ctx, in)
	if err != nil {
		err = fmt.Errorf("failed to send message: %w", err)
		b.mutate(func() {
			b.remove(tempID)
			b.states[tempID] = StateRolledBack
			b.err = err.Error()
		})
		return "", err
	}

	b.mu.Lock()
	if b.states[tempID] == StateCommitting {
		b.stops[tempID] = b.schedule(b.delay, func() { b.expire(tempID) })
	}
	b.mu.Unlock()
	return id, nil
}

// expire drops a placeholder the feed has not reconciled in time.
func (b *Board) expire(tempID string) {
	b.mutate(func() {
		delete(b.stops, tempID)
		if b.states[tempID] != StateCommitting {
			return
		}
		b.remove(tempID)
		b.states[tempID] = StateReconciled
	})
}

// Replace swaps the whole list for snapshot.
func (b *Board) Replace(snapshot []models.Message) {
	b.mutate(func() {
		b.items = append([]models.Message(nil), snapshot...)
		for _, m := range snapshot {
			if m.ClientToken == "" {
				continue
			}
			switch b.states[m.ClientToken] {
			case StatePending, StateCommitting:
				b.states[m.ClientToken] = StateReconciled
				if stop, ok := b.stops[m.ClientToken]; ok {
					stop()
					delete(b.stops, m.ClientToken)
				}
			}
		}
	})
}

// Consume applies snapshots from feed until it ends or ctx is done.
func (b *Board) Consume(ctx context.Context, feed Feed) error {
	snapshots, errs, err := feed.Subscribe(ctx)
	if err != nil {
		b.setErr("failed to subscribe to messages: " + err.Error())
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case s, ok := <-snapshots:
			if !ok {
				return nil
			}
			b.Replace(s)
		case e, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			b.setErr("real-time update failed: " + e.Error())
		}
	}
}

// Fetch loads the collection once.
func (b *Board) Fetch(ctx context.Context, l Lister) error {
	b.mu.Lock()
	b.inflight++
	b.mu.Unlock()
	defer b.done()

	msgs, err := l.List(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load messages: %w", err)
		b.setErr(err.Error())
		return err
	}
	b.mutate(func() {
		b.items = append([]models.Message(nil), msgs...)
		b.err = ""
	})
	return nil
}

func (b *Board) Messages() []models.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]models.Message(nil), b.items...)
}

func (b *Board) State(tempID string) State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.states[tempID]
}

// Placeholders returns the ids of the local stand-ins still on the board.
func (b *Board) Placeholders() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	var ids []string
	for _, m := range b.items {
		if IsPlaceholder(m.ID) {
			ids = append(ids, m.ID)
		}
	}
	return ids
}

// Loading reports whether a Submit or Fetch is in flight.
func (b *Board) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight > 0
}

// Err is the last user-visible failure, or "".
func (b *Board) Err() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

func (b *Board) ClearError() {
	b.setErr("")
}

// ClearPlaceholders removes every local stand-in at once.
func (b *Board) ClearPlaceholders() {
	b.mutate(func() {
		kept := b.items[:0]
		for _, m := range b.items {
			if !IsPlaceholder(m.ID) {
				kept = append(kept, m)
			}
		}
		b.items = kept
	})
}

func (b *Board) done() {
	b.mu.Lock()
	b.inflight--
	b.mu.Unlock()
}

func (b *Board) setErr(msg string) {
	b.mu.Lock()
	b.err = msg
	b.mu.Unlock()
}

// remove must be called with b.mu held. Removing an absent id is a no-op.
func (b *Board) remove(id string) {
	for i, m := range b.items {
		if m.ID == id {
			b.items = append(b.items[:i], b.items[i+1:]...)
			return
		}
	}
}

func (b *Board) mutate(fn func()) {
	b.mu.Lock()
	fn()
	var snapshot []models.Message
	if b.onChange != nil {
		snapshot = append([]models.Message(nil), b.items...)
	}
	b.mu.Unlock()

	if b.onChange != nil {
		b.onChange(snapshot)
	}
}
