package messages

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lehmann314159/folio/internal/models"
)

type writeResult struct {
	id  string
	err error
}

// gatedWriter blocks every Write until the test releases it.
type gatedWriter struct {
	started chan models.MessageInput
	release chan writeResult
}

func newGatedWriter() *gatedWriter {
	return &gatedWriter{started: make(chan models.MessageInput, 1), release: make(chan writeResult, 1)}
}

func (w *gatedWriter) Write(ctx context.Context, in models.MessageInput) (string, error) {
	w.started <- in
	r := <-w.release
	return r.id, r.err
}

// manualTimers records scheduled callbacks so the test decides when they fire.
type manualTimers struct {
	mu    sync.Mutex
	fns   []func()
	stops int
}

func (m *manualTimers) schedule(_ time.Duration, f func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fns = append(m.fns, f)
	return func() {
		m.mu.Lock()
		m.stops++
		m.mu.Unlock()
	}
}

func (m *manualTimers) fireAll() {
	m.mu.Lock()
	fns := m.fns
	m.fns = nil
	m.mu.Unlock()
	for _, f := range fns {
		f()
	}
}

func (m *manualTimers) pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.fns)
}

var input = models.MessageInput{UserID: "u1", UserName: "Ann", Content: "hello"}

func newBoard(w Writer, timers *manualTimers) *Board {
	b := NewBoard(w, WithScheduler(timers.schedule))
	var n atomic.Int32
	b.newID = func() string {
		return string(rune('a' + n.Add(1) - 1))
	}
	return b
}

// tokenWriter blocks each Write until the test releases that submission's
// client token, so concurrent submissions can finish in any order.
type tokenWriter struct {
	started chan models.MessageInput
	mu      sync.Mutex
	gates   map[string]chan writeResult
}

func newTokenWriter() *tokenWriter {
	return &tokenWriter{started: make(chan models.MessageInput, 2), gates: make(map[string]chan writeResult)}
}

func (w *tokenWriter) gate(token string) chan writeResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	g, ok := w.gates[token]
	if !ok {
		g = make(chan writeResult, 1)
		w.gates[token] = g
	}
	return g
}

func (w *tokenWriter) Write(ctx context.Context, in models.MessageInput) (string, error) {
	w.started <- in
	r := <-w.gate(in.ClientToken)
	return r.id, r.err
}

func submitAsync(b *Board, in models.MessageInput) <-chan writeResult {
	done := make(chan writeResult, 1)
	go func() {
		id, err := b.Submit(context.Background(), in)
		done <- writeResult{id, err}
	}()
	return done
}

func TestSubmitShowsPlaceholderWhileWriting(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)
	b.Replace([]models.Message{{ID: "old", Content: "earlier"}})

	done := submitAsync(b, input)
	sent := <-w.started

	assert.Equal(t, "temp_a", sent.ClientToken)
	msgs := b.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "temp_a", msgs[0].ID)
	assert.Equal(t, "hello", msgs[0].Content)
	assert.Equal(t, "old", msgs[1].ID)
	assert.Equal(t, StateCommitting, b.State("temp_a"))

	w.release <- writeResult{id: "srv-1"}
	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "srv-1", r.id)
	assert.Equal(t, 1, timers.pending())
}

func TestSubmitFailureRollsBack(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{err: errors.New("connection refused")}
	r := <-done

	require.Error(t, r.err)
	assert.Empty(t, b.Messages())
	assert.Equal(t, StateRolledBack, b.State("temp_a"))
	assert.Equal(t, "failed to send message: connection refused", b.Err())
	assert.Zero(t, timers.pending())

	b.ClearError()
	assert.Empty(t, b.Err())
}

func TestSnapshotBeforeTimerLeavesOneItem(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{id: "srv-1"}
	require.NoError(t, (<-done).err)

	// A snapshot without the client token leaves the timer as the fallback.
	b.Replace([]models.Message{{ID: "srv-1", Content: "hello"}})
	require.Len(t, b.Messages(), 1)
	assert.Equal(t, StateCommitting, b.State("temp_a"))

	timers.fireAll()
	msgs := b.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "srv-1", msgs[0].ID)
	assert.Equal(t, StateReconciled, b.State("temp_a"))
}

func TestTimerRemovesPlaceholderWithoutSnapshot(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{id: "srv-1"}
	require.NoError(t, (<-done).err)
	require.Len(t, b.Messages(), 1)

	timers.fireAll()
	assert.Empty(t, b.Messages())
	assert.Equal(t, StateReconciled, b.State("temp_a"))
}

func TestClientTokenReconcilesImmediately(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{id: "srv-1"}
	require.NoError(t, (<-done).err)

	b.Replace([]models.Message{{ID: "srv-1", ClientToken: "temp_a", Content: "hello"}})
	assert.Equal(t, StateReconciled, b.State("temp_a"))
	assert.Equal(t, 1, timers.stops)

	// A late timer must not touch the authoritative item.
	timers.fireAll()
	require.Len(t, b.Messages(), 1)
	assert.Equal(t, "srv-1", b.Messages()[0].ID)
}

func TestSnapshotDuringWriteSkipsTimer(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	done := submitAsync(b, input)
	<-w.started
	b.Replace([]models.Message{{ID: "srv-1", ClientToken: "temp_a", Content: "hello"}})
	w.release <- writeResult{id: "srv-1"}
	require.NoError(t, (<-done).err)

	assert.Equal(t, StateReconciled, b.State("temp_a"))
	assert.Zero(t, timers.pending())
	assert.Len(t, b.Messages(), 1)
}

func TestConcurrentSubmissionsAreIndependent(t *testing.T) {
	w := newTokenWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)

	first := input
	first.Content = "first"
	second := input
	second.Content = "second"
	doneFirst := submitAsync(b, first)
	doneSecond := submitAsync(b, second)

	tokens := map[string]string{}
	for range 2 {
		in := <-w.started
		tokens[in.Content] = in.ClientToken
	}
	failed, kept := tokens["first"], tokens["second"]
	require.NotEqual(t, failed, kept)
	assert.Len(t, b.Placeholders(), 2)

	w.gate(failed) <- writeResult{err: errors.New("connection refused")}
	require.Error(t, (<-doneFirst).err)

	assert.Equal(t, []string{kept}, b.Placeholders())
	assert.Equal(t, StateRolledBack, b.State(failed))
	assert.Equal(t, StateCommitting, b.State(kept))

	w.gate(kept) <- writeResult{id: "srv-2"}
	r := <-doneSecond
	require.NoError(t, r.err)
	assert.Equal(t, "srv-2", r.id)
	assert.Equal(t, 1, timers.pending())

	timers.fireAll()
	assert.Empty(t, b.Messages())
	assert.Equal(t, StateReconciled, b.State(kept))
	assert.Equal(t, StateRolledBack, b.State(failed))
}

func TestLoadingTracksSubmitAndFetch(t *testing.T) {
	w := newGatedWriter()
	b := newBoard(w, &manualTimers{})
	assert.False(t, b.Loading())

	done := submitAsync(b, input)
	<-w.started
	assert.True(t, b.Loading())
	w.release <- writeResult{id: "srv-1"}
	<-done
	assert.False(t, b.Loading())

	listing := make(chan struct{})
	finish := make(chan struct{})
	fetched := make(chan error, 1)
	go func() {
		fetched <- b.Fetch(context.Background(), listerFunc(func(context.Context) ([]models.Message, error) {
			close(listing)
			<-finish
			return nil, nil
		}))
	}()
	<-listing
	assert.True(t, b.Loading())
	close(finish)
	require.NoError(t, <-fetched)
	assert.False(t, b.Loading())
}

func TestFetchDoesNotAliasCallerSlice(t *testing.T) {
	b := NewBoard(newGatedWriter(), WithScheduler((&manualTimers{}).schedule))
	loaded := []models.Message{{ID: "temp_x"}, {ID: "srv-1"}, {ID: "srv-2"}}

	require.NoError(t, b.Fetch(context.Background(), listerFunc(func(context.Context) ([]models.Message, error) {
		return loaded, nil
	})))
	b.ClearPlaceholders()

	require.Len(t, b.Messages(), 2)
	assert.Equal(t, []models.Message{{ID: "temp_x"}, {ID: "srv-1"}, {ID: "srv-2"}}, loaded)
}

func TestClearPlaceholders(t *testing.T) {
	w := newGatedWriter()
	timers := &manualTimers{}
	b := newBoard(w, timers)
	b.Replace([]models.Message{{ID: "srv-0"}})

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{id: "srv-1"}
	require.NoError(t, (<-done).err)
	assert.Equal(t, []string{"temp_a"}, b.Placeholders())

	b.ClearPlaceholders()
	assert.Empty(t, b.Placeholders())
	require.Len(t, b.Messages(), 1)
	assert.Equal(t, "srv-0", b.Messages()[0].ID)
}

func TestOnChangeSeesEveryMutation(t *testing.T) {
	var mu sync.Mutex
	var lengths []int
	w := newGatedWriter()
	b := NewBoard(w, WithScheduler((&manualTimers{}).schedule), WithOnChange(func(msgs []models.Message) {
		mu.Lock()
		lengths = append(lengths, len(msgs))
		mu.Unlock()
	}))

	done := submitAsync(b, input)
	<-w.started
	w.release <- writeResult{err: errors.New("boom")}
	<-done

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 0}, lengths)
}

type fakeFeed struct {
	snapshots chan []models.Message
	errs      chan error
	err       error
}

func (f *fakeFeed) Subscribe(ctx context.Context) (<-chan []models.Message, <-chan error, error) {
	return f.snapshots, f.errs, f.err
}

func TestConsume(t *testing.T) {
	feed := &fakeFeed{snapshots: make(chan []models.Message), errs: make(chan error)}
	b := NewBoard(newGatedWriter())

	done := make(chan error, 1)
	go func() { done <- b.Consume(context.Background(), feed) }()

	feed.snapshots <- []models.Message{{ID: "1"}}
	feed.errs <- errors.New("stream dropped")
	feed.snapshots <- []models.Message{{ID: "2"}, {ID: "1"}}
	close(feed.snapshots)

	require.NoError(t, <-done)
	assert.Len(t, b.Messages(), 2)
	assert.Equal(t, "real-time update failed: stream dropped", b.Err())
}

func TestConsumeStopsWithContext(t *testing.T) {
	feed := &fakeFeed{snapshots: make(chan []models.Message), errs: make(chan error)}
	b := NewBoard(newGatedWriter())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, b.Consume(ctx, feed), context.Canceled)
}

func TestConsumeSubscribeFailure(t *testing.T) {
	b := NewBoard(newGatedWriter())
	err := b.Consume(context.Background(), &fakeFeed{err: errors.New("no route")})
	require.Error(t, err)
	assert.Contains(t, b.Err(), "failed to subscribe")
}

type listerFunc func(ctx context.Context) ([]models.Message, error)

func (f listerFunc) List(ctx context.Context) ([]models.Message, error) { return f(ctx) }

func TestFetch(t *testing.T) {
	b := NewBoard(newGatedWriter())

	err := b.Fetch(context.Background(), listerFunc(func(context.Context) ([]models.Message, error) {
		return nil, errors.New("timeout")
	}))
	require.Error(t, err)
	assert.Equal(t, "failed to load messages: timeout", b.Err())

	err = b.Fetch(context.Background(), listerFunc(func(context.Context) ([]models.Message, error) {
		return []models.Message{{ID: "x"}}, nil
	}))
	require.NoError(t, err)
	assert.Empty(t, b.Err())
	assert.Len(t, b.Messages(), 1)
}

func TestFormatAge(t *testing.T) {
	now := time.Date(2024, 3, 20, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "Just now"},
		{time.Minute, "1 minutes ago"},
		{45 * time.Minute, "45 minutes ago"},
		{time.Hour, "1 hour ago"},
		{5 * time.Hour, "5 hours ago"},
		{24 * time.Hour, "1 day ago"},
		{6 * 24 * time.Hour, "6 days ago"},
		{8 * 24 * time.Hour, "Mar 12, 2024"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAge(now.Add(-tt.ago), now), tt.ago.String())
	}
}
