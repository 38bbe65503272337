package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type recordingHandler struct {
	mu     sync.Mutex
	calls  []Snapshot
	forced []bool
}

func (h *recordingHandler) OnComplete(_ context.Context, snap Snapshot, forced bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, snap)
	h.forced = append(h.forced, forced)
}

type failingBackend struct {
	err error
}

func (b failingBackend) Name() string { return "failing" }

func (b failingBackend) RunTurn(context.Context, TurnRequest) (TurnResult, error) {
	return TurnResult{}, b.err
}

// blockingBackend holds a turn open until release is closed.
type blockingBackend struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingBackend) Name() string { return "blocking" }

func (b *blockingBackend) RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	close(b.started)
	<-b.release
	return NewLocalBackend().RunTurn(ctx, req)
}

func newTestSession(t *testing.T, clock *fakeClock, opts SessionOptions) *Session {
	t.Helper()
	opts.Config = qualify.DefaultConfig()
	opts.Now = clock.Now
	return NewSession(qualify.LanguageSpanish, opts)
}

func TestSession_OpensWithGreeting(t *testing.T) {
	s := newTestSession(t, newFakeClock(), SessionOptions{})
	snap := s.Snapshot()

	require.Len(t, snap.Transcript, 1)
	assert.Equal(t, ChatRoleAssistant, snap.Transcript[0].Role)
	assert.Equal(t, qualify.Greeting(qualify.LanguageSpanish), snap.Transcript[0].Content)
	assert.Equal(t, qualify.StepNeedProjectType, snap.State.Step)
	assert.Equal(t, "local", snap.Backend)
	assert.NotEmpty(t, snap.ID)
}

func TestSession_FullConversationFiresCompletionOnce(t *testing.T) {
	clock := newFakeClock()
	handler := &recordingHandler{}
	s := newTestSession(t, clock, SessionOptions{OnComplete: handler})

	utterances := []string{
		"Quiero reformar mi cocina en Barcelona",
		"Unos 15 metros",
		"En verano",
		"Unos 30.000 euros",
		"Me llamo Ana García, mi teléfono es +34 612 345 678",
		"Sí, claro",
	}
	var res TurnResult
	for _, u := range utterances {
		var err error
		res, err = s.Send(context.Background(), u)
		require.NoError(t, err, u)
		clock.Advance(DefaultCooldown)
	}

	assert.True(t, res.Terminal)
	assert.Equal(t, qualify.StepComplete, res.Step)
	assert.Equal(t, 90, res.Score)
	assert.Equal(t, 1, res.Tier)
	assert.Empty(t, res.NextQuestion)

	snap := s.Snapshot()
	assert.Len(t, snap.Transcript, 1+2*len(utterances))
	assert.True(t, snap.Finished)

	require.Len(t, handler.calls, 1)
	assert.False(t, handler.forced[0])
	assert.Equal(t, 90, handler.calls[0].State.Score)

	_, err := s.Send(context.Background(), "hola?")
	assert.ErrorIs(t, err, ErrSessionClosed)

	_, err = s.Finish(context.Background())
	require.NoError(t, err)
	assert.Len(t, handler.calls, 1, "finishing a completed session must not notify again")
}

func TestSession_CooldownRejectsWithoutResettingWindow(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, SessionOptions{})

	_, err := s.Send(context.Background(), "Quiero pintar el piso")
	require.NoError(t, err)

	clock.Advance(500 * time.Millisecond)
	_, err = s.Send(context.Background(), "en Sabadell")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCooldown)
	var cd *CooldownError
	require.True(t, errors.As(err, &cd))
	assert.Equal(t, 1500*time.Millisecond, cd.Remaining)
	assert.Equal(t, 2, cd.Seconds())
	assert.True(t, Retryable(err))

	// The rejected send must not push the window forward.
	clock.Advance(1500 * time.Millisecond)
	_, err = s.Send(context.Background(), "en Sabadell")
	require.NoError(t, err)
	assert.Equal(t, qualify.Known("Sabadell"), s.Snapshot().State.City)
}

func TestSession_NegativeCooldownDisablesIt(t *testing.T) {
	s := newTestSession(t, newFakeClock(), SessionOptions{Cooldown: -1})

	_, err := s.Send(context.Background(), "Quiero pintar el piso")
	require.NoError(t, err)
	_, err = s.Send(context.Background(), "en Sabadell")
	require.NoError(t, err)
}

func TestSession_EmptyUtterance(t *testing.T) {
	s := newTestSession(t, newFakeClock(), SessionOptions{})
	_, err := s.Send(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyUtterance)
	assert.Len(t, s.Snapshot().Transcript, 1)
}

func TestSession_FailedTurnLeavesStateUntouched(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, SessionOptions{Backend: failingBackend{err: ErrMalformedResponse}})
	before := s.Snapshot()

	_, err := s.Send(context.Background(), "Quiero reformar mi cocina")
	require.ErrorIs(t, err, ErrMalformedResponse)

	after := s.Snapshot()
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, before.Transcript, after.Transcript)
	assert.False(t, after.Finished)
}

func TestSession_RejectsConcurrentTurn(t *testing.T) {
	backend := &blockingBackend{started: make(chan struct{}), release: make(chan struct{})}
	s := newTestSession(t, newFakeClock(), SessionOptions{Backend: backend, Cooldown: -1})

	done := make(chan error, 1)
	go func() {
		_, err := s.Send(context.Background(), "Quiero reformar el baño")
		done <- err
	}()
	<-backend.started

	_, err := s.Send(context.Background(), "en Sabadell")
	assert.ErrorIs(t, err, ErrTurnInProgress)
	assert.ErrorIs(t, s.Reset(), ErrTurnInProgress)
	_, err = s.Finish(context.Background())
	assert.ErrorIs(t, err, ErrTurnInProgress)

	close(backend.release)
	require.NoError(t, <-done)
	assert.Equal(t, qualify.Known(qualify.CategoryBathroom), s.Snapshot().State.ProjectType)
}

func TestSession_FinishIsIdempotentAndForced(t *testing.T) {
	handler := &recordingHandler{}
	s := newTestSession(t, newFakeClock(), SessionOptions{OnComplete: handler})

	_, err := s.Send(context.Background(), "Quiero cambiar las ventanas")
	require.NoError(t, err)

	snap, err := s.Finish(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Finished)
	assert.Equal(t, qualify.Known(qualify.CategoryWindows), snap.State.ProjectType)

	_, err = s.Finish(context.Background())
	require.NoError(t, err)

	require.Len(t, handler.calls, 1)
	assert.True(t, handler.forced[0])

	_, err = s.Send(context.Background(), "en Badalona")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_ResetStartsOver(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, SessionOptions{})

	_, err := s.Send(context.Background(), "Quiero reformar mi cocina en Barcelona")
	require.NoError(t, err)
	_, err = s.Finish(context.Background())
	require.NoError(t, err)

	require.NoError(t, s.Reset())
	snap := s.Snapshot()
	assert.Equal(t, qualify.NewState(), snap.State)
	assert.Len(t, snap.Transcript, 1)
	assert.False(t, snap.Finished)

	// Reset clears the cooldown window too.
	_, err = s.Send(context.Background(), "Quiero pintar")
	require.NoError(t, err)
}

func TestRestoreSession_ContinuesConversation(t *testing.T) {
	clock := newFakeClock()
	s := newTestSession(t, clock, SessionOptions{})
	_, err := s.Send(context.Background(), "Quiero reformar mi cocina en Barcelona")
	require.NoError(t, err)

	restored := RestoreSession(s.Snapshot(), SessionOptions{Config: qualify.DefaultConfig(), Now: clock.Now})
	assert.Equal(t, s.ID(), restored.ID())

	res, err := restored.Send(context.Background(), "Unos 15 metros")
	require.NoError(t, err)
	assert.Equal(t, qualify.StepNeedTimeline, res.Step)
	assert.Len(t, restored.Snapshot().Transcript, 5)
}
