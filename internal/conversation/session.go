package conversation

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// DefaultCooldown is the minimum spacing between two sends of one session.
const DefaultCooldown = 2 * time.Second

// Snapshot is a consistent copy of a session, used for persistence and lead
// records.
type Snapshot struct {
	ID         string           `json:"id"`
	Language   qualify.Language `json:"language"`
	Backend    string           `json:"backend"`
	State      qualify.State    `json:"state"`
	Transcript []ChatMessage    `json:"transcript"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
	// Finished is set once the completion handler has run.
	Finished bool `json:"finished"`
}

// CompletionHandler receives a session once it ends, either because the
// dialogue reached a terminal step or because the caller forced it.
type CompletionHandler interface {
	OnComplete(ctx context.Context, snap Snapshot, forced bool)
}

// SessionOptions are shared by every session a Manager creates.
type SessionOptions struct {
	Backend    Backend
	Config     qualify.Config
	// Cooldown of zero means DefaultCooldown; a negative value disables it.
	Cooldown   time.Duration
	OnComplete CompletionHandler
	Logger     *slog.Logger
	Metrics    *metrics.QualifierMetrics
	// Now is overridable in tests.
	Now func() time.Time
}

// Session is one sequential conversation. Only one turn runs at a time and
// state changes only when a turn succeeds.
type Session struct {
	id       string
	language qualify.Language
	opts     SessionOptions

	mu         sync.Mutex
	state      qualify.State
	transcript []ChatMessage
	createdAt  time.Time
	updatedAt  time.Time
	lastSend   time.Time
	inFlight   bool
	finished   bool
}

// NewSession opens a conversation with the language's greeting.
func NewSession(lang qualify.Language, opts SessionOptions) *Session {
	opts = withDefaults(opts)
	now := opts.Now()
	s := &Session{
		id:        uuid.NewString(),
		language:  qualify.ParseLanguage(string(lang)),
		opts:      opts,
		createdAt: now,
	}
	s.resetLocked(now)
	return s
}

// RestoreSession rebuilds a session from a persisted snapshot.
func RestoreSession(snap Snapshot, opts SessionOptions) *Session {
	opts = withDefaults(opts)
	return &Session{
		id:         snap.ID,
		language:   qualify.ParseLanguage(string(snap.Language)),
		opts:       opts,
		state:      snap.State.Clone(),
		transcript: slices.Clone(snap.Transcript),
		createdAt:  snap.CreatedAt,
		updatedAt:  snap.UpdatedAt,
		finished:   snap.Finished,
	}
}

func withDefaults(opts SessionOptions) SessionOptions {
	if opts.Backend == nil {
		opts.Backend = NewLocalBackend()
	}
	if opts.Cooldown < 0 {
		opts.Cooldown = 0
	} else if opts.Cooldown == 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return opts
}

func (s *Session) ID() string { return s.id }

func (s *Session) Language() qualify.Language { return s.language }

// Send runs one turn. A send inside the cooldown window fails immediately
// with a *CooldownError; any failure leaves state and transcript untouched.
func (s *Session) Send(ctx context.Context, utterance string) (TurnResult, error) {
	utterance = strings.TrimSpace(utterance)

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return TurnResult{}, ErrTurnInProgress
	}
	if s.finished || s.state.Terminal() {
		s.mu.Unlock()
		return TurnResult{}, ErrSessionClosed
	}
	if utterance == "" {
		s.mu.Unlock()
		return TurnResult{}, ErrEmptyUtterance
	}
	now := s.opts.Now()
	if !s.lastSend.IsZero() {
		if elapsed := now.Sub(s.lastSend); elapsed < s.opts.Cooldown {
			s.mu.Unlock()
			s.opts.Metrics.ObserveCooldown()
			return TurnResult{}, &CooldownError{Remaining: s.opts.Cooldown - elapsed}
		}
	}
	s.lastSend = now
	s.inFlight = true

	history := append(slices.Clone(s.transcript), ChatMessage{Role: ChatRoleUser, Content: utterance, Timestamp: now})
	req := TurnRequest{
		History:  history,
		State:    s.state.Clone(),
		Config:   s.opts.Config,
		Language: s.language,
	}
	s.mu.Unlock()

	backend := s.opts.Backend.Name()
	res, err := s.opts.Backend.RunTurn(ctx, req)
	elapsed := s.opts.Now().Sub(now).Seconds()

	s.mu.Lock()
	s.inFlight = false
	if err != nil {
		s.mu.Unlock()
		s.opts.Metrics.ObserveTurn(backend, outcomeLabel(err), elapsed)
		s.opts.Logger.Warn("chat turn failed", "session_id", s.id, "backend", backend, "error", err)
		return TurnResult{}, err
	}
	s.state = res.State
	s.updatedAt = s.opts.Now()
	s.transcript = append(history, ChatMessage{Role: ChatRoleAssistant, Content: res.DisplayText, Timestamp: s.updatedAt})
	var snap Snapshot
	complete := s.state.Terminal() && !s.finished
	if complete {
		s.finished = true
		snap = s.snapshotLocked()
	}
	s.mu.Unlock()

	s.opts.Metrics.ObserveTurn(backend, "ok", elapsed)
	s.opts.Logger.Debug("chat turn applied", "session_id", s.id, "step", res.Step, "score", res.Score, "tier", res.Tier)
	if complete {
		s.notify(ctx, snap, false)
	}
	return res, nil
}

// Finish ends the conversation on the caller's request and freezes it as a
// lead. Finishing twice is a no-op.
func (s *Session) Finish(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return Snapshot{}, ErrTurnInProgress
	}
	already := s.finished
	s.finished = true
	s.updatedAt = s.opts.Now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if !already {
		s.notify(ctx, snap, true)
	}
	return snap, nil
}

// Reset starts the conversation over with a fresh state and transcript.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrTurnInProgress
	}
	s.resetLocked(s.opts.Now())
	return nil
}

func (s *Session) resetLocked(now time.Time) {
	s.state = qualify.NewState()
	s.transcript = []ChatMessage{{Role: ChatRoleAssistant, Content: qualify.Greeting(s.language), Timestamp: now}}
	s.updatedAt = now
	s.lastSend = time.Time{}
	s.finished = false
}

// Snapshot returns a deep copy of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:         s.id,
		Language:   s.language,
		Backend:    s.opts.Backend.Name(),
		State:      s.state.Clone(),
		Transcript: slices.Clone(s.transcript),
		CreatedAt:  s.createdAt,
		UpdatedAt:  s.updatedAt,
		Finished:   s.finished,
	}
}

func (s *Session) notify(ctx context.Context, snap Snapshot, forced bool) {
	if s.opts.OnComplete == nil {
		return
	}
	s.opts.OnComplete.OnComplete(ctx, snap, forced)
}

func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, ErrBackendTimeout):
		return "timeout"
	case errors.Is(err, ErrBackendRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	default:
		return "error"
	}
}
