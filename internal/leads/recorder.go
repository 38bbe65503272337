package leads

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/observability/metrics"
	"github.com/totalhomes/lead-qualifier/pkg/logging"
)

const defaultFanoutTimeout = 15 * time.Second

// Publisher announces a finished lead to downstream systems.
type Publisher interface {
	Publish(ctx context.Context, rec *LeadRecord) error
}

// Notifier alerts people about a finished lead. Implementations decide
// whether the lead is worth an alert.
type Notifier interface {
	NotifyLead(ctx context.Context, rec *LeadRecord) error
}

// TranscriptAppender receives the message log of a finished lead.
type TranscriptAppender interface {
	Append(ctx context.Context, leadID string, messages []conversation.ChatMessage) error
}

// RecorderOptions wires the optional sinks of a Recorder.
type RecorderOptions struct {
	Transcripts TranscriptAppender
	Publisher   Publisher
	Notifier    Notifier
	Metrics     *metrics.QualifierMetrics
	Logger      *logging.Logger
	Timeout     time.Duration
	Now         func() time.Time
}

// Recorder turns finished sessions into lead records and fans them out off
// the request path. Every sink is best effort: failures are logged and never
// reach the conversation.
type Recorder struct {
	repo Repository
	opts RecorderOptions
	wg   sync.WaitGroup
}

var _ conversation.CompletionHandler = (*Recorder)(nil)

func NewRecorder(repo Repository, opts RecorderOptions) *Recorder {
	if repo == nil {
		panic("leads: repository required")
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultFanoutTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Recorder{repo: repo, opts: opts}
}

// OnComplete freezes the snapshot and hands it to the background fan-out.
func (r *Recorder) OnComplete(ctx context.Context, snap conversation.Snapshot, forced bool) {
	rec := NewLeadRecord(snap, forced, r.opts.Now())
	r.opts.Metrics.ObserveLeadCompleted(strconv.Itoa(rec.Tier), string(rec.Status))
	r.opts.Logger.Info("lead completed",
		"lead_id", rec.ID,
		"session_id", rec.SessionID,
		"status", rec.Status,
		"score", rec.Score,
		"tier", rec.Tier,
		"forced", forced,
	)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		fanoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.opts.Timeout)
		defer cancel()
		r.Record(fanoutCtx, rec)
	}()
}

// Record saves rec, then sends it to the other sinks.
// A record that fails validation goes nowhere.
func (r *Recorder) Record(ctx context.Context, rec *LeadRecord) {
	logger := r.opts.Logger.With("lead_id", rec.ID)

	if _, err := r.repo.Save(ctx, rec); err != nil {
		r.opts.Metrics.ObserveFanoutError("repository")
		if errors.Is(err, ErrInvalidLead) {
			logger.Error("lead rejected by schema check", "error", err)
			return
		}
		logger.Error("failed to save lead", "error", err)
	}

	if r.opts.Transcripts != nil {
		if err := r.opts.Transcripts.Append(ctx, rec.ID, rec.Transcript); err != nil {
			r.opts.Metrics.ObserveFanoutError("transcripts")
			logger.Warn("failed to append lead transcript", "error", err)
		}
	}
	if r.opts.Publisher != nil {
		if err := r.opts.Publisher.Publish(ctx, rec); err != nil {
			r.opts.Metrics.ObserveFanoutError("publisher")
			logger.Warn("failed to publish lead event", "error", err)
		}
	}
	if r.opts.Notifier != nil {
		if err := r.opts.Notifier.NotifyLead(ctx, rec); err != nil {
			r.opts.Metrics.ObserveFanoutError("notifier")
			logger.Warn("failed to notify hot lead", "error", err)
		}
	}
}

// Wait blocks until every pending fan-out finished. Call it on shutdown.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
