package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/folio/internal/core"
	"go.uber.org/zap"
)

// Outcome labels reported to a Recorder.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

// Fetcher performs the single network call of a check.
type Fetcher interface {
	Fetch(ctx context.Context, holdings string) (*core.Report, error)
}

// Recorder receives check telemetry.
type Recorder interface {
	CheckStarted()
	CheckFinished(outcome string, duration time.Duration)
}

// Archiver receives every settled check.
type Archiver interface {
	Archive(ctx context.Context, c Check) error
}

// Check describes one settled request.
type Check struct {
	ID         string    `json:"id"`
	SessionID  string    `json:"session_id"`
	Seq        uint64    `json:"seq"`
	Outcome    string    `json:"outcome"`
	State      State     `json:"state"`
	Cause      string    `json:"cause,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Options configures a Workflow. Zero values are usable.
type Options struct {
	ID             string
	FailureMessage string
	Logger         *zap.Logger
	Recorder       Recorder
	Archiver       Archiver
	Now            func() time.Time
}

// DefaultFailureMessage is used when Options.FailureMessage is empty.
const DefaultFailureMessage = "Unable to fetch portfolio health score. Please try again."

// Workflow owns one session and turns each submit into exactly one fetch.
//
// dispatch is the only place the snapshot is replaced. Submits may overlap;
// none cancels another's request. Only the outcome of the most recently
// issued request is applied, older outcomes are dropped as stale.
type Workflow struct {
	id       string
	fetcher  Fetcher
	message  string
	logger   *zap.Logger
	recorder Recorder
	archiver Archiver
	now      func() time.Time

	mu          sync.Mutex
	state       State
	subscribers map[int]chan State
	nextSubID   int
}

// NewWorkflow creates a workflow in the idle state.
func NewWorkflow(fetcher Fetcher, opts Options) *Workflow {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if opts.FailureMessage == "" {
		opts.FailureMessage = DefaultFailureMessage
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Workflow{
		id:          opts.ID,
		fetcher:     fetcher,
		message:     opts.FailureMessage,
		logger:      opts.Logger.With(zap.String("session", opts.ID)),
		recorder:    opts.Recorder,
		archiver:    opts.Archiver,
		now:         opts.Now,
		state:       State{Results: []core.Score{}, UpdatedAt: opts.Now()},
		subscribers: make(map[int]chan State),
	}
}

// ID returns the session id.
func (w *Workflow) ID() string {
	return w.id
}

// Snapshot returns the current state.
func (w *Workflow) Snapshot() State {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.state
}

// Subscribe returns a channel that always holds the newest snapshot not yet
// received. Intermediate snapshots may be skipped by slow readers.
func (w *Workflow) Subscribe() (<-chan State, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextSubID
	w.nextSubID++
	ch := make(chan State, 1)
	w.subscribers[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subscribers, id)
		})
	}
	return ch, cancel
}

// Submit runs one check for input and returns the snapshot once the session
// is no longer busy. When a newer submit overtook this one, that means waiting
// for the newer request too, so the returned snapshot shows its outcome.
// If ctx ends first, the current snapshot is returned.
func (w *Workflow) Submit(ctx context.Context, input string) State {
	<-w.Start(ctx, input)
	s, _ := w.WaitIdle(ctx)
	return s
}

// WaitIdle blocks until the session is not busy and returns that snapshot.
func (w *Workflow) WaitIdle(ctx context.Context) (State, error) {
	updates, cancel := w.Subscribe()
	defer cancel()

	s := w.Snapshot()
	for s.Busy {
		select {
		case s = <-updates:
		case <-ctx.Done():
			return w.Snapshot(), ctx.Err()
		}
	}
	return s, nil
}

// Start moves the session to busy before returning, then performs the fetch
// in the background. The returned channel yields the snapshot after settle.
// The input is passed to the fetcher unchanged. Busy is released on every
// exit path, including a panicking fetcher.
func (w *Workflow) Start(ctx context.Context, input string) <-chan State {
	started := w.now()
	seq := w.begin(input, started)

	if w.recorder != nil {
		w.recorder.CheckStarted()
	}
	w.logger.Debug("check started", zap.Uint64("seq", seq), zap.String("input", input))

	done := make(chan State, 1)
	go func() {
		var (
			report *core.Report
			err    error
		)
		defer func() {
			if r := recover(); r != nil {
				report, err = nil, fmt.Errorf("fetcher panic: %v", r)
			}
			done <- w.settle(ctx, seq, input, started, report, err)
		}()

		report, err = w.fetcher.Fetch(ctx, input)
		if err == nil && report == nil {
			err = core.WrapError(core.ErrMalformedResponse, fmt.Errorf("empty report"))
		}
	}()
	return done
}

// begin allocates the next sequence number and moves to busy in one step.
func (w *Workflow) begin(input string, at time.Time) uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()

	seq := w.state.Seq + 1
	w.applyLocked(Submitted{Seq: seq, Input: input, At: at})
	return seq
}

func (w *Workflow) settle(ctx context.Context, seq uint64, input string, started time.Time, report *core.Report, err error) State {
	finished := w.now()

	var ev Event
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
		ev = Failed{Seq: seq, Message: w.message, At: finished}
	} else {
		ev = Succeeded{Seq: seq, Report: report, At: finished}
	}

	next, applied := w.dispatch(ev)
	if !applied {
		outcome = OutcomeStale
	}

	switch outcome {
	case OutcomeSuccess:
		w.logger.Info("check succeeded",
			zap.Uint64("seq", seq),
			zap.Int("symbols", len(next.Results)),
			zap.String("average", next.Average.String()),
		)
	case OutcomeFailure:
		w.logger.Warn("check failed", zap.Uint64("seq", seq), zap.Error(err))
	case OutcomeStale:
		w.logger.Info("discarding stale response",
			zap.Uint64("seq", seq),
			zap.Uint64("latest", next.Seq),
			zap.NamedError("cause", err),
		)
	}

	if w.recorder != nil {
		w.recorder.CheckFinished(outcome, finished.Sub(started))
	}

	if w.archiver != nil {
		// The record shows this request's own outcome, even when a newer
		// request owns the session snapshot.
		own := Reduce(State{Input: input, Busy: true, Seq: seq, UpdatedAt: started}, ev)
		c := Check{
			ID:         uuid.NewString(),
			SessionID:  w.id,
			Seq:        seq,
			Outcome:    outcome,
			State:      own,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if err != nil {
			c.Cause = err.Error()
		}
		if aerr := w.archiver.Archive(context.WithoutCancel(ctx), c); aerr != nil {
			w.logger.Error("archiving check", zap.Uint64("seq", seq), zap.Error(aerr))
		}
	}

	return next
}

// dispatch applies ev and reports whether it changed the session.
func (w *Workflow) dispatch(ev Event) (State, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if IsStale(w.state, ev) {
		return w.state, false
	}
	w.applyLocked(ev)
	return w.state, true
}

func (w *Workflow) applyLocked(ev Event) {
	w.state = Reduce(w.state, ev)
	for _, ch := range w.subscribers {
		// Keep only the newest snapshot in the buffer.
		select {
		case <-ch:
		default:
		}
		ch <- w.state
	}
}
