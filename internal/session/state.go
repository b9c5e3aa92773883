// Package session holds the state of a portfolio health check and the
// workflow that moves it between idle, busy, success and failure.
//
// A State is never modified in place. Every transition goes through Reduce,
// which returns a new value that replaces the previous one wholesale.
package session

import (
	"time"

	"github.com/newthinker/folio/internal/core"
	"github.com/shopspring/decimal"
)

// Phase is the observable phase of a session.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseBusy    Phase = "busy"
	PhaseSuccess Phase = "success"
	PhaseFailure Phase = "failure"
)

// State is an immutable snapshot of one session.
// Results must be treated as read-only by callers.
type State struct {
	Input   string           `json:"input"`
	Results []core.Score     `json:"results"`
	Average *decimal.Decimal `json:"average,omitempty"`
	Err     string           `json:"error,omitempty"`
	Busy    bool             `json:"busy"`

	// Seq is the sequence number of the most recently issued request.
	// Settled is the sequence number whose outcome the snapshot shows.
	Seq       uint64    `json:"seq"`
	Settled   uint64    `json:"settled"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Phase derives the phase from the snapshot fields.
func (s State) Phase() Phase {
	switch {
	case s.Busy:
		return PhaseBusy
	case s.Err != "":
		return PhaseFailure
	case s.Average != nil:
		return PhaseSuccess
	default:
		return PhaseIdle
	}
}

// HasResults reports whether a successful response is displayed.
func (s State) HasResults() bool {
	return s.Average != nil
}

// Event is a session transition request.
type Event interface {
	seq() uint64
}

// Submitted starts a new request.
type Submitted struct {
	Seq   uint64
	Input string
	At    time.Time
}

// Succeeded settles a request with a parsed report.
type Succeeded struct {
	Seq    uint64
	Report *core.Report
	At     time.Time
}

// Failed settles a request with the user-facing advisory.
type Failed struct {
	Seq     uint64
	Message string
	At      time.Time
}

func (e Submitted) seq() uint64 { return e.Seq }
func (e Succeeded) seq() uint64 { return e.Seq }
func (e Failed) seq() uint64    { return e.Seq }

// IsStale reports whether ev refers to a request other than the latest issued one.
// Stale events leave the state untouched under Reduce.
func IsStale(s State, ev Event) bool {
	if sub, ok := ev.(Submitted); ok {
		return sub.Seq <= s.Seq
	}
	return ev.seq() != s.Seq || !s.Busy
}

// Reduce returns the state that follows s after ev.
func Reduce(s State, ev Event) State {
	if IsStale(s, ev) {
		return s
	}

	switch e := ev.(type) {
	case Submitted:
		// Results, average and error are cleared before the call is issued.
		return State{
			Input:     e.Input,
			Results:   []core.Score{},
			Busy:      true,
			Seq:       e.Seq,
			Settled:   s.Settled,
			UpdatedAt: e.At,
		}

	case Succeeded:
		next := State{
			Input:     s.Input,
			Results:   []core.Score{},
			Seq:       s.Seq,
			Settled:   e.Seq,
			UpdatedAt: e.At,
		}
		if e.Report != nil {
			next.Results = append(next.Results, e.Report.Scores...)
			avg := e.Report.Average
			next.Average = &avg
		}
		return next

	case Failed:
		return State{
			Input:     s.Input,
			Results:   []core.Score{},
			Err:       e.Message,
			Seq:       s.Seq,
			Settled:   e.Seq,
			UpdatedAt: e.At,
		}
	}

	return s
}
