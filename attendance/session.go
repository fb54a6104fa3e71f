package attendance

import (
	"time"

	"github.com/warp/attendance-engine/generic"
)

// =============================================================================
// SESSION - Reconstructed IN -> OUT interval
// =============================================================================

// Session is rebuilt from punches and never persisted on its own. A session is
// complete only when an IN was matched with a qualifying OUT.
type Session struct {
	InAt       time.Time
	OutAt      *time.Time
	InPunchID  generic.PunchID
	OutPunchID *generic.PunchID
	IsComplete bool
}

// Range returns the worked interval of a complete session.
func (s Session) Range() (generic.TimeRange, bool) {
	if !s.IsComplete || s.OutAt == nil {
		return generic.TimeRange{}, false
	}
	return generic.NewTimeRange(s.InAt, *s.OutAt)
}

// SessionResult is everything the reconstructor learned from the stream.
type SessionResult struct {
	Sessions                    []Session
	OutWithoutInTimes           []time.Time
	InWithoutOutTimes           []time.Time
	MissingOutBeforeNextInTimes []time.Time
}

// CompleteSessions returns the worked ranges of every complete session.
func (r SessionResult) CompleteSessions() []generic.TimeRange {
	var ranges []generic.TimeRange
	for _, s := range r.Sessions {
		if sr, ok := s.Range(); ok {
			ranges = append(ranges, sr)
		}
	}
	return ranges
}

// =============================================================================
// RECONSTRUCTOR - Two-state machine
// =============================================================================

type sessionState int

const (
	stateIdle sessionState = iota // no open session
	stateOpen                     // an IN is waiting for its OUT
)

// SessionParams are the thresholds the state machine needs.
type SessionParams struct {
	MinGapMinutesToAllowCheckout int
	MissingPairGapMinutes        int
}

type reconstructor struct {
	params SessionParams
	state  sessionState
	open   Session
	result SessionResult
}

// ReconstructSessions replays the usable (non-duplicate, chronologically
// sorted) punches through the state machine.
func ReconstructSessions(usable []Punch, params SessionParams) SessionResult {
	r := &reconstructor{params: params, state: stateIdle}
	for _, p := range usable {
		r.feed(p)
	}
	r.finish()
	return r.result
}

func (r *reconstructor) feed(p Punch) {
	switch r.state {
	case stateIdle:
		switch p.Type {
		case PunchIn:
			r.openSession(p)
		case PunchOut:
			r.result.OutWithoutInTimes = append(r.result.OutWithoutInTimes, p.At)
		}

	case stateOpen:
		switch p.Type {
		case PunchIn:
			if generic.AbsDiffMinutes(r.open.InAt, p.At) >= r.params.MissingPairGapMinutes {
				r.result.MissingOutBeforeNextInTimes = append(r.result.MissingOutBeforeNextInTimes, p.At)
			}
			r.abandonOpen()
			r.openSession(p)
		case PunchOut:
			// An OUT right after the IN is an accidental re-punch; keep waiting.
			if generic.DiffMinutes(r.open.InAt, p.At) < r.params.MinGapMinutesToAllowCheckout {
				return
			}
			r.closeSession(p)
		}
	}
}

func (r *reconstructor) openSession(p Punch) {
	r.open = Session{InAt: p.At, InPunchID: p.ID}
	r.state = stateOpen
}

func (r *reconstructor) closeSession(p Punch) {
	out, outID := p.At, p.ID
	r.open.OutAt = &out
	r.open.OutPunchID = &outID
	r.open.IsComplete = true
	r.result.Sessions = append(r.result.Sessions, r.open)
	r.open = Session{}
	r.state = stateIdle
}

// abandonOpen records the open session as a dangling IN.
func (r *reconstructor) abandonOpen() {
	r.result.InWithoutOutTimes = append(r.result.InWithoutOutTimes, r.open.InAt)
	r.open.IsComplete = false
	r.result.Sessions = append(r.result.Sessions, r.open)
	r.open = Session{}
	r.state = stateIdle
}

func (r *reconstructor) finish() {
	switch r.state {
	case stateOpen:
		r.abandonOpen()
	case stateIdle:
	}
}
