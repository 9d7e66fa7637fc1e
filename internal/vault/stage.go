package vault

import (
	"fmt"
	"time"
)

// Stage is a step of the transaction lifecycle.
type Stage int

const (
	StageBuilding Stage = iota
	StageDecoded
	StageSigned
	StageSubmitted
	StageAwaitingReveal
	StageRevealSubmitted
	StageConfirmed
	StageFailed
)

var stageNames = [...]string{
	StageBuilding:        "building",
	StageDecoded:         "decoded",
	StageSigned:          "signed",
	StageSubmitted:       "submitted",
	StageAwaitingReveal:  "awaiting_reveal",
	StageRevealSubmitted: "reveal_submitted",
	StageConfirmed:       "confirmed",
	StageFailed:          "failed",
}

// String returns the stage name.
func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s Stage) Terminal() bool {
	return s == StageConfirmed || s == StageFailed
}

// transitions lists the legal next stages. Any non-terminal stage may fail.
var transitions = map[Stage][]Stage{
	StageBuilding:        {StageDecoded},
	StageDecoded:         {StageSigned},
	StageSigned:          {StageSubmitted},
	StageSubmitted:       {StageConfirmed, StageAwaitingReveal},
	StageAwaitingReveal:  {StageRevealSubmitted},
	StageRevealSubmitted: {StageConfirmed},
}

// Transition is one recorded stage change.
type Transition struct {
	From Stage
	To   Stage
	At   time.Time
	Err  error
}

// Lifecycle tracks the stage of one send flow. Not safe for concurrent use.
type Lifecycle struct {
	stage   Stage
	history []Transition
	now     func() time.Time
}

// NewLifecycle starts a lifecycle in StageBuilding.
func NewLifecycle() *Lifecycle {
	return &Lifecycle{stage: StageBuilding, now: time.Now}
}

// Stage returns the current stage.
func (l *Lifecycle) Stage() Stage { return l.stage }

// History returns the recorded transitions.
func (l *Lifecycle) History() []Transition {
	return append([]Transition(nil), l.history...)
}

// Advance moves to next if the transition is legal.
func (l *Lifecycle) Advance(next Stage) error {
	if l.stage.Terminal() {
		return fmt.Errorf("lifecycle: already %s", l.stage)
	}
	for _, s := range transitions[l.stage] {
		if s == next {
			l.record(next, nil)
			return nil
		}
	}
	return fmt.Errorf("lifecycle: %s -> %s not allowed", l.stage, next)
}

// Fail moves to StageFailed, recording cause. It returns cause so callers
// can write `return l.Fail(err)`.
func (l *Lifecycle) Fail(cause error) error {
	if !l.stage.Terminal() {
		l.record(StageFailed, cause)
	}
	return cause
}

func (l *Lifecycle) record(next Stage, err error) {
	l.history = append(l.history, Transition{From: l.stage, To: next, At: l.now(), Err: err})
	l.stage = next
}
