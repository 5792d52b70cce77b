package game

import (
	"errors"
	"fmt"
)

var (
	ErrGameOver          = errors.New("game already finished")
	ErrInvalidTransition = errors.New("invalid status transition")
)

type StatusKind string

const (
	KindInProgress StatusKind = "inProgress"
	KindVoting     StatusKind = "voting"
	KindComplete   StatusKind = "complete"
	KindAbandoned  StatusKind = "abandoned"
)

// Status is the game's tagged status variant. Category is meaningful only
// when Kind is KindVoting; it is the index currently being adjudicated.
type Status struct {
	Kind     StatusKind `json:"kind"`
	Category int        `json:"category,omitempty"`
}

func InProgress() Status  { return Status{Kind: KindInProgress} }
func Voting(i int) Status { return Status{Kind: KindVoting, Category: i} }
func Complete() Status    { return Status{Kind: KindComplete} }
func Abandoned() Status   { return Status{Kind: KindAbandoned} }

// Terminal reports whether the game has ended; terminal statuses have no
// outgoing transitions besides returning the room to the lobby.
func (s Status) Terminal() bool {
	return s.Kind == KindComplete || s.Kind == KindAbandoned
}

func (s Status) String() string {
	if s.Kind == KindVoting {
		return fmt.Sprintf("voting[%d]", s.Category)
	}
	return string(s.Kind)
}

// EndRound is the "end round" transition: inProgress moves to voting on
// category 0. Ending an already-ended round (manual end racing the round
// timer) is a no-op that reports no change.
func (s Status) EndRound() (Status, bool, error) {
	switch s.Kind {
	case KindInProgress:
		return Voting(0), true, nil
	case KindVoting:
		return s, false, nil
	default:
		return s, false, ErrGameOver
	}
}

// EndVoting closes voting on the current category: voting{i} moves to
// voting{i+1}, or to complete from the last category.
func (s Status) EndVoting(numCategories int) (Status, bool, error) {
	if s.Kind != KindVoting {
		if s.Terminal() {
			return s, false, ErrGameOver
		}
		return s, false, ErrInvalidTransition
	}
	if s.Category >= numCategories-1 {
		return Complete(), true, nil
	}
	return Voting(s.Category + 1), true, nil
}

// Abandon ends the game early from any non-terminal status.
func (s Status) Abandon() (Status, bool, error) {
	if s.Terminal() {
		return s, false, ErrGameOver
	}
	return Abandoned(), true, nil
}

// Allowed is the transition table: it reports whether moving from one
// status directly to another is legal for a game with numCategories
// categories. Used to refuse out-of-order writes before they happen.
func Allowed(from, to Status, numCategories int) bool {
	switch from.Kind {
	case KindInProgress:
		return to == Voting(0) || to == Abandoned()
	case KindVoting:
		if to == Abandoned() {
			return true
		}
		if from.Category == numCategories-1 {
			return to == Complete()
		}
		return to == Voting(from.Category+1)
	default:
		return false
	}
}
