package game

import "testing"

func TestEndRoundTransitions(t *testing.T) {
	next, changed, err := InProgress().EndRound()
	if err != nil || !changed {
		t.Fatalf("inProgress should end into voting: changed=%v err=%v", changed, err)
	}
	if next != Voting(0) {
		t.Fatalf("expected voting[0], got %v", next)
	}

	// Manual end racing the round timer: second call is a no-op.
	next, changed, err = Voting(0).EndRound()
	if err != nil || changed {
		t.Fatalf("ending an ended round must be a silent no-op: changed=%v err=%v", changed, err)
	}
	if next != Voting(0) {
		t.Fatalf("no-op must preserve status, got %v", next)
	}

	for _, terminal := range []Status{Complete(), Abandoned()} {
		if _, _, err := terminal.EndRound(); err != ErrGameOver {
			t.Fatalf("end round from %v should fail with ErrGameOver, got %v", terminal, err)
		}
	}
}

func TestEndVotingAdvancesCategories(t *testing.T) {
	const numCategories = 3

	next, changed, err := Voting(0).EndVoting(numCategories)
	if err != nil || !changed || next != Voting(1) {
		t.Fatalf("voting[0] should advance to voting[1], got %v (changed=%v err=%v)", next, changed, err)
	}
	next, _, err = Voting(1).EndVoting(numCategories)
	if err != nil || next != Voting(2) {
		t.Fatalf("voting[1] should advance to voting[2], got %v (%v)", next, err)
	}
	next, _, err = Voting(2).EndVoting(numCategories)
	if err != nil || next != Complete() {
		t.Fatalf("voting on the last category should complete the game, got %v (%v)", next, err)
	}

	if _, _, err := InProgress().EndVoting(numCategories); err != ErrInvalidTransition {
		t.Fatalf("end voting before the round ends should be rejected, got %v", err)
	}
	if _, _, err := Complete().EndVoting(numCategories); err != ErrGameOver {
		t.Fatalf("end voting after completion should fail with ErrGameOver, got %v", err)
	}
}

func TestAbandon(t *testing.T) {
	for _, from := range []Status{InProgress(), Voting(0), Voting(2)} {
		next, changed, err := from.Abandon()
		if err != nil || !changed || next != Abandoned() {
			t.Fatalf("abandon from %v should succeed, got %v (changed=%v err=%v)", from, next, changed, err)
		}
	}
	for _, terminal := range []Status{Complete(), Abandoned()} {
		if _, _, err := terminal.Abandon(); err != ErrGameOver {
			t.Fatalf("abandon from %v should fail, got %v", terminal, err)
		}
	}
}

func TestTransitionTable(t *testing.T) {
	const numCategories = 3
	cases := []struct {
		from, to Status
		allowed  bool
	}{
		{InProgress(), Voting(0), true},
		{InProgress(), Voting(1), false},
		{InProgress(), Complete(), false},
		{InProgress(), Abandoned(), true},
		{Voting(0), Voting(1), true},
		{Voting(0), Voting(2), false}, // skipping a category
		{Voting(0), Complete(), false},
		{Voting(1), Voting(0), false}, // going backwards
		{Voting(2), Complete(), true},
		{Voting(2), Voting(3), false},
		{Voting(1), Abandoned(), true},
		{Complete(), InProgress(), false},
		{Complete(), Voting(0), false},
		{Complete(), Abandoned(), false},
		{Abandoned(), InProgress(), false},
		{Abandoned(), Complete(), false},
	}
	for _, c := range cases {
		if got := Allowed(c.from, c.to, numCategories); got != c.allowed {
			t.Fatalf("Allowed(%v -> %v) = %v, want %v", c.from, c.to, got, c.allowed)
		}
	}
}

func TestTerminal(t *testing.T) {
	for _, s := range []Status{InProgress(), Voting(0)} {
		if s.Terminal() {
			t.Fatalf("%v should not be terminal", s)
		}
	}
	for _, s := range []Status{Complete(), Abandoned()} {
		if !s.Terminal() {
			t.Fatalf("%v should be terminal", s)
		}
	}
}
