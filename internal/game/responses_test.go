package game

import "testing"

func TestNormalize(t *testing.T) {
	p := NewProcessor()
	cases := []struct {
		raw  string
		want string
	}{
		{"Dog", "dog"},
		{"  Dog  ", "dog"},
		{"DOGS", "dog"},
		{"New   York!", "new york"},
		{"cities", "city"},
		{"glass", "glass"},
		{"bus", "bus"},
		{"tennis", "tennis"},
		{"", ""},
		{"   ", ""},
		{"!?#", ""},
		{"Route 66", "route 66"},
	}
	for _, c := range cases {
		if got := p.Normalize(c.raw); got != c.want {
			t.Fatalf("Normalize(%q) = %q, want %q", c.raw, got, c.want)
		}
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	p := NewProcessor()
	inputs := []string{"Dogs", "  Fancy   Glasses ", "berries", "New York Cities", "bus stops", "Ã¼ber-cool!"}
	for _, in := range inputs {
		once := p.Normalize(in)
		if twice := p.Normalize(once); twice != once {
			t.Fatalf("Normalize not idempotent for %q: %q -> %q", in, once, twice)
		}
	}
}

func TestProcessResponsesNoOverlap(t *testing.T) {
	p := NewProcessor()
	responses := map[string][]string{
		"a": {"Dog"},
		"b": {"Cat"},
		"c": {"Ferret"},
	}
	for uid, pr := range p.ProcessResponses(responses, 0) {
		if pr.IsDuplicate {
			t.Fatalf("user %s flagged duplicate with no overlap", uid)
		}
	}
}

func TestProcessResponsesFlagsAllDuplicates(t *testing.T) {
	p := NewProcessor()
	responses := map[string][]string{
		"a": {"Dog"},
		"b": {"Dog "},
		"c": {"dogs"},
		"d": {"Cat"},
	}
	got := p.ProcessResponses(responses, 0)
	for _, uid := range []string{"a", "b", "c"} {
		if !got[uid].IsDuplicate {
			t.Fatalf("user %s should be flagged duplicate, first writer included", uid)
		}
	}
	if got["d"].IsDuplicate {
		t.Fatal("non-matching answer flagged duplicate")
	}
}

func TestProcessResponsesEmptyNeverDuplicate(t *testing.T) {
	p := NewProcessor()
	responses := map[string][]string{
		"a": {""},
		"b": {"   "},
		"c": {"Dog"},
	}
	got := p.ProcessResponses(responses, 0)
	for _, uid := range []string{"a", "b"} {
		pr := got[uid]
		if !pr.IsEmpty {
			t.Fatalf("user %s should be empty", uid)
		}
		if pr.IsDuplicate {
			t.Fatalf("empty answer for %s must never be a duplicate", uid)
		}
	}
	if got["c"].IsEmpty || got["c"].IsDuplicate {
		t.Fatal("real answer should be neither empty nor duplicate")
	}
}

func TestProcessResponsesScenario(t *testing.T) {
	// categories = [Animal, Color, City]; category 0 answers.
	p := NewProcessor()
	responses := map[string][]string{
		"A": {"Dog", "Red", "Paris"},
		"B": {"Dog ", "Blue", "Berlin"},
		"C": {"", "Green", "Madrid"},
	}
	got := p.ProcessResponses(responses, 0)
	if !got["A"].IsDuplicate || !got["B"].IsDuplicate {
		t.Fatal("A and B should both be marked duplicate")
	}
	if !got["C"].IsEmpty {
		t.Fatal("C should be marked empty")
	}
	if got["B"].Response != "Dog" {
		t.Fatalf("response should be trimmed raw text, got %q", got["B"].Response)
	}
}

func TestProcessResponsesMissingSlot(t *testing.T) {
	p := NewProcessor()
	responses := map[string][]string{
		"a": {"Dog"},
		"b": {}, // never answered anything
	}
	got := p.ProcessResponses(responses, 0)
	if !got["b"].IsEmpty {
		t.Fatal("missing slot should read as empty")
	}
}

func TestCustomSingularizer(t *testing.T) {
	identity := func(w string) string { return w }
	p := Processor{Singularize: identity}
	got := p.ProcessResponses(map[string][]string{
		"a": {"dog"},
		"b": {"dogs"},
	}, 0)
	if got["a"].IsDuplicate || got["b"].IsDuplicate {
		t.Fatal("identity singularizer should keep dog and dogs distinct")
	}
}
