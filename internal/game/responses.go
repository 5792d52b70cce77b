package game

import (
	"strings"
)

// ProcessedResponse is the derived view of one user's answer for one
// category. It is recomputed from the raw responses on demand and never
// persisted.
type ProcessedResponse struct {
	Response    string `json:"response"`
	IsEmpty     bool   `json:"isEmpty"`
	IsDuplicate bool   `json:"isDuplicate"`
}

// Singularizer reduces a single lowercase word to a singular form for
// duplicate comparison. The exact rule is a policy choice; swap it out if
// the naive default mishandles a category's vocabulary.
type Singularizer func(word string) string

// Processor turns raw per-user answers into canonical comparable tokens.
type Processor struct {
	Singularize Singularizer
}

func NewProcessor() Processor {
	return Processor{Singularize: NaiveSingularize}
}

// NaiveSingularize strips a plural suffix: "cities" -> "city",
// "dogs" -> "dog". Words ending in "ss", "us" or "is" are left alone so
// "glass" and "bus" survive. Irregular plurals are not handled.
func NaiveSingularize(word string) string {
	switch {
	case len(word) > 3 && strings.HasSuffix(word, "ies"):
		return word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "ss"), strings.HasSuffix(word, "us"), strings.HasSuffix(word, "is"):
		return word
	case strings.HasSuffix(word, "s"):
		return word[:len(word)-1]
	default:
		return word
	}
}

// Normalize converts a raw answer to its canonical comparable form: trim,
// lowercase, strip everything outside [a-z0-9 ], then singularize each
// word and rejoin with single spaces. Idempotent.
func (p Processor) Normalize(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	var b strings.Builder
	for _, r := range lowered {
		if r == ' ' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	words := strings.Fields(b.String())
	singularize := p.Singularize
	if singularize == nil {
		singularize = NaiveSingularize
	}
	for i, w := range words {
		words[i] = singularize(w)
	}
	return strings.Join(words, " ")
}

// ProcessResponses computes the per-user processed view for one category.
// Every answer sharing a normalized form with another user's answer is
// flagged as a duplicate, the first writer included. Answers empty after
// trimming are never duplicates.
func (p Processor) ProcessResponses(responses map[string][]string, category int) map[string]ProcessedResponse {
	seen := make(map[string]bool)
	duplicates := make(map[string]bool)
	normalized := make(map[string]string, len(responses))

	for uid, slots := range responses {
		var raw string
		if category >= 0 && category < len(slots) {
			raw = slots[category]
		}
		norm := p.Normalize(raw)
		normalized[uid] = norm
		if norm == "" {
			continue
		}
		if seen[norm] {
			duplicates[norm] = true
		}
		seen[norm] = true
	}

	out := make(map[string]ProcessedResponse, len(responses))
	for uid, slots := range responses {
		var raw string
		if category >= 0 && category < len(slots) {
			raw = slots[category]
		}
		trimmed := strings.TrimSpace(raw)
		out[uid] = ProcessedResponse{
			Response:    trimmed,
			IsEmpty:     trimmed == "",
			IsDuplicate: duplicates[normalized[uid]],
		}
	}
	return out
}
