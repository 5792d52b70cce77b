package game

import "sort"

type Vote string

const (
	Upvote   Vote = "upvote"
	Downvote Vote = "downvote"
)

// VoteLedger maps categoryIndex -> responseOwnerId -> voterId -> vote.
// Each voter holds at most one vote per (category, owner) entry; absent
// means no vote.
type VoteLedger map[int]map[string]map[string]Vote

// Score is the net vote score for one user's answer in one category:
// upvotes minus downvotes across all voters.
func (l VoteLedger) Score(category int, ownerID string) int {
	score := 0
	for _, v := range l[category][ownerID] {
		switch v {
		case Upvote:
			score++
		case Downvote:
			score--
		}
	}
	return score
}

// CategoryResult is one cell of the final review table.
type CategoryResult struct {
	Response string `json:"response"`
	Accepted bool   `json:"accepted"`
}

// Result is one user's final outcome: total score plus the per-category
// acceptance breakdown, in category order.
type Result struct {
	Score     int              `json:"score"`
	Responses []CategoryResult `json:"responses"`
}

// Results computes every user's outcome from one full read of the
// response set and vote ledger. An answer is accepted iff it is not empty,
// not a duplicate, and its vote score is non-negative; the final score is
// the count of accepted categories.
func (p Processor) Results(categories []string, responses map[string][]string, votes VoteLedger) map[string]Result {
	processed := make([]map[string]ProcessedResponse, len(categories))
	for i := range categories {
		processed[i] = p.ProcessResponses(responses, i)
	}

	out := make(map[string]Result, len(responses))
	for uid := range responses {
		r := Result{Responses: make([]CategoryResult, len(categories))}
		for i := range categories {
			pr := processed[i][uid]
			accepted := !pr.IsEmpty && !pr.IsDuplicate && votes.Score(i, uid) >= 0
			r.Responses[i] = CategoryResult{Response: pr.Response, Accepted: accepted}
			if accepted {
				r.Score++
			}
		}
		out[uid] = r
	}
	return out
}

// Ranking orders user ids descending by final score, ties broken by id so
// the order is deterministic.
func Ranking(results map[string]Result) []string {
	ids := make([]string, 0, len(results))
	for uid := range results {
		ids = append(ids, uid)
	}
	sort.Slice(ids, func(i, j int) bool {
		si, sj := results[ids[i]].Score, results[ids[j]].Score
		if si != sj {
			return si > sj
		}
		return ids[i] < ids[j]
	})
	return ids
}

// Winners is the set of users achieving the maximum score, for tie
// handling in the review view. Empty results produce no winners.
func Winners(results map[string]Result) []string {
	ranked := Ranking(results)
	if len(ranked) == 0 {
		return nil
	}
	top := results[ranked[0]].Score
	var winners []string
	for _, uid := range ranked {
		if results[uid].Score != top {
			break
		}
		winners = append(winners, uid)
	}
	return winners
}
