package game

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/vsiao/sprintergories/internal/tree"
)

var (
	ErrGameNotFound       = errors.New("game not found")
	ErrCategoryOutOfRange = errors.New("category index out of range")
	ErrNotCollecting      = errors.New("round is not in progress")
	ErrNotVoting          = errors.New("category is not open for voting")
	ErrOwnVote            = errors.New("cannot vote on own response")
)

// GameOptions are fixed when the host starts the game.
type GameOptions struct {
	TimeLimitMs int64  `json:"timeLimitMs"`
	Letter      string `json:"letter"`
}

// Game is the immutable round document plus its mutable status.
type Game struct {
	RoomID     string      `json:"roomId"`
	StartedAt  int64       `json:"startedAt"`
	Options    GameOptions `json:"options"`
	Categories []string    `json:"categories"`
	Status     Status      `json:"status"`
}

// Deadline is the instant the answer timer expires.
func (g *Game) Deadline() time.Time {
	return time.UnixMilli(g.StartedAt + g.Options.TimeLimitMs)
}

func StatePath(roomID, gameID string) string {
	return fmt.Sprintf("rooms/%s/games/%s/state", roomID, gameID)
}

func statusPath(roomID, gameID string) string {
	return StatePath(roomID, gameID) + "/status"
}

func responsesPath(roomID, gameID string) string {
	return fmt.Sprintf("rooms/%s/games/%s/responses", roomID, gameID)
}

func votePath(roomID, gameID string, category int, ownerID string) string {
	return fmt.Sprintf("rooms/%s/games/%s/votes/%d/%s", roomID, gameID, category, ownerID)
}

// Session operates on one game's documents in the tree store. Host-only
// gating of lifecycle calls is the caller's responsibility; the session
// only refuses transitions the status machine itself forbids.
type Session struct {
	Store     *tree.Store
	RoomID    string
	GameID    string
	Processor Processor
}

func NewSession(store *tree.Store, roomID, gameID string) *Session {
	return &Session{Store: store, RoomID: roomID, GameID: gameID, Processor: NewProcessor()}
}

// State returns the game document, or nil if the path has not been
// populated yet (a transiently stale read, not an error).
func (s *Session) State() (*Game, error) {
	val := s.Store.Get(StatePath(s.RoomID, s.GameID))
	if val == nil {
		return nil, nil
	}
	var g Game
	if err := tree.Decode(val, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// transition applies fn to the status leaf atomically. fn mirrors the
// Status methods: new status, whether anything changed, error.
func (s *Session) transition(fn func(Status) (Status, bool, error)) error {
	var terr error
	s.Store.Transact(statusPath(s.RoomID, s.GameID), func(cur any) (any, bool) {
		if cur == nil {
			terr = ErrGameNotFound
			return nil, false
		}
		var st Status
		if err := tree.Decode(cur, &st); err != nil {
			terr = err
			return nil, false
		}
		next, changed, err := fn(st)
		if err != nil {
			terr = err
			return nil, false
		}
		if !changed {
			return nil, false
		}
		return tree.Encode(next), true
	})
	return terr
}

// EndRound moves the game into voting on the first category. Safe to call
// from both the host's button and the round timer; whichever lands second
// is a no-op.
func (s *Session) EndRound() error {
	return s.transition(Status.EndRound)
}

// EndVoting closes the current voting category, completing the game when
// the last category is done.
func (s *Session) EndVoting() error {
	g, err := s.State()
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}
	n := len(g.Categories)
	return s.transition(func(st Status) (Status, bool, error) {
		return st.EndVoting(n)
	})
}

// Abandon ends the game early and clears the room's current game pointer
// so the lobby becomes startable again.
func (s *Session) Abandon() error {
	if err := s.transition(Status.Abandon); err != nil {
		return err
	}
	s.Store.Set(fmt.Sprintf("rooms/%s/state/currentGameId", s.RoomID), nil)
	return nil
}

// SubmitResponse overwrites the caller's answer slot for one category.
// Only the answering user writes its own slots, so no transaction is
// needed.
func (s *Session) SubmitResponse(userID string, category int, text string) error {
	g, err := s.State()
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}
	if g.Status.Kind != KindInProgress {
		return ErrNotCollecting
	}
	if category < 0 || category >= len(g.Categories) {
		return ErrCategoryOutOfRange
	}
	path := fmt.Sprintf("%s/%s/%d", responsesPath(s.RoomID, s.GameID), userID, category)
	s.Store.Set(path, text)
	return nil
}

// Responses reads the full response set as ordered slots per user. Slots
// the user never wrote are empty strings.
func (s *Session) Responses() (map[string][]string, error) {
	g, err := s.State()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	var raw map[string]map[string]string
	if err := tree.Decode(s.Store.Get(responsesPath(s.RoomID, s.GameID)), &raw); err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(raw))
	for uid, slots := range raw {
		ordered := make([]string, len(g.Categories))
		for key, text := range slots {
			i, err := strconv.Atoi(key)
			if err != nil || i < 0 || i >= len(ordered) {
				continue
			}
			ordered[i] = text
		}
		out[uid] = ordered
	}
	return out, nil
}

// CastVote toggles the voter's vote on another user's response for the
// category currently open for voting. Voting the same way twice clears
// the vote; voting the other way replaces it.
func (s *Session) CastVote(voterID, ownerID string, category int, vote Vote) error {
	if voterID == ownerID {
		return ErrOwnVote
	}
	if vote != Upvote && vote != Downvote {
		return fmt.Errorf("unknown vote value %q", vote)
	}
	g, err := s.State()
	if err != nil {
		return err
	}
	if g == nil {
		return ErrGameNotFound
	}
	if g.Status.Kind != KindVoting || g.Status.Category != category {
		return ErrNotVoting
	}
	path := votePath(s.RoomID, s.GameID, category, ownerID) + "/" + voterID
	s.Store.Transact(path, func(cur any) (any, bool) {
		if existing, ok := cur.(string); ok && existing == string(vote) {
			return nil, true // toggle off
		}
		return string(vote), true
	})
	return nil
}

// Votes reads the full vote ledger.
func (s *Session) Votes() (VoteLedger, error) {
	var raw map[string]map[string]map[string]string
	path := fmt.Sprintf("rooms/%s/games/%s/votes", s.RoomID, s.GameID)
	if err := tree.Decode(s.Store.Get(path), &raw); err != nil {
		return nil, err
	}
	ledger := make(VoteLedger, len(raw))
	for key, byOwner := range raw {
		i, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		ledger[i] = make(map[string]map[string]Vote, len(byOwner))
		for owner, byVoter := range byOwner {
			ledger[i][owner] = make(map[string]Vote, len(byVoter))
			for voter, v := range byVoter {
				ledger[i][owner][voter] = Vote(v)
			}
		}
	}
	return ledger, nil
}

// ProcessCategory is the derived voting view for one category, keyed by
// response owner.
func (s *Session) ProcessCategory(category int) (map[string]ProcessedResponse, error) {
	responses, err := s.Responses()
	if err != nil {
		return nil, err
	}
	return s.Processor.ProcessResponses(responses, category), nil
}

// Results computes the final per-user outcome from one full read of the
// response set and vote ledger.
func (s *Session) Results() (map[string]Result, error) {
	g, err := s.State()
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, ErrGameNotFound
	}
	responses, err := s.Responses()
	if err != nil {
		return nil, err
	}
	votes, err := s.Votes()
	if err != nil {
		return nil, err
	}
	return s.Processor.Results(g.Categories, responses, votes), nil
}
