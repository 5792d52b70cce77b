package room

import (
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/vsiao/sprintergories/internal/game"
	"github.com/vsiao/sprintergories/internal/tree"
)

var (
	ErrRoomNotFound  = errors.New("room not found")
	ErrGameActive    = errors.New("a game is already in progress")
	ErrGameNotOver   = errors.New("game has not finished")
	ErrUnknownOption = errors.New("unknown room option")
)

// Coordinator owns room lifecycle. Host-only preconditions on its
// mutating calls are checked by the transport against the elected host;
// the coordinator itself only enforces lifecycle legality.
type Coordinator struct {
	Store *tree.Store
	Pool  []string
	Rand  *rand.Rand
}

func NewCoordinator(store *tree.Store) *Coordinator {
	return &Coordinator{Store: store, Pool: DefaultPool}
}

func (c *Coordinator) rnd() *rand.Rand {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.New(rand.NewSource(c.Store.NowMillis()))
}

// EnsureRoom initializes the room document if it does not exist yet.
// Runs as a compare-and-swap so concurrent first-joiners converge on a
// single default document instead of clobbering each other.
func (c *Coordinator) EnsureRoom(roomID string) {
	created := c.Store.Transact(StatePath(roomID), func(cur any) (any, bool) {
		if cur != nil {
			return nil, false
		}
		return map[string]any{
			"id":        roomID,
			"createdAt": tree.ServerTimestamp,
			"status":    "lobby",
			"options": map[string]any{
				"timeLimit":      DefaultOptions().TimeLimit,
				"numCategories":  DefaultOptions().NumCategories,
				"letterOverride": DefaultOptions().LetterOverride,
			},
		}, true
	})
	if created {
		log.Info().Str("roomId", roomID).Msg("room created")
	}
}

// Room reads the room document; nil means not ready yet.
func (c *Coordinator) Room(roomID string) (*Room, error) {
	val := c.Store.Get(StatePath(roomID))
	if val == nil {
		return nil, nil
	}
	var r Room
	if err := tree.Decode(val, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// SetOption writes one lobby option field. Legal only before a game
// starts; the host-only check belongs to the caller.
func (c *Coordinator) SetOption(roomID, field, value string) error {
	switch field {
	case "timeLimit", "numCategories", "letterOverride":
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOption, field)
	}
	r, err := c.Room(roomID)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRoomNotFound
	}
	if r.CurrentGameID != "" {
		return ErrGameActive
	}
	c.Store.Set(StatePath(roomID)+"/options/"+field, value)
	return nil
}

// StartGame creates the game document from the room's options and points
// currentGameId at it. The category list and letter are fixed here; only
// status mutates afterwards.
func (c *Coordinator) StartGame(roomID string) (string, error) {
	r, err := c.Room(roomID)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", ErrRoomNotFound
	}
	if r.CurrentGameID != "" {
		return "", ErrGameActive
	}

	rnd := c.rnd()
	numCategories := parseIntOption(r.Options.NumCategories, 3)
	categories, err := SampleCategories(c.Pool, numCategories, rnd)
	if err != nil {
		return "", err
	}
	timeLimit := parseIntOption(r.Options.TimeLimit, 30)
	letter := ResolveLetter(r.Options.LetterOverride, rnd)

	gameID := uuid.NewString()
	c.Store.Set(game.StatePath(roomID, gameID), map[string]any{
		"roomId":    roomID,
		"startedAt": tree.ServerTimestamp,
		"options": map[string]any{
			"timeLimitMs": timeLimit * 1000,
			"letter":      letter,
		},
		"categories": categories,
		"status":     map[string]any{"kind": string(game.KindInProgress)},
	})
	c.Store.Set(StatePath(roomID)+"/currentGameId", gameID)

	log.Info().
		Str("roomId", roomID).
		Str("gameId", gameID).
		Str("letter", letter).
		Int("categories", len(categories)).
		Msg("game started")
	return gameID, nil
}

// ReturnToLobby clears the current game pointer once the game has reached
// a terminal status, putting the room back in its startable lobby view.
func (c *Coordinator) ReturnToLobby(roomID string) error {
	r, err := c.Room(roomID)
	if err != nil {
		return err
	}
	if r == nil {
		return ErrRoomNotFound
	}
	if r.CurrentGameID == "" {
		return nil
	}
	sess := game.NewSession(c.Store, roomID, r.CurrentGameID)
	g, err := sess.State()
	if err != nil {
		return err
	}
	if g != nil && !g.Status.Terminal() {
		return ErrGameNotOver
	}
	c.Store.Set(StatePath(roomID)+"/currentGameId", nil)
	return nil
}

func parseIntOption(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}
