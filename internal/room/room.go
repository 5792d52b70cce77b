// Package room owns room lifecycle and presence: idempotent room
// creation, pre-game options, game start/teardown, and the
// connected-users map that host election is derived from.
package room

import "fmt"

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
)

// Options are the pre-game knobs the host can edit in the lobby. They are
// stored as strings because they arrive keystroke-at-a-time from form
// fields; parsing with defaults happens at game start.
type Options struct {
	TimeLimit      string `json:"timeLimit"`
	NumCategories  string `json:"numCategories"`
	LetterOverride string `json:"letterOverride"`
}

// DefaultOptions for a freshly created room.
func DefaultOptions() Options {
	return Options{TimeLimit: "30", NumCategories: "3", LetterOverride: "A"}
}

// Room is the lobby document at rooms/{id}/state.
type Room struct {
	ID            string  `json:"id"`
	CreatedAt     int64   `json:"createdAt"`
	Status        string  `json:"status"`
	CurrentGameID string  `json:"currentGameId,omitempty"`
	Options       Options `json:"options"`
}

// User is one participant's presence entry at rooms/{id}/users/{uid}.
// Entries are never deleted; a departed user persists as disconnected.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name,omitempty"`
	Status      string `json:"status"`
	ConnectedAt int64  `json:"connectedAt"`
}

func StatePath(roomID string) string {
	return fmt.Sprintf("rooms/%s/state", roomID)
}

func UsersPath(roomID string) string {
	return fmt.Sprintf("rooms/%s/users", roomID)
}

func UserPath(roomID, userID string) string {
	return fmt.Sprintf("rooms/%s/users/%s", roomID, userID)
}
