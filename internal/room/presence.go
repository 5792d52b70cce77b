package room

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/vsiao/sprintergories/internal/tree"
)

// Presence maintains each participant's connected/disconnected status.
// The user's own entry is the only thing a connection writes, so plain
// last-write-wins updates suffice.
type Presence struct {
	Store *tree.Store
}

// Connect marks the user connected and arms the compensating write that
// flips status back to disconnected when the connection token drops.
// connectedAt is refreshed on every connection event; a reconnecting user
// therefore loses any host seniority it had.
func (p *Presence) Connect(connToken, roomID, userID string) {
	path := UserPath(roomID, userID)
	p.Store.OnDisconnect(connToken, path, map[string]any{
		"status": StatusDisconnected,
	})
	p.Store.Update(path, map[string]any{
		"id":          userID,
		"status":      StatusConnected,
		"connectedAt": tree.ServerTimestamp,
	})
	log.Debug().Str("roomId", roomID).Str("userId", userID).Msg("presence connected")
}

// SetName records the user's display name. An unnamed user is treated as
// a connected spectator by the transport.
func (p *Presence) SetName(roomID, userID, name string) {
	p.Store.Set(UserPath(roomID, userID)+"/name", name)
}

// Users reads the full user map for a room.
func (p *Presence) Users(roomID string) (map[string]User, error) {
	var users map[string]User
	if err := tree.Decode(p.Store.Get(UsersPath(roomID)), &users); err != nil {
		return nil, err
	}
	return users, nil
}

// Host elects the host from a user map: the earliest-connected user whose
// status is connected, ties broken by user id so the election is
// deterministic. Returns false when nobody is connected. Pure; callers
// re-evaluate on every observation of the user map, so the host can
// change mid-session when the current host disconnects.
func Host(users map[string]User) (string, bool) {
	ids := make([]string, 0, len(users))
	for id, u := range users {
		if u.Status == StatusConnected {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "", false
	}
	sort.Slice(ids, func(i, j int) bool {
		ui, uj := users[ids[i]], users[ids[j]]
		if ui.ConnectedAt != uj.ConnectedAt {
			return ui.ConnectedAt < uj.ConnectedAt
		}
		return ids[i] < ids[j]
	})
	return ids[0], true
}

// IsHost is the gate every host-only action runs through before a write
// is issued.
func (p *Presence) IsHost(roomID, userID string) bool {
	users, err := p.Users(roomID)
	if err != nil {
		return false
	}
	host, ok := Host(users)
	return ok && host == userID
}
