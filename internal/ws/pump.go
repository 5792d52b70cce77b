package ws

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/vsiao/sprintergories/internal/game"
	"github.com/vsiao/sprintergories/internal/room"
	"github.com/vsiao/sprintergories/internal/tree"
)

// pump is the per-room fan-out: one goroutine watches the room's state
// and user documents (and the current game's state, when there is one)
// and rebroadcasts every snapshot to the room's sockets. It also owns the
// round timer that auto-ends answering when the time limit lapses.
type pump struct {
	srv    *Server
	roomID string
	stop   chan struct{}
}

func newPump(srv *Server, roomID string) *pump {
	p := &pump{srv: srv, roomID: roomID, stop: make(chan struct{})}
	go p.run()
	return p
}

func (p *pump) stopPump() {
	close(p.stop)
}

func (p *pump) run() {
	stateSub := p.srv.Store.Watch(room.StatePath(p.roomID))
	usersSub := p.srv.Store.Watch(room.UsersPath(p.roomID))
	defer stateSub.Close()
	defer usersSub.Close()

	var (
		gameID     string
		gameSub    *tree.Subscription
		gameCh     <-chan tree.Snapshot
		roundTimer *time.Timer
		lastStatus game.Status
	)
	closeGameSub := func() {
		if gameSub != nil {
			gameSub.Close()
			gameSub, gameCh = nil, nil
		}
		if roundTimer != nil {
			roundTimer.Stop()
			roundTimer = nil
		}
	}
	defer closeGameSub()

	for {
		select {
		case <-p.stop:
			return

		case snap, ok := <-stateSub.C():
			if !ok {
				return
			}
			p.srv.broadcast(p.roomID, "room:state", snap.Value)
			var r room.Room
			if err := tree.Decode(snap.Value, &r); err != nil {
				log.Error().Err(err).Str("roomId", p.roomID).Msg("bad room snapshot")
				continue
			}
			if r.CurrentGameID != gameID {
				// A currentGameId write and the game document itself may
				// arrive in either order; watching the game path handles
				// the not-yet-populated case as a nil first snapshot.
				closeGameSub()
				gameID = r.CurrentGameID
				lastStatus = game.Status{}
				if gameID != "" {
					gameSub = p.srv.Store.Watch(game.StatePath(p.roomID, gameID))
					gameCh = gameSub.C()
				}
			}

		case snap, ok := <-usersSub.C():
			if !ok {
				return
			}
			var users map[string]room.User
			if err := tree.Decode(snap.Value, &users); err != nil {
				continue
			}
			hostID, _ := room.Host(users)
			p.srv.broadcast(p.roomID, "room:users", map[string]any{
				"users":  snap.Value,
				"hostId": hostID,
			})

		case snap, ok := <-gameCh:
			if !ok {
				gameCh = nil
				continue
			}
			if snap.Value == nil {
				continue // not ready; the next snapshot delivers it
			}
			p.srv.broadcast(p.roomID, "game:state", map[string]any{
				"gameId": gameID,
				"state":  snap.Value,
			})
			var g game.Game
			if err := tree.Decode(snap.Value, &g); err != nil {
				log.Error().Err(err).Str("gameId", gameID).Msg("bad game snapshot")
				continue
			}
			if roundTimer != nil {
				roundTimer.Stop()
				roundTimer = nil
			}
			if g.Status.Kind == game.KindInProgress {
				roundTimer = p.armRoundTimer(&g, gameID)
			}
			if g.Status != lastStatus {
				p.onStatusChange(gameID, g.Status)
				lastStatus = g.Status
			}
		}
	}
}

// armRoundTimer schedules the automatic end of answering, measured
// against the store's clock so every participant agrees on the deadline.
func (p *pump) armRoundTimer(g *game.Game, gameID string) *time.Timer {
	d := g.Deadline().Sub(p.srv.Store.Now())
	if d < 0 {
		d = 0
	}
	roomID := p.roomID
	return time.AfterFunc(d, func() {
		sess := game.NewSession(p.srv.Store, roomID, gameID)
		// No-op if the host already ended the round manually.
		if err := sess.EndRound(); err != nil && err != game.ErrGameOver {
			log.Error().Err(err).Str("gameId", gameID).Msg("round timer")
		}
	})
}

// onStatusChange pushes the derived views each phase needs: the processed
// (deduplicated) responses when a category opens for voting, and the
// final results when the game completes.
func (p *pump) onStatusChange(gameID string, st game.Status) {
	log.Info().Str("roomId", p.roomID).Str("gameId", gameID).Stringer("status", st).Msg("status change")
	sess := game.NewSession(p.srv.Store, p.roomID, gameID)
	switch st.Kind {
	case game.KindVoting:
		processed, err := sess.ProcessCategory(st.Category)
		if err != nil {
			log.Error().Err(err).Str("gameId", gameID).Msg("process responses")
			return
		}
		p.srv.broadcast(p.roomID, "game:voting", map[string]any{
			"category":  st.Category,
			"responses": processed,
		})
	case game.KindComplete:
		results, err := sess.Results()
		if err != nil {
			log.Error().Err(err).Str("gameId", gameID).Msg("compute results")
			return
		}
		p.srv.broadcast(p.roomID, "game:results", map[string]any{
			"results": results,
			"ranking": game.Ranking(results),
			"winners": game.Winners(results),
		})
	}
}
