// Package ws binds browser connections to the tree store: it relays
// watched room/game state out to every connection in a room and turns
// incoming events into store writes. All host-only gating happens here,
// at the calling boundary, before any write is issued.
package ws

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	socketio "github.com/googollee/go-socket.io"
	"github.com/rs/zerolog/log"

	"github.com/vsiao/sprintergories/internal/game"
	"github.com/vsiao/sprintergories/internal/room"
	"github.com/vsiao/sprintergories/internal/tree"
)

// ConnCtx is the per-connection state: which room the socket joined and
// which user identity it writes as.
type ConnCtx struct {
	RoomID string
	UserID string
}

type Server struct {
	Store    *tree.Store
	Coord    *room.Coordinator
	Presence *room.Presence

	io *socketio.Server

	mu      sync.Mutex
	members map[string]map[string]socketio.Conn // roomID -> socketID -> conn
	pumps   map[string]*pump
}

func New(store *tree.Store, coord *room.Coordinator) *Server {
	return &Server{
		Store:    store,
		Coord:    coord,
		Presence: &room.Presence{Store: store},
		members:  make(map[string]map[string]socketio.Conn),
		pumps:    make(map[string]*pump),
	}
}

// Mount attaches the socket.io server with all event handlers to the gin
// engine.
func (srv *Server) Mount(r *gin.Engine) *socketio.Server {
	io := socketio.NewServer(nil)
	srv.io = io

	io.OnConnect("/", func(s socketio.Conn) error {
		s.SetContext(&ConnCtx{})
		log.Info().Str("sid", s.ID()).Msg("socket connected")
		return nil
	})

	// room:join — enter (and lazily create) a room. The server assigns an
	// anonymous user id unless the client resumes with one it already has.
	io.OnEvent("/", "room:join", func(s socketio.Conn, payload struct {
		RoomID string `json:"roomId"`
		UserID string `json:"userId"`
	}) map[string]any {
		if payload.RoomID == "" {
			return srv.err(s, "bad_request", "missing roomId")
		}
		userID := payload.UserID
		if userID == "" {
			userID = uuid.NewString()
		}
		srv.Coord.EnsureRoom(payload.RoomID)
		srv.Presence.Connect(s.ID(), payload.RoomID, userID)
		s.SetContext(&ConnCtx{RoomID: payload.RoomID, UserID: userID})
		s.Join(payload.RoomID)
		srv.addMember(payload.RoomID, s)
		log.Info().Str("roomId", payload.RoomID).Str("userId", userID).Msg("room:join")
		return map[string]any{"userId": userID}
	})

	// room:name — set the caller's display name.
	io.OnEvent("/", "room:name", func(s socketio.Conn, payload struct {
		Name string `json:"name"`
	}) map[string]any {
		ctx, errResp := srv.joined(s)
		if errResp != nil {
			return errResp
		}
		srv.Presence.SetName(ctx.RoomID, ctx.UserID, payload.Name)
		return ok()
	})

	// room:option — host edits one lobby option field.
	io.OnEvent("/", "room:option", func(s socketio.Conn, payload struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}) map[string]any {
		ctx, errResp := srv.host(s)
		if errResp != nil {
			return errResp
		}
		if err := srv.Coord.SetOption(ctx.RoomID, payload.Field, payload.Value); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return ok()
	})

	// game:start — host leaves the lobby.
	io.OnEvent("/", "game:start", func(s socketio.Conn) map[string]any {
		ctx, errResp := srv.host(s)
		if errResp != nil {
			return errResp
		}
		gameID, err := srv.Coord.StartGame(ctx.RoomID)
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{"gameId": gameID}
	})

	// game:endRound — host ends answering; races the round timer
	// harmlessly because the transition is idempotent.
	io.OnEvent("/", "game:endRound", func(s socketio.Conn) map[string]any {
		return srv.hostTransition(s, func(sess *game.Session) error {
			return sess.EndRound()
		})
	})

	// game:endVoting — host closes voting on the current category.
	io.OnEvent("/", "game:endVoting", func(s socketio.Conn) map[string]any {
		return srv.hostTransition(s, func(sess *game.Session) error {
			return sess.EndVoting()
		})
	})

	// game:abandon — host ends the game early; the room's game pointer is
	// cleared in the same action.
	io.OnEvent("/", "game:abandon", func(s socketio.Conn) map[string]any {
		return srv.hostTransition(s, func(sess *game.Session) error {
			return sess.Abandon()
		})
	})

	// room:lobby — host returns a finished room to the lobby.
	io.OnEvent("/", "room:lobby", func(s socketio.Conn) map[string]any {
		ctx, errResp := srv.host(s)
		if errResp != nil {
			return errResp
		}
		if err := srv.Coord.ReturnToLobby(ctx.RoomID); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return ok()
	})

	// game:response — the caller overwrites its own answer slot.
	io.OnEvent("/", "game:response", func(s socketio.Conn, payload struct {
		Category int    `json:"category"`
		Text     string `json:"text"`
	}) map[string]any {
		ctx, sess, errResp := srv.session(s)
		if errResp != nil {
			return errResp
		}
		if err := sess.SubmitResponse(ctx.UserID, payload.Category, payload.Text); err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return ok()
	})

	// game:vote — toggle the caller's vote on another user's response.
	io.OnEvent("/", "game:vote", func(s socketio.Conn, payload struct {
		Category int    `json:"category"`
		OwnerID  string `json:"ownerId"`
		Vote     string `json:"vote"`
	}) map[string]any {
		ctx, sess, errResp := srv.session(s)
		if errResp != nil {
			return errResp
		}
		err := sess.CastVote(ctx.UserID, payload.OwnerID, payload.Category, game.Vote(payload.Vote))
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return ok()
	})

	// game:review — final scores, ranking and winner set. Valid at or
	// after voting, since it is a pure projection over stored primitives.
	io.OnEvent("/", "game:review", func(s socketio.Conn) map[string]any {
		_, sess, errResp := srv.session(s)
		if errResp != nil {
			return errResp
		}
		results, err := sess.Results()
		if err != nil {
			return srv.err(s, "bad_request", err.Error())
		}
		return map[string]any{
			"results": results,
			"ranking": game.Ranking(results),
			"winners": game.Winners(results),
		}
	})

	// clock:sync — server time for countdown offset correction.
	io.OnEvent("/", "clock:sync", func(s socketio.Conn) map[string]any {
		return map[string]any{"serverTime": srv.Store.NowMillis()}
	})

	io.OnError("/", func(s socketio.Conn, e error) {
		log.Error().Str("sid", s.ID()).Err(e).Msg("socket error")
	})

	io.OnDisconnect("/", func(s socketio.Conn, reason string) {
		// The registered compensating write flips the user's presence to
		// disconnected; host election downstream picks this up.
		srv.Store.FireDisconnect(s.ID())
		if ctx, okCtx := s.Context().(*ConnCtx); okCtx && ctx.RoomID != "" {
			srv.removeMember(ctx.RoomID, s)
		}
		log.Info().Str("sid", s.ID()).Str("reason", reason).Msg("socket disconnected")
	})

	go func() {
		if err := io.Serve(); err != nil {
			log.Error().Err(err).Msg("socket server stopped")
		}
	}()

	r.GET("/socket.io/*any", gin.WrapH(io))
	r.POST("/socket.io/*any", gin.WrapH(io))
	r.OPTIONS("/socket.io/*any", func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Status(http.StatusNoContent)
	})

	return io
}

func ok() map[string]any {
	return map[string]any{"ok": true}
}

func (srv *Server) err(s socketio.Conn, code, message string) map[string]any {
	s.Emit("error", map[string]any{"code": code, "message": message})
	return map[string]any{"error": message}
}

// joined resolves the connection context, erroring if the socket never
// joined a room.
func (srv *Server) joined(s socketio.Conn) (*ConnCtx, map[string]any) {
	ctx, okCtx := s.Context().(*ConnCtx)
	if !okCtx || ctx.RoomID == "" {
		return nil, srv.err(s, "not_joined", "join a room first")
	}
	return ctx, nil
}

// host additionally requires the caller to be the elected host right now.
func (srv *Server) host(s socketio.Conn) (*ConnCtx, map[string]any) {
	ctx, errResp := srv.joined(s)
	if errResp != nil {
		return nil, errResp
	}
	if !srv.Presence.IsHost(ctx.RoomID, ctx.UserID) {
		return nil, srv.err(s, "not_host", "only the host may do that")
	}
	return ctx, nil
}

// session resolves the room's current game.
func (srv *Server) session(s socketio.Conn) (*ConnCtx, *game.Session, map[string]any) {
	ctx, errResp := srv.joined(s)
	if errResp != nil {
		return nil, nil, errResp
	}
	r, err := srv.Coord.Room(ctx.RoomID)
	if err != nil || r == nil || r.CurrentGameID == "" {
		return nil, nil, srv.err(s, "no_game", "no game in progress")
	}
	return ctx, game.NewSession(srv.Store, ctx.RoomID, r.CurrentGameID), nil
}

func (srv *Server) hostTransition(s socketio.Conn, fn func(*game.Session) error) map[string]any {
	if _, errResp := srv.host(s); errResp != nil {
		return errResp
	}
	_, sess, errResp := srv.session(s)
	if errResp != nil {
		return errResp
	}
	if err := fn(sess); err != nil {
		return srv.err(s, "bad_request", err.Error())
	}
	return ok()
}

func (srv *Server) addMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.members[roomID] == nil {
		srv.members[roomID] = make(map[string]socketio.Conn)
	}
	srv.members[roomID][c.ID()] = c
	if srv.pumps[roomID] == nil {
		srv.pumps[roomID] = newPump(srv, roomID)
	}
}

func (srv *Server) removeMember(roomID string, c socketio.Conn) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if m := srv.members[roomID]; m != nil {
		delete(m, c.ID())
		if len(m) == 0 {
			delete(srv.members, roomID)
			if p := srv.pumps[roomID]; p != nil {
				p.stopPump()
				delete(srv.pumps, roomID)
			}
		}
	}
}

func (srv *Server) broadcast(roomID, event string, payload any) {
	srv.io.BroadcastToRoom("/", roomID, event, payload)
}
