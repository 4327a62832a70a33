// Package room implements the matchmaking and lifecycle manager described in
// spec §4.5: find-or-create room assignment, a hard cap of 99 players per
// room, and the join/leave/start transitions that own each PlayerGameState's
// lifetime.
package room

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tetris-battle/engine/internal/apperr"
	"github.com/tetris-battle/engine/internal/services/tetris"
	"github.com/tetris-battle/engine/internal/store"
)

// bgCtx is used for the fire-and-forget store mirroring calls that
// accompany every in-memory transition; none of them carry a
// request-scoped deadline of their own.
var bgCtx = context.Background()

// MaxPlayersPerRoom is the spec's fixed room capacity (§3.2).
const MaxPlayersPerRoom = 99

// Status is one of a Room's three lifecycle phases.
type Status string

const (
	StatusWaiting  Status = "WAITING"
	StatusPlaying  Status = "PLAYING"
	StatusFinished Status = "FINISHED"
)

// PlayerStatus is one of a Player's three in-room states.
type PlayerStatus string

const (
	PlayerAlive      PlayerStatus = "ALIVE"
	PlayerEliminated PlayerStatus = "ELIMINATED"
	PlayerSpectating PlayerStatus = "SPECTATING"
)

// Room is the spec §3.1 Room entity. It is created on demand and deleted the
// moment its player count reaches zero.
type Room struct {
	ID             string    `json:"id"`
	Status         Status    `json:"status"`
	MaxPlayers     int       `json:"maxPlayers"`
	CurrentPlayers int       `json:"currentPlayers"`
	RoomSeed       int32     `json:"roomSeed"`
	CreatedAt      time.Time `json:"createdAt"`
	LastActivity   time.Time `json:"lastActivity"`
	PlayerIDs      []string  `json:"playerIds"`
}

// Player is the spec §3.1 Player entity.
type Player struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	SocketID     string       `json:"socketId"`
	RoomID       string       `json:"roomId"`
	Status       PlayerStatus `json:"status"`
	Score        int          `json:"score"`
	LinesCleared int          `json:"linesCleared"`
	Level        int          `json:"level"`
}

// Manager owns the set of live rooms, players and player simulations. One
// Manager instance is the single owner-task for every PlayerGameState it
// creates (spec §5/§9); the state store mirrors records for cross-node reads
// and durability, but mutation always flows through the owning Manager.
type Manager struct {
	mu sync.RWMutex

	rooms   map[string]*Room
	players map[string]*Player
	games   map[string]*tetris.PlayerGameState

	store     store.Store
	scheduler *tetris.Scheduler
	persister tetris.ResultPersister
	publisher tetris.Publisher
}

// NewManager wires a Manager against the state store, a gravity scheduler
// and the durable-result/pub-sub collaborators used by the game-over
// pipeline.
func NewManager(st store.Store, scheduler *tetris.Scheduler, persister tetris.ResultPersister, publisher tetris.Publisher) *Manager {
	return &Manager{
		rooms:     make(map[string]*Room),
		players:   make(map[string]*Player),
		games:     make(map[string]*tetris.PlayerGameState),
		store:     st,
		scheduler: scheduler,
		persister: persister,
		publisher: publisher,
	}
}

// findAvailableRoomLocked implements the priority order from spec §4.5:
// a PLAYING room with room, then a WAITING room, then anything at all, each
// constrained to currentPlayers < MaxPlayersPerRoom.
func (m *Manager) findAvailableRoomLocked() *Room {
	var waiting, any *Room
	for _, r := range m.rooms {
		if r.CurrentPlayers >= MaxPlayersPerRoom {
			continue
		}
		if r.Status == StatusPlaying {
			return r
		}
		if r.Status == StatusWaiting && waiting == nil {
			waiting = r
		}
		if any == nil {
			any = r
		}
	}
	if waiting != nil {
		return waiting
	}
	return any
}

// createNewRoomLocked mints a fresh room ID and seed per spec §4.5.
func (m *Manager) createNewRoomLocked() *Room {
	now := time.Now()
	room := &Room{
		ID:             fmt.Sprintf("room_%d_%09d", now.UnixMilli(), rand.Intn(1_000_000_000)),
		Status:         StatusWaiting,
		MaxPlayers:     MaxPlayersPerRoom,
		CurrentPlayers: 0,
		RoomSeed:       int32(now.UnixMilli()&0x7FFFFFFF) ^ rand.Int31(),
		CreatedAt:      now,
		LastActivity:   now,
	}
	m.rooms[room.ID] = room
	return room
}

// JoinGameAuto implements joinAutoRoom (spec §4.5/§6.1): find-or-create a
// room, seat a new Player in it, and initialize its PlayerGameState. Game
// start is never automatic here; that is always a separate StartRoomGame
// call.
func (m *Manager) JoinGameAuto(name string) (*Room, *Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := m.findAvailableRoomLocked()
	if r == nil {
		r = m.createNewRoomLocked()
	}

	player := &Player{
		ID:     uuid.NewString(),
		Name:   name,
		RoomID: r.ID,
		Status: PlayerAlive,
	}
	m.players[player.ID] = player
	m.games[player.ID] = tetris.NewPlayerGameState(player.ID, r.ID)

	r.PlayerIDs = append(r.PlayerIDs, player.ID)
	r.CurrentPlayers++
	r.LastActivity = time.Now()

	m.persistRoomLocked(r)
	m.persistPlayerLocked(player)
	m.mirrorGameLocked(player.ID)

	return r, player, nil
}

// LeaveGameAuto implements leaveAutoRoom (spec §4.5): remove the player,
// decrement the room's count, and delete the room immediately once it is
// empty (no background sweeper, per spec §5).
func (m *Manager) LeaveGameAuto(roomID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return apperr.RoomNotFound(roomID)
	}

	if p, present := m.players[playerID]; !present || p.RoomID != roomID {
		return apperr.PlayerNotFound(playerID)
	}

	if m.scheduler != nil {
		m.scheduler.Cancel(playerID)
	}
	delete(m.games, playerID)
	delete(m.players, playerID)
	_ = m.store.Del(bgCtx, store.PlayerGameKey(playerID))
	_ = m.store.Del(bgCtx, store.PlayerKey(playerID))
	_ = m.store.SRem(bgCtx, store.RoomPlayersKey(roomID), playerID)

	before := len(r.PlayerIDs)
	r.PlayerIDs = removeID(r.PlayerIDs, playerID)
	if len(r.PlayerIDs) < before && r.CurrentPlayers > 0 {
		r.CurrentPlayers--
	}

	if r.CurrentPlayers <= 0 {
		delete(m.rooms, roomID)
		_ = m.store.Del(bgCtx, store.RoomKey(roomID))
		_ = m.store.SRem(bgCtx, store.ActiveRoomsKey, roomID)
		return nil
	}

	r.LastActivity = time.Now()
	m.persistRoomLocked(r)
	return nil
}

// StartRoomGame implements startRoomGame (spec §4.5/§6.1): flips the room to
// PLAYING and runs the start transition for every seated player, starting
// each one's gravity ticker at level 0.
func (m *Manager) StartRoomGame(roomID string) (*Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, apperr.RoomNotFound(roomID)
	}
	if r.Status != StatusWaiting {
		return nil, apperr.CannotStart(roomID)
	}

	r.Status = StatusPlaying
	r.LastActivity = time.Now()

	for _, playerID := range r.PlayerIDs {
		state, ok := m.games[playerID]
		if !ok {
			continue
		}
		if err := state.StartGame(); err != nil {
			continue // already started; idempotent from the caller's perspective
		}
		if m.scheduler != nil {
			m.scheduler.Start(playerID, state, m.onGameOverFunc(playerID))
		}
		m.mirrorGameLocked(playerID)
		if m.publisher != nil {
			_ = m.publisher.Publish(bgCtx, store.ChannelGameStarted(playerID), encodeRoomGameStartedEvent(r.ID, playerID, r.RoomSeed))
		}
	}

	m.persistRoomLocked(r)
	return r, nil
}

// OnPlayerLocked is called after a client-driven action locks a piece
// (handlePlayerInput → moveDown/hardDrop). It restarts that player's
// gravity ticker at the (possibly new) level, or runs the game-over
// pipeline and marks the player ELIMINATED if the lock ended their game.
func (m *Manager) OnPlayerLocked(playerID string, state *tetris.PlayerGameState) {
	if state.Over() {
		if m.scheduler != nil {
			m.scheduler.Cancel(playerID)
		}
		m.onGameOverFunc(playerID)()
		return
	}
	if m.scheduler != nil {
		m.scheduler.Start(playerID, state, m.onGameOverFunc(playerID))
	}
}

// MirrorGame republishes a player's current snapshot into the state store,
// for callers outside the package (the gateway) that just mutated a
// PlayerGameState directly via ApplyAction.
func (m *Manager) MirrorGame(playerID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mirrorGameLocked(playerID)
}

// GetPlayerGameState returns the live, owner-held PlayerGameState for a
// player, used by getPlayerGameState and by the gateway's input dispatch.
func (m *Manager) GetPlayerGameState(playerID string) (*tetris.PlayerGameState, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.games[playerID]
	if !ok {
		return nil, apperr.PlayerNotFound(playerID)
	}
	return state, nil
}

// GetRoomPlayers implements getRoomPlayers (spec §6.1).
func (m *Manager) GetRoomPlayers(roomID string) ([]*Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.rooms[roomID]
	if !ok {
		return nil, apperr.RoomNotFound(roomID)
	}
	out := make([]*Player, 0, len(r.PlayerIDs))
	for _, id := range r.PlayerIDs {
		if p, ok := m.players[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

// GetRoomInfo implements getRoomInfo (spec §6.1), which also publishes a
// roomStateUpdate event on room_state_update:{roomId} per spec §6.2.
func (m *Manager) GetRoomInfo(roomID string) (*Room, error) {
	m.mu.RLock()
	r, ok := m.rooms[roomID]
	if !ok {
		m.mu.RUnlock()
		return nil, apperr.RoomNotFound(roomID)
	}
	cp := *r
	cp.PlayerIDs = append([]string(nil), r.PlayerIDs...)
	m.mu.RUnlock()

	if m.publisher != nil {
		_ = m.publisher.Publish(bgCtx, store.ChannelRoomStateUpdate(roomID), encodeRoomStateUpdateEvent(&cp))
	}
	return &cp, nil
}

// RoomStats is the getRoomStats aggregate (spec §6.1): counts across every
// room currently tracked by this Manager.
type RoomStats struct {
	TotalRooms   int `json:"totalRooms"`
	TotalPlayers int `json:"totalPlayers"`
	WaitingRooms int `json:"waitingRooms"`
	PlayingRooms int `json:"playingRooms"`
}

// GetRoomStats implements getRoomStats (spec §6.1).
func (m *Manager) GetRoomStats() RoomStats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stats := RoomStats{TotalRooms: len(m.rooms), TotalPlayers: len(m.players)}
	for _, r := range m.rooms {
		switch r.Status {
		case StatusWaiting:
			stats.WaitingRooms++
		case StatusPlaying:
			stats.PlayingRooms++
		}
	}
	return stats
}

// onGameOverFunc returns a callback bound to playerID, handed to the
// gravity scheduler when a player's game starts. The scheduler guarantees
// it fires at most once and only after that player's ticker has already
// been cancelled, so HandleGameOver is never given a ticker to stop of its
// own.
func (m *Manager) onGameOverFunc(playerID string) func() {
	return func() {
		m.mu.RLock()
		state, ok := m.games[playerID]
		m.mu.RUnlock()
		if !ok {
			return
		}

		state.HandleGameOver(bgCtx, m.persister, m.publisher, nil)

		m.mu.Lock()
		if p, ok := m.players[playerID]; ok {
			p.Status = PlayerEliminated
			snap := state.ToSnapshot()
			p.Score = snap.Score
			p.LinesCleared = snap.LinesCleared
			p.Level = snap.Level
			m.persistPlayerLocked(p)
		}
		m.mirrorGameLocked(playerID)
		m.mu.Unlock()
	}
}

func removeID(ids []string, target string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// persistRoomLocked and persistPlayerLocked mirror the authoritative
// in-memory record into the state store so other nodes (and the HTTP admin
// surface) can read it; store failures are ignored and never block the
// in-memory transition.
func (m *Manager) persistRoomLocked(r *Room) {
	b, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = m.store.Set(bgCtx, store.RoomKey(r.ID), string(b), store.RecordTTL)
	_ = m.store.SAdd(bgCtx, store.ActiveRoomsKey, r.ID)
}

func (m *Manager) persistPlayerLocked(p *Player) {
	b, err := json.Marshal(p)
	if err != nil {
		return
	}
	_ = m.store.Set(bgCtx, store.PlayerKey(p.ID), string(b), store.RecordTTL)
	_ = m.store.SAdd(bgCtx, store.PlayersKey, p.ID)
	_ = m.store.SAdd(bgCtx, store.RoomPlayersKey(p.RoomID), p.ID)
}

func (m *Manager) mirrorGameLocked(playerID string) {
	state, ok := m.games[playerID]
	if !ok {
		return
	}
	b, err := json.Marshal(state.ToSnapshot())
	if err != nil {
		return
	}
	_ = m.store.Set(bgCtx, store.PlayerGameKey(playerID), string(b), store.RecordTTL)
}
