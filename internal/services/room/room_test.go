package room

import (
	"testing"

	"github.com/tetris-battle/engine/internal/apperr"
	"github.com/tetris-battle/engine/internal/store"
)

func newTestManager() *Manager {
	return NewManager(store.NewMemoryStore(), nil, nil, nil)
}

func TestJoinGameAutoCreatesRoomWhenNoneAvailable(t *testing.T) {
	m := newTestManager()

	r, p, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("JoinGameAuto: %v", err)
	}
	if r.CurrentPlayers != 1 {
		t.Fatalf("expected 1 player in the new room, got %d", r.CurrentPlayers)
	}
	if p.RoomID != r.ID {
		t.Fatalf("player room mismatch: %s != %s", p.RoomID, r.ID)
	}
	if p.Status != PlayerAlive {
		t.Fatalf("expected a fresh player to be ALIVE, got %s", p.Status)
	}
	if _, err := m.GetPlayerGameState(p.ID); err != nil {
		t.Fatalf("expected a PlayerGameState to be initialized: %v", err)
	}
}

func TestJoinGameAutoReusesWaitingRoomBeforeCreatingANewOne(t *testing.T) {
	m := newTestManager()

	r1, _, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("first join: %v", err)
	}
	r2, _, err := m.JoinGameAuto("bob")
	if err != nil {
		t.Fatalf("second join: %v", err)
	}
	if r1.ID != r2.ID {
		t.Fatalf("expected the second player to join the same waiting room, got %s vs %s", r1.ID, r2.ID)
	}

	info, err := m.GetRoomInfo(r1.ID)
	if err != nil {
		t.Fatalf("GetRoomInfo: %v", err)
	}
	if info.CurrentPlayers != 2 {
		t.Fatalf("expected 2 players, got %d", info.CurrentPlayers)
	}
}

func TestJoinGameAutoStartsANewRoomOncePriorRoomIsFull(t *testing.T) {
	m := newTestManager()

	var firstRoomID string
	for i := 0; i < MaxPlayersPerRoom; i++ {
		r, _, err := m.JoinGameAuto("p")
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		firstRoomID = r.ID
	}

	overflow, _, err := m.JoinGameAuto("overflow")
	if err != nil {
		t.Fatalf("overflow join: %v", err)
	}
	if overflow.ID == firstRoomID {
		t.Fatalf("expected a new room once the first one reached capacity")
	}
}

func TestStartRoomGameRejectsNonWaitingRoom(t *testing.T) {
	m := newTestManager()
	r, _, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := m.StartRoomGame(r.ID); err != nil {
		t.Fatalf("first start: %v", err)
	}
	if _, err := m.StartRoomGame(r.ID); err == nil {
		t.Fatalf("expected the second start to fail")
	} else if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeCannotStart {
		t.Fatalf("expected CodeCannotStart, got %v", err)
	}
}

func TestStartRoomGameMarksPlayerGameStatesStarted(t *testing.T) {
	m := newTestManager()
	r, p, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if _, err := m.StartRoomGame(r.ID); err != nil {
		t.Fatalf("StartRoomGame: %v", err)
	}

	state, err := m.GetPlayerGameState(p.ID)
	if err != nil {
		t.Fatalf("GetPlayerGameState: %v", err)
	}
	if !state.ToSnapshot().GameStarted {
		t.Fatalf("expected the player's game to have started")
	}
}

func TestLeaveGameAutoDeletesEmptyRoom(t *testing.T) {
	m := newTestManager()
	r, p, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	if err := m.LeaveGameAuto(r.ID, p.ID); err != nil {
		t.Fatalf("LeaveGameAuto: %v", err)
	}

	if _, err := m.GetRoomInfo(r.ID); err == nil {
		t.Fatalf("expected the room to be deleted once empty")
	}
	if _, err := m.GetPlayerGameState(p.ID); err == nil {
		t.Fatalf("expected the player's game state to be gone")
	}
}

func TestLeaveGameAutoKeepsRoomWithRemainingPlayers(t *testing.T) {
	m := newTestManager()
	r, alice, err := m.JoinGameAuto("alice")
	if err != nil {
		t.Fatalf("join alice: %v", err)
	}
	_, bob, err := m.JoinGameAuto("bob")
	if err != nil {
		t.Fatalf("join bob: %v", err)
	}

	if err := m.LeaveGameAuto(r.ID, alice.ID); err != nil {
		t.Fatalf("LeaveGameAuto: %v", err)
	}

	info, err := m.GetRoomInfo(r.ID)
	if err != nil {
		t.Fatalf("expected the room to survive with bob still in it: %v", err)
	}
	if info.CurrentPlayers != 1 {
		t.Fatalf("expected 1 remaining player, got %d", info.CurrentPlayers)
	}

	players, err := m.GetRoomPlayers(r.ID)
	if err != nil {
		t.Fatalf("GetRoomPlayers: %v", err)
	}
	if len(players) != 1 || players[0].ID != bob.ID {
		t.Fatalf("expected only bob to remain, got %+v", players)
	}
}

func TestLeaveGameAutoUnknownRoomReturnsRoomNotFound(t *testing.T) {
	m := newTestManager()
	err := m.LeaveGameAuto("no-such-room", "p1")
	if err == nil {
		t.Fatalf("expected an error")
	}
	if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeRoomNotFound {
		t.Fatalf("expected CodeRoomNotFound, got %v", err)
	}
}

func TestGetRoomStatsCountsAcrossRooms(t *testing.T) {
	m := newTestManager()
	// Fill the first room so the next join cannot be seated in it even
	// though a PLAYING room has priority.
	var r1 *Room
	for i := 0; i < MaxPlayersPerRoom; i++ {
		r, _, err := m.JoinGameAuto("p")
		if err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		r1 = r
	}
	if _, err := m.StartRoomGame(r1.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, _, err := m.JoinGameAuto("bob"); err != nil {
		t.Fatalf("join bob: %v", err)
	}

	stats := m.GetRoomStats()
	if stats.TotalRooms != 2 || stats.TotalPlayers != MaxPlayersPerRoom+1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if stats.PlayingRooms != 1 || stats.WaitingRooms != 1 {
		t.Fatalf("unexpected status breakdown: %+v", stats)
	}
}
