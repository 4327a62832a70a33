package tetris

import (
	"context"
	"testing"

	"github.com/tetris-battle/engine/internal/apperr"
	core "github.com/tetris-battle/engine/internal/models/tetris"
)

func TestApplyActionBeforeStartIsInvalidGameState(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if _, err := s.ApplyAction(ActionMoveLeft); err == nil {
		t.Fatalf("expected an error before StartGame")
	} else if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeInvalidGameState {
		t.Fatalf("expected CodeInvalidGameState, got %v", err)
	}
}

func TestApplyActionRejectsUnknownAction(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	if _, err := s.ApplyAction(Action("teleport")); err == nil {
		t.Fatalf("expected InvalidAction error")
	} else if e, ok := apperr.As(err); !ok || e.Code != apperr.CodeInvalidAction {
		t.Fatalf("expected CodeInvalidAction, got %v", err)
	}
}

func TestStartGameTwiceIsRejected(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("first StartGame failed: %v", err)
	}
	if err := s.StartGame(); err == nil {
		t.Fatalf("second StartGame should fail")
	}
}

func TestHardDropScoringEmptyBoard(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	s.GameSeed = 12345
	s.TetrominoBag = bagForBagNumber(s.GameSeed, 1)
	s.BagNumber = 1
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}

	ghostBefore := s.Board.Ghost(s.CurrentPiece)
	distance := ghostBefore.Y - s.CurrentPiece.Y

	result, err := s.ApplyAction(ActionHardDrop)
	if err != nil {
		t.Fatalf("ApplyAction(hardDrop): %v", err)
	}
	if !result.Locked {
		t.Fatalf("hard drop must lock the piece")
	}
	snap := s.ToSnapshot()
	if snap.LinesCleared != 0 {
		t.Fatalf("expected 0 lines cleared on an empty board, got %d", snap.LinesCleared)
	}
	if snap.Level != 0 {
		t.Fatalf("expected level 0, got %d", snap.Level)
	}
	if snap.Score != distance*2 {
		t.Fatalf("expected score == distance*2 (%d), got %d", distance*2, snap.Score)
	}
}

func TestLineClearAtLevelZero(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	// Force the current piece to be an I piece, and fill the bottom row
	// except for one column the vertical I piece's lowest block will fill.
	s.TetrominoBag = [7]core.PieceType{core.TypeI, core.TypeI, core.TypeO, core.TypeT, core.TypeS, core.TypeZ, core.TypeJ}
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	for x := 0; x < core.BoardWidth; x++ {
		if x == 1 {
			continue
		}
		s.Board[core.BoardHeight-1][x] = core.BlockZ
	}
	s.CurrentPiece.Rotation = 1 // vertical I; this shape's blocks sit at relative x=2
	s.CurrentPiece.X = -1       // so absolute column = -1+2 = 1, matching the gap below
	s.CurrentPiece.Y = core.BoardHeight - 4
	s.GhostPiece = s.Board.Ghost(s.CurrentPiece)

	result, err := s.ApplyAction(ActionHardDrop)
	if err != nil {
		t.Fatalf("ApplyAction(hardDrop): %v", err)
	}
	if !result.Locked {
		t.Fatalf("expected the drop to lock")
	}
	if s.LinesCleared != 1 {
		t.Fatalf("expected 1 line cleared, got %d", s.LinesCleared)
	}
	// The full bottom row is removed and the rows above shift down, so the
	// new bottom row holds only the I piece's next-lowest block at x=1.
	for x := 0; x < core.BoardWidth; x++ {
		want := core.BlockEmpty
		if x == 1 {
			want = core.BlockI
		}
		if s.Board[core.BoardHeight-1][x] != want {
			t.Fatalf("bottom row should be cleared and replaced by the row above it: x=%d got %v, want %v", x, s.Board[core.BoardHeight-1][x], want)
		}
	}
}

func TestHoldSwapsAndBlocksUntilNextLock(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	firstType := s.CurrentPiece.Type

	if _, err := s.ApplyAction(ActionHold); err != nil {
		t.Fatalf("ApplyAction(hold): %v", err)
	}
	if s.HeldPiece == nil || s.HeldPiece.Type != firstType {
		t.Fatalf("expected held piece to be the original current piece type")
	}
	if s.CanHold {
		t.Fatalf("canHold should be false immediately after a hold")
	}

	before := s.CurrentPiece.Type
	if _, err := s.ApplyAction(ActionHold); err != nil {
		t.Fatalf("second hold errored: %v", err)
	}
	if s.CurrentPiece.Type != before {
		t.Fatalf("a second hold before any lock must be a no-op")
	}
}

func TestRepairForcesGameOverWhenNoFallbackFits(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	for y := 0; y < core.BoardHeight; y++ {
		for x := 0; x < core.BoardWidth; x++ {
			s.Board[y][x] = core.BlockZ
		}
	}
	s.CurrentPiece.X, s.CurrentPiece.Y = 3, 0

	if forced := s.Repair(); !forced {
		t.Fatalf("expected Repair to force game over on a fully blocked board")
	}
	if !s.IsGameOver {
		t.Fatalf("expected IsGameOver true after forced repair")
	}
	if s.CurrentPiece != nil || s.GhostPiece != nil || s.NextPiece != nil {
		t.Fatalf("forced game over must clear current/ghost/next pieces")
	}
}

func TestRepairRebuildsMissingGhost(t *testing.T) {
	s := NewPlayerGameState("p1", "r1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	s.GhostPiece = nil
	if forced := s.Repair(); forced {
		t.Fatalf("Repair should not force game over on an empty board")
	}
	if s.GhostPiece == nil {
		t.Fatalf("expected Repair to rebuild the missing ghost piece")
	}
}

type fakePersister struct {
	score, level, lines int
	playerID            string
}

func (f *fakePersister) PersistResult(_ context.Context, playerID string, score, level, linesCleared int) error {
	f.playerID, f.score, f.level, f.lines = playerID, score, level, linesCleared
	return nil
}

type fakePublisher struct {
	channels []string
}

func (f *fakePublisher) Publish(_ context.Context, channel, _ string) error {
	f.channels = append(f.channels, channel)
	return nil
}

func TestHandleGameOverPersistsAndPublishesThenClears(t *testing.T) {
	s := NewPlayerGameState("p1", "room1")
	if err := s.StartGame(); err != nil {
		t.Fatalf("StartGame: %v", err)
	}
	s.Score, s.Level, s.LinesCleared = 42, 3, 7

	persister := &fakePersister{}
	publisher := &fakePublisher{}
	stopped := false

	s.HandleGameOver(context.Background(), persister, publisher, func() { stopped = true })

	if !stopped {
		t.Fatalf("expected the ticker-stop callback to run")
	}
	if persister.playerID != "p1" || persister.score != 42 || persister.level != 3 || persister.lines != 7 {
		t.Fatalf("unexpected persisted result: %+v", persister)
	}
	if len(publisher.channels) != 2 {
		t.Fatalf("expected 2 publishes (room + player topic), got %v", publisher.channels)
	}
	if !s.IsGameOver || s.CurrentPiece != nil || s.Score != 0 {
		t.Fatalf("expected state cleared after HandleGameOver, got %+v", s)
	}
}
