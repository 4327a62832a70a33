package tetris

import (
	"context"
	"hash/fnv"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/tetris-battle/engine/internal/apperr"
	core "github.com/tetris-battle/engine/internal/models/tetris"
)

// Action is the closed set of inputs a client may send for a player's active
// piece. Anything outside this enum is rejected with apperr.InvalidAction.
type Action string

const (
	ActionMoveLeft  Action = "moveLeft"
	ActionMoveRight Action = "moveRight"
	ActionMoveDown  Action = "moveDown"
	ActionRotate    Action = "rotate"
	ActionHardDrop  Action = "hardDrop"
	ActionHold      Action = "hold"
)

// ParseAction validates a wire action string against the closed enum.
func ParseAction(s string) (Action, bool) {
	switch Action(s) {
	case ActionMoveLeft, ActionMoveRight, ActionMoveDown, ActionRotate, ActionHardDrop, ActionHold:
		return Action(s), true
	default:
		return "", false
	}
}

// fallbackSpawnOffsets is the short list of alternate spawn positions tried
// by Repair when the current piece collides with the board it was restored
// against.
var fallbackSpawnOffsets = [][2]int{{3, 0}, {2, 0}, {4, 0}, {3, 1}, {2, 1}, {4, 1}}

// PlayerGameState is one player's independent Tetris simulation within a
// room. All mutation flows through methods that take the internal mutex, so
// a given state is always serialized regardless of whether the caller is an
// inbound client action or the gravity ticker.
type PlayerGameState struct {
	PlayerID string
	RoomID   string

	Board        core.Board
	CurrentPiece *core.Piece
	NextPiece    *core.Piece
	HeldPiece    *core.Piece
	GhostPiece   *core.Piece

	Score        int
	LinesCleared int
	Level        int
	IsGameOver   bool
	GameStarted  bool
	CanHold      bool

	GameSeed     int32
	TetrominoBag [7]core.PieceType
	BagIndex     int
	BagNumber    int

	mu sync.Mutex
}

// GenerateSeed mixes wall-clock time, process randomness and both IDs into a
// 31-bit positive seed, per-player and per-room so that two players never
// draw the same bag sequence. Degenerate outputs are nudged into range
// rather than left at a value that would make an unusually short or empty
// permutation space.
func GenerateSeed(playerID, roomID string) int32 {
	now := time.Now()
	mix := now.UnixNano() ^ now.UnixMicro() ^ int64(rand.Int31()) ^ int64(rand.Int31())
	mix ^= int64(hashString(playerID))
	mix ^= int64(hashString(roomID))

	seed := int32(mix & 0x7FFFFFFF)
	if seed < 1000 {
		seed = int32(10000 + (mix & 0x7FFFFFFF % (1<<31 - 10000)))
	}
	if seed == 0 {
		seed = 12345
	}
	return seed
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// NewPlayerGameState initializes a freshly-joined player: empty board, no
// active piece, and bag 1 drawn far enough to know the first preview piece.
func NewPlayerGameState(playerID, roomID string) *PlayerGameState {
	seed := GenerateSeed(playerID, roomID)
	bag := bagForBagNumber(seed, 1)
	return &PlayerGameState{
		PlayerID:     playerID,
		RoomID:       roomID,
		Board:        core.NewBoard(),
		NextPiece:    core.NewPiece(bag[0]),
		CanHold:      true,
		GameSeed:     seed,
		TetrominoBag: bag,
		BagIndex:     1,
		BagNumber:    1,
	}
}

// StartGame performs the start transition: materializes the current and
// next piece from bag 1, computes the initial ghost, and flips gameStarted.
// The caller is responsible for starting the gravity ticker afterward.
func (s *PlayerGameState) StartGame() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GameStarted {
		return apperr.InvalidGameState("game already started")
	}
	s.CurrentPiece = core.NewPiece(s.TetrominoBag[0])
	s.NextPiece = core.NewPiece(s.TetrominoBag[1])
	s.BagIndex = 2
	s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
	s.GameStarted = true
	s.CanHold = true
	return nil
}

// drawPiece pulls the next piece type from the 7-bag, regenerating a fresh
// bag from gameSeed+bagNumber whenever the current bag is exhausted.
func (s *PlayerGameState) drawPiece() *core.Piece {
	if s.BagIndex < 0 || s.BagIndex >= len(s.TetrominoBag) {
		s.BagNumber++
		s.TetrominoBag = bagForBagNumber(s.GameSeed, s.BagNumber)
		s.BagIndex = 0
	}
	t := s.TetrominoBag[s.BagIndex]
	s.BagIndex++
	return core.NewPiece(t)
}

// ActionResult reports what ApplyAction did, so callers (gravity ticker,
// session/gateway) know whether to restart the drop timer or push a broadcast.
type ActionResult struct {
	Locked       bool // the active piece was merged into the board this call
	LevelChanged bool // level changed as a result of a lock this call
}

// ApplyAction runs one client (or auto-drop) action against the state.
// Unrecognized actions return apperr.InvalidAction; everything else is a
// no-op recorded in the returned ActionResult when it cannot be applied.
func (s *PlayerGameState) ApplyAction(action Action) (ActionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsGameOver {
		log.Printf("[player %s] action %q ignored: game over", s.PlayerID, action)
		return ActionResult{}, nil
	}
	if !s.GameStarted || s.CurrentPiece == nil {
		return ActionResult{}, apperr.InvalidGameState("game not started")
	}

	switch action {
	case ActionMoveLeft:
		if s.Board.IsValid(s.CurrentPiece, -1, 0) {
			s.CurrentPiece.X--
			s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
		}
		return ActionResult{}, nil

	case ActionMoveRight:
		if s.Board.IsValid(s.CurrentPiece, 1, 0) {
			s.CurrentPiece.X++
			s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
		}
		return ActionResult{}, nil

	case ActionMoveDown:
		if s.Board.IsValid(s.CurrentPiece, 0, 1) {
			s.CurrentPiece.Y++
			s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
			return ActionResult{}, nil
		}
		changed := s.lock()
		return ActionResult{Locked: true, LevelChanged: changed}, nil

	case ActionRotate:
		kicked, err := s.Board.RotateWithWallKick(s.CurrentPiece)
		if err == nil {
			s.CurrentPiece = kicked
			s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
		}
		return ActionResult{}, nil

	case ActionHardDrop:
		dropped, distance := s.Board.HardDrop(s.CurrentPiece)
		s.CurrentPiece = dropped
		s.Score += core.HardDropBonus(s.Level, distance)
		changed := s.lock()
		return ActionResult{Locked: true, LevelChanged: changed}, nil

	case ActionHold:
		s.applyHold()
		return ActionResult{}, nil

	default:
		return ActionResult{}, apperr.InvalidAction(string(action))
	}
}

// lock merges the active piece into the board, clears lines, updates score
// and level, spawns the next piece, and re-evaluates game over. It returns
// whether the level changed, which tells the caller to restart the gravity
// ticker with the new interval.
func (s *PlayerGameState) lock() bool {
	prevLevel := s.Level

	s.Board.MergePiece(s.CurrentPiece)
	cleared, n := s.Board.ClearLines()
	s.Board = cleared
	s.Score += core.Score(n, s.Level)
	s.LinesCleared += n
	s.Level = core.Level(s.LinesCleared)

	s.CurrentPiece = s.NextPiece
	s.NextPiece = s.drawPiece()
	s.CanHold = true

	if s.CurrentPiece != nil {
		s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
	}
	s.IsGameOver = s.Board.IsGameOver()

	return s.Level != prevLevel
}

// applyHold swaps the held piece with the current one, or (on first use)
// stashes the current piece and draws a fresh current from the queue.
func (s *PlayerGameState) applyHold() {
	if !s.CanHold {
		return
	}
	if s.HeldPiece == nil {
		s.HeldPiece = core.NewPiece(s.CurrentPiece.Type)
		s.CurrentPiece = s.NextPiece
		s.NextPiece = s.drawPiece()
	} else {
		heldType := s.HeldPiece.Type
		curType := s.CurrentPiece.Type
		s.HeldPiece = core.NewPiece(curType)
		s.CurrentPiece = core.NewPiece(heldType)
	}
	s.CanHold = false
	s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
}

// Repair runs the server-initiated maintenance pass: rebuilds a missing
// ghost, drops a stray one, regenerates an out-of-range bag, and nudges a
// colliding current piece through the fallback spawn offsets before giving
// up and forcing a clean game over. It is never triggered by client input.
func (s *PlayerGameState) Repair() (forcedGameOver bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsGameOver {
		return false
	}
	if s.CurrentPiece == nil {
		s.GhostPiece = nil
		return false
	}
	if s.BagIndex < 0 || s.BagIndex > len(s.TetrominoBag) {
		s.TetrominoBag = bagForBagNumber(s.GameSeed, s.BagNumber)
		s.BagIndex = 0
	}
	if s.GhostPiece == nil {
		s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
	}
	if !s.Board.HasCollision(s.CurrentPiece, 0, 0) {
		return false
	}

	for _, off := range fallbackSpawnOffsets {
		candidate := s.CurrentPiece.Clone()
		candidate.X, candidate.Y = off[0], off[1]
		if s.Board.IsValid(candidate, 0, 0) {
			s.CurrentPiece = candidate
			s.GhostPiece = s.Board.Ghost(s.CurrentPiece)
			return false
		}
	}

	s.forceGameOver()
	return true
}

// forceGameOver clears the active/preview pieces and marks the state over,
// without running the persistence pipeline (see HandleGameOver for that).
func (s *PlayerGameState) forceGameOver() {
	s.CurrentPiece = nil
	s.GhostPiece = nil
	s.NextPiece = nil
	s.IsGameOver = true
}

// ResultPersister durably records a finished player's aggregate stats.
type ResultPersister interface {
	PersistResult(ctx context.Context, playerID string, score, level, linesCleared int) error
}

// Publisher fans out a fire-and-forget message on a pub/sub channel.
type Publisher interface {
	Publish(ctx context.Context, channel, payload string) error
}

// HandleGameOver runs the game-over pipeline: stop the caller-owned ticker,
// persist final stats, publish the terminal events on the room and player
// topics, then clear the in-memory state.
func (s *PlayerGameState) HandleGameOver(ctx context.Context, persister ResultPersister, publisher Publisher, stopTicker func()) {
	s.mu.Lock()
	score, level, lines := s.Score, s.Level, s.LinesCleared
	playerID, roomID := s.PlayerID, s.RoomID
	s.mu.Unlock()

	if stopTicker != nil {
		stopTicker()
	}

	if persister != nil {
		if err := persister.PersistResult(ctx, playerID, score, level, lines); err != nil {
			log.Printf("[player %s] failed to persist final result: %v", playerID, err)
		}
	}
	if publisher != nil {
		roomMsg := encodeGameOverEvent(playerID, score, level, lines)
		if err := publisher.Publish(ctx, "player_state_changed:"+roomID, roomMsg); err != nil {
			log.Printf("[player %s] failed to publish playerGameOver on room %s: %v", playerID, roomID, err)
		}
		playerMsg := encodeTerminalStateEvent(score, level, lines)
		if err := publisher.Publish(ctx, "game_state_update:"+playerID, playerMsg); err != nil {
			log.Printf("[player %s] failed to publish terminal state: %v", playerID, err)
		}
	}

	s.mu.Lock()
	s.clear()
	s.mu.Unlock()
}

func (s *PlayerGameState) clear() {
	s.Board = core.NewBoard()
	s.CurrentPiece = nil
	s.NextPiece = nil
	s.HeldPiece = nil
	s.GhostPiece = nil
	s.Score = 0
	s.LinesCleared = 0
	s.Level = 0
	s.IsGameOver = true
	s.GameStarted = false
}

// Over reports whether the state has transitioned to game over, taking the
// lock just long enough to read the flag.
func (s *PlayerGameState) Over() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.IsGameOver
}

// CurrentLevel reads the level under lock, for callers (the gravity
// scheduler) that need it outside of an ApplyAction call.
func (s *PlayerGameState) CurrentLevel() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Level
}

// Snapshot is the JSON-friendly, lock-free projection of a PlayerGameState
// sent to clients. It is always derived fresh — never cached stale — the
// same discipline the teacher's lightweight broadcast structs followed.
type Snapshot struct {
	PlayerID     string     `json:"playerId"`
	Board        core.Board `json:"board"`
	CurrentPiece *core.Piece `json:"currentPiece"`
	NextPiece    *core.Piece `json:"nextPiece"`
	HeldPiece    *core.Piece `json:"heldPiece"`
	GhostPiece   *core.Piece `json:"ghostPiece"`
	Score        int        `json:"score"`
	LinesCleared int        `json:"linesCleared"`
	Level        int        `json:"level"`
	IsGameOver   bool       `json:"isGameOver"`
	GameStarted  bool       `json:"gameStarted"`
	CanHold      bool       `json:"canHold"`
}

// ToSnapshot takes the lock just long enough to copy out a consistent view.
func (s *PlayerGameState) ToSnapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		PlayerID:     s.PlayerID,
		Board:        s.Board,
		CurrentPiece: s.CurrentPiece,
		NextPiece:    s.NextPiece,
		HeldPiece:    s.HeldPiece,
		GhostPiece:   s.GhostPiece,
		Score:        s.Score,
		LinesCleared: s.LinesCleared,
		Level:        s.Level,
		IsGameOver:   s.IsGameOver,
		GameStarted:  s.GameStarted,
		CanHold:      s.CanHold,
	}
}
