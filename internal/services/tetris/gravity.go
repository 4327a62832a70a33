package tetris

import (
	"log"
	"sync"
	"time"

	core "github.com/tetris-battle/engine/internal/models/tetris"
)

// Scheduler owns exactly one logical drop ticker per live player, keyed by
// player ID. Every (re)start cancels whatever ticker previously existed for
// that player before installing the new one, so cancellation and restart
// are both idempotent and O(1) regardless of how many times they're called.
type Scheduler struct {
	mu     sync.Mutex
	timers map[string]*tickerEntry
}

type tickerEntry struct {
	timer      *time.Timer
	generation uint64
}

// NewScheduler returns an empty gravity scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{timers: make(map[string]*tickerEntry)}
}

// Start installs (or restarts) the ticker for playerID at the state's
// current level's drop interval. onGameOver is invoked once, on the timer's
// goroutine after the player's ticker has been cancelled and with the
// scheduler lock released, when an auto-drop lock transitions the player to
// game over.
func (s *Scheduler) Start(playerID string, state *PlayerGameState, onGameOver func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var gen uint64
	if prev, ok := s.timers[playerID]; ok {
		gen = prev.generation
	}
	s.startLocked(playerID, state, onGameOver, gen)
}

// startLocked must be called with s.mu held. gen is the generation of the
// ticker being replaced (0 for a brand-new player).
func (s *Scheduler) startLocked(playerID string, state *PlayerGameState, onGameOver func(), gen uint64) {
	if prev, ok := s.timers[playerID]; ok && prev.timer != nil {
		prev.timer.Stop()
	}
	newGen := gen + 1
	entry := &tickerEntry{generation: newGen}
	interval := time.Duration(core.DropInterval(state.CurrentLevel())) * time.Millisecond
	entry.timer = time.AfterFunc(interval, func() {
		s.tick(playerID, state, onGameOver, newGen)
	})
	s.timers[playerID] = entry
}

// tick performs one auto-drop. If the generation no longer matches (the
// ticker was cancelled or restarted since this callback was scheduled) it is
// a stale fire and does nothing.
func (s *Scheduler) tick(playerID string, state *PlayerGameState, onGameOver func(), gen uint64) {
	s.mu.Lock()
	current, ok := s.timers[playerID]
	if !ok || current.generation != gen {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	result, err := state.ApplyAction(ActionMoveDown)
	if err != nil {
		log.Printf("[gravity %s] auto-drop failed: %v", playerID, err)
	}

	if result.Locked && state.Over() {
		s.Cancel(playerID)
		if onGameOver != nil {
			onGameOver()
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok = s.timers[playerID]
	if !ok || current.generation != gen {
		return // cancelled or restarted concurrently while we were off-lock
	}
	s.startLocked(playerID, state, onGameOver, gen)
}

// Cancel stops and removes playerID's ticker, if any. Safe to call on a
// player with no ticker (idempotent).
func (s *Scheduler) Cancel(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry, ok := s.timers[playerID]; ok {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.timers, playerID)
	}
}

// Shutdown cancels every outstanding ticker. Called once on process
// shutdown so no goroutine outlives the server.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.timers {
		if entry.timer != nil {
			entry.timer.Stop()
		}
		delete(s.timers, id)
	}
}

// Active reports whether playerID currently has a live ticker. Exposed for
// tests verifying the "each alive player has exactly one ticker" invariant.
func (s *Scheduler) Active(playerID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[playerID]
	return ok
}
