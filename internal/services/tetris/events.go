package tetris

import (
	"encoding/json"
	"log"
)

// gameOverEvent is published on player_state_changed:{roomId} when a
// player's simulation ends.
type gameOverEvent struct {
	Type         string `json:"type"`
	PlayerID     string `json:"playerId"`
	Score        int    `json:"score"`
	Level        int    `json:"level"`
	LinesCleared int    `json:"linesCleared"`
}

// terminalStateEvent is published on game_state_update:{playerId} as the
// last message a player's own channel ever receives for that game.
type terminalStateEvent struct {
	GameOver     bool `json:"gameOver"`
	Score        int  `json:"score"`
	Level        int  `json:"level"`
	LinesCleared int  `json:"linesCleared"`
}

func encodeGameOverEvent(playerID string, score, level, lines int) string {
	b, err := json.Marshal(gameOverEvent{
		Type:         "playerGameOver",
		PlayerID:     playerID,
		Score:        score,
		Level:        level,
		LinesCleared: lines,
	})
	if err != nil {
		log.Printf("[events] failed to encode playerGameOver for %s: %v", playerID, err)
		return "{}"
	}
	return string(b)
}

func encodeTerminalStateEvent(score, level, lines int) string {
	b, err := json.Marshal(terminalStateEvent{
		GameOver:     true,
		Score:        score,
		Level:        level,
		LinesCleared: lines,
	})
	if err != nil {
		log.Printf("[events] failed to encode terminal state: %v", err)
		return "{}"
	}
	return string(b)
}
