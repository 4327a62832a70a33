package room

import (
	"encoding/json"
	"log"
	"time"
)

// roomGameStartedEvent is published on game_started:{playerId} once per
// seated player when startRoomGame flips a room to PLAYING.
type roomGameStartedEvent struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	GameSeed int32  `json:"gameSeed"`
}

func encodeRoomGameStartedEvent(roomID, playerID string, seed int32) string {
	b, err := json.Marshal(roomGameStartedEvent{
		Type:     "roomGameStarted",
		RoomID:   roomID,
		PlayerID: playerID,
		GameSeed: seed,
	})
	if err != nil {
		log.Printf("[room] failed to encode roomGameStarted for %s: %v", playerID, err)
		return "{}"
	}
	return string(b)
}

// roomStateUpdateEvent is published on room_state_update:{roomId} whenever
// getRoomInfo serves a snapshot, per spec §6.2's roomStateUpdate shape.
type roomStateUpdateEvent struct {
	Type        string    `json:"type"`
	RoomID      string    `json:"roomId"`
	RoomInfo    *Room     `json:"roomInfo"`
	PlayerCount int       `json:"playerCount"`
	Timestamp   time.Time `json:"timestamp"`
}

func encodeRoomStateUpdateEvent(r *Room) string {
	b, err := json.Marshal(roomStateUpdateEvent{
		Type:        "roomStateUpdate",
		RoomID:      r.ID,
		RoomInfo:    r,
		PlayerCount: r.CurrentPlayers,
		Timestamp:   time.Now(),
	})
	if err != nil {
		log.Printf("[room] failed to encode roomStateUpdate for %s: %v", r.ID, err)
		return "{}"
	}
	return string(b)
}
