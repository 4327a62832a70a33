package store

import "fmt"

// Key namespace (spec §4.6). No vendor-specific naming leaks past this file:
// callers ask for "the room key" or "the player-game key", never a raw
// string they assembled themselves.

func RoomKey(roomID string) string         { return fmt.Sprintf("room:%s", roomID) }
func PlayerKey(playerID string) string      { return fmt.Sprintf("player:%s", playerID) }
func PlayerGameKey(playerID string) string  { return fmt.Sprintf("player_game:%s", playerID) }
func SocketKey(socketID string) string      { return fmt.Sprintf("socket:%s", socketID) }
func RoomPlayersKey(roomID string) string   { return fmt.Sprintf("game:%s:players", roomID) }

const (
	ActiveRoomsKey = "active_rooms"
	PlayersKey     = "players"
	GamesKey       = "games"
)

// Channel namespace (spec §4.6/§4.7). The gateway subscribes to the four
// pattern forms once at startup and never constructs a channel name any
// other way.

func ChannelGameStateUpdate(playerID string) string    { return "game_state_update:" + playerID }
func ChannelGameStarted(playerID string) string         { return "game_started:" + playerID }
func ChannelPlayerStateChanged(roomID string) string    { return "player_state_changed:" + roomID }
func ChannelRoomStateUpdate(roomID string) string        { return "room_state_update:" + roomID }
func ChannelLegacyGame(gameID string) string             { return "tetris:" + gameID }

const (
	PatternGameStateUpdate    = "game_state_update:*"
	PatternGameStarted        = "game_started:*"
	PatternPlayerStateChanged = "player_state_changed:*"
	PatternRoomStateUpdate    = "room_state_update:*"
)
