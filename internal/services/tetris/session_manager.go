package tetris

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tetris-battle/engine/internal/apperr"
	"github.com/tetris-battle/engine/internal/store"
)

// Client is a single connected player's WebSocket session. One Client exists
// per live connection; RoomID/joined are set once joinAutoRoom succeeds.
type Client struct {
	PlayerID string
	Conn     *websocket.Conn
	Send     chan []byte

	mu     sync.Mutex
	RoomID string
	joined bool
	closed bool
}

// SafeSend writes to the client's outbound channel without panicking on a
// channel that has already been closed by SafeClose.
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- message:
		return true
	default:
		return false
	}
}

// SafeClose closes the outbound channel at most once.
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

// SetRoom records which room a client belongs to once joinAutoRoom (or
// leaveAutoRoom) changes its assignment.
func (c *Client) SetRoom(roomID string) {
	c.mu.Lock()
	c.RoomID = roomID
	c.joined = roomID != ""
	c.mu.Unlock()
}

// CurrentRoom reports the room a client is currently assigned to, if any.
func (c *Client) CurrentRoom() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.RoomID, c.joined
}

// InboundMessage is the envelope every client message arrives wrapped in,
// per the closed message set (joinAutoRoom, leaveAutoRoom,
// handlePlayerInput, getPlayerGameState, getRoomPlayers, getRoomInfo,
// getRoomStats, startRoomGame). Anything outside this set is rejected by
// the dispatcher the caller supplies to RegisterClient.
type InboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// OutboundMessage is the response envelope: {success:true, type, data} on
// success, {success:false, type, error:{code,message}} on failure.
type OutboundMessage struct {
	Type    string      `json:"type"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody is the {code,message} pair carried by a failed OutboundMessage.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrEnvelope builds a failure OutboundMessage, mapping a taxonomy *apperr.Error
// to its stable code or falling back to CodeInternal for anything else.
func ErrEnvelope(msgType string, err error) OutboundMessage {
	if e, ok := apperr.As(err); ok {
		return OutboundMessage{Type: msgType, Success: false, Error: &ErrorBody{Code: string(e.Code), Message: e.Message}}
	}
	return OutboundMessage{Type: msgType, Success: false, Error: &ErrorBody{Code: string(apperr.CodeInternal), Message: err.Error()}}
}

// OkEnvelope builds a success OutboundMessage carrying data.
func OkEnvelope(msgType string, data interface{}) OutboundMessage {
	return OutboundMessage{Type: msgType, Success: true, Data: data}
}

// Encode marshals an OutboundMessage, falling back to a generic internal
// error frame if the data itself somehow fails to encode.
func Encode(msg OutboundMessage) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		return []byte(`{"success":false,"error":{"code":"INTERNAL","message":"encode failure"}}`)
	}
	return b
}

// SessionManager is the session/gateway layer: it owns every live WebSocket
// connection, dispatches the closed inbound message set to the room
// manager, and forwards the four pub/sub fan-out topics back out to the
// clients subscribed to them. It holds no game rules of its own.
type SessionManager struct {
	mu      sync.RWMutex
	clients map[string]*Client // keyed by playerID

	quit     chan struct{}
	quitOnce sync.Once
}

// NewSessionManager constructs an empty gateway. Call StartFanOut once a
// state store is available to begin routing pub/sub fan-out to clients.
func NewSessionManager() *SessionManager {
	return &SessionManager{
		clients: make(map[string]*Client),
		quit:    make(chan struct{}),
	}
}

// RegisterClient installs a new WebSocket connection under playerID,
// replacing any prior connection for the same player, and starts its
// read/write pumps.
func (sm *SessionManager) RegisterClient(playerID string, conn *websocket.Conn, dispatch func(*Client, InboundMessage)) *Client {
	sm.mu.Lock()
	if existing, ok := sm.clients[playerID]; ok {
		existing.SafeClose()
		if existing.Conn != nil {
			existing.Conn.Close()
		}
	}
	client := &Client{
		PlayerID: playerID,
		Conn:     conn,
		Send:     make(chan []byte, 256),
	}
	sm.clients[playerID] = client
	sm.mu.Unlock()

	conn.SetReadLimit(4096)
	conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		return nil
	})

	go sm.readPump(client, dispatch)
	go client.writePump()

	return client
}

// readPump decodes one inboundMessage per frame and hands it to dispatch.
// Malformed frames are rejected in place rather than dropping the
// connection, matching the teacher's tolerant-reader stance.
func (sm *SessionManager) readPump(client *Client, dispatch func(*Client, InboundMessage)) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[gateway] panic in readPump for %s: %v", client.PlayerID, r)
		}
		sm.unregister(client)
	}()

	for {
		_, raw, err := client.Conn.ReadMessage()
		if err != nil {
			return
		}
		if len(raw) == 0 {
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			client.SafeSend(Encode(ErrEnvelope("unknown", apperr.Validation("payload", "malformed JSON"))))
			continue
		}
		dispatch(client, msg)
	}
}

// writePump is unchanged from the teacher's shape: drain Send onto the
// socket, and keep the connection alive with a periodic ping.
func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		if c.Conn != nil {
			c.Conn.Close()
		}
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[gateway] write error for %s: %v", c.PlayerID, err)
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// unregister removes a disconnected client, but only if it is still the
// registered instance for that player ID (guards against a stale goroutine
// evicting a newer connection for the same player).
func (sm *SessionManager) unregister(client *Client) {
	sm.mu.Lock()
	if current, ok := sm.clients[client.PlayerID]; ok && current == client {
		delete(sm.clients, client.PlayerID)
	}
	sm.mu.Unlock()
	client.SafeClose()
}

// SendTo delivers a pre-encoded payload to one player's connection, if they
// are currently connected. Used for the per-player fan-out topics
// (game_state_update:{playerId}, game_started:{playerId}).
func (sm *SessionManager) SendTo(playerID string, payload []byte) {
	sm.mu.RLock()
	client, ok := sm.clients[playerID]
	sm.mu.RUnlock()
	if !ok {
		return
	}
	client.SafeSend(payload)
}

// BroadcastToRoom delivers a pre-encoded payload to every connected client
// currently assigned to roomID. Used for the room-wide fan-out topics
// (player_state_changed:{roomId}, room_state_update:{roomId}).
func (sm *SessionManager) BroadcastToRoom(roomID string, payload []byte) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for _, client := range sm.clients {
		if rid, ok := client.CurrentRoom(); ok && rid == roomID {
			client.SafeSend(payload)
		}
	}
}

// StartFanOut subscribes once to every outbound pub/sub topic pattern
// (spec §4.7) and routes each message to the right client(s) by channel
// name. Call once at startup; each subscription runs in its own goroutine
// until ctx is cancelled, and StartFanOut itself returns immediately.
func (sm *SessionManager) StartFanOut(ctx context.Context, ps store.Store) {
	patterns := []string{
		store.PatternGameStateUpdate,
		store.PatternGameStarted,
		store.PatternPlayerStateChanged,
		store.PatternRoomStateUpdate,
	}
	for _, pattern := range patterns {
		pattern := pattern
		go func() {
			err := ps.Subscribe(ctx, pattern, func(msg store.Message) {
				sm.routeFanOut(msg.Channel, msg.Payload)
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("[gateway] subscribe to %s ended: %v", pattern, err)
			}
		}()
	}
}

// routeFanOut dispatches one pub/sub message to the right client(s) based
// on its channel name's prefix.
func (sm *SessionManager) routeFanOut(channel, payload string) {
	switch {
	case strings.HasPrefix(channel, "game_state_update:"):
		sm.SendTo(strings.TrimPrefix(channel, "game_state_update:"), []byte(payload))
	case strings.HasPrefix(channel, "game_started:"):
		sm.SendTo(strings.TrimPrefix(channel, "game_started:"), []byte(payload))
	case strings.HasPrefix(channel, "player_state_changed:"):
		sm.BroadcastToRoom(strings.TrimPrefix(channel, "player_state_changed:"), []byte(payload))
	case strings.HasPrefix(channel, "room_state_update:"):
		sm.BroadcastToRoom(strings.TrimPrefix(channel, "room_state_update:"), []byte(payload))
	}
}

// Shutdown closes every connected client and stops accepting fan-out.
func (sm *SessionManager) Shutdown() {
	sm.quitOnce.Do(func() { close(sm.quit) })

	sm.mu.Lock()
	defer sm.mu.Unlock()
	for id, client := range sm.clients {
		client.SafeClose()
		if client.Conn != nil {
			client.Conn.Close()
		}
		delete(sm.clients, id)
	}
}

// IsConnected reports whether playerID currently has a live connection.
func (sm *SessionManager) IsConnected(playerID string) bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	_, ok := sm.clients[playerID]
	return ok
}

