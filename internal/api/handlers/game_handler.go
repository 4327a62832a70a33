package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"

	"github.com/tetris-battle/engine/internal/services/room"
	"github.com/tetris-battle/engine/internal/services/tetris"
)

// upgrader configures the HTTP→WebSocket handshake. CheckOrigin allows every
// origin, matching the teacher's dev-mode stance; a production deployment
// would scope this to the frontend's own origin.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameHandler upgrades incoming connections to WebSocket and binds each one
// to the session/gateway layer. Room assignment itself happens entirely
// over the closed WebSocket message set (joinAutoRoom, etc.), not via REST.
type GameHandler struct {
	sessionManager *tetris.SessionManager
	gateway        *room.Gateway
}

// NewGameHandler wires a GameHandler against the connection layer and the
// room manager's dispatcher.
func NewGameHandler(sm *tetris.SessionManager, gw *room.Gateway) *GameHandler {
	return &GameHandler{sessionManager: sm, gateway: gw}
}

// HandleWebSocketConnection upgrades the connection, runs the inline auth
// handshake (the client's first frame must be {"type":"auth","token":...}),
// then hands the connection to the session manager. From there the client
// drives everything else through joinAutoRoom/handlePlayerInput/etc.
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] websocket upgrade failed: %v", err)
		return
	}

	userID, ok := authenticateHandshake(conn)
	if !ok {
		conn.Close()
		return
	}

	conn.SetReadDeadline(time.Time{})
	h.sessionManager.RegisterClient(userID, conn, h.gateway.Dispatch)
}

// authenticateHandshake waits (up to 10s) for the client's first frame to be
// an auth message carrying a JWT, and returns the authenticated player ID.
func authenticateHandshake(conn *websocket.Conn) (string, bool) {
	conn.SetReadDeadline(time.Now().Add(10 * time.Second))

	_, message, err := conn.ReadMessage()
	if err != nil {
		log.Printf("[GameHandler] failed to read auth frame: %v", err)
		return "", false
	}

	var authMsg struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	if err := json.Unmarshal(message, &authMsg); err != nil || authMsg.Type != "auth" {
		conn.WriteJSON(map[string]string{"error": "expected an auth message"})
		return "", false
	}

	userID, err := parseAndVerifyToken(authMsg.Token)
	if err != nil {
		log.Printf("[GameHandler] auth failed: %v", err)
		conn.WriteJSON(map[string]string{"error": "invalid token"})
		return "", false
	}

	conn.WriteJSON(map[string]string{"type": "auth_success"})
	return userID, true
}

// parseAndVerifyToken validates a bearer JWT against SUPABASE_JWT_SECRET and
// extracts the player ID from its "sub" claim. BYPASS_AUTH is accepted only
// to keep local development unblocked without a running auth provider.
func parseAndVerifyToken(token string) (string, error) {
	if token == "BYPASS_AUTH" {
		return "dev-user", nil
	}

	secret := os.Getenv("SUPABASE_JWT_SECRET")
	if secret == "" {
		return "", fmt.Errorf("SUPABASE_JWT_SECRET is not configured")
	}

	tokenString := token
	if len(tokenString) > 7 && tokenString[:7] == "Bearer " {
		tokenString = tokenString[7:]
	}

	parsed, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("token parse/verify failed: %w", err)
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("unexpected claims type")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("token missing sub claim")
	}
	return sub, nil
}
