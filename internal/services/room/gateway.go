package room

import (
	"encoding/json"

	"github.com/tetris-battle/engine/internal/apperr"
	"github.com/tetris-battle/engine/internal/services/tetris"
)

// Gateway wires a Manager to a tetris.SessionManager: it turns each
// tetris.InboundMessage into the matching Manager call and writes back a
// tetris.OutboundMessage, per the closed client message set (spec §6.1).
//
// The room-scoped player id minted by joinAutoRoom travels explicitly in
// every subsequent payload (leaveAutoRoom, handlePlayerInput and
// getPlayerGameState all carry playerId, per the wire table) — it is never
// inferred from client.PlayerID, which is the transport-level identity
// (the JWT subject) set once at connect and unrelated to room membership.
type Gateway struct {
	manager *Manager
	sm      *tetris.SessionManager
}

// NewGateway binds a Manager to the connection layer that will dispatch
// into it.
func NewGateway(manager *Manager, sm *tetris.SessionManager) *Gateway {
	return &Gateway{manager: manager, sm: sm}
}

// Dispatch implements the func(*tetris.Client, tetris.InboundMessage)
// signature RegisterClient expects.
func (g *Gateway) Dispatch(client *tetris.Client, msg tetris.InboundMessage) {
	var resp tetris.OutboundMessage
	switch msg.Type {
	case "joinAutoRoom":
		resp = g.joinAutoRoom(client, msg)
	case "leaveAutoRoom":
		resp = g.leaveAutoRoom(client, msg)
	case "handlePlayerInput":
		resp = g.handlePlayerInput(client, msg)
	case "getPlayerGameState":
		resp = g.getPlayerGameState(client, msg)
	case "getRoomPlayers":
		resp = g.getRoomPlayers(client, msg)
	case "getRoomInfo":
		resp = g.getRoomInfo(client, msg)
	case "getRoomStats":
		resp = g.getRoomStats(client, msg)
	case "startRoomGame":
		resp = g.startRoomGame(client, msg)
	default:
		resp = tetris.ErrEnvelope(msg.Type, apperr.Validation("type", "unrecognized message type"))
	}
	client.SafeSend(tetris.Encode(resp))
}

type joinAutoRoomPayload struct {
	Name string `json:"name"`
}

func (g *Gateway) joinAutoRoom(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	var p joinAutoRoomPayload
	_ = json.Unmarshal(msg.Payload, &p)
	if p.Name == "" {
		p.Name = client.PlayerID
	}

	r, player, err := g.manager.JoinGameAuto(p.Name)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}

	// client.RoomID tracks the connection's room for fan-out routing
	// (BroadcastToRoom); the room-scoped player.ID returned here is what
	// the client must echo back as playerId in every following message.
	client.SetRoom(r.ID)
	return tetris.OkEnvelope(msg.Type, map[string]interface{}{
		"roomId": r.ID,
		"room":   r,
		"player": player,
	})
}

type leaveAutoRoomPayload struct {
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
}

func (g *Gateway) leaveAutoRoom(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	var p leaveAutoRoomPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.RoomID == "" || p.PlayerID == "" {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("playerId", "roomId and playerId are required"))
	}
	if err := g.manager.LeaveGameAuto(p.RoomID, p.PlayerID); err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}
	if current, ok := client.CurrentRoom(); ok && current == p.RoomID {
		client.SetRoom("")
	}
	return tetris.OkEnvelope(msg.Type, map[string]interface{}{"left": true})
}

type handlePlayerInputPayload struct {
	PlayerID string `json:"playerId"`
	Action   string `json:"action"`
}

func (g *Gateway) handlePlayerInput(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	var p handlePlayerInputPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.PlayerID == "" {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("playerId", "playerId is required"))
	}
	action, ok := tetris.ParseAction(p.Action)
	if !ok {
		return tetris.ErrEnvelope(msg.Type, apperr.InvalidAction(p.Action))
	}

	state, err := g.manager.GetPlayerGameState(p.PlayerID)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}

	result, err := state.ApplyAction(action)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}

	if result.Locked {
		g.manager.OnPlayerLocked(p.PlayerID, state)
	}
	g.manager.MirrorGame(p.PlayerID)

	return tetris.OkEnvelope(msg.Type, state.ToSnapshot())
}

type playerIDPayload struct {
	PlayerID string `json:"playerId"`
}

func (g *Gateway) getPlayerGameState(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	var p playerIDPayload
	if err := json.Unmarshal(msg.Payload, &p); err != nil || p.PlayerID == "" {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("playerId", "playerId is required"))
	}
	state, err := g.manager.GetPlayerGameState(p.PlayerID)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}
	return tetris.OkEnvelope(msg.Type, state.ToSnapshot())
}

type roomIDPayload struct {
	RoomID string `json:"roomId"`
}

func (g *Gateway) resolveRoomID(client *tetris.Client, msg tetris.InboundMessage) (string, bool) {
	var p roomIDPayload
	_ = json.Unmarshal(msg.Payload, &p)
	if p.RoomID != "" {
		return p.RoomID, true
	}
	return client.CurrentRoom()
}

func (g *Gateway) getRoomPlayers(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	roomID, ok := g.resolveRoomID(client, msg)
	if !ok {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("roomId", "no room specified or joined"))
	}
	players, err := g.manager.GetRoomPlayers(roomID)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}
	return tetris.OkEnvelope(msg.Type, players)
}

func (g *Gateway) getRoomInfo(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	roomID, ok := g.resolveRoomID(client, msg)
	if !ok {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("roomId", "no room specified or joined"))
	}
	info, err := g.manager.GetRoomInfo(roomID)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}
	return tetris.OkEnvelope(msg.Type, info)
}

func (g *Gateway) getRoomStats(_ *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	return tetris.OkEnvelope(msg.Type, g.manager.GetRoomStats())
}

func (g *Gateway) startRoomGame(client *tetris.Client, msg tetris.InboundMessage) tetris.OutboundMessage {
	roomID, ok := g.resolveRoomID(client, msg)
	if !ok {
		return tetris.ErrEnvelope(msg.Type, apperr.Validation("roomId", "no room specified or joined"))
	}
	r, err := g.manager.StartRoomGame(roomID)
	if err != nil {
		return tetris.ErrEnvelope(msg.Type, err)
	}
	return tetris.OkEnvelope(msg.Type, map[string]interface{}{
		"roomId":   r.ID,
		"gameSeed": r.RoomSeed,
	})
}
