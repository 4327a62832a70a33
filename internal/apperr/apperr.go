// Package apperr defines the error taxonomy shared by the room, player and
// gateway layers. Every error surfaced to a client carries a stable code and
// a human-readable message, matching the {success:false,error:{code,message}}
// envelope the session/gateway layer emits.
package apperr

import (
	"errors"
	"fmt"
)

// Code is one of the fixed error kinds in the taxonomy.
type Code string

const (
	CodeValidation             Code = "VALIDATION"
	CodeRoomNotFound           Code = "ROOM_NOT_FOUND"
	CodeRoomNotAcceptingPlayers Code = "ROOM_NOT_ACCEPTING_PLAYERS"
	CodeRoomFull               Code = "ROOM_FULL"
	CodeCannotStart            Code = "CANNOT_START"
	CodePlayerNotFound         Code = "PLAYER_NOT_FOUND"
	CodePlayerAlreadyInGame    Code = "PLAYER_ALREADY_IN_GAME"
	CodeInvalidGameState       Code = "INVALID_GAME_STATE"
	CodeInvalidAction          Code = "INVALID_ACTION"
	CodeTetrisLogic            Code = "TETRIS_LOGIC"
	CodeStoreError             Code = "STORE_ERROR"
	CodeInternal               Code = "INTERNAL"
)

// Error is the concrete error type carried through the stack. Field holds an
// optional per-field validation detail; it is empty for every other code.
type Error struct {
	Code    Code
	Message string
	Field   string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field=%s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// New builds a taxonomy error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf builds a taxonomy error with a formatted message.
func Newf(code Code, format string, args ...interface{}) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Validation builds a field-level validation error.
func Validation(field, message string) *Error {
	return &Error{Code: CodeValidation, Message: message, Field: field}
}

// RoomNotFound is returned when a room ID does not resolve to a live room.
func RoomNotFound(roomID string) *Error {
	return Newf(CodeRoomNotFound, "room %q not found", roomID)
}

// RoomFull reports that a room is at capacity. JoinGameAuto does not return
// it: when every known room is full it creates a new room instead.
func RoomFull(roomID string) *Error {
	return Newf(CodeRoomFull, "room %q is full", roomID)
}

// RoomNotAcceptingPlayers is returned when a room exists but its status
// rejects new joins (e.g. already finished).
func RoomNotAcceptingPlayers(roomID string) *Error {
	return Newf(CodeRoomNotAcceptingPlayers, "room %q is not accepting players", roomID)
}

// CannotStart is returned when startRoomGame is called on a room whose
// status does not permit starting (e.g. already PLAYING).
func CannotStart(roomID string) *Error {
	return Newf(CodeCannotStart, "room %q cannot be started from its current status", roomID)
}

// PlayerNotFound is returned when a player ID does not resolve.
func PlayerNotFound(playerID string) *Error {
	return Newf(CodePlayerNotFound, "player %q not found", playerID)
}

// PlayerAlreadyInGame is returned when a player tries to join a second room
// while already seated in one.
func PlayerAlreadyInGame(playerID string) *Error {
	return Newf(CodePlayerAlreadyInGame, "player %q is already in a game", playerID)
}

// InvalidGameState is returned when an operation is attempted against a
// PlayerGameState that is not in a state that permits it.
func InvalidGameState(reason string) *Error {
	return New(CodeInvalidGameState, reason)
}

// InvalidAction is returned when a client sends an action outside the closed
// {moveLeft,moveRight,moveDown,rotate,hardDrop,hold} enum.
func InvalidAction(action string) *Error {
	return Newf(CodeInvalidAction, "unrecognized action %q", action)
}

// TetrisLogic wraps a failure from the pure board/piece engine (e.g. a
// rotation that could not be reconciled even through repair operations).
func TetrisLogic(err error) *Error {
	return Newf(CodeTetrisLogic, "%v", err)
}

// StoreError wraps an underlying state-store failure.
func StoreError(err error) *Error {
	return Newf(CodeStoreError, "%v", err)
}

// Internal wraps anything outside the taxonomy; callers log it with a stack
// and return this generic code to the client.
func Internal(err error) *Error {
	return Newf(CodeInternal, "%v", err)
}

// As reports whether err is (or wraps) an *Error and returns it.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
