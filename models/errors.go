package models

import "errors"

// Game errors
var (
	ErrRoomNotFound      = errors.New("room not found")
	ErrPlayerNotFound    = errors.New("player not found in room")
	ErrRoomFull          = errors.New("room is full")
	ErrInvalidSelection  = errors.New("invalid selection - must sum to 10")
	ErrRoomNotStartable  = errors.New("need at least 2 players to start the game")
	ErrInvalidMaxPlayers = errors.New("max players must be between 1 and 4")
	ErrInvalidName       = errors.New("name must not be blank")
	ErrRoomNameTaken     = errors.New("room name already taken")
	ErrPlayerNameTaken   = errors.New("player name already taken in room")
	ErrGameFinished      = errors.New("game already finished")
)
