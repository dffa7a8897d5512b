package game

import "errors"

// Command rejection errors. Their texts are sent to clients verbatim as
// the reason field of *_FAILURE frames, so the wording and punctuation
// are part of the wire protocol.
var (
	ErrLobbyFull       = errors.New("Lobby is full.")
	ErrInvalidNickname = errors.New("Invalid nickname.")
	ErrNicknameTaken   = errors.New("Nickname already exists.")
	ErrRegisterClosed  = errors.New("Cannot register. Game has already started.")
	ErrReadyClosed     = errors.New("Cannot ready up. Game has already started.")
	ErrUnreadyClosed   = errors.New("Cannot unready. Game has already started.")
	ErrNotAnswering    = errors.New("Not in answering phase.")
	ErrNotRegistered   = errors.New("You are not registered.")
)
