package domain

import "errors"

var (
	// ErrInvalidCode is returned when a player joins with a code no room holds.
	ErrInvalidCode = errors.New("invalid room code")
	// ErrRoomNotFound is returned when a referenced room does not exist.
	ErrRoomNotFound = errors.New("room not found")
	// ErrNotHost is returned when a host-only action comes from another connection.
	ErrNotHost = errors.New("only the host can do that")
	// ErrNameTaken indicates a case-insensitive name collision within a room.
	ErrNameTaken = errors.New("name already in use")
	// ErrInvalidName indicates the name is empty after trimming.
	ErrInvalidName = errors.New("name is required")
	// ErrAlreadyInRoom is returned when a connection joins a room it already belongs to.
	ErrAlreadyInRoom = errors.New("already joined this room")
	// ErrPlayerNotRegistered is returned when a user tries to act before joining.
	ErrPlayerNotRegistered = errors.New("player not registered in room")
	// ErrAlreadyAnswered is returned on a second answer to the same question.
	ErrAlreadyAnswered = errors.New("already answered")
	// ErrQuestionClosed is returned when no question is accepting answers.
	ErrQuestionClosed = errors.New("question is not open for answers")
	// ErrRoomCreationFailed wraps any fault while building a room.
	ErrRoomCreationFailed = errors.New("could not create room")
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
)
