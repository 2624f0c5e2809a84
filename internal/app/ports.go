package app

import (
	"context"

	"party-quiz-service/internal/domain"
)

// RoomRegistry abstracts where rooms live (in-memory, Redis-reserved, etc).
// Create may block on I/O and is called without the service lock. Get, Delete
// and List run under it and must not block.
type RoomRegistry interface {
	Create(ctx context.Context, hostID string, settings domain.RoomSettings) (*Room, error)
	Get(code string) (*Room, bool)
	Delete(code string)
	List() []*Room
}

// QuizRepository loads stored quiz content (from cache/backing store).
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error)
}

// Broadcaster fans events out to every connection subscribed to a room channel.
// Implementations must not block.
type Broadcaster interface {
	Subscribe(connID, channel string)
	Unsubscribe(connID, channel string)
	Drop(channel string)
	Broadcast(channel, event string, payload any)
}

// ResultRecorder archives finished games.
type ResultRecorder interface {
	Record(ctx context.Context, result domain.GameResult) error
}
