package memory

import (
	"context"
	"fmt"
	"sync"

	"party-quiz-service/internal/app"
	"party-quiz-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRegistry.
type RoomStore struct {
	mu       sync.RWMutex
	rooms    map[string]*app.Room
	nextCode app.CodeGenerator
}

// RoomStoreOption customises a RoomStore.
type RoomStoreOption func(*RoomStore)

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(gen app.CodeGenerator) RoomStoreOption {
	return func(s *RoomStore) { s.nextCode = gen }
}

func NewRoomStore(opts ...RoomStoreOption) *RoomStore {
	s := &RoomStore{
		rooms:    make(map[string]*app.Room),
		nextCode: app.NewRandomCodeGenerator(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create draws codes until a free one is found, retrying on collision.
func (s *RoomStore) Create(_ context.Context, hostID string, settings domain.RoomSettings) (*app.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for attempt := 0; attempt < app.MaxCodeAttempts; attempt++ {
		code := s.nextCode()
		if _, taken := s.rooms[code]; taken {
			continue
		}
		room := app.NewRoom(code, hostID, settings)
		s.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("no free room code after %d attempts", app.MaxCodeAttempts)
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *RoomStore) List() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		out = append(out, room)
	}
	return out
}
