package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"party-quiz-service/internal/app"
	"party-quiz-service/internal/domain"
)

const releaseTimeout = 2 * time.Second

// RoomStore is a Redis-aware implementation of app.RoomRegistry.
// Notes:
//   - Live room state stays in a local map; timers and broadcast are in-process.
//   - Each access code is reserved with SET NX, so processes sharing a Redis never
//     hand out the same code twice. KeepAlive refreshes the reservations of live
//     rooms; the ttl only cleans up after a process that died without deleting them.
//   - No Redis call runs while the local map is locked.
type RoomStore struct {
	client   *redis.Client
	ttl      time.Duration
	nextCode app.CodeGenerator

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return NewRoomStoreWithGenerator(client, ttl, app.NewRandomCodeGenerator())
}

// NewRoomStoreWithGenerator is used by tests to force code collisions.
func NewRoomStoreWithGenerator(client *redis.Client, ttl time.Duration, gen app.CodeGenerator) *RoomStore {
	return &RoomStore{
		client:   client,
		ttl:      ttl,
		nextCode: gen,
		rooms:    make(map[string]*app.Room),
	}
}

// Create reserves a free code in Redis, then registers the room locally.
func (s *RoomStore) Create(ctx context.Context, hostID string, settings domain.RoomSettings) (*app.Room, error) {
	for attempt := 0; attempt < app.MaxCodeAttempts; attempt++ {
		code := s.nextCode()
		if _, taken := s.Get(code); taken {
			continue
		}
		reserved, err := s.client.SetNX(ctx, s.key(code), hostID, s.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("reserve room code: %w", err)
		}
		if !reserved {
			continue
		}
		room := app.NewRoom(code, hostID, settings)
		s.mu.Lock()
		s.rooms[code] = room
		s.mu.Unlock()
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

// Delete forgets the room at once and releases its code in the background.
func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	_, ok := s.rooms[code]
	delete(s.rooms, code)
	s.mu.Unlock()
	if !ok {
		return
	}
	go s.release(code)
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

// KeepAlive refreshes every live reservation until ctx is done.
func (s *RoomStore) KeepAlive(ctx context.Context) {
	if s.ttl <= 0 {
		return
	}
	ticker := time.NewTicker(s.ttl / 3)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.refresh(ctx)
		}
	}
}

func (s *RoomStore) refresh(ctx context.Context) {
	s.mu.RLock()
	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	s.mu.RUnlock()
	if len(codes) == 0 {
		return
	}

	cmds, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		for _, code := range codes {
			p.Expire(ctx, s.key(code), s.ttl)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Int("rooms", len(codes)).Msg("refresh room codes")
		return
	}
	for i, cmd := range cmds {
		if ok, _ := cmd.(*redis.BoolCmd).Result(); !ok {
			log.Warn().Str("room", codes[i]).Msg("room code reservation lost")
		}
	}
}

// release is best effort; the ttl cleans up if it fails.
func (s *RoomStore) release(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	if err := s.client.Del(ctx, s.key(code)).Err(); err != nil {
		log.Warn().Err(err).Str("room", code).Msg("release room code")
	}
}

func (s *RoomStore) key(code string) string {
	return "quiz:room:" + code
}
