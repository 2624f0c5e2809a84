package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"party-quiz-service/internal/domain"
)

// DefaultAdvanceDelay is the pause between a reveal and the next question.
const DefaultAdvanceDelay = 3 * time.Second

const recordTimeout = 5 * time.Second

// QuizService contains the room use cases. Every handler and every timer callback
// runs under one mutex, so room mutations never interleave.
type QuizService struct {
	mu           sync.Mutex
	rooms        RoomRegistry
	events       Broadcaster
	binder       *Binder
	quizzes      QuizRepository
	results      ResultRecorder
	clock        clockwork.Clock
	advanceDelay time.Duration
}

// Option customises a QuizService.
type Option func(*QuizService)

// WithClock swaps the time source, mostly for tests.
func WithClock(clock clockwork.Clock) Option {
	return func(s *QuizService) { s.clock = clock }
}

func WithAdvanceDelay(d time.Duration) Option {
	return func(s *QuizService) {
		if d > 0 {
			s.advanceDelay = d
		}
	}
}

// WithQuizRepository lets hosts open rooms from stored quizzes.
func WithQuizRepository(quizzes QuizRepository) Option {
	return func(s *QuizService) { s.quizzes = quizzes }
}

// WithResultRecorder archives every finished game.
func WithResultRecorder(results ResultRecorder) Option {
	return func(s *QuizService) { s.results = results }
}

func NewQuizService(rooms RoomRegistry, events Broadcaster, opts ...Option) *QuizService {
	s := &QuizService{
		rooms:        rooms,
		events:       events,
		binder:       NewBinder(),
		clock:        clockwork.NewRealClock(),
		advanceDelay: DefaultAdvanceDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateRoom opens a room hosted by connID and returns its access code.
func (s *QuizService) CreateRoom(ctx context.Context, connID string, req domain.CreateRoomRequest) (code string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("conn", connID).Msg("room creation panicked")
			code, err = "", domain.ErrRoomCreationFailed
		}
	}()

	if req.QuizID != "" && len(req.Questions) == 0 {
		if req, err = s.withStoredQuiz(ctx, req); err != nil {
			return "", err
		}
	}
	settings := domain.NormalizeSettings(req)

	// the registry may reserve the code over the network; keep that outside s.mu
	room, err := s.rooms.Create(ctx, connID, settings)
	if err != nil {
		log.Error().Err(err).Str("conn", connID).Msg("create room")
		return "", fmt.Errorf("%w: %v", domain.ErrRoomCreationFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.binder.Bind(connID, room.Code(), domain.RoleHost)
	s.events.Subscribe(connID, room.Code())
	s.events.Broadcast(room.Code(), domain.EventRoomUpdate, room.update())

	log.Info().
		Str("room", room.Code()).
		Str("conn", connID).
		Int("questions", room.QuestionCount()).
		Int("time_limit", room.TimeLimit()).
		Msg("room created")
	return room.Code(), nil
}

func (s *QuizService) withStoredQuiz(ctx context.Context, req domain.CreateRoomRequest) (domain.CreateRoomRequest, error) {
	if s.quizzes == nil {
		return req, domain.ErrQuizNotFound
	}
	quiz, err := s.quizzes.GetQuiz(ctx, req.QuizID)
	if err != nil {
		if errors.Is(err, domain.ErrQuizNotFound) {
			return req, domain.ErrQuizNotFound
		}
		return req, fmt.Errorf("%w: %v", domain.ErrRoomCreationFailed, err)
	}
	req.Questions = quiz.Questions
	if req.Title == "" {
		req.Title = quiz.Title
	}
	return req, nil
}

// Join registers connID as a player and returns the room title.
func (s *QuizService) Join(_ context.Context, connID, code, name string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms.Get(code)
	if !ok {
		return "", domain.ErrInvalidCode
	}
	if err := room.addPlayer(connID, name); err != nil {
		return "", err
	}
	s.binder.Bind(connID, code, domain.RolePlayer)
	s.events.Subscribe(connID, code)
	s.events.Broadcast(code, domain.EventRoomUpdate, room.update())

	log.Debug().Str("room", code).Str("conn", connID).Msg("player joined")
	return room.Title(), nil
}

// PresenterJoin subscribes a display-only viewer to the room channel.
func (s *QuizService) PresenterJoin(_ context.Context, connID, code string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms.Get(code)
	if !ok {
		return "", domain.ErrRoomNotFound
	}
	if _, bound := s.binder.Role(connID, code); !bound {
		s.binder.Bind(connID, code, domain.RolePresenter)
	}
	s.events.Subscribe(connID, code)
	return room.Title(), nil
}

// StartQuestion advances the room on behalf of its host. done is true once the
// game is over; calling it again afterwards re-broadcasts game over and changes nothing.
func (s *QuizService) StartQuestion(_ context.Context, connID, code string) (done bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.hostRoom(connID, code)
	if err != nil {
		return false, err
	}
	return s.startNextQuestion(room), nil
}

// Reveal scores the current question early on behalf of the host. Revealing twice,
// or before the first question, is a no-op.
func (s *QuizService) Reveal(_ context.Context, connID, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, err := s.hostRoom(connID, code)
	if err != nil {
		return err
	}
	if !room.acceptingAnswers() {
		return nil
	}
	room.cancelTimers()
	s.revealAndAdvance(room)
	return nil
}

// Answer records a player's choice for the open question.
func (s *QuizService) Answer(_ context.Context, connID, code string, choice int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if err := room.recordAnswer(connID, choice, s.clock.Now()); err != nil {
		return err
	}
	s.events.Broadcast(code, domain.EventAnsweredCount, room.answeredCount())
	return nil
}

// Disconnect cleans up everything connID was part of: hosted rooms are closed,
// player entries removed, presenter subscriptions dropped.
func (s *QuizService) Disconnect(_ context.Context, connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.binder.Release(connID) {
		room, ok := s.rooms.Get(b.Code)
		if !ok {
			continue
		}
		switch {
		case room.HostID() == connID:
			s.closeRoom(room)
		case b.Role == domain.RolePlayer:
			s.events.Unsubscribe(connID, b.Code)
			if room.removePlayer(connID) {
				s.events.Broadcast(b.Code, domain.EventRoomUpdate, room.update())
			}
		default:
			s.events.Unsubscribe(connID, b.Code)
		}
	}
}

// Snapshot lists every room for diagnostics, ordered by code.
func (s *QuizService) Snapshot() []domain.RoomSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	rooms := s.rooms.List()
	out := make([]domain.RoomSnapshot, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, room.snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// RoomSnapshot returns the diagnostic view of one room.
func (s *QuizService) RoomSnapshot(code string) (domain.RoomSnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	room, ok := s.rooms.Get(code)
	if !ok {
		return domain.RoomSnapshot{}, domain.ErrRoomNotFound
	}
	return room.snapshot(), nil
}

// Shutdown cancels every pending room timer.
func (s *QuizService) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, room := range s.rooms.List() {
		room.cancelTimers()
	}
}

func (s *QuizService) hostRoom(connID, code string) (*Room, error) {
	room, ok := s.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if room.HostID() != connID {
		return nil, domain.ErrNotHost
	}
	return room, nil
}

// startNextQuestion is the single entry point for progression, used by the host
// and by the auto-advance timer. It always cancels pending timers first.
func (s *QuizService) startNextQuestion(room *Room) bool {
	room.cancelTimers()

	if room.advance() {
		over := room.gameOver()
		s.events.Broadcast(room.Code(), domain.EventGameOver, over)
		if room.markFinished() {
			log.Info().Str("room", room.Code()).Int("players", len(over.Scoreboard)).Msg("game over")
			s.archive(room, over)
		}
		return true
	}

	shown := room.openQuestion(s.clock.Now())
	s.events.Broadcast(room.Code(), domain.EventQuestion, shown)
	room.revealTask = s.schedule(time.Duration(room.TimeLimit())*time.Second, func() {
		s.revealAndAdvance(room)
	})

	log.Debug().Str("room", room.Code()).Int("index", shown.Index).Msg("question started")
	return false
}

func (s *QuizService) revealAndAdvance(room *Room) {
	s.revealAndScore(room)
	room.advanceTask = s.schedule(s.advanceDelay, func() {
		s.startNextQuestion(room)
	})
}

func (s *QuizService) revealAndScore(room *Room) {
	reveal, ok := room.revealAndScore()
	if !ok {
		return
	}
	s.events.Broadcast(room.Code(), domain.EventReveal, reveal)
	log.Debug().Str("room", room.Code()).Int("index", room.CurrentIndex()).Msg("question revealed")
}

func (s *QuizService) closeRoom(room *Room) {
	room.cancelTimers()
	s.events.Broadcast(room.Code(), domain.EventRoomClosed, struct{}{})
	s.events.Drop(room.Code())
	s.binder.DropRoom(room.Code())
	s.rooms.Delete(room.Code())
	log.Info().Str("room", room.Code()).Msg("room closed")
}

func (s *QuizService) archive(room *Room, over domain.GameOver) {
	if s.results == nil {
		return
	}
	result := domain.GameResult{
		RoomCode:      room.Code(),
		Title:         room.Title(),
		QuestionCount: room.QuestionCount(),
		Scoreboard:    over.Scoreboard,
		FinishedAt:    s.clock.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := s.results.Record(ctx, result); err != nil {
			log.Error().Err(err).Str("room", result.RoomCode).Msg("archive game result")
		}
	}()
}
