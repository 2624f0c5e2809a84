package app

import (
	"math"
	"sort"
	"strings"
	"time"

	"party-quiz-service/internal/domain"
)

// Room is the live state of one game. It is not safe for concurrent use on its own:
// QuizService serialises every access, including timer callbacks.
type Room struct {
	code     string
	hostID   string
	settings domain.RoomSettings

	currentIndex    int
	questionStartAt time.Time
	revealed        bool
	finished        bool

	players map[string]*player
	order   []string // join order, the base for stable scoreboard sorting

	revealTask  *task
	advanceTask *task
}

type player struct {
	name     string
	score    int
	answered bool
	choice   *int
	timeLeft int
	correct  bool
}

// PlayerState is a copy of a player's full state, including per-question fields.
type PlayerState struct {
	Name     string
	Score    int
	Answered bool
	Choice   *int
	TimeLeft int
	Correct  bool
}

// NewRoom builds a room in the awaiting-start state. Settings are expected to be
// normalized already.
func NewRoom(code, hostID string, settings domain.RoomSettings) *Room {
	return &Room{
		code:         code,
		hostID:       hostID,
		settings:     settings,
		currentIndex: -1,
		players:      make(map[string]*player),
	}
}

func (r *Room) Code() string      { return r.code }
func (r *Room) Title() string     { return r.settings.Title }
func (r *Room) HostID() string    { return r.hostID }
func (r *Room) TimeLimit() int    { return r.settings.TimeLimit }
func (r *Room) BasePoints() int   { return r.settings.BasePoints }
func (r *Room) CurrentIndex() int { return r.currentIndex }
func (r *Room) Revealed() bool    { return r.revealed }
func (r *Room) QuestionCount() int {
	return len(r.settings.Questions)
}

// IsOver reports whether the question list is exhausted.
func (r *Room) IsOver() bool {
	return r.currentIndex >= len(r.settings.Questions)
}

// Player returns a copy of the player bound to connID.
func (r *Room) Player(connID string) (PlayerState, bool) {
	p, ok := r.players[connID]
	if !ok {
		return PlayerState{}, false
	}
	state := PlayerState{
		Name:     p.name,
		Score:    p.score,
		Answered: p.answered,
		TimeLeft: p.timeLeft,
		Correct:  p.correct,
	}
	if p.choice != nil {
		c := *p.choice
		state.Choice = &c
	}
	return state, true
}

func (r *Room) addPlayer(connID, rawName string) error {
	name := domain.NormalizeName(rawName)
	if name == "" {
		return domain.ErrInvalidName
	}
	for _, p := range r.players {
		if strings.EqualFold(p.name, name) {
			return domain.ErrNameTaken
		}
	}
	if _, ok := r.players[connID]; ok || connID == r.hostID {
		return domain.ErrAlreadyInRoom
	}
	r.players[connID] = &player{name: name}
	r.order = append(r.order, connID)
	return nil
}

func (r *Room) removePlayer(connID string) bool {
	if _, ok := r.players[connID]; !ok {
		return false
	}
	delete(r.players, connID)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// advance moves to the next question index and reports whether the game is over.
// The index stops at len(questions) so repeated advances after the end are stable.
func (r *Room) advance() bool {
	if r.currentIndex < len(r.settings.Questions) {
		r.currentIndex++
	}
	return r.IsOver()
}

func (r *Room) current() (domain.Question, bool) {
	if r.currentIndex < 0 || r.currentIndex >= len(r.settings.Questions) {
		return domain.Question{}, false
	}
	return r.settings.Questions[r.currentIndex], true
}

// openQuestion resets every player's per-question fields and stamps the start time.
func (r *Room) openQuestion(now time.Time) domain.QuestionShown {
	for _, p := range r.players {
		p.answered = false
		p.choice = nil
		p.timeLeft = 0
		p.correct = false
	}
	r.revealed = false
	r.questionStartAt = now

	q, _ := r.current()
	return domain.QuestionShown{
		Index:     r.currentIndex,
		Total:     len(r.settings.Questions),
		Text:      q.Text,
		Options:   append([]string(nil), q.Options...),
		TimeLimit: r.settings.TimeLimit,
		Title:     r.settings.Title,
	}
}

func (r *Room) acceptingAnswers() bool {
	_, ok := r.current()
	return ok && !r.revealed
}

func (r *Room) recordAnswer(connID string, choice int, now time.Time) error {
	p, ok := r.players[connID]
	if !ok {
		return domain.ErrPlayerNotRegistered
	}
	if p.answered {
		return domain.ErrAlreadyAnswered
	}
	if !r.acceptingAnswers() {
		return domain.ErrQuestionClosed
	}
	p.answered = true
	p.choice = &choice
	p.timeLeft = timeLeftAt(r.settings.TimeLimit, r.questionStartAt, now)
	return nil
}

func (r *Room) answeredCount() domain.AnsweredCount {
	answered := 0
	for _, p := range r.players {
		if p.answered {
			answered++
		}
	}
	return domain.AnsweredCount{Answered: answered, Total: len(r.players)}
}

// revealAndScore scores the current question once. The second result is false when
// there is nothing to reveal.
func (r *Room) revealAndScore() (domain.Reveal, bool) {
	q, ok := r.current()
	if !ok || r.revealed {
		return domain.Reveal{}, false
	}
	for _, p := range r.players {
		p.correct = p.choice != nil && *p.choice == q.Answer
		if p.correct {
			p.score += pointsFor(r.settings.BasePoints, p.timeLeft, r.settings.TimeLimit)
		}
	}
	r.revealed = true

	ranked := r.ranked()
	board := make([]domain.ScoreEntry, len(ranked))
	for i, p := range ranked {
		board[i] = domain.ScoreEntry{Name: p.name, Score: p.score, Correct: p.correct, TimeLeft: p.timeLeft}
	}
	return domain.Reveal{Correct: q.Answer, Scoreboard: board}, true
}

func (r *Room) gameOver() domain.GameOver {
	board := r.scoreboard()
	podium := board
	if len(podium) > 3 {
		podium = podium[:3]
	}
	return domain.GameOver{
		Podium:     append([]domain.PlayerView(nil), podium...),
		Scoreboard: board,
	}
}

// markFinished returns true only the first time the room is seen as finished.
func (r *Room) markFinished() bool {
	if r.finished {
		return false
	}
	r.finished = true
	return true
}

func (r *Room) update() domain.RoomUpdate {
	return domain.RoomUpdate{Title: r.settings.Title, Players: r.publicPlayers()}
}

func (r *Room) snapshot() domain.RoomSnapshot {
	return domain.RoomSnapshot{
		Code:          r.code,
		Title:         r.settings.Title,
		Players:       r.publicPlayers(),
		CurrentIndex:  r.currentIndex,
		QuestionCount: len(r.settings.Questions),
		Revealed:      r.revealed,
		Finished:      r.IsOver(),
	}
}

func (r *Room) publicPlayers() []domain.PlayerView {
	views := make([]domain.PlayerView, 0, len(r.order))
	for _, id := range r.order {
		p := r.players[id]
		views = append(views, domain.PlayerView{Name: p.name, Score: p.score})
	}
	return views
}

func (r *Room) scoreboard() []domain.PlayerView {
	ranked := r.ranked()
	board := make([]domain.PlayerView, len(ranked))
	for i, p := range ranked {
		board[i] = domain.PlayerView{Name: p.name, Score: p.score}
	}
	return board
}

// ranked orders players by score descending; ties keep join order.
func (r *Room) ranked() []*player {
	out := make([]*player, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.players[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].score > out[j].score
	})
	return out
}

func timeLeftAt(limit int, start, now time.Time) int {
	elapsed := max(0, now.Sub(start).Seconds())
	left := roundHalfUp(float64(limit) - elapsed)
	return min(limit, max(0, left))
}

func pointsFor(basePoints, timeLeft, timeLimit int) int {
	if timeLimit <= 0 {
		return 0
	}
	return roundHalfUp(float64(basePoints) * float64(timeLeft) / float64(timeLimit))
}

func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}
