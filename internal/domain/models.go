package domain

import "time"

// Role is the part a connection plays in a room.
type Role string

const (
	RoleHost      Role = "host"
	RolePlayer    Role = "player"
	RolePresenter Role = "presenter"
)

// Question models an MCQ question; Answer indexes Options.
type Question struct {
	Text    string   `json:"text" yaml:"text"`
	Options []string `json:"options" yaml:"options"`
	Answer  int      `json:"answer" yaml:"answer"`
}

// Quiz is a stored collection of questions a host can open a room from.
type Quiz struct {
	ID        string     `json:"id" yaml:"id"`
	Title     string     `json:"title" yaml:"title"`
	Questions []Question `json:"questions" yaml:"questions"`
}

// CreateRoomRequest is what a host sends to open a room. Zero numeric fields mean
// "not provided" and fall back to defaults.
type CreateRoomRequest struct {
	Title      string
	TimeLimit  float64
	BasePoints float64
	Questions  []Question
	QuizID     string
}

// PlayerView is the public, snapshot-friendly view of a player.
type PlayerView struct {
	Name  string `json:"name"`
	Score int    `json:"score"`
}

// ScoreEntry is a scoreboard line shown at reveal time.
type ScoreEntry struct {
	Name     string `json:"name"`
	Score    int    `json:"score"`
	Correct  bool   `json:"correct"`
	TimeLeft int    `json:"timeLeft"`
}

// RoomUpdate is broadcast whenever the player list changes.
type RoomUpdate struct {
	Title   string       `json:"title"`
	Players []PlayerView `json:"players"`
}

// QuestionShown is broadcast when a question opens. It never carries the answer.
type QuestionShown struct {
	Index     int      `json:"index"`
	Total     int      `json:"total"`
	Text      string   `json:"text"`
	Options   []string `json:"options"`
	TimeLimit int      `json:"timeLimit"`
	Title     string   `json:"title"`
}

// AnsweredCount reports answer progress without leaking choices.
type AnsweredCount struct {
	Answered int `json:"answered"`
	Total    int `json:"total"`
}

// Reveal carries the correct option and the scored board for one question.
type Reveal struct {
	Correct    int          `json:"correct"`
	Scoreboard []ScoreEntry `json:"scoreboard"`
}

// GameOver is broadcast once the question list is exhausted.
type GameOver struct {
	Podium     []PlayerView `json:"podium"`
	Scoreboard []PlayerView `json:"scoreboard"`
}

// RoomSnapshot is the read-only diagnostic view of a room.
type RoomSnapshot struct {
	Code          string       `json:"code"`
	Title         string       `json:"title"`
	Players       []PlayerView `json:"players"`
	CurrentIndex  int          `json:"currentIndex"`
	QuestionCount int          `json:"questionCount"`
	Revealed      bool         `json:"revealed"`
	Finished      bool         `json:"finished"`
}

// GameResult is archived when a room reaches game over.
type GameResult struct {
	RoomCode      string       `json:"roomCode"`
	Title         string       `json:"title"`
	QuestionCount int          `json:"questionCount"`
	Scoreboard    []PlayerView `json:"scoreboard"`
	FinishedAt    time.Time    `json:"finishedAt"`
}
