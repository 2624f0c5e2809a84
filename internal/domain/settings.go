package domain

import (
	"math"
	"strings"
	"unicode/utf8"
)

const (
	DefaultTitle      = "PartyQuiz"
	DefaultTimeLimit  = 20
	MinTimeLimit      = 5
	MaxTimeLimit      = 3600
	DefaultBasePoints = 1000
	MinBasePoints     = 100
	MaxBasePoints     = 1_000_000
	MaxNameLength     = 18
)

// RoomSettings is the clamped, immutable configuration of a room.
type RoomSettings struct {
	Title      string
	TimeLimit  int
	BasePoints int
	Questions  []Question
}

// NormalizeSettings applies defaults and clamps to a create request. Questions are
// copied so later edits to the request cannot reach the room.
func NormalizeSettings(req CreateRoomRequest) RoomSettings {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = DefaultTitle
	}
	return RoomSettings{
		Title:      title,
		TimeLimit:  clampInt(req.TimeLimit, DefaultTimeLimit, MinTimeLimit, MaxTimeLimit),
		BasePoints: clampInt(req.BasePoints, DefaultBasePoints, MinBasePoints, MaxBasePoints),
		Questions:  CloneQuestions(req.Questions),
	}
}

// NormalizeName trims and truncates a display name to MaxNameLength runes.
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) <= MaxNameLength {
		return name
	}
	return strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
}

// CloneQuestions deep-copies a question list.
func CloneQuestions(in []Question) []Question {
	out := make([]Question, len(in))
	for i, q := range in {
		out[i] = Question{
			Text:    q.Text,
			Options: append([]string(nil), q.Options...),
			Answer:  q.Answer,
		}
	}
	return out
}

// clampInt treats zero and NaN as "not provided", floors the value and clamps it.
func clampInt(v float64, fallback, lo, hi int) int {
	if v == 0 || math.IsNaN(v) {
		return fallback
	}
	if v < float64(lo) {
		return lo
	}
	if v > float64(hi) {
		return hi
	}
	return int(math.Floor(v))
}
