package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"party-quiz-service/internal/domain"
)

// inboundMessage is a client request. ID is optional; without it no ack is sent.
type inboundMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	ID      string `json:"id,omitempty"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ackReply is the single reply to a request: {ok:true,...} or {ok:false,error,errorCode}.
type ackReply struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
	Code      string `json:"code,omitempty"`
	Title     string `json:"title,omitempty"`
	Done      bool   `json:"done,omitempty"`
}

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
	errRateLimited     = errors.New("too many requests")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{domain.ErrInvalidCode, "InvalidCode"},
	{domain.ErrRoomNotFound, "RoomNotFound"},
	{domain.ErrNotHost, "NotHost"},
	{domain.ErrNameTaken, "NameTaken"},
	{domain.ErrInvalidName, "InvalidName"},
	{domain.ErrAlreadyInRoom, "AlreadyInRoom"},
	{domain.ErrPlayerNotRegistered, "PlayerNotRegistered"},
	{domain.ErrAlreadyAnswered, "AlreadyAnswered"},
	{domain.ErrQuestionClosed, "QuestionClosed"},
	{domain.ErrRoomCreationFailed, "RoomCreationFailed"},
	{domain.ErrQuizNotFound, "QuizNotFound"},
	{errInvalidPayload, "InvalidPayload"},
	{errUnsupportedType, "UnsupportedType"},
	{errRateLimited, "RateLimited"},
}

// failure maps an error onto a stable ack. Unknown errors never leak their text.
func failure(err error) ackReply {
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return ackReply{Error: e.err.Error(), ErrorCode: e.code}
		}
	}
	return ackReply{Error: "internal error", ErrorCode: "Internal"}
}

// decodePayload treats a missing or null payload as empty.
func decodePayload(raw json.RawMessage, v any) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return errInvalidPayload
	}
	return nil
}

// flexNumber accepts numbers, numeric strings and booleans; anything else is "not set".
type flexNumber struct {
	value float64
	set   bool
}

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*n = flexNumber{}
	switch t := v.(type) {
	case float64:
		n.value, n.set = t, true
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(t), 64); err == nil {
			n.value, n.set = f, true
		}
	case bool:
		n.set = true
		if t {
			n.value = 1
		}
	}
	return nil
}

// index returns the value as an option index, or -1 when it cannot be one.
func (n flexNumber) index() int {
	if !n.set || math.IsNaN(n.value) || n.value != math.Trunc(n.value) || math.Abs(n.value) > 1e9 {
		return -1
	}
	return int(n.value)
}

// flexString accepts strings, numbers and booleans.
type flexString string

func (s *flexString) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*s = flexString(t)
	case float64:
		*s = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	case bool:
		*s = flexString(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

type questionPayload struct {
	Text    flexString   `json:"text"`
	Options []flexString `json:"options"`
	Answer  flexNumber   `json:"answer"`
}

type createRoomPayload struct {
	Title      flexString      `json:"title"`
	TimeLimit  flexNumber      `json:"timeLimit"`
	BasePoints flexNumber      `json:"basePoints"`
	Questions  json.RawMessage `json:"questions"`
	QuizID     flexString      `json:"quizId"`
}

func (p createRoomPayload) request() (domain.CreateRoomRequest, error) {
	questions, err := decodeQuestions(p.Questions)
	if err != nil {
		return domain.CreateRoomRequest{}, err
	}
	req := domain.CreateRoomRequest{
		Title:     string(p.Title),
		Questions: questions,
		QuizID:    strings.TrimSpace(string(p.QuizID)),
	}
	if p.TimeLimit.set {
		req.TimeLimit = p.TimeLimit.value
	}
	if p.BasePoints.set {
		req.BasePoints = p.BasePoints.value
	}
	return req, nil
}

// decodeQuestions treats anything that is not a JSON array as "no questions".
func decodeQuestions(raw json.RawMessage) ([]domain.Question, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, nil
	}
	var items []questionPayload
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(items))
	for i, item := range items {
		options := make([]string, len(item.Options))
		for j, opt := range item.Options {
			options[j] = string(opt)
		}
		questions[i] = domain.Question{
			Text:    string(item.Text),
			Options: options,
			Answer:  item.Answer.index(),
		}
	}
	return questions, nil
}

type joinPayload struct {
	Code flexString `json:"code"`
	Name flexString `json:"name"`
}

type roomPayload struct {
	Code flexString `json:"code"`
}

type answerPayload struct {
	Code   flexString `json:"code"`
	Choice flexNumber `json:"choice"`
}

func roomCode(s flexString) string {
	return strings.TrimSpace(string(s))
}
