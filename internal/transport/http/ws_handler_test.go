package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"party-quiz-service/internal/app"
	"party-quiz-service/internal/domain"
	"party-quiz-service/internal/infra/memory"
)

type frame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id"`
	Payload json.RawMessage `json:"payload"`
}

func newTestServer(t *testing.T) (*httptest.Server, *app.QuizService) {
	t.Helper()
	hub := NewHub()
	service := app.NewQuizService(memory.NewRoomStore(), hub, app.WithAdvanceDelay(time.Hour))
	ws := NewWSHandler(service, hub, DefaultConnConfig())
	server := httptest.NewServer(NewRouter(service, hub, ws, RouterConfig{CORSOrigins: []string{"*"}}))
	t.Cleanup(func() {
		service.Shutdown()
		server.Close()
	})
	return server, service
}

func dial(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, typ, id string, payload any) {
	t.Helper()
	msg := map[string]any{"type": typ, "payload": payload}
	if id != "" {
		msg["id"] = id
	}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

// readUntil skips frames until one matches typ (and id, for acks).
func readUntil(t *testing.T, conn *websocket.Conn, typ, id string) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if f.Type == typ && (id == "" || f.ID == id) {
			return f
		}
	}
}

func readAck(t *testing.T, conn *websocket.Conn, id string) ackReply {
	t.Helper()
	var reply ackReply
	if err := json.Unmarshal(readUntil(t, conn, "ack", id).Payload, &reply); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	return reply
}

func createRoom(t *testing.T, host *websocket.Conn) string {
	t.Helper()
	send(t, host, domain.RequestCreateRoom, "c1", map[string]any{
		"title":     "Trivia",
		"timeLimit": "10",
		"questions": []map[string]any{
			{"text": "2+2?", "options": []string{"3", "4"}, "answer": 1},
			{"text": "Sky?", "options": []string{"blue", "green"}, "answer": 0},
		},
	})
	reply := readAck(t, host, "c1")
	if !reply.OK || len(reply.Code) != 6 {
		t.Fatalf("expected room code, got %+v", reply)
	}
	return reply.Code
}

func TestWebSocketGameFlow(t *testing.T) {
	server, _ := newTestServer(t)
	host := dial(t, server)
	player := dial(t, server)

	code := createRoom(t, host)

	send(t, player, domain.RequestJoin, "j1", map[string]any{"code": code, "name": "  Alice  "})
	if reply := readAck(t, player, "j1"); !reply.OK || reply.Title != "Trivia" {
		t.Fatalf("join failed: %+v", reply)
	}
	var update domain.RoomUpdate
	_ = json.Unmarshal(readUntil(t, host, domain.EventRoomUpdate, "").Payload, &update)
	for len(update.Players) == 0 {
		_ = json.Unmarshal(readUntil(t, host, domain.EventRoomUpdate, "").Payload, &update)
	}
	if update.Players[0].Name != "Alice" {
		t.Fatalf("expected trimmed name, got %+v", update.Players)
	}

	send(t, host, domain.RequestStartQuestion, "s1", map[string]any{"code": code})
	if reply := readAck(t, host, "s1"); !reply.OK || reply.Done {
		t.Fatalf("start failed: %+v", reply)
	}
	var shown domain.QuestionShown
	_ = json.Unmarshal(readUntil(t, player, domain.EventQuestion, "").Payload, &shown)
	if shown.Index != 0 || shown.Total != 2 || shown.TimeLimit != 10 {
		t.Fatalf("unexpected question: %+v", shown)
	}

	send(t, player, domain.RequestAnswer, "a1", map[string]any{"code": code, "choice": "1"})
	if reply := readAck(t, player, "a1"); !reply.OK {
		t.Fatalf("answer failed: %+v", reply)
	}
	send(t, player, domain.RequestAnswer, "a2", map[string]any{"code": code, "choice": 0})
	if reply := readAck(t, player, "a2"); reply.OK || reply.ErrorCode != "AlreadyAnswered" {
		t.Fatalf("expected AlreadyAnswered, got %+v", reply)
	}

	var count domain.AnsweredCount
	_ = json.Unmarshal(readUntil(t, host, domain.EventAnsweredCount, "").Payload, &count)
	if count.Answered != 1 || count.Total != 1 {
		t.Fatalf("unexpected answered count: %+v", count)
	}

	send(t, host, domain.RequestReveal, "r1", map[string]any{"code": code})
	if reply := readAck(t, host, "r1"); !reply.OK {
		t.Fatalf("reveal failed: %+v", reply)
	}
	var reveal domain.Reveal
	_ = json.Unmarshal(readUntil(t, player, domain.EventReveal, "").Payload, &reveal)
	if reveal.Correct != 1 || len(reveal.Scoreboard) != 1 || !reveal.Scoreboard[0].Correct || reveal.Scoreboard[0].Score <= 0 {
		t.Fatalf("unexpected reveal: %+v", reveal)
	}
}

func TestWebSocketRejectsNonHostAndUnknownRooms(t *testing.T) {
	server, _ := newTestServer(t)
	host := dial(t, server)
	player := dial(t, server)
	code := createRoom(t, host)

	send(t, player, domain.RequestStartQuestion, "s1", map[string]any{"code": code})
	if reply := readAck(t, player, "s1"); reply.ErrorCode != "NotHost" {
		t.Fatalf("expected NotHost, got %+v", reply)
	}
	send(t, player, domain.RequestJoin, "j1", map[string]any{"code": "000000", "name": "Bob"})
	if reply := readAck(t, player, "j1"); reply.ErrorCode != "InvalidCode" {
		t.Fatalf("expected InvalidCode, got %+v", reply)
	}
	send(t, player, domain.RequestAnswer, "a1", map[string]any{"code": code, "choice": 0})
	if reply := readAck(t, player, "a1"); reply.ErrorCode != "PlayerNotRegistered" {
		t.Fatalf("expected PlayerNotRegistered, got %+v", reply)
	}
}

func TestWebSocketUnsupportedType(t *testing.T) {
	server, _ := newTestServer(t)
	conn := dial(t, server)

	send(t, conn, "player:dance", "x1", nil)
	readUntil(t, conn, "error", "")
	if reply := readAck(t, conn, "x1"); reply.OK || reply.ErrorCode != "UnsupportedType" {
		t.Fatalf("expected UnsupportedType ack, got %+v", reply)
	}
}

func TestWebSocketHostDisconnectClosesRoom(t *testing.T) {
	server, service := newTestServer(t)
	host := dial(t, server)
	player := dial(t, server)
	presenter := dial(t, server)
	code := createRoom(t, host)

	send(t, player, domain.RequestJoin, "j1", map[string]any{"code": code, "name": "Alice"})
	readAck(t, player, "j1")
	send(t, presenter, domain.RequestPresenterJoin, "p1", map[string]any{"code": code})
	if reply := readAck(t, presenter, "p1"); !reply.OK || reply.Title != "Trivia" {
		t.Fatalf("presenter join failed: %+v", reply)
	}

	host.Close()

	readUntil(t, player, domain.EventRoomClosed, "")
	readUntil(t, presenter, domain.EventRoomClosed, "")
	if _, err := service.RoomSnapshot(code); err != domain.ErrRoomNotFound {
		t.Fatalf("expected room to be gone, got %v", err)
	}
}

func TestQRCodeEndpoint(t *testing.T) {
	server, _ := newTestServer(t)
	host := dial(t, server)
	code := createRoom(t, host)

	resp, err := http.Get(server.URL + "/rooms/" + code + "/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("expected png, got %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}

	resp, err = http.Get(server.URL + "/rooms/999999/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDebugRooms(t *testing.T) {
	server, _ := newTestServer(t)
	host := dial(t, server)
	code := createRoom(t, host)

	resp, err := http.Get(server.URL + "/debug/rooms/" + code)
	if err != nil {
		t.Fatalf("get snapshot: %v", err)
	}
	defer resp.Body.Close()
	var snap domain.RoomSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Code != code || snap.QuestionCount != 2 || snap.CurrentIndex != -1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
}
