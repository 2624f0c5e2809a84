package http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"party-quiz-service/internal/app"
	"party-quiz-service/internal/domain"
)

type WSHandler struct {
	service  *app.QuizService
	hub      *Hub
	cfg      ConnConfig
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, hub *Hub, cfg ConnConfig) *WSHandler {
	return &WSHandler{
		service: service,
		hub:     hub,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// ackFunc replies to one request. Calls after the first are ignored.
type ackFunc func(ackReply)

func (h *WSHandler) newAck(c *Client, id string) ackFunc {
	if id == "" {
		return func(ackReply) {}
	}
	var once sync.Once
	return func(reply ackReply) {
		once.Do(func() {
			c.enqueue(outboundMessage[ackReply]{Type: "ack", ID: id, Payload: reply})
		})
	}
}

// ServeWS upgrades the request and runs the connection until it drops. On exit the
// connection's rooms are cleaned up before the hub forgets it.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade failed")
		return
	}

	client := newClient(uuid.NewString(), conn, h.cfg)
	h.hub.Register(client)
	log.Debug().Str("conn", client.ID()).Str("remote", r.RemoteAddr).Msg("ws connected")

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		client.writePump(h.cfg)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client.readLoop(h.cfg, func(msg inboundMessage) {
		h.dispatch(ctx, client, msg)
	})

	h.service.Disconnect(ctx, client.ID())
	h.hub.Unregister(client.ID())
	<-writerDone
	log.Debug().Str("conn", client.ID()).Msg("ws disconnected")
}

func (h *WSHandler) dispatch(ctx context.Context, c *Client, msg inboundMessage) {
	ack := h.newAck(c, msg.ID)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Str("conn", c.ID()).Str("type", msg.Type).Msg("handler panicked")
			ack(ackReply{Error: "internal error", ErrorCode: "Internal"})
		}
	}()

	if !c.limiter.Allow() {
		ack(failure(errRateLimited))
		return
	}

	switch msg.Type {
	case domain.RequestCreateRoom:
		h.createRoom(ctx, c, msg.Payload, ack)
	case domain.RequestStartQuestion:
		h.startQuestion(ctx, c, msg.Payload, ack)
	case domain.RequestReveal:
		h.reveal(ctx, c, msg.Payload, ack)
	case domain.RequestJoin:
		h.join(ctx, c, msg.Payload, ack)
	case domain.RequestAnswer:
		h.answer(ctx, c, msg.Payload, ack)
	case domain.RequestPresenterJoin:
		h.presenterJoin(ctx, c, msg.Payload, ack)
	default:
		c.enqueue(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: errUnsupportedType.Error()}})
		ack(failure(errUnsupportedType))
	}
}

func (h *WSHandler) createRoom(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload createRoomPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(domain.ErrRoomCreationFailed))
		return
	}
	req, err := payload.request()
	if err != nil {
		ack(failure(domain.ErrRoomCreationFailed))
		return
	}
	code, err := h.service.CreateRoom(ctx, c.ID(), req)
	if err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true, Code: code})
}

func (h *WSHandler) startQuestion(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload roomPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(err))
		return
	}
	done, err := h.service.StartQuestion(ctx, c.ID(), roomCode(payload.Code))
	if err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true, Done: done})
}

func (h *WSHandler) reveal(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload roomPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(err))
		return
	}
	if err := h.service.Reveal(ctx, c.ID(), roomCode(payload.Code)); err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true})
}

func (h *WSHandler) join(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload joinPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(err))
		return
	}
	title, err := h.service.Join(ctx, c.ID(), roomCode(payload.Code), string(payload.Name))
	if err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true, Title: title})
}

func (h *WSHandler) answer(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload answerPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(err))
		return
	}
	if err := h.service.Answer(ctx, c.ID(), roomCode(payload.Code), payload.Choice.index()); err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true})
}

func (h *WSHandler) presenterJoin(ctx context.Context, c *Client, raw json.RawMessage, ack ackFunc) {
	var payload roomPayload
	if err := decodePayload(raw, &payload); err != nil {
		ack(failure(err))
		return
	}
	title, err := h.service.PresenterJoin(ctx, c.ID(), roomCode(payload.Code))
	if err != nil {
		ack(failure(err))
		return
	}
	ack(ackReply{OK: true, Title: title})
}
