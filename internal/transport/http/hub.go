package http

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"
)

// Hub tracks live websocket clients and the room channels they listen on.
// It implements app.Broadcaster; sends never block on a slow client.
type Hub struct {
	mu       sync.RWMutex
	clients  map[string]*Client
	channels map[string]map[string]*Client
}

// HubStats is the diagnostic view of the hub.
type HubStats struct {
	Connections int            `json:"connections"`
	Channels    map[string]int `json:"channels"`
}

func NewHub() *Hub {
	return &Hub{
		clients:  make(map[string]*Client),
		channels: make(map[string]map[string]*Client),
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID()] = c
}

// Unregister forgets the client everywhere and closes its outbound queue.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	c, ok := h.clients[connID]
	delete(h.clients, connID)
	for name, members := range h.channels {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.channels, name)
		}
	}
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

func (h *Hub) Subscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	members, ok := h.channels[channel]
	if !ok {
		members = make(map[string]*Client)
		h.channels[channel] = members
	}
	members[connID] = c
}

func (h *Hub) Unsubscribe(connID, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.channels[channel]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.channels, channel)
	}
}

// Drop removes a channel and all of its subscriptions.
func (h *Hub) Drop(channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.channels, channel)
}

// Broadcast marshals the event once and queues it for every subscriber.
func (h *Hub) Broadcast(channel, event string, payload any) {
	data, err := json.Marshal(outboundMessage[any]{Type: event, Payload: payload})
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("marshal broadcast")
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.channels[channel]))
	for _, c := range h.channels[channel] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		if !c.trySend(data) {
			log.Warn().Str("conn", c.ID()).Str("room", channel).Msg("client too slow, dropping connection")
			c.kick()
		}
	}
}

func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()
	stats := HubStats{Connections: len(h.clients), Channels: make(map[string]int, len(h.channels))}
	for name, members := range h.channels {
		stats.Channels[name] = len(members)
	}
	return stats
}
