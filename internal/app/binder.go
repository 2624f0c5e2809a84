package app

import (
	"sort"

	"party-quiz-service/internal/domain"
)

// Binding ties a connection to a room under a role.
type Binding struct {
	Code string
	Role domain.Role
}

// Binder remembers which rooms each connection belongs to so a disconnect can be
// cleaned up without scanning every room. Access is serialised by QuizService.
type Binder struct {
	byConn map[string]map[string]domain.Role
}

func NewBinder() *Binder {
	return &Binder{byConn: make(map[string]map[string]domain.Role)}
}

func (b *Binder) Bind(connID, code string, role domain.Role) {
	rooms, ok := b.byConn[connID]
	if !ok {
		rooms = make(map[string]domain.Role)
		b.byConn[connID] = rooms
	}
	rooms[code] = role
}

// Role returns the role connID holds in a room.
func (b *Binder) Role(connID, code string) (domain.Role, bool) {
	role, ok := b.byConn[connID][code]
	return role, ok
}

// Bindings lists a connection's rooms ordered by code.
func (b *Binder) Bindings(connID string) []Binding {
	rooms := b.byConn[connID]
	out := make([]Binding, 0, len(rooms))
	for code, role := range rooms {
		out = append(out, Binding{Code: code, Role: role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// Release forgets a connection and returns what it was bound to.
func (b *Binder) Release(connID string) []Binding {
	out := b.Bindings(connID)
	delete(b.byConn, connID)
	return out
}

// DropRoom removes every binding that points at code.
func (b *Binder) DropRoom(code string) {
	for connID, rooms := range b.byConn {
		delete(rooms, code)
		if len(rooms) == 0 {
			delete(b.byConn, connID)
		}
	}
}
