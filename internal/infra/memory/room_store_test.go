package memory

import (
	"context"
	"testing"

	"party-quiz-service/internal/domain"
)

func TestRoomStoreLifecycle(t *testing.T) {
	store := NewRoomStore()

	room, err := store.Create(context.Background(), "host-1", domain.NormalizeSettings(domain.CreateRoomRequest{}))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(room.Code()) != 6 {
		t.Fatalf("expected 6-digit code, got %q", room.Code())
	}
	if _, ok := store.Get(room.Code()); !ok {
		t.Fatalf("expected room present")
	}
	if len(store.List()) != 1 {
		t.Fatalf("expected one room listed")
	}

	store.Delete(room.Code())
	if _, ok := store.Get(room.Code()); ok {
		t.Fatalf("expected room removed")
	}
}

func TestRoomStoreRetriesCollidingCodes(t *testing.T) {
	codes := []string{"111111", "111111", "222222"}
	store := NewRoomStore(WithCodeGenerator(func() string {
		code := codes[0]
		codes = codes[1:]
		return code
	}))
	settings := domain.NormalizeSettings(domain.CreateRoomRequest{})

	first, err := store.Create(context.Background(), "host-1", settings)
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := store.Create(context.Background(), "host-2", settings)
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Code() != "111111" || second.Code() != "222222" {
		t.Fatalf("expected retry past collision, got %s and %s", first.Code(), second.Code())
	}
}

func TestRoomStoreGivesUpWhenCodesExhausted(t *testing.T) {
	store := NewRoomStore(WithCodeGenerator(func() string { return "123456" }))
	settings := domain.NormalizeSettings(domain.CreateRoomRequest{})

	if _, err := store.Create(context.Background(), "host-1", settings); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Create(context.Background(), "host-2", settings); err == nil {
		t.Fatalf("expected failure when every code collides")
	}
}
