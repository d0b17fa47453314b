package session

import (
	"context"
	"sync"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// RoomProvider provisions and tears down the temporary rooms a session
// needs. Every call is fallible and independently retryable; the session
// treats failures as recoverable via rollback. MoveActor accepts an empty
// fromRoomID, meaning the actor's current location.
type RoomProvider interface {
	CreateTextRoom(ctx context.Context, tenantID, name string) (string, error)
	CreateVoiceRoom(ctx context.Context, tenantID, name string) (string, error)
	MoveActor(ctx context.Context, actorID, fromRoomID, toRoomID string) error
	DeleteRoom(ctx context.Context, roomID string) error
}

// PresenceEvent reports one actor entering or leaving a room.
type PresenceEvent struct {
	ActorID string
	RoomID  string
	Present bool
}

// PresenceSource is the live membership stream the presence barrier listens
// to. Watch delivers events until ctx is cancelled.
type PresenceSource interface {
	Occupants(ctx context.Context, roomID string) ([]string, error)
	Watch(ctx context.Context, roomID string) (<-chan PresenceEvent, error)
}

// MemoryRooms is an in-process RoomProvider and PresenceSource. It backs
// tests and local runs without a chat platform attached; moving an actor
// emits presence events to every watcher of the affected rooms.
type MemoryRooms struct {
	mu       sync.Mutex
	rooms    map[string]map[string]bool
	watchers map[string][]chan PresenceEvent
}

func NewMemoryRooms() *MemoryRooms {
	return &MemoryRooms{
		rooms:    make(map[string]map[string]bool),
		watchers: make(map[string][]chan PresenceEvent),
	}
}

func (m *MemoryRooms) CreateTextRoom(_ context.Context, tenantID, name string) (string, error) {
	return m.create(tenantID, name)
}

func (m *MemoryRooms) CreateVoiceRoom(_ context.Context, tenantID, name string) (string, error) {
	return m.create(tenantID, name)
}

func (m *MemoryRooms) create(tenantID, name string) (string, error) {
	suffix, err := gonanoid.New()
	if err != nil {
		return "", err
	}
	id := tenantID + "/" + name + "/" + suffix
	m.mu.Lock()
	m.rooms[id] = make(map[string]bool)
	m.mu.Unlock()
	return id, nil
}

// MoveActor relocates the actor. An empty fromRoomID means "wherever the
// actor currently is", which the rollback path relies on.
func (m *MemoryRooms) MoveActor(_ context.Context, actorID, fromRoomID, toRoomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fromRoomID == "" {
		for roomID, occupants := range m.rooms {
			if roomID != toRoomID && occupants[actorID] {
				delete(occupants, actorID)
				m.notify(PresenceEvent{ActorID: actorID, RoomID: roomID, Present: false})
			}
		}
	} else if occupants, ok := m.rooms[fromRoomID]; ok && occupants[actorID] {
		delete(occupants, actorID)
		m.notify(PresenceEvent{ActorID: actorID, RoomID: fromRoomID, Present: false})
	}
	if _, ok := m.rooms[toRoomID]; !ok {
		m.rooms[toRoomID] = make(map[string]bool)
	}
	m.rooms[toRoomID][actorID] = true
	m.notify(PresenceEvent{ActorID: actorID, RoomID: toRoomID, Present: true})
	return nil
}

func (m *MemoryRooms) DeleteRoom(_ context.Context, roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	return nil
}

func (m *MemoryRooms) Occupants(_ context.Context, roomID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for id := range m.rooms[roomID] {
		out = append(out, id)
	}
	return out, nil
}

func (m *MemoryRooms) Watch(ctx context.Context, roomID string) (<-chan PresenceEvent, error) {
	ch := make(chan PresenceEvent, 64)
	m.mu.Lock()
	m.watchers[roomID] = append(m.watchers[roomID], ch)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		defer m.mu.Unlock()
		ws := m.watchers[roomID]
		for i, w := range ws {
			if w == ch {
				m.watchers[roomID] = append(ws[:i], ws[i+1:]...)
				break
			}
		}
	}()
	return ch, nil
}

func (m *MemoryRooms) notify(ev PresenceEvent) {
	for _, ch := range m.watchers[ev.RoomID] {
		select {
		case ch <- ev:
		default:
		}
	}
}
