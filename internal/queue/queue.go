package queue

import (
	"queueup/internal/domain"
)

// Queue is the in-memory role-bucketed waiting list for one session.
// It holds pure state transitions only; callers serialize mutations through
// the serializer keyed on (tenant, session number).
type Queue struct {
	capacity int
	buckets  map[domain.Role][]string
}

// Snapshot is an immutable copy handed to presenters and the draft.
type Snapshot struct {
	Capacity int                      `json:"capacity"`
	Buckets  map[domain.Role][]string `json:"buckets"`
}

func New(perRoleCapacity int) *Queue {
	q := &Queue{
		capacity: perRoleCapacity,
		buckets:  make(map[domain.Role][]string, len(domain.RoleOrder)),
	}
	for _, r := range domain.RoleOrder {
		q.buckets[r] = nil
	}
	return q
}

// Join appends the player to the chosen role bucket.
func (q *Queue) Join(playerID string, role domain.Role) (Snapshot, error) {
	if !domain.ValidRole(role) {
		return q.Snapshot(), domain.ErrUnknownRole
	}
	if q.Contains(playerID) {
		return q.Snapshot(), domain.ErrAlreadyQueued
	}
	if q.IsFull() {
		return q.Snapshot(), domain.ErrQueueFull
	}
	if len(q.buckets[role]) >= q.capacity {
		return q.Snapshot(), domain.ErrRoleFull
	}
	q.buckets[role] = append(q.buckets[role], playerID)
	return q.Snapshot(), nil
}

// Leave removes the player from whichever bucket holds it.
func (q *Queue) Leave(playerID string) (Snapshot, error) {
	for _, r := range domain.RoleOrder {
		for i, id := range q.buckets[r] {
			if id == playerID {
				q.buckets[r] = append(q.buckets[r][:i], q.buckets[r][i+1:]...)
				return q.Snapshot(), nil
			}
		}
	}
	return q.Snapshot(), domain.ErrNotQueued
}

// IsFull reports whether every bucket has reached capacity.
func (q *Queue) IsFull() bool {
	for _, r := range domain.RoleOrder {
		if len(q.buckets[r]) < q.capacity {
			return false
		}
	}
	return true
}

func (q *Queue) Contains(playerID string) bool {
	for _, r := range domain.RoleOrder {
		for _, id := range q.buckets[r] {
			if id == playerID {
				return true
			}
		}
	}
	return false
}

// RoleOf returns the bucket holding the player, if any.
func (q *Queue) RoleOf(playerID string) (domain.Role, bool) {
	for _, r := range domain.RoleOrder {
		for _, id := range q.buckets[r] {
			if id == playerID {
				return r, true
			}
		}
	}
	return "", false
}

// Reset empties every bucket.
func (q *Queue) Reset() {
	for _, r := range domain.RoleOrder {
		q.buckets[r] = nil
	}
}

func (q *Queue) Snapshot() Snapshot {
	buckets := make(map[domain.Role][]string, len(domain.RoleOrder))
	for _, r := range domain.RoleOrder {
		buckets[r] = append([]string(nil), q.buckets[r]...)
	}
	return Snapshot{Capacity: q.capacity, Buckets: buckets}
}

// Ids returns every queued player id in role order.
func (s Snapshot) Ids() []string {
	ids := make([]string, 0, len(domain.RoleOrder)*s.Capacity)
	for _, r := range domain.RoleOrder {
		ids = append(ids, s.Buckets[r]...)
	}
	return ids
}

// Pair returns the (up to two) players queued on a role.
func (s Snapshot) Pair(role domain.Role) []string {
	return s.Buckets[role]
}

// RoleOf returns the role a player is queued on.
func (s Snapshot) RoleOf(playerID string) (domain.Role, bool) {
	for _, r := range domain.RoleOrder {
		for _, id := range s.Buckets[r] {
			if id == playerID {
				return r, true
			}
		}
	}
	return "", false
}
