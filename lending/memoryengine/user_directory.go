package memoryengine

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// UserDirectory is an in-memory lending.UserDirectory.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]struct{}
}

// NewUserDirectory creates a UserDirectory that knows the given users.
func NewUserDirectory(userIDs ...uuid.UUID) *UserDirectory {
	d := &UserDirectory{users: make(map[uuid.UUID]struct{}, len(userIDs))}

	for _, id := range userIDs {
		d.users[id] = struct{}{}
	}

	return d
}

// Add registers a user.
func (d *UserDirectory) Add(userID uuid.UUID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.users[userID] = struct{}{}
}

// Exists implements lending.UserDirectory.
func (d *UserDirectory) Exists(_ context.Context, userID uuid.UUID) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	_, found := d.users[userID]

	return found, nil
}
