// Package userstest provides an in-memory users.Repository for tests.
package userstest

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"nw-social/internal"
	"nw-social/internal/users"
)

// Memory is a users.Repository backed by a map. FollowErr, when set, is
// returned by Follow before any write happens.
type Memory struct {
	mu        sync.Mutex
	byID      map[primitive.ObjectID]*users.User
	FollowErr error
}

func NewMemory() *Memory {
	return &Memory{byID: map[primitive.ObjectID]*users.User{}}
}

func clone(u *users.User) *users.User {
	c := *u
	c.Following = append([]primitive.ObjectID{}, u.Following...)
	c.Followers = append([]primitive.ObjectID{}, u.Followers...)
	return &c
}

func (m *Memory) Create(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.byID {
		if existing.Username == u.Username {
			return users.ErrDuplicateUsername
		}
	}
	u.ID = primitive.NewObjectID()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.byID[u.ID] = clone(u)
	return nil
}

func (m *Memory) FromID(_ context.Context, id primitive.ObjectID) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.byID[id]
	if !ok {
		return nil, users.ErrNotFound
	}
	return clone(u), nil
}

func (m *Memory) FromUsername(_ context.Context, username string) (*users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range m.byID {
		if u.Username == username {
			return clone(u), nil
		}
	}
	return nil, users.ErrNotFound
}

func (m *Memory) FromIDs(_ context.Context, ids []primitive.ObjectID) ([]users.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []users.User{}
	for _, id := range ids {
		if u, ok := m.byID[id]; ok {
			c := clone(u)
			c.Password = ""
			out = append(out, *c)
		}
	}
	return out, nil
}

func (m *Memory) Update(_ context.Context, u *users.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.byID[u.ID]
	if !ok {
		return users.ErrNotFound
	}
	for id, other := range m.byID {
		if id != u.ID && other.Username == u.Username {
			return users.ErrDuplicateUsername
		}
	}
	stored.Username = u.Username
	stored.Password = u.Password
	stored.FirstName = u.FirstName
	stored.LastName = u.LastName
	stored.About = u.About
	stored.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *Memory) Follow(_ context.Context, follower, target primitive.ObjectID) error {
	if m.FollowErr != nil {
		return m.FollowErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	f, ok := m.byID[follower]
	if !ok {
		return users.ErrNotFound
	}
	t, ok := m.byID[target]
	if !ok {
		return users.ErrNotFound
	}
	f.Following = internal.AppendObjectID(f.Following, target)
	t.Followers = internal.AppendObjectID(t.Followers, follower)
	return nil
}
