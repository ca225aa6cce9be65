package auth

import (
	"context"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryUserStore implements UserStore in process memory. It backs
// tests and single-node development setups.
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*User
}

// NewMemoryUserStore creates an empty in-memory user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[uuid.UUID]*User)}
}

func (m *MemoryUserStore) Create(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.users {
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
		if user.Username != "" && existing.Username == user.Username {
			return ErrUsernameTaken
		}
	}

	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MemoryUserStore) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return copyUser(user), nil
}

func (m *MemoryUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	return m.findFirst(func(u *User) bool { return u.Email == email })
}

func (m *MemoryUserStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	return m.findFirst(func(u *User) bool { return u.Username != "" && u.Username == username })
}

func (m *MemoryUserStore) FindByLogin(ctx context.Context, login string) (*User, error) {
	if user, err := m.FindByEmail(ctx, login); err == nil {
		return user, nil
	}
	return m.FindByUsername(ctx, login)
}

func (m *MemoryUserStore) FindByProvider(ctx context.Context, provider, externalID string) (*User, error) {
	return m.findFirst(func(u *User) bool { return u.ProviderID(provider) == externalID && externalID != "" })
}

func (m *MemoryUserStore) Update(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	for id, existing := range m.users {
		if id == user.ID {
			continue
		}
		if existing.Email == user.Email {
			return ErrEmailTaken
		}
		if user.Username != "" && existing.Username == user.Username {
			return ErrUsernameTaken
		}
	}

	m.users[user.ID] = copyUser(user)
	return nil
}

func (m *MemoryUserStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.users[id]; !ok {
		return ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MemoryUserStore) findFirst(match func(*User) bool) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, user := range m.users {
		if match(user) {
			return copyUser(user), nil
		}
	}
	return nil, ErrUserNotFound
}

func copyUser(u *User) *User {
	c := *u
	if u.ProviderIDs != nil {
		c.ProviderIDs = make(map[string]string, len(u.ProviderIDs))
		maps.Copy(c.ProviderIDs, u.ProviderIDs)
	}
	return &c
}

// MemorySessionStore implements SessionStore in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemorySessionStore creates an empty in-memory session store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*Session)}
}

func (m *MemorySessionStore) Create(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.sessions[session.TokenHash] = &s
	return nil
}

func (m *MemorySessionStore) FindByTokenHash(ctx context.Context, hash string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[hash]
	if !ok {
		return nil, ErrSessionNotFound
	}
	s := *session
	return &s, nil
}

func (m *MemorySessionStore) Touch(ctx context.Context, hash string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[hash]
	if !ok {
		return ErrSessionNotFound
	}
	session.LastActivityAt = at
	return nil
}

func (m *MemorySessionStore) Delete(ctx context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[hash]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, hash)
	return nil
}

func (m *MemorySessionStore) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for hash, session := range m.sessions {
		if session.UserID == userID {
			delete(m.sessions, hash)
		}
	}
	return nil
}

func (m *MemorySessionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Session
	for _, session := range m.sessions {
		if session.UserID == userID {
			out = append(out, *session)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastActivityAt.After(out[j].LastActivityAt)
	})
	return out, nil
}

func (m *MemorySessionStore) DeleteExpired(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for hash, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, hash)
		}
	}
	return nil
}

var (
	_ UserStore    = (*MemoryUserStore)(nil)
	_ SessionStore = (*MemorySessionStore)(nil)
)
