package users

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/user/blogplatform-go/apperror"
	"github.com/user/blogplatform-go/audit"
)

// MemoryStore is an in-process Store with the same uniqueness and soft-delete
// behaviour as the PostgreSQL store. Service tests in this and other packages
// run against it.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]User
	used   map[string]time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[int64]User), used: make(map[string]time.Time)}
}

func (m *MemoryStore) conflict(u *User) error {
	for id, other := range m.users {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return apperror.NewConflictError("email already exists", nil)
		}
		if other.Username == u.Username {
			return apperror.NewConflictError("username already exists", nil)
		}
	}
	return nil
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.conflict(u); err != nil {
		return err
	}
	m.nextID++
	u.ID = m.nextID
	m.users[u.ID] = *u
	return nil
}

func (m *MemoryStore) GetByID(_ context.Context, id int64, scope audit.Scope) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || (u.IsDeleted() && !scope.IncludeDeleted) {
		return nil, apperror.NewNotFoundError("user not found", nil)
	}
	return &u, nil
}

func (m *MemoryStore) find(match func(User) bool) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if !u.IsDeleted() && match(u) {
			found := u
			return &found, nil
		}
	}
	return nil, apperror.NewNotFoundError("user not found", nil)
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	email = NormalizeEmail(email)
	return m.find(func(u User) bool { return u.Email == email })
}

func (m *MemoryStore) GetByLogin(ctx context.Context, login string) (*User, error) {
	if strings.Contains(login, "@") {
		return m.GetByEmail(ctx, login)
	}
	return m.find(func(u User) bool { return u.Username == login })
}

func (m *MemoryStore) UpdateProfile(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.users[u.ID]
	if !ok || current.IsDeleted() {
		return apperror.NewNotFoundError("user not found", nil)
	}
	if err := m.conflict(u); err != nil {
		return err
	}
	current.Email = u.Email
	current.FullName = u.FullName
	current.Bio = u.Bio
	current.ProfileImageURL = u.ProfileImageURL
	current.IsVerified = u.IsVerified
	current.UpdatedAt = u.UpdatedAt
	current.UpdatedBy = u.UpdatedBy
	m.users[u.ID] = current
	return nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, id int64, currentHash, newHash string, actor *int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok || u.IsDeleted() || u.PasswordHash != currentHash {
		return ErrCredentialChanged
	}
	u.PasswordHash = newHash
	u.OnUpdate(actor, now)
	m.users[id] = u
	return nil
}

func (m *MemoryStore) SoftDelete(_ context.Context, id, actor int64, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return apperror.NewNotFoundError("user not found", nil)
	}
	if err := u.SoftDelete(actor, now, "account"); err != nil {
		return err
	}
	u.IsActive = false
	m.users[id] = u
	return nil
}

func (m *MemoryStore) ConsumeVerification(_ context.Context, userID int64, email, jti string, expiresAt, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, seen := m.used[jti]; seen {
		return apperror.NewConflictError("token already used", nil)
	}
	u, ok := m.users[userID]
	if !ok || u.IsDeleted() || u.Email != email {
		return apperror.NewInvalidSignatureError("token is no longer valid", nil)
	}
	m.used[jti] = expiresAt
	u.IsVerified = true
	u.OnUpdate(audit.Actor(userID), now)
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) PruneUsedTokens(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for jti, expiresAt := range m.used {
		if expiresAt.Before(before) {
			delete(m.used, jti)
			n++
		}
	}
	return n, nil
}

// SetActive flips the is_active flag, for administrative suspension.
func (m *MemoryStore) SetActive(id int64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.IsActive = active
		m.users[id] = u
	}
}
