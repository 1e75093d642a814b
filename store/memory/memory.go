// Package memory provides an in-process user.Store for offline runs and tests.
package memory

import (
	"context"
	"sync"

	"github.com/jacentio/users/user"
)

// Store keeps records in a map keyed by id with an email claim index.
// Each method holds the lock for its whole check-and-write, matching the
// single-call atomicity of the DynamoDB store.
type Store struct {
	mu     sync.Mutex
	users  map[string]user.User
	emails map[string]string // normalized email -> id
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:  make(map[string]user.User),
		emails: make(map[string]string),
	}
}

// PutIfAbsent implements user.Store.
func (s *Store) PutIfAbsent(ctx context.Context, u user.User) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emails[u.Email]; ok {
		return user.ErrEmailTaken
	}
	if _, ok := s.users[u.ID]; ok {
		return user.ErrAlreadyExists
	}

	s.users[u.ID] = u
	s.emails[u.Email] = u.ID
	return nil
}

// GetByKey implements user.Store.
func (s *Store) GetByKey(ctx context.Context, id string) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return &u, nil
}

// ScanAll implements user.Store. Map iteration order is unspecified, as is
// the order of a DynamoDB scan.
func (s *Store) ScanAll(ctx context.Context, limit int32) ([]user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users := make([]user.User, 0, len(s.users))
	for _, u := range s.users {
		if limit > 0 && int32(len(users)) >= limit {
			break
		}
		users = append(users, u)
	}
	return users, nil
}

// UpdateIfExists implements user.Store.
func (s *Store) UpdateIfExists(ctx context.Context, id string, m user.Mutation) (*user.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return nil, user.ErrNotFound
	}

	if email, ok := m.Value(user.FieldEmail); ok && email != current.Email {
		if owner, taken := s.emails[email]; taken && owner != id {
			return nil, user.ErrEmailTaken
		}
		delete(s.emails, current.Email)
		s.emails[email] = id
	}

	updated := m.Apply(current)
	s.users[id] = updated
	return &updated, nil
}

// DeleteIfExists implements user.Store.
func (s *Store) DeleteIfExists(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[id]
	if !ok {
		return user.ErrNotFound
	}

	delete(s.users, id)
	if s.emails[current.Email] == id {
		delete(s.emails, current.Email)
	}
	return nil
}

var _ user.Store = (*Store)(nil)
