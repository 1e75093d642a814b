package user

import (
	"context"
	"fmt"
	"strings"
)

// DefaultListLimit bounds a single list call.
const DefaultListLimit int32 = 100

// Service runs the user resource operations against a Store.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	store     Store
	validator *Validator
	codec     *Codec
	listLimit int32
}

// Option configures a Service.
type Option func(*Service)

// WithCodec replaces the default Codec.
func WithCodec(c *Codec) Option {
	return func(s *Service) { s.codec = c }
}

// WithValidator replaces the default Validator.
func WithValidator(v *Validator) Option {
	return func(s *Service) { s.validator = v }
}

// WithListLimit sets the page size used by List. Values < 1 keep the default.
func WithListLimit(limit int32) Option {
	return func(s *Service) {
		if limit > 0 {
			s.listLimit = limit
		}
	}
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:     store,
		listLimit: DefaultListLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.validator == nil {
		s.validator = MustNewValidator()
	}
	if s.codec == nil {
		s.codec = NewCodec()
	}
	return s
}

// Create validates req and stores a new record, failing with ErrEmailTaken
// when the normalized email is already held.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*User, error) {
	if err := s.validator.ValidateCreate(req); err != nil {
		return nil, err
	}

	u := s.codec.BuildForCreate(req)
	if err := s.store.PutIfAbsent(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &u, nil
}

// Get returns the record with id.
func (s *Service) Get(ctx context.Context, id string) (*User, error) {
	if isBlank(id) {
		return nil, ErrMissingID
	}

	u, err := s.store.GetByKey(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return u, nil
}

// List returns a single bounded snapshot of stored records.
func (s *Service) List(ctx context.Context) ([]User, error) {
	users, err := s.store.ScanAll(ctx, s.listLimit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []User{}
	}
	return users, nil
}

// Update applies the fields present in req to the record with id and returns
// the stored result. Concurrent updates are last-writer-wins.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (*User, error) {
	if isBlank(id) {
		return nil, ErrMissingID
	}
	if err := s.validator.ValidateUpdate(req); err != nil {
		return nil, err
	}

	m := s.codec.BuildUpdateMutation(req)
	if m.Empty() {
		return nil, ErrNoFieldsToUpdate
	}

	u, err := s.store.UpdateIfExists(ctx, id, m)
	if err != nil {
		return nil, fmt.Errorf("update user %s: %w", id, err)
	}
	return u, nil
}

// Delete removes the record with id.
func (s *Service) Delete(ctx context.Context, id string) error {
	if isBlank(id) {
		return ErrMissingID
	}

	if err := s.store.DeleteIfExists(ctx, id); err != nil {
		return fmt.Errorf("delete user %s: %w", id, err)
	}
	return nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
