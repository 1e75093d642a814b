package user

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Field names a mutable user attribute.
type Field string

const (
	FieldName  Field = "name"
	FieldEmail Field = "email"
)

// Assignment sets one attribute to a normalized value.
type Assignment struct {
	Field Field
	Value string
}

// Mutation describes a partial update. UpdatedAt is always assigned.
type Mutation struct {
	Assignments []Assignment
	UpdatedAt   time.Time
}

// Empty reports whether the mutation changes nothing but the timestamp.
func (m Mutation) Empty() bool {
	return len(m.Assignments) == 0
}

// Value returns the assigned value for f, if any.
func (m Mutation) Value(f Field) (string, bool) {
	for _, a := range m.Assignments {
		if a.Field == f {
			return a.Value, true
		}
	}
	return "", false
}

// Apply returns u with the mutation applied.
func (m Mutation) Apply(u User) User {
	for _, a := range m.Assignments {
		switch a.Field {
		case FieldName:
			u.Name = a.Value
		case FieldEmail:
			u.Email = a.Value
		}
	}
	u.UpdatedAt = m.UpdatedAt
	return u
}

// Codec builds stored records and update mutations from request payloads.
type Codec struct {
	now   func() time.Time
	newID func() string
}

// CodecOption configures a Codec.
type CodecOption func(*Codec)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) CodecOption {
	return func(c *Codec) { c.now = now }
}

// WithIDGenerator overrides the id source.
func WithIDGenerator(newID func() string) CodecOption {
	return func(c *Codec) { c.newID = newID }
}

// NewCodec creates a Codec minting UUIDv4 ids and UTC timestamps.
func NewCodec(opts ...CodecOption) *Codec {
	c := &Codec{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuildForCreate mints a new record from a validated create payload.
func (c *Codec) BuildForCreate(req CreateRequest) User {
	now := c.now()
	return User{
		ID:        c.newID(),
		Name:      normalizeName(req.Name),
		Email:     NormalizeEmail(req.Email),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// BuildUpdateMutation collects assignments for the fields present in req.
func (c *Codec) BuildUpdateMutation(req UpdateRequest) Mutation {
	m := Mutation{UpdatedAt: c.now()}
	if req.Name != nil {
		m.Assignments = append(m.Assignments, Assignment{Field: FieldName, Value: normalizeName(*req.Name)})
	}
	if req.Email != nil {
		m.Assignments = append(m.Assignments, Assignment{Field: FieldEmail, Value: NormalizeEmail(*req.Email)})
	}
	return m
}

// NormalizeEmail trims and lower-cases an email for storage and comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeName(name string) string {
	return strings.TrimSpace(name)
}
