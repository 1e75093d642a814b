package user

import "time"

// User is the stored user record.
type User struct {
	ID        string    `json:"id" dynamodbav:"id"`
	Name      string    `json:"name" dynamodbav:"name"`
	Email     string    `json:"email" dynamodbav:"email"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updatedAt"`
}

// CreateRequest is the payload of a create call.
type CreateRequest struct {
	Name  string `json:"name" validate:"required_trimmed"`
	Email string `json:"email" validate:"required_trimmed,looseemail"`
}

// UpdateRequest is the payload of an update call. A nil field is absent;
// a non-nil field is checked even when it points at an empty string.
type UpdateRequest struct {
	Name  *string `json:"name" validate:"omitnil,notblank"`
	Email *string `json:"email" validate:"omitnil,notblank,looseemail"`
}
