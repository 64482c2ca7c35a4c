// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"time"

	"github.com/usergate/usergate/internal/model"
)

// UserRequest is the body of POST /api/users and PUT /api/users/{id}.
// It has no id: an id in the body, of any JSON type, is ignored like any
// other unknown field.
type UserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ToModel converts the request into a user candidate or patch.
func (r UserRequest) ToModel() model.User {
	return model.User{
		Name:  r.Name,
		Email: r.Email,
	}
}

// UserResponse represents a user in API responses.
type UserResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ToUserResponse converts a User model to UserResponse DTO.
func ToUserResponse(user *model.User) *UserResponse {
	return &UserResponse{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
}

// ToUserListResponse converts users to a JSON array; an empty store yields [].
func ToUserListResponse(users []*model.User) []UserResponse {
	responses := make([]UserResponse, len(users))
	for i, user := range users {
		responses[i] = *ToUserResponse(user)
	}
	return responses
}
