// Package model defines domain entities for the application.
package model

import "time"

// User is a persisted user record.
// ID is assigned by the store on first save and is empty for new candidates.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsNew reports whether the user has not been persisted yet.
func (u *User) IsNew() bool {
	return u.ID == ""
}

// Clone returns a shallow copy of the user.
func (u *User) Clone() *User {
	c := *u
	return &c
}

// ApplyPatch overwrites the mutable fields (name and email) from patch.
// The identifier and timestamps of u are left untouched.
func (u *User) ApplyPatch(patch User) {
	u.Name = patch.Name
	u.Email = patch.Email
}
