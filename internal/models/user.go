// Package models contains data structures for the application's domain models.
package models

import "time"

// User is the identity held by the session store. Only one is active at a time.
type User struct {
	ID       string    `json:"id" yaml:"id"`
	Name     string    `json:"name" yaml:"name"`
	Email    string    `json:"email" yaml:"email"`
	Avatar   string    `json:"avatar" yaml:"avatar"`
	Bio      string    `json:"bio,omitempty" yaml:"bio,omitempty"`
	Location string    `json:"location,omitempty" yaml:"location,omitempty"`
	Website  string    `json:"website,omitempty" yaml:"website,omitempty"`
	JoinedAt time.Time `json:"joinedAt" yaml:"joinedAt"`
}

// ProfileUpdate names the profile fields to change. Nil fields are left as is.
type ProfileUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Avatar   *string `json:"avatar,omitempty"`
	Bio      *string `json:"bio,omitempty"`
	Location *string `json:"location,omitempty"`
	Website  *string `json:"website,omitempty"`
}

// Empty reports whether the update names no field.
func (u ProfileUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.Avatar == nil &&
		u.Bio == nil && u.Location == nil && u.Website == nil
}

// Apply returns a copy of user with the named fields replaced.
func (u ProfileUpdate) Apply(user User) User {
	if u.Name != nil {
		user.Name = *u.Name
	}
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Avatar != nil {
		user.Avatar = *u.Avatar
	}
	if u.Bio != nil {
		user.Bio = *u.Bio
	}
	if u.Location != nil {
		user.Location = *u.Location
	}
	if u.Website != nil {
		user.Website = *u.Website
	}
	return user
}
