package model

import "time"

// Admin represents an authoring-side account. Admins manage tests and
// questions; they never take tests themselves.
type Admin struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
