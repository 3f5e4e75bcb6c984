package model

import "time"

// User represents an examinee account.
type User struct {
	ID           int       `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	// JoiningDate gates which tests are visible: tests scheduled before it
	// are excluded from the status report entirely.
	JoiningDate time.Time `json:"joining_date"`
	CreatedAt   time.Time `json:"created_at"`
}

// LoginRequest is the payload for user and admin login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// CreateUserRequest is the payload for registering a new user.
type CreateUserRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}
