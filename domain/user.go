package domain

import "time"

type User struct {
	ID           string
	Email        string
	DisplayName  string
	PasswordHash string
	Roles        []string
	CreatedAt    time.Time
}

// AuthResult is returned by register and login.
type AuthResult struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Token       string `json:"token"`
}
