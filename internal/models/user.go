package models

// User is a registered account. Email is the login key and is unique.
type User struct {
	ID           int    `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"` // don’t expose hash
	Name         string `json:"name"`
}
