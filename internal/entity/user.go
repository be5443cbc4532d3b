package entity

import "time"

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUser:
		return true
	}
	return false
}

type User struct {
	ID         int64     `json:"id"`
	Username   string    `json:"username"`
	Password   string    `json:"-"`
	Role       Role      `json:"role"` // USER, ADMIN
	HeldBookID *int64    `json:"held_book_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Holds reports whether the user currently holds the given book.
func (u User) Holds(bookID int64) bool {
	return u.HeldBookID != nil && *u.HeldBookID == bookID
}
