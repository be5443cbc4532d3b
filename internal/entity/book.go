package entity

import "time"

// Book is a catalog entry. HolderID references the User the book is issued to.
type Book struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Issued    bool      `json:"is_issued"`
	HolderID  *int64    `json:"holder_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsHeldBy reports whether the book is issued to the given user.
func (b Book) IsHeldBy(userID int64) bool {
	return b.HolderID != nil && *b.HolderID == userID
}
