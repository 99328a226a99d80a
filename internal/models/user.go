package models

import "time"

// User represents a registered account.
// Email is the unique key, enforced at write time by the user repository.
// Password is stored verbatim, matching the legacy data files; hashing is a
// known gap that this storage layer does not remediate.
// CreatedAt is set once at registration and never updated.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Password  string    `json:"-"`
	UserType  string    `json:"user_type"`
	ID        int       `json:"id"`
}
