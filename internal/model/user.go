package model

import "time"

// User is a registered account. Two sign-up paths exist:
//
//   - GitHub OAuth: GitHubID is set (GitHub's stable numeric ID),
//     PasswordHash is empty.
//   - Email + password: PasswordHash holds the bcrypt hash, GitHubID is 0
//     (stored as NULL so the unique index ignores it).
//
// Either way we mint our own xid for the primary key — external identity
// schemes never become our primary keys.
//
// PasswordHash is deliberately excluded from JSON: user records are
// returned by /api/me and must never leak credentials.
type User struct {
	ID           string    `json:"id"`
	GitHubID     int64     `json:"githubId,omitempty"`
	Login        string    `json:"login"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatarUrl"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
