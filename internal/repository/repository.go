// Package repository declares the storage interfaces the service layer
// depends on. Concrete backends (sqlite) implement them; tests use
// in-memory fakes.
package repository

import (
	"context"

	"github.com/sakif/codeforge/internal/model"
)

// ListOptions paginates snippet listings.
type ListOptions struct {
	Limit  int
	Offset int
}

// SnippetRepository stores saved playground snapshots. Snippets are
// private to their owner — all reads are scoped by user at the service
// layer, and List is scoped here because it is a bulk query.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	ListByUser(ctx context.Context, userID string, opts ListOptions) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores user accounts for both sign-up paths.
type UserRepository interface {
	// UpsertGitHub creates or refreshes a user keyed by GitHub ID,
	// populating user.ID either way.
	UpsertGitHub(ctx context.Context, user *model.User) error
	// CreateUser inserts a new password-based user. Fails with a
	// conflict if the email is already registered.
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}
