// Package service holds the business logic layer: validation, ownership
// rules, and orchestration. Handlers parse HTTP and delegate here;
// repositories store what this layer hands them. Nothing in this package
// knows about status codes or SQL.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/codeforge/internal/apperror"
	"github.com/sakif/codeforge/internal/model"
	"github.com/sakif/codeforge/internal/repository"
)

// Validation limits. Named constants so the error messages and the
// checks can't drift apart.
const (
	MaxSnippetNameLength = 100
	MaxLanguageLength    = 50
	MaxCodeLength        = 100000 // ~100KB of code
	MaxInputDataLength   = 100000
	DefaultListLimit     = 20
	MaxListLimit         = 100
)

// SnippetInput is what a caller supplies when creating or updating a
// snippet — the full editor state plus a name.
type SnippetInput struct {
	Name        string
	Language    string
	Code        string
	InputData   string
	Description string
}

// SnippetService enforces the rules around saved snippets: validation
// on the way in, ownership on the way out.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

// NewSnippetService wires the service to a repository implementation.
func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// validateInput applies the shared field rules for create and update.
func validateInput(in *SnippetInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)

	if in.Name == "" {
		return apperror.ValidationFailed("name", "snippet name is required")
	}
	if len(in.Name) > MaxSnippetNameLength {
		return apperror.ValidationFailed("name",
			fmt.Sprintf("snippet name must be %d characters or less", MaxSnippetNameLength))
	}
	if len(in.Language) > MaxLanguageLength {
		return apperror.ValidationFailed("language",
			fmt.Sprintf("language label must be %d characters or less", MaxLanguageLength))
	}
	if len(in.Code) > MaxCodeLength {
		return apperror.ValidationFailed("code",
			fmt.Sprintf("code must be %d characters or less", MaxCodeLength))
	}
	if len(in.InputData) > MaxInputDataLength {
		return apperror.ValidationFailed("inputData",
			fmt.Sprintf("input data must be %d characters or less", MaxInputDataLength))
	}
	return nil
}

// Create validates and saves a snippet for the given user.
//
// Note the deliberate asymmetry with the run path: runs accept anything
// (the execution service validates), but SAVING gets rules — storage is
// ours, so bounds are ours to enforce.
func (s *SnippetService) Create(ctx context.Context, userID string, in SnippetInput) (*model.Snippet, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		UserID:      userID,
		Name:        in.Name,
		Language:    in.Language,
		Code:        in.Code,
		InputData:   in.InputData,
		Description: in.Description,
	}

	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("userID", userID),
			slog.String("name", in.Name),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("userID", userID),
	)

	return snippet, nil
}

// GetByID fetches a snippet the caller owns. Someone else's snippet is
// Forbidden, not NotFound — IDs are unguessable xids, so there's nothing
// to leak by being honest about it.
func (s *SnippetService) GetByID(ctx context.Context, userID, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}

	snippet, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if snippet.UserID != userID {
		return nil, apperror.Forbidden("snippet belongs to another user")
	}

	return snippet, nil
}

// List returns a page of the caller's snippets, newest first. Limits are
// clamped so a client can't request the whole table.
func (s *SnippetService) List(ctx context.Context, userID string, limit, offset int) ([]model.Snippet, error) {
	if userID == "" {
		return nil, apperror.ValidationFailed("userId", "user ID is required")
	}

	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	snippets, err := s.repo.ListByUser(ctx, userID, repository.ListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		s.logger.Error("failed to list snippets",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("listing snippets: %w", err)
	}

	return snippets, nil
}

// Update overwrites an owned snippet with the new input.
func (s *SnippetService) Update(ctx context.Context, userID, id string, in SnippetInput) (*model.Snippet, error) {
	// Fetch-then-update: the ownership check and the NotFound both come
	// from GetByID, keeping the errors consistent with reads.
	snippet, err := s.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := validateInput(&in); err != nil {
		return nil, err
	}

	snippet.Name = in.Name
	snippet.Language = in.Language
	snippet.Code = in.Code
	snippet.InputData = in.InputData
	snippet.Description = in.Description

	if err := s.repo.Update(ctx, snippet); err != nil {
		s.logger.Error("failed to update snippet",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("updating snippet: %w", err)
	}

	s.logger.Info("snippet updated", slog.String("id", snippet.ID))

	return snippet, nil
}

// Delete removes an owned snippet.
func (s *SnippetService) Delete(ctx context.Context, userID, id string) error {
	// Ownership first; a blind repo delete would let any signed-in user
	// delete by ID.
	if _, err := s.GetByID(ctx, userID, id); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}
