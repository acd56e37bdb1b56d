package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"testing"

	"github.com/sakif/codeforge/internal/apperror"
	"github.com/sakif/codeforge/internal/auth"
	"github.com/sakif/codeforge/internal/model"
)

// mockUserRepo is an in-memory UserRepository.
type mockUserRepo struct {
	byID     map[string]*model.User
	byGitHub map[int64]string // github id → internal id
	byEmail  map[string]string
	nextID   int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		byID:     make(map[string]*model.User),
		byGitHub: make(map[int64]string),
		byEmail:  make(map[string]string),
	}
}

func (m *mockUserRepo) UpsertGitHub(_ context.Context, user *model.User) error {
	if id, ok := m.byGitHub[user.GitHubID]; ok {
		user.ID = id
	} else {
		m.nextID++
		user.ID = fmt.Sprintf("user-%d", m.nextID)
		m.byGitHub[user.GitHubID] = user.ID
	}
	stored := *user
	m.byID[user.ID] = &stored
	return nil
}

func (m *mockUserRepo) CreateUser(_ context.Context, user *model.User) error {
	if _, ok := m.byEmail[user.Email]; ok {
		return apperror.Conflict(fmt.Sprintf("email %s is already registered", user.Email))
	}
	m.nextID++
	user.ID = fmt.Sprintf("user-%d", m.nextID)
	stored := *user
	m.byID[user.ID] = &stored
	m.byEmail[user.Email] = user.ID
	return nil
}

func (m *mockUserRepo) GetUserByID(_ context.Context, id string) (*model.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	result := *user
	return &result, nil
}

func (m *mockUserRepo) GetUserByEmail(_ context.Context, email string) (*model.User, error) {
	id, ok := m.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	return m.GetUserByID(context.Background(), id)
}

func newTestAuthService(t *testing.T) (*AuthService, *mockUserRepo, *auth.TokenService) {
	t.Helper()
	repo := newMockUserRepo()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars")
	if err != nil {
		t.Fatalf("NewTokenService() error = %v", err)
	}
	passwords := auth.NewPasswordServiceForTest(4)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewAuthService(repo, tokens, passwords, logger), repo, tokens
}

func TestLoginOrRegisterGitHub(t *testing.T) {
	svc, repo, tokens := newTestAuthService(t)
	ctx := context.Background()

	ghUser := &auth.GitHubUser{ID: 42, Login: "sakif", Email: "sakif@example.com"}

	result, err := svc.LoginOrRegisterGitHub(ctx, ghUser)
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("user has no internal ID")
	}
	if result.Token == "" {
		t.Fatal("no session token issued")
	}

	// The token must validate back to the same user.
	userID, err := tokens.Validate(result.Token)
	if err != nil {
		t.Fatalf("Validate(issued token) error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("token subject = %q, want %q", userID, result.User.ID)
	}

	// Second login with the same GitHub ID reuses the account.
	again, err := svc.LoginOrRegisterGitHub(ctx, ghUser)
	if err != nil {
		t.Fatalf("second LoginOrRegisterGitHub() error = %v", err)
	}
	if again.User.ID != result.User.ID {
		t.Errorf("second login user ID = %q, want stable %q", again.User.ID, result.User.ID)
	}
	if len(repo.byID) != 1 {
		t.Errorf("repo has %d users, want 1", len(repo.byID))
	}
}

func TestLoginOrRegisterGitHub_NilUser(t *testing.T) {
	svc, _, _ := newTestAuthService(t)

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Error("LoginOrRegisterGitHub(nil) error = nil, want error")
	}
}

func TestRegisterPassword(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	result, err := svc.RegisterPassword(ctx, "ada", "Ada@Example.com", "securepass")
	if err != nil {
		t.Fatalf("RegisterPassword() error = %v", err)
	}

	// Email is normalised to lowercase.
	if result.User.Email != "ada@example.com" {
		t.Errorf("Email = %q, want lowercased", result.User.Email)
	}
	if result.User.PasswordHash == "" || result.User.PasswordHash == "securepass" {
		t.Error("password stored unhashed or not at all")
	}
	if _, err := tokens.Validate(result.Token); err != nil {
		t.Errorf("issued token invalid: %v", err)
	}
}

func TestRegisterPassword_Validation(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	tests := []struct {
		name                   string
		login, email, password string
	}{
		{"empty login", "", "a@example.com", "securepass"},
		{"empty email", "ada", "", "securepass"},
		{"email without @", "ada", "not-an-email", "securepass"},
		{"short password", "ada", "a@example.com", "short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.RegisterPassword(ctx, tt.login, tt.email, tt.password)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Errorf("RegisterPassword() error = %v, want ErrValidation", err)
			}
		})
	}
}

func TestRegisterPassword_DuplicateEmail(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.RegisterPassword(ctx, "ada", "ada@example.com", "securepass"); err != nil {
		t.Fatalf("first RegisterPassword() error = %v", err)
	}

	_, err := svc.RegisterPassword(ctx, "imposter", "ada@example.com", "otherpass")
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate RegisterPassword() error = %v, want ErrConflict", err)
	}
}

func TestLoginPassword(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.RegisterPassword(ctx, "ada", "ada@example.com", "securepass")
	if err != nil {
		t.Fatalf("RegisterPassword() error = %v", err)
	}

	result, err := svc.LoginPassword(ctx, "ADA@example.com", "securepass")
	if err != nil {
		t.Fatalf("LoginPassword() error = %v", err)
	}
	if result.User.ID != registered.User.ID {
		t.Errorf("login user = %q, want %q", result.User.ID, registered.User.ID)
	}
}

func TestLoginPassword_BadCredentialsIndistinguishable(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	if _, err := svc.RegisterPassword(ctx, "ada", "ada@example.com", "securepass"); err != nil {
		t.Fatalf("RegisterPassword() error = %v", err)
	}

	_, wrongPass := svc.LoginPassword(ctx, "ada@example.com", "wrong")
	_, unknownEmail := svc.LoginPassword(ctx, "ghost@example.com", "whatever")

	if !errors.Is(wrongPass, apperror.ErrUnauthorized) {
		t.Errorf("wrong password error = %v, want ErrUnauthorized", wrongPass)
	}
	if !errors.Is(unknownEmail, apperror.ErrUnauthorized) {
		t.Errorf("unknown email error = %v, want ErrUnauthorized", unknownEmail)
	}
	// Same user-visible message for both — no email enumeration.
	if wrongPass.Error() != unknownEmail.Error() {
		t.Errorf("messages differ: %q vs %q", wrongPass.Error(), unknownEmail.Error())
	}
}

func TestLoginPassword_GitHubOnlyAccount(t *testing.T) {
	svc, _, _ := newTestAuthService(t)
	ctx := context.Background()

	ghResult, err := svc.LoginOrRegisterGitHub(ctx, &auth.GitHubUser{ID: 7, Login: "gh", Email: "gh@example.com"})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}
	_ = ghResult

	// A GitHub account has no password; the login form must reject it
	// the same way as any bad credential.
	_, err = svc.LoginPassword(ctx, "gh@example.com", "anything")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Errorf("LoginPassword(github account) error = %v, want ErrUnauthorized", err)
	}
}

func TestValidateToken(t *testing.T) {
	svc, _, tokens := newTestAuthService(t)

	token, err := tokens.Generate("user-1")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	userID, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if userID != "user-1" {
		t.Errorf("userID = %q, want %q", userID, "user-1")
	}

	if _, err := svc.ValidateToken("garbage"); err == nil {
		t.Error("ValidateToken(garbage) error = nil, want error")
	}
}
