package playground

import (
	"log/slog"
	"sync"

	"github.com/sakif/codeforge/internal/execservice"
	"github.com/sakif/codeforge/internal/language"
)

// Sessions owns one Controller per signed-in user.
//
// Controllers are created lazily on first access and live until the
// session ends (logout) — there is no persistence, so a dropped session
// loses its editor state and last result, which matches how a browser
// view dies on navigation.
//
// All session controllers share the same Runner and Mapper; only the
// mutable view state is per-user.
type Sessions struct {
	runner execservice.Runner
	mapper *language.Mapper
	logger *slog.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

// NewSessions creates an empty session registry.
func NewSessions(runner execservice.Runner, mapper *language.Mapper, logger *slog.Logger) *Sessions {
	return &Sessions{
		runner:      runner,
		mapper:      mapper,
		logger:      logger,
		controllers: make(map[string]*Controller),
	}
}

// For returns the controller for the given user, creating it on first
// access. Concurrent calls for the same user get the same controller.
func (s *Sessions) For(userID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctrl, ok := s.controllers[userID]
	if !ok {
		ctrl = NewController(s.runner, s.mapper, s.logger.With(slog.String("userID", userID)))
		s.controllers[userID] = ctrl
		s.logger.Debug("playground session created", slog.String("userID", userID))
	}
	return ctrl
}

// Drop tears down the user's controller. Called on logout. A run still
// in flight finishes against the orphaned controller and is garbage
// collected with it; nothing observes its terminal snapshot.
func (s *Sessions) Drop(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.controllers[userID]; ok {
		delete(s.controllers, userID)
		s.logger.Debug("playground session dropped", slog.String("userID", userID))
	}
}

// Count returns the number of live session controllers. Used by tests
// and the health endpoint.
func (s *Sessions) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.controllers)
}
