package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"casa-backend/internal/shared/telemetry"
)

var (
	ErrUnsupportedLanguage = errors.New("unsupported chat language")
	errNotConfigured       = errors.New("users service not configured")
)

type Service struct {
	Repo Repo
	Now  func() time.Time
}

func NewService(repo Repo) *Service {
	return &Service{Repo: repo}
}

// UpsertFromAuth records a sign-in. Reports stay keyed by the same id across
// sessions, so the id must be the provider-scoped subject.
func (s *Service) UpsertFromAuth(ctx context.Context, user User) error {
	if s == nil || s.Repo == nil {
		return errNotConfigured
	}
	if strings.TrimSpace(user.ID) == "" || strings.TrimSpace(user.Email) == "" {
		return errors.New("user id and email are required")
	}
	user.LastSignInAt = s.now()
	return s.Repo.Upsert(ctx, user)
}

func (s *Service) GetByID(ctx context.Context, userID string) (User, error) {
	if s == nil || s.Repo == nil {
		return User{}, errNotConfigured
	}
	if strings.TrimSpace(userID) == "" {
		return User{}, errors.New("user id is required")
	}
	return s.Repo.GetByID(ctx, userID)
}

// SetChatLanguage stores the caller's reply language and returns the
// canonical name that was saved.
func (s *Service) SetChatLanguage(ctx context.Context, userID, language string) (string, error) {
	if s == nil || s.Repo == nil {
		return "", errNotConfigured
	}
	canonical, ok := CanonicalLanguage(language)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedLanguage, language)
	}
	if err := s.Repo.SetChatLanguage(ctx, userID, canonical); err != nil {
		return "", err
	}
	return canonical, nil
}

// ChatLanguage returns the stored preference, or "" when there is none.
// Lookup failures are logged and treated as no preference.
func (s *Service) ChatLanguage(ctx context.Context, userID string) string {
	if s == nil || s.Repo == nil || strings.HasPrefix(userID, "guest:") {
		return ""
	}
	user, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			telemetry.Warn("users.language_lookup_failed", map[string]any{"user_id": userID, "error": err.Error()})
		}
		return ""
	}
	return user.ChatLanguage
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
