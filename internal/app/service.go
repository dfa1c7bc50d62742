package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ioezgamer/studio/internal/ai"
	"github.com/ioezgamer/studio/internal/auth"
	"github.com/ioezgamer/studio/internal/authpw"
	"github.com/ioezgamer/studio/internal/config"
	"github.com/ioezgamer/studio/internal/drafts"
	"github.com/ioezgamer/studio/internal/export"
	"github.com/ioezgamer/studio/internal/logging"
	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/search"
	"github.com/ioezgamer/studio/internal/session"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/ioezgamer/studio/internal/util"
	"go.uber.org/zap"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         rbac.Role
	JTI          string
	ExpiresAt    time.Time
}

// DataStore is the persistence surface the service needs. *store.PostgresStore
// satisfies it.
type DataStore interface {
	Ping(context.Context) error
	GetRole(context.Context, string) (string, error)
	GetUserByID(context.Context, string) (store.User, error)
	InsertRecord(context.Context, store.MaintenanceRecord) error
	UpdateRecord(context.Context, string, store.RecordPatch) error
	DeleteRecord(context.Context, string) error
	GetRecord(context.Context, string) (store.MaintenanceRecord, error)
	ListRecords(context.Context) ([]store.MaintenanceRecord, error)
	SearchRecords(context.Context, string, string, int) ([]store.MaintenanceRecord, error)
	InsertReferenceItems(context.Context, []store.ReferenceItem) error
	ListReferenceItems(context.Context, string) ([]store.ReferenceItem, error)
}

type Assistant interface {
	SuggestTasks(ctx context.Context, equipmentType string) []string
	CheckRelevance(ctx context.Context, equipmentType, taskDescription string) store.Relevance
}

type passwordAuth interface {
	SignUp(ctx context.Context, req authpw.SignUpRequest) (store.User, error)
	SignIn(ctx context.Context, email, password string) (store.User, error)
}

// Deps lists the collaborators. Only Store is required; the rest default to
// database-backed or fallback implementations.
type Deps struct {
	Store     DataStore
	Sessions  session.Store
	Auth      *authpw.Service
	Assistant Assistant
	Drafts    *drafts.Tracker
	Search    *search.Service
	Export    *export.Service
	Logger    *zap.Logger
}

type Service struct {
	cfg       config.Config
	store     DataStore
	sessions  session.Store
	auth      passwordAuth
	assistant Assistant
	drafts    *drafts.Tracker
	search    *search.Service
	export    *export.Service
	logger    *zap.Logger
	now       func() time.Time
}

func New(cfg config.Config, deps Deps) (*Service, error) {
	if deps.Store == nil {
		return nil, ErrNotConfigured
	}
	logger := logging.OrNop(deps.Logger)

	s := &Service{
		cfg:       cfg,
		store:     deps.Store,
		sessions:  deps.Sessions,
		assistant: deps.Assistant,
		drafts:    deps.Drafts,
		search:    deps.Search,
		export:    deps.Export,
		logger:    logger,
		now:       time.Now,
	}
	if deps.Auth != nil {
		s.auth = deps.Auth
	} else if users, ok := deps.Store.(authpw.UserStore); ok {
		s.auth = authpw.NewService(users)
	}
	if s.sessions == nil {
		if sessions, ok := deps.Store.(session.Store); ok {
			s.sessions = sessions
		}
	}
	if s.assistant == nil {
		s.assistant = ai.NewAssistant(nil, cfg.AITimeout, logger)
	}
	if s.drafts == nil {
		s.drafts = drafts.NewTracker(s.assistant, cfg.DraftTTL)
	}
	if s.search == nil {
		s.search = search.NewService(nil, deps.Store, logger)
	}
	if s.export == nil {
		s.export = export.NewService(nil, nil, logger)
	}
	return s, nil
}

// Close cancels in-flight relevance checks of open drafts.
func (s *Service) Close() {
	s.drafts.Close()
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) SignUp(ctx context.Context, req authpw.SignUpRequest) (Session, error) {
	if s.auth == nil || s.sessions == nil {
		return Session{}, ErrNotConfigured
	}
	user, err := s.auth.SignUp(ctx, req)
	switch {
	case errors.Is(err, authpw.ErrInvalidInput):
		return Session{}, validationError(err.Error())
	case errors.Is(err, authpw.ErrEmailTaken):
		return Session{}, domainError(http.StatusConflict, "EMAIL_EXISTS", "El correo ya está registrado.", nil)
	case err != nil:
		s.logger.Error("sign up", zap.Error(err))
		return Session{}, storeFailure()
	}
	return s.issueSession(ctx, user)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (Session, error) {
	if s.auth == nil || s.sessions == nil {
		return Session{}, ErrNotConfigured
	}
	user, err := s.auth.SignIn(ctx, email, password)
	switch {
	case errors.Is(err, authpw.ErrInvalidCredentials):
		return Session{}, domainError(http.StatusUnauthorized, "INVALID_CREDENTIALS", "Correo o contraseña incorrectos.", nil)
	case err != nil:
		s.logger.Error("sign in", zap.Error(err))
		return Session{}, storeFailure()
	}
	return s.issueSession(ctx, user)
}

// Refresh rotates the refresh token: the presented one is revoked before a
// new pair is issued.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	if s.sessions == nil {
		return Session{}, ErrNotConfigured
	}
	tokenHash := auth.HashToken(strings.TrimSpace(refreshToken))
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup refresh session: %w", err)
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, fmt.Errorf("revoke refresh session: %w", err)
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := s.now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), user.ID, user.DisplayName, jti, expiresAt)
	if err != nil {
		return Session{}, err
	}

	refresh := "rft_" + uuid.NewString()
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, now.Add(s.cfg.RefreshTTL)); err != nil {
		return Session{}, fmt.Errorf("save refresh session: %w", err)
	}

	role, err := s.ResolveRole(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

// SessionFromToken validates the access token. The role in the result is
// read from the store, never from the token.
func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}
	if s.sessions != nil {
		revoked, err := s.sessions.IsAccessTokenRevoked(ctx, claims.ID)
		if err != nil {
			return Session{}, err
		}
		if revoked {
			return Session{}, auth.ErrInvalidToken
		}
	}

	user, err := s.store.GetUserByID(ctx, claims.Subject)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, auth.ErrInvalidToken
	}
	if err != nil {
		return Session{}, err
	}
	role, err := s.ResolveRole(ctx, user.ID)
	if err != nil {
		return Session{}, err
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      role,
		JTI:       claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (s *Service) Logout(ctx context.Context, session Session, refreshToken string) error {
	if s.sessions == nil {
		return nil
	}
	if session.JTI != "" {
		if err := s.sessions.RevokeAccessToken(ctx, session.JTI, session.ExpiresAt); err != nil {
			s.logger.Warn("revoke access token", zap.Error(err))
		}
	}
	if refreshToken != "" {
		if err := s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken)); err != nil {
			s.logger.Warn("revoke refresh session", zap.Error(err))
		}
	}
	return nil
}
