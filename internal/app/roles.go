package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ioezgamer/studio/internal/obs"
	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/store"
	"go.uber.org/zap"
)

// ResolveRole reads the caller's role from the store on every call. Missing
// rows, empty values and unknown values all resolve to viewer; only a store
// failure is returned as an error.
func (s *Service) ResolveRole(ctx context.Context, userID string) (rbac.Role, error) {
	if strings.TrimSpace(userID) == "" {
		return rbac.RoleViewer, nil
	}
	raw, err := s.store.GetRole(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return rbac.RoleViewer, nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve role for %s: %w", userID, err)
	}
	return rbac.Normalize(raw), nil
}

// authorize runs before any write. It returns a *DomainError so callers can
// pass the result straight through.
func (s *Service) authorize(ctx context.Context, actorID string, action rbac.Action) error {
	role, err := s.ResolveRole(ctx, actorID)
	if err != nil {
		s.logger.Error("role lookup failed", zap.String("actor", actorID), zap.Error(err))
		return storeFailure()
	}
	if !rbac.Can(role, action) {
		obs.PermissionDenials.WithLabelValues(string(action)).Inc()
		s.logger.Warn("permission denied",
			zap.String("actor", actorID),
			zap.String("role", string(role)),
			zap.String("action", string(action)),
		)
		return permissionDenied(string(action))
	}
	return nil
}
