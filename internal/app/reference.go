package app

import (
	"context"
	"strings"

	"github.com/ioezgamer/studio/internal/rbac"
	"github.com/ioezgamer/studio/internal/store"
	"github.com/ioezgamer/studio/internal/util"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type ReferenceItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func referenceItems(items []store.ReferenceItem) []ReferenceItem {
	out := make([]ReferenceItem, 0, len(items))
	for _, item := range items {
		out = append(out, ReferenceItem{ID: item.ID, Name: item.Name})
	}
	return out
}

// AddReferenceItem appends name to list. The list name is checked before the
// role so an unknown list is rejected the same way for every caller.
func (s *Service) AddReferenceItem(ctx context.Context, list, name, actorID string) (ReferenceItem, error) {
	items, err := s.AddReferenceItems(ctx, list, []string{name}, actorID)
	if err != nil {
		return ReferenceItem{}, err
	}
	return items[0], nil
}

// AddReferenceItems inserts each non-blank name; blank entries are skipped
// and at least one name must remain.
func (s *Service) AddReferenceItems(ctx context.Context, list string, names []string, actorID string) ([]ReferenceItem, error) {
	if !store.IsReferenceList(list) {
		return nil, invalidList(list)
	}
	if err := s.authorize(ctx, actorID, rbac.ActionWrite); err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return nil, validationError("El nombre es obligatorio.")
	}

	now := s.now().UTC()
	items := make([]store.ReferenceItem, 0, len(cleaned))
	for _, name := range cleaned {
		items = append(items, store.ReferenceItem{
			ID:        util.NewID("ref"),
			List:      list,
			Name:      name,
			CreatedBy: actorID,
			CreatedAt: now,
		})
	}
	if err := s.store.InsertReferenceItems(ctx, items); err != nil {
		s.logger.Error("insert reference items", zap.String("list", list), zap.String("actor", actorID), zap.Int("count", len(items)), zap.Error(err))
		return nil, storeFailure()
	}

	added := make([]ReferenceItem, 0, len(items))
	for _, item := range items {
		added = append(added, ReferenceItem{ID: item.ID, Name: item.Name})
	}
	return added, nil
}

// SplitNames breaks a bulk entry on commas and newlines.
func SplitNames(raw string) []string {
	return strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
}

// ListReferenceItems returns the list ordered by name.
func (s *Service) ListReferenceItems(ctx context.Context, list string) ([]ReferenceItem, error) {
	if !store.IsReferenceList(list) {
		return nil, invalidList(list)
	}
	items, err := s.store.ListReferenceItems(ctx, list)
	if err != nil {
		s.logger.Error("list reference items", zap.String("list", list), zap.Error(err))
		return nil, storeFailure()
	}
	return referenceItems(items), nil
}

// ReferenceLists loads all four lists concurrently for form dropdowns.
func (s *Service) ReferenceLists(ctx context.Context) (map[string][]ReferenceItem, error) {
	results := make([][]ReferenceItem, len(store.ReferenceLists))
	group, groupCtx := errgroup.WithContext(ctx)
	for i, list := range store.ReferenceLists {
		group.Go(func() error {
			items, err := s.ListReferenceItems(groupCtx, list)
			if err != nil {
				return err
			}
			results[i] = items
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	lists := make(map[string][]ReferenceItem, len(store.ReferenceLists))
	for i, list := range store.ReferenceLists {
		lists[list] = results[i]
	}
	return lists, nil
}
