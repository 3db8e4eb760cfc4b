package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/autocare/workshop/internal/platform/cache"
)

// Menu wraps the service catalog with a read-through cache.
type Menu struct {
	repo   Repository
	cache  *cache.Versioned
	logger *slog.Logger
}

// NewMenu constructs the catalog menu. cache may be nil.
func NewMenu(repo Repository, c *cache.Versioned, logger *slog.Logger) *Menu {
	if logger == nil {
		logger = slog.Default()
	}
	return &Menu{repo: repo, cache: c, logger: logger}
}

// List returns the menu, falling back to the default menu when the store is empty.
func (s *Menu) List(ctx context.Context) ([]Service, error) {
	key, err := s.cache.BuildKey(ctx, "menu")
	if err != nil {
		s.logger.Warn("catalog cache key", slog.Any("error", err))
		return s.load(ctx)
	}
	var services []Service
	err = s.cache.FetchJSON(ctx, key, &services, func(ctx context.Context) (any, error) {
		return s.load(ctx)
	})
	if err != nil {
		return nil, err
	}
	return services, nil
}

func (s *Menu) load(ctx context.Context) ([]Service, error) {
	services, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(services) == 0 {
		return DefaultServices(), nil
	}
	return services, nil
}

// Resolve maps selected ids onto menu entries and sums their prices.
// Duplicate ids are counted once.
func (s *Menu) Resolve(ctx context.Context, ids []string) (Selection, error) {
	services, err := s.List(ctx)
	if err != nil {
		return Selection{}, err
	}
	byID := make(map[string]Service, len(services))
	for _, svc := range services {
		byID[svc.ID] = svc
	}
	var sel Selection
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		svc, ok := byID[id]
		if !ok {
			return Selection{}, fmt.Errorf("%w: %s", ErrUnknownService, id)
		}
		sel.Services = append(sel.Services, svc)
		sel.Total += svc.Price
	}
	return sel, nil
}

// EnsureSeeded writes the default menu into an empty store.
func (s *Menu) EnsureSeeded(ctx context.Context) error {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}
	if err := s.repo.Seed(ctx, DefaultServices()); err != nil {
		return err
	}
	return s.cache.Bump(ctx)
}

// Total sums the prices of the selected ids.
func (s *Menu) Total(ctx context.Context, ids []string) (float64, error) {
	sel, err := s.Resolve(ctx, ids)
	if err != nil {
		return 0, err
	}
	return sel.Total, nil
}

// ByCategory groups the menu for the booking form, in category order.
func ByCategory(services []Service) []CategoryGroup {
	order := []Category{CategoryWash, CategoryMaintenance, CategoryRepair}
	groups := make([]CategoryGroup, 0, len(order))
	for _, cat := range order {
		group := CategoryGroup{Category: cat}
		for _, svc := range services {
			if svc.Category == cat {
				group.Services = append(group.Services, svc)
			}
		}
		if len(group.Services) > 0 {
			groups = append(groups, group)
		}
	}
	return groups
}
