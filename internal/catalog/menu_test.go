package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	services []Service
	seeded   []Service
	listErr  error
	calls    int
}

func (f *fakeRepo) List(ctx context.Context) ([]Service, error) {
	f.calls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.services, nil
}

func (f *fakeRepo) Seed(ctx context.Context, services []Service) error {
	f.seeded = append(f.seeded, services...)
	f.services = append(f.services, services...)
	return nil
}

func TestResolveSumsPrices(t *testing.T) {
	menu := NewMenu(&fakeRepo{services: DefaultServices()}, nil, nil)

	sel, err := menu.Resolve(context.Background(), []string{"1", "4", "9"})
	require.NoError(t, err)
	assert.Equal(t, 285.0, sel.Total)
	assert.Equal(t, []string{"Basic Car Wash", "Oil Change", "AC Repair"}, sel.Names())
}

func TestResolveIgnoresDuplicateIDs(t *testing.T) {
	menu := NewMenu(&fakeRepo{services: DefaultServices()}, nil, nil)

	sel, err := menu.Resolve(context.Background(), []string{"2", "2"})
	require.NoError(t, err)
	assert.Equal(t, 45.0, sel.Total)
	assert.Len(t, sel.Services, 1)
}

func TestResolveUnknownService(t *testing.T) {
	menu := NewMenu(&fakeRepo{services: DefaultServices()}, nil, nil)

	_, err := menu.Resolve(context.Background(), []string{"1", "42"})
	assert.ErrorIs(t, err, ErrUnknownService)
}

func TestTotalPricesSelection(t *testing.T) {
	menu := NewMenu(&fakeRepo{services: DefaultServices()}, nil, nil)

	total, err := menu.Total(context.Background(), []string{"2", "4", "2"})
	require.NoError(t, err)
	assert.Equal(t, 105.0, total)

	total, err = menu.Total(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, total)

	total, err = menu.Total(context.Background(), []string{"1", "42"})
	assert.ErrorIs(t, err, ErrUnknownService)
	assert.Zero(t, total)
}

func TestListFallsBackToDefaults(t *testing.T) {
	menu := NewMenu(&fakeRepo{}, nil, nil)

	services, err := menu.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, services, 9)
}

func TestListPropagatesStoreError(t *testing.T) {
	menu := NewMenu(&fakeRepo{listErr: errors.New("down")}, nil, nil)

	_, err := menu.List(context.Background())
	assert.Error(t, err)
}

func TestEnsureSeededOnlyWhenEmpty(t *testing.T) {
	repo := &fakeRepo{}
	menu := NewMenu(repo, nil, nil)

	require.NoError(t, menu.EnsureSeeded(context.Background()))
	assert.Len(t, repo.seeded, 9)

	require.NoError(t, menu.EnsureSeeded(context.Background()))
	assert.Len(t, repo.seeded, 9)
}

func TestByCategoryOrdersGroups(t *testing.T) {
	groups := ByCategory(DefaultServices())
	require.Len(t, groups, 3)
	assert.Equal(t, CategoryWash, groups[0].Category)
	assert.Equal(t, CategoryMaintenance, groups[1].Category)
	assert.Equal(t, CategoryRepair, groups[2].Category)
	assert.Len(t, groups[2].Services, 3)
	assert.Equal(t, "Car Wash", groups[0].Category.Label())
}
