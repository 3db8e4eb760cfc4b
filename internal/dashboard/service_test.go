package dashboard

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autocare/workshop/internal/platform/cache"
	"github.com/autocare/workshop/internal/shared"
)

type fakeRepo struct {
	mu        sync.Mutex
	loads     int
	stats     Stats
	income    map[string]float64
	expenses  map[string]float64
	inserted  []Expense
	insertErr error
	dayStart  time.Time
	from      time.Time
}

func (f *fakeRepo) Counts(_ context.Context, dayStart, _ time.Time) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.loads++
	f.dayStart = dayStart
	return f.stats, nil
}

func (f *fakeRepo) MonthlyIncome(_ context.Context, from time.Time, _ string) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.from = from
	return f.income, nil
}

func (f *fakeRepo) MonthlyExpenses(context.Context, time.Time) (map[string]float64, error) {
	return f.expenses, nil
}

func (f *fakeRepo) InsertExpense(_ context.Context, e Expense) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, e)
	return nil
}

type recordingAudit struct{ entries []shared.AuditLog }

func (r *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	r.entries = append(r.entries, log)
	return nil
}

var fixedNow = time.Date(2025, time.March, 7, 15, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeRepo, *cache.Versioned) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &fakeRepo{
		stats:    Stats{TodayCount: 2, PendingCount: 3, Revenue: 420, CompletedCount: 1},
		income:   map[string]float64{"2025-03": 300, "2025-01": 120},
		expenses: map[string]float64{"2025-03": 80, "2024-10": 50},
	}
	c := cache.NewVersioned(client, "dashboard", time.Minute)
	svc := NewService(repo, c, nil)
	svc.WithNow(func() time.Time { return fixedNow })
	return svc, repo, c
}

func TestOverviewBuildsSixMonthSeries(t *testing.T) {
	svc, repo, _ := newTestService(t)

	ov, err := svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repo.stats, ov.Stats)
	require.Len(t, ov.Months, ChartMonths)
	assert.Equal(t, "2024-10", ov.Months[0].Month)
	assert.Equal(t, 50.0, ov.Months[0].Expenses)
	assert.Equal(t, 120.0, ov.Months[3].Income)
	assert.Equal(t, MonthPoint{Month: "2025-03", Income: 300, Expenses: 80}, ov.Months[5])
	assert.Equal(t, time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC), repo.from)
	assert.Equal(t, time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC), repo.dayStart)
}

func TestOverviewIsCachedUntilBump(t *testing.T) {
	svc, repo, c := newTestService(t)
	ctx := context.Background()

	_, err := svc.Overview(ctx)
	require.NoError(t, err)
	repo.stats.PendingCount = 9
	ov, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, ov.Stats.PendingCount)
	assert.Equal(t, 1, repo.loads)

	require.NoError(t, c.Bump(ctx))
	ov, err = svc.Overview(ctx)
	require.NoError(t, err)
	assert.Equal(t, 9, ov.Stats.PendingCount)
	assert.Equal(t, 2, repo.loads)
}

func TestOverviewWithoutCache(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, nil, nil)
	svc.WithNow(func() time.Time { return fixedNow })

	_, err := svc.Overview(context.Background())
	require.NoError(t, err)
	_, err = svc.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.loads)
}

func TestRecordExpense(t *testing.T) {
	svc, repo, c := newTestService(t)
	audit := &recordingAudit{}
	svc.SetAuditor(audit)
	ctx := context.Background()

	before, err := c.Version(ctx)
	require.NoError(t, err)

	e, err := svc.RecordExpense(ctx, ExpenseInput{Label: "  Shop supplies ", Amount: 45.5}, "staff-1")
	require.NoError(t, err)
	assert.Equal(t, "Shop supplies", e.Label)
	assert.Equal(t, time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC), e.SpentOn)
	require.Len(t, repo.inserted, 1)
	require.Len(t, audit.entries, 1)
	assert.Equal(t, shared.AuditExpenseCreate, audit.entries[0].Action)

	after, err := c.Version(ctx)
	require.NoError(t, err)
	assert.Greater(t, after, before)
}

func TestRecordExpenseValidation(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.RecordExpense(ctx, ExpenseInput{Label: "Rent", Amount: 0}, "staff-1")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Amount must be greater than zero")

	_, err = svc.RecordExpense(ctx, ExpenseInput{Label: "   ", Amount: 10}, "staff-1")
	require.ErrorIs(t, err, ErrValidation)
	assert.Contains(t, err.Error(), "Expense label is required")
	assert.Empty(t, repo.inserted)
}

func TestMonthKeysCrossYear(t *testing.T) {
	keys := monthKeys(time.Date(2025, time.February, 28, 0, 0, 0, 0, time.UTC), 3)
	assert.Equal(t, []string{"2024-12", "2025-01", "2025-02"}, keys)
}
