package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/autocare/workshop/internal/platform/cache"
	"github.com/autocare/workshop/internal/shared"
)

// Service computes the dashboard overview through the versioned cache.
type Service struct {
	repo     Repository
	cache    *cache.Versioned
	logger   *slog.Logger
	validate *validator.Validate
	auditor  shared.AuditRecorder
	loc      *time.Location
	now      func() time.Time
}

// NewService constructs the dashboard service. A nil cache loads on every call.
func NewService(repo Repository, c *cache.Versioned, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		cache:    c,
		logger:   logger,
		validate: validator.New(),
		auditor:  shared.NopAuditor{},
		loc:      time.UTC,
		now:      time.Now,
	}
}

// SetAuditor records expense creation.
func (s *Service) SetAuditor(a shared.AuditRecorder) {
	if a != nil {
		s.auditor = a
	}
}

// WithLocation sets the workshop time zone.
func (s *Service) WithLocation(loc *time.Location) {
	if loc != nil {
		s.loc = loc
	}
}

// WithNow overrides the clock.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Now returns the current time in the workshop time zone.
func (s *Service) Now() time.Time {
	return s.now().In(s.loc)
}

// Overview returns the cached stats and chart series. The cache key
// includes the day so the today counter rolls over at midnight.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	now := s.Now()
	key, err := s.cache.BuildKey(ctx, "overview", now.Format("2006-01-02"))
	if err != nil {
		return Overview{}, err
	}
	var out Overview
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return s.load(ctx, now)
	})
	return out, err
}

func (s *Service) load(ctx context.Context, now time.Time) (Overview, error) {
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	months := monthKeys(now, ChartMonths)
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc).AddDate(0, -(ChartMonths - 1), 0)

	var (
		stats    Stats
		income   map[string]float64
		expenses map[string]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.repo.Counts(gctx, dayStart, dayEnd)
		return err
	})
	g.Go(func() error {
		var err error
		income, err = s.repo.MonthlyIncome(gctx, from, s.loc.String())
		return err
	})
	g.Go(func() error {
		var err error
		expenses, err = s.repo.MonthlyExpenses(gctx, from)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}

	points := make([]MonthPoint, 0, len(months))
	for _, m := range months {
		points = append(points, MonthPoint{Month: m, Income: income[m], Expenses: expenses[m]})
	}
	return Overview{Stats: stats, Months: points}, nil
}

// monthKeys lists the n months ending with now's month, oldest first.
func monthKeys(now time.Time, n int) []string {
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		keys[i] = first.AddDate(0, i-(n-1), 0).Format("2006-01")
	}
	return keys
}

// RecordExpense validates and stores an expense, then invalidates the
// cached overview.
func (s *Service) RecordExpense(ctx context.Context, in ExpenseInput, staffID string) (Expense, error) {
	in.Label = strings.TrimSpace(in.Label)
	if err := s.validate.Struct(in); err != nil {
		return Expense{}, shared.NewSafeError(expenseMessage(err), ErrValidation)
	}
	now := s.Now()
	spent := in.SpentOn
	if spent.IsZero() {
		spent = now
	}
	e := Expense{
		ID:        uuid.NewString(),
		Label:     in.Label,
		Amount:    in.Amount,
		SpentOn:   time.Date(spent.Year(), spent.Month(), spent.Day(), 0, 0, 0, 0, s.loc),
		CreatedBy: staffID,
		CreatedAt: now,
	}
	if err := s.repo.InsertExpense(ctx, e); err != nil {
		return Expense{}, err
	}
	if err := s.auditor.Record(ctx, shared.AuditLog{
		ActorID:  staffID,
		Action:   shared.AuditExpenseCreate,
		Entity:   "expense",
		EntityID: e.ID,
		Meta:     map[string]any{"amount": e.Amount, "label": e.Label},
	}); err != nil {
		s.logger.Warn("audit expense failed", slog.Any("error", err))
	}
	if err := s.cache.Bump(ctx); err != nil {
		s.logger.Warn("dashboard cache bump failed", slog.Any("error", err))
	}
	return e, nil
}

func expenseMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	switch verrs[0].Field() {
	case "Amount":
		return "Amount must be greater than zero"
	default:
		return "Expense label is required"
	}
}
