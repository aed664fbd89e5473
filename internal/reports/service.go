package reports

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Service computes back-office reports.
type Service struct {
	store  Store
	cache  *Cache
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service. A nil cache disables caching.
func NewService(store Store, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cache, logger: logger, now: time.Now}
}

// WithClock overrides the clock used to decide what "today" is.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) today() time.Time {
	now := s.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// SystemStats returns today's activity summary.
func (s *Service) SystemStats(ctx context.Context) (SystemStats, error) {
	today := s.today()
	var stats SystemStats
	err := s.cached(ctx, &stats, func(ctx context.Context) (any, error) {
		return s.loadSystemStats(ctx, today)
	}, "reports", "system", today.Format("2006-01-02"))
	return stats, err
}

func (s *Service) loadSystemStats(ctx context.Context, today time.Time) (SystemStats, error) {
	var stats SystemStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountTransactions(ctx, today)
		stats.TodayTransactions = n
		return err
	})
	g.Go(func() error {
		avg, err := s.store.AverageBalance(ctx)
		stats.AverageBalance = avg.Round(2)
		return err
	})
	g.Go(func() error {
		sum, err := s.store.Turnover(ctx, today)
		stats.TodayTurnover = sum.Round(2)
		return err
	})
	g.Go(func() error {
		n, err := s.store.ActiveAccounts(ctx, today)
		stats.ActiveToday = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.NewAccounts(ctx, today)
		stats.NewToday = n
		return err
	})
	if err := g.Wait(); err != nil {
		return SystemStats{}, err
	}
	return stats, nil
}

// SuperStats returns the super admin overview.
func (s *Service) SuperStats(ctx context.Context) (SuperStats, error) {
	today := s.today()
	var stats SuperStats
	err := s.cached(ctx, &stats, func(ctx context.Context) (any, error) {
		return s.loadSuperStats(ctx, today)
	}, "reports", "super", today.Format("2006-01-02"))
	return stats, err
}

func (s *Service) loadSuperStats(ctx context.Context, today time.Time) (SuperStats, error) {
	var stats SuperStats
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.TotalUsers(ctx)
		stats.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.PendingSessions(ctx)
		stats.PendingSessions = n
		return err
	})
	g.Go(func() error {
		n, err := s.store.CountTransactions(ctx, today)
		stats.TodayTransactions = n
		return err
	})
	g.Go(func() error {
		sum, err := s.store.TotalBalance(ctx)
		stats.TotalBalance = sum.Round(2)
		return err
	})
	if err := g.Wait(); err != nil {
		return SuperStats{}, err
	}
	return stats, nil
}

// cached serves dest from the versioned cache, filling it from loader on a miss.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.BuildKey(ctx, parts...)
	if err != nil {
		return err
	}
	return s.cache.FetchJSON(ctx, key, dest, loader)
}

// Analyze returns up to MaxRows matching transactions and aggregates over them.
func (s *Service) Analyze(ctx context.Context, filter TransactionFilter) (Analysis, error) {
	rows, err := s.Transactions(ctx, filter)
	if err != nil {
		return Analysis{}, err
	}
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(row.Amount)
	}
	summary := AnalysisSummary{Count: len(rows), Total: total.Round(2), Average: decimal.Zero}
	if len(rows) > 0 {
		summary.Average = total.Div(decimal.NewFromInt(int64(len(rows)))).Round(2)
	}
	return Analysis{Summary: summary, Transactions: rows}, nil
}

// Transactions lists matching transactions newest first, at most MaxRows.
func (s *Service) Transactions(ctx context.Context, filter TransactionFilter) ([]TransactionRow, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	if filter.Limit <= 0 || filter.Limit > MaxRows {
		filter.Limit = MaxRows
	}
	rows, err := s.store.Transactions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []TransactionRow{}
	}
	return rows, nil
}

// RecentRegistrations lists the newest customer accounts.
func (s *Service) RecentRegistrations(ctx context.Context) ([]Registration, error) {
	regs, err := s.store.RecentRegistrations(ctx, recentRegistrations)
	if err != nil {
		return nil, err
	}
	if regs == nil {
		regs = []Registration{}
	}
	return regs, nil
}
