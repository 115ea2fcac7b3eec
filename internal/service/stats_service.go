package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/lostfound-api/internal/access"
	"github.com/noah-isme/lostfound-api/internal/models"
	appErrors "github.com/noah-isme/lostfound-api/pkg/errors"
)

const (
	statsCacheKey     = "stats:admin"
	statsCachePattern = "stats:*"
)

type statsRepository interface {
	Totals(ctx context.Context) (models.StatsTotals, error)
	ItemsByStatus(ctx context.Context) ([]models.StatusCount, error)
	ItemsByCategory(ctx context.Context) ([]models.CategoryCount, error)
	RecentScans(ctx context.Context, limit int) ([]models.RecentScan, error)
	ScansPerDay(ctx context.Context, since time.Time) ([]models.DailyCount, error)
}

// StatsConfig bounds the dashboard aggregates.
type StatsConfig struct {
	RecentScans  int
	TimelineDays int
	CacheTTL     time.Duration
}

// StatsService aggregates registry activity for administrators.
type StatsService struct {
	repo   statsRepository
	cache  *CacheService
	logger *zap.Logger
	config StatsConfig
	now    func() time.Time
}

// NewStatsService constructs a StatsService.
func NewStatsService(repo statsRepository, cache *CacheService, logger *zap.Logger, config StatsConfig) *StatsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.RecentScans <= 0 {
		config.RecentScans = 10
	}
	if config.TimelineDays <= 0 {
		config.TimelineDays = 30
	}
	return &StatsService{repo: repo, cache: cache, logger: logger, config: config, now: time.Now}
}

// Admin returns the dashboard. hit reports whether it came from cache.
func (s *StatsService) Admin(ctx context.Context, caller *access.Caller) (stats *models.AdminStats, hit bool, err error) {
	if !caller.IsAdmin() {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "administrator access required")
	}

	var cached models.AdminStats
	if s.cache.Get(ctx, statsCacheKey, &cached) {
		return &cached, true, nil
	}

	gen := s.cache.Generation()
	stats, err = s.compute(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache.Enabled() && !s.cache.SetIfCurrent(ctx, statsCacheKey, stats, s.config.CacheTTL, gen) {
		s.logger.Debug("stats changed while computing, result not cached")
	}
	return stats, false, nil
}

func (s *StatsService) compute(ctx context.Context) (*models.AdminStats, error) {
	now := s.now().UTC()

	totals, err := s.repo.Totals(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load totals")
	}
	statusCounts, err := s.repo.ItemsByStatus(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to group items by status")
	}
	categories, err := s.repo.ItemsByCategory(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to group items by category")
	}
	recent, err := s.repo.RecentScans(ctx, s.config.RecentScans)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load recent scans")
	}

	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, -(s.config.TimelineDays - 1))
	daily, err := s.repo.ScansPerDay(ctx, start)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to bucket scans")
	}

	byStatus := map[string]int{
		string(models.ItemStatusActive):   0,
		string(models.ItemStatusFound):    0,
		string(models.ItemStatusInactive): 0,
	}
	for _, sc := range statusCounts {
		byStatus[sc.Status] = sc.Count
	}

	return &models.AdminStats{
		Totals:          totals,
		ItemsByStatus:   byStatus,
		ItemsByCategory: categories,
		RecentScans:     recent,
		ScansPerDay:     fillDays(start, s.config.TimelineDays, daily),
		GeneratedAt:     now,
	}, nil
}

// fillDays returns one bucket per day starting at start, zero-filling days
// that had no scans.
func fillDays(start time.Time, days int, counts []models.DailyCount) []models.DailyCount {
	byDay := make(map[string]int, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}
	out := make([]models.DailyCount, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i).Format("2006-01-02")
		out = append(out, models.DailyCount{Day: day, Count: byDay[day]})
	}
	return out
}
