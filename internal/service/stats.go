package service

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/listenupapp/readup-server/internal/domain"
	"github.com/listenupapp/readup-server/internal/store/sqlite"
	"github.com/listenupapp/readup-server/internal/viewcache"
)

// Totals are a user's all-time reading totals.
type Totals struct {
	PagesRead int `json:"total_pages_read"`
	HoursRead int `json:"total_hours_read"`
}

// StatsService computes reading statistics. Results are cached per user and
// year until the user writes again.
type StatsService struct {
	store  *sqlite.Store
	cache  ViewCache
	logger *slog.Logger
	now    func() time.Time
}

// NewStatsService creates a new stats service.
func NewStatsService(store *sqlite.Store, cache ViewCache, logger *slog.Logger) *StatsService {
	return &StatsService{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// UserStats returns the statistics of uid for year. A zero year means the
// current one. Years are evaluated in UTC.
func (s *StatsService) UserStats(ctx context.Context, uid string, year int) (*domain.UserStats, error) {
	if err := requireUser(uid); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	if year == 0 {
		year = now.Year()
	}
	if err := validateYear(year); err != nil {
		return nil, err
	}

	key := viewcache.StatsKey(uid, year)
	var cached domain.UserStats
	if s.lookup(key, &cached) {
		return &cached, nil
	}
	gen, cacheable := s.generation(uid)

	rows, err := s.store.ListUserBooks(ctx, uid, "")
	if err != nil {
		return nil, fromStore(err, "books")
	}
	stats := domain.ComputeUserStats(rows, year, now)

	totals, err := s.Totals(ctx, uid)
	if err != nil {
		return nil, err
	}
	stats.TotalPagesRead = totals.PagesRead
	stats.TotalHoursRead = totals.HoursRead

	if cacheable {
		s.remember(uid, gen, key, stats)
	}
	return &stats, nil
}

// Totals returns the pages and hours read by uid across all years.
func (s *StatsService) Totals(ctx context.Context, uid string) (Totals, error) {
	if err := requireUser(uid); err != nil {
		return Totals{}, err
	}

	key := viewcache.TotalsKey(uid)
	var totals Totals
	if s.lookup(key, &totals) {
		return totals, nil
	}
	gen, cacheable := s.generation(uid)

	pages, err := s.store.TotalPagesRead(ctx, uid)
	if err != nil {
		return Totals{}, fromStore(err, "books")
	}
	read, err := s.store.TotalReadingTime(ctx, uid)
	if err != nil {
		return Totals{}, fromStore(err, "sessions")
	}
	totals = Totals{
		PagesRead: pages,
		HoursRead: int(math.Round(read.Hours())),
	}

	if cacheable {
		s.remember(uid, gen, key, totals)
	}
	return totals, nil
}

// Invalidate drops every cached view of uid.
func (s *StatsService) Invalidate(uid string) {
	invalidateViews(s.cache, s.logger, uid)
}

func (s *StatsService) lookup(key string, dest any) bool {
	if s.cache == nil {
		return false
	}
	ok, err := s.cache.Get(key, dest)
	if err != nil {
		s.logger.Warn("view cache read failed", "key", key, "error", err)
		return false
	}
	return ok
}

// generation reads the invalidation generation of uid. A view is only
// cached when it could be read.
func (s *StatsService) generation(uid string) (uint64, bool) {
	if s.cache == nil {
		return 0, false
	}
	gen, err := s.cache.Generation(uid)
	if err != nil {
		s.logger.Warn("view cache read failed", "user_id", uid, "error", err)
		return 0, false
	}
	return gen, true
}

// remember stores a view computed at generation gen. It is dropped when uid
// wrote in the meantime.
func (s *StatsService) remember(uid string, gen uint64, key string, value any) {
	stored, err := s.cache.SetIfCurrent(uid, gen, key, value)
	if err != nil {
		s.logger.Warn("view cache write failed", "key", key, "error", err)
		return
	}
	if !stored {
		s.logger.Debug("discarded stale view", "key", key)
	}
}
