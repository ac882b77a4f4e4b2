package leaderboard

import (
	"context"
	"time"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/db/option"
	"resource-ledger/pkg/db/pagination"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/logger"
	"resource-ledger/pkg/repository"
	"resource-ledger/services/points"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Service aggregates points entries per actor over a time window. All
// reads are plain queries and may trail in-flight mutations.
type Service struct {
	db          *gorm.DB
	cache       *PageCache
	maxPageSize int
	now         func() time.Time

	entries repository.Repository[points.Entry]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Config *config.Config
	Redis  *redis.Client `optional:"true"`
}

func NewService(p ServiceParams) *Service {
	s := &Service{
		db:          p.DB,
		maxPageSize: p.Config.Leaderboard.MaxPageSize,
		now:         time.Now,
		entries:     repository.ProvideStore[points.Entry](p.DB),
	}
	if p.Redis != nil && p.Config.Leaderboard.CacheTTL > 0 {
		s.cache = newPageCache(redisStore{rdb: p.Redis}, p.Config.Leaderboard.CacheTTL)
	}
	return s
}

func (s *Service) validate(window Window, page pagination.Pagination) error {
	if _, err := ParseWindow(string(window)); err != nil {
		return err
	}
	return page.Validate(s.maxPageSize)
}

func (s *Service) inWindow(window Window) option.QueryOption {
	return option.WithSince(window.Since(s.now().UTC()))
}

// entriesIn selects the points entries awarded inside the window.
func (s *Service) entriesIn(ctx context.Context, window Window) *gorm.DB {
	return option.Apply(s.db.WithContext(ctx).Model(&points.Entry{}), s.inWindow(window))
}

// ranked groups the window's entries per actor and ranks actors by total
// points. Ties share a rank and the next rank skips accordingly.
func (s *Service) ranked(ctx context.Context, window Window) *gorm.DB {
	totals := s.entriesIn(ctx, window).
		Select("actor_id, SUM(final_points) AS total_points, COUNT(*) AS total_actions").
		Group("actor_id")

	return s.db.WithContext(ctx).
		Table("(?) AS totals", totals).
		Select("actor_id, total_points, total_actions, RANK() OVER (ORDER BY total_points DESC) AS ranking")
}

// Rank returns one page of the window's leaderboard ordered by total points,
// ties broken by actor id so pages are stable.
func (s *Service) Rank(ctx context.Context, window Window, page pagination.Pagination) (*Page, error) {
	if err := s.validate(window, page); err != nil {
		return nil, err
	}
	if s.cache != nil {
		return s.cache.Load(ctx, window, page.Page, page.PageSize, func(ctx context.Context) (*Page, error) {
			return s.rank(ctx, window, page)
		})
	}
	return s.rank(ctx, window, page)
}

func (s *Service) rank(ctx context.Context, window Window, page pagination.Pagination) (*Page, error) {
	log := logger.FromContext(ctx).With(zap.String("window", string(window)))

	var total int64
	if err := s.entriesIn(ctx, window).
		Distinct("actor_id").
		Count(&total).Error; err != nil {
		log.Error("failed to count leaderboard actors", zap.Error(err))
		return nil, err
	}

	rows := make([]Row, 0, page.PageSize)
	if err := s.db.WithContext(ctx).
		Table("(?) AS ranked", s.ranked(ctx, window)).
		Order("total_points DESC").
		Order("actor_id ASC").
		Offset(page.Offset()).
		Limit(page.Limit()).
		Scan(&rows).Error; err != nil {
		log.Error("failed to query leaderboard", zap.Error(err))
		return nil, err
	}

	return &Page{
		Window:   window,
		Rows:     rows,
		PageInfo: pagination.BuildPageInfo(page, total, len(rows)),
	}, nil
}

// RankOf returns the actor's rank in the window, or nil when the actor has
// no points in it.
func (s *Service) RankOf(ctx context.Context, actorID string, window Window) (*int64, error) {
	if actorID == "" {
		return nil, errutil.InvalidArgument("actor id is required")
	}
	if _, err := ParseWindow(string(window)); err != nil {
		return nil, err
	}

	var row Row
	res := s.db.WithContext(ctx).
		Table("(?) AS ranked", s.ranked(ctx, window)).
		Where("actor_id = ?", actorID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		logger.FromContext(ctx).Error("failed to query actor rank", zap.String("actor_id", actorID), zap.Error(res.Error))
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	return &row.Rank, nil
}

// ContributionsOf pages through the actor's awards in the window, newest
// first. Summary covers the whole window, not just the page.
func (s *Service) ContributionsOf(ctx context.Context, actorID string, window Window, page pagination.Pagination) (*Contributions, error) {
	if actorID == "" {
		return nil, errutil.InvalidArgument("actor id is required")
	}
	if err := s.validate(window, page); err != nil {
		return nil, err
	}

	log := logger.FromContext(ctx).With(zap.String("actor_id", actorID), zap.String("window", string(window)))

	var summary Summary
	if err := s.entriesIn(ctx, window).
		Where("actor_id = ?", actorID).
		Select("COALESCE(SUM(final_points), 0) AS total_points, COUNT(*) AS total_actions").
		Scan(&summary).Error; err != nil {
		log.Error("failed to summarize contributions", zap.Error(err))
		return nil, err
	}

	rows, err := s.entries.Find(ctx, &points.Entry{ActorID: actorID},
		s.inWindow(window),
		func(db *gorm.DB) *gorm.DB { return db.Order("created_at DESC").Order("id DESC") },
		option.WithOffset(page.Offset()),
		option.WithLimit(page.Limit()),
	)
	if err != nil {
		log.Error("failed to list contributions", zap.Error(err))
		return nil, err
	}

	return &Contributions{
		Window:   window,
		Rows:     rows,
		PageInfo: pagination.BuildPageInfo(page, summary.TotalActions, len(rows)),
		Summary:  summary,
	}, nil
}
