package leaderboard

import (
	"context"
	"fmt"
	"testing"
	"time"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/db/pagination"
	"resource-ledger/pkg/errutil"
	"resource-ledger/services/points"
	"resource-ledger/services/testutil"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &points.Entry{})

	cfg := &config.Config{}
	cfg.Leaderboard.MaxPageSize = 100

	svc := NewService(ServiceParams{DB: db, Config: cfg})
	svc.now = func() time.Time { return testNow }
	return svc, db
}

var seq int

func award(t *testing.T, db *gorm.DB, actorID string, final float64, age time.Duration) {
	t.Helper()
	seq++
	require.NoError(t, db.Create(&points.Entry{
		ID:          fmt.Sprintf("p-%04d", seq),
		ActorID:     actorID,
		ResourceID:  "r-1",
		ActionType:  points.ActionAdd,
		BasePoints:  final,
		FinalPoints: final,
		CreatedAt:   testNow.Add(-age),
	}).Error)
}

func TestRankWindowExcludesOlderAwards(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	award(t, db, "alice", 5, time.Hour)
	award(t, db, "alice", 50, 10*24*time.Hour)
	award(t, db, "bob", 8, 2*24*time.Hour)

	week, err := svc.Rank(ctx, Window7d, pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, week.Rows, 2)
	require.Equal(t, "bob", week.Rows[0].ActorID)
	require.Equal(t, 8.0, week.Rows[0].TotalPoints)
	require.Equal(t, int64(1), week.Rows[0].Rank)
	require.Equal(t, "alice", week.Rows[1].ActorID)
	require.Equal(t, 5.0, week.Rows[1].TotalPoints)
	require.Equal(t, int64(1), week.Rows[1].TotalActions)
	require.Equal(t, int64(2), week.Rows[1].Rank)

	day, err := svc.Rank(ctx, Window24h, pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, day.Rows, 1)
	require.Equal(t, "alice", day.Rows[0].ActorID)

	all, err := svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, "alice", all.Rows[0].ActorID)
	require.Equal(t, 55.0, all.Rows[0].TotalPoints)
	require.Equal(t, int64(2), all.Rows[0].TotalActions)
}

func TestRankTotalIndependentOfPageSize(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		award(t, db, fmt.Sprintf("actor-%d", i), float64(10-i), time.Hour)
	}

	first, err := svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Rows, 2)
	require.Equal(t, int64(5), first.PageInfo.Total)
	require.True(t, first.PageInfo.HasNext)
	require.False(t, first.PageInfo.HasPrev)

	last, err := svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 3, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, last.Rows, 1)
	require.Equal(t, int64(5), last.PageInfo.Total)
	require.False(t, last.PageInfo.HasNext)
	require.Equal(t, "actor-4", last.Rows[0].ActorID)
	require.Equal(t, int64(5), last.Rows[0].Rank)
}

func TestRankTiesShareRank(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	award(t, db, "carol", 10, time.Hour)
	award(t, db, "bob", 10, time.Hour)
	award(t, db, "dave", 3, time.Hour)

	page, err := svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Len(t, page.Rows, 3)
	require.Equal(t, "bob", page.Rows[0].ActorID)
	require.Equal(t, "carol", page.Rows[1].ActorID)
	require.Equal(t, int64(1), page.Rows[0].Rank)
	require.Equal(t, int64(1), page.Rows[1].Rank)
	require.Equal(t, int64(3), page.Rows[2].Rank)
}

func TestRankOf(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	award(t, db, "alice", 3, time.Hour)
	award(t, db, "bob", 7, time.Hour)
	award(t, db, "erin", 100, 40*24*time.Hour)

	rank, err := svc.RankOf(ctx, "alice", Window30d)
	require.NoError(t, err)
	require.NotNil(t, rank)
	require.Equal(t, int64(2), *rank)

	rank, err = svc.RankOf(ctx, "erin", Window30d)
	require.NoError(t, err)
	require.Nil(t, rank)

	rank, err = svc.RankOf(ctx, "erin", WindowAll)
	require.NoError(t, err)
	require.Equal(t, int64(1), *rank)

	_, err = svc.RankOf(ctx, "", WindowAll)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestContributionsSummaryCoversWholeWindow(t *testing.T) {
	svc, db := newTestService(t)
	ctx := context.Background()

	award(t, db, "alice", 1, 3*time.Hour)
	award(t, db, "alice", 2.5, 2*time.Hour)
	award(t, db, "alice", 4, time.Hour)
	award(t, db, "alice", 9, 3*24*time.Hour)
	award(t, db, "bob", 6, time.Hour)

	got, err := svc.ContributionsOf(ctx, "alice", Window24h, pagination.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, got.Rows, 2)
	require.Equal(t, 4.0, got.Rows[0].FinalPoints)
	require.Equal(t, 2.5, got.Rows[1].FinalPoints)
	require.Equal(t, 7.5, got.Summary.TotalPoints)
	require.Equal(t, int64(3), got.Summary.TotalActions)
	require.Equal(t, int64(3), got.PageInfo.Total)
	require.True(t, got.PageInfo.HasNext)

	empty, err := svc.ContributionsOf(ctx, "nobody", WindowAll, pagination.Pagination{Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Empty(t, empty.Rows)
	require.Zero(t, empty.Summary.TotalPoints)
	require.Zero(t, empty.Summary.TotalActions)
}

func TestRejectsInvalidWindowAndPage(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Rank(ctx, Window("90d"), pagination.Pagination{Page: 1, PageSize: 10})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 0, PageSize: 10})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = svc.Rank(ctx, WindowAll, pagination.Pagination{Page: 1, PageSize: 101})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = svc.ContributionsOf(ctx, "alice", WindowAll, pagination.Pagination{Page: 1, PageSize: 0})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestParseWindow(t *testing.T) {
	w, err := ParseWindow("")
	require.NoError(t, err)
	require.Equal(t, WindowAll, w)

	w, err = ParseWindow("7d")
	require.NoError(t, err)
	require.Equal(t, Window7d, w)
	require.Equal(t, testNow.Add(-7*24*time.Hour), w.Since(testNow))
	require.True(t, WindowAll.Since(testNow).IsZero())

	_, err = ParseWindow("1y")
	require.Error(t, err)
}
