package ledger

import (
	"context"
	"testing"
	"time"

	"resource-ledger/pkg/db/pagination"
	"resource-ledger/pkg/errutil"
	"resource-ledger/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/health/grpc_health_v1"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *fakeClock) {
	t.Helper()
	db := testutil.NewTestDB(t, &Entry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	svc := NewService(ServiceParams{DB: db, Node: node})
	svc.now = clock.now
	return svc, db, clock
}

func appendEntry(t *testing.T, svc *Service, db *gorm.DB, e *Entry) {
	t.Helper()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.Append(context.Background(), tx, e)
	}))
}

func TestAppendChainsEntries(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	first := NewEntry(EntryParams{
		ResourceID: "res-1", ActorID: "alice", Kind: KindAbsolute,
		New: Quantities{Hagga: 100}, Reason: "Resource created",
	})
	appendEntry(t, svc, db, first)

	second := NewEntry(EntryParams{
		ResourceID: "res-1", ActorID: "bob", Kind: KindAbsolute,
		Previous: Quantities{Hagga: 100}, New: Quantities{Hagga: 80},
	})
	appendEntry(t, svc, db, second)

	require.Equal(t, GenesisHash, first.PreviousHash)
	require.Equal(t, first.Hash, second.PreviousHash)
	require.Equal(t, int64(-20), second.ChangeAmountHagga)
	require.Zero(t, second.ChangeAmountDeepDesert)

	latest, err := svc.Latest(ctx, nil, "res-1")
	require.NoError(t, err)
	require.Equal(t, second.ID, latest.ID)

	ok, err := svc.VerifyChain(ctx, "res-1")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestAppendChainsArePerResource(t *testing.T) {
	svc, db, _ := newTestService(t)

	a := NewEntry(EntryParams{ResourceID: "res-a", ActorID: "alice", Kind: KindAbsolute, New: Quantities{Hagga: 1}})
	b := NewEntry(EntryParams{ResourceID: "res-b", ActorID: "alice", Kind: KindAbsolute, New: Quantities{Hagga: 2}})
	appendEntry(t, svc, db, a)
	appendEntry(t, svc, db, b)

	require.Equal(t, GenesisHash, b.PreviousHash)
}

func TestAppendRejectsInvalidEntries(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	broken := NewEntry(EntryParams{ResourceID: "res-1", Kind: KindAbsolute, New: Quantities{Hagga: 10}})
	broken.ChangeAmountHagga = 5

	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.Append(ctx, tx, broken)
	})
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusInternal))

	err = svc.Append(ctx, nil, NewEntry(EntryParams{ResourceID: "res-1", Kind: KindAbsolute}))
	require.Error(t, err)
}

func TestTransferEntryInvariants(t *testing.T) {
	e := NewTransferEntry(EntryParams{
		ResourceID: "res-1",
		Previous:   Quantities{Hagga: 50, DeepDesert: 10},
		New:        Quantities{Hagga: 40, DeepDesert: 20},
	}, 10, ToDeepDesert)

	require.NoError(t, e.Validate())
	require.Equal(t, KindTransfer, e.ChangeKind)
	require.Equal(t, int64(-10), e.ChangeAmountHagga)
	require.Equal(t, int64(10), e.ChangeAmountDeepDesert)

	wrongWay := NewTransferEntry(EntryParams{
		ResourceID: "res-1",
		Previous:   Quantities{Hagga: 50, DeepDesert: 10},
		New:        Quantities{Hagga: 40, DeepDesert: 20},
	}, 10, ToHagga)
	require.Error(t, wrongWay.Validate())

	back := NewTransferEntry(EntryParams{
		ResourceID: "res-1",
		Previous:   Quantities{Hagga: 40, DeepDesert: 20},
		New:        Quantities{Hagga: 45, DeepDesert: 15},
	}, 5, ToHagga)
	require.NoError(t, back.Validate())
}

func TestListForResource(t *testing.T) {
	svc, db, clock := newTestService(t)
	ctx := context.Background()

	var qty int64
	for i := 0; i < 5; i++ {
		e := NewEntry(EntryParams{
			ResourceID: "res-1", ActorID: "alice", Kind: KindRelative,
			Previous: Quantities{Hagga: qty}, New: Quantities{Hagga: qty + 10},
		})
		qty += 10
		appendEntry(t, svc, db, e)
	}
	appendEntry(t, svc, db, NewEntry(EntryParams{ResourceID: "res-2", Kind: KindAbsolute, New: Quantities{Hagga: 1}}))

	entries, err := svc.ListForResource(ctx, "res-1", time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	require.Equal(t, int64(50), entries[0].NewQuantityHagga)
	require.Equal(t, int64(10), entries[4].NewQuantityHagga)

	limited, err := svc.ListForResource(ctx, "res-1", time.Time{}, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)

	// entries were stamped one second apart starting at 00:00:01
	since := clock.t.Add(-3 * time.Second)
	recent, err := svc.ListForResource(ctx, "res-1", since, 0)
	require.NoError(t, err)
	require.Len(t, recent, 3)

	again, err := svc.ListForResource(ctx, "res-1", since, 0)
	require.NoError(t, err)
	require.Equal(t, recent[0].ID, again[0].ID)

	_, err = svc.ListForResource(ctx, "", time.Time{}, 0)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestListForActor(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		appendEntry(t, svc, db, NewEntry(EntryParams{
			ResourceID: "res-1", ActorID: "alice", Kind: KindAbsolute,
			Previous: Quantities{Hagga: int64(i)}, New: Quantities{Hagga: int64(i + 1)},
		}))
	}
	appendEntry(t, svc, db, NewEntry(EntryParams{ResourceID: "res-2", ActorID: "bob", Kind: KindAbsolute, New: Quantities{Hagga: 1}}))

	page, err := svc.ListForActor(ctx, "alice", time.Time{}, pagination.Pagination{Page: 1, PageSize: 2}, 100)
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.Equal(t, int64(3), page.PageInfo.Total)
	require.True(t, page.PageInfo.HasNext)
	require.False(t, page.PageInfo.HasPrev)

	next, err := svc.ListForActor(ctx, "alice", time.Time{}, pagination.Pagination{Page: 2, PageSize: 2}, 100)
	require.NoError(t, err)
	require.Len(t, next.Entries, 1)
	require.False(t, next.PageInfo.HasNext)
	require.True(t, next.PageInfo.HasPrev)

	_, err = svc.ListForActor(ctx, "alice", time.Time{}, pagination.Pagination{Page: 0, PageSize: 2}, 100)
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestVerifyChainDetectsTampering(t *testing.T) {
	svc, db, _ := newTestService(t)
	ctx := context.Background()

	first := NewEntry(EntryParams{ResourceID: "res-1", ActorID: "alice", Kind: KindAbsolute, New: Quantities{Hagga: 100}})
	appendEntry(t, svc, db, first)
	appendEntry(t, svc, db, NewEntry(EntryParams{
		ResourceID: "res-1", ActorID: "alice", Kind: KindAbsolute,
		Previous: Quantities{Hagga: 100}, New: Quantities{Hagga: 90},
	}))

	require.NoError(t, db.Model(&Entry{}).Where("id = ?", first.ID).
		Updates(map[string]any{"new_quantity_hagga": 1000, "change_amount_hagga": 1000}).Error)

	ok, err := svc.VerifyChain(ctx, "res-1")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestHealthServerCheck(t *testing.T) {
	db := testutil.NewTestDB(t)
	health := NewHealthServer(HealthServerParams{DB: db})

	resp, err := health.Check(context.Background(), &grpc_health_v1.HealthCheckRequest{})
	require.NoError(t, err)
	require.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, resp.GetStatus())
}
