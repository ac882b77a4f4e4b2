package resource

import (
	"context"
	"errors"
	"testing"
	"time"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/errutil"
	"resource-ledger/services/ledger"
	"resource-ledger/services/testutil"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

func newTestService(t *testing.T) (*Service, *ledger.Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewTestDB(t, &Resource{}, &ledger.Entry{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Catalog.PriorityStaleAfter = 24 * time.Hour
	cfg.Catalog.StaleAfter = 48 * time.Hour

	ledgerSvc := ledger.NewService(ledger.ServiceParams{DB: db, Node: node})
	svc := NewService(ServiceParams{DB: db, Node: node, Ledger: ledgerSvc, Config: cfg})
	return svc, ledgerSvc, db
}

func mustCreate(t *testing.T, svc *Service, p CreateParams) *Resource {
	t.Helper()
	res, err := svc.Create(context.Background(), p, "admin")
	require.NoError(t, err)
	return res
}

func TestCreateWritesInitialLedgerEntry(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	res := mustCreate(t, svc, CreateParams{
		Name: "Spice Melange", Category: CategoryRaw,
		QuantityHagga: 100, QuantityDeepDesert: 20, TargetQuantity: ptr(int64(500)),
	})
	require.Equal(t, 1.0, res.Multiplier)
	require.Equal(t, int64(1), res.Version)

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, int64(100), got.QuantityHagga)
	require.Equal(t, int64(20), got.QuantityDeepDesert)
	require.Equal(t, StatusCritical, got.Status())

	entries, err := ledgerSvc.ListForResource(ctx, res.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, ledger.KindAbsolute, entries[0].ChangeKind)
	require.Equal(t, "Resource created", entries[0].Reason)
	require.Zero(t, entries[0].PreviousQuantityHagga)
	require.Equal(t, int64(100), entries[0].ChangeAmountHagga)
	require.Equal(t, int64(20), entries[0].ChangeAmountDeepDesert)
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	cases := []CreateParams{
		{Name: "", Category: CategoryRaw},
		{Name: "Plastanium", Category: "Spice"},
		{Name: "Plastanium", Category: CategoryRefined, QuantityHagga: -1},
		{Name: "Plastanium", Category: CategoryRefined, TargetQuantity: ptr(int64(-1))},
		{Name: "Plastanium", Category: CategoryRefined, Multiplier: ptr(-0.5)},
	}
	for _, p := range cases {
		_, err := svc.Create(ctx, p, "admin")
		require.True(t, errutil.Is(err, errutil.StatusBadRequest), "params %+v", p)
	}
}

func TestCreateRollsBackWhenLedgerWriteFails(t *testing.T) {
	svc, _, db := newTestService(t)
	testutil.FailWrites(t, db, "change_ledger_entries")

	_, err := svc.Create(context.Background(), CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 5}, "admin")
	require.Error(t, err)
	require.True(t, errutil.Is(err, errutil.StatusInternal))
	require.ErrorIs(t, err, testutil.ErrInjected)

	var count int64
	require.NoError(t, db.Model(&Resource{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestGetNotFound(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))
}

func TestSaveQuantitiesChecksVersion(t *testing.T) {
	svc, _, db := newTestService(t)
	ctx := context.Background()
	res := mustCreate(t, svc, CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 10})

	stale := *res

	err := db.Transaction(func(tx *gorm.DB) error {
		locked, err := svc.GetForUpdate(ctx, tx, res.ID)
		if err != nil {
			return err
		}
		locked.QuantityHagga = 20
		return svc.SaveQuantities(ctx, tx, locked, "alice")
	})
	require.NoError(t, err)

	stale.QuantityHagga = 30
	err = db.Transaction(func(tx *gorm.DB) error {
		return svc.SaveQuantities(ctx, tx, &stale, "bob")
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrStaleVersion))

	got, err := svc.Get(ctx, res.ID)
	require.NoError(t, err)
	require.Equal(t, int64(20), got.QuantityHagga)
	require.Equal(t, int64(2), got.Version)
	require.Equal(t, "alice", got.LastUpdatedBy)
}

func TestSaveQuantitiesRejectsNegative(t *testing.T) {
	svc, _, db := newTestService(t)
	res := mustCreate(t, svc, CreateParams{Name: "Water", Category: CategoryRaw})

	res.QuantityDeepDesert = -1
	err := db.Transaction(func(tx *gorm.DB) error {
		return svc.SaveQuantities(context.Background(), tx, res, "alice")
	})
	require.Error(t, err)
}

func TestListFilters(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	old := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return old }
	mustCreate(t, svc, CreateParams{Name: "Spice", Category: CategoryRaw, QuantityHagga: 10, TargetQuantity: ptr(int64(100)), IsPriority: true})
	mustCreate(t, svc, CreateParams{Name: "Spice Melange", Category: CategoryRefined, QuantityHagga: 60, TargetQuantity: ptr(int64(100))})

	svc.now = func() time.Time { return old.Add(36 * time.Hour) }
	mustCreate(t, svc, CreateParams{Name: "Plasteel", Category: CategoryComponents, QuantityHagga: 200, TargetQuantity: ptr(int64(100)), Description: "spice resistant"})
	mustCreate(t, svc, CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 5})

	names := func(rs []*Resource) []string {
		out := make([]string, 0, len(rs))
		for _, r := range rs {
			out = append(out, r.Name)
		}
		return out
	}

	all, err := svc.List(ctx, Filter{})
	require.NoError(t, err)
	require.Equal(t, []string{"Plasteel", "Spice", "Spice Melange", "Water"}, names(all))

	raw, err := svc.List(ctx, Filter{Category: CategoryRaw})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice", "Water"}, names(raw))

	critical, err := svc.List(ctx, Filter{Status: StatusCritical})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice"}, names(critical))

	below, err := svc.List(ctx, Filter{Status: StatusBelowTarget})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice Melange"}, names(below))

	above, err := svc.List(ctx, Filter{Status: StatusAboveTarget})
	require.NoError(t, err)
	require.Equal(t, []string{"Plasteel"}, names(above))

	at, err := svc.List(ctx, Filter{Status: StatusAtTarget})
	require.NoError(t, err)
	require.Equal(t, []string{"Water"}, names(at))

	priority, err := svc.List(ctx, Filter{Priority: true})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice"}, names(priority))

	// 37h after the first batch: the priority resource (24h) is stale, the
	// other old one (48h) is not yet.
	svc.now = func() time.Time { return old.Add(37 * time.Hour) }
	stale, err := svc.List(ctx, Filter{NeedsUpdate: true})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice"}, names(stale))

	svc.now = func() time.Time { return old.Add(49 * time.Hour) }
	stale, err = svc.List(ctx, Filter{NeedsUpdate: true})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice", "Spice Melange"}, names(stale))

	search, err := svc.List(ctx, Filter{Search: "spice"})
	require.NoError(t, err)
	require.Equal(t, []string{"Spice", "Spice Melange", "Plasteel"}, names(search))

	_, err = svc.List(ctx, Filter{Status: "unknown"})
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}

func TestListStatusWithLargeQuantities(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	mustCreate(t, svc, CreateParams{Name: "Solari", Category: CategoryOther,
		QuantityHagga: 5_000_000_000_000_000_000, QuantityDeepDesert: 4_000_000_000_000_000_000, TargetQuantity: ptr(int64(1000))})

	above, err := svc.List(ctx, Filter{Status: StatusAboveTarget})
	require.NoError(t, err)
	require.Len(t, above, 1)
	require.Equal(t, StatusAboveTarget, above[0].Status())

	critical, err := svc.List(ctx, Filter{Status: StatusCritical})
	require.NoError(t, err)
	require.Empty(t, critical)
}

func TestSetTarget(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	res := mustCreate(t, svc, CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 50})

	_, err := svc.SetTarget(ctx, res.ID, ptr(int64(-1)), "admin")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	updated, err := svc.SetTarget(ctx, res.ID, ptr(int64(100)), "admin")
	require.NoError(t, err)
	require.Equal(t, int64(100), *updated.TargetQuantity)
	require.Equal(t, StatusBelowTarget, updated.Status())

	cleared, err := svc.SetTarget(ctx, res.ID, nil, "admin")
	require.NoError(t, err)
	require.Nil(t, cleared.TargetQuantity)

	_, err = svc.SetTarget(ctx, "missing", ptr(int64(1)), "admin")
	require.True(t, errutil.Is(err, errutil.StatusNotFound))

	entries, err := ledgerSvc.ListForResource(ctx, res.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestUpdateMetadataLeavesQuantities(t *testing.T) {
	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()
	res := mustCreate(t, svc, CreateParams{Name: "Water", Category: CategoryRaw, QuantityHagga: 50, QuantityDeepDesert: 7})

	updated, err := svc.UpdateMetadata(ctx, res.ID, MetadataParams{
		Name:       ptr("Purified Water"),
		Multiplier: ptr(2.5),
		IsPriority: ptr(true),
	}, "admin")
	require.NoError(t, err)
	require.Equal(t, "Purified Water", updated.Name)
	require.Equal(t, 2.5, updated.Multiplier)
	require.True(t, updated.IsPriority)
	require.Equal(t, int64(50), updated.QuantityHagga)
	require.Equal(t, int64(7), updated.QuantityDeepDesert)
	require.Equal(t, res.Version, updated.Version)

	entries, err := ledgerSvc.ListForResource(ctx, res.ID, time.Time{}, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	_, err = svc.UpdateMetadata(ctx, res.ID, MetadataParams{Category: ptr("Spice")}, "admin")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))

	_, err = svc.UpdateMetadata(ctx, res.ID, MetadataParams{}, "admin")
	require.True(t, errutil.Is(err, errutil.StatusBadRequest))
}
