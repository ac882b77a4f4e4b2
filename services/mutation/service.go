package mutation

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/logger"
	"resource-ledger/services/ledger"
	"resource-ledger/services/points"
	"resource-ledger/services/resource"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

const (
	opUpdate   = "update"
	opTransfer = "transfer"
	opRevert   = "revert"
)

var mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_mutations_total",
	Help: "Quantity mutations by operation and outcome.",
}, []string{"operation", "outcome"})

func init() {
	prometheus.MustRegister(mutationsTotal)
}

// Service applies quantity changes. Each change reads the resource under
// lock, writes it back, appends to the ledger and records any points award
// in a single transaction; a failure in any step leaves no trace.
type Service struct {
	db        *gorm.DB
	resources *resource.Service
	ledger    *ledger.Service
	points    *points.Service

	bulkConcurrency int
	timeout         time.Duration
}

type ServiceParams struct {
	fx.In
	DB        *gorm.DB
	Config    *config.Config
	Resources *resource.Service
	Ledger    *ledger.Service
	Points    *points.Service
}

func NewService(p ServiceParams) *Service {
	concurrency := p.Config.Ledger.BulkConcurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Service{
		db:              p.DB,
		resources:       p.Resources,
		ledger:          p.Ledger,
		points:          p.Points,
		bulkConcurrency: concurrency,
		timeout:         p.Config.Ledger.MutationTimeout,
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// finish classifies the outcome of a transaction. Business errors pass
// through untouched; anything else is logged and reported as a
// transaction failure.
func (s *Service) finish(ctx context.Context, op, resourceID string, err error) error {
	if err == nil {
		mutationsTotal.WithLabelValues(op, "ok").Inc()
		return nil
	}
	if errutil.StatusOf(err).IsBusiness() {
		mutationsTotal.WithLabelValues(op, "rejected").Inc()
		return err
	}

	mutationsTotal.WithLabelValues(op, "failed").Inc()
	logger.FromContext(ctx).Error("mutation rolled back",
		zap.String("operation", op),
		zap.String("resource_id", resourceID),
		zap.Error(err))

	if errors.Is(err, context.DeadlineExceeded) {
		return errutil.Timeout("mutation timed out", err)
	}
	var be errutil.BaseError
	if errors.As(err, &be) && be.Code == errutil.StatusInternal {
		return err
	}
	return errutil.TransactionFailure(err)
}

// ApplyUpdate sets (absolute) or shifts (relative) one location of a
// resource. Results below zero are clamped to zero.
func (s *Service) ApplyUpdate(ctx context.Context, p UpdateParams) (*UpdateResult, error) {
	if err := p.normalize(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *UpdateResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		result, err = s.applyUpdate(ctx, tx, p)
		return err
	})
	if err := s.finish(ctx, opUpdate, p.ResourceID, err); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) applyUpdate(ctx context.Context, tx *gorm.DB, p UpdateParams) (*UpdateResult, error) {
	res, err := s.resources.GetForUpdate(ctx, tx, p.ResourceID)
	if err != nil {
		return nil, err
	}

	previous := quantities(res)
	statusBefore := res.Status()
	current := res.Quantity(p.Location)

	var next, change int64
	kind := ledger.KindAbsolute
	switch p.Mode {
	case ModeAbsolute:
		next = max(p.Quantity, 0)
		change = next - current
	case ModeRelative:
		kind = ledger.KindRelative
		if p.Delta > 0 && current > math.MaxInt64-p.Delta {
			return nil, errutil.InvalidArgument(
				fmt.Sprintf("delta %d would overflow the %s quantity %d", p.Delta, p.Location, current))
		}
		next = max(current+p.Delta, 0)
		change = p.Delta
	}

	res.SetQuantity(p.Location, next)
	if err := s.resources.SaveQuantities(ctx, tx, res, p.ActorID); err != nil {
		return nil, err
	}

	if err := s.ledger.Append(ctx, tx, ledger.NewEntry(ledger.EntryParams{
		ResourceID: res.ID,
		ActorID:    p.ActorID,
		Kind:       kind,
		Previous:   previous,
		New:        quantities(res),
		Reason:     p.Reason,
	})); err != nil {
		return nil, err
	}

	result := &UpdateResult{Resource: res}
	if change == 0 {
		return result, nil
	}

	action := points.ActionSet
	if p.Mode == ModeRelative {
		action = points.ActionAdd
		if change < 0 {
			action = points.ActionRemove
		}
	}

	calc, err := s.points.Award(ctx, tx, points.AwardParams{
		ActorID:          p.ActorID,
		ResourceID:       res.ID,
		ResourceName:     res.Name,
		ResourceCategory: res.Category,
		ResourceStatus:   string(statusBefore),
		Action:           action,
		QuantityChanged:  abs(change),
		Multiplier:       res.Multiplier,
	})
	if err != nil {
		return nil, err
	}
	result.Points = calc
	return result, nil
}

// ApplyTransfer moves amount between the two locations of a resource.
// Transfers never overdraw the source and never earn points.
func (s *Service) ApplyTransfer(ctx context.Context, p TransferParams) (*TransferResult, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *TransferResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resources.GetForUpdate(ctx, tx, p.ResourceID)
		if err != nil {
			return err
		}

		previous := quantities(res)
		from, to := resource.LocationHagga, resource.LocationDeepDesert
		if p.Direction == ledger.ToHagga {
			from, to = to, from
		}

		if available := res.Quantity(from); p.Amount > available {
			return errutil.InsufficientQuantity(
				fmt.Sprintf("cannot transfer %d from %s, only %d available", p.Amount, from, available), nil)
		}

		if dest := res.Quantity(to); dest > math.MaxInt64-p.Amount {
			return errutil.InvalidArgument(
				fmt.Sprintf("cannot transfer %d to %s, quantity %d would overflow", p.Amount, to, dest))
		}

		res.SetQuantity(from, res.Quantity(from)-p.Amount)
		res.SetQuantity(to, res.Quantity(to)+p.Amount)
		if err := s.resources.SaveQuantities(ctx, tx, res, p.ActorID); err != nil {
			return err
		}

		entry := ledger.NewTransferEntry(ledger.EntryParams{
			ResourceID: res.ID,
			ActorID:    p.ActorID,
			Previous:   previous,
			New:        quantities(res),
			Reason:     p.Reason,
		}, p.Amount, p.Direction)
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}

		result = &TransferResult{Resource: res, Entry: entry}
		return nil
	})
	if err := s.finish(ctx, opTransfer, p.ResourceID, err); err != nil {
		return nil, err
	}
	return result, nil
}

// ApplyBulk runs ApplyUpdate for every item in its own transaction. A
// failing item is reported in Skipped and does not affect the others.
func (s *Service) ApplyBulk(ctx context.Context, actorID string, items []BulkItem) (*BulkResult, error) {
	if len(items) == 0 {
		return nil, errutil.InvalidArgument("bulk update requires at least one item")
	}
	if actorID == "" {
		return nil, errutil.InvalidArgument("actor id is required")
	}

	type outcome struct {
		result *UpdateResult
		err    error
	}
	outcomes := make([]outcome, len(items))

	var g errgroup.Group
	g.SetLimit(s.bulkConcurrency)
	for i, item := range items {
		g.Go(func() error {
			r, err := s.ApplyUpdate(ctx, UpdateParams{
				ResourceID: item.ResourceID,
				ActorID:    actorID,
				Mode:       item.Mode,
				Quantity:   item.Quantity,
				Delta:      item.Delta,
				Location:   item.Location,
				Reason:     item.Reason,
			})
			outcomes[i] = outcome{result: r, err: err}
			return nil
		})
	}
	_ = g.Wait()

	out := &BulkResult{
		Resources: make([]*resource.Resource, 0, len(items)),
		Breakdown: make([]BulkBreakdown, 0, len(items)),
		Skipped:   make([]SkippedItem, 0),
	}
	total := decimal.Zero
	for i, o := range outcomes {
		if o.err != nil {
			out.Skipped = append(out.Skipped, SkippedItem{
				Index:      i,
				ResourceID: items[i].ResourceID,
				Code:       errutil.StatusOf(o.err),
				Reason:     o.err.Error(),
			})
			continue
		}
		out.Resources = append(out.Resources, o.result.Resource)
		out.Breakdown = append(out.Breakdown, BulkBreakdown{ResourceID: o.result.Resource.ID, Points: o.result.Points})
		if o.result.Points != nil {
			total = total.Add(decimal.NewFromFloat(o.result.Points.FinalPoints))
		}
	}
	out.TotalPoints = total.InexactFloat64()

	if len(out.Skipped) > 0 {
		logger.FromContext(ctx).Info("bulk update skipped items",
			zap.String("actor_id", actorID),
			zap.Int("skipped", len(out.Skipped)),
			zap.Int("applied", len(out.Resources)))
	}

	return out, nil
}

// RevertLastChange restores the quantities recorded before the most recent
// ledger entry of the resource and appends a compensating entry. History is
// never rewritten and points are left as they are.
func (s *Service) RevertLastChange(ctx context.Context, resourceID, actorID string) (*RevertResult, error) {
	if resourceID == "" {
		return nil, errutil.InvalidArgument("resource id is required")
	}
	if actorID == "" {
		return nil, errutil.InvalidArgument("actor id is required")
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result *RevertResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res, err := s.resources.GetForUpdate(ctx, tx, resourceID)
		if err != nil {
			return err
		}

		last, err := s.ledger.Latest(ctx, tx, resourceID)
		if err != nil {
			return err
		}
		if last == nil {
			return errutil.NotFound("resource has no change to revert", nil)
		}

		previous := quantities(res)
		res.QuantityHagga = last.PreviousQuantityHagga
		res.QuantityDeepDesert = last.PreviousQuantityDeepDesert
		if err := s.resources.SaveQuantities(ctx, tx, res, actorID); err != nil {
			return err
		}

		entry := ledger.NewEntry(ledger.EntryParams{
			ResourceID: res.ID,
			ActorID:    actorID,
			Kind:       ledger.KindAbsolute,
			Previous:   previous,
			New:        quantities(res),
			Reason:     fmt.Sprintf("Revert of %s", last.ID),
			Metadata:   map[string]any{"reverted_entry_id": last.ID},
		})
		if err := s.ledger.Append(ctx, tx, entry); err != nil {
			return err
		}

		result = &RevertResult{Resource: res, Reverted: last, Entry: entry}
		return nil
	})
	if err := s.finish(ctx, opRevert, resourceID, err); err != nil {
		return nil, err
	}
	return result, nil
}

func quantities(r *resource.Resource) ledger.Quantities {
	return ledger.Quantities{Hagga: r.QuantityHagga, DeepDesert: r.QuantityDeepDesert}
}

func abs(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
