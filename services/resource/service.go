package resource

import (
	"context"
	"errors"
	"strings"
	"time"

	"resource-ledger/pkg/config"
	"resource-ledger/pkg/db/option"
	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/logger"
	"resource-ledger/pkg/repository"
	"resource-ledger/services/ledger"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrStaleVersion means the row changed between read and conditional write.
var ErrStaleVersion = errors.New("resource version changed concurrently")

const createdReason = "Resource created"

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	ledger *ledger.Service
	now    func() time.Time

	priorityStaleAfter time.Duration
	staleAfter         time.Duration

	resources repository.Repository[Resource]
}

type ServiceParams struct {
	fx.In
	DB     *gorm.DB
	Node   *snowflake.Node
	Ledger *ledger.Service
	Config *config.Config
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:                 p.DB,
		node:               p.Node,
		ledger:             p.Ledger,
		now:                time.Now,
		priorityStaleAfter: p.Config.Catalog.PriorityStaleAfter,
		staleAfter:         p.Config.Catalog.StaleAfter,
		resources:          repository.ProvideStore[Resource](p.DB),
	}
}

func (s *Service) Get(ctx context.Context, id string) (*Resource, error) {
	res, err := s.resources.FindOne(ctx, &Resource{ID: id})
	if err != nil {
		logger.FromContext(ctx).Error("failed to query resource", zap.String("resource_id", id), zap.Error(err))
		return nil, err
	}
	if res == nil {
		return nil, errutil.NotFound("resource not found", nil)
	}
	return res, nil
}

// GetForUpdate loads the resource inside tx holding its row lock until the
// transaction ends.
func (s *Service) GetForUpdate(ctx context.Context, tx *gorm.DB, id string) (*Resource, error) {
	if id == "" {
		return nil, errutil.InvalidArgument("resource id is required")
	}
	res, err := s.resources.WithTrx(tx).FindOne(ctx, &Resource{ID: id}, option.WithLockingUpdate())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errutil.NotFound("resource not found", nil)
	}
	return res, nil
}

// SaveQuantities writes both quantities of res if its version is still the
// one that was read, then bumps the version on res.
func (s *Service) SaveQuantities(ctx context.Context, tx *gorm.DB, res *Resource, actorID string) error {
	if res.QuantityHagga < 0 || res.QuantityDeepDesert < 0 {
		return errutil.Internal("refusing to store a negative quantity", nil)
	}

	now := s.now().UTC()
	n, err := s.resources.WithTrx(tx).Update(ctx, res.ID, map[string]any{
		"quantity_hagga":       res.QuantityHagga,
		"quantity_deep_desert": res.QuantityDeepDesert,
		"version":              res.Version + 1,
		"last_updated_by":      actorID,
		"updated_at":           now,
	}, option.ApplyOperator(option.Condition{Field: "version", Operator: option.EQ, Value: res.Version}))
	if err != nil {
		return err
	}
	if n == 0 {
		return errutil.TransactionFailure(ErrStaleVersion)
	}

	res.Version++
	res.LastUpdatedBy = actorID
	res.UpdatedAt = now
	return nil
}

// Create stores a new resource together with its first history entry.
func (s *Service) Create(ctx context.Context, p CreateParams, actorID string) (*Resource, error) {
	if err := validateCreate(p); err != nil {
		return nil, err
	}

	multiplier := 1.0
	if p.Multiplier != nil {
		multiplier = *p.Multiplier
	}

	now := s.now().UTC()
	res := &Resource{
		ID:                 s.node.Generate().String(),
		Name:               strings.TrimSpace(p.Name),
		Category:           p.Category,
		Subcategory:        p.Subcategory,
		Description:        p.Description,
		ImageURL:           p.ImageURL,
		Tier:               p.Tier,
		QuantityHagga:      p.QuantityHagga,
		QuantityDeepDesert: p.QuantityDeepDesert,
		TargetQuantity:     p.TargetQuantity,
		Multiplier:         multiplier,
		IsPriority:         p.IsPriority,
		Version:            1,
		LastUpdatedBy:      actorID,
		CreatedAt:          now,
		UpdatedAt:          now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.resources.WithTrx(tx).Create(ctx, res); err != nil {
			return err
		}
		return s.ledger.Append(ctx, tx, ledger.NewEntry(ledger.EntryParams{
			ResourceID: res.ID,
			ActorID:    actorID,
			Kind:       ledger.KindAbsolute,
			New:        ledger.Quantities{Hagga: res.QuantityHagga, DeepDesert: res.QuantityDeepDesert},
			Reason:     createdReason,
		}))
	})
	if err != nil {
		logger.FromContext(ctx).Error("failed to create resource", zap.String("name", res.Name), zap.Error(err))
		return nil, errutil.TransactionFailure(err)
	}

	return res, nil
}

func validateCreate(p CreateParams) error {
	if strings.TrimSpace(p.Name) == "" {
		return errutil.InvalidArgument("name is required")
	}
	if !ValidCategory(p.Category) {
		return errutil.InvalidArgument("unknown category")
	}
	if p.QuantityHagga < 0 || p.QuantityDeepDesert < 0 {
		return errutil.InvalidArgument("quantities must be >= 0")
	}
	if p.TargetQuantity != nil && *p.TargetQuantity < 0 {
		return errutil.InvalidArgument("target quantity must be >= 0")
	}
	if p.Multiplier != nil && *p.Multiplier < 0 {
		return errutil.InvalidArgument("multiplier must be >= 0")
	}
	return nil
}

// List returns the catalog filtered by f, most relevant search matches
// first and then by name.
func (s *Service) List(ctx context.Context, f Filter) ([]*Resource, error) {
	if f.Category != "" && f.Category != "all" && !ValidCategory(f.Category) {
		return nil, errutil.InvalidArgument("unknown category")
	}
	if f.Status != "" && f.Status != "all" && !f.Status.Valid() {
		return nil, errutil.InvalidArgument("unknown status")
	}

	opts := []option.QueryOption{
		withCategory(f.Category),
		withStatus(f.Status),
		withSearch(f.Search),
	}
	if f.Priority {
		opts = append(opts, withPriority)
	}
	if f.NeedsUpdate {
		now := s.now().UTC()
		opts = append(opts, withStale(now.Add(-s.priorityStaleAfter), now.Add(-s.staleAfter)))
	}

	resources, err := s.resources.Find(ctx, nil, opts...)
	if err != nil {
		logger.FromContext(ctx).Error("failed to list resources", zap.Error(err))
		return nil, err
	}
	return resources, nil
}

// UpdateMetadata edits catalog fields. Quantities and history are untouched.
func (s *Service) UpdateMetadata(ctx context.Context, id string, p MetadataParams, actorID string) (*Resource, error) {
	values := map[string]any{}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return nil, errutil.InvalidArgument("name is required")
		}
		values["name"] = name
	}
	if p.Category != nil {
		if !ValidCategory(*p.Category) {
			return nil, errutil.InvalidArgument("unknown category")
		}
		values["category"] = *p.Category
	}
	if p.Multiplier != nil {
		if *p.Multiplier < 0 {
			return nil, errutil.InvalidArgument("multiplier must be >= 0")
		}
		values["multiplier"] = *p.Multiplier
	}
	if p.Subcategory != nil {
		values["subcategory"] = *p.Subcategory
	}
	if p.Description != nil {
		values["description"] = *p.Description
	}
	if p.ImageURL != nil {
		values["image_url"] = *p.ImageURL
	}
	if p.Tier != nil {
		values["tier"] = *p.Tier
	}
	if p.IsPriority != nil {
		values["is_priority"] = *p.IsPriority
	}
	if len(values) == 0 {
		return nil, errutil.InvalidArgument("nothing to update")
	}

	return s.update(ctx, id, values, actorID)
}

// SetTarget replaces the target quantity; nil clears it.
func (s *Service) SetTarget(ctx context.Context, id string, target *int64, actorID string) (*Resource, error) {
	if target != nil && *target < 0 {
		return nil, errutil.InvalidArgument("target quantity must be >= 0")
	}
	return s.update(ctx, id, map[string]any{"target_quantity": target}, actorID)
}

func (s *Service) update(ctx context.Context, id string, values map[string]any, actorID string) (*Resource, error) {
	values["last_updated_by"] = actorID
	values["updated_at"] = s.now().UTC()

	n, err := s.resources.Update(ctx, id, values)
	if err != nil {
		logger.FromContext(ctx).Error("failed to update resource", zap.String("resource_id", id), zap.Error(err))
		return nil, err
	}
	if n == 0 {
		return nil, errutil.NotFound("resource not found", nil)
	}
	return s.Get(ctx, id)
}
