package points

import (
	"context"
	"time"

	"resource-ledger/pkg/errutil"
	"resource-ledger/pkg/logger"
	"resource-ledger/pkg/repository"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var awardedPoints = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "ledger_points_awarded_total",
	Help: "Points awarded by action type.",
}, []string{"action"})

func init() {
	prometheus.MustRegister(awardedPoints)
}

type Service struct {
	node *snowflake.Node
	now  func() time.Time

	entries repository.Repository[Entry]
}

type ServiceParams struct {
	fx.In
	DB   *gorm.DB
	Node *snowflake.Node
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:    p.Node,
		now:     time.Now,
		entries: repository.ProvideStore[Entry](p.DB),
	}
}

// Award scores the change and, when it is worth anything, records the
// award in tx. The calculation is returned either way.
func (s *Service) Award(ctx context.Context, tx *gorm.DB, p AwardParams) (*Calculation, error) {
	if tx == nil {
		return nil, errutil.Internal("points award outside a transaction", nil)
	}

	calc := Calculate(p.Action, p.QuantityChanged, p.Multiplier, p.ResourceStatus, p.ResourceCategory)
	if calc.FinalPoints <= 0 {
		return &calc, nil
	}

	entry := &Entry{
		ID:                 s.node.Generate().String(),
		ActorID:            p.ActorID,
		ResourceID:         p.ResourceID,
		ActionType:         p.Action,
		QuantityChanged:    p.QuantityChanged,
		BasePoints:         calc.BasePoints,
		ResourceMultiplier: calc.ResourceMultiplier,
		StatusBonus:        calc.StatusBonus,
		FinalPoints:        calc.FinalPoints,
		ResourceName:       p.ResourceName,
		ResourceCategory:   p.ResourceCategory,
		ResourceStatus:     p.ResourceStatus,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.entries.WithTrx(tx).Create(ctx, entry); err != nil {
		return nil, err
	}

	awardedPoints.WithLabelValues(string(p.Action)).Add(calc.FinalPoints)
	logger.FromContext(ctx).Debug("points awarded",
		zap.String("actor_id", p.ActorID),
		zap.String("resource_id", p.ResourceID),
		zap.Float64("points", calc.FinalPoints))

	return &calc, nil
}
