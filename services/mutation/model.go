package mutation

import (
	"math"

	"resource-ledger/pkg/errutil"
	"resource-ledger/services/ledger"
	"resource-ledger/services/points"
	"resource-ledger/services/resource"
)

type Mode string

const (
	ModeAbsolute Mode = "absolute"
	ModeRelative Mode = "relative"
)

type UpdateParams struct {
	ResourceID string            `json:"resource_id"`
	ActorID    string            `json:"-"`
	Mode       Mode              `json:"mode"`
	Quantity   int64             `json:"quantity"`
	Delta      int64             `json:"delta"`
	Location   resource.Location `json:"location"`
	Reason     string            `json:"reason"`
}

func (p *UpdateParams) normalize() error {
	if p.ResourceID == "" {
		return errutil.InvalidArgument("resource id is required")
	}
	if p.ActorID == "" {
		return errutil.InvalidArgument("actor id is required")
	}
	if p.Mode != ModeAbsolute && p.Mode != ModeRelative {
		return errutil.InvalidArgument("mode must be absolute or relative")
	}
	if p.Mode == ModeRelative && p.Delta == math.MinInt64 {
		return errutil.InvalidArgument("delta out of range")
	}
	if p.Location == "" {
		p.Location = resource.LocationHagga
	}
	if !p.Location.Valid() {
		return errutil.InvalidArgument("location must be hagga or deep_desert")
	}
	return nil
}

type UpdateResult struct {
	Resource *resource.Resource `json:"resource"`
	// Points is nil when the change amount was zero.
	Points *points.Calculation `json:"points"`
}

type TransferParams struct {
	ResourceID string                   `json:"resource_id"`
	ActorID    string                   `json:"-"`
	Amount     int64                    `json:"amount"`
	Direction  ledger.TransferDirection `json:"direction"`
	Reason     string                   `json:"reason"`
}

func (p TransferParams) validate() error {
	if p.ResourceID == "" {
		return errutil.InvalidArgument("resource id is required")
	}
	if p.ActorID == "" {
		return errutil.InvalidArgument("actor id is required")
	}
	if p.Amount <= 0 {
		return errutil.InvalidArgument("amount must be > 0")
	}
	if !p.Direction.Valid() {
		return errutil.InvalidArgument("direction must be to_deep_desert or to_hagga")
	}
	return nil
}

type TransferResult struct {
	Resource *resource.Resource `json:"resource"`
	Entry    *ledger.Entry      `json:"entry"`
}

type BulkItem struct {
	ResourceID string            `json:"resource_id"`
	Mode       Mode              `json:"mode"`
	Quantity   int64             `json:"quantity"`
	Delta      int64             `json:"delta"`
	Location   resource.Location `json:"location"`
	Reason     string            `json:"reason"`
}

type BulkBreakdown struct {
	ResourceID string              `json:"resource_id"`
	Points     *points.Calculation `json:"points"`
}

type SkippedItem struct {
	Index      int                `json:"index"`
	ResourceID string             `json:"resource_id"`
	Code       errutil.CoreStatus `json:"code"`
	Reason     string             `json:"reason"`
}

type BulkResult struct {
	Resources   []*resource.Resource `json:"resources"`
	TotalPoints float64              `json:"total_points"`
	Breakdown   []BulkBreakdown      `json:"breakdown"`
	Skipped     []SkippedItem        `json:"skipped"`
}

type RevertResult struct {
	Resource *resource.Resource `json:"resource"`
	Reverted *ledger.Entry      `json:"reverted"`
	Entry    *ledger.Entry      `json:"entry"`
}
