package resource

import "github.com/shopspring/decimal"

type Status string

const (
	StatusCritical    Status = "critical"
	StatusBelowTarget Status = "below_target"
	StatusAtTarget    Status = "at_target"
	StatusAboveTarget Status = "above_target"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCritical, StatusBelowTarget, StatusAtTarget, StatusAboveTarget:
		return true
	}
	return false
}

// Classify places quantity in a band relative to target: >= 150% above,
// >= 100% at, >= 50% below, otherwise critical. A missing or non-positive
// target is always at target. Band edges are compared as exact decimals so
// no quantity overflows.
func Classify(quantity int64, target *int64) Status {
	if target == nil || *target <= 0 {
		return StatusAtTarget
	}
	q := decimal.NewFromInt(quantity)
	t := decimal.NewFromInt(*target)
	twice := q.Add(q)
	switch {
	case twice.GreaterThanOrEqual(t.Mul(decimal.NewFromInt(3))):
		return StatusAboveTarget
	case q.GreaterThanOrEqual(t):
		return StatusAtTarget
	case twice.GreaterThanOrEqual(t):
		return StatusBelowTarget
	default:
		return StatusCritical
	}
}
