package points

import "github.com/shopspring/decimal"

var (
	thousand   = decimal.NewFromInt(1000)
	hundred    = decimal.NewFromInt(100)
	one        = decimal.NewFromInt(1)
	bonusCrit  = decimal.RequireFromString("0.10")
	bonusBelow = decimal.RequireFromString("0.05")
)

// Calculate scores one quantity change. The rules apply in order:
// removals and unscored categories earn nothing, Refined earns a flat 2,
// SET earns a flat 1 and ADD earns 100 points per 1000 units scaled by the
// resource multiplier plus a scarcity bonus, rounded half up to cents.
func Calculate(action ActionType, quantityChanged int64, multiplier float64, status, category string) Calculation {
	if action == ActionRemove || !scored(category) {
		return Calculation{}
	}

	if category == "Refined" {
		return Calculation{BasePoints: 2, FinalPoints: 2}
	}

	if action == ActionSet {
		return Calculation{BasePoints: 1, ResourceMultiplier: 1, FinalPoints: 1}
	}

	base := decimal.NewFromInt(quantityChanged).Div(thousand).Mul(hundred)
	scaled := base.Mul(decimal.NewFromFloat(multiplier))
	bonus := statusBonus(status)
	final := scaled.Mul(one.Add(bonus)).Round(2)

	return Calculation{
		BasePoints:         base.InexactFloat64(),
		ResourceMultiplier: multiplier,
		StatusBonus:        bonus.InexactFloat64(),
		FinalPoints:        final.InexactFloat64(),
	}
}

func scored(category string) bool {
	switch category {
	case "Raw", "Components", "Refined":
		return true
	}
	return false
}

func statusBonus(status string) decimal.Decimal {
	switch status {
	case "critical":
		return bonusCrit
	case "below_target":
		return bonusBelow
	default:
		return decimal.Zero
	}
}
