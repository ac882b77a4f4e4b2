package points

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	cases := []struct {
		name       string
		action     ActionType
		quantity   int64
		multiplier float64
		status     string
		category   string
		want       Calculation
	}{
		{
			name: "add raw at target", action: ActionAdd, quantity: 1000, multiplier: 1.0, status: "at_target", category: "Raw",
			want: Calculation{BasePoints: 100, ResourceMultiplier: 1.0, FinalPoints: 100},
		},
		{
			name: "add components with multiplier", action: ActionAdd, quantity: 1000, multiplier: 1.5, status: "at_target", category: "Components",
			want: Calculation{BasePoints: 100, ResourceMultiplier: 1.5, FinalPoints: 150},
		},
		{
			name: "add raw critical bonus", action: ActionAdd, quantity: 1000, multiplier: 1.0, status: "critical", category: "Raw",
			want: Calculation{BasePoints: 100, ResourceMultiplier: 1.0, StatusBonus: 0.1, FinalPoints: 110},
		},
		{
			name: "set is flat", action: ActionSet, quantity: 5000, multiplier: 2.0, status: "critical", category: "Components",
			want: Calculation{BasePoints: 1, ResourceMultiplier: 1, FinalPoints: 1},
		},
		{
			name: "refined is flat", action: ActionAdd, quantity: 100, multiplier: 1.5, status: "critical", category: "Refined",
			want: Calculation{BasePoints: 2, FinalPoints: 2},
		},
		{
			name: "below target bonus", action: ActionAdd, quantity: 10, multiplier: 1.0, status: "below_target", category: "Raw",
			want: Calculation{BasePoints: 1, ResourceMultiplier: 1.0, StatusBonus: 0.05, FinalPoints: 1.05},
		},
		{
			name: "fractional multiplier", action: ActionAdd, quantity: 15, multiplier: 0.3, status: "at_target", category: "Raw",
			want: Calculation{BasePoints: 1.5, ResourceMultiplier: 0.3, FinalPoints: 0.45},
		},
		{
			name: "rounds half up", action: ActionAdd, quantity: 1, multiplier: 0.25, status: "at_target", category: "Raw",
			want: Calculation{BasePoints: 0.1, ResourceMultiplier: 0.25, FinalPoints: 0.03},
		},
		{
			name: "blueprints earn nothing", action: ActionAdd, quantity: 1000, multiplier: 1.0, status: "critical", category: "Blueprints",
		},
		{
			name: "set on unscored category", action: ActionSet, quantity: 10, multiplier: 1.0, status: "at_target", category: "Other",
		},
		{
			name: "zero multiplier", action: ActionAdd, quantity: 1000, multiplier: 0, status: "at_target", category: "Raw",
			want: Calculation{BasePoints: 100},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, Calculate(tc.action, tc.quantity, tc.multiplier, tc.status, tc.category))
		})
	}
}

func TestCalculateRemoveIsAlwaysZero(t *testing.T) {
	for _, category := range []string{"Raw", "Refined", "Components", "Blueprints", "Other"} {
		for _, status := range []string{"critical", "below_target", "at_target", "above_target"} {
			calc := Calculate(ActionRemove, 1000, 3.0, status, category)
			require.Equal(t, Calculation{}, calc, "%s/%s", category, status)
		}
	}
}
