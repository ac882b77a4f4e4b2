package resource

import (
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// combined widens both quantities before adding so large stocks do not
// overflow a bigint in the status bands.
const combined = "(CAST(quantity_hagga AS DECIMAL(40,0)) + CAST(quantity_deep_desert AS DECIMAL(40,0)))"

func withCategory(category string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if category == "" || category == "all" {
			return db
		}
		return db.Where("category = ?", category)
	}
}

func withPriority(db *gorm.DB) *gorm.DB {
	return db.Where("is_priority = ?", true)
}

// withStatus mirrors Classify in SQL using the same integer comparisons.
func withStatus(status Status) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		switch status {
		case StatusCritical:
			return db.Where("target_quantity > 0 AND " + combined + " * 2 < target_quantity")
		case StatusBelowTarget:
			return db.Where("target_quantity > 0 AND " + combined + " * 2 >= target_quantity AND " + combined + " < target_quantity")
		case StatusAtTarget:
			return db.Where("((target_quantity IS NULL OR target_quantity <= 0) OR (" + combined + " >= target_quantity AND " + combined + " * 2 < target_quantity * 3))")
		case StatusAboveTarget:
			return db.Where("target_quantity > 0 AND " + combined + " * 2 >= target_quantity * 3")
		default:
			return db
		}
	}
}

func withStale(priorityBefore, otherBefore time.Time) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("((is_priority = ? AND updated_at < ?) OR (is_priority = ? AND updated_at < ?))",
			true, priorityBefore, false, otherBefore)
	}
}

// withSearch matches name, description or category and ranks exact name
// matches, then prefixes, then substrings.
func withSearch(term string) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		term = strings.ToLower(strings.TrimSpace(term))
		if term == "" {
			return db.Order("name ASC")
		}
		contains := "%" + term + "%"
		return db.
			Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ? OR LOWER(category) LIKE ?)", contains, contains, contains).
			Clauses(clause.OrderBy{Expression: clause.Expr{
				SQL: "CASE WHEN LOWER(name) = ? THEN 1 WHEN LOWER(name) LIKE ? THEN 2 WHEN LOWER(name) LIKE ? THEN 3 ELSE 4 END, name ASC",
				Vars:               []any{term, term + "%", contains},
				WithoutParentheses: true,
			}})
	}
}
