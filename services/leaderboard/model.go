package leaderboard

import (
	"time"

	"resource-ledger/pkg/db/pagination"
	"resource-ledger/pkg/errutil"
	"resource-ledger/services/points"
)

type Window string

const (
	Window24h Window = "24h"
	Window7d  Window = "7d"
	Window30d Window = "30d"
	WindowAll Window = "all"
)

func ParseWindow(s string) (Window, error) {
	switch w := Window(s); w {
	case Window24h, Window7d, Window30d, WindowAll:
		return w, nil
	case "":
		return WindowAll, nil
	}
	return "", errutil.InvalidArgument("window must be one of 24h, 7d, 30d, all")
}

// Since returns the start of the window ending at now. The zero time means
// no lower bound.
func (w Window) Since(now time.Time) time.Time {
	switch w {
	case Window24h:
		return now.Add(-24 * time.Hour)
	case Window7d:
		return now.Add(-7 * 24 * time.Hour)
	case Window30d:
		return now.Add(-30 * 24 * time.Hour)
	default:
		return time.Time{}
	}
}

type Row struct {
	ActorID      string  `gorm:"column:actor_id" json:"actor_id"`
	TotalPoints  float64 `gorm:"column:total_points" json:"total_points"`
	TotalActions int64   `gorm:"column:total_actions" json:"total_actions"`
	Rank         int64   `gorm:"column:ranking" json:"rank"`
}

type Page struct {
	Window   Window              `json:"window"`
	Rows     []Row               `json:"rows"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Summary struct {
	TotalPoints  float64 `gorm:"column:total_points" json:"total_points"`
	TotalActions int64   `gorm:"column:total_actions" json:"total_actions"`
}

type Contributions struct {
	Window   Window              `json:"window"`
	Rows     []*points.Entry     `json:"rows"`
	PageInfo pagination.PageInfo `json:"page_info"`
	Summary  Summary             `json:"summary"`
}
