package points

import "time"

type ActionType string

const (
	ActionAdd    ActionType = "ADD"
	ActionSet    ActionType = "SET"
	ActionRemove ActionType = "REMOVE"
)

// Entry is an immutable points award. Rows exist only for awards above zero.
type Entry struct {
	ID                 string     `gorm:"column:id;primaryKey" json:"id"`
	ActorID            string     `gorm:"column:actor_id;index:idx_points_actor_created,priority:1" json:"actor_id"`
	ResourceID         string     `gorm:"column:resource_id;index" json:"resource_id"`
	ActionType         ActionType `gorm:"column:action_type;size:8" json:"action_type"`
	QuantityChanged    int64      `gorm:"column:quantity_changed" json:"quantity_changed"`
	BasePoints         float64    `gorm:"column:base_points" json:"base_points"`
	ResourceMultiplier float64    `gorm:"column:resource_multiplier" json:"resource_multiplier"`
	StatusBonus        float64    `gorm:"column:status_bonus" json:"status_bonus"`
	FinalPoints        float64    `gorm:"column:final_points" json:"final_points"`
	ResourceName       string     `gorm:"column:resource_name" json:"resource_name"`
	ResourceCategory   string     `gorm:"column:resource_category" json:"resource_category"`
	ResourceStatus     string     `gorm:"column:resource_status" json:"resource_status"`
	CreatedAt          time.Time  `gorm:"column:created_at;index;index:idx_points_actor_created,priority:2" json:"created_at"`
}

func (Entry) TableName() string {
	return "points_entries"
}

type Calculation struct {
	BasePoints         float64 `json:"base_points"`
	ResourceMultiplier float64 `json:"resource_multiplier"`
	StatusBonus        float64 `json:"status_bonus"`
	FinalPoints        float64 `json:"final_points"`
}

type AwardParams struct {
	ActorID          string
	ResourceID       string
	ResourceName     string
	ResourceCategory string
	ResourceStatus   string
	Action           ActionType
	QuantityChanged  int64
	Multiplier       float64
}
