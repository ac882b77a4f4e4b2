package resource

import (
	"math"
	"slices"
	"time"
)

const (
	CategoryRaw        = "Raw"
	CategoryRefined    = "Refined"
	CategoryComponents = "Components"
	CategoryBlueprints = "Blueprints"
	CategoryOther      = "Other"
)

var Categories = []string{CategoryRaw, CategoryRefined, CategoryComponents, CategoryBlueprints, CategoryOther}

func ValidCategory(c string) bool {
	return slices.Contains(Categories, c)
}

type Location string

const (
	LocationHagga      Location = "hagga"
	LocationDeepDesert Location = "deep_desert"
)

func (l Location) Valid() bool {
	return l == LocationHagga || l == LocationDeepDesert
}

// Resource is a stock-tracked item held in two locations. Quantities are
// never negative; Version increases on every quantity write.
type Resource struct {
	ID                 string    `gorm:"column:id;primaryKey" json:"id"`
	Name               string    `gorm:"column:name;not null;index" json:"name"`
	Category           string    `gorm:"column:category;size:32;index" json:"category"`
	Subcategory        string    `gorm:"column:subcategory" json:"subcategory,omitempty"`
	Description        string    `gorm:"column:description" json:"description,omitempty"`
	ImageURL           string    `gorm:"column:image_url" json:"image_url,omitempty"`
	Tier               *int      `gorm:"column:tier" json:"tier,omitempty"`
	QuantityHagga      int64     `gorm:"column:quantity_hagga;not null" json:"quantity_hagga"`
	QuantityDeepDesert int64     `gorm:"column:quantity_deep_desert;not null" json:"quantity_deep_desert"`
	TargetQuantity     *int64    `gorm:"column:target_quantity" json:"target_quantity,omitempty"`
	Multiplier         float64   `gorm:"column:multiplier;not null" json:"multiplier"`
	IsPriority         bool      `gorm:"column:is_priority" json:"is_priority"`
	Version            int64     `gorm:"column:version;not null" json:"version"`
	LastUpdatedBy      string    `gorm:"column:last_updated_by" json:"last_updated_by"`
	CreatedAt          time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at" json:"updated_at"`
}

func (Resource) TableName() string {
	return "resources"
}

// Total is the combined quantity of both locations, saturating at
// math.MaxInt64.
func (r *Resource) Total() int64 {
	if r.QuantityHagga > math.MaxInt64-r.QuantityDeepDesert {
		return math.MaxInt64
	}
	return r.QuantityHagga + r.QuantityDeepDesert
}

// Status classifies the combined quantity of both locations.
func (r *Resource) Status() Status {
	return Classify(r.Total(), r.TargetQuantity)
}

func (r *Resource) Quantity(loc Location) int64 {
	if loc == LocationDeepDesert {
		return r.QuantityDeepDesert
	}
	return r.QuantityHagga
}

func (r *Resource) SetQuantity(loc Location, qty int64) {
	if loc == LocationDeepDesert {
		r.QuantityDeepDesert = qty
		return
	}
	r.QuantityHagga = qty
}

type CreateParams struct {
	Name               string   `json:"name"`
	Category           string   `json:"category"`
	Subcategory        string   `json:"subcategory"`
	Description        string   `json:"description"`
	ImageURL           string   `json:"image_url"`
	Tier               *int     `json:"tier"`
	QuantityHagga      int64    `json:"quantity_hagga"`
	QuantityDeepDesert int64    `json:"quantity_deep_desert"`
	TargetQuantity     *int64   `json:"target_quantity"`
	Multiplier         *float64 `json:"multiplier"`
	IsPriority         bool     `json:"is_priority"`
}

// MetadataParams carries catalog edits; nil fields are left untouched.
type MetadataParams struct {
	Name        *string  `json:"name"`
	Category    *string  `json:"category"`
	Subcategory *string  `json:"subcategory"`
	Description *string  `json:"description"`
	ImageURL    *string  `json:"image_url"`
	Tier        *int     `json:"tier"`
	Multiplier  *float64 `json:"multiplier"`
	IsPriority  *bool    `json:"is_priority"`
}

type Filter struct {
	Category    string `form:"category"`
	Status      Status `form:"status"`
	Priority    bool   `form:"priority"`
	NeedsUpdate bool   `form:"needs_update"`
	Search      string `form:"search"`
}
