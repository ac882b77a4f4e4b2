package ledger

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

const GenesisHash = "GENESIS"

type ChangeKind string

const (
	KindAbsolute ChangeKind = "absolute"
	KindRelative ChangeKind = "relative"
	KindTransfer ChangeKind = "transfer"
)

type TransferDirection string

const (
	ToDeepDesert TransferDirection = "to_deep_desert"
	ToHagga      TransferDirection = "to_hagga"
)

func (d TransferDirection) Valid() bool {
	return d == ToDeepDesert || d == ToHagga
}

// Entry is one immutable row of a resource's change history. Quantities are
// captured for both locations so any entry can be replayed on its own.
type Entry struct {
	ID                         string             `gorm:"column:id;primaryKey" json:"id"`
	ResourceID                 string             `gorm:"column:resource_id;index:idx_ledger_resource_created,priority:1" json:"resource_id"`
	PreviousQuantityHagga      int64              `gorm:"column:previous_quantity_hagga" json:"previous_quantity_hagga"`
	NewQuantityHagga           int64              `gorm:"column:new_quantity_hagga" json:"new_quantity_hagga"`
	ChangeAmountHagga          int64              `gorm:"column:change_amount_hagga" json:"change_amount_hagga"`
	PreviousQuantityDeepDesert int64              `gorm:"column:previous_quantity_deep_desert" json:"previous_quantity_deep_desert"`
	NewQuantityDeepDesert      int64              `gorm:"column:new_quantity_deep_desert" json:"new_quantity_deep_desert"`
	ChangeAmountDeepDesert     int64              `gorm:"column:change_amount_deep_desert" json:"change_amount_deep_desert"`
	ChangeKind                 ChangeKind         `gorm:"column:change_kind;size:16" json:"change_kind"`
	ActorID                    string             `gorm:"column:actor_id;index:idx_ledger_actor_created,priority:1" json:"actor_id"`
	Reason                     string             `gorm:"column:reason" json:"reason,omitempty"`
	TransferAmount             *int64             `gorm:"column:transfer_amount" json:"transfer_amount,omitempty"`
	TransferDirection          *TransferDirection `gorm:"column:transfer_direction;size:16" json:"transfer_direction,omitempty"`
	PreviousHash               string             `gorm:"column:previous_hash" json:"previous_hash"`
	Hash                       string             `gorm:"column:hash" json:"hash"`
	Metadata                   datatypes.JSON     `gorm:"column:metadata" json:"metadata,omitempty"`
	CreatedAt                  time.Time          `gorm:"column:created_at;index:idx_ledger_resource_created,priority:2;index:idx_ledger_actor_created,priority:2" json:"created_at"`
}

func (Entry) TableName() string {
	return "change_ledger_entries"
}

type Quantities struct {
	Hagga      int64
	DeepDesert int64
}

type EntryParams struct {
	ResourceID string
	ActorID    string
	Kind       ChangeKind
	Previous   Quantities
	New        Quantities
	Reason     string
	Metadata   map[string]any
}

// NewEntry derives the per-location change amounts from the previous and
// new quantities, so New - Previous == ChangeAmount holds by construction.
func NewEntry(p EntryParams) *Entry {
	return &Entry{
		ResourceID:                 p.ResourceID,
		ActorID:                    p.ActorID,
		ChangeKind:                 p.Kind,
		PreviousQuantityHagga:      p.Previous.Hagga,
		NewQuantityHagga:           p.New.Hagga,
		ChangeAmountHagga:          p.New.Hagga - p.Previous.Hagga,
		PreviousQuantityDeepDesert: p.Previous.DeepDesert,
		NewQuantityDeepDesert:      p.New.DeepDesert,
		ChangeAmountDeepDesert:     p.New.DeepDesert - p.Previous.DeepDesert,
		Reason:                     p.Reason,
		Metadata:                   encodeMetadata(p.Metadata),
	}
}

// NewTransferEntry records amount moving in direction between the two
// locations of one resource.
func NewTransferEntry(p EntryParams, amount int64, direction TransferDirection) *Entry {
	p.Kind = KindTransfer
	e := NewEntry(p)
	e.TransferAmount = &amount
	e.TransferDirection = &direction
	return e
}

func encodeMetadata(meta map[string]any) datatypes.JSON {
	if len(meta) == 0 {
		return nil
	}
	b, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return datatypes.JSON(b)
}

// Validate checks the arithmetic invariants of the entry.
func (e *Entry) Validate() error {
	if e.ResourceID == "" {
		return fmt.Errorf("ledger entry without resource")
	}
	if e.NewQuantityHagga-e.PreviousQuantityHagga != e.ChangeAmountHagga ||
		e.NewQuantityDeepDesert-e.PreviousQuantityDeepDesert != e.ChangeAmountDeepDesert {
		return fmt.Errorf("ledger entry change amounts do not match quantities")
	}
	if e.NewQuantityHagga < 0 || e.NewQuantityDeepDesert < 0 {
		return fmt.Errorf("ledger entry with negative quantity")
	}
	if e.ChangeKind == KindTransfer {
		if e.TransferAmount == nil || e.TransferDirection == nil {
			return fmt.Errorf("transfer entry without amount or direction")
		}
		if e.ChangeAmountHagga != -e.ChangeAmountDeepDesert {
			return fmt.Errorf("transfer entry does not conserve quantity")
		}
		moved := e.ChangeAmountDeepDesert
		if *e.TransferDirection == ToHagga {
			moved = e.ChangeAmountHagga
		}
		if moved != *e.TransferAmount {
			return fmt.Errorf("transfer entry amount mismatch")
		}
	}
	return nil
}

func (e *Entry) HashFields() map[string]string {
	fields := map[string]string{
		"id":                            e.ID,
		"resource_id":                   e.ResourceID,
		"previous_quantity_hagga":       fmt.Sprintf("%d", e.PreviousQuantityHagga),
		"new_quantity_hagga":            fmt.Sprintf("%d", e.NewQuantityHagga),
		"change_amount_hagga":           fmt.Sprintf("%d", e.ChangeAmountHagga),
		"previous_quantity_deep_desert": fmt.Sprintf("%d", e.PreviousQuantityDeepDesert),
		"new_quantity_deep_desert":      fmt.Sprintf("%d", e.NewQuantityDeepDesert),
		"change_amount_deep_desert":     fmt.Sprintf("%d", e.ChangeAmountDeepDesert),
		"change_kind":                   string(e.ChangeKind),
		"actor_id":                      e.ActorID,
		"reason":                        e.Reason,
		"created_at":                    e.CreatedAt.UTC().Format(time.RFC3339Nano),
		"previous_hash":                 e.PreviousHash,
	}
	if e.TransferAmount != nil {
		fields["transfer_amount"] = fmt.Sprintf("%d", *e.TransferAmount)
	}
	if e.TransferDirection != nil {
		fields["transfer_direction"] = string(*e.TransferDirection)
	}
	return fields
}

func (e *Entry) GenerateHash() string {
	fields := e.HashFields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%s", k, fields[k]))
	}

	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(hash[:])
}
