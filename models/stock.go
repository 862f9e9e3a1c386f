package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a raw material (type "raw", codes MPnnn) or finished good
// (type "fg", codes PFnnn) owned by one stock document.
type Item struct {
	ID          string          `json:"id"`
	Code        string          `json:"code"`
	Name        string          `json:"name"`
	Unit        string          `json:"unit"`
	MinStock    decimal.Decimal `json:"min_stock"`
	Cost        decimal.Decimal `json:"cost"`
	Type        ItemType        `json:"type"`
	LossPercent decimal.Decimal `json:"loss_percent"` // raw only: expected preparation loss
	CookFactor  decimal.Decimal `json:"cook_factor"`  // raw only
	SalePrice   decimal.Decimal `json:"sale_price"`   // fg only
	CreatedAt   time.Time       `json:"created_at"`
}

type NewItem struct {
	Name        string          `json:"name" binding:"required"`
	Unit        string          `json:"unit" binding:"required"`
	MinStock    decimal.Decimal `json:"min_stock"`
	Cost        decimal.Decimal `json:"cost"`
	LossPercent decimal.Decimal `json:"loss_percent"`
	CookFactor  decimal.Decimal `json:"cook_factor"`
	SalePrice   decimal.Decimal `json:"sale_price"`
}

// Movement is append-only. After creation only HiddenFromHistory may change,
// and hiding never affects stock computation.
type Movement struct {
	ID                string           `json:"id"`
	Type              MovementType     `json:"type"`
	ItemId            string           `json:"item_id"`
	Qty               decimal.Decimal  `json:"qty"`
	Reason            string           `json:"reason"`
	At                time.Time        `json:"at"`
	By                string           `json:"by,omitempty"`
	BeforeQty         *decimal.Decimal `json:"before_qty,omitempty"`
	AfterQty          *decimal.Decimal `json:"after_qty,omitempty"`
	Delta             *decimal.Decimal `json:"delta,omitempty"`
	HiddenFromHistory bool             `json:"hidden_from_history,omitempty"`
}

type NewMovement struct {
	Type   MovementType    `json:"type" binding:"required"`
	ItemId string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
	Reason string          `json:"reason"`
}

// StockDocument is one on-disk collection: all items of one type plus their
// full movement log. Computed stock is a fold over Movements in file order.
type StockDocument struct {
	SchemaVersion  int        `json:"schema_version"`
	Items          []Item     `json:"items"`
	Movements      []Movement `json:"movements"`
	CodeNumberNext int        `json:"code_number_next"`
}

const stockSchemaVersion = 2

// Normalize migrates a freshly-loaded document to the current schema. It runs
// exactly once per load, before any handler sees the document.
func (d *StockDocument) Normalize() {
	if d.Items == nil {
		d.Items = make([]Item, 0)
	}
	if d.Movements == nil {
		d.Movements = make([]Movement, 0)
	}
	if d.CodeNumberNext < 1 {
		d.CodeNumberNext = 1
	}
	d.SchemaVersion = stockSchemaVersion
}

func (d *StockDocument) FindItem(id string) *Item {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return &d.Items[i]
		}
	}
	return nil
}

func (d *StockDocument) FindItemByCode(code string) *Item {
	for i := range d.Items {
		if d.Items[i].Code == code {
			return &d.Items[i]
		}
	}
	return nil
}

// RemoveMovements deletes the movements with the given ids from the log.
// This is the exact-reversal primitive: a cancelled consumption disappears
// instead of being counter-posted, so no compensating entry can drift.
func (d *StockDocument) RemoveMovements(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := d.Movements[:0]
	removed := 0
	for _, m := range d.Movements {
		if drop[m.ID] {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	d.Movements = kept
	return removed
}
