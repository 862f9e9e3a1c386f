package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// QuantityLine pairs an item with a quantity, without a movement reference.
type QuantityLine struct {
	ItemId string          `json:"item_id"`
	Qty    decimal.Decimal `json:"qty"`
}

// MovementRef records a posted stock movement so it can later be reversed by
// exact id, never by a compensating entry.
type MovementRef struct {
	ItemId     string          `json:"item_id"`
	Qty        decimal.Decimal `json:"qty"`
	MovementId string          `json:"movement_id"`
}

// Shortage is one insufficient BOM line: required is the gross quantity
// (net grown by the item's loss percent), all values quantized to the item's
// unit.
type Shortage struct {
	ItemId      string          `json:"item_id"`
	ItemName    string          `json:"item_name"`
	Unit        string          `json:"unit"`
	RequiredNet decimal.Decimal `json:"required_net"`
	Required    decimal.Decimal `json:"required"`
	Available   decimal.Decimal `json:"available"`
	Missing     decimal.Decimal `json:"missing"`
}

type PlannedMovements struct {
	Consumed []QuantityLine `json:"consumed"`
	Produced *QuantityLine  `json:"produced"`
}

// ProductionOrder authorizes consuming raw materials to produce a finished
// good per a recipe. Stock only moves on explicit transitions: raw `out`
// movements on ISSUED->IN_PRODUCTION, the finished `in` movement on
// IN_PRODUCTION->CLOSED.
type ProductionOrder struct {
	ID                    string                `json:"id"`
	Number                int                   `json:"number"`
	RecipeId              string                `json:"recipe_id"`
	QtyToProduce          decimal.Decimal       `json:"qty_to_produce"`
	Status                ProductionOrderStatus `json:"status"`
	Factor                decimal.Decimal       `json:"factor"`
	Planned               PlannedMovements      `json:"planned"`
	Consumed              []MovementRef         `json:"consumed"`
	Produced              *MovementRef          `json:"produced"`
	Shortages             []Shortage            `json:"shortages"`
	LinkedPurchaseOrderId string                `json:"linked_purchase_order_id,omitempty"`
	LotNumber             int                   `json:"lot_number,omitempty"`
	LotCode               string                `json:"lot_code,omitempty"`
	BarcodeValue          string                `json:"barcode_value,omitempty"`
	CreatedAt             time.Time             `json:"created_at"`
	StartedAt             *time.Time            `json:"started_at,omitempty"`
	ClosedAt              *time.Time            `json:"closed_at,omitempty"`
	CancelledAt           *time.Time            `json:"cancelled_at,omitempty"`
	ArchivedAt            *time.Time            `json:"archived_at,omitempty"`
}

type NewProductionOrder struct {
	RecipeId     string          `json:"recipe_id" binding:"required"`
	QtyToProduce decimal.Decimal `json:"qty_to_produce" binding:"required"`
	// AllowShortages lets the order be issued even when raw stock cannot
	// cover the requirements right now.
	AllowShortages bool `json:"allow_shortages"`
	// CreatePurchaseOrder asks for a linked purchase order pre-filled with
	// the shortages (or the override quantities below).
	CreatePurchaseOrder bool           `json:"create_purchase_order"`
	PurchaseQtyOverride []QuantityLine `json:"purchase_qty_override"`
}

// Normalize migrates one order loaded from disk: legacy statuses collapse
// onto the current set and nil slices become empty ones.
func (o *ProductionOrder) Normalize() error {
	st, err := NormalizeProductionOrderStatus(string(o.Status))
	if err != nil {
		return err
	}
	o.Status = st
	if o.Consumed == nil {
		o.Consumed = make([]MovementRef, 0)
	}
	if o.Shortages == nil {
		o.Shortages = make([]Shortage, 0)
	}
	if o.Planned.Consumed == nil {
		o.Planned.Consumed = make([]QuantityLine, 0)
	}
	return nil
}

func (o *ProductionOrder) ConsumedMovementIds() []string {
	ids := make([]string, 0, len(o.Consumed))
	for _, c := range o.Consumed {
		ids = append(ids, c.MovementId)
	}
	return ids
}
