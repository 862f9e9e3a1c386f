package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrderLine tracks one ordered item. The final target for the line is
// QtyOrdered + QtyAdjusted (a signed delta reconciling against what the
// supplier actually ships); it may never fall below QtyReceived.
type PurchaseOrderLine struct {
	ItemId      string          `json:"item_id"`
	QtyOrdered  decimal.Decimal `json:"qty_ordered"`
	QtyAdjusted decimal.Decimal `json:"qty_adjusted"`
	QtyReceived decimal.Decimal `json:"qty_received"`
}

func (l PurchaseOrderLine) FinalTarget() decimal.Decimal {
	return l.QtyOrdered.Add(l.QtyAdjusted)
}

type ReceiptLine struct {
	ItemId     string          `json:"item_id"`
	Qty        decimal.Decimal `json:"qty"`
	MovementId string          `json:"movement_id"`
}

// Receipt groups the movements posted by one physical delivery.
type Receipt struct {
	ID    string        `json:"id"`
	At    time.Time     `json:"at"`
	Note  string        `json:"note,omitempty"`
	Lines []ReceiptLine `json:"lines"`
}

// PurchaseOrder authorizes and tracks receiving raw materials. Status is
// derived from received vs. final target, never set by hand (except
// CANCELLED).
type PurchaseOrder struct {
	ID                      string              `json:"id"`
	Number                  int                 `json:"number"`
	Status                  PurchaseOrderStatus `json:"status"`
	LinkedProductionOrderId string              `json:"linked_production_order_id,omitempty"`
	Items                   []PurchaseOrderLine `json:"items"`
	Receipts                []Receipt           `json:"receipts"`
	Note                    string              `json:"note,omitempty"`
	CreatedAt               time.Time           `json:"created_at"`
	ArchivedAt              *time.Time          `json:"archived_at,omitempty"`
}

type NewPurchaseOrderLine struct {
	ItemId     string          `json:"item_id" binding:"required"`
	QtyOrdered decimal.Decimal `json:"qty_ordered" binding:"required"`
}

type NewPurchaseOrder struct {
	Items                   []NewPurchaseOrderLine `json:"items" binding:"required,min=1,dive"`
	Note                    string                 `json:"note"`
	LinkedProductionOrderId string                 `json:"linked_production_order_id"`
}

type PurchaseOrderAdjustment struct {
	ItemId      string          `json:"item_id" binding:"required"`
	QtyAdjusted decimal.Decimal `json:"qty_adjusted"`
}

type ReceiveLine struct {
	ItemId string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
}

type ReceiveInput struct {
	Lines []ReceiveLine `json:"lines" binding:"required,min=1,dive"`
	Note  string        `json:"note"`
	// Finalize closes out a partial shipment: after posting, each line's
	// adjustment is set so the final target equals what was received, and
	// untouched lines are dropped.
	Finalize bool `json:"finalize"`
}

func (o *PurchaseOrder) Normalize() {
	if o.Items == nil {
		o.Items = make([]PurchaseOrderLine, 0)
	}
	if o.Receipts == nil {
		o.Receipts = make([]Receipt, 0)
	}
	if o.Status == "" {
		o.Status = PurchaseOrderOpen
	}
}

func (o *PurchaseOrder) FindLine(itemId string) *PurchaseOrderLine {
	for i := range o.Items {
		if o.Items[i].ItemId == itemId {
			return &o.Items[i]
		}
	}
	return nil
}

// ReceiptMovementIds collects every movement ever posted by this order's
// receipts, for exact reversal on delete.
func (o *PurchaseOrder) ReceiptMovementIds() []string {
	ids := make([]string, 0)
	for _, r := range o.Receipts {
		for _, l := range r.Lines {
			if l.MovementId != "" {
				ids = append(ids, l.MovementId)
			}
		}
	}
	return ids
}
