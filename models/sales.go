package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesPoint is a point of sale receiving dispatched finished goods.
// Codes are Pnnn, sequential gap-filled.
type SalesPoint struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Address   string    `json:"address,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type NewSalesPoint struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Note    string `json:"note"`
}

type SalesPointsDocument struct {
	SchemaVersion  int          `json:"schema_version"`
	Points         []SalesPoint `json:"points"`
	CodeNumberNext int          `json:"code_number_next"`
}

func (d *SalesPointsDocument) Normalize() {
	if d.Points == nil {
		d.Points = make([]SalesPoint, 0)
	}
	if d.CodeNumberNext < 1 {
		d.CodeNumberNext = 1
	}
	d.SchemaVersion = salesSchemaVersion
}

func (d *SalesPointsDocument) FindPoint(id string) *SalesPoint {
	for i := range d.Points {
		if d.Points[i].ID == id {
			return &d.Points[i]
		}
	}
	return nil
}

type SalesOrderLine struct {
	ItemId string          `json:"item_id"`
	Qty    decimal.Decimal `json:"qty"`
	Unit   string          `json:"unit"`
}

// SalesOrder dispatches finished goods either to a sales point (series PV)
// or as a quick walk-up sale (series PVR). Dispatch posts `out` movements on
// finished stock and, for point orders, point-move ledger entries.
type SalesOrder struct {
	ID                   string           `json:"id"`
	Series               SalesOrderSeries `json:"series"`
	Number               int              `json:"number"`
	Type                 SalesOrderType   `json:"type"`
	Status               SalesOrderStatus `json:"status"`
	Archived             bool             `json:"archived"`
	PointId              string           `json:"point_id,omitempty"`
	Items                []SalesOrderLine `json:"items"`
	DispatchMovementIds  []string         `json:"dispatch_movement_ids,omitempty"`
	DispatchPointMoveIds []string         `json:"dispatch_point_move_ids,omitempty"`
	CreatedAt            time.Time        `json:"created_at"`
	DispatchedAt         *time.Time       `json:"dispatched_at,omitempty"`
}

type NewSalesOrderLine struct {
	ItemId string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
}

type NewSalesOrder struct {
	Series  SalesOrderSeries    `json:"series" binding:"required"`
	PointId string              `json:"point_id"`
	Items   []NewSalesOrderLine `json:"items" binding:"required,min=1,dive"`
}

type SalesMeta struct {
	PvNumberNext  int `json:"pv_number_next"`
	PvrNumberNext int `json:"pvr_number_next"`
}

type SalesOrdersDocument struct {
	SchemaVersion int          `json:"schema_version"`
	Orders        []SalesOrder `json:"orders"`
	Meta          SalesMeta    `json:"meta"`
}

const salesSchemaVersion = 2

func (d *SalesOrdersDocument) Normalize() {
	if d.Orders == nil {
		d.Orders = make([]SalesOrder, 0)
	}
	for i := range d.Orders {
		o := &d.Orders[i]
		if o.Status == "" {
			o.Status = SalesOrderOpen
		}
		if o.Items == nil {
			o.Items = make([]SalesOrderLine, 0)
		}
	}
	if d.Meta.PvNumberNext < 1 {
		d.Meta.PvNumberNext = 1
	}
	if d.Meta.PvrNumberNext < 1 {
		d.Meta.PvrNumberNext = 1
	}
	d.SchemaVersion = salesSchemaVersion
}

func (d *SalesOrdersDocument) FindOrder(id string) *SalesOrder {
	for i := range d.Orders {
		if d.Orders[i].ID == id {
			return &d.Orders[i]
		}
	}
	return nil
}

// PointMove is one append-only ledger entry; point on-hand inventory is the
// sum of deltas per (point, item).
type PointMove struct {
	ID      string          `json:"id"`
	PointId string          `json:"point_id"`
	ItemId  string          `json:"item_id"`
	Unit    string          `json:"unit"`
	Delta   decimal.Decimal `json:"delta"`
	At      time.Time       `json:"at"`
	RefType string          `json:"ref_type,omitempty"`
	RefId   string          `json:"ref_id,omitempty"`
}

type PointMovesDocument struct {
	SchemaVersion int         `json:"schema_version"`
	Moves         []PointMove `json:"moves"`
}

func (d *PointMovesDocument) Normalize() {
	if d.Moves == nil {
		d.Moves = make([]PointMove, 0)
	}
	d.SchemaVersion = salesSchemaVersion
}

// RemoveMoves deletes ledger entries by id, the exact-reversal counterpart of
// StockDocument.RemoveMovements.
func (d *PointMovesDocument) RemoveMoves(ids []string) int {
	if len(ids) == 0 {
		return 0
	}
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	kept := d.Moves[:0]
	removed := 0
	for _, m := range d.Moves {
		if drop[m.ID] {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	d.Moves = kept
	return removed
}
