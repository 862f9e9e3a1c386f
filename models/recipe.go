package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BOMLine struct {
	ItemId string          `json:"item_id"`
	Qty    decimal.Decimal `json:"qty"`
	Pos    int             `json:"pos,omitempty"`
	FC     decimal.Decimal `json:"fc,omitempty"`
}

// Recipe describes how one finished good is produced: yield per batch plus
// the bill of materials consumed per batch.
type Recipe struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ProductId    string          `json:"product_id,omitempty"`
	OutputItemId string          `json:"output_item_id"`
	YieldQty     decimal.Decimal `json:"yield_qty"`
	YieldUnit    string          `json:"yield_unit"`
	BOM          []BOMLine       `json:"bom"`
	Notes        string          `json:"notes,omitempty"`
	Method       string          `json:"method,omitempty"`
	PhotoFile    string          `json:"photo_file,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type NewBOMLine struct {
	ItemId string          `json:"item_id" binding:"required"`
	Qty    decimal.Decimal `json:"qty" binding:"required"`
	Pos    int             `json:"pos"`
	FC     decimal.Decimal `json:"fc"`
}

type NewRecipe struct {
	Name      string          `json:"name" binding:"required"`
	YieldQty  decimal.Decimal `json:"yield_qty" binding:"required"`
	YieldUnit string          `json:"yield_unit" binding:"required"`
	BOM       []NewBOMLine    `json:"bom" binding:"required,min=1,dive"`
	Notes     string          `json:"notes"`
	Method    string          `json:"method"`
	SalePrice decimal.Decimal `json:"sale_price"`
}
