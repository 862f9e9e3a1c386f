package workflow

import (
	"errors"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
	"github.com/shopspring/decimal"
)

// ComputeStock folds the movement log in document order: `in` adds, `out`
// subtracts, `adjust` sets absolutely. Movements are normally appended
// chronologically so document order and time order coincide; document order
// is authoritative (history views may sort by timestamp for display only).
// Every known item starts at zero; results are quantized per item unit.
func ComputeStock(doc *models.StockDocument) map[string]decimal.Decimal {
	units := make(map[string]string, len(doc.Items))
	stock := make(map[string]decimal.Decimal, len(doc.Items))
	for _, it := range doc.Items {
		units[it.ID] = it.Unit
		stock[it.ID] = decimal.Zero
	}
	for _, m := range doc.Movements {
		cur := stock[m.ItemId]
		switch m.Type {
		case models.MovementIn:
			stock[m.ItemId] = cur.Add(m.Qty)
		case models.MovementOut:
			stock[m.ItemId] = cur.Sub(m.Qty)
		case models.MovementAdjust:
			stock[m.ItemId] = m.Qty
		}
	}
	for id, qty := range stock {
		unit, ok := units[id]
		if !ok {
			// Movement of a formerly-existing item; keep raw.
			continue
		}
		stock[id] = models.Quantize(qty, unit)
	}
	return stock
}

// StockView is what the HTTP layer gets back from GetStock.
type StockView struct {
	Items      []models.Item              `json:"items"`
	Quantities map[string]decimal.Decimal `json:"quantities"`
}

func (e *Engine) GetStock(t models.ItemType) (*StockView, error) {
	if !t.Valid() {
		return nil, utils.ErrorRecordNotFound
	}
	doc, err := e.repo.LoadStock(t)
	if err != nil {
		return nil, err
	}
	return &StockView{Items: doc.Items, Quantities: ComputeStock(doc)}, nil
}

func (e *Engine) GetMovements(t models.ItemType, includeHidden bool) ([]models.Movement, error) {
	doc, err := e.repo.LoadStock(t)
	if err != nil {
		return nil, err
	}
	if includeHidden {
		return doc.Movements, nil
	}
	visible := make([]models.Movement, 0, len(doc.Movements))
	for _, m := range doc.Movements {
		if !m.HiddenFromHistory {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// PostMovement appends one movement to the stock document of the given type.
// `out` is refused when it would drive the item's quantized stock negative;
// `adjust` records the absolute quantity plus before/after/delta audit
// fields.
func (e *Engine) PostMovement(t models.ItemType, input *models.NewMovement, by string) (*models.Movement, error) {
	if !input.Type.Valid() {
		return nil, errors.New("invalid movement type")
	}
	if input.Type != models.MovementAdjust && !input.Qty.IsPositive() {
		return nil, errors.New("quantity must be positive")
	}
	if input.Type == models.MovementAdjust && input.Qty.IsNegative() {
		return nil, errors.New("adjust quantity cannot be negative")
	}

	var posted *models.Movement
	err := e.repo.UpdateStock(t, func(doc *models.StockDocument) error {
		item := doc.FindItem(input.ItemId)
		if item == nil {
			return utils.ErrorRecordNotFound
		}
		qty := models.Quantize(input.Qty, item.Unit)
		stock := ComputeStock(doc)
		before := stock[item.ID]

		m := models.Movement{
			ID:     e.newID(),
			Type:   input.Type,
			ItemId: item.ID,
			Qty:    qty,
			Reason: input.Reason,
			At:     e.now(),
			By:     by,
		}
		switch input.Type {
		case models.MovementOut:
			if qty.GreaterThan(before) {
				return &models.InsufficientStockError{Shortages: []models.Shortage{{
					ItemId:    item.ID,
					ItemName:  item.Name,
					Unit:      item.Unit,
					Required:  qty,
					Available: before,
					Missing:   qty.Sub(before),
				}}}
			}
		case models.MovementAdjust:
			after := qty
			delta := after.Sub(before)
			m.BeforeQty = &before
			m.AfterQty = &after
			m.Delta = &delta
		}
		doc.Movements = append(doc.Movements, m)
		posted = &m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return posted, nil
}

// HideMovement soft-hides one movement from audit views. The movement itself
// is untouched otherwise and still counts toward stock.
func (e *Engine) HideMovement(t models.ItemType, movementId string, hidden bool) error {
	return e.repo.UpdateStock(t, func(doc *models.StockDocument) error {
		for i := range doc.Movements {
			if doc.Movements[i].ID == movementId {
				doc.Movements[i].HiddenFromHistory = hidden
				return nil
			}
		}
		return utils.ErrorRecordNotFound
	})
}
