package workflow

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
	"github.com/shopspring/decimal"
)

// CreatePurchaseOrder opens an order for the given raw-material lines. Lines
// whose final target quantizes to zero or below are dropped.
func (e *Engine) CreatePurchaseOrder(input *models.NewPurchaseOrder) (*models.PurchaseOrder, error) {
	var created *models.PurchaseOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		raw, err := e.repo.LoadStock(models.ItemTypeRaw)
		if err != nil {
			return err
		}
		lines := make([]models.PurchaseOrderLine, 0, len(input.Items))
		for _, l := range input.Items {
			item := raw.FindItem(l.ItemId)
			if item == nil {
				return fmt.Errorf("item %s: %w", l.ItemId, utils.ErrorRecordNotFound)
			}
			qty := models.Quantize(l.QtyOrdered, item.Unit)
			if !qty.IsPositive() {
				continue
			}
			lines = append(lines, models.PurchaseOrderLine{ItemId: l.ItemId, QtyOrdered: qty})
		}
		if len(lines) == 0 {
			return errors.New("no purchasable lines")
		}

		if input.LinkedProductionOrderId != "" {
			if doc.FindProductionOrder(input.LinkedProductionOrderId) == nil {
				return fmt.Errorf("linked production order: %w", utils.ErrorRecordNotFound)
			}
		}

		ocArchive, err := e.repo.LoadOCArchive()
		if err != nil {
			return err
		}
		oc := models.PurchaseOrder{
			ID:                      e.newID(),
			Number:                  nextNumber(usedPurchaseOrderNumbers(doc.PurchaseOrders, ocArchive.Orders), &doc.Meta.OcNumberNext),
			Status:                  models.PurchaseOrderOpen,
			LinkedProductionOrderId: input.LinkedProductionOrderId,
			Items:                   lines,
			Receipts:                make([]models.Receipt, 0),
			Note:                    input.Note,
			CreatedAt:               e.now(),
		}
		doc.PurchaseOrders = append(doc.PurchaseOrders, oc)
		if input.LinkedProductionOrderId != "" {
			if op := doc.FindProductionOrder(input.LinkedProductionOrderId); op != nil {
				op.LinkedPurchaseOrderId = oc.ID
			}
		}
		created = &oc
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// AdjustPurchaseOrder applies signed final-target adjustments per line. A
// line's final target (ordered + adjusted) can never fall below what was
// already physically received.
func (e *Engine) AdjustPurchaseOrder(id string, adjustments []models.PurchaseOrderAdjustment) (*models.PurchaseOrder, error) {
	var result *models.PurchaseOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		oc := doc.FindPurchaseOrder(id)
		if oc == nil {
			return utils.ErrorRecordNotFound
		}
		if oc.Status == models.PurchaseOrderCancelled {
			return &models.FinalStatusError{Status: string(oc.Status)}
		}
		raw, err := e.repo.LoadStock(models.ItemTypeRaw)
		if err != nil {
			return err
		}
		for _, adj := range adjustments {
			line := oc.FindLine(adj.ItemId)
			if line == nil {
				return fmt.Errorf("line %s: %w", adj.ItemId, utils.ErrorRecordNotFound)
			}
			unit := lineUnit(raw, line.ItemId)
			target := models.Quantize(line.QtyOrdered.Add(adj.QtyAdjusted), unit)
			received := models.Quantize(line.QtyReceived, unit)
			if target.LessThan(received) {
				return &models.AdjustedBelowReceivedError{
					ItemId:      line.ItemId,
					FinalTarget: target,
					Received:    received,
				}
			}
			line.QtyAdjusted = adj.QtyAdjusted
		}
		recomputePurchaseStatus(oc, raw)
		cp := *oc
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ReceivePurchaseOrder posts one `in` raw-stock movement per received line,
// groups them into a receipt, and re-derives the order status. With Finalize
// set, each line's adjustment is rewritten so the final target equals what
// was received, and untouched lines are dropped.
func (e *Engine) ReceivePurchaseOrder(id string, input *models.ReceiveInput) (*models.PurchaseOrder, error) {
	var result *models.PurchaseOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		oc := doc.FindPurchaseOrder(id)
		if oc == nil {
			return utils.ErrorRecordNotFound
		}
		if oc.Status == models.PurchaseOrderCancelled {
			return &models.FinalStatusError{Status: string(oc.Status)}
		}

		var raw *models.StockDocument
		err := e.repo.UpdateStock(models.ItemTypeRaw, func(stock *models.StockDocument) error {
			raw = stock
			now := e.now()
			receipt := models.Receipt{
				ID:    e.newID(),
				At:    now,
				Note:  input.Note,
				Lines: make([]models.ReceiptLine, 0, len(input.Lines)),
			}
			for _, rl := range input.Lines {
				line := oc.FindLine(rl.ItemId)
				if line == nil {
					return fmt.Errorf("line %s: %w", rl.ItemId, utils.ErrorRecordNotFound)
				}
				item := stock.FindItem(rl.ItemId)
				if item == nil {
					return fmt.Errorf("item %s: %w", rl.ItemId, utils.ErrorRecordNotFound)
				}
				qty := models.Quantize(rl.Qty, item.Unit)
				if !qty.IsPositive() {
					return errors.New("receive quantity must be positive")
				}
				m := models.Movement{
					ID:     e.newID(),
					Type:   models.MovementIn,
					ItemId: item.ID,
					Qty:    qty,
					Reason: fmt.Sprintf("OC %d: receipt", oc.Number),
					At:     now,
				}
				stock.Movements = append(stock.Movements, m)
				line.QtyReceived = line.QtyReceived.Add(qty)
				receipt.Lines = append(receipt.Lines, models.ReceiptLine{ItemId: item.ID, Qty: qty, MovementId: m.ID})
			}
			oc.Receipts = append(oc.Receipts, receipt)

			if input.Finalize {
				kept := oc.Items[:0]
				for _, l := range oc.Items {
					if l.QtyReceived.IsZero() {
						continue
					}
					// Close the line out at what actually arrived.
					l.QtyAdjusted = l.QtyReceived.Sub(l.QtyOrdered)
					kept = append(kept, l)
				}
				oc.Items = kept
			}
			recomputePurchaseStatus(oc, stock)
			return nil
		})
		if err != nil {
			return err
		}

		// A linked, still-open production order gets its shortages
		// recomputed against the updated stock; its status never
		// auto-advances.
		if oc.LinkedProductionOrderId != "" {
			if op := doc.FindProductionOrder(oc.LinkedProductionOrderId); op != nil && !op.Status.Terminal() {
				if recipe := doc.FindRecipe(op.RecipeId); recipe != nil {
					_, shortages, err := computeRequirements(recipe, op.Factor, raw)
					if err == nil {
						op.Shortages = shortages
					}
				}
			}
		}

		cp := *oc
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelPurchaseOrder marks the order CANCELLED. Movements already posted by
// its receipts stay in stock; only deletion reverses them.
func (e *Engine) CancelPurchaseOrder(id string) (*models.PurchaseOrder, error) {
	var result *models.PurchaseOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		oc := doc.FindPurchaseOrder(id)
		if oc == nil {
			return utils.ErrorRecordNotFound
		}
		if oc.Status.Terminal() {
			return &models.FinalStatusError{Status: string(oc.Status)}
		}
		oc.Status = models.PurchaseOrderCancelled
		cp := *oc
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeletePurchaseOrder removes the order and every movement its receipts
// posted, and unlinks (never deletes) a linked production order.
func (e *Engine) DeletePurchaseOrder(id string) error {
	authorized := map[string]bool{models.TrackedPurchaseOrders: true}
	return e.repo.UpdateMRP(authorized, func(doc *models.MRPDocument) error {
		var order *models.PurchaseOrder
		fromArchive := false

		if o := doc.FindPurchaseOrder(id); o != nil {
			order = o
		} else {
			archive, err := e.repo.LoadOCArchive()
			if err != nil {
				return err
			}
			for i := range archive.Orders {
				if archive.Orders[i].ID == id {
					cp := archive.Orders[i]
					order = &cp
					fromArchive = true
					break
				}
			}
		}
		if order == nil {
			return utils.ErrorRecordNotFound
		}

		if ids := order.ReceiptMovementIds(); len(ids) > 0 {
			err := e.repo.UpdateStock(models.ItemTypeRaw, func(raw *models.StockDocument) error {
				raw.RemoveMovements(ids)
				return nil
			})
			if err != nil {
				return err
			}
		}

		if order.LinkedProductionOrderId != "" {
			if op := doc.FindProductionOrder(order.LinkedProductionOrderId); op != nil {
				op.LinkedPurchaseOrderId = ""
			}
		}

		if fromArchive {
			return e.repo.UpdateOCArchive(func(archive *models.PurchaseOrderArchive) error {
				kept := archive.Orders[:0]
				for _, o := range archive.Orders {
					if o.ID != id {
						kept = append(kept, o)
					}
				}
				archive.Orders = kept
				return nil
			})
		}
		kept := doc.PurchaseOrders[:0]
		for _, o := range doc.PurchaseOrders {
			if o.ID != id {
				kept = append(kept, o)
			}
		}
		doc.PurchaseOrders = kept
		return nil
	})
}

func lineUnit(raw *models.StockDocument, itemId string) string {
	if item := raw.FindItem(itemId); item != nil {
		return item.Unit
	}
	return ""
}

// recomputePurchaseStatus derives OPEN/PARTIAL/RECEIVED from received vs.
// final target across all lines. CANCELLED is sticky and never recomputed.
func recomputePurchaseStatus(oc *models.PurchaseOrder, raw *models.StockDocument) {
	if oc.Status == models.PurchaseOrderCancelled {
		return
	}
	if len(oc.Items) == 0 {
		oc.Status = models.PurchaseOrderReceived
		return
	}
	allMet := true
	anyReceived := false
	for _, l := range oc.Items {
		unit := lineUnit(raw, l.ItemId)
		received := models.Quantize(l.QtyReceived, unit)
		target := models.Quantize(l.FinalTarget(), unit)
		if received.IsPositive() {
			anyReceived = true
		}
		if received.LessThan(target) {
			allMet = false
		}
	}
	switch {
	case allMet:
		oc.Status = models.PurchaseOrderReceived
	case anyReceived:
		oc.Status = models.PurchaseOrderPartial
	default:
		oc.Status = models.PurchaseOrderOpen
	}
}

// PurchaseOrderTotal is a convenience for list views: the cost-weighted value
// of the order's final targets.
func PurchaseOrderTotal(oc *models.PurchaseOrder, raw *models.StockDocument) decimal.Decimal {
	total := decimal.Zero
	for _, l := range oc.Items {
		if item := raw.FindItem(l.ItemId); item != nil {
			total = total.Add(item.Cost.Mul(l.FinalTarget()))
		}
	}
	return total
}
