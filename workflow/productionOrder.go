package workflow

import (
	"errors"
	"fmt"

	"bitbucket.org/mmdatafocus/kitchen_backend/config"
	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
)

// CreateProductionOrder issues a new order against a recipe. No stock moves
// yet: consumption happens on the explicit transition to IN_PRODUCTION.
// Shortages at creation time either fail the call, or (when allowed) are
// recorded on the order, optionally spawning a linked purchase order
// pre-filled with the missing quantities.
func (e *Engine) CreateProductionOrder(input *models.NewProductionOrder) (*models.ProductionOrder, error) {
	if !input.QtyToProduce.IsPositive() {
		return nil, errors.New("qty_to_produce must be positive")
	}

	var created *models.ProductionOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		recipe := doc.FindRecipe(input.RecipeId)
		if recipe == nil {
			return fmt.Errorf("recipe_not_found: %w", utils.ErrorRecordNotFound)
		}
		if recipe.YieldQty.IsZero() {
			return errors.New("recipe yield quantity is zero")
		}

		raw, err := e.repo.LoadStock(models.ItemTypeRaw)
		if err != nil {
			return err
		}
		factor := input.QtyToProduce.Div(recipe.YieldQty)
		reqs, shortages, err := computeRequirements(recipe, factor, raw)
		if err != nil {
			return err
		}
		if len(shortages) > 0 && !input.AllowShortages {
			return &models.InsufficientStockError{Shortages: shortages}
		}

		opArchive, err := e.repo.LoadOPArchive()
		if err != nil {
			return err
		}

		order := models.ProductionOrder{
			ID:           e.newID(),
			Number:       nextNumber(usedProductionOrderNumbers(doc.ProductionOrders, opArchive.Orders), &doc.Meta.OpNumberNext),
			RecipeId:     recipe.ID,
			QtyToProduce: models.Quantize(input.QtyToProduce, recipe.YieldUnit),
			Status:       models.ProductionOrderIssued,
			Factor:       factor,
			Planned: models.PlannedMovements{
				Consumed: plannedFromRequirements(reqs),
				Produced: &models.QuantityLine{ItemId: recipe.OutputItemId, Qty: input.QtyToProduce},
			},
			Consumed:  make([]models.MovementRef, 0),
			Shortages: shortages,
			CreatedAt: e.now(),
		}

		if len(shortages) > 0 && input.CreatePurchaseOrder {
			oc, err := e.buildPurchaseOrderForShortages(doc, &order, shortages, input.PurchaseQtyOverride, raw)
			if err != nil {
				return err
			}
			doc.PurchaseOrders = append(doc.PurchaseOrders, *oc)
			order.LinkedPurchaseOrderId = oc.ID
		}

		doc.ProductionOrders = append(doc.ProductionOrders, order)
		created = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.logger.WithFields(map[string]interface{}{
		"module": "workflow",
		"op":     created.ID,
		"number": created.Number,
	}).Info("production order issued")
	return created, nil
}

// buildPurchaseOrderForShortages pre-fills a purchase order from the shortage
// lines (or the caller's override quantities), linked both ways to the order.
func (e *Engine) buildPurchaseOrderForShortages(doc *models.MRPDocument, op *models.ProductionOrder, shortages []models.Shortage, override []models.QuantityLine, raw *models.StockDocument) (*models.PurchaseOrder, error) {
	qtyFor := func(itemId string) (models.Shortage, bool) {
		for _, s := range shortages {
			if s.ItemId == itemId {
				return s, true
			}
		}
		return models.Shortage{}, false
	}

	lines := make([]models.PurchaseOrderLine, 0, len(shortages))
	if len(override) > 0 {
		for _, o := range override {
			item := raw.FindItem(o.ItemId)
			if item == nil {
				return nil, fmt.Errorf("override references unknown item %s", o.ItemId)
			}
			qty := models.Quantize(o.Qty, item.Unit)
			if !qty.IsPositive() {
				continue
			}
			lines = append(lines, models.PurchaseOrderLine{ItemId: o.ItemId, QtyOrdered: qty})
		}
	} else {
		for _, s := range shortages {
			if sh, ok := qtyFor(s.ItemId); ok && sh.Missing.IsPositive() {
				lines = append(lines, models.PurchaseOrderLine{ItemId: s.ItemId, QtyOrdered: sh.Missing})
			}
		}
	}
	if len(lines) == 0 {
		return nil, errors.New("no purchasable shortage lines")
	}

	ocArchive, err := e.repo.LoadOCArchive()
	if err != nil {
		return nil, err
	}
	oc := &models.PurchaseOrder{
		ID:                      e.newID(),
		Number:                  nextNumber(usedPurchaseOrderNumbers(doc.PurchaseOrders, ocArchive.Orders), &doc.Meta.OcNumberNext),
		Status:                  models.PurchaseOrderOpen,
		LinkedProductionOrderId: op.ID,
		Items:                   lines,
		Receipts:                make([]models.Receipt, 0),
		CreatedAt:               e.now(),
	}
	return oc, nil
}

// TransitionProductionOrder drives the state machine:
//
//	ISSUED -> IN_PRODUCTION  posts one `out` movement per BOM line
//	IN_PRODUCTION -> CLOSED  posts the finished `in` movement, assigns the lot
//	ISSUED|IN_PRODUCTION -> CANCELLED  reverses any consumption exactly
//
// Terminal states reject every transition.
func (e *Engine) TransitionProductionOrder(id string, target models.ProductionOrderStatus) (*models.ProductionOrder, error) {
	var result *models.ProductionOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		order := doc.FindProductionOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if order.Status.Terminal() {
			return &models.FinalStatusError{Status: string(order.Status)}
		}

		var err error
		switch target {
		case models.ProductionOrderInProduction:
			err = e.startProduction(doc, order)
		case models.ProductionOrderClosed:
			err = e.closeProduction(doc, order)
		case models.ProductionOrderCancelled:
			err = e.cancelProduction(order)
		default:
			err = &models.InvalidTransitionError{From: order.Status, To: target}
		}
		if err != nil {
			return err
		}
		cp := *order
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Engine) startProduction(doc *models.MRPDocument, order *models.ProductionOrder) error {
	if order.Status != models.ProductionOrderIssued {
		return &models.InvalidTransitionError{From: order.Status, To: models.ProductionOrderInProduction}
	}
	recipe := doc.FindRecipe(order.RecipeId)
	if recipe == nil {
		return fmt.Errorf("recipe_not_found: %w", utils.ErrorRecordNotFound)
	}

	// Requirements are recomputed against current stock, not the snapshot
	// taken at creation: stock may have moved since the order was issued.
	return e.repo.UpdateStock(models.ItemTypeRaw, func(raw *models.StockDocument) error {
		reqs, shortages, err := computeRequirements(recipe, order.Factor, raw)
		if err != nil {
			return err
		}
		if len(shortages) > 0 {
			order.Shortages = shortages
			return &models.InsufficientStockError{Shortages: shortages}
		}

		now := e.now()
		consumed := make([]models.MovementRef, 0, len(reqs))
		for _, req := range reqs {
			m := models.Movement{
				ID:     e.newID(),
				Type:   models.MovementOut,
				ItemId: req.Item.ID,
				Qty:    req.Required,
				Reason: fmt.Sprintf("OP %d: production consumption", order.Number),
				At:     now,
			}
			raw.Movements = append(raw.Movements, m)
			consumed = append(consumed, models.MovementRef{ItemId: req.Item.ID, Qty: req.Required, MovementId: m.ID})
		}
		order.Consumed = consumed
		order.Shortages = make([]models.Shortage, 0)
		order.Status = models.ProductionOrderInProduction
		order.StartedAt = &now
		return nil
	})
}

func (e *Engine) closeProduction(doc *models.MRPDocument, order *models.ProductionOrder) error {
	if order.Status != models.ProductionOrderInProduction {
		return &models.InvalidTransitionError{From: order.Status, To: models.ProductionOrderClosed}
	}
	recipe := doc.FindRecipe(order.RecipeId)
	if recipe == nil {
		return fmt.Errorf("recipe_not_found: %w", utils.ErrorRecordNotFound)
	}

	err := e.repo.UpdateStock(models.ItemTypeFinished, func(fg *models.StockDocument) error {
		output := fg.FindItem(recipe.OutputItemId)
		if output == nil {
			return fmt.Errorf("output item %s missing from finished stock", recipe.OutputItemId)
		}
		now := e.now()
		qty := models.Quantize(order.QtyToProduce, output.Unit)
		m := models.Movement{
			ID:     e.newID(),
			Type:   models.MovementIn,
			ItemId: output.ID,
			Qty:    qty,
			Reason: fmt.Sprintf("OP %d: production output", order.Number),
			At:     now,
		}
		fg.Movements = append(fg.Movements, m)
		order.Produced = &models.MovementRef{ItemId: output.ID, Qty: qty, MovementId: m.ID}
		order.Status = models.ProductionOrderClosed
		order.ClosedAt = &now
		return nil
	})
	if err != nil {
		return err
	}

	e.assignLot(doc, order)
	return nil
}

// assignLot gives a closing order its lot number and barcode value, exactly
// once: an order that already carries a lot keeps it.
func (e *Engine) assignLot(doc *models.MRPDocument, order *models.ProductionOrder) {
	if order.LotNumber > 0 {
		return
	}
	archived, err := e.repo.LoadOPArchive()
	if err != nil {
		config.LogError(e.logger, "workflow", "assignLot", "load archive", order.ID, err)
		archived = &models.ProductionOrderArchive{}
	}
	order.LotNumber = nextNumber(usedLotNumbers(doc.ProductionOrders, archived.Orders), &doc.Meta.LotNumberNext)
	order.LotCode = fmt.Sprintf("%06d", order.LotNumber)

	recipeCode := ""
	if recipe := doc.FindRecipe(order.RecipeId); recipe != nil {
		fg, err := e.repo.LoadStock(models.ItemTypeFinished)
		if err == nil {
			if out := fg.FindItem(recipe.OutputItemId); out != nil {
				recipeCode = out.Code
			}
		}
	}
	order.BarcodeValue = recipeCode + order.LotCode
}

func (e *Engine) cancelProduction(order *models.ProductionOrder) error {
	if order.Status != models.ProductionOrderIssued && order.Status != models.ProductionOrderInProduction {
		return &models.InvalidTransitionError{From: order.Status, To: models.ProductionOrderCancelled}
	}

	if len(order.Consumed) > 0 {
		// Exact reversal: the consumption movements are deleted by id, never
		// counter-posted.
		err := e.repo.UpdateStock(models.ItemTypeRaw, func(raw *models.StockDocument) error {
			raw.RemoveMovements(order.ConsumedMovementIds())
			return nil
		})
		if err != nil {
			return err
		}
		order.Consumed = make([]models.MovementRef, 0)
		order.StartedAt = nil
	}

	now := e.now()
	order.Status = models.ProductionOrderCancelled
	order.CancelledAt = &now
	return nil
}

// ExecuteProductionOrder forces ISSUED -> IN_PRODUCTION -> CLOSED in one
// call. It is idempotent: executing an already-CLOSED order is a no-op
// returning the order unchanged, with the same movements and lot.
func (e *Engine) ExecuteProductionOrder(id string) (*models.ProductionOrder, error) {
	var result *models.ProductionOrder
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		order := doc.FindProductionOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if order.Status == models.ProductionOrderClosed {
			cp := *order
			result = &cp
			return nil
		}
		if order.Status == models.ProductionOrderCancelled {
			return &models.FinalStatusError{Status: string(order.Status)}
		}
		if order.Status == models.ProductionOrderIssued {
			if err := e.startProduction(doc, order); err != nil {
				return err
			}
		}
		if err := e.closeProduction(doc, order); err != nil {
			return err
		}
		cp := *order
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteProductionOrder permanently removes the order from the active or
// archived collection, deleting any movements it posted (full reversal) and
// unlinking, not deleting, a linked purchase order.
func (e *Engine) DeleteProductionOrder(id string) error {
	// Deleting the last active order legitimately empties the tracked list,
	// so this deliberate destructive write authorizes that one wipe.
	authorized := map[string]bool{models.TrackedProductionOrders: true}
	return e.repo.UpdateMRP(authorized, func(doc *models.MRPDocument) error {
		var order *models.ProductionOrder
		fromArchive := false

		if o := doc.FindProductionOrder(id); o != nil {
			order = o
		} else {
			archive, err := e.repo.LoadOPArchive()
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

		if len(order.Consumed) > 0 {
			err := e.repo.UpdateStock(models.ItemTypeRaw, func(raw *models.StockDocument) error {
				raw.RemoveMovements(order.ConsumedMovementIds())
				return nil
			})
			if err != nil {
				return err
			}
		}
		if order.Produced != nil && order.Produced.MovementId != "" {
			err := e.repo.UpdateStock(models.ItemTypeFinished, func(fg *models.StockDocument) error {
				fg.RemoveMovements([]string{order.Produced.MovementId})
				return nil
			})
			if err != nil {
				return err
			}
		}

		if order.LinkedPurchaseOrderId != "" {
			if oc := doc.FindPurchaseOrder(order.LinkedPurchaseOrderId); oc != nil {
				oc.LinkedProductionOrderId = ""
			}
		}

		if fromArchive {
			return e.repo.UpdateOPArchive(func(archive *models.ProductionOrderArchive) error {
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
		kept := doc.ProductionOrders[:0]
		for _, o := range doc.ProductionOrders {
			if o.ID != id {
				kept = append(kept, o)
			}
		}
		doc.ProductionOrders = kept
		return nil
	})
}
