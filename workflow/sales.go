package workflow

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
	"github.com/shopspring/decimal"
)

// CreateSalesPoint registers a point of sale with the next gap-filled Pnnn
// code.
func (e *Engine) CreateSalesPoint(input *models.NewSalesPoint) (*models.SalesPoint, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("name is required")
	}
	var created *models.SalesPoint
	err := e.repo.UpdateSalesPoints(func(doc *models.SalesPointsDocument) error {
		codes := make([]string, 0, len(doc.Points))
		for _, p := range doc.Points {
			codes = append(codes, p.Code)
		}
		n := nextNumber(usedCodeNumbers(codes, "P"), &doc.CodeNumberNext)
		point := models.SalesPoint{
			ID:        e.newID(),
			Code:      formatCode("P", n),
			Name:      strings.TrimSpace(input.Name),
			Address:   input.Address,
			Note:      input.Note,
			CreatedAt: e.now(),
		}
		doc.Points = append(doc.Points, point)
		created = &point
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteSalesPoint removes a point that no ledger entry references. The check
// and the removal run under the sales-orders lock so a concurrent dispatch
// cannot add entries for the point in between.
func (e *Engine) DeleteSalesPoint(id string) error {
	return e.repo.WithSalesOrdersLock(func() error {
		moves, err := e.repo.LoadPointMoves()
		if err != nil {
			return err
		}
		for _, m := range moves.Moves {
			if m.PointId == id {
				return &models.ReferencedError{Entity: "sales_point", ID: id, Refs: []string{"point_moves"}}
			}
		}
		return e.repo.UpdateSalesPoints(func(doc *models.SalesPointsDocument) error {
			kept := doc.Points[:0]
			found := false
			for _, p := range doc.Points {
				if p.ID == id {
					found = true
					continue
				}
				kept = append(kept, p)
			}
			if !found {
				return utils.ErrorRecordNotFound
			}
			doc.Points = kept
			return nil
		})
	})
}

// CreateSalesOrder opens an order in its series (PV for point delivery,
// PVR for quick walk-up sales) with a per-series gap-filled number.
func (e *Engine) CreateSalesOrder(input *models.NewSalesOrder) (*models.SalesOrder, error) {
	if !input.Series.Valid() {
		return nil, errors.New("invalid sales order series")
	}
	orderType := models.SalesOrderQuick
	if input.Series == models.SalesSeriesPoint {
		orderType = models.SalesOrderPoint
		if input.PointId == "" {
			return nil, errors.New("point_id is required for PV orders")
		}
		points, err := e.repo.LoadSalesPoints()
		if err != nil {
			return nil, err
		}
		if points.FindPoint(input.PointId) == nil {
			return nil, fmt.Errorf("sales point: %w", utils.ErrorRecordNotFound)
		}
	}

	fg, err := e.repo.LoadStock(models.ItemTypeFinished)
	if err != nil {
		return nil, err
	}

	var created *models.SalesOrder
	err = e.repo.UpdateSalesOrders(func(doc *models.SalesOrdersDocument) error {
		lines := make([]models.SalesOrderLine, 0, len(input.Items))
		for _, l := range input.Items {
			item := fg.FindItem(l.ItemId)
			if item == nil {
				return fmt.Errorf("item %s: %w", l.ItemId, utils.ErrorRecordNotFound)
			}
			qty := models.Quantize(l.Qty, item.Unit)
			if !qty.IsPositive() {
				return errors.New("quantities must be positive")
			}
			lines = append(lines, models.SalesOrderLine{ItemId: l.ItemId, Qty: qty, Unit: item.Unit})
		}

		used := make(map[int]bool)
		for _, o := range doc.Orders {
			if o.Series == input.Series && o.Number > 0 {
				used[o.Number] = true
			}
		}
		floor := &doc.Meta.PvNumberNext
		if input.Series == models.SalesSeriesQuick {
			floor = &doc.Meta.PvrNumberNext
		}

		order := models.SalesOrder{
			ID:        e.newID(),
			Series:    input.Series,
			Number:    nextNumber(used, floor),
			Type:      orderType,
			Status:    models.SalesOrderOpen,
			PointId:   input.PointId,
			Items:     lines,
			CreatedAt: e.now(),
		}
		doc.Orders = append(doc.Orders, order)
		created = &order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DispatchSalesOrder posts one `out` movement per line on finished stock
// and, for point orders, a positive point-move ledger entry per line.
// Lock order: sales-orders -> stock-fg -> point-moves.
func (e *Engine) DispatchSalesOrder(id string) (*models.SalesOrder, error) {
	var result *models.SalesOrder
	err := e.repo.UpdateSalesOrders(func(doc *models.SalesOrdersDocument) error {
		order := doc.FindOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if order.Status != models.SalesOrderOpen {
			return &models.FinalStatusError{Status: string(order.Status)}
		}
		if order.Type == models.SalesOrderPoint {
			points, err := e.repo.LoadSalesPoints()
			if err != nil {
				return err
			}
			if points.FindPoint(order.PointId) == nil {
				return fmt.Errorf("sales point: %w", utils.ErrorRecordNotFound)
			}
		}

		now := e.now()
		movementIds := make([]string, 0, len(order.Items))
		err := e.repo.UpdateStock(models.ItemTypeFinished, func(fg *models.StockDocument) error {
			stock := ComputeStock(fg)
			shortages := make([]models.Shortage, 0)
			for _, l := range order.Items {
				item := fg.FindItem(l.ItemId)
				if item == nil {
					return fmt.Errorf("item %s: %w", l.ItemId, utils.ErrorRecordNotFound)
				}
				available := models.Quantize(stock[item.ID], item.Unit)
				if l.Qty.GreaterThan(available) {
					shortages = append(shortages, models.Shortage{
						ItemId:    item.ID,
						ItemName:  item.Name,
						Unit:      item.Unit,
						Required:  l.Qty,
						Available: available,
						Missing:   l.Qty.Sub(available),
					})
				}
			}
			if len(shortages) > 0 {
				return &models.InsufficientStockError{Shortages: shortages}
			}
			for _, l := range order.Items {
				m := models.Movement{
					ID:     e.newID(),
					Type:   models.MovementOut,
					ItemId: l.ItemId,
					Qty:    l.Qty,
					Reason: fmt.Sprintf("%s %d: dispatch", order.Series, order.Number),
					At:     now,
				}
				fg.Movements = append(fg.Movements, m)
				movementIds = append(movementIds, m.ID)
			}
			return nil
		})
		if err != nil {
			return err
		}

		pointMoveIds := make([]string, 0)
		if order.Type == models.SalesOrderPoint {
			err = e.repo.UpdatePointMoves(func(pm *models.PointMovesDocument) error {
				for _, l := range order.Items {
					move := models.PointMove{
						ID:      e.newID(),
						PointId: order.PointId,
						ItemId:  l.ItemId,
						Unit:    l.Unit,
						Delta:   l.Qty,
						At:      now,
						RefType: "sales_order",
						RefId:   order.ID,
					}
					pm.Moves = append(pm.Moves, move)
					pointMoveIds = append(pointMoveIds, move.ID)
				}
				return nil
			})
			if err != nil {
				return err
			}
		}

		order.Status = models.SalesOrderDispatched
		order.DispatchedAt = &now
		order.DispatchMovementIds = movementIds
		order.DispatchPointMoveIds = pointMoveIds
		cp := *order
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// CancelSalesOrder reverses a dispatched order exactly: its stock movements
// and point moves are removed by id.
func (e *Engine) CancelSalesOrder(id string) (*models.SalesOrder, error) {
	var result *models.SalesOrder
	err := e.repo.UpdateSalesOrders(func(doc *models.SalesOrdersDocument) error {
		order := doc.FindOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if order.Status == models.SalesOrderCancelled {
			return &models.FinalStatusError{Status: string(order.Status)}
		}

		if len(order.DispatchMovementIds) > 0 {
			err := e.repo.UpdateStock(models.ItemTypeFinished, func(fg *models.StockDocument) error {
				fg.RemoveMovements(order.DispatchMovementIds)
				return nil
			})
			if err != nil {
				return err
			}
		}
		if len(order.DispatchPointMoveIds) > 0 {
			err := e.repo.UpdatePointMoves(func(pm *models.PointMovesDocument) error {
				pm.RemoveMoves(order.DispatchPointMoveIds)
				return nil
			})
			if err != nil {
				return err
			}
		}

		order.Status = models.SalesOrderCancelled
		order.DispatchMovementIds = nil
		order.DispatchPointMoveIds = nil
		order.DispatchedAt = nil
		cp := *order
		result = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ArchiveSalesOrder flips the archived flag; sales orders stay in their
// document either way.
func (e *Engine) ArchiveSalesOrder(id string, archived bool) error {
	return e.repo.UpdateSalesOrders(func(doc *models.SalesOrdersDocument) error {
		order := doc.FindOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		order.Archived = archived
		return nil
	})
}

// PointStock sums the point-move ledger per (point, item).
func (e *Engine) PointStock(pointId string) (map[string]decimal.Decimal, error) {
	doc, err := e.repo.LoadPointMoves()
	if err != nil {
		return nil, err
	}
	stock := make(map[string]decimal.Decimal)
	for _, m := range doc.Moves {
		if m.PointId != pointId {
			continue
		}
		stock[m.ItemId] = models.Quantize(stock[m.ItemId].Add(m.Delta), m.Unit)
	}
	return stock, nil
}
