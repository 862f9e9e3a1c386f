package workflow

import (
	"errors"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
)

// ArchiveOrder moves a terminal order from the active collection into its
// archive, stamping archivedAt. A linked counterpart order is unlinked
// best-effort; numbering keeps scanning the archive so the number stays
// taken.
func (e *Engine) ArchiveOrder(kind models.OrderKind, id string) error {
	switch kind {
	case models.OrderKindProduction:
		return e.archiveProductionOrder(id)
	case models.OrderKindPurchase:
		return e.archivePurchaseOrder(id)
	}
	return errors.New("unknown order kind")
}

// RestoreOrder moves an archived order back into the active collection and
// relinks its counterpart when that still exists.
func (e *Engine) RestoreOrder(kind models.OrderKind, id string) error {
	switch kind {
	case models.OrderKindProduction:
		return e.restoreProductionOrder(id)
	case models.OrderKindPurchase:
		return e.restorePurchaseOrder(id)
	}
	return errors.New("unknown order kind")
}

// DeleteOrder permanently removes an order of either kind, active or
// archived, reversing any posted movements.
func (e *Engine) DeleteOrder(kind models.OrderKind, id string) error {
	switch kind {
	case models.OrderKindProduction:
		return e.DeleteProductionOrder(id)
	case models.OrderKindPurchase:
		return e.DeletePurchaseOrder(id)
	}
	return errors.New("unknown order kind")
}

func (e *Engine) archiveProductionOrder(id string) error {
	authorized := map[string]bool{models.TrackedProductionOrders: true}
	return e.repo.UpdateMRP(authorized, func(doc *models.MRPDocument) error {
		order := doc.FindProductionOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if !order.Status.Terminal() {
			return &models.InvalidTransitionError{From: order.Status, To: "ARCHIVED"}
		}

		now := e.now()
		cp := *order
		cp.ArchivedAt = &now

		// Unlink the counterpart; the link is restored on un-archival when
		// both sides still exist.
		if cp.LinkedPurchaseOrderId != "" {
			if oc := doc.FindPurchaseOrder(cp.LinkedPurchaseOrderId); oc != nil {
				oc.LinkedProductionOrderId = ""
			}
		}

		if err := e.repo.UpdateOPArchive(func(archive *models.ProductionOrderArchive) error {
			archive.Orders = append(archive.Orders, cp)
			return nil
		}); err != nil {
			return err
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

func (e *Engine) restoreProductionOrder(id string) error {
	return e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		var restored *models.ProductionOrder
		err := e.repo.UpdateOPArchive(func(archive *models.ProductionOrderArchive) error {
			kept := archive.Orders[:0]
			for _, o := range archive.Orders {
				if o.ID == id {
					cp := o
					restored = &cp
					continue
				}
				kept = append(kept, o)
			}
			if restored == nil {
				return utils.ErrorRecordNotFound
			}
			archive.Orders = kept
			return nil
		})
		if err != nil {
			return err
		}
		restored.ArchivedAt = nil
		if restored.LinkedPurchaseOrderId != "" {
			if oc := doc.FindPurchaseOrder(restored.LinkedPurchaseOrderId); oc != nil {
				oc.LinkedProductionOrderId = restored.ID
			} else {
				restored.LinkedPurchaseOrderId = ""
			}
		}
		doc.ProductionOrders = append(doc.ProductionOrders, *restored)
		return nil
	})
}

func (e *Engine) archivePurchaseOrder(id string) error {
	authorized := map[string]bool{models.TrackedPurchaseOrders: true}
	return e.repo.UpdateMRP(authorized, func(doc *models.MRPDocument) error {
		order := doc.FindPurchaseOrder(id)
		if order == nil {
			return utils.ErrorRecordNotFound
		}
		if !order.Status.Terminal() {
			return errors.New("only received or cancelled purchase orders can be archived")
		}

		now := e.now()
		cp := *order
		cp.ArchivedAt = &now

		if cp.LinkedProductionOrderId != "" {
			if op := doc.FindProductionOrder(cp.LinkedProductionOrderId); op != nil {
				op.LinkedPurchaseOrderId = ""
			}
		}

		if err := e.repo.UpdateOCArchive(func(archive *models.PurchaseOrderArchive) error {
			archive.Orders = append(archive.Orders, cp)
			return nil
		}); err != nil {
			return err
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

func (e *Engine) restorePurchaseOrder(id string) error {
	return e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		var restored *models.PurchaseOrder
		err := e.repo.UpdateOCArchive(func(archive *models.PurchaseOrderArchive) error {
			kept := archive.Orders[:0]
			for _, o := range archive.Orders {
				if o.ID == id {
					cp := o
					restored = &cp
					continue
				}
				kept = append(kept, o)
			}
			if restored == nil {
				return utils.ErrorRecordNotFound
			}
			archive.Orders = kept
			return nil
		})
		if err != nil {
			return err
		}
		restored.ArchivedAt = nil
		if restored.LinkedProductionOrderId != "" {
			if op := doc.FindProductionOrder(restored.LinkedProductionOrderId); op != nil {
				op.LinkedPurchaseOrderId = restored.ID
			} else {
				restored.LinkedProductionOrderId = ""
			}
		}
		doc.PurchaseOrders = append(doc.PurchaseOrders, *restored)
		return nil
	})
}
