package workflow

import (
	"fmt"
	"sort"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
)

// nextNumber allocates the first number >= the persisted floor that is not in
// the used set, then advances the floor past it. The floor is monotonic:
// archival never frees a number, only deleting the holder does.
func nextNumber(used map[int]bool, floor *int) int {
	n := *floor
	if n < 1 {
		n = 1
	}
	for used[n] {
		n++
	}
	*floor = n + 1
	return n
}

// usedCode collects the numeric suffixes of item/point codes with the given
// prefix ("MP", "PF", "P").
func usedCodeNumbers(codes []string, prefix string) map[int]bool {
	used := make(map[int]bool, len(codes))
	for _, c := range codes {
		var n int
		if _, err := fmt.Sscanf(c, prefix+"%d", &n); err == nil && n > 0 {
			used[n] = true
		}
	}
	return used
}

func formatCode(prefix string, n int) string {
	return fmt.Sprintf("%s%03d", prefix, n)
}

func usedProductionOrderNumbers(active []models.ProductionOrder, archived []models.ProductionOrder) map[int]bool {
	used := make(map[int]bool)
	for _, o := range active {
		if o.Number > 0 {
			used[o.Number] = true
		}
	}
	for _, o := range archived {
		if o.Number > 0 {
			used[o.Number] = true
		}
	}
	return used
}

func usedPurchaseOrderNumbers(active []models.PurchaseOrder, archived []models.PurchaseOrder) map[int]bool {
	used := make(map[int]bool)
	for _, o := range active {
		if o.Number > 0 {
			used[o.Number] = true
		}
	}
	for _, o := range archived {
		if o.Number > 0 {
			used[o.Number] = true
		}
	}
	return used
}

func usedLotNumbers(active []models.ProductionOrder, archived []models.ProductionOrder) map[int]bool {
	used := make(map[int]bool)
	for _, o := range active {
		if o.LotNumber > 0 {
			used[o.LotNumber] = true
		}
	}
	for _, o := range archived {
		if o.LotNumber > 0 {
			used[o.LotNumber] = true
		}
	}
	return used
}

// BackfillOrderNumbers assigns numbers to legacy orders that have none,
// oldest first, and returns how many were assigned. It runs at server
// startup and via cmd/backfill-order-numbers.
func (e *Engine) BackfillOrderNumbers() (int, error) {
	assigned := 0
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		opArchive, err := e.repo.LoadOPArchive()
		if err != nil {
			return err
		}
		ocArchive, err := e.repo.LoadOCArchive()
		if err != nil {
			return err
		}
		assigned += backfillProductionNumbers(doc, opArchive.Orders)
		assigned += backfillPurchaseNumbers(doc, ocArchive.Orders)
		return nil
	})
	return assigned, err
}

func backfillProductionNumbers(doc *models.MRPDocument, archived []models.ProductionOrder) int {
	missing := make([]*models.ProductionOrder, 0)
	for i := range doc.ProductionOrders {
		if doc.ProductionOrders[i].Number <= 0 {
			missing = append(missing, &doc.ProductionOrders[i])
		}
	}
	if len(missing) == 0 {
		return 0
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].CreatedAt.Before(missing[j].CreatedAt)
	})
	used := usedProductionOrderNumbers(doc.ProductionOrders, archived)
	for _, o := range missing {
		o.Number = nextNumber(used, &doc.Meta.OpNumberNext)
		used[o.Number] = true
	}
	return len(missing)
}

func backfillPurchaseNumbers(doc *models.MRPDocument, archived []models.PurchaseOrder) int {
	missing := make([]*models.PurchaseOrder, 0)
	for i := range doc.PurchaseOrders {
		if doc.PurchaseOrders[i].Number <= 0 {
			missing = append(missing, &doc.PurchaseOrders[i])
		}
	}
	if len(missing) == 0 {
		return 0
	}
	sort.SliceStable(missing, func(i, j int) bool {
		return missing[i].CreatedAt.Before(missing[j].CreatedAt)
	})
	used := usedPurchaseOrderNumbers(doc.PurchaseOrders, archived)
	for _, o := range missing {
		o.Number = nextNumber(used, &doc.Meta.OcNumberNext)
		used[o.Number] = true
	}
	return len(missing)
}
