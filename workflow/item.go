package workflow

import (
	"errors"
	"strings"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
)

// CreateItem adds an item to the stock document of the given type, assigning
// the next gap-filled MPnnn/PFnnn code.
func (e *Engine) CreateItem(t models.ItemType, input *models.NewItem) (*models.Item, error) {
	if !t.Valid() {
		return nil, errors.New("invalid item type")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, errors.New("name is required")
	}

	var created *models.Item
	err := e.repo.UpdateStock(t, func(doc *models.StockDocument) error {
		codes := make([]string, 0, len(doc.Items))
		for _, it := range doc.Items {
			codes = append(codes, it.Code)
		}
		n := nextNumber(usedCodeNumbers(codes, t.CodePrefix()), &doc.CodeNumberNext)

		item := models.Item{
			ID:        e.newID(),
			Code:      formatCode(t.CodePrefix(), n),
			Name:      strings.TrimSpace(input.Name),
			Unit:      input.Unit,
			MinStock:  input.MinStock,
			Cost:      input.Cost,
			Type:      t,
			CreatedAt: e.now(),
		}
		if t == models.ItemTypeRaw {
			item.LossPercent = input.LossPercent
			item.CookFactor = input.CookFactor
		} else {
			item.SalePrice = input.SalePrice
		}
		doc.Items = append(doc.Items, item)
		created = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (e *Engine) UpdateItem(t models.ItemType, id string, input *models.NewItem) (*models.Item, error) {
	var updated *models.Item
	err := e.repo.UpdateStock(t, func(doc *models.StockDocument) error {
		item := doc.FindItem(id)
		if item == nil {
			return utils.ErrorRecordNotFound
		}
		if strings.TrimSpace(input.Name) != "" {
			item.Name = strings.TrimSpace(input.Name)
		}
		if input.Unit != "" {
			item.Unit = input.Unit
		}
		item.MinStock = input.MinStock
		item.Cost = input.Cost
		if t == models.ItemTypeRaw {
			item.LossPercent = input.LossPercent
			item.CookFactor = input.CookFactor
		} else {
			item.SalePrice = input.SalePrice
		}
		cp := *item
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteItem removes an item. Live references (BOM lines, recipe outputs,
// movements) block the delete unless force is set, in which case the
// dependent references are pruned rather than left dangling.
//
// Lock order: mrp before stock.
func (e *Engine) DeleteItem(t models.ItemType, id string, force bool) error {
	return e.repo.UpdateMRP(nil, func(mrp *models.MRPDocument) error {
		refs := make([]string, 0)
		survivors := 0
		for i := range mrp.Recipes {
			r := &mrp.Recipes[i]
			if r.OutputItemId == id {
				refs = append(refs, "recipe:"+r.ID+":output")
				continue
			}
			kept, referenced := 0, false
			for _, line := range r.BOM {
				if line.ItemId == id {
					referenced = true
				} else {
					kept++
				}
			}
			if referenced {
				refs = append(refs, "recipe:"+r.ID)
			}
			if kept > 0 {
				survivors++
			}
		}
		// A force prune that would remove every recipe is refused outright;
		// the recipe list never passes through empty.
		if force && len(mrp.Recipes) > 0 && survivors == 0 {
			return &models.ReferencedError{Entity: "item", ID: id, Refs: refs}
		}

		return e.repo.UpdateStock(t, func(doc *models.StockDocument) error {
			item := doc.FindItem(id)
			if item == nil {
				return utils.ErrorRecordNotFound
			}
			movementRefs := 0
			for _, m := range doc.Movements {
				if m.ItemId == id {
					movementRefs++
				}
			}
			if (len(refs) > 0 || movementRefs > 0) && !force {
				if movementRefs > 0 {
					refs = append(refs, "movements")
				}
				return &models.ReferencedError{Entity: "item", ID: id, Refs: refs}
			}

			if force {
				// Prune dependent references instead of leaving them
				// dangling. A recipe producing this item is removed wholly;
				// a recipe merely consuming it loses that BOM line, and a
				// recipe whose BOM would thereby become empty is removed too
				// since it could otherwise manufacture output from nothing.
				recipes := mrp.Recipes[:0]
				for _, r := range mrp.Recipes {
					if r.OutputItemId == id {
						continue
					}
					bom := r.BOM[:0]
					for _, line := range r.BOM {
						if line.ItemId != id {
							bom = append(bom, line)
						}
					}
					if len(bom) == 0 {
						continue
					}
					r.BOM = bom
					recipes = append(recipes, r)
				}
				mrp.Recipes = recipes

				movements := doc.Movements[:0]
				for _, m := range doc.Movements {
					if m.ItemId != id {
						movements = append(movements, m)
					}
				}
				doc.Movements = movements
			}

			items := doc.Items[:0]
			for _, it := range doc.Items {
				if it.ID != id {
					items = append(items, it)
				}
			}
			doc.Items = items
			return nil
		})
	})
}
