package workflow

import (
	"errors"
	"fmt"
	"strings"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/utils"
	"github.com/shopspring/decimal"
)

// CreateRecipe stores a recipe. Its output must be a finished-good item; one
// is auto-created (named after the recipe) when none exists yet.
func (e *Engine) CreateRecipe(input *models.NewRecipe) (*models.Recipe, error) {
	if len(input.BOM) == 0 {
		return nil, errors.New("bom cannot be empty")
	}

	var created *models.Recipe
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		raw, err := e.repo.LoadStock(models.ItemTypeRaw)
		if err != nil {
			return err
		}
		bom := make([]models.BOMLine, 0, len(input.BOM))
		for _, l := range input.BOM {
			if raw.FindItem(l.ItemId) == nil {
				return fmt.Errorf("bom item %s: %w", l.ItemId, utils.ErrorRecordNotFound)
			}
			if !l.Qty.IsPositive() {
				return errors.New("bom quantities must be positive")
			}
			bom = append(bom, models.BOMLine{ItemId: l.ItemId, Qty: l.Qty, Pos: l.Pos, FC: l.FC})
		}

		outputId, err := e.ensureOutputItem(strings.TrimSpace(input.Name), input.YieldUnit, input.SalePrice)
		if err != nil {
			return err
		}

		now := e.now()
		recipe := models.Recipe{
			ID:           e.newID(),
			Name:         strings.TrimSpace(input.Name),
			ProductId:    outputId,
			OutputItemId: outputId,
			YieldQty:     input.YieldQty,
			YieldUnit:    input.YieldUnit,
			BOM:          bom,
			Notes:        input.Notes,
			Method:       input.Method,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		doc.Recipes = append(doc.Recipes, recipe)
		created = &recipe
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// ensureOutputItem finds a finished-good item by name or creates it.
func (e *Engine) ensureOutputItem(name, unit string, salePrice decimal.Decimal) (string, error) {
	fg, err := e.repo.LoadStock(models.ItemTypeFinished)
	if err != nil {
		return "", err
	}
	for _, it := range fg.Items {
		if strings.EqualFold(it.Name, name) {
			return it.ID, nil
		}
	}
	input := &models.NewItem{Name: name, Unit: unit, SalePrice: salePrice}
	created, err := e.CreateItem(models.ItemTypeFinished, input)
	if err != nil {
		return "", err
	}
	return created.ID, nil
}

func (e *Engine) UpdateRecipe(id string, input *models.NewRecipe) (*models.Recipe, error) {
	if len(input.BOM) == 0 {
		return nil, errors.New("bom cannot be empty")
	}
	var updated *models.Recipe
	err := e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		recipe := doc.FindRecipe(id)
		if recipe == nil {
			return utils.ErrorRecordNotFound
		}
		raw, err := e.repo.LoadStock(models.ItemTypeRaw)
		if err != nil {
			return err
		}
		bom := make([]models.BOMLine, 0, len(input.BOM))
		for _, l := range input.BOM {
			if raw.FindItem(l.ItemId) == nil {
				return fmt.Errorf("bom item %s: %w", l.ItemId, utils.ErrorRecordNotFound)
			}
			if !l.Qty.IsPositive() {
				return errors.New("bom quantities must be positive")
			}
			bom = append(bom, models.BOMLine{ItemId: l.ItemId, Qty: l.Qty, Pos: l.Pos, FC: l.FC})
		}
		if strings.TrimSpace(input.Name) != "" {
			recipe.Name = strings.TrimSpace(input.Name)
		}
		recipe.YieldQty = input.YieldQty
		recipe.YieldUnit = input.YieldUnit
		recipe.BOM = bom
		recipe.Notes = input.Notes
		recipe.Method = input.Method
		recipe.UpdatedAt = e.now()
		cp := *recipe
		updated = &cp
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteRecipe refuses while production orders still reference the recipe,
// unless forced, in which case only non-terminal references block.
func (e *Engine) DeleteRecipe(id string, force bool) error {
	return e.repo.UpdateMRP(nil, func(doc *models.MRPDocument) error {
		if doc.FindRecipe(id) == nil {
			return utils.ErrorRecordNotFound
		}
		refs := make([]string, 0)
		for _, o := range doc.ProductionOrders {
			if o.RecipeId != id {
				continue
			}
			if !force || !o.Status.Terminal() {
				refs = append(refs, "production_order:"+o.ID)
			}
		}
		if len(refs) > 0 {
			return &models.ReferencedError{Entity: "recipe", ID: id, Refs: refs}
		}
		kept := doc.Recipes[:0]
		for _, r := range doc.Recipes {
			if r.ID != id {
				kept = append(kept, r)
			}
		}
		doc.Recipes = kept
		return nil
	})
}

func (e *Engine) ListRecipes() ([]models.Recipe, error) {
	doc, err := e.repo.LoadMRP()
	if err != nil {
		return nil, err
	}
	return doc.Recipes, nil
}
