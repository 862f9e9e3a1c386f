package workflow

import (
	"fmt"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// requirement is one BOM line scaled to a production factor: net is the
// theoretical need, gross the net grown by the item's expected preparation
// loss. Both are quantized to the consuming item's unit.
type requirement struct {
	Item        models.Item
	RequiredNet decimal.Decimal
	Required    decimal.Decimal
}

// computeRequirements scales the recipe's BOM by factor against the raw stock
// document, returning the gross requirement per line and the shortages
// against the current (quantized) stock.
func computeRequirements(recipe *models.Recipe, factor decimal.Decimal, raw *models.StockDocument) ([]requirement, []models.Shortage, error) {
	stock := ComputeStock(raw)
	reqs := make([]requirement, 0, len(recipe.BOM))
	shortages := make([]models.Shortage, 0)

	for _, line := range recipe.BOM {
		item := raw.FindItem(line.ItemId)
		if item == nil {
			return nil, nil, fmt.Errorf("recipe %s references unknown item %s", recipe.ID, line.ItemId)
		}
		net := line.Qty.Mul(factor)
		grossFactor := decimal.NewFromInt(1).Add(item.LossPercent.Div(hundred))
		gross := models.Quantize(net.Mul(grossFactor), item.Unit)
		net = models.Quantize(net, item.Unit)

		reqs = append(reqs, requirement{Item: *item, RequiredNet: net, Required: gross})

		available := models.Quantize(stock[item.ID], item.Unit)
		if gross.GreaterThan(available) {
			shortages = append(shortages, models.Shortage{
				ItemId:      item.ID,
				ItemName:    item.Name,
				Unit:        item.Unit,
				RequiredNet: net,
				Required:    gross,
				Available:   available,
				Missing:     gross.Sub(available),
			})
		}
	}
	return reqs, shortages, nil
}

func plannedFromRequirements(reqs []requirement) []models.QuantityLine {
	planned := make([]models.QuantityLine, 0, len(reqs))
	for _, r := range reqs {
		planned = append(planned, models.QuantityLine{ItemId: r.Item.ID, Qty: r.Required})
	}
	return planned
}
