package models_test

import (
	"testing"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/shopspring/decimal"
)

func TestNormalizeProductionOrderStatusLegacyMapping(t *testing.T) {
	cases := []struct {
		in   string
		want models.ProductionOrderStatus
	}{
		{"ISSUED", models.ProductionOrderIssued},
		{"IN_PRODUCTION", models.ProductionOrderInProduction},
		{"CLOSED", models.ProductionOrderClosed},
		{"CANCELLED", models.ProductionOrderCancelled},
		{"HOLD", models.ProductionOrderIssued},
		{"READY", models.ProductionOrderIssued},
		{"", models.ProductionOrderIssued},
		{"EXECUTED", models.ProductionOrderClosed},
	}
	for _, c := range cases {
		got, err := models.NormalizeProductionOrderStatus(c.in)
		if err != nil {
			t.Fatalf("NormalizeProductionOrderStatus(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("NormalizeProductionOrderStatus(%q) = %s, want %s", c.in, got, c.want)
		}
	}
	if _, err := models.NormalizeProductionOrderStatus("WHATEVER"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStockDocumentNormalizeBumpsSchema(t *testing.T) {
	doc := &models.StockDocument{}
	doc.Normalize()
	if doc.Items == nil || doc.Movements == nil {
		t.Fatal("Normalize left nil slices")
	}
	if doc.CodeNumberNext != 1 {
		t.Fatalf("CodeNumberNext = %d, want 1", doc.CodeNumberNext)
	}
}

func TestRemoveMovementsDropsExactIds(t *testing.T) {
	doc := &models.StockDocument{
		Movements: []models.Movement{
			{ID: "a", Type: models.MovementIn, Qty: decimal.NewFromInt(1)},
			{ID: "b", Type: models.MovementOut, Qty: decimal.NewFromInt(2)},
			{ID: "c", Type: models.MovementIn, Qty: decimal.NewFromInt(3)},
		},
	}
	removed := doc.RemoveMovements([]string{"b", "nope"})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if len(doc.Movements) != 2 {
		t.Fatalf("movements left = %d, want 2", len(doc.Movements))
	}
	if doc.Movements[0].ID != "a" || doc.Movements[1].ID != "c" {
		t.Fatalf("wrong movements kept: %s, %s", doc.Movements[0].ID, doc.Movements[1].ID)
	}
	if doc.RemoveMovements(nil) != 0 {
		t.Fatal("RemoveMovements(nil) removed something")
	}
}

func TestPurchaseOrderLineFinalTarget(t *testing.T) {
	l := models.PurchaseOrderLine{
		QtyOrdered:  decimal.NewFromInt(10),
		QtyAdjusted: decimal.NewFromInt(-3),
	}
	if got := l.FinalTarget(); !got.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("FinalTarget = %s, want 7", got)
	}
}
