package workflow_test

import (
	"errors"
	"testing"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/workflow"
)

func openPurchaseOrder(t *testing.T, e *workflow.Engine, lines ...models.NewPurchaseOrderLine) *models.PurchaseOrder {
	t.Helper()
	oc, err := e.CreatePurchaseOrder(&models.NewPurchaseOrder{Items: lines})
	if err != nil {
		t.Fatalf("CreatePurchaseOrder: %v", err)
	}
	return oc
}

func TestPurchaseOrderStatusDerivedFromReceipts(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	oc := openPurchaseOrder(t, e, models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")})
	if oc.Status != models.PurchaseOrderOpen || oc.Number != 1 {
		t.Fatalf("created: %+v", oc)
	}

	oc, err := e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("4")}},
	})
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	if oc.Status != models.PurchaseOrderPartial {
		t.Fatalf("status = %s, want PARTIAL", oc.Status)
	}
	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.Equal(dec("4")) {
		t.Fatalf("stock = %s, want 4", got)
	}

	oc, err = e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("6")}},
	})
	if err != nil {
		t.Fatalf("receive rest: %v", err)
	}
	if oc.Status != models.PurchaseOrderReceived {
		t.Fatalf("status = %s, want RECEIVED", oc.Status)
	}
	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.Equal(dec("10")) {
		t.Fatalf("stock = %s, want 10", got)
	}
	if len(oc.Receipts) != 2 {
		t.Fatalf("receipts = %d, want 2", len(oc.Receipts))
	}
}

func TestAdjustBelowReceivedIsRejected(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	oc := openPurchaseOrder(t, e, models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")})

	if _, err := e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("4")}},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	// Target 10-7=3 would undercut the 4 already received.
	_, err := e.AdjustPurchaseOrder(oc.ID, []models.PurchaseOrderAdjustment{
		{ItemId: flour.ID, QtyAdjusted: dec("-7")},
	})
	var below *models.AdjustedBelowReceivedError
	if !errors.As(err, &below) {
		t.Fatalf("adjust error = %v, want AdjustedBelowReceivedError", err)
	}

	// Shrinking to exactly the received quantity is fine and completes the
	// order.
	adjusted, err := e.AdjustPurchaseOrder(oc.ID, []models.PurchaseOrderAdjustment{
		{ItemId: flour.ID, QtyAdjusted: dec("-6")},
	})
	if err != nil {
		t.Fatalf("adjust to received: %v", err)
	}
	if adjusted.Status != models.PurchaseOrderReceived {
		t.Fatalf("status = %s, want RECEIVED", adjusted.Status)
	}
}

func TestReceiveFinalizeClosesOutLines(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	sugar := createRawItem(t, e, "Sugar", "kg", "0")
	oc := openPurchaseOrder(t, e,
		models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")},
		models.NewPurchaseOrderLine{ItemId: sugar.ID, QtyOrdered: dec("5")},
	)

	oc, err := e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines:    []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("4")}},
		Finalize: true,
	})
	if err != nil {
		t.Fatalf("receive finalize: %v", err)
	}
	if oc.Status != models.PurchaseOrderReceived {
		t.Fatalf("status = %s, want RECEIVED", oc.Status)
	}
	if len(oc.Items) != 1 {
		t.Fatalf("lines = %d, want 1 (untouched line dropped)", len(oc.Items))
	}
	line := oc.Items[0]
	if !line.FinalTarget().Equal(dec("4")) || !line.QtyAdjusted.Equal(dec("-6")) {
		t.Fatalf("line = %+v, want final target 4 via adjustment -6", line)
	}
}

func TestCancelledPurchaseOrderRejectsMutations(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	oc := openPurchaseOrder(t, e, models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")})

	if _, err := e.CancelPurchaseOrder(oc.ID); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	var final *models.FinalStatusError
	if _, err := e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("1")}},
	}); !errors.As(err, &final) {
		t.Fatalf("receive after cancel = %v, want FinalStatusError", err)
	}
	if _, err := e.AdjustPurchaseOrder(oc.ID, []models.PurchaseOrderAdjustment{
		{ItemId: flour.ID, QtyAdjusted: dec("1")},
	}); !errors.As(err, &final) {
		t.Fatalf("adjust after cancel = %v, want FinalStatusError", err)
	}
	if _, err := e.CancelPurchaseOrder(oc.ID); !errors.As(err, &final) {
		t.Fatalf("double cancel = %v, want FinalStatusError", err)
	}
}

func TestDeletePurchaseOrderReversesReceipts(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	oc := openPurchaseOrder(t, e, models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")})

	if _, err := e.ReceivePurchaseOrder(oc.ID, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("4")}},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	if err := e.DeleteOrder(models.OrderKindPurchase, oc.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.IsZero() {
		t.Fatalf("stock = %s, want 0 (receipt movement removed)", got)
	}
	moves, err := e.GetMovements(models.ItemTypeRaw, true)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(moves) != 0 {
		t.Fatalf("movements = %d, want 0", len(moves))
	}
}

func TestCreatePurchaseOrderDropsZeroLines(t *testing.T) {
	e := newTestEngine(t)
	flour := createRawItem(t, e, "Flour", "kg", "0")
	eggs := createRawItem(t, e, "Eggs", models.UnitEach, "0")

	oc := openPurchaseOrder(t, e,
		models.NewPurchaseOrderLine{ItemId: flour.ID, QtyOrdered: dec("10")},
		models.NewPurchaseOrderLine{ItemId: eggs.ID, QtyOrdered: dec("0.4")}, // rounds to 0 in "un"
	)
	if len(oc.Items) != 1 || oc.Items[0].ItemId != flour.ID {
		t.Fatalf("lines = %+v, want only the flour line", oc.Items)
	}

	if _, err := e.CreatePurchaseOrder(&models.NewPurchaseOrder{
		Items: []models.NewPurchaseOrderLine{{ItemId: eggs.ID, QtyOrdered: dec("0.4")}},
	}); err == nil {
		t.Fatal("expected error when every line quantizes to zero")
	}
}

func TestReceiveUpdatesLinkedProductionShortages(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "30")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:            recipe.ID,
		QtyToProduce:        dec("1"),
		AllowShortages:      true,
		CreatePurchaseOrder: true,
	})
	if err != nil {
		t.Fatalf("create op: %v", err)
	}

	if _, err := e.ReceivePurchaseOrder(op.LinkedPurchaseOrderId, &models.ReceiveInput{
		Lines: []models.ReceiveLine{{ItemId: flour.ID, Qty: dec("80")}},
	}); err != nil {
		t.Fatalf("receive: %v", err)
	}

	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	got := doc.FindProductionOrder(op.ID)
	if len(got.Shortages) != 0 {
		t.Fatalf("shortages after receipt = %+v, want none", got.Shortages)
	}
	if got.Status != models.ProductionOrderIssued {
		t.Fatalf("status = %s, want ISSUED (receipt never auto-advances the order)", got.Status)
	}
}

func TestPurchaseOrderTotalWeighsFinalTargets(t *testing.T) {
	raw := &models.StockDocument{Items: []models.Item{
		{ID: "flour", Unit: "kg", Cost: dec("2")},
		{ID: "sugar", Unit: "kg", Cost: dec("3")},
	}}
	oc := &models.PurchaseOrder{Items: []models.PurchaseOrderLine{
		{ItemId: "flour", QtyOrdered: dec("10"), QtyAdjusted: dec("-2")},
		{ItemId: "sugar", QtyOrdered: dec("4")},
		{ItemId: "gone", QtyOrdered: dec("5")},
	}}

	// 8 kg at 2 plus 4 kg at 3; the line for a no-longer-known item adds
	// nothing.
	if got := workflow.PurchaseOrderTotal(oc, raw); !got.Equal(dec("28")) {
		t.Fatalf("total = %s, want 28", got)
	}
}
