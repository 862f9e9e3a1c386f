package workflow_test

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"github.com/shopspring/decimal"
)

func TestCreateProductionOrderFailsOnShortage(t *testing.T) {
	e := newTestEngine(t)
	recipe, _ := breadRecipe(t, e)

	_, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	var short *models.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("error = %v, want InsufficientStockError", err)
	}
	if len(short.Shortages) != 1 {
		t.Fatalf("shortages = %d, want 1", len(short.Shortages))
	}
	s := short.Shortages[0]
	// 100 kg net grown by the 10% preparation loss.
	if !s.RequiredNet.Equal(dec("100")) || !s.Required.Equal(dec("110")) {
		t.Fatalf("net = %s gross = %s, want 100 / 110", s.RequiredNet, s.Required)
	}
	if !s.Missing.Equal(dec("110")) {
		t.Fatalf("missing = %s, want 110", s.Missing)
	}
}

func TestShortageOrderSpawnsLinkedPurchaseOrder(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "30")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:            recipe.ID,
		QtyToProduce:        decimal.NewFromInt(1),
		AllowShortages:      true,
		CreatePurchaseOrder: true,
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}
	if op.Status != models.ProductionOrderIssued {
		t.Fatalf("status = %s, want ISSUED", op.Status)
	}
	if op.LinkedPurchaseOrderId == "" {
		t.Fatal("no linked purchase order")
	}

	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	oc := doc.FindPurchaseOrder(op.LinkedPurchaseOrderId)
	if oc == nil {
		t.Fatal("linked purchase order not persisted")
	}
	if oc.LinkedProductionOrderId != op.ID {
		t.Fatal("purchase order not linked back")
	}
	if len(oc.Items) != 1 || !oc.Items[0].QtyOrdered.Equal(dec("80")) {
		t.Fatalf("purchase lines = %+v, want one line of 80 (110 gross - 30 on hand)", oc.Items)
	}
}

func TestProductionLifecycleMovesStock(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}
	if op.Number != 1 {
		t.Fatalf("number = %d, want 1", op.Number)
	}

	op, err = e.TransitionProductionOrder(op.ID, models.ProductionOrderInProduction)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if op.Status != models.ProductionOrderInProduction || op.StartedAt == nil {
		t.Fatalf("after start: status = %s, started = %v", op.Status, op.StartedAt)
	}
	if len(op.Consumed) != 1 || !op.Consumed[0].Qty.Equal(dec("110")) {
		t.Fatalf("consumed = %+v", op.Consumed)
	}
	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.IsZero() {
		t.Fatalf("raw stock = %s, want 0", got)
	}

	op, err = e.TransitionProductionOrder(op.ID, models.ProductionOrderClosed)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if op.Status != models.ProductionOrderClosed || op.Produced == nil {
		t.Fatalf("after close: %+v", op)
	}
	if got := stockOf(t, e, models.ItemTypeFinished, recipe.OutputItemId); !got.Equal(dec("1")) {
		t.Fatalf("fg stock = %s, want 1", got)
	}

	if op.LotNumber != 1 || op.LotCode != "000001" {
		t.Fatalf("lot = %d %q, want 1 000001", op.LotNumber, op.LotCode)
	}
	if op.BarcodeValue != "PF001000001" {
		t.Fatalf("barcode = %q, want PF001000001", op.BarcodeValue)
	}
}

func TestStartRecomputesAgainstCurrentStock(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}

	// Stock drained between issue and start.
	if _, err := e.PostMovement(models.ItemTypeRaw, &models.NewMovement{
		Type: models.MovementOut, ItemId: flour.ID, Qty: dec("50"),
	}, "tester"); err != nil {
		t.Fatalf("drain: %v", err)
	}

	_, err = e.TransitionProductionOrder(op.ID, models.ProductionOrderInProduction)
	var short *models.InsufficientStockError
	if !errors.As(err, &short) {
		t.Fatalf("start error = %v, want InsufficientStockError", err)
	}

	// Failed start leaves the order ISSUED with no consumption.
	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	got := doc.FindProductionOrder(op.ID)
	if got.Status != models.ProductionOrderIssued || len(got.Consumed) != 0 {
		t.Fatalf("order after failed start: status = %s consumed = %d", got.Status, len(got.Consumed))
	}
	if stock := stockOf(t, e, models.ItemTypeRaw, flour.ID); !stock.Equal(dec("60")) {
		t.Fatalf("raw stock = %s, want 60", stock)
	}
}

func TestExecuteProductionOrderIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}

	first, err := e.ExecuteProductionOrder(op.ID)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if first.Status != models.ProductionOrderClosed {
		t.Fatalf("status = %s, want CLOSED", first.Status)
	}

	second, err := e.ExecuteProductionOrder(op.ID)
	if err != nil {
		t.Fatalf("re-execute: %v", err)
	}
	if second.LotCode != first.LotCode || second.Produced.MovementId != first.Produced.MovementId {
		t.Fatal("re-execution changed the order")
	}

	rawMoves, err := e.GetMovements(models.ItemTypeRaw, true)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(rawMoves) != 2 {
		t.Fatalf("raw movements = %d, want 2 (initial in + one consumption)", len(rawMoves))
	}
	fgMoves, err := e.GetMovements(models.ItemTypeFinished, true)
	if err != nil {
		t.Fatalf("GetMovements(fg): %v", err)
	}
	if len(fgMoves) != 1 {
		t.Fatalf("fg movements = %d, want 1", len(fgMoves))
	}
}

func TestExecuteCancelledOrderIsRejected(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}
	if _, err := e.TransitionProductionOrder(op.ID, models.ProductionOrderCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	_, err = e.ExecuteProductionOrder(op.ID)
	var final *models.FinalStatusError
	if !errors.As(err, &final) {
		t.Fatalf("execute error = %v, want FinalStatusError", err)
	}
}

func TestCancelReversesConsumptionExactly(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId:     recipe.ID,
		QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("CreateProductionOrder: %v", err)
	}
	if _, err := e.TransitionProductionOrder(op.ID, models.ProductionOrderInProduction); err != nil {
		t.Fatalf("start: %v", err)
	}

	op, err = e.TransitionProductionOrder(op.ID, models.ProductionOrderCancelled)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if op.Status != models.ProductionOrderCancelled || len(op.Consumed) != 0 || op.StartedAt != nil {
		t.Fatalf("after cancel: %+v", op)
	}

	// The consumption movement is gone, not counter-posted.
	moves, err := e.GetMovements(models.ItemTypeRaw, true)
	if err != nil {
		t.Fatalf("GetMovements: %v", err)
	}
	if len(moves) != 1 {
		t.Fatalf("raw movements = %d, want 1 (only the initial in)", len(moves))
	}
	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.Equal(dec("110")) {
		t.Fatalf("raw stock = %s, want 110", got)
	}

	// Terminal guard.
	_, err = e.TransitionProductionOrder(op.ID, models.ProductionOrderInProduction)
	var final *models.FinalStatusError
	if !errors.As(err, &final) {
		t.Fatalf("transition after cancel = %v, want FinalStatusError", err)
	}
}

func TestOrderNumbersNotReusedAcrossArchive(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "220")

	op1, err := e.CreateProductionOrder(&models.NewProductionOrder{RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create op1: %v", err)
	}
	op2, err := e.CreateProductionOrder(&models.NewProductionOrder{RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create op2: %v", err)
	}
	if op1.Number != 1 || op2.Number != 2 {
		t.Fatalf("numbers = %d, %d", op1.Number, op2.Number)
	}

	if _, err := e.ExecuteProductionOrder(op1.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := e.ArchiveOrder(models.OrderKindProduction, op1.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	op3, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1), AllowShortages: true,
	})
	if err != nil {
		t.Fatalf("create op3: %v", err)
	}
	if op3.Number != 3 {
		t.Fatalf("number after archive = %d, want 3 (archived order keeps its number)", op3.Number)
	}
}

func TestArchiveRequiresTerminalStatus(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	err = e.ArchiveOrder(models.OrderKindProduction, op.ID)
	var invalid *models.InvalidTransitionError
	if !errors.As(err, &invalid) {
		t.Fatalf("archive of ISSUED = %v, want InvalidTransitionError", err)
	}
}

func TestArchiveAndRestoreRoundTrip(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.ExecuteProductionOrder(op.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if err := e.ArchiveOrder(models.OrderKindProduction, op.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	if len(doc.ProductionOrders) != 0 {
		t.Fatalf("active orders = %d, want 0", len(doc.ProductionOrders))
	}
	archive, err := e.Repo().LoadOPArchive()
	if err != nil {
		t.Fatalf("LoadOPArchive: %v", err)
	}
	if len(archive.Orders) != 1 || archive.Orders[0].ArchivedAt == nil {
		t.Fatalf("archive = %+v", archive.Orders)
	}

	if err := e.RestoreOrder(models.OrderKindProduction, op.ID); err != nil {
		t.Fatalf("restore: %v", err)
	}
	doc, err = e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	restored := doc.FindProductionOrder(op.ID)
	if restored == nil || restored.ArchivedAt != nil {
		t.Fatalf("restored = %+v", restored)
	}
}

func TestDeleteProductionOrderReversesEverything(t *testing.T) {
	e := newTestEngine(t)
	recipe, flour := breadRecipe(t, e)
	postIn(t, e, models.ItemTypeRaw, flour.ID, "110")

	op, err := e.CreateProductionOrder(&models.NewProductionOrder{RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := e.ExecuteProductionOrder(op.ID); err != nil {
		t.Fatalf("execute: %v", err)
	}

	// Deleting the only active order is an authorized wipe of that list.
	if err := e.DeleteOrder(models.OrderKindProduction, op.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if got := stockOf(t, e, models.ItemTypeRaw, flour.ID); !got.Equal(dec("110")) {
		t.Fatalf("raw stock = %s, want 110 (consumption reversed)", got)
	}
	if got := stockOf(t, e, models.ItemTypeFinished, recipe.OutputItemId); !got.IsZero() {
		t.Fatalf("fg stock = %s, want 0 (output reversed)", got)
	}
	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	if len(doc.ProductionOrders) != 0 {
		t.Fatalf("orders = %d, want 0", len(doc.ProductionOrders))
	}

	// The freed number stays below the floor.
	next, err := e.CreateProductionOrder(&models.NewProductionOrder{
		RecipeId: recipe.ID, QtyToProduce: decimal.NewFromInt(1),
	})
	if err != nil {
		t.Fatalf("create after delete: %v", err)
	}
	if next.Number != 2 {
		t.Fatalf("number = %d, want 2", next.Number)
	}
}

func TestBackfillAssignsNumbersByCreationOrder(t *testing.T) {
	e := newTestEngine(t)
	recipe, _ := breadRecipe(t, e)

	older := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 0, 5)
	err := e.Repo().UpdateMRP(nil, func(doc *models.MRPDocument) error {
		doc.ProductionOrders = append(doc.ProductionOrders,
			models.ProductionOrder{ID: "op-new", RecipeId: recipe.ID, Status: models.ProductionOrderIssued, CreatedAt: newer},
			models.ProductionOrder{ID: "op-old", RecipeId: recipe.ID, Status: models.ProductionOrderIssued, CreatedAt: older},
		)
		doc.PurchaseOrders = append(doc.PurchaseOrders,
			models.PurchaseOrder{ID: "oc-legacy", Status: models.PurchaseOrderOpen, CreatedAt: older},
		)
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	n, err := e.BackfillOrderNumbers()
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if n != 3 {
		t.Fatalf("assigned = %d, want 3", n)
	}

	doc, err := e.Repo().LoadMRP()
	if err != nil {
		t.Fatalf("LoadMRP: %v", err)
	}
	if got := doc.FindProductionOrder("op-old").Number; got != 1 {
		t.Fatalf("older order number = %d, want 1", got)
	}
	if got := doc.FindProductionOrder("op-new").Number; got != 2 {
		t.Fatalf("newer order number = %d, want 2", got)
	}
	if got := doc.FindPurchaseOrder("oc-legacy").Number; got != 1 {
		t.Fatalf("purchase order number = %d, want 1", got)
	}

	// Second run is a no-op.
	n, err = e.BackfillOrderNumbers()
	if err != nil {
		t.Fatalf("backfill again: %v", err)
	}
	if n != 0 {
		t.Fatalf("second run assigned = %d, want 0", n)
	}
}
