package models

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// InsufficientStockError carries the per-line shortages so the caller can
// show exactly what is missing.
type InsufficientStockError struct {
	Shortages []Shortage
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient_stock: %d item(s) short", len(e.Shortages))
}

type InvalidTransitionError struct {
	From ProductionOrderStatus
	To   ProductionOrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid_transition: %s -> %s", e.From, e.To)
}

// FinalStatusError rejects any mutation of an order already in a terminal
// state.
type FinalStatusError struct {
	Status string
}

func (e *FinalStatusError) Error() string {
	return fmt.Sprintf("final_status: order is %s", e.Status)
}

// AdjustedBelowReceivedError rejects shrinking a purchase-order line's final
// target below what was already physically received.
type AdjustedBelowReceivedError struct {
	ItemId      string
	FinalTarget decimal.Decimal
	Received    decimal.Decimal
}

func (e *AdjustedBelowReceivedError) Error() string {
	return fmt.Sprintf("adjusted_below_received: item %s target %s < received %s",
		e.ItemId, e.FinalTarget, e.Received)
}

// ReferencedError refuses a delete while live references exist, unless the
// caller forces it.
type ReferencedError struct {
	Entity string
	ID     string
	Refs   []string
}

func (e *ReferencedError) Error() string {
	return fmt.Sprintf("referenced: %s %s is referenced by %v", e.Entity, e.ID, e.Refs)
}
