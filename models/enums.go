package models

import "errors"

type ItemType string

const (
	ItemTypeRaw      ItemType = "raw"
	ItemTypeFinished ItemType = "fg"
)

// CodePrefix is the item code prefix per type (MP001.., PF001..).
func (t ItemType) CodePrefix() string {
	if t == ItemTypeFinished {
		return "PF"
	}
	return "MP"
}

func (t ItemType) Valid() bool {
	return t == ItemTypeRaw || t == ItemTypeFinished
}

type MovementType string

const (
	MovementIn     MovementType = "in"
	MovementOut    MovementType = "out"
	MovementAdjust MovementType = "adjust"
)

func (t MovementType) Valid() bool {
	return t == MovementIn || t == MovementOut || t == MovementAdjust
}

// UnitEach is the discrete unit of measure; quantities in it carry no
// decimal places. Every other unit carries three.
const UnitEach = "un"

type ProductionOrderStatus string

const (
	ProductionOrderIssued       ProductionOrderStatus = "ISSUED"
	ProductionOrderInProduction ProductionOrderStatus = "IN_PRODUCTION"
	ProductionOrderClosed       ProductionOrderStatus = "CLOSED"
	ProductionOrderCancelled    ProductionOrderStatus = "CANCELLED"
)

// NormalizeProductionOrderStatus maps legacy statuses onto the current set.
func NormalizeProductionOrderStatus(s string) (ProductionOrderStatus, error) {
	switch ProductionOrderStatus(s) {
	case ProductionOrderIssued, ProductionOrderInProduction,
		ProductionOrderClosed, ProductionOrderCancelled:
		return ProductionOrderStatus(s), nil
	}
	switch s {
	case "HOLD", "READY", "":
		return ProductionOrderIssued, nil
	case "EXECUTED":
		return ProductionOrderClosed, nil
	}
	return "", errors.New("unknown production order status: " + s)
}

// Terminal statuses are immutable; no transition leaves them.
func (s ProductionOrderStatus) Terminal() bool {
	return s == ProductionOrderClosed || s == ProductionOrderCancelled
}

type PurchaseOrderStatus string

const (
	PurchaseOrderOpen      PurchaseOrderStatus = "OPEN"
	PurchaseOrderPartial   PurchaseOrderStatus = "PARTIAL"
	PurchaseOrderReceived  PurchaseOrderStatus = "RECEIVED"
	PurchaseOrderCancelled PurchaseOrderStatus = "CANCELLED"
)

func (s PurchaseOrderStatus) Terminal() bool {
	return s == PurchaseOrderReceived || s == PurchaseOrderCancelled
}

type SalesOrderSeries string

const (
	SalesSeriesPoint SalesOrderSeries = "PV"
	SalesSeriesQuick SalesOrderSeries = "PVR"
)

func (s SalesOrderSeries) Valid() bool {
	return s == SalesSeriesPoint || s == SalesSeriesQuick
}

type SalesOrderType string

const (
	SalesOrderPoint SalesOrderType = "POINT"
	SalesOrderQuick SalesOrderType = "QUICK"
)

type SalesOrderStatus string

const (
	SalesOrderOpen       SalesOrderStatus = "OPEN"
	SalesOrderDispatched SalesOrderStatus = "DISPATCHED"
	SalesOrderCancelled  SalesOrderStatus = "CANCELLED"
)

type OrderKind string

const (
	OrderKindProduction OrderKind = "op"
	OrderKindPurchase   OrderKind = "oc"
)
