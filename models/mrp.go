package models

// MRPMeta carries the persisted numbering floors. Floors are monotonic: they
// only ever move forward, so freed numbers below the floor are still found by
// the used-set scan while the scan start keeps advancing.
type MRPMeta struct {
	OpNumberNext  int `json:"op_number_next"`
	OcNumberNext  int `json:"oc_number_next"`
	LotNumberNext int `json:"lot_number_next"`
}

// MRPDocument is the planning collection: recipe catalog plus the active
// production and purchase orders. Archived orders live in their own
// documents so this one stays small.
type MRPDocument struct {
	SchemaVersion    int               `json:"schema_version"`
	Recipes          []Recipe          `json:"recipes"`
	ProductionOrders []ProductionOrder `json:"production_orders"`
	PurchaseOrders   []PurchaseOrder   `json:"purchase_orders"`
	Meta             MRPMeta           `json:"meta"`
}

const mrpSchemaVersion = 3

// Tracked list keys guarded against accidental wipes. Recipes are not
// wipeable at all; orders only with explicit per-write authorization.
const (
	TrackedRecipes          = "recipes"
	TrackedProductionOrders = "production_orders"
	TrackedPurchaseOrders   = "purchase_orders"
)

func (d *MRPDocument) Normalize() error {
	if d.Recipes == nil {
		d.Recipes = make([]Recipe, 0)
	}
	if d.ProductionOrders == nil {
		d.ProductionOrders = make([]ProductionOrder, 0)
	}
	if d.PurchaseOrders == nil {
		d.PurchaseOrders = make([]PurchaseOrder, 0)
	}
	for i := range d.ProductionOrders {
		if err := d.ProductionOrders[i].Normalize(); err != nil {
			return err
		}
	}
	for i := range d.PurchaseOrders {
		d.PurchaseOrders[i].Normalize()
	}
	if d.Meta.OpNumberNext < 1 {
		d.Meta.OpNumberNext = 1
	}
	if d.Meta.OcNumberNext < 1 {
		d.Meta.OcNumberNext = 1
	}
	if d.Meta.LotNumberNext < 1 {
		d.Meta.LotNumberNext = 1
	}
	d.SchemaVersion = mrpSchemaVersion
	return nil
}

func (d *MRPDocument) FindRecipe(id string) *Recipe {
	for i := range d.Recipes {
		if d.Recipes[i].ID == id {
			return &d.Recipes[i]
		}
	}
	return nil
}

func (d *MRPDocument) FindProductionOrder(id string) *ProductionOrder {
	for i := range d.ProductionOrders {
		if d.ProductionOrders[i].ID == id {
			return &d.ProductionOrders[i]
		}
	}
	return nil
}

func (d *MRPDocument) FindPurchaseOrder(id string) *PurchaseOrder {
	for i := range d.PurchaseOrders {
		if d.PurchaseOrders[i].ID == id {
			return &d.PurchaseOrders[i]
		}
	}
	return nil
}

// ProductionOrderArchive holds terminal orders moved out of the active
// collection. Numbering scans both collections, so archival never frees a
// number.
type ProductionOrderArchive struct {
	SchemaVersion int               `json:"schema_version"`
	Orders        []ProductionOrder `json:"orders"`
}

func (d *ProductionOrderArchive) Normalize() error {
	if d.Orders == nil {
		d.Orders = make([]ProductionOrder, 0)
	}
	for i := range d.Orders {
		if err := d.Orders[i].Normalize(); err != nil {
			return err
		}
	}
	d.SchemaVersion = mrpSchemaVersion
	return nil
}

type PurchaseOrderArchive struct {
	SchemaVersion int             `json:"schema_version"`
	Orders        []PurchaseOrder `json:"orders"`
}

func (d *PurchaseOrderArchive) Normalize() {
	if d.Orders == nil {
		d.Orders = make([]PurchaseOrder, 0)
	}
	for i := range d.Orders {
		d.Orders[i].Normalize()
	}
	d.SchemaVersion = mrpSchemaVersion
}
