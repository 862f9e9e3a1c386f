package workflow

import (
	"encoding/json"
	"path/filepath"

	"bitbucket.org/mmdatafocus/kitchen_backend/models"
	"bitbucket.org/mmdatafocus/kitchen_backend/storage"
)

// Repository binds the typed documents to their files under the data
// directory. All mutations go through the per-path lock of the underlying
// store; the MRP document additionally passes the wipe guard on every write.
//
// Operations that touch more than one document acquire locks in a fixed
// order: mrp -> sales-orders -> sales-points -> stock-raw -> stock-fg ->
// point-moves -> archives. Every workflow in this package follows that
// order, so nested document updates cannot deadlock.
type Repository struct {
	store   *storage.DocumentStore
	guard   *storage.WipeGuard
	dataDir string
}

func NewRepository(dataDir string, store *storage.DocumentStore, guard *storage.WipeGuard) *Repository {
	return &Repository{store: store, guard: guard, dataDir: dataDir}
}

// MRPTrackedLists configures the wipe guard for the planning document:
// recipes can never be emptied, order lists only with fresh per-write
// authorization.
func MRPTrackedLists() []storage.TrackedList {
	return []storage.TrackedList{
		{Key: models.TrackedRecipes, Wipeable: false},
		{Key: models.TrackedProductionOrders, Wipeable: true},
		{Key: models.TrackedPurchaseOrders, Wipeable: true},
	}
}

func (r *Repository) path(name string) string {
	return filepath.Join(r.dataDir, name)
}

func (r *Repository) StockPath(t models.ItemType) string {
	if t == models.ItemTypeFinished {
		return r.path("stock-fg.json")
	}
	return r.path("stock-raw.json")
}

func (r *Repository) MRPPath() string         { return r.path("mrp.json") }
func (r *Repository) OPArchivePath() string   { return r.path("production-orders-archived.json") }
func (r *Repository) OCArchivePath() string   { return r.path("purchase-orders-archived.json") }
func (r *Repository) SalesPointsPath() string { return r.path("sales-points.json") }
func (r *Repository) SalesOrdersPath() string { return r.path("sales-orders.json") }
func (r *Repository) PointMovesPath() string  { return r.path("sales-point-moves.json") }
func (r *Repository) UsersPath() string       { return r.path("users.json") }

func (r *Repository) LoadStock(t models.ItemType) (*models.StockDocument, error) {
	doc := &models.StockDocument{}
	if _, err := r.store.ReadJSON(r.StockPath(t), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (r *Repository) UpdateStock(t models.ItemType, fn func(*models.StockDocument) error) error {
	path := r.StockPath(t)
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.StockDocument{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadMRP() (*models.MRPDocument, error) {
	doc := &models.MRPDocument{}
	var err error
	// Coarse serialization of the MRP read path: a read never observes a
	// concurrent writer's intermediate state of this file.
	lockErr := r.store.Locker().WithLock(r.MRPPath(), func() error {
		_, err = r.store.ReadJSON(r.MRPPath(), doc)
		return err
	})
	if lockErr != nil {
		return nil, lockErr
	}
	if err := doc.Normalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateMRP runs a read-modify-write cycle on the planning document under its
// path lock. authorized names the tracked lists the caller explicitly allows
// to be emptied by this one write; the authorization never persists.
func (r *Repository) UpdateMRP(authorized map[string]bool, fn func(*models.MRPDocument) error) error {
	path := r.MRPPath()
	return r.store.Locker().WithLock(path, func() error {
		res, err := r.store.Read(path)
		if err != nil {
			return err
		}
		doc := &models.MRPDocument{}
		if !res.Absent {
			if err := json.Unmarshal(res.Raw, doc); err != nil {
				return &storage.CorruptDocumentError{Path: path, Cause: err}
			}
		}
		if err := doc.Normalize(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		var current any
		if !res.Absent {
			current = json.RawMessage(res.Raw)
		}
		if err := r.guard.Check(path, current, doc, authorized); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadOPArchive() (*models.ProductionOrderArchive, error) {
	doc := &models.ProductionOrderArchive{}
	if _, err := r.store.ReadJSON(r.OPArchivePath(), doc); err != nil {
		return nil, err
	}
	if err := doc.Normalize(); err != nil {
		return nil, err
	}
	return doc, nil
}

func (r *Repository) UpdateOPArchive(fn func(*models.ProductionOrderArchive) error) error {
	path := r.OPArchivePath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.ProductionOrderArchive{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		if err := doc.Normalize(); err != nil {
			return err
		}
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadOCArchive() (*models.PurchaseOrderArchive, error) {
	doc := &models.PurchaseOrderArchive{}
	if _, err := r.store.ReadJSON(r.OCArchivePath(), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (r *Repository) UpdateOCArchive(fn func(*models.PurchaseOrderArchive) error) error {
	path := r.OCArchivePath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.PurchaseOrderArchive{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadSalesPoints() (*models.SalesPointsDocument, error) {
	doc := &models.SalesPointsDocument{}
	if _, err := r.store.ReadJSON(r.SalesPointsPath(), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (r *Repository) UpdateSalesPoints(fn func(*models.SalesPointsDocument) error) error {
	path := r.SalesPointsPath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.SalesPointsDocument{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadSalesOrders() (*models.SalesOrdersDocument, error) {
	doc := &models.SalesOrdersDocument{}
	if _, err := r.store.ReadJSON(r.SalesOrdersPath(), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

// WithSalesOrdersLock runs fn while holding the sales-orders path lock
// without touching the document. Dispatch and cancel hold the same lock for
// their full span, so fn cannot interleave with them.
func (r *Repository) WithSalesOrdersLock(fn func() error) error {
	return r.store.Locker().WithLock(r.SalesOrdersPath(), fn)
}

func (r *Repository) UpdateSalesOrders(fn func(*models.SalesOrdersDocument) error) error {
	path := r.SalesOrdersPath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.SalesOrdersDocument{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadPointMoves() (*models.PointMovesDocument, error) {
	doc := &models.PointMovesDocument{}
	if _, err := r.store.ReadJSON(r.PointMovesPath(), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (r *Repository) UpdatePointMoves(fn func(*models.PointMovesDocument) error) error {
	path := r.PointMovesPath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.PointMovesDocument{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}

func (r *Repository) LoadUsers() (*models.UsersDocument, error) {
	doc := &models.UsersDocument{}
	if _, err := r.store.ReadJSON(r.UsersPath(), doc); err != nil {
		return nil, err
	}
	doc.Normalize()
	return doc, nil
}

func (r *Repository) UpdateUsers(fn func(*models.UsersDocument) error) error {
	path := r.UsersPath()
	return r.store.Locker().WithLock(path, func() error {
		doc := &models.UsersDocument{}
		if _, err := r.store.ReadJSON(path, doc); err != nil {
			return err
		}
		doc.Normalize()
		if err := fn(doc); err != nil {
			return err
		}
		return r.store.WriteLocked(path, doc)
	})
}
