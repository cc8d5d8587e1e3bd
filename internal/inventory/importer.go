package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"inventory/internal/model"
	"inventory/internal/store"

	jsoniter "github.com/json-iterator/go"
	"github.com/shopspring/decimal"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Snapshot is the on-disk bulk-import document.
type Snapshot struct {
	Products []ImportRecord `json:"products"`
}

// ReadSnapshot decodes a snapshot document. Unknown fields are ignored.
func ReadSnapshot(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	if err := json.NewDecoder(r).Decode(&snap); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode snapshot: %v", model.ErrImport, err)
	}
	if snap.Products == nil {
		return Snapshot{}, fmt.Errorf("%w: snapshot has no \"products\" array", model.ErrImport)
	}
	return snap, nil
}

// LoadSnapshot reads a snapshot from a JSON file.
func LoadSnapshot(path string) (Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", model.ErrImport, err)
	}
	defer f.Close()
	return ReadSnapshot(f)
}

// Importer bulk-loads products. An import is all-or-nothing: records are
// validated up front, then the optional reset and every insert share one
// transaction.
type Importer struct {
	store *store.Store
	now   func() time.Time
}

func NewImporter(st *store.Store, now func() time.Time) *Importer {
	if now == nil {
		now = time.Now
	}
	return &Importer{store: st, now: now}
}

// Import inserts records, optionally dropping the catalog first, and returns
// the number of products inserted.
func (im *Importer) Import(ctx context.Context, records []ImportRecord, reset bool) (int, error) {
	products := make([]model.Product, 0, len(records))
	created := im.now()
	for i, rec := range records {
		if err := checkStruct(rec); err != nil {
			return 0, fmt.Errorf("%w: record %d: %v", model.ErrImport, i, err)
		}
		products = append(products, model.Product{
			CreatedAt:   created,
			UpdatedAt:   created,
			SKU:         *rec.SKU,
			Name:        *rec.Name,
			Category:    *rec.Category,
			UnitPriceHT: decimal.NewFromFloat(*rec.UnitPriceHT),
			VatRate:     decimal.NewFromFloat(*rec.VatRate),
			Quantity:    *rec.Quantity,
		})
	}

	err := im.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		if reset {
			if err := tx.ResetCatalog(); err != nil {
				return err
			}
		} else if err := tx.CreateSchema(); err != nil {
			return err
		}
		for i := range products {
			if err := tx.Catalog().Insert(ctx, &products[i]); err != nil {
				if errors.Is(err, model.ErrConstraint) {
					return fmt.Errorf("%w: record %d: %w", model.ErrImport, i, err)
				}
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(products), nil
}
