package store_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"inventory/internal/model"
	"inventory/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "inventory.db"), store.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func product(sku string, qty int64) *model.Product {
	return &model.Product{
		SKU:         sku,
		Name:        "Item " + sku,
		Category:    "misc",
		UnitPriceHT: decimal.RequireFromString("10.5"),
		VatRate:     decimal.RequireFromString("0.2"),
		Quantity:    qty,
	}
}

func sale(sku string, qty int64) *model.SaleRecord {
	ht, vat, ttc := model.SaleTotals(qty, decimal.NewFromInt(10), decimal.RequireFromString("0.2"))
	return &model.SaleRecord{
		Reference:   uuid.NewString(),
		SKU:         sku,
		Quantity:    qty,
		UnitPriceHT: decimal.NewFromInt(10),
		VatRate:     decimal.RequireFromString("0.2"),
		TotalHT:     ht,
		TotalVAT:    vat,
		TotalTTC:    ttc,
		SoldAt:      time.Now(),
	}
}

func TestCatalog_InsertAndGet(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := product("A-1", 5)
	require.NoError(t, st.Catalog().Insert(ctx, p))
	assert.NotZero(t, p.ID)

	got, ok, err := st.Catalog().GetBySKU(ctx, "A-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "Item A-1", got.Name)
	assert.True(t, got.UnitPriceHT.Equal(decimal.RequireFromString("10.5")), got.UnitPriceHT.String())
	assert.True(t, got.VatRate.Equal(decimal.RequireFromString("0.2")), got.VatRate.String())
	assert.EqualValues(t, 5, got.Quantity)
	assert.False(t, got.CreatedAt.IsZero())
}

func TestCatalog_GetMissingIsNotAnError(t *testing.T) {
	st := newTestStore(t)

	_, ok, err := st.Catalog().GetBySKU(context.Background(), "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCatalog_DuplicateSKU(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))
	dup := product("A-1", 99)
	dup.Name = "other"
	err := st.Catalog().Insert(ctx, dup)
	require.ErrorIs(t, err, model.ErrConstraint)

	list, err := st.Catalog().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Item A-1", list[0].Name)
	assert.EqualValues(t, 5, list[0].Quantity)
}

func TestCatalog_UpdatePartial(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))

	name := "Renamed"
	got, err := st.Catalog().Update(ctx, "A-1", model.ProductChanges{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)
	assert.Equal(t, "misc", got.Category)
	assert.EqualValues(t, 5, got.Quantity)
	assert.True(t, got.UnitPriceHT.Equal(decimal.RequireFromString("10.5")))

	empty := ""
	price := decimal.NewFromInt(12)
	got, err = st.Catalog().Update(ctx, "A-1", model.ProductChanges{Category: &empty, UnitPriceHT: &price})
	require.NoError(t, err)
	assert.Equal(t, "", got.Category)
	assert.Equal(t, "Renamed", got.Name)
	assert.True(t, got.UnitPriceHT.Equal(price))
}

func TestCatalog_UpdateMissing(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	qty := int64(3)
	_, err := st.Catalog().Update(ctx, "nope", model.ProductChanges{Quantity: &qty})
	require.ErrorIs(t, err, model.ErrNotFound)

	_, err = st.Catalog().Update(ctx, "nope", model.ProductChanges{})
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestCatalog_DeleteKeepsLedger(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))
	require.NoError(t, st.Ledger().Append(ctx, sale("A-1", 2)))

	require.NoError(t, st.Catalog().Delete(ctx, "A-1"))
	_, ok, err := st.Catalog().GetBySKU(ctx, "A-1")
	require.NoError(t, err)
	assert.False(t, ok)

	n, err := st.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	require.ErrorIs(t, st.Catalog().Delete(ctx, "A-1"), model.ErrNotFound)
}

func TestCatalog_ListAllInInsertionOrder(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	for _, sku := range []string{"C", "A", "B"} {
		require.NoError(t, st.Catalog().Insert(ctx, product(sku, 1)))
	}

	list, err := st.Catalog().ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"C", "A", "B"}, []string{list[0].SKU, list[1].SKU, list[2].SKU})
}

func TestCatalog_DecrementStock(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))

	require.NoError(t, st.Catalog().DecrementStock(ctx, "A-1", 3))
	require.ErrorIs(t, st.Catalog().DecrementStock(ctx, "A-1", 3), model.ErrInsufficientStock)
	require.NoError(t, st.Catalog().DecrementStock(ctx, "A-1", 2))

	got, _, err := st.Catalog().GetBySKU(ctx, "A-1")
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Quantity)
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))

	boom := errors.New("boom")
	err := st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		require.NoError(t, tx.Catalog().DecrementStock(ctx, "A-1", 2))
		require.NoError(t, tx.Ledger().Append(ctx, sale("A-1", 2)))
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.ErrorIs(t, err, model.ErrStorage)

	got, _, err := st.Catalog().GetBySKU(ctx, "A-1")
	require.NoError(t, err)
	assert.EqualValues(t, 5, got.Quantity)
	n, err := st.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWithTx_KeepsErrorKind(t *testing.T) {
	st := newTestStore(t)

	err := st.WithTx(context.Background(), func(ctx context.Context, tx *store.Tx) error {
		return tx.Catalog().DecrementStock(ctx, "missing", 1)
	})
	require.ErrorIs(t, err, model.ErrInsufficientStock)
	assert.NotErrorIs(t, err, model.ErrStorage)
}

func TestLedger_ScanIsRestartable(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	for range st.Ledger().Scan(ctx) {
		t.Fatal("empty ledger yielded a record")
	}

	require.NoError(t, st.Ledger().Append(ctx, sale("A", 1)))
	require.NoError(t, st.Ledger().Append(ctx, sale("B", 2)))
	require.NoError(t, st.Ledger().Append(ctx, sale("C", 3)))

	seq := st.Ledger().Scan(ctx)
	for pass := 0; pass < 2; pass++ {
		var skus []string
		for rec, err := range seq {
			require.NoError(t, err)
			skus = append(skus, rec.SKU)
		}
		assert.Equal(t, []string{"A", "B", "C"}, skus)
	}

	// stopping early releases the cursor so the store stays usable
	for rec, err := range seq {
		require.NoError(t, err)
		assert.Equal(t, "A", rec.SKU)
		break
	}
	n, err := st.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}

func TestLedger_StoresTotals(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Ledger().Append(ctx, sale("A", 2)))

	for rec, err := range st.Ledger().Scan(ctx) {
		require.NoError(t, err)
		assert.Equal(t, "20.00", rec.TotalHT.StringFixed(2))
		assert.Equal(t, "4.00", rec.TotalVAT.StringFixed(2))
		assert.Equal(t, "24.00", rec.TotalTTC.StringFixed(2))
		assert.True(t, rec.VatRate.Equal(decimal.RequireFromString("0.2")))
	}
}

func TestResetCatalog_KeepsSales(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))
	require.NoError(t, st.Ledger().Append(ctx, sale("A-1", 1)))

	require.NoError(t, st.ResetCatalog(ctx))

	list, err := st.Catalog().ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	n, err := st.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	// schema creation is idempotent
	require.NoError(t, st.CreateSchema(ctx))
	require.NoError(t, st.Catalog().Insert(ctx, product("A-1", 5)))
}

func TestCatalog_DecimalsRoundTripExactly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	p := product("BIG", 1)
	p.UnitPriceHT = decimal.RequireFromString("12345678901234567.891")
	p.VatRate = decimal.RequireFromString("0.0550000000000000001")
	require.NoError(t, st.Catalog().Insert(ctx, p))

	got, ok, err := st.Catalog().GetBySKU(ctx, "BIG")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "12345678901234567.891", got.UnitPriceHT.String())
	assert.Equal(t, "0.0550000000000000001", got.VatRate.String())

	rec := sale("BIG", 3)
	rec.TotalHT = decimal.RequireFromString("37037036703703703.67")
	require.NoError(t, st.Ledger().Append(ctx, rec))
	for r, err := range st.Ledger().Scan(ctx) {
		require.NoError(t, err)
		assert.Equal(t, "37037036703703703.67", r.TotalHT.String())
	}
}

func TestCatalog_DecrementStockAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *store.Store {
		st, err := store.Open(path, store.Options{BusyTimeout: 10 * time.Second}, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = st.Close() })
		return st
	}
	a, b := open(), open()
	ctx := context.Background()
	require.NoError(t, a.Catalog().Insert(ctx, product("HOT", 10)))

	var g errgroup.Group
	var sold, refused atomic.Int64
	for i := 0; i < 40; i++ {
		st := a
		if i%2 == 1 {
			st = b
		}
		g.Go(func() error {
			err := st.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
				if err := tx.Catalog().DecrementStock(ctx, "HOT", 1); err != nil {
					return err
				}
				return tx.Ledger().Append(ctx, sale("HOT", 1))
			})
			switch {
			case err == nil:
				sold.Add(1)
			case errors.Is(err, model.ErrInsufficientStock):
				refused.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.EqualValues(t, 10, sold.Load())
	assert.EqualValues(t, 30, refused.Load())
	got, _, err := b.Catalog().GetBySKU(ctx, "HOT")
	require.NoError(t, err)
	assert.EqualValues(t, 0, got.Quantity)
	n, err := a.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 10, n)
}
