package inventory_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"inventory/internal/inventory"
	"inventory/internal/model"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snapshotJSON = `{
  "products": [
    {"sku": "KB-01", "name": "Keyboard", "category": "peripherals", "unit_price_ht": 49.99, "quantity": 10, "vat_rate": 0.2},
    {"sku": "MS-01", "name": "Mouse", "category": "peripherals", "unit_price_ht": 19.9, "quantity": 25, "vat_rate": 0.2, "comment": "ignored"},
    {"sku": "BK-01", "name": "Go book", "category": "books", "unit_price_ht": 35, "quantity": 3, "vat_rate": 0.055}
  ]
}`

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "snapshot.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestInitializeFromFile_RoundTrip(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	path := writeSnapshot(t, snapshotJSON)
	n, err := m.InitializeFromFile(ctx, path, true)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	snap, err := inventory.LoadSnapshot(path)
	require.NoError(t, err)
	list, err := m.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, list, len(snap.Products))
	for i, want := range snap.Products {
		got := list[i]
		assert.Equal(t, *want.SKU, got.SKU)
		assert.Equal(t, *want.Name, got.Name)
		assert.Equal(t, *want.Category, got.Category)
		assert.Equal(t, *want.Quantity, got.Quantity)
		assert.True(t, decimal.NewFromFloat(*want.UnitPriceHT).Equal(got.UnitPriceHT), "%s price %s", got.SKU, got.UnitPriceHT)
		assert.True(t, decimal.NewFromFloat(*want.VatRate).Equal(got.VatRate), "%s vat %s", got.SKU, got.VatRate)
	}
	assert.Equal(t, []string{"KB-01", "MS-01", "BK-01"}, []string{list[0].SKU, list[1].SKU, list[2].SKU})
	requireDecimal(t, "49.99", list[0].UnitPriceHT)
	requireDecimal(t, "0.055", list[2].VatRate)
}

func TestInitializeFromSource_ResetReplacesCatalog(t *testing.T) {
	m, st := newTestManager(t)
	ctx := context.Background()
	seed(t, m, record("OLD", "Old", "x", 1, 1, 0.2))
	_, err := m.SellProduct(ctx, "OLD", 1)
	require.NoError(t, err)

	seed(t, m, record("NEW", "New", "x", 2, 2, 0.2))

	list, err := m.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "NEW", list[0].SKU)

	n, err := st.Ledger().Count(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n, "reset must not touch the sales ledger")
}

func TestInitializeFromSource_AppendWithoutReset(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	seed(t, m, record("A", "A", "x", 1, 1, 0.2))

	n, err := m.InitializeFromSource(ctx, []inventory.ImportRecord{record("B", "B", "x", 1, 1, 0.2)}, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := m.ListInventory(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestInitializeFromSource_AllOrNothing(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	seed(t, m, record("KEEP", "Keep", "x", 1, 1, 0.2))

	t.Run("invalid record", func(t *testing.T) {
		bad := record("B", "B", "x", 1, -5, 0.2)
		_, err := m.InitializeFromSource(ctx, []inventory.ImportRecord{record("A", "A", "x", 1, 1, 0.2), bad}, true)
		require.ErrorIs(t, err, model.ErrImport)
		assert.Contains(t, err.Error(), "record 1")
	})

	t.Run("missing field", func(t *testing.T) {
		rec := record("A", "A", "x", 1, 1, 0.2)
		rec.VatRate = nil
		_, err := m.InitializeFromSource(ctx, []inventory.ImportRecord{rec}, true)
		require.ErrorIs(t, err, model.ErrImport)
	})

	t.Run("duplicate sku", func(t *testing.T) {
		_, err := m.InitializeFromSource(ctx, []inventory.ImportRecord{
			record("A", "A", "x", 1, 1, 0.2),
			record("A", "A again", "x", 1, 1, 0.2),
		}, true)
		require.ErrorIs(t, err, model.ErrImport)
		require.ErrorIs(t, err, model.ErrConstraint)
	})

	list, err := m.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "KEEP", list[0].SKU)
}

func TestInitializeFromFile_Errors(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	_, err := m.InitializeFromFile(ctx, filepath.Join(t.TempDir(), "missing.json"), true)
	require.ErrorIs(t, err, model.ErrImport)

	_, err = m.InitializeFromFile(ctx, writeSnapshot(t, `{"products": [`), true)
	require.ErrorIs(t, err, model.ErrImport)

	_, err = m.InitializeFromFile(ctx, writeSnapshot(t, `{"items": []}`), true)
	require.ErrorIs(t, err, model.ErrImport)
}

func TestReadSnapshot_EmptyProducts(t *testing.T) {
	snap, err := inventory.ReadSnapshot(strings.NewReader(`{"products": []}`))
	require.NoError(t, err)
	assert.Empty(t, snap.Products)
}

type exportedSale struct {
	Reference string `csv:"reference"`
	SKU       string `csv:"sku"`
	Quantity  int64  `csv:"quantity"`
	TotalHT   string `csv:"total_ht"`
	TotalVAT  string `csv:"total_vat"`
	TotalTTC  string `csv:"total_ttc"`
	SoldAt    string `csv:"sold_at"`
}

func TestExportSalesCSV(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()
	seed(t, m, record("A", "Ten", "x", 10, 5, 0.2))
	first, err := m.SellProduct(ctx, "A", 2)
	require.NoError(t, err)
	_, err = m.SellProduct(ctx, "A", 1)
	require.NoError(t, err)

	var buf bytes.Buffer
	n, err := m.ExportSalesCSV(ctx, &buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var rows []exportedSale
	require.NoError(t, gocsv.UnmarshalBytes(buf.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, first.Reference, rows[0].Reference)
	assert.Equal(t, "A", rows[0].SKU)
	assert.EqualValues(t, 2, rows[0].Quantity)
	assert.Equal(t, "20.00", rows[0].TotalHT)
	assert.Equal(t, "4.00", rows[0].TotalVAT)
	assert.Equal(t, "24.00", rows[0].TotalTTC)
	assert.Equal(t, "2026-03-14T09:30:00Z", rows[0].SoldAt)
}

func TestExportSalesCSV_EmptyLedgerWritesHeader(t *testing.T) {
	m, _ := newTestManager(t)

	var buf bytes.Buffer
	n, err := m.ExportSalesCSV(context.Background(), &buf)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.True(t, strings.HasPrefix(buf.String(), "reference,"), buf.String())
}
