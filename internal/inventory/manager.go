package inventory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"inventory/internal/model"
	"inventory/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DefaultVatRate is applied to manually added products without a rate.
const DefaultVatRate = 0.20

// Manager is the single entry point used by presentation code. It validates
// inputs and delegates to the catalog, the sale engine and the aggregator.
type Manager struct {
	store      *store.Store
	sales      *SaleEngine
	aggregator *Aggregator
	importer   *Importer

	log        *zap.Logger
	timeout    time.Duration
	defaultVat float64
	now        func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithTimeout bounds every operation. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(m *Manager) { m.timeout = d }
}

// WithDefaultVatRate overrides DefaultVatRate.
func WithDefaultVatRate(rate float64) Option {
	return func(m *Manager) { m.defaultVat = rate }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager wires a Manager over st.
func NewManager(st *store.Store, opts ...Option) *Manager {
	m := &Manager{
		store:      st,
		log:        zap.NewNop(),
		timeout:    10 * time.Second,
		defaultVat: DefaultVatRate,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.sales = NewSaleEngine(st, m.now)
	m.aggregator = NewAggregator(st.Ledger())
	m.importer = NewImporter(st, m.now)
	return m
}

func (m *Manager) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if m.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, m.timeout)
}

// InitializeFromSource loads products. With reset the catalog is dropped and
// recreated first; otherwise products are added to the existing catalog.
func (m *Manager) InitializeFromSource(ctx context.Context, records []ImportRecord, reset bool) (int, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	n, err := m.importer.Import(ctx, records, reset)
	if err != nil {
		return 0, m.fail("initialize", err)
	}
	m.log.Info("catalog initialized", zap.Int("products", n), zap.Bool("reset", reset))
	return n, nil
}

// InitializeFromFile reads a JSON snapshot and imports it.
func (m *Manager) InitializeFromFile(ctx context.Context, path string, reset bool) (int, error) {
	m.log.Info("initialization requested", zap.String("path", path))
	snap, err := LoadSnapshot(path)
	if err != nil {
		return 0, m.fail("initialize", err)
	}
	return m.InitializeFromSource(ctx, snap.Products, reset)
}

// ListInventory returns every product in insertion order.
func (m *Manager) ListInventory(ctx context.Context) ([]model.Product, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	list, err := m.store.Catalog().ListAll(ctx)
	if err != nil {
		return nil, m.fail("list inventory", err)
	}
	return list, nil
}

// GetProduct looks a product up by SKU; found=false when absent.
func (m *Manager) GetProduct(ctx context.Context, sku string) (model.Product, bool, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	p, ok, err := m.store.Catalog().GetBySKU(ctx, sku)
	if err != nil {
		return model.Product{}, false, m.fail("get product", err)
	}
	return p, ok, nil
}

// AddProduct validates and inserts a product.
func (m *Manager) AddProduct(ctx context.Context, in NewProduct) (model.Product, error) {
	if in.VatRate == nil {
		rate := m.defaultVat
		in.VatRate = &rate
	}
	if err := checkStruct(in); err != nil {
		return model.Product{}, m.fail("add product", err)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	now := m.now()
	p := model.Product{
		CreatedAt:   now,
		UpdatedAt:   now,
		SKU:         in.SKU,
		Name:        in.Name,
		Category:    in.Category,
		UnitPriceHT: decimal.NewFromFloat(in.UnitPriceHT),
		VatRate:     decimal.NewFromFloat(*in.VatRate),
		Quantity:    in.Quantity,
	}
	if err := m.store.Catalog().Insert(ctx, &p); err != nil {
		return model.Product{}, m.fail("add product", err)
	}
	m.log.Info("product added", zap.String("sku", p.SKU), zap.Uint("id", p.ID))
	return p, nil
}

// UpdateProduct applies the set fields of in to the product sku.
func (m *Manager) UpdateProduct(ctx context.Context, sku string, in ProductUpdate) (model.Product, error) {
	if err := checkStruct(in); err != nil {
		return model.Product{}, m.fail("update product", err)
	}

	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	changes := model.ProductChanges{
		Name:     in.Name,
		Category: in.Category,
		Quantity: in.Quantity,
	}
	if in.UnitPriceHT != nil {
		d := decimal.NewFromFloat(*in.UnitPriceHT)
		changes.UnitPriceHT = &d
	}
	if in.VatRate != nil {
		d := decimal.NewFromFloat(*in.VatRate)
		changes.VatRate = &d
	}

	var updated model.Product
	err := m.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		p, err := tx.Catalog().Update(ctx, sku, changes)
		updated = p
		return err
	})
	if err != nil {
		return model.Product{}, m.fail("update product", err)
	}
	m.log.Info("product updated", zap.String("sku", sku))
	return updated, nil
}

// DeleteProduct removes a product. Its past sales stay in the ledger.
func (m *Manager) DeleteProduct(ctx context.Context, sku string) error {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	if err := m.store.Catalog().Delete(ctx, sku); err != nil {
		return m.fail("delete product", err)
	}
	m.log.Info("product deleted", zap.String("sku", sku))
	return nil
}

// SellProduct records a sale of quantity units of sku.
func (m *Manager) SellProduct(ctx context.Context, sku string, quantity int64) (SaleSummary, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	summary, err := m.sales.Sell(ctx, sku, quantity)
	if err != nil {
		return SaleSummary{}, m.fail("sell product", err)
	}
	m.log.Info("sale recorded",
		zap.String("reference", summary.Reference),
		zap.String("sku", summary.SKU),
		zap.Int64("quantity", summary.Quantity),
		zap.String("total_ttc", summary.TotalTTC.StringFixed(2)))
	return summary, nil
}

// GetDashboard aggregates the sales ledger.
func (m *Manager) GetDashboard(ctx context.Context) (DashboardStats, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	stats, err := m.aggregator.Compute(ctx)
	if err != nil {
		return DashboardStats{}, m.fail("dashboard", err)
	}
	return stats, nil
}

// ExportSalesCSV writes the ledger to w and returns the number of rows.
func (m *Manager) ExportSalesCSV(ctx context.Context, w io.Writer) (int, error) {
	ctx, cancel := m.withTimeout(ctx)
	defer cancel()

	n, err := ExportSales(ctx, m.store.Ledger(), w)
	if err != nil {
		return 0, m.fail("export sales", err)
	}
	m.log.Info("sales exported", zap.Int("rows", n))
	return n, nil
}

// fail logs err at a level matching its kind and returns it unchanged.
// Anything that is not a known kind is tagged as a storage failure so callers
// never see an untyped error.
func (m *Manager) fail(op string, err error) error {
	switch {
	case errors.Is(err, model.ErrStorage):
		m.log.Error(op+" failed", zap.Error(err))
		return err
	case errors.Is(err, model.ErrValidation), errors.Is(err, model.ErrImport):
		m.log.Warn(op+" rejected", zap.Error(err))
		return err
	case errors.Is(err, model.ErrNotFound), errors.Is(err, model.ErrConstraint),
		errors.Is(err, model.ErrInsufficientStock):
		m.log.Info(op+" refused", zap.Error(err))
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		m.log.Error(op+" interrupted", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
	default:
		m.log.Error(op+" failed", zap.Error(err))
		return fmt.Errorf("%w: %s: %w", model.ErrStorage, op, err)
	}
}
