package inventory

import (
	"context"
	"fmt"
	"time"

	"inventory/internal/model"
	"inventory/internal/store"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SaleSummary is what a caller gets back from a committed sale.
type SaleSummary struct {
	Reference string          `json:"reference"`
	SKU       string          `json:"sku"`
	Quantity  int64           `json:"quantity"`
	TotalHT   decimal.Decimal `json:"total_ht"`
	TotalVAT  decimal.Decimal `json:"total_vat"`
	TotalTTC  decimal.Decimal `json:"total_ttc"`
	SoldAt    time.Time       `json:"sold_at"`
}

// SaleEngine records sales. Each sale decrements stock and appends a ledger
// entry in a single transaction.
type SaleEngine struct {
	store *store.Store
	now   func() time.Time
}

// NewSaleEngine builds a SaleEngine over st.
func NewSaleEngine(st *store.Store, now func() time.Time) *SaleEngine {
	if now == nil {
		now = time.Now
	}
	return &SaleEngine{store: st, now: now}
}

// Sell 关键流程：
// 1. 校验数量
// 2. 事务内查商品（不存在直接回滚）
// 3. 条件扣减库存（不足直接回滚）
// 4. 按当前单价与税率计算金额并写入销售流水
// 5. 提交：扣库存与流水同时可见，或都不可见
func (e *SaleEngine) Sell(ctx context.Context, sku string, quantity int64) (SaleSummary, error) {
	if quantity <= 0 {
		return SaleSummary{}, fmt.Errorf("%w: quantity must be > 0", model.ErrValidation)
	}
	if sku == "" {
		return SaleSummary{}, fmt.Errorf("%w: sku is required", model.ErrValidation)
	}

	var summary SaleSummary
	err := e.store.WithTx(ctx, func(ctx context.Context, tx *store.Tx) error {
		prod, ok, err := tx.Catalog().GetBySKU(ctx, sku)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: %s", model.ErrNotFound, sku)
		}
		if prod.Quantity < quantity {
			return fmt.Errorf("%w: %s has %d, requested %d", model.ErrInsufficientStock, sku, prod.Quantity, quantity)
		}
		if err := tx.Catalog().DecrementStock(ctx, sku, quantity); err != nil {
			return err
		}

		ht, vat, ttc := model.SaleTotals(quantity, prod.UnitPriceHT, prod.VatRate)
		rec := &model.SaleRecord{
			Reference:   uuid.New().String(),
			SKU:         sku,
			Quantity:    quantity,
			UnitPriceHT: prod.UnitPriceHT,
			VatRate:     prod.VatRate,
			TotalHT:     ht,
			TotalVAT:    vat,
			TotalTTC:    ttc,
			SoldAt:      e.now(),
		}
		if err := tx.Ledger().Append(ctx, rec); err != nil {
			return err
		}

		summary = SaleSummary{
			Reference: rec.Reference,
			SKU:       sku,
			Quantity:  quantity,
			TotalHT:   ht,
			TotalVAT:  vat,
			TotalTTC:  ttc,
			SoldAt:    rec.SoldAt,
		}
		return nil
	})
	if err != nil {
		return SaleSummary{}, err
	}
	return summary, nil
}
