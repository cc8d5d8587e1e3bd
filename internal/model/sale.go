package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SaleRecord 销售流水，只追加不修改。
// SKU 只保存值，不做外键：商品删除后历史销售依然保留。
type SaleRecord struct {
	ID uint `gorm:"primarykey" json:"id"`

	// Reference 是单笔销售的追踪号（uuid）。
	Reference   string          `gorm:"size:64;uniqueIndex;not null" json:"reference"`
	SKU         string          `gorm:"size:64;not null;index" json:"sku"`
	Quantity    int64           `gorm:"not null" json:"quantity"`
	UnitPriceHT decimal.Decimal `gorm:"type:text;not null" json:"unit_price_ht"`
	VatRate     decimal.Decimal `gorm:"type:text;not null" json:"vat_rate"`
	TotalHT     decimal.Decimal `gorm:"type:text;not null" json:"total_ht"`
	TotalVAT    decimal.Decimal `gorm:"type:text;not null" json:"total_vat"`
	TotalTTC    decimal.Decimal `gorm:"type:text;not null" json:"total_ttc"`
	SoldAt      time.Time       `gorm:"not null;index" json:"sold_at"`
}

func (SaleRecord) TableName() string { return "sales" }

// SaleTotals computes the stored totals of a sale line. Amounts are rounded to
// cents before summing so TotalTTC == TotalHT + TotalVAT holds exactly.
func SaleTotals(quantity int64, unitPriceHT, vatRate decimal.Decimal) (ht, vat, ttc decimal.Decimal) {
	ht = unitPriceHT.Mul(decimal.NewFromInt(quantity)).Round(2)
	vat = ht.Mul(vatRate).Round(2)
	ttc = ht.Add(vat)
	return ht, vat, ttc
}

// Tables 全部需要迁移的表。
var Tables = []any{&Product{}, &SaleRecord{}}
