package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product 库存商品：SKU 唯一，价格为税前单价，VatRate 为 0~1 的小数税率。
type Product struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	SKU      string `gorm:"size:64;uniqueIndex;not null" json:"sku"`
	Name     string `gorm:"size:128;not null" json:"name"`
	Category string `gorm:"size:64" json:"category"`
	// 金额按十进制字符串存储，读回时不经过 float64。
	UnitPriceHT decimal.Decimal `gorm:"type:text;not null" json:"unit_price_ht"`
	VatRate     decimal.Decimal `gorm:"type:text;not null" json:"vat_rate"`
	// Quantity 当前库存，任何时刻都不允许为负。
	Quantity int64 `gorm:"not null;default:0" json:"quantity"`
}

func (Product) TableName() string { return "products" }

// UnitPriceTTC returns the tax-inclusive unit price rounded to cents.
func (p Product) UnitPriceTTC() decimal.Decimal {
	return p.UnitPriceHT.Mul(decimal.NewFromInt(1).Add(p.VatRate)).Round(2)
}

// ProductChanges is a partial update: nil fields keep their stored value.
type ProductChanges struct {
	Name        *string
	Category    *string
	UnitPriceHT *decimal.Decimal
	VatRate     *decimal.Decimal
	Quantity    *int64
}

// Empty reports whether no field is set.
func (c ProductChanges) Empty() bool {
	return c.Name == nil && c.Category == nil && c.UnitPriceHT == nil && c.VatRate == nil && c.Quantity == nil
}

// Columns maps the set fields to their column names.
func (c ProductChanges) Columns() map[string]any {
	cols := make(map[string]any, 5)
	if c.Name != nil {
		cols["name"] = *c.Name
	}
	if c.Category != nil {
		cols["category"] = *c.Category
	}
	if c.UnitPriceHT != nil {
		cols["unit_price_ht"] = *c.UnitPriceHT
	}
	if c.VatRate != nil {
		cols["vat_rate"] = *c.VatRate
	}
	if c.Quantity != nil {
		cols["quantity"] = *c.Quantity
	}
	return cols
}
