package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inventory/internal/model"

	"gorm.io/gorm"
)

// Catalog persists products keyed by SKU.
type Catalog struct {
	db *gorm.DB
}

// Insert stores p and fills its ID. A duplicate SKU yields model.ErrConstraint.
func (c *Catalog) Insert(ctx context.Context, p *model.Product) error {
	if err := c.db.WithContext(ctx).Create(p).Error; err != nil {
		if errorsLikeUnique(err) {
			return fmt.Errorf("%w: sku %q already exists", model.ErrConstraint, p.SKU)
		}
		return wrapStorage("insert product", err)
	}
	return nil
}

// GetBySKU looks a product up. found=false means the SKU does not exist.
func (c *Catalog) GetBySKU(ctx context.Context, sku string) (model.Product, bool, error) {
	var p model.Product
	err := c.db.WithContext(ctx).Where("sku = ?", sku).Take(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Product{}, false, nil
		}
		return model.Product{}, false, wrapStorage("get product", err)
	}
	return p, true, nil
}

// Update applies the set fields of changes and returns the stored product.
func (c *Catalog) Update(ctx context.Context, sku string, changes model.ProductChanges) (model.Product, error) {
	db := c.db.WithContext(ctx)
	if !changes.Empty() {
		cols := changes.Columns()
		cols["updated_at"] = time.Now()
		res := db.Model(&model.Product{}).Where("sku = ?", sku).UpdateColumns(cols)
		if res.Error != nil {
			return model.Product{}, wrapStorage("update product", res.Error)
		}
		if res.RowsAffected == 0 {
			return model.Product{}, fmt.Errorf("%w: %s", model.ErrNotFound, sku)
		}
	}
	p, ok, err := c.GetBySKU(ctx, sku)
	if err != nil {
		return model.Product{}, err
	}
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %s", model.ErrNotFound, sku)
	}
	return p, nil
}

// Delete removes the product row. Sales referencing the SKU stay in the ledger.
func (c *Catalog) Delete(ctx context.Context, sku string) error {
	res := c.db.WithContext(ctx).Where("sku = ?", sku).Delete(&model.Product{})
	if res.Error != nil {
		return wrapStorage("delete product", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrNotFound, sku)
	}
	return nil
}

// ListAll returns every product in insertion order.
func (c *Catalog) ListAll(ctx context.Context) ([]model.Product, error) {
	var list []model.Product
	if err := c.db.WithContext(ctx).Order("id").Find(&list).Error; err != nil {
		return nil, wrapStorage("list products", err)
	}
	return list, nil
}

// DecrementStock 原子「判断库存 ≥ 扣减量 → 扣减」，与 Lua 脚本同一语义：
// 条件不满足时不更新任何行，返回 ErrInsufficientStock。
func (c *Catalog) DecrementStock(ctx context.Context, sku string, quantity int64) error {
	res := c.db.WithContext(ctx).Model(&model.Product{}).
		Where("sku = ? AND quantity >= ?", sku, quantity).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", quantity),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return wrapStorage("decrement stock", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", model.ErrInsufficientStock, sku)
	}
	return nil
}
