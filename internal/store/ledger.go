package store

import (
	"context"
	"iter"

	"inventory/internal/model"

	"gorm.io/gorm"
)

// Ledger is the append-only sales table.
type Ledger struct {
	db *gorm.DB
}

// Append stores one sale record and fills its ID.
func (l *Ledger) Append(ctx context.Context, rec *model.SaleRecord) error {
	if err := l.db.WithContext(ctx).Create(rec).Error; err != nil {
		return wrapStorage("append sale", err)
	}
	return nil
}

// Scan yields every sale in id order, reading rows through a cursor. Each
// range over the returned sequence issues a fresh query. The body of the range
// loop must not use the store: the cursor holds the only connection.
func (l *Ledger) Scan(ctx context.Context) iter.Seq2[model.SaleRecord, error] {
	return func(yield func(model.SaleRecord, error) bool) {
		db := l.db.WithContext(ctx)
		rows, err := db.Model(&model.SaleRecord{}).Order("id").Rows()
		if err != nil {
			yield(model.SaleRecord{}, wrapStorage("scan sales", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var rec model.SaleRecord
			if err := db.ScanRows(rows, &rec); err != nil {
				yield(model.SaleRecord{}, wrapStorage("scan sales", err))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(model.SaleRecord{}, wrapStorage("scan sales", err))
		}
	}
}

// Count returns the number of recorded sales.
func (l *Ledger) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := l.db.WithContext(ctx).Model(&model.SaleRecord{}).Count(&n).Error; err != nil {
		return 0, wrapStorage("count sales", err)
	}
	return n, nil
}
