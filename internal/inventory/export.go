package inventory

import (
	"context"
	"fmt"
	"io"
	"time"

	"inventory/internal/model"
	"inventory/internal/store"

	"github.com/gocarina/gocsv"
)

// saleRow is the CSV shape of one ledger entry.
type saleRow struct {
	Reference   string `csv:"reference"`
	SKU         string `csv:"sku"`
	Quantity    int64  `csv:"quantity"`
	UnitPriceHT string `csv:"unit_price_ht"`
	VatRate     string `csv:"vat_rate"`
	TotalHT     string `csv:"total_ht"`
	TotalVAT    string `csv:"total_vat"`
	TotalTTC    string `csv:"total_ttc"`
	SoldAt      string `csv:"sold_at"`
}

// ExportSales writes the whole ledger as CSV (with header) and returns the
// number of rows written.
func ExportSales(ctx context.Context, ledger *store.Ledger, w io.Writer) (int, error) {
	rows := make([]saleRow, 0, 64)
	for rec, err := range ledger.Scan(ctx) {
		if err != nil {
			return 0, err
		}
		rows = append(rows, saleRow{
			Reference:   rec.Reference,
			SKU:         rec.SKU,
			Quantity:    rec.Quantity,
			UnitPriceHT: rec.UnitPriceHT.String(),
			VatRate:     rec.VatRate.String(),
			TotalHT:     rec.TotalHT.StringFixed(2),
			TotalVAT:    rec.TotalVAT.StringFixed(2),
			TotalTTC:    rec.TotalTTC.StringFixed(2),
			SoldAt:      rec.SoldAt.UTC().Format(time.RFC3339),
		})
	}
	if err := gocsv.Marshal(&rows, w); err != nil {
		return 0, fmt.Errorf("%w: write csv: %v", model.ErrStorage, err)
	}
	return len(rows), nil
}
