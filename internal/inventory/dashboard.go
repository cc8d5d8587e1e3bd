package inventory

import (
	"context"

	"inventory/internal/store"

	"github.com/shopspring/decimal"
)

// DashboardStats summarises the sales ledger.
type DashboardStats struct {
	SaleCount     int64           `json:"sale_count"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalHT       decimal.Decimal `json:"total_ht"`
	TotalVAT      decimal.Decimal `json:"total_vat"`
	TotalTTC      decimal.Decimal `json:"total_ttc"`
}

// Empty reports whether no sale has been recorded.
func (s DashboardStats) Empty() bool { return s.SaleCount == 0 }

// Aggregator derives DashboardStats from the ledger.
type Aggregator struct {
	ledger *store.Ledger
}

func NewAggregator(ledger *store.Ledger) *Aggregator {
	return &Aggregator{ledger: ledger}
}

// Compute scans the whole ledger. An empty ledger gives the zero value.
func (a *Aggregator) Compute(ctx context.Context) (DashboardStats, error) {
	stats := DashboardStats{
		TotalHT:  decimal.Zero,
		TotalVAT: decimal.Zero,
		TotalTTC: decimal.Zero,
	}
	for rec, err := range a.ledger.Scan(ctx) {
		if err != nil {
			return DashboardStats{}, err
		}
		stats.SaleCount++
		stats.TotalQuantity += rec.Quantity
		stats.TotalHT = stats.TotalHT.Add(rec.TotalHT)
		stats.TotalVAT = stats.TotalVAT.Add(rec.TotalVAT)
		stats.TotalTTC = stats.TotalTTC.Add(rec.TotalTTC)
	}
	return stats, nil
}
