package menu

import (
	"fmt"
	"strconv"
	"strings"

	"inventory/internal/inventory"
	"inventory/internal/model"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	accent = lipgloss.Color("#D97706")
	dim    = lipgloss.Color("#6B7280")

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	numStyle    = cellStyle.Align(lipgloss.Right)
	borderStyle = lipgloss.NewStyle().Foreground(dim)
	titleStyle  = lipgloss.NewStyle().Bold(true)
)

var inventoryHeaders = []string{"ID", "SKU", "Name", "Category", "Price HT", "VAT", "Price TTC", "Stock"}

// RenderInventory renders products as a bordered table.
func RenderInventory(products []model.Product) string {
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			strconv.FormatUint(uint64(p.ID), 10),
			p.SKU,
			p.Name,
			p.Category,
			p.UnitPriceHT.StringFixed(2),
			p.VatRate.StringFixed(2),
			p.UnitPriceTTC().StringFixed(2),
			strconv.FormatInt(p.Quantity, 10),
		})
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers(inventoryHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case col == 0 || col >= 4:
				return numStyle
			default:
				return cellStyle
			}
		})
	return t.String()
}

// RenderSale renders the summary of a committed sale.
func RenderSale(s inventory.SaleSummary) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Sale recorded"))
	b.WriteByte('\n')
	fmt.Fprintf(&b, "  Reference : %s\n", s.Reference)
	fmt.Fprintf(&b, "  SKU       : %s\n", s.SKU)
	fmt.Fprintf(&b, "  Quantity  : %d\n", s.Quantity)
	fmt.Fprintf(&b, "  Total HT  : %s\n", s.TotalHT.StringFixed(2))
	fmt.Fprintf(&b, "  VAT       : %s\n", s.TotalVAT.StringFixed(2))
	fmt.Fprintf(&b, "  Total TTC : %s\n", s.TotalTTC.StringFixed(2))
	return b.String()
}

// RenderDashboard renders ledger statistics, or a placeholder when empty.
func RenderDashboard(s inventory.DashboardStats) string {
	if s.Empty() {
		return "(no sales recorded yet)\n"
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Rows(
			[]string{"Sales", strconv.FormatInt(s.SaleCount, 10)},
			[]string{"Units sold", strconv.FormatInt(s.TotalQuantity, 10)},
			[]string{"Revenue HT", s.TotalHT.StringFixed(2)},
			[]string{"VAT", s.TotalVAT.StringFixed(2)},
			[]string{"Revenue TTC", s.TotalTTC.StringFixed(2)},
		).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col == 1 {
				return numStyle
			}
			return cellStyle
		})
	return titleStyle.Render("Dashboard") + "\n" + t.String() + "\n"
}
