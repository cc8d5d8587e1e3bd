package menu

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"inventory/internal/inventory"
	"inventory/internal/model"

	"go.uber.org/zap"
)

// Inventory is the part of inventory.Manager the menu drives.
type Inventory interface {
	InitializeFromFile(ctx context.Context, path string, reset bool) (int, error)
	ListInventory(ctx context.Context) ([]model.Product, error)
	GetProduct(ctx context.Context, sku string) (model.Product, bool, error)
	AddProduct(ctx context.Context, in inventory.NewProduct) (model.Product, error)
	UpdateProduct(ctx context.Context, sku string, in inventory.ProductUpdate) (model.Product, error)
	DeleteProduct(ctx context.Context, sku string) error
	SellProduct(ctx context.Context, sku string, quantity int64) (inventory.SaleSummary, error)
	GetDashboard(ctx context.Context) (inventory.DashboardStats, error)
	ExportSalesCSV(ctx context.Context, w io.Writer) (int, error)
}

var _ Inventory = (*inventory.Manager)(nil)

// errQuit ends the loop.
var errQuit = errors.New("quit")

// Menu is the interactive text front end.
type Menu struct {
	inv          Inventory
	in           *bufio.Scanner
	out          io.Writer
	log          *zap.Logger
	snapshotPath string
	defaultVat   float64
}

// New builds a Menu reading commands from in and writing to out. defaultVat
// is only shown in prompts; the Inventory applies its own default.
func New(inv Inventory, in io.Reader, out io.Writer, log *zap.Logger, snapshotPath string, defaultVat float64) *Menu {
	if log == nil {
		log = zap.NewNop()
	}
	return &Menu{
		inv:          inv,
		in:           bufio.NewScanner(in),
		out:          out,
		log:          log,
		snapshotPath: snapshotPath,
		defaultVat:   defaultVat,
	}
}

type action struct {
	label string
	run   func(context.Context) error
}

func (m *Menu) actions() []action {
	return []action{
		{"Initialize stock from a JSON snapshot", m.initialize},
		{"Show inventory", m.listInventory},
		{"Add a product", m.addProduct},
		{"Update a product", m.updateProduct},
		{"Delete a product", m.deleteProduct},
		{"Sell a product", m.sellProduct},
		{"Dashboard", m.dashboard},
		{"Export sales to CSV", m.exportSales},
		{"Quit", func(context.Context) error { return errQuit }},
	}
}

// Run loops until the user quits, input ends or ctx is cancelled. Errors of
// individual actions are reported and the loop goes on.
func (m *Menu) Run(ctx context.Context) error {
	acts := m.actions()
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		m.printMenu(acts)
		choice, ok := m.prompt(fmt.Sprintf("Your choice (1-%d): ", len(acts)))
		if !ok {
			fmt.Fprintln(m.out, "\nBye.")
			return nil
		}
		idx, err := strconv.Atoi(choice)
		if err != nil || idx < 1 || idx > len(acts) {
			fmt.Fprintf(m.out, "Invalid choice. Enter a number between 1 and %d.\n", len(acts))
			continue
		}
		err = acts[idx-1].run(ctx)
		if errors.Is(err, errQuit) {
			fmt.Fprintln(m.out, "Bye.")
			return nil
		}
		if err != nil {
			m.report(err)
		}
	}
}

func (m *Menu) printMenu(acts []action) {
	fmt.Fprintln(m.out, "\n"+titleStyle.Render("=== Inventory (JSON -> SQLite) ==="))
	for i, a := range acts {
		fmt.Fprintf(m.out, "%d) %s\n", i+1, a.label)
	}
}

// prompt prints text and reads one trimmed line. ok=false on end of input.
func (m *Menu) prompt(text string) (string, bool) {
	fmt.Fprint(m.out, text)
	if !m.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(m.in.Text()), true
}

// report prints a message chosen by error kind and logs the detail.
func (m *Menu) report(err error) {
	switch {
	case errors.Is(err, model.ErrStorage):
		m.log.Error("storage error", zap.Error(err))
	case model.IsKind(err):
		m.log.Warn("operation refused", zap.Error(err))
	default:
		m.log.Error("unexpected error", zap.Error(err))
	}
	fmt.Fprintln(m.out, "Error: "+Message(err))
}

// Message turns an error into the text shown to the user. Storage and
// unknown errors never leak their internal detail.
func Message(err error) string {
	switch {
	case errors.Is(err, model.ErrStorage):
		return "storage failure, see the log file for details."
	case model.IsKind(err):
		return err.Error()
	default:
		return "unexpected failure, see the log file for details."
	}
}

func (m *Menu) initialize(ctx context.Context) error {
	path, ok := m.prompt(fmt.Sprintf("JSON snapshot path [%s]: ", m.snapshotPath))
	if !ok {
		return errQuit
	}
	if path == "" {
		path = m.snapshotPath
	}
	n, err := m.inv.InitializeFromFile(ctx, path, true)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Initialization done: %d product(s) imported.\n", n)
	return nil
}

func (m *Menu) listInventory(ctx context.Context) error {
	products, err := m.inv.ListInventory(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		fmt.Fprintln(m.out, "(inventory is empty)")
		return nil
	}
	fmt.Fprintln(m.out, RenderInventory(products))
	return nil
}

func (m *Menu) addProduct(ctx context.Context) error {
	fields, ok := m.ask("SKU: ", "Name: ", "Category: ", "Price HT: ", "Quantity: ",
		"VAT rate (default "+strconv.FormatFloat(m.defaultVat, 'f', -1, 64)+"): ")
	if !ok {
		return errQuit
	}
	price, err := parseFloat("price HT", fields[3])
	if err != nil {
		return err
	}
	qty, err := parseInt("quantity", fields[4])
	if err != nil {
		return err
	}
	in := inventory.NewProduct{SKU: fields[0], Name: fields[1], Category: fields[2], UnitPriceHT: price, Quantity: qty}
	if fields[5] != "" {
		rate, err := parseFloat("VAT rate", fields[5])
		if err != nil {
			return err
		}
		in.VatRate = &rate
	}
	p, err := m.inv.AddProduct(ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Product %s added.\n", p.SKU)
	return nil
}

// updateProduct maps a blank answer to "leave unchanged".
func (m *Menu) updateProduct(ctx context.Context) error {
	sku, ok := m.prompt("SKU of the product to update: ")
	if !ok {
		return errQuit
	}
	if _, found, err := m.inv.GetProduct(ctx, sku); err != nil {
		return err
	} else if !found {
		return fmt.Errorf("%w: %s", model.ErrNotFound, sku)
	}

	fmt.Fprintln(m.out, "Leave a field blank to keep its current value.")
	fields, ok := m.ask("New name: ", "New category: ", "New price HT: ", "New quantity: ", "New VAT rate: ")
	if !ok {
		return errQuit
	}
	var in inventory.ProductUpdate
	if fields[0] != "" {
		in.Name = &fields[0]
	}
	if fields[1] != "" {
		in.Category = &fields[1]
	}
	if fields[2] != "" {
		v, err := parseFloat("price HT", fields[2])
		if err != nil {
			return err
		}
		in.UnitPriceHT = &v
	}
	if fields[3] != "" {
		v, err := parseInt("quantity", fields[3])
		if err != nil {
			return err
		}
		in.Quantity = &v
	}
	if fields[4] != "" {
		v, err := parseFloat("VAT rate", fields[4])
		if err != nil {
			return err
		}
		in.VatRate = &v
	}
	if _, err := m.inv.UpdateProduct(ctx, sku, in); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Product %s updated.\n", sku)
	return nil
}

func (m *Menu) deleteProduct(ctx context.Context) error {
	sku, ok := m.prompt("SKU of the product to delete: ")
	if !ok {
		return errQuit
	}
	confirm, ok := m.prompt(fmt.Sprintf("Delete %s? (yes/no): ", sku))
	if !ok {
		return errQuit
	}
	switch strings.ToLower(confirm) {
	case "y", "yes", "oui":
	default:
		fmt.Fprintln(m.out, "Deletion cancelled.")
		return nil
	}
	if err := m.inv.DeleteProduct(ctx, sku); err != nil {
		return err
	}
	fmt.Fprintf(m.out, "Product %s deleted.\n", sku)
	return nil
}

func (m *Menu) sellProduct(ctx context.Context) error {
	fields, ok := m.ask("Product SKU: ", "Quantity to sell: ")
	if !ok {
		return errQuit
	}
	qty, err := parseInt("quantity", fields[1])
	if err != nil {
		return err
	}
	summary, err := m.inv.SellProduct(ctx, fields[0], qty)
	if err != nil {
		return err
	}
	fmt.Fprint(m.out, RenderSale(summary))
	return nil
}

func (m *Menu) dashboard(ctx context.Context) error {
	stats, err := m.inv.GetDashboard(ctx)
	if err != nil {
		return err
	}
	fmt.Fprint(m.out, RenderDashboard(stats))
	return nil
}

func (m *Menu) exportSales(ctx context.Context) error {
	path, ok := m.prompt("CSV output path [sales.csv]: ")
	if !ok {
		return errQuit
	}
	if path == "" {
		path = "sales.csv"
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrStorage, err)
	}
	n, err := m.inv.ExportSalesCSV(ctx, f)
	if cerr := f.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %v", model.ErrStorage, cerr)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(m.out, "%d sale(s) exported to %s.\n", n, path)
	return nil
}

// ask prompts each question in turn.
func (m *Menu) ask(questions ...string) ([]string, bool) {
	answers := make([]string, len(questions))
	for i, q := range questions {
		a, ok := m.prompt(q)
		if !ok {
			return nil, false
		}
		answers[i] = a
	}
	return answers, true
}

func parseFloat(field, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s must be a number", model.ErrValidation, field)
	}
	return v, nil
}

func parseInt(field, s string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", model.ErrValidation, field)
	}
	return v, nil
}
