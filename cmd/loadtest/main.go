package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"inventory/internal/inventory"
	"inventory/internal/model"
	"inventory/internal/store"

	"golang.org/x/sync/errgroup"
)

// Result 记录单次售卖的结果，便于聚合统计。
type Result struct {
	Err     error
	Elapsed time.Duration
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run 执行压测并返回退出码；所有清理都走 defer，失败时同样生效。
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	dbPath := fs.String("db", "", "sqlite file (default: a fresh file in a temp dir)")
	sku := fs.String("sku", "LOAD-001", "sku of the seeded product")
	stock := fs.Int64("stock", 100, "initial stock of the seeded product")
	// 超卖测试参数：200 个买家并发抢 100 件
	nBuyers := fs.Int("buyers", 200, "concurrent sell requests")
	qty := fs.Int64("qty", 1, "units per sell request")
	concurrency := fs.Int("c", 50, "max concurrency")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	fail := func(format string, a ...any) int {
		fmt.Fprintf(stderr, "FAIL: "+format+"\n", a...)
		return 1
	}
	if *qty <= 0 || *stock < 0 || *nBuyers <= 0 || *concurrency <= 0 {
		return fail("qty, buyers and c must be > 0, stock >= 0")
	}

	if *dbPath == "" {
		dir, err := os.MkdirTemp("", "inventory-loadtest-")
		if err != nil {
			return fail("temp dir: %v", err)
		}
		defer os.RemoveAll(dir)
		*dbPath = filepath.Join(dir, "loadtest.db")
	}

	st, err := store.Open(*dbPath, store.Options{BusyTimeout: 10 * time.Second}, nil)
	if err != nil {
		return fail("open store: %v", err)
	}
	defer st.Close()
	mgr := inventory.NewManager(st, inventory.WithTimeout(time.Minute))
	ctx := context.Background()

	// 先重置并写入压测商品，避免历史数据导致结果偏差。
	if _, err := mgr.InitializeFromSource(ctx, []inventory.ImportRecord{seed(*sku, *stock)}, true); err != nil {
		return fail("seed: %v", err)
	}
	before, err := st.Ledger().Count(ctx)
	if err != nil {
		return fail("count sales: %v", err)
	}

	fmt.Fprintf(stdout, "start oversell test: sku=%s stock=%d buyers=%d qty=%d concurrency=%d\n",
		*sku, *stock, *nBuyers, *qty, *concurrency)
	start := time.Now()
	results := runSell(ctx, mgr, *sku, *qty, *nBuyers, *concurrency)
	fmt.Fprintf(stdout, "done in %s\n", time.Since(start).Round(time.Millisecond))
	ok := printSummary(stdout, "oversell", results)

	p, found, err := mgr.GetProduct(ctx, *sku)
	if err != nil || !found {
		return fail("reload product: found=%v err=%v", found, err)
	}
	after, err := st.Ledger().Count(ctx)
	if err != nil {
		return fail("count sales: %v", err)
	}
	fmt.Fprintln(stdout, "final stock:", p.Quantity)
	fmt.Fprintln(stdout, "ledger entries added:", after-before)

	want := *stock - int64(ok)*(*qty)
	expectSold := min(int64(*nBuyers), *stock/(*qty))
	switch {
	case p.Quantity < 0:
		return fail("stock went negative")
	case p.Quantity != want:
		return fail("stock %d, expected %d", p.Quantity, want)
	case after-before != int64(ok):
		return fail("ledger entries %d, successful sales %d", after-before, ok)
	case int64(ok) != expectSold:
		return fail("successful sales %d, expected %d", ok, expectSold)
	}
	fmt.Fprintln(stdout, "PASS")
	return 0
}

func seed(sku string, stock int64) inventory.ImportRecord {
	name, category := "load test item", "test"
	price, vat := 10.0, 0.2
	return inventory.ImportRecord{
		SKU: &sku, Name: &name, Category: &category,
		UnitPriceHT: &price, VatRate: &vat, Quantity: &stock,
	}
}

func runSell(ctx context.Context, mgr *inventory.Manager, sku string, qty int64, n, concurrency int) []Result {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make([]Result, 0, n)
	)
	g.SetLimit(concurrency)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			begin := time.Now()
			_, err := mgr.SellProduct(ctx, sku, qty)
			mu.Lock()
			results = append(results, Result{Err: err, Elapsed: time.Since(begin)})
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// printSummary 聚合输出不同结果的分布，返回成功次数。
func printSummary(w io.Writer, name string, results []Result) int {
	var ok, insufficient, other int
	var slowest time.Duration
	for _, r := range results {
		slowest = max(slowest, r.Elapsed)
		switch {
		case r.Err == nil:
			ok++
		case errors.Is(r.Err, model.ErrInsufficientStock):
			insufficient++
		default:
			other++
			fmt.Fprintln(w, "  unexpected:", r.Err)
		}
	}
	fmt.Fprintf(w, "[%s] summary:\n", name)
	fmt.Fprintf(w, "  sold -> %d\n", ok)
	fmt.Fprintf(w, "  insufficient stock -> %d\n", insufficient)
	if other > 0 {
		fmt.Fprintf(w, "  errors -> %d\n", other)
	}
	fmt.Fprintf(w, "  slowest -> %s\n", slowest.Round(time.Millisecond))
	return ok
}
