// Package storage implements simulation.Sink for files and databases
package storage

import (
	"database/sql/driver"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// Table names shared by every sink
// 全シンク共通のテーブル名
const (
	TableRuns          = "simulation_runs"
	TableProducts      = "products"
	TableStores        = "stores"
	TableTransactions  = "transactions"
	TableInventory     = "inventory"
	TableFactoryOrders = "factory_orders"
)

// Column layouts. Database tables prepend run_id to every row table
// 各テーブルの列定義
var (
	RunColumns         = []string{"run_id", "seed", "start_date", "end_date", "created_at"}
	ProductColumns     = []string{"product_id", "category", "brand", "gender", "color", "size", "price_eur", "season"}
	StoreColumns       = []string{"store_id", "city", "region", "store_type"}
	TransactionColumns = []string{"transaction_id", "date", "store_id", "product_id", "units_sold", "unit_price_eur", "discount_applied", "promo_flag"}
	InventoryColumns   = []string{"date", "product_id", "starting_inventory", "received_from_factory", "shipped_to_stores", "ending_inventory", "stockout_flag", "overstock_flag"}
	OrderColumns       = []string{"order_id", "product_id", "order_date", "arrival_date", "quantity", "received"}
)

// Date is a calendar day value; it renders as YYYY-MM-DD in files
// and binds as a timestamp in SQL
type Date time.Time

// Value implements driver.Valuer
func (d Date) Value() (driver.Value, error) {
	return time.Time(d), nil
}

func (d Date) String() string {
	return time.Time(d).Format(simulation.DateLayout)
}

func runRow(run simulation.RunInfo) []any {
	return []any{run.ID, run.Seed, Date(run.StartDate), Date(run.EndDate), run.CreatedAt.UTC()}
}

func productRow(p simulation.Product) []any {
	return []any{p.ID, p.Category, p.Brand, p.Gender, p.Color, p.Size, p.Price, string(p.Season)}
}

func storeRow(s simulation.Store) []any {
	return []any{s.ID, s.City, s.Region, s.StoreType}
}

func transactionRow(r simulation.TransactionRecord) []any {
	return []any{r.ID, Date(r.Date), r.StoreID, r.ProductID, r.UnitsSold, r.UnitPrice, r.Discount, r.Promo}
}

func inventoryRow(r simulation.InventoryRecord) []any {
	return []any{Date(r.Date), r.ProductID, r.Starting, r.Received, r.Shipped, r.Ending, r.Stockout, r.Overstock}
}

func orderRow(o simulation.PendingShipment) []any {
	return []any{o.ID, o.ProductID, Date(o.OrderDate), Date(o.ArrivalDate), o.Quantity, o.Received}
}

// formatCell renders a row value as text
// セル値を文字列に変換
func formatCell(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case bool:
		// 元データ形式に合わせて 0/1 で出力
		if val {
			return "1"
		}
		return "0"
	case decimal.Decimal:
		return val.StringFixed(2)
	case Date:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return ""
	}
}

func formatRow(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = formatCell(v)
	}
	return out
}
