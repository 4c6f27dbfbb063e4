// Package simulation provides the multi-tier inventory and sales simulation
package simulation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Season is the selling season a product is tagged with
// 商品に付与される販売シーズン
type Season string

const (
	SeasonSpring Season = "Spring" // 春
	SeasonSummer Season = "Summer" // 夏
	SeasonAutumn Season = "Autumn" // 秋
	SeasonWinter Season = "Winter" // 冬
)

// Seasons lists every valid season tag
var Seasons = []Season{SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter}

// Valid reports whether s is one of the four season tags
func (s Season) Valid() bool {
	switch s {
	case SeasonSpring, SeasonSummer, SeasonAutumn, SeasonWinter:
		return true
	}
	return false
}

// Peaks reports whether month falls inside the season's demand band
// 指定月がシーズンの需要期間に含まれるか判定
func (s Season) Peaks(month time.Month) bool {
	switch s {
	case SeasonSummer:
		return month >= time.June && month <= time.August
	case SeasonWinter:
		return month == time.December || month <= time.February
	}
	return false
}

// Product represents an article in the catalog
// カタログ内の商品を表現
type Product struct {
	ID       string          `json:"product_id" db:"product_id"` // 商品ID
	Category string          `json:"category" db:"category"`     // カテゴリ
	Brand    string          `json:"brand" db:"brand"`           // ブランド
	Gender   string          `json:"gender" db:"gender"`         // 対象
	Color    string          `json:"color" db:"color"`           // 色
	Size     string          `json:"size" db:"size"`             // サイズ
	Season   Season          `json:"season" db:"season"`         // シーズン
	Price    decimal.Decimal `json:"price_eur" db:"price_eur"`   // 基本価格
}

// Store represents a retail store
// 小売店舗を表現
type Store struct {
	ID        string `json:"store_id" db:"store_id"`     // 店舗ID
	City      string `json:"city" db:"city"`             // 都市
	Region    string `json:"region" db:"region"`         // 地域
	StoreType string `json:"store_type" db:"store_type"` // 店舗タイプ
}

// TransactionRecord is one day of sales of a product at a store
// 店舗における商品の1日分の販売記録
type TransactionRecord struct {
	ID        string          `json:"transaction_id" db:"transaction_id"` // 取引ID
	Date      time.Time       `json:"date" db:"date"`                     // 日付
	StoreID   string          `json:"store_id" db:"store_id"`             // 店舗ID
	ProductID string          `json:"product_id" db:"product_id"`         // 商品ID
	UnitsSold int64           `json:"units_sold" db:"units_sold"`         // 販売数量
	UnitPrice decimal.Decimal `json:"unit_price_eur" db:"unit_price_eur"` // 割引後単価
	Discount  int             `json:"discount_applied" db:"discount_applied"`
	Promo     bool            `json:"promo_flag" db:"promo_flag"`
}

// InventoryRecord is the end-of-day warehouse ledger row for a product
// 商品ごとの倉庫在庫台帳（日次）
type InventoryRecord struct {
	Date      time.Time `json:"date" db:"date"`                                   // 日付
	ProductID string    `json:"product_id" db:"product_id"`                       // 商品ID
	Starting  int64     `json:"starting_inventory" db:"starting_inventory"`       // 期首在庫
	Received  int64     `json:"received_from_factory" db:"received_from_factory"` // 工場からの入荷
	Shipped   int64     `json:"shipped_to_stores" db:"shipped_to_stores"`         // 店舗への出荷
	Ending    int64     `json:"ending_inventory" db:"ending_inventory"`           // 期末在庫
	Stockout  bool      `json:"stockout_flag" db:"stockout_flag"`                 // 欠品
	Overstock bool      `json:"overstock_flag" db:"overstock_flag"`               // 過剰在庫
}

// PendingShipment is a factory-to-warehouse delivery
// 工場から倉庫への配送予定
type PendingShipment struct {
	ID          string    `json:"order_id" db:"order_id"`         // 発注ID
	ProductID   string    `json:"product_id" db:"product_id"`     // 商品ID
	OrderDate   time.Time `json:"order_date" db:"order_date"`     // 発注日
	ArrivalDate time.Time `json:"arrival_date" db:"arrival_date"` // 入荷予定日
	Quantity    int64     `json:"quantity" db:"quantity"`         // 数量
	Received    bool      `json:"received" db:"received"`         // 入荷済み
}

// WarehouseState is the end-of-day stock series of one product
// 商品ごとの倉庫在庫の推移
type WarehouseState struct {
	ProductID string  `json:"product_id"`
	Levels    []int64 `json:"levels"` // 初期在庫 + 各日の期末在庫
}

// Latest returns the most recent stock level
func (w *WarehouseState) Latest() int64 {
	if len(w.Levels) == 0 {
		return 0
	}
	return w.Levels[len(w.Levels)-1]
}

func (w *WarehouseState) record(level int64) {
	w.Levels = append(w.Levels, level)
}

// StoreStockTable holds the current stock of every (store, product) pair
// 店舗×商品の現在在庫
//
// Slots are resolved once: product slot p owns the row stock[p*stores : (p+1)*stores],
// stores in input order.
type StoreStockTable struct {
	stores int
	stock  []int64
}

// NewStoreStockTable creates a table with every cell set to initial
func NewStoreStockTable(products, stores int, initial int64) *StoreStockTable {
	t := &StoreStockTable{
		stores: stores,
		stock:  make([]int64, products*stores),
	}
	for i := range t.stock {
		t.stock[i] = initial
	}
	return t
}

// Row returns the mutable stock row of a product slot
func (t *StoreStockTable) Row(productSlot int) []int64 {
	return t.stock[productSlot*t.stores : (productSlot+1)*t.stores]
}

// Get returns the stock of a (product slot, store slot) pair
func (t *StoreStockTable) Get(productSlot, storeSlot int) int64 {
	return t.stock[productSlot*t.stores+storeSlot]
}

// NewTransactionID builds the identifier of a sales row
// 販売記録IDを生成（店舗_商品_日付）
func NewTransactionID(storeID, productID string, date time.Time) string {
	return fmt.Sprintf("%s_%s_%s", storeID, productID, date.Format(DateLayout))
}

// NewOrderID builds the identifier of a factory order
// 工場発注IDを生成
func NewOrderID(productID string, orderDate time.Time) string {
	return fmt.Sprintf("PO_%s_%s", productID, orderDate.Format(DateLayout))
}
