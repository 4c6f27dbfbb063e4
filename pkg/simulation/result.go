package simulation

import (
	"github.com/shopspring/decimal"
)

// Result holds the ledgers produced by one run
// 1回の実行で生成された台帳
type Result struct {
	Transactions  []TransactionRecord `json:"transactions"`   // 日付 → 商品 → 店舗 の順
	Inventory     []InventoryRecord   `json:"inventory"`      // 日付 → 商品 の順
	FactoryOrders []PendingShipment   `json:"factory_orders"` // 発注日 → 商品 の順
	Warehouse     []WarehouseState    `json:"warehouse"`      // 商品の入力順

	DayCount     int `json:"days"`
	ProductCount int `json:"products"`
	StoreCount   int `json:"stores"`
}

// Summary aggregates a run
// 実行結果の集計
type Summary struct {
	Days                  int             `json:"days"`
	Products              int             `json:"products"`
	Stores                int             `json:"stores"`
	Transactions          int             `json:"transactions"`
	PromoTransactions     int             `json:"promo_transactions"`
	UnitsSold             int64           `json:"units_sold"`
	Revenue               decimal.Decimal `json:"revenue_eur"`
	UnitsShipped          int64           `json:"units_shipped_to_stores"`
	UnitsReceived         int64           `json:"units_received_from_factory"`
	FactoryOrders         int             `json:"factory_orders"`
	FactoryOrdersReceived int             `json:"factory_orders_received"`
	StockoutDays          int             `json:"stockout_days"`
	OverstockDays         int             `json:"overstock_days"`
}

// Summary computes the run totals
// 集計値を計算
func (r *Result) Summary() Summary {
	s := Summary{
		Days:          r.DayCount,
		Products:      r.ProductCount,
		Stores:        r.StoreCount,
		Transactions:  len(r.Transactions),
		FactoryOrders: len(r.FactoryOrders),
		Revenue:       decimal.Zero,
	}

	for _, tx := range r.Transactions {
		s.UnitsSold += tx.UnitsSold
		s.Revenue = s.Revenue.Add(tx.UnitPrice.Mul(decimal.NewFromInt(tx.UnitsSold)))
		if tx.Promo {
			s.PromoTransactions++
		}
	}
	for _, rec := range r.Inventory {
		s.UnitsShipped += rec.Shipped
		s.UnitsReceived += rec.Received
		if rec.Stockout {
			s.StockoutDays++
		}
		if rec.Overstock {
			s.OverstockDays++
		}
	}
	for _, o := range r.FactoryOrders {
		if o.Received {
			s.FactoryOrdersReceived++
		}
	}

	return s
}

// CheckConservation returns the first ledger row where
// Ending != Starting + Received - Shipped, or nil
// 在庫保存則（期末 = 期首 + 入荷 - 出荷）に反する最初の行を返す
func (r *Result) CheckConservation() *InventoryRecord {
	for i := range r.Inventory {
		rec := &r.Inventory[i]
		if rec.Ending != rec.Starting+rec.Received-rec.Shipped {
			return rec
		}
	}
	return nil
}

// InventoryFor returns the ledger rows of one product
func (r *Result) InventoryFor(productID string) []InventoryRecord {
	var rows []InventoryRecord
	for _, rec := range r.Inventory {
		if rec.ProductID == productID {
			rows = append(rows, rec)
		}
	}
	return rows
}
