package simulation

import (
	"context"
	"time"
)

// Observer receives notable events while a run progresses
// シミュレーション中のイベント通知を受け取るインターフェース
//
// With Params.Workers > 1 the callbacks are invoked from several goroutines,
// so implementations must be safe for concurrent use.
type Observer interface {
	OnReorder(event ReorderEvent)
	OnStockAlert(event StockAlertEvent)
	OnRunCompleted(summary Summary)
}

// Sink defines the persistence layer for a finished dataset
// データセット永続化層のインターフェースを定義
type Sink interface {
	WriteRun(ctx context.Context, run RunInfo) error
	WriteProducts(ctx context.Context, products []Product) error
	WriteStores(ctx context.Context, stores []Store) error
	WriteTransactions(ctx context.Context, records []TransactionRecord) error
	WriteInventory(ctx context.Context, records []InventoryRecord) error
	WriteFactoryOrders(ctx context.Context, orders []PendingShipment) error
	Close() error
}

// AlertType defines types of warehouse alerts
// 倉庫アラートのタイプを定義
type AlertType string

const (
	AlertTypeStockout  AlertType = "stockout"  // 欠品
	AlertTypeOverstock AlertType = "overstock" // 過剰在庫
)

// ReorderEvent represents a factory order being placed
// 工場発注イベントを表現
type ReorderEvent struct {
	OrderID     string    `json:"order_id"`
	ProductID   string    `json:"product_id"`
	OrderDate   time.Time `json:"order_date"`
	ArrivalDate time.Time `json:"arrival_date"`
	Quantity    int64     `json:"quantity"`
	Projected   int64     `json:"projected"` // 補充後残高 + 当日入荷
	Threshold   int64     `json:"threshold"`
}

// StockAlertEvent represents a stockout or overstock day
// 欠品・過剰在庫イベントを表現
type StockAlertEvent struct {
	Type      AlertType `json:"type"`
	ProductID string    `json:"product_id"`
	Date      time.Time `json:"date"`
	Ending    int64     `json:"ending"`
	Threshold int64     `json:"threshold"`
}
