package simulation

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunInfo identifies one generated dataset
// 生成データセットの実行情報
type RunInfo struct {
	ID        string    `json:"run_id" db:"run_id"`         // 実行ID（UUID）
	Seed      int64     `json:"seed" db:"seed"`             // 乱数シード
	StartDate time.Time `json:"start_date" db:"start_date"` // 開始日
	EndDate   time.Time `json:"end_date" db:"end_date"`     // 終了日
	CreatedAt time.Time `json:"created_at" db:"created_at"` // 作成日時
}

// NewRunInfo creates run metadata with a fresh identifier
// 新しい実行IDで実行情報を作成
func NewRunInfo(seed int64, start, end time.Time) RunInfo {
	return RunInfo{
		ID:        uuid.New().String(),
		Seed:      seed,
		StartDate: civil(start),
		EndDate:   civil(end),
		CreatedAt: time.Now().UTC(),
	}
}

// Dataset bundles a run's inputs and outputs
// 実行の入力と出力をまとめたデータセット
type Dataset struct {
	Run      RunInfo   `json:"run"`
	Products []Product `json:"products"`
	Stores   []Store   `json:"stores"`
	Result   *Result   `json:"result"`
}

// Export writes every table of the dataset to sink, stopping at the first error
// データセットの全テーブルをシンクへ書き込み
func Export(ctx context.Context, sink Sink, ds *Dataset) error {
	if err := sink.WriteRun(ctx, ds.Run); err != nil {
		return NewStorageError("write_run", "実行情報の書き込みに失敗しました", err)
	}
	if err := sink.WriteProducts(ctx, ds.Products); err != nil {
		return NewStorageError("write_products", "商品の書き込みに失敗しました", err)
	}
	if err := sink.WriteStores(ctx, ds.Stores); err != nil {
		return NewStorageError("write_stores", "店舗の書き込みに失敗しました", err)
	}
	if ds.Result == nil {
		return nil
	}
	if err := sink.WriteTransactions(ctx, ds.Result.Transactions); err != nil {
		return NewStorageError("write_transactions", "販売記録の書き込みに失敗しました", err)
	}
	if err := sink.WriteInventory(ctx, ds.Result.Inventory); err != nil {
		return NewStorageError("write_inventory", "在庫台帳の書き込みに失敗しました", err)
	}
	if err := sink.WriteFactoryOrders(ctx, ds.Result.FactoryOrders); err != nil {
		return NewStorageError("write_factory_orders", "工場発注の書き込みに失敗しました", err)
	}
	return nil
}
