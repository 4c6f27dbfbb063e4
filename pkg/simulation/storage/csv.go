package storage

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// CSVSink writes each table to <dir>/<table>.csv
// テーブルごとにCSVファイルを出力するシンク
type CSVSink struct {
	dir    string
	logger *zap.Logger
}

// NewCSVSink creates the output directory and returns a sink writing into it
// 出力ディレクトリを作成してCSVシンクを返す
func NewCSVSink(dir string, logger *zap.Logger) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, simulation.NewStorageError("mkdir", fmt.Sprintf("出力ディレクトリを作成できません: %s", dir), err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVSink{dir: dir, logger: logger}, nil
}

// Dir returns the output directory
func (s *CSVSink) Dir() string {
	return s.dir
}

// FileName returns the file a table is written to
func FileName(table string) string {
	if table == TableRuns {
		return "run.csv"
	}
	return table + ".csv"
}

func (s *CSVSink) write(ctx context.Context, table string, header []string, n int, row func(i int) []any) error {
	path := filepath.Join(s.dir, FileName(table))
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("ファイル作成に失敗しました: %w", err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("ヘッダー書き込みに失敗しました: %w", err)
	}
	for i := 0; i < n; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		if err := w.Write(formatRow(row(i))); err != nil {
			return fmt.Errorf("行 %d の書き込みに失敗しました: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("CSVフラッシュに失敗しました: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("ファイルクローズに失敗しました: %w", err)
	}

	s.logger.Debug("CSV書き込み完了",
		zap.String("file", path),
		zap.Int("rows", n),
	)
	return nil
}

// WriteRun writes run.csv
func (s *CSVSink) WriteRun(ctx context.Context, run simulation.RunInfo) error {
	return s.write(ctx, TableRuns, RunColumns, 1, func(int) []any { return runRow(run) })
}

// WriteProducts writes products.csv
func (s *CSVSink) WriteProducts(ctx context.Context, products []simulation.Product) error {
	return s.write(ctx, TableProducts, ProductColumns, len(products), func(i int) []any { return productRow(products[i]) })
}

// WriteStores writes stores.csv
func (s *CSVSink) WriteStores(ctx context.Context, stores []simulation.Store) error {
	return s.write(ctx, TableStores, StoreColumns, len(stores), func(i int) []any { return storeRow(stores[i]) })
}

// WriteTransactions writes transactions.csv
func (s *CSVSink) WriteTransactions(ctx context.Context, records []simulation.TransactionRecord) error {
	return s.write(ctx, TableTransactions, TransactionColumns, len(records), func(i int) []any { return transactionRow(records[i]) })
}

// WriteInventory writes inventory.csv
func (s *CSVSink) WriteInventory(ctx context.Context, records []simulation.InventoryRecord) error {
	return s.write(ctx, TableInventory, InventoryColumns, len(records), func(i int) []any { return inventoryRow(records[i]) })
}

// WriteFactoryOrders writes factory_orders.csv
func (s *CSVSink) WriteFactoryOrders(ctx context.Context, orders []simulation.PendingShipment) error {
	return s.write(ctx, TableFactoryOrders, OrderColumns, len(orders), func(i int) []any { return orderRow(orders[i]) })
}

// Close is a no-op; every file is closed once written
func (s *CSVSink) Close() error {
	return nil
}
