package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

const defaultSheet = "Sheet1"

// ExcelSink writes every table to its own sheet of a single workbook
// 1つのブックにテーブルごとのシートを出力するシンク
type ExcelSink struct {
	path    string
	file    *excelize.File
	logger  *zap.Logger
	sheets  int
	maxRows int
}

// NewExcelSink creates an empty workbook that is saved to path on Close
// 新しいExcelシンクを作成（Close時に保存）
func NewExcelSink(path string, logger *zap.Logger) *ExcelSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExcelSink{
		path:    path,
		file:    excelize.NewFile(),
		logger:  logger,
		maxRows: excelize.TotalRows,
	}
}

// excelCell converts a row value to a type excelize stores natively
func excelCell(v any) any {
	switch val := v.(type) {
	case decimal.Decimal:
		return val.InexactFloat64()
	case Date:
		return val.String()
	case time.Time:
		return val.Format(time.RFC3339)
	default:
		return v
	}
}

func (s *ExcelSink) write(ctx context.Context, sheet string, header []string, n int, row func(i int) []any) error {
	// ヘッダー行を含めてシートの最大行数を超える場合はエラー
	if n+1 > s.maxRows {
		return simulation.NewStorageError("xlsx_row_limit",
			fmt.Sprintf("シート %s の行数が上限を超えています: %d", sheet, n+1), nil)
	}

	if _, err := s.file.NewSheet(sheet); err != nil {
		return fmt.Errorf("シート作成に失敗しました: %w", err)
	}
	sw, err := s.file.NewStreamWriter(sheet)
	if err != nil {
		return fmt.Errorf("ストリームライター作成に失敗しました: %w", err)
	}

	headerRow := make([]any, len(header))
	for i, h := range header {
		headerRow[i] = h
	}
	if err := sw.SetRow("A1", headerRow); err != nil {
		return fmt.Errorf("ヘッダー書き込みに失敗しました: %w", err)
	}

	for i := 0; i < n; i++ {
		if i%10000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := row(i)
		for j := range values {
			values[j] = excelCell(values[j])
		}
		if err := sw.SetRow(cell, values); err != nil {
			return fmt.Errorf("行 %d の書き込みに失敗しました: %w", i+1, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("シートのフラッシュに失敗しました: %w", err)
	}

	s.sheets++
	s.logger.Debug("シート書き込み完了",
		zap.String("sheet", sheet),
		zap.Int("rows", n),
	)
	return nil
}

// WriteRun writes the simulation_runs sheet
func (s *ExcelSink) WriteRun(ctx context.Context, run simulation.RunInfo) error {
	return s.write(ctx, TableRuns, RunColumns, 1, func(int) []any { return runRow(run) })
}

// WriteProducts writes the products sheet
func (s *ExcelSink) WriteProducts(ctx context.Context, products []simulation.Product) error {
	return s.write(ctx, TableProducts, ProductColumns, len(products), func(i int) []any { return productRow(products[i]) })
}

// WriteStores writes the stores sheet
func (s *ExcelSink) WriteStores(ctx context.Context, stores []simulation.Store) error {
	return s.write(ctx, TableStores, StoreColumns, len(stores), func(i int) []any { return storeRow(stores[i]) })
}

// WriteTransactions writes the transactions sheet
func (s *ExcelSink) WriteTransactions(ctx context.Context, records []simulation.TransactionRecord) error {
	return s.write(ctx, TableTransactions, TransactionColumns, len(records), func(i int) []any { return transactionRow(records[i]) })
}

// WriteInventory writes the inventory sheet
func (s *ExcelSink) WriteInventory(ctx context.Context, records []simulation.InventoryRecord) error {
	return s.write(ctx, TableInventory, InventoryColumns, len(records), func(i int) []any { return inventoryRow(records[i]) })
}

// WriteFactoryOrders writes the factory_orders sheet
func (s *ExcelSink) WriteFactoryOrders(ctx context.Context, orders []simulation.PendingShipment) error {
	return s.write(ctx, TableFactoryOrders, OrderColumns, len(orders), func(i int) []any { return orderRow(orders[i]) })
}

// Close saves the workbook and releases it
// ブックを保存してクローズ
func (s *ExcelSink) Close() error {
	defer s.file.Close()

	if s.sheets > 0 {
		if err := s.file.DeleteSheet(defaultSheet); err != nil {
			return fmt.Errorf("既定シートの削除に失敗しました: %w", err)
		}
		s.file.SetActiveSheet(0)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return simulation.NewStorageError("mkdir", fmt.Sprintf("出力ディレクトリを作成できません: %s", filepath.Dir(s.path)), err)
	}
	if err := s.file.SaveAs(s.path); err != nil {
		return simulation.NewStorageError("xlsx_save", fmt.Sprintf("ブックの保存に失敗しました: %s", s.path), err)
	}

	s.logger.Info("Excelブックを保存しました", zap.String("path", s.path), zap.Int("sheets", s.sheets))
	return nil
}
