package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// PostgreSQLSink implements simulation.Sink using PostgreSQL
// PostgreSQLを使用したSinkの実装
//
// Row tables are bulk-loaded with COPY, one transaction per table. When a
// table fails the run header is deleted and the committed tables go with it
// through ON DELETE CASCADE; later writes return ErrRunNotStarted.
type PostgreSQLSink struct {
	db     *sql.DB
	logger *zap.Logger
	runID  string
}

// NewPostgreSQLSink opens a connection pool and checks it with a ping
// 新しいPostgreSQLシンクを作成
func NewPostgreSQLSink(dsn string, logger *zap.Logger) (*PostgreSQLSink, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続テスト
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベースpingに失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return NewPostgreSQLSinkWithDB(db, logger), nil
}

// NewPostgreSQLSinkWithDB wraps an existing connection pool
func NewPostgreSQLSinkWithDB(db *sql.DB, logger *zap.Logger) *PostgreSQLSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgreSQLSink{db: db, logger: logger}
}

// WriteRun inserts the run header; later tables reference its run_id
// 実行情報を登録
func (s *PostgreSQLSink) WriteRun(ctx context.Context, run simulation.RunInfo) error {
	query := `
		INSERT INTO simulation_runs (run_id, seed, start_date, end_date, created_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := s.db.ExecContext(ctx, query, runRow(run)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("実行ID %s は既に登録されています", run.ID)
		}
		return fmt.Errorf("実行情報の登録に失敗しました: %w", err)
	}

	s.runID = run.ID
	return nil
}

// withRun prepends the run identifier to a row
func withRun(runID string, row []any) []any {
	out := make([]any, 0, len(row)+1)
	out = append(out, runID)
	return append(out, row...)
}

func runColumns(columns []string) []string {
	return append([]string{"run_id"}, columns...)
}

// copy bulk-loads n rows into table; on failure the whole run is discarded
// COPYで一括登録
func (s *PostgreSQLSink) copy(ctx context.Context, table string, columns []string, n int, row func(i int) []any) error {
	if s.runID == "" {
		return simulation.ErrRunNotStarted
	}
	if n == 0 {
		return nil
	}

	if err := s.copyTable(ctx, table, columns, n, row); err != nil {
		s.discard(ctx)
		return err
	}
	return nil
}

// discard deletes the run header; row tables cascade
// 出力途中の実行情報を削除
func (s *PostgreSQLSink) discard(ctx context.Context) {
	runID := s.runID
	s.runID = ""

	// 呼び出し元のキャンセル後でも削除する
	_, err := s.db.ExecContext(context.WithoutCancel(ctx), `DELETE FROM simulation_runs WHERE run_id = $1`, runID)
	if err != nil {
		s.logger.Error("実行情報の削除に失敗しました", zap.String("run_id", runID), zap.Error(err))
		return
	}
	s.logger.Warn("出力に失敗したため実行情報を削除しました", zap.String("run_id", runID))
}

// copyTable runs one COPY inside a single transaction
func (s *PostgreSQLSink) copyTable(ctx context.Context, table string, columns []string, n int, row func(i int) []any) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗しました: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("ロールバックに失敗しました", zap.String("table", table), zap.Error(rbErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn(table, runColumns(columns)...))
	if err != nil {
		return fmt.Errorf("COPY準備に失敗しました: %w", err)
	}

	for i := 0; i < n; i++ {
		if _, err = stmt.ExecContext(ctx, withRun(s.runID, row(i))...); err != nil {
			stmt.Close()
			return fmt.Errorf("%s 行 %d のCOPYに失敗しました: %w", table, i+1, err)
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		return fmt.Errorf("COPYのフラッシュに失敗しました: %w", err)
	}
	if err = stmt.Close(); err != nil {
		return fmt.Errorf("COPY終了に失敗しました: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗しました: %w", err)
	}

	s.logger.Debug("COPY完了",
		zap.String("table", table),
		zap.String("run_id", s.runID),
		zap.Int("rows", n),
	)
	return nil
}

// WriteProducts copies the product catalog
func (s *PostgreSQLSink) WriteProducts(ctx context.Context, products []simulation.Product) error {
	return s.copy(ctx, TableProducts, ProductColumns, len(products), func(i int) []any { return productRow(products[i]) })
}

// WriteStores copies the store list
func (s *PostgreSQLSink) WriteStores(ctx context.Context, stores []simulation.Store) error {
	return s.copy(ctx, TableStores, StoreColumns, len(stores), func(i int) []any { return storeRow(stores[i]) })
}

// WriteTransactions copies the sales rows
func (s *PostgreSQLSink) WriteTransactions(ctx context.Context, records []simulation.TransactionRecord) error {
	return s.copy(ctx, TableTransactions, TransactionColumns, len(records), func(i int) []any { return transactionRow(records[i]) })
}

// WriteInventory copies the warehouse ledger
func (s *PostgreSQLSink) WriteInventory(ctx context.Context, records []simulation.InventoryRecord) error {
	return s.copy(ctx, TableInventory, InventoryColumns, len(records), func(i int) []any { return inventoryRow(records[i]) })
}

// WriteFactoryOrders copies the factory orders
func (s *PostgreSQLSink) WriteFactoryOrders(ctx context.Context, orders []simulation.PendingShipment) error {
	return s.copy(ctx, TableFactoryOrders, OrderColumns, len(orders), func(i int) []any { return orderRow(orders[i]) })
}

// Close closes the database connection
// データベース接続をクローズ
func (s *PostgreSQLSink) Close() error {
	return s.db.Close()
}
