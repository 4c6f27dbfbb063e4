package main

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/pkg/logger"
)

func main() {
	envFile := flag.String("env-file", "", "環境変数ファイル（.env）のパス")
	flag.Parse()

	// 設定読み込み
	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("設定読み込みに失敗しました:", err)
	}

	base, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		log.Fatal("ログ初期化に失敗しました:", err)
	}
	defer base.Sync()
	lg := logger.Named(base, "migrate")

	lg.Info("zaiSupplySim マイグレーション実行ツール")
	lg.Info("データベースに接続中",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("dbname", cfg.Database.DBName),
	)

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		lg.Fatal("データベース接続に失敗しました", zap.Error(err))
	}
	defer db.Close()

	// 接続テスト
	if err := db.Ping(); err != nil {
		lg.Fatal("データベースpingに失敗しました", zap.Error(err))
	}

	// マイグレーションディレクトリの確認
	migrationDir := "migrations"
	if flag.NArg() > 0 {
		migrationDir = flag.Arg(0)
	}
	if _, err := os.Stat(migrationDir); os.IsNotExist(err) {
		lg.Fatal("マイグレーションディレクトリが見つかりません", zap.String("dir", migrationDir))
	}

	// マイグレーション履歴テーブルの作成
	if err := createMigrationTable(db); err != nil {
		lg.Fatal("マイグレーション履歴テーブル作成に失敗しました", zap.Error(err))
	}

	// マイグレーション実行
	if err := runMigrations(db, migrationDir, lg); err != nil {
		lg.Fatal("マイグレーション実行に失敗しました", zap.Error(err))
	}

	lg.Info("すべてのマイグレーションが完了しました")
}

// createMigrationTable マイグレーション履歴テーブルを作成
func createMigrationTable(db *sql.DB) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			id SERIAL PRIMARY KEY,
			filename VARCHAR(255) NOT NULL UNIQUE,
			executed_at TIMESTAMP NOT NULL DEFAULT NOW(),
			checksum VARCHAR(64) NOT NULL
		)`

	if _, err := db.Exec(query); err != nil {
		return fmt.Errorf("マイグレーション履歴テーブル作成エラー: %w", err)
	}
	return nil
}

// migration is one SQL file of the migration directory
type migration struct {
	filename string
	content  []byte
	checksum string
}

// loadMigrations reads every .sql file of dir in filename order
func loadMigrations(dir string) ([]migration, error) {
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイル検索エラー: %w", err)
	}

	// ファイル名でソート
	sort.Strings(files)

	migrations := make([]migration, 0, len(files))
	for _, file := range files {
		content, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("ファイル読み込みエラー %s: %w", filepath.Base(file), err)
		}
		migrations = append(migrations, migration{
			filename: filepath.Base(file),
			content:  content,
			checksum: calculateChecksum(content),
		})
	}
	return migrations, nil
}

// pendingMigrations drops the migrations that were already executed;
// a changed checksum of an executed file is an error
func pendingMigrations(all []migration, executed map[string]string) ([]migration, error) {
	var pending []migration
	for _, m := range all {
		checksum, done := executed[m.filename]
		if !done {
			pending = append(pending, m)
			continue
		}
		if checksum != m.checksum {
			return nil, fmt.Errorf("実行済みマイグレーションが変更されています: %s", m.filename)
		}
	}
	return pending, nil
}

// runMigrations マイグレーションを実行
func runMigrations(db *sql.DB, migrationDir string, lg *zap.Logger) error {
	all, err := loadMigrations(migrationDir)
	if err != nil {
		return err
	}
	if len(all) == 0 {
		lg.Warn("マイグレーションファイルが見つかりません", zap.String("dir", migrationDir))
		return nil
	}

	// 実行済みマイグレーションを取得
	executed, err := getExecutedMigrations(db)
	if err != nil {
		return fmt.Errorf("実行済みマイグレーション取得エラー: %w", err)
	}

	pending, err := pendingMigrations(all, executed)
	if err != nil {
		return err
	}
	lg.Info("マイグレーションを確認しました", zap.Int("total", len(all)), zap.Int("pending", len(pending)))

	for _, m := range pending {
		lg.Info("実行中", zap.String("file", m.filename))

		// トランザクション開始
		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("トランザクション開始エラー %s: %w", m.filename, err)
		}

		// マイグレーション実行
		if _, err := tx.Exec(string(m.content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("マイグレーション実行エラー %s: %w", m.filename, err)
		}

		// マイグレーション履歴に記録
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (filename, checksum) VALUES ($1, $2)",
			m.filename, m.checksum,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("マイグレーション履歴記録エラー %s: %w", m.filename, err)
		}

		// コミット
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("トランザクションコミットエラー %s: %w", m.filename, err)
		}

		lg.Info("完了", zap.String("file", m.filename))
	}

	return nil
}

// getExecutedMigrations 実行済みマイグレーションとチェックサムを取得
func getExecutedMigrations(db *sql.DB) (map[string]string, error) {
	executed := make(map[string]string)

	rows, err := db.Query("SELECT filename, checksum FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var filename, checksum string
		if err := rows.Scan(&filename, &checksum); err != nil {
			return nil, err
		}
		executed[filename] = checksum
	}

	return executed, rows.Err()
}

// calculateChecksum ファイル内容のSHA-256チェックサムを計算
func calculateChecksum(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
