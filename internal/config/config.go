package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

// Output formats
// 出力フォーマット
const (
	FormatCSV      = "csv"
	FormatXLSX     = "xlsx"
	FormatPostgres = "postgres"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "SUPPLYSIM_CONFIG"

// Config holds application configuration
// アプリケーション設定を保持
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Output     OutputConfig     `yaml:"output"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds the catalog size, date range and model parameters
// シミュレーション設定を保持
type SimulationConfig struct {
	NumProducts  int               `yaml:"num_products"`
	NumStores    int               `yaml:"num_stores"`
	StartDate    string            `yaml:"start_date"`
	EndDate      string            `yaml:"end_date"`
	ProductsFile string            `yaml:"products_file"` // 指定時は生成せずCSVから読み込み
	StoresFile   string            `yaml:"stores_file"`
	Params       simulation.Params `yaml:"params"`
}

// OutputConfig holds sink configuration
// 出力先設定を保持
type OutputConfig struct {
	Formats     []string `yaml:"formats"`
	Directory   string   `yaml:"directory"`
	XLSXPath    string   `yaml:"xlsx_path"`
	MetricsFile string   `yaml:"metrics_file"` // Prometheusテキスト形式の出力先
}

// DatabaseConfig holds database configuration
// データベース設定を保持
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// APIConfig holds API server configuration
// APIサーバー設定を保持
type APIConfig struct {
	Port          int           `yaml:"port"`
	ReadTimeout   time.Duration `yaml:"read_timeout"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	EnableMetrics bool          `yaml:"enable_metrics"`
	RunCapacity   int           `yaml:"run_capacity"`  // メモリに保持する実行結果の上限
	MaxProducts   int           `yaml:"max_products"`  // 1リクエストあたりの商品数上限
	MaxStores     int           `yaml:"max_stores"`    // 1リクエストあたりの店舗数上限
	MaxDays       int           `yaml:"max_days"`      // 1リクエストあたりの日数上限
	CronSchedule  string        `yaml:"cron_schedule"` // 空の場合は定期実行しない
	Timezone      string        `yaml:"timezone"`
}

// LoggingConfig holds logging configuration
// ログ設定を保持
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
	Output string `yaml:"output"` // stdout, stderr, ファイルパス
}

// Default returns the built-in configuration
// 既定の設定を返す
func Default() *Config {
	return &Config{
		Simulation: SimulationConfig{
			NumProducts: 20,
			NumStores:   100,
			StartDate:   "2024-01-01",
			EndDate:     "2024-12-31",
			Params:      *simulation.DefaultParams(),
		},
		Output: OutputConfig{
			Formats:   []string{FormatCSV},
			Directory: "output",
			XLSXPath:  "output/supply_chain.xlsx",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     5432,
			User:     "supplysim",
			Password: "password",
			DBName:   "supplysim_db",
			SSLMode:  "disable",
		},
		API: APIConfig{
			Port:          8080,
			ReadTimeout:   30 * time.Second,
			WriteTimeout:  60 * time.Second,
			IdleTimeout:   60 * time.Second,
			EnableMetrics: true,
			RunCapacity:   20,
			MaxProducts:   200,
			MaxStores:     500,
			MaxDays:       3660,
			Timezone:      "Europe/Paris",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file and the environment
// 既定値、YAMLファイル、環境変数の順に設定を読み込み
//
// envFile is loaded with godotenv first; a missing file is not an error.
func Load(envFile string) (*Config, error) {
	cfg, err := Read(envFile)
	if err != nil {
		return nil, err
	}

	// バリデーション
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	return cfg, nil
}

// Read is Load without validation, for callers that overlay their own values first
// バリデーションせずに設定を読み込み
func Read(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("環境変数ファイルの読み込みに失敗しました %s: %w", envFile, err)
		}
	} else {
		_ = godotenv.Load()
	}

	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// loadFile overlays a YAML document onto c
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("設定ファイルの読み込みに失敗しました %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("設定ファイルの解析に失敗しました %s: %w", path, err)
	}
	return nil
}

// applyEnv overrides fields from environment variables; current values are the defaults
func (c *Config) applyEnv() {
	s := &c.Simulation
	s.NumProducts = getEnvAsInt("SIM_NUM_PRODUCTS", s.NumProducts)
	s.NumStores = getEnvAsInt("SIM_NUM_STORES", s.NumStores)
	s.StartDate = getEnv("SIM_START_DATE", s.StartDate)
	s.EndDate = getEnv("SIM_END_DATE", s.EndDate)
	s.ProductsFile = getEnv("SIM_PRODUCTS_FILE", s.ProductsFile)
	s.StoresFile = getEnv("SIM_STORES_FILE", s.StoresFile)
	s.Params.Seed = getEnvAsInt64("SIM_SEED", s.Params.Seed)
	s.Params.Workers = getEnvAsInt("SIM_WORKERS", s.Params.Workers)
	s.Params.LeadTimeDays = getEnvAsInt("SIM_LEAD_TIME_DAYS", s.Params.LeadTimeDays)
	s.Params.UpliftRounding = simulation.RoundingMode(getEnv("SIM_UPLIFT_ROUNDING", string(s.Params.UpliftRounding)))

	o := &c.Output
	o.Formats = getEnvAsList("OUTPUT_FORMATS", o.Formats)
	o.Directory = getEnv("OUTPUT_DIR", o.Directory)
	o.XLSXPath = getEnv("OUTPUT_XLSX_PATH", o.XLSXPath)
	o.MetricsFile = getEnv("OUTPUT_METRICS_FILE", o.MetricsFile)

	d := &c.Database
	d.Host = getEnv("DB_HOST", d.Host)
	d.Port = getEnvAsInt("DB_PORT", d.Port)
	d.User = getEnv("DB_USER", d.User)
	d.Password = getEnv("DB_PASSWORD", d.Password)
	d.DBName = getEnv("DB_NAME", d.DBName)
	d.SSLMode = getEnv("DB_SSLMODE", d.SSLMode)

	a := &c.API
	a.Port = getEnvAsInt("API_PORT", a.Port)
	a.ReadTimeout = getEnvAsDuration("API_READ_TIMEOUT", a.ReadTimeout)
	a.WriteTimeout = getEnvAsDuration("API_WRITE_TIMEOUT", a.WriteTimeout)
	a.IdleTimeout = getEnvAsDuration("API_IDLE_TIMEOUT", a.IdleTimeout)
	a.EnableMetrics = getEnvAsBool("API_ENABLE_METRICS", a.EnableMetrics)
	a.RunCapacity = getEnvAsInt("API_RUN_CAPACITY", a.RunCapacity)
	a.MaxProducts = getEnvAsInt("API_MAX_PRODUCTS", a.MaxProducts)
	a.MaxStores = getEnvAsInt("API_MAX_STORES", a.MaxStores)
	a.MaxDays = getEnvAsInt("API_MAX_DAYS", a.MaxDays)
	a.CronSchedule = getEnv("API_CRON_SCHEDULE", a.CronSchedule)
	a.Timezone = getEnv("API_TIMEZONE", a.Timezone)

	l := &c.Logging
	l.Level = getEnv("LOG_LEVEL", l.Level)
	l.Format = getEnv("LOG_FORMAT", l.Format)
	l.Output = getEnv("LOG_OUTPUT", l.Output)
}

// Validate validates the configuration
// 設定をバリデーション
func (c *Config) Validate() error {
	// シミュレーション設定チェック
	if c.Simulation.ProductsFile == "" && c.Simulation.NumProducts <= 0 {
		return fmt.Errorf("商品数は1以上である必要があります: %d", c.Simulation.NumProducts)
	}
	if c.Simulation.StoresFile == "" && c.Simulation.NumStores <= 0 {
		return fmt.Errorf("店舗数は1以上である必要があります: %d", c.Simulation.NumStores)
	}
	start, end, err := c.Simulation.DateRange()
	if err != nil {
		return err
	}
	if end.Before(start) {
		return fmt.Errorf("終了日は開始日以降である必要があります: %s > %s", c.Simulation.StartDate, c.Simulation.EndDate)
	}
	if err := c.Simulation.Params.Validate(); err != nil {
		return err
	}

	// 出力設定チェック
	for _, format := range c.Output.Formats {
		switch format {
		case FormatCSV, FormatXLSX, FormatPostgres:
		default:
			return fmt.Errorf("無効な出力フォーマット: %s", format)
		}
	}
	if c.Output.HasFormat(FormatCSV) && c.Output.Directory == "" {
		return fmt.Errorf("出力ディレクトリが指定されていません")
	}
	if c.Output.HasFormat(FormatXLSX) && c.Output.XLSXPath == "" {
		return fmt.Errorf("Excel出力パスが指定されていません")
	}

	// データベース設定チェック
	if c.Database.Host == "" {
		return fmt.Errorf("データベースホストが指定されていません")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("無効なデータベースポート: %d", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("データベースユーザーが指定されていません")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("データベース名が指定されていません")
	}

	// API設定チェック
	if c.API.Port <= 0 || c.API.Port > 65535 {
		return fmt.Errorf("無効なAPIポート: %d", c.API.Port)
	}
	if c.API.RunCapacity <= 0 {
		return fmt.Errorf("実行結果の保持数は1以上である必要があります: %d", c.API.RunCapacity)
	}
	if c.API.MaxProducts < 0 || c.API.MaxStores < 0 {
		return fmt.Errorf("商品数・店舗数の上限は0以上である必要があります: %d, %d", c.API.MaxProducts, c.API.MaxStores)
	}
	if c.API.MaxDays <= 0 {
		return fmt.Errorf("日数の上限は1以上である必要があります: %d", c.API.MaxDays)
	}
	if _, err := time.LoadLocation(c.API.Timezone); err != nil {
		return fmt.Errorf("無効なタイムゾーン: %s", c.API.Timezone)
	}

	// ログ設定チェック
	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "fatal": true,
	}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("無効なログレベル: %s", c.Logging.Level)
	}

	validLogFormats := map[string]bool{
		"json": true, "console": true,
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("無効なログフォーマット: %s", c.Logging.Format)
	}

	return nil
}

// DateRange parses the configured start and end dates
// 開始日・終了日を解析
func (s SimulationConfig) DateRange() (time.Time, time.Time, error) {
	start, err := simulation.ParseDate(s.StartDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end, err := simulation.ParseDate(s.EndDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

// HasFormat reports whether format is enabled
func (o OutputConfig) HasFormat(format string) bool {
	for _, f := range o.Formats {
		if f == format {
			return true
		}
	}
	return false
}

// DSN generates PostgreSQL Data Source Name
// PostgreSQLデータソース名を生成
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

// ヘルパー関数

// getEnv gets environment variable with default value
// デフォルト値付きで環境変数を取得
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets environment variable as integer with default value
// デフォルト値付きで環境変数を整数として取得
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsInt64 gets environment variable as int64 with default value
func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if int64Value, err := strconv.ParseInt(value, 10, 64); err == nil {
			return int64Value
		}
	}
	return defaultValue
}

// getEnvAsBool gets environment variable as boolean with default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets environment variable as duration with default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma separated environment variable; "none" yields an empty list
// カンマ区切りの環境変数をリストとして取得
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "none" {
		return []string{}
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
