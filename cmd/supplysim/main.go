package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/internal/metrics"
	"github.com/nemonet1337/zaiSupplySim/internal/pipeline"
	"github.com/nemonet1337/zaiSupplySim/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "エラー:", err)
		os.Exit(1)
	}
}

// options holds the command line flags
type options struct {
	envFile      string
	numProducts  int
	numStores    int
	startDate    string
	endDate      string
	seed         int64
	workers      int
	formats      string
	outputDir    string
	xlsxPath     string
	productsFile string
	storesFile   string
	metricsFile  string
}

func parseFlags(args []string) (*options, map[string]bool, error) {
	opts := &options{}
	fs := flag.NewFlagSet("supplysim", flag.ContinueOnError)
	fs.StringVar(&opts.envFile, "env-file", "", "環境変数ファイル（.env）のパス")
	fs.IntVar(&opts.numProducts, "num-products", 20, "生成する商品数")
	fs.IntVar(&opts.numStores, "num-stores", 100, "生成する店舗数")
	fs.StringVar(&opts.startDate, "start-date", "2024-01-01", "開始日 (YYYY-MM-DD)")
	fs.StringVar(&opts.endDate, "end-date", "2024-12-31", "終了日 (YYYY-MM-DD)")
	fs.Int64Var(&opts.seed, "seed", 42, "乱数シード")
	fs.IntVar(&opts.workers, "workers", 1, "並列に処理する商品レーン数")
	fs.StringVar(&opts.formats, "formats", "csv", "出力フォーマット（csv,xlsx,postgres のカンマ区切り、none で出力なし）")
	fs.StringVar(&opts.outputDir, "output-dir", "output", "CSV出力ディレクトリ")
	fs.StringVar(&opts.xlsxPath, "xlsx-path", "output/supply_chain.xlsx", "Excel出力パス")
	fs.StringVar(&opts.productsFile, "products-file", "", "商品CSV（指定時は生成しない）")
	fs.StringVar(&opts.storesFile, "stores-file", "", "店舗CSV（指定時は生成しない）")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Prometheusテキスト形式のメトリクス出力先")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return opts, set, nil
}

// apply overrides cfg with the flags given on the command line
func (o *options) apply(cfg *config.Config, set map[string]bool) {
	if set["num-products"] {
		cfg.Simulation.NumProducts = o.numProducts
	}
	if set["num-stores"] {
		cfg.Simulation.NumStores = o.numStores
	}
	if set["start-date"] {
		cfg.Simulation.StartDate = o.startDate
	}
	if set["end-date"] {
		cfg.Simulation.EndDate = o.endDate
	}
	if set["seed"] {
		cfg.Simulation.Params.Seed = o.seed
	}
	if set["workers"] {
		cfg.Simulation.Params.Workers = o.workers
	}
	if set["formats"] {
		cfg.Output.Formats = splitFormats(o.formats)
	}
	if set["output-dir"] {
		cfg.Output.Directory = o.outputDir
	}
	if set["xlsx-path"] {
		cfg.Output.XLSXPath = o.xlsxPath
	}
	if set["products-file"] {
		cfg.Simulation.ProductsFile = o.productsFile
	}
	if set["stores-file"] {
		cfg.Simulation.StoresFile = o.storesFile
	}
	if set["metrics-file"] {
		cfg.Output.MetricsFile = o.metricsFile
	}
}

func splitFormats(value string) []string {
	formats := []string{}
	if value == "none" {
		return formats
	}
	for _, f := range strings.Split(value, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	opts, set, err := parseFlags(args)
	if err != nil {
		return err
	}

	// 設定読み込み（フラグ適用後に検証）
	cfg, err := config.Read(opts.envFile)
	if err != nil {
		return err
	}
	opts.apply(cfg, set)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("設定バリデーションに失敗しました: %w", err)
	}

	// ログ設定
	base, err := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	if err != nil {
		return err
	}
	defer base.Sync()

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	ds, err := pipeline.New(cfg, logger.Named(base, "pipeline"), recorder).Run(ctx, pipeline.Request{})
	if err != nil {
		return err
	}

	if cfg.Output.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.Output.MetricsFile, registry); err != nil {
			return fmt.Errorf("メトリクス出力に失敗しました: %w", err)
		}
		base.Info("メトリクスを出力しました", zap.String("path", cfg.Output.MetricsFile))
	}

	report := struct {
		RunID   string      `json:"run_id"`
		Summary interface{} `json:"summary"`
		Files   []string    `json:"files,omitempty"`
	}{
		RunID:   ds.Run.ID,
		Summary: ds.Result.Summary(),
		Files:   pipeline.OutputFiles(cfg, cfg.Output.Formats),
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
