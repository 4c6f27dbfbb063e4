// Package pipeline runs a configured simulation end to end:
// catalog, simulation and export to every configured sink
package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/pkg/catalog"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation/storage"
)

// Request overrides parts of the configured simulation for one run
// 1回の実行で設定を上書きするリクエスト
type Request struct {
	NumProducts int    `json:"num_products,omitempty"`
	NumStores   int    `json:"num_stores,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
	Workers     int    `json:"workers,omitempty"`

	// Formats selects the sinks; nil uses the configured formats, an empty slice disables export
	Formats []string `json:"formats,omitempty"`

	// Products and Stores replace the generated or file-based catalog when non-empty
	Products []simulation.Product `json:"-"`
	Stores   []simulation.Store   `json:"-"`
}

// DurationObserver is implemented by observers that also record run wall time
type DurationObserver interface {
	ObserveRunDuration(d time.Duration)
}

// SinkFactory opens the sink of one output format
type SinkFactory func(ctx context.Context, format string) (simulation.Sink, error)

// Pipeline runs simulations from the application configuration
// 設定に基づきシミュレーションを実行するパイプライン
type Pipeline struct {
	cfg      *config.Config
	logger   *zap.Logger
	observer simulation.Observer
	openSink SinkFactory
}

// New creates a new pipeline; observer may be nil
// 新しいパイプラインを作成
func New(cfg *config.Config, logger *zap.Logger, observer simulation.Observer) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pipeline{
		cfg:      cfg,
		logger:   logger,
		observer: observer,
	}
	p.openSink = p.defaultSink
	return p
}

// WithSinkFactory replaces the sink constructor
func (p *Pipeline) WithSinkFactory(f SinkFactory) *Pipeline {
	p.openSink = f
	return p
}

// defaultSink builds sinks from the output and database configuration
func (p *Pipeline) defaultSink(ctx context.Context, format string) (simulation.Sink, error) {
	switch format {
	case config.FormatCSV:
		return storage.NewCSVSink(p.cfg.Output.Directory, p.logger.Named("csv"))
	case config.FormatXLSX:
		return storage.NewExcelSink(p.cfg.Output.XLSXPath, p.logger.Named("xlsx")), nil
	case config.FormatPostgres:
		return storage.NewPostgreSQLSink(p.cfg.DSN(), p.logger.Named("postgres"))
	default:
		return nil, fmt.Errorf("無効な出力フォーマット: %s", format)
	}
}

// Run executes one simulation and exports the dataset
// シミュレーションを1回実行してデータセットを出力
func (p *Pipeline) Run(ctx context.Context, req Request) (*simulation.Dataset, error) {
	sim := p.cfg.Simulation
	if req.NumProducts > 0 {
		sim.NumProducts = req.NumProducts
	}
	if req.NumStores > 0 {
		sim.NumStores = req.NumStores
	}
	if req.StartDate != "" {
		sim.StartDate = req.StartDate
	}
	if req.EndDate != "" {
		sim.EndDate = req.EndDate
	}
	params := sim.Params
	if req.Seed != nil {
		params.Seed = *req.Seed
	}
	if req.Workers > 0 {
		params.Workers = req.Workers
	}

	start, end, err := sim.DateRange()
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: %s > %s", simulation.ErrInvalidDateRange, sim.StartDate, sim.EndDate)
	}

	simulator, err := simulation.NewSimulator(&params, p.logger.Named("simulation"), p.observer)
	if err != nil {
		return nil, err
	}

	products, stores, err := p.catalog(sim, params.Seed, req)
	if err != nil {
		return nil, err
	}
	if err := simulation.ValidateCatalog(products, stores); err != nil {
		return nil, err
	}

	began := time.Now()
	result := simulator.Simulate(products, stores, start, end)
	elapsed := time.Since(began)
	if d, ok := p.observer.(DurationObserver); ok {
		d.ObserveRunDuration(elapsed)
	}

	ds := &simulation.Dataset{
		Run:      simulation.NewRunInfo(params.Seed, start, end),
		Products: products,
		Stores:   stores,
		Result:   result,
	}

	formats := req.Formats
	if formats == nil {
		formats = p.cfg.Output.Formats
	}
	if err := p.export(ctx, ds, formats); err != nil {
		return ds, err
	}

	summary := result.Summary()
	p.logger.Info("データセットを生成しました",
		zap.String("run_id", ds.Run.ID),
		zap.Int64("seed", params.Seed),
		zap.Int("days", summary.Days),
		zap.Int("products", summary.Products),
		zap.Int("stores", summary.Stores),
		zap.Int("transactions", summary.Transactions),
		zap.String("revenue_eur", summary.Revenue.StringFixed(2)),
		zap.Strings("formats", formats),
		zap.Duration("elapsed", elapsed),
	)
	return ds, nil
}

// catalog returns the request catalog, the CSV files or a generated catalog, in that order
func (p *Pipeline) catalog(sim config.SimulationConfig, seed int64, req Request) ([]simulation.Product, []simulation.Store, error) {
	// 商品→店舗の順に同じ生成器から生成
	gen := catalog.NewGenerator(seed)

	products := req.Products
	switch {
	case len(products) > 0:
	case sim.ProductsFile != "":
		loaded, err := catalog.LoadProducts(sim.ProductsFile)
		if err != nil {
			return nil, nil, err
		}
		products = loaded
	default:
		products = gen.Products(sim.NumProducts)
	}

	stores := req.Stores
	switch {
	case len(stores) > 0:
	case sim.StoresFile != "":
		loaded, err := catalog.LoadStores(sim.StoresFile)
		if err != nil {
			return nil, nil, err
		}
		stores = loaded
	default:
		stores = gen.Stores(sim.NumStores)
	}

	return products, stores, nil
}

// export writes ds to every format concurrently; each sink is closed after use
// 全出力先へ並行して書き込み
func (p *Pipeline) export(ctx context.Context, ds *simulation.Dataset, formats []string) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, format := range formats {
		g.Go(func() error {
			sink, err := p.openSink(ctx, format)
			if err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			if err := simulation.Export(ctx, sink, ds); err != nil {
				sink.Close()
				return fmt.Errorf("%s: %w", format, err)
			}
			if err := sink.Close(); err != nil {
				return fmt.Errorf("%s: %w", format, err)
			}
			p.logger.Debug("出力完了", zap.String("format", format), zap.String("run_id", ds.Run.ID))
			return nil
		})
	}
	return g.Wait()
}

// OutputFiles lists the files written by the file sinks of formats
func OutputFiles(cfg *config.Config, formats []string) []string {
	var files []string
	for _, format := range formats {
		switch format {
		case config.FormatCSV:
			for _, table := range []string{storage.TableRuns, storage.TableProducts, storage.TableStores,
				storage.TableTransactions, storage.TableInventory, storage.TableFactoryOrders} {
				files = append(files, filepath.Join(cfg.Output.Directory, storage.FileName(table)))
			}
		case config.FormatXLSX:
			files = append(files, cfg.Output.XLSXPath)
		}
	}
	return files
}
