package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/internal/config"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation/storage"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	dir := t.TempDir()
	cfg.Simulation.NumProducts = 4
	cfg.Simulation.NumStores = 5
	cfg.Simulation.StartDate = "2024-01-01"
	cfg.Simulation.EndDate = "2024-02-29"
	cfg.Output.Directory = filepath.Join(dir, "csv")
	cfg.Output.XLSXPath = filepath.Join(dir, "xlsx", "dataset.xlsx")
	cfg.Output.Formats = []string{config.FormatCSV, config.FormatXLSX}
	require.NoError(t, cfg.Validate())
	return cfg
}

type durationRecorder struct {
	mu        sync.Mutex
	durations []time.Duration
	completed int
}

func (d *durationRecorder) OnReorder(simulation.ReorderEvent)         {}
func (d *durationRecorder) OnStockAlert(simulation.StockAlertEvent)   {}
func (d *durationRecorder) OnRunCompleted(summary simulation.Summary) { d.completed++ }
func (d *durationRecorder) ObserveRunDuration(dur time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.durations = append(d.durations, dur)
}

func TestRun_GeneratesAndExports(t *testing.T) {
	cfg := testConfig(t)
	obs := &durationRecorder{}
	p := New(cfg, zap.NewNop(), obs)

	ds, err := p.Run(context.Background(), Request{})

	require.NoError(t, err)
	assert.Len(t, ds.Products, 4)
	assert.Len(t, ds.Stores, 5)
	assert.Equal(t, 60, ds.Result.DayCount)
	assert.Len(t, ds.Result.Inventory, 60*4)
	assert.Nil(t, ds.Result.CheckConservation())
	assert.Equal(t, 1, obs.completed)
	assert.Len(t, obs.durations, 1)

	for _, file := range OutputFiles(cfg, cfg.Output.Formats) {
		info, err := os.Stat(file)
		require.NoError(t, err, file)
		assert.Positive(t, info.Size(), file)
	}
}

func TestRun_RequestOverrides(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil)
	seed := int64(99)

	ds, err := p.Run(context.Background(), Request{
		NumProducts: 2,
		NumStores:   3,
		StartDate:   "2024-03-01",
		EndDate:     "2024-03-10",
		Seed:        &seed,
		Workers:     2,
		Formats:     []string{},
	})

	require.NoError(t, err)
	assert.Len(t, ds.Products, 2)
	assert.Len(t, ds.Stores, 3)
	assert.Equal(t, 10, ds.Result.DayCount)
	assert.Equal(t, int64(99), ds.Run.Seed)
	_, statErr := os.Stat(cfg.Output.Directory)
	assert.True(t, os.IsNotExist(statErr))

	// 設定自体は変更されない
	assert.Equal(t, 4, cfg.Simulation.NumProducts)
	assert.Equal(t, int64(42), cfg.Simulation.Params.Seed)
}

func TestRun_SameSeedSameDataset(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil)

	a, err := p.Run(context.Background(), Request{Formats: []string{}})
	require.NoError(t, err)
	b, err := p.Run(context.Background(), Request{Formats: []string{}, Workers: 3})
	require.NoError(t, err)

	assert.Equal(t, a.Products, b.Products)
	assert.Equal(t, a.Result.Transactions, b.Result.Transactions)
	assert.Equal(t, a.Result.Inventory, b.Result.Inventory)
	assert.NotEqual(t, a.Run.ID, b.Run.ID)
}

func TestRun_LoadsCatalogFiles(t *testing.T) {
	cfg := testConfig(t)
	first, err := New(cfg, nil, nil).Run(context.Background(), Request{Formats: []string{config.FormatCSV}})
	require.NoError(t, err)

	cfg.Simulation.ProductsFile = filepath.Join(cfg.Output.Directory, storage.FileName(storage.TableProducts))
	cfg.Simulation.StoresFile = filepath.Join(cfg.Output.Directory, storage.FileName(storage.TableStores))
	cfg.Simulation.NumProducts = 0
	cfg.Simulation.NumStores = 0

	second, err := New(cfg, nil, nil).Run(context.Background(), Request{Formats: []string{}})

	require.NoError(t, err)
	require.Len(t, second.Result.Transactions, len(first.Result.Transactions))
	for i, tx := range second.Result.Transactions {
		want := first.Result.Transactions[i]
		assert.Equal(t, want.ID, tx.ID)
		assert.Equal(t, want.UnitsSold, tx.UnitsSold)
		assert.True(t, want.UnitPrice.Equal(tx.UnitPrice), tx.ID)
	}
	assert.Equal(t, first.Result.Inventory, second.Result.Inventory)
}

func TestRun_InvalidInput(t *testing.T) {
	cfg := testConfig(t)
	p := New(cfg, nil, nil)

	_, err := p.Run(context.Background(), Request{StartDate: "2024-05-01", EndDate: "2024-04-01"})
	assert.ErrorIs(t, err, simulation.ErrInvalidDateRange)

	_, err = p.Run(context.Background(), Request{EndDate: "tomorrow"})
	assert.ErrorIs(t, err, simulation.ErrInvalidDateRange)

	dup := []simulation.Store{{ID: "FR001"}, {ID: "FR001"}}
	_, err = p.Run(context.Background(), Request{Stores: dup, Formats: []string{}})
	assert.ErrorIs(t, err, simulation.ErrDuplicateStore)
}

func TestRun_SinkFailure(t *testing.T) {
	cfg := testConfig(t)
	boom := errors.New("接続できません")
	p := New(cfg, nil, nil).WithSinkFactory(func(ctx context.Context, format string) (simulation.Sink, error) {
		return nil, boom
	})

	ds, err := p.Run(context.Background(), Request{Formats: []string{config.FormatPostgres}})

	assert.ErrorIs(t, err, boom)
	require.NotNil(t, ds)
	assert.NotEmpty(t, ds.Result.Inventory)
}
