package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nemonet1337/zaiSupplySim/pkg/catalog"
	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

func TestRecorder_ObservesRun(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)

	params := simulation.DefaultParams()
	params.Workers = 4
	params.InitialWarehouseStock = 50 // 早期に欠品と発注を発生させる
	sim, err := simulation.NewSimulator(params, zap.NewNop(), rec)
	require.NoError(t, err)

	gen := catalog.NewGenerator(1)
	products, stores := gen.Products(6), gen.Stores(10)
	start, _ := simulation.ParseDate("2024-01-01")
	end, _ := simulation.ParseDate("2024-03-31")
	result := sim.Simulate(products, stores, start, end)
	summary := result.Summary()
	rec.ObserveRunDuration(150 * time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs))
	assert.Equal(t, float64(summary.Transactions), testutil.ToFloat64(rec.transactions))
	assert.Equal(t, float64(summary.UnitsSold), testutil.ToFloat64(rec.unitsSold))
	assert.InDelta(t, summary.Revenue.InexactFloat64(), testutil.ToFloat64(rec.lastRevenue), 0.001)
	assert.Equal(t, float64(summary.StockoutDays), testutil.ToFloat64(rec.alerts.WithLabelValues(string(simulation.AlertTypeStockout))))
	assert.Equal(t, float64(summary.OverstockDays), testutil.ToFloat64(rec.alerts.WithLabelValues(string(simulation.AlertTypeOverstock))))

	perProduct := map[string]int{}
	var units int64
	for _, o := range result.FactoryOrders {
		perProduct[o.ProductID]++
		units += o.Quantity
	}
	require.NotEmpty(t, perProduct)
	for id, n := range perProduct {
		assert.Equal(t, float64(n), testutil.ToFloat64(rec.reorders.WithLabelValues(id)), id)
	}
	assert.Equal(t, float64(units), testutil.ToFloat64(rec.reorderUnits))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.runDuration))
}

func TestWriteTextfile(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec := NewRecorder(reg)
	rec.OnRunCompleted(simulation.Summary{Transactions: 3, UnitsSold: 7})

	path := filepath.Join(t.TempDir(), "supplysim.prom")
	require.NoError(t, WriteTextfile(path, reg))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, "supplysim_runs_total 1"), text)
	assert.Contains(t, text, "supplysim_units_sold_total 7")
}

func TestNewRecorder_NilRegisterer(t *testing.T) {
	rec := NewRecorder(nil)

	rec.OnStockAlert(simulation.StockAlertEvent{Type: simulation.AlertTypeStockout})

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.alerts.WithLabelValues("stockout")))
}
