// Package metrics exposes simulation events as Prometheus metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/nemonet1337/zaiSupplySim/pkg/simulation"
)

const namespace = "supplysim"

// Recorder implements simulation.Observer with Prometheus collectors
// Prometheusメトリクスでシミュレーションイベントを記録
type Recorder struct {
	reorders      *prometheus.CounterVec
	reorderUnits  prometheus.Counter
	alerts        *prometheus.CounterVec
	runs          prometheus.Counter
	transactions  prometheus.Counter
	unitsSold     prometheus.Counter
	lastRevenue   prometheus.Gauge
	lastStockouts prometheus.Gauge
	runDuration   prometheus.Histogram
}

// NewRecorder creates the collectors and registers them with reg
// コレクターを作成して登録
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		reorders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factory_reorders_total",
			Help:      "Factory orders placed, by product.",
		}, []string{"product_id"}),
		reorderUnits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "factory_reorder_units_total",
			Help:      "Units ordered from the factory.",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_alerts_total",
			Help:      "Warehouse stockout and overstock days, by type.",
		}, []string{"type"}),
		runs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed simulation runs.",
		}),
		transactions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transactions_total",
			Help:      "Sales rows generated.",
		}),
		unitsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_sold_total",
			Help:      "Units sold across all stores.",
		}),
		lastRevenue: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_revenue_eur",
			Help:      "Revenue of the most recent run.",
		}),
		lastStockouts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_stockout_days",
			Help:      "Stockout days of the most recent run.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of a simulation run.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
	}

	if reg != nil {
		reg.MustRegister(
			r.reorders, r.reorderUnits, r.alerts, r.runs, r.transactions,
			r.unitsSold, r.lastRevenue, r.lastStockouts, r.runDuration,
		)
	}
	return r
}

// OnReorder counts a factory order
func (r *Recorder) OnReorder(event simulation.ReorderEvent) {
	r.reorders.WithLabelValues(event.ProductID).Inc()
	r.reorderUnits.Add(float64(event.Quantity))
}

// OnStockAlert counts a stockout or overstock day
func (r *Recorder) OnStockAlert(event simulation.StockAlertEvent) {
	r.alerts.WithLabelValues(string(event.Type)).Inc()
}

// OnRunCompleted records the totals of a finished run
func (r *Recorder) OnRunCompleted(summary simulation.Summary) {
	r.runs.Inc()
	r.transactions.Add(float64(summary.Transactions))
	r.unitsSold.Add(float64(summary.UnitsSold))
	r.lastRevenue.Set(summary.Revenue.InexactFloat64())
	r.lastStockouts.Set(float64(summary.StockoutDays))
}

// ObserveRunDuration records the wall time of a run
// 実行時間を記録
func (r *Recorder) ObserveRunDuration(d time.Duration) {
	r.runDuration.Observe(d.Seconds())
}

// WriteTextfile dumps every metric of gatherer to path in the text exposition format
// メトリクスをテキスト形式でファイルに出力
func WriteTextfile(path string, gatherer prometheus.Gatherer) error {
	return prometheus.WriteToTextfile(path, gatherer)
}
