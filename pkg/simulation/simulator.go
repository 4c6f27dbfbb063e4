package simulation

import (
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// lane carries the state of one product through the run
// 商品1件分のシミュレーション状態
type lane struct {
	product   *Product
	stores    []Store
	stock     []int64 // StoreStockTable の該当行
	params    *Params
	rng       *stream
	warehouse *WarehouseState
	inbound   shipmentQueue
	orders    []PendingShipment
	observer  Observer
}

// step advances the product by one day: sales, then replenishment, then reorder
// 1日分を処理：販売 → 店舗補充 → 工場発注
func (l *lane) step(day DayContext, txs []TransactionRecord) ([]TransactionRecord, InventoryRecord) {
	txs = l.sell(day, txs)

	starting := l.warehouse.Latest()
	balance, shipped := l.replenish(starting)
	received := l.reorder(day, balance)

	return txs, l.close(day, starting, balance, received, shipped)
}

// Simulator runs the inventory-and-sales model
// 在庫・販売シミュレーター
type Simulator struct {
	params   *Params  // パラメータ
	logger   *zap.Logger
	observer Observer // イベント通知先
}

// NewSimulator creates a new simulator; nil params selects DefaultParams
// 新しいシミュレーターを作成
func NewSimulator(params *Params, logger *zap.Logger, observer Observer) (*Simulator, error) {
	if params == nil {
		params = DefaultParams()
	} else {
		params = params.clone()
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Simulator{
		params:   params,
		logger:   logger,
		observer: observer,
	}, nil
}

// Params returns a copy of the simulator parameters
func (s *Simulator) Params() Params {
	return *s.params.clone()
}

// Simulate steps through every day of [start, end] and returns the generated
// transaction and inventory ledgers. Products and stores are read in the
// given order and never modified. An inverted range yields an empty result.
// 開始日から終了日まで1日ずつシミュレーションを実行
func (s *Simulator) Simulate(products []Product, stores []Store, start, end time.Time) *Result {
	days := Days(start, end)
	started := time.Now()

	table := NewStoreStockTable(len(products), len(stores), s.params.InitialStoreStock)
	lanes := make([]*lane, len(products))
	for p := range products {
		levels := make([]int64, 1, len(days)+1)
		levels[0] = s.params.InitialWarehouseStock
		lanes[p] = &lane{
			product:   &products[p],
			stores:    stores,
			stock:     table.Row(p),
			params:    s.params,
			rng:       newStream(s.params.Seed, products[p].ID),
			warehouse: &WarehouseState{ProductID: products[p].ID, Levels: levels},
			inbound:   newShipmentQueue(s.params.LeadTimeDays),
			observer:  s.observer,
		}
	}

	var result *Result
	if s.params.Workers > 1 && len(lanes) > 1 {
		result = s.runParallel(lanes, days)
	} else {
		result = s.runSequential(lanes, days)
	}

	result.DayCount = len(days)
	result.ProductCount = len(products)
	result.StoreCount = len(stores)
	result.Warehouse = make([]WarehouseState, len(lanes))
	for p, l := range lanes {
		result.Warehouse[p] = *l.warehouse
		result.FactoryOrders = append(result.FactoryOrders, l.orders...)
	}
	// lanes are in product order, so ties keep the product order
	slices.SortStableFunc(result.FactoryOrders, func(a, b PendingShipment) int {
		return a.OrderDate.Compare(b.OrderDate)
	})

	summary := result.Summary()
	s.logger.Info("シミュレーション完了",
		zap.Int("days", summary.Days),
		zap.Int("products", summary.Products),
		zap.Int("stores", summary.Stores),
		zap.Int("transactions", summary.Transactions),
		zap.Int64("units_sold", summary.UnitsSold),
		zap.String("revenue", summary.Revenue.StringFixed(2)),
		zap.Int("factory_orders", summary.FactoryOrders),
		zap.Int("stockout_days", summary.StockoutDays),
		zap.Int("workers", s.params.Workers),
		zap.Duration("elapsed", time.Since(started)),
	)
	if s.observer != nil {
		s.observer.OnRunCompleted(summary)
	}

	return result
}

// runSequential is the literal day → product → store loop
func (s *Simulator) runSequential(lanes []*lane, days []DayContext) *Result {
	result := &Result{
		Inventory: make([]InventoryRecord, 0, len(days)*len(lanes)),
	}
	for _, day := range days {
		for _, l := range lanes {
			var rec InventoryRecord
			result.Transactions, rec = l.step(day, result.Transactions)
			result.Inventory = append(result.Inventory, rec)
		}
	}
	return result
}

// laneOutput buffers the rows of one lane; offsets[d]:offsets[d+1] are day d's transactions
type laneOutput struct {
	txs       []TransactionRecord
	offsets   []int
	inventory []InventoryRecord
}

// runParallel advances each product lane through the whole range on its own
// goroutine, then merges rows back into date-major, product, store order.
// Lanes share no mutable state and own their random substream, so the merged
// output equals the sequential one.
// 商品レーンを並列に処理し、日付順に結合
func (s *Simulator) runParallel(lanes []*lane, days []DayContext) *Result {
	outputs := make([]laneOutput, len(lanes))

	var g errgroup.Group
	g.SetLimit(s.params.Workers)
	for p, l := range lanes {
		g.Go(func() error {
			out := laneOutput{
				offsets:   make([]int, len(days)+1),
				inventory: make([]InventoryRecord, 0, len(days)),
			}
			for d, day := range days {
				var rec InventoryRecord
				out.txs, rec = l.step(day, out.txs)
				out.inventory = append(out.inventory, rec)
				out.offsets[d+1] = len(out.txs)
			}
			outputs[p] = out
			return nil
		})
	}
	_ = g.Wait()

	total := 0
	for _, out := range outputs {
		total += len(out.txs)
	}
	result := &Result{
		Transactions: make([]TransactionRecord, 0, total),
		Inventory:    make([]InventoryRecord, 0, len(days)*len(lanes)),
	}
	for d := range days {
		for _, out := range outputs {
			result.Transactions = append(result.Transactions, out.txs[out.offsets[d]:out.offsets[d+1]]...)
			result.Inventory = append(result.Inventory, out.inventory[d])
		}
	}
	return result
}
