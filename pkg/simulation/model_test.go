package simulation

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestLane はサブモデル単体テスト用のレーンを作成
func newTestLane(t *testing.T, params *Params, stock []int64, warehouse int64) *lane {
	t.Helper()
	products, stores := testCatalog(1, len(stock))
	return &lane{
		product:   &products[0],
		stores:    stores,
		stock:     stock,
		params:    params,
		rng:       newStream(params.Seed, products[0].ID),
		warehouse: &WarehouseState{ProductID: products[0].ID, Levels: []int64{warehouse}},
		inbound:   newShipmentQueue(params.LeadTimeDays),
	}
}

func TestEffectivePrice(t *testing.T) {
	cases := []struct {
		base     string
		discount int
		want     string
	}{
		{"119.90", 0, "119.90"},
		{"99.99", 15, "84.99"},
		{"50.55", 30, "35.39"},
		{"200.00", 10, "180.00"},
		{"73.33", 20, "58.66"},
	}
	for _, tc := range cases {
		got := effectivePrice(decimal.RequireFromString(tc.base), tc.discount)
		assert.Equal(t, tc.want, got.StringFixed(2), "%s - %d%%", tc.base, tc.discount)
	}
}

func TestUplift_TruncatesByDefault(t *testing.T) {
	params := DefaultParams()

	assert.Equal(t, int64(0), params.uplift(0))
	assert.Equal(t, int64(1), params.uplift(1)) // 1.5 → 1
	assert.Equal(t, int64(3), params.uplift(2))
	assert.Equal(t, int64(4), params.uplift(3)) // 4.5 → 4
	assert.Equal(t, int64(7), params.uplift(5)) // 7.5 → 7
}

func TestUplift_NearestRounding(t *testing.T) {
	params := DefaultParams()
	params.UpliftRounding = RoundingNearest

	assert.Equal(t, int64(0), params.uplift(0))
	assert.Equal(t, int64(2), params.uplift(1)) // 1.5 → 2
	assert.Equal(t, int64(3), params.uplift(2))
	assert.Equal(t, int64(5), params.uplift(3)) // 4.5 → 5
	assert.Equal(t, int64(8), params.uplift(5))
}

func TestUplift_StaysInRange(t *testing.T) {
	// 検証を経ない値でも負数や桁あふれにならない
	params := DefaultParams()
	params.PromoUplift = 1e19

	got := params.uplift(5)
	assert.Equal(t, int64(maxUpliftUnits), got)

	params.PromoUplift = -2
	assert.Equal(t, int64(0), params.uplift(5))

	params.UpliftRounding = RoundingNearest
	params.PromoUplift = 1e19
	assert.Equal(t, int64(maxUpliftUnits), params.uplift(1))
}

func TestSell_CapsAtStoreStock(t *testing.T) {
	params := DefaultParams()
	params.BaseDemand = 8
	stock := []int64{0, 1, 3, 5, 20, 2, 7, 4}
	l := newTestLane(t, params, append([]int64(nil), stock...), 500)

	for _, day := range Days(date(t, "2024-01-01"), date(t, "2024-01-31")) {
		before := append([]int64(nil), l.stock...)
		txs := l.sell(day, nil)

		sold := make([]int64, len(before))
		for _, tx := range txs {
			for i, s := range l.stores {
				if s.ID == tx.StoreID {
					sold[i] = tx.UnitsSold
				}
			}
		}
		for i := range before {
			assert.LessOrEqual(t, sold[i], before[i])
			assert.GreaterOrEqual(t, l.stock[i], int64(0))
			assert.Equal(t, before[i]-sold[i], l.stock[i])
		}
	}
}

func TestSell_NoRowForZeroSales(t *testing.T) {
	params := DefaultParams()
	l := newTestLane(t, params, []int64{0, 0, 0}, 500)

	txs := l.sell(Days(date(t, "2024-01-02"), date(t, "2024-01-02"))[0], nil)

	assert.Empty(t, txs)
}

func TestSell_SeasonalMultiplierRaisesDemand(t *testing.T) {
	params := DefaultParams()
	stores := 2000
	stock := func() []int64 {
		s := make([]int64, stores)
		for i := range s {
			s[i] = 1_000
		}
		return s
	}
	total := func(l *lane, day string) int64 {
		var units int64
		for _, tx := range l.sell(Days(date(t, day), date(t, day))[0], nil) {
			units += tx.UnitsSold
		}
		return units
	}

	l := newTestLane(t, params, stock(), 0)
	require.Equal(t, SeasonSummer, l.product.Season)

	offSeason := total(l, "2024-03-05") // λ = 2
	inSeason := total(l, "2024-07-09")  // λ = 4

	assert.InDelta(t, 4000, offSeason, 400)
	assert.InDelta(t, 8000, inSeason, 600)
}

func TestReplenish_StoreOrderIsLoadBearing(t *testing.T) {
	params := DefaultParams()
	l := newTestLane(t, params, []int64{5, 9, 12, 0}, 25)

	remaining, shipped := l.replenish(25)

	// 残高不足のため4店舗目は補充されない
	assert.Equal(t, int64(5), remaining)
	assert.Equal(t, int64(20), shipped)
	assert.Equal(t, []int64{15, 19, 12, 0}, l.stock)
}

func TestReplenish_ExactBalance(t *testing.T) {
	params := DefaultParams()
	l := newTestLane(t, params, []int64{9, 9}, 20)

	remaining, shipped := l.replenish(20)

	assert.Equal(t, int64(0), remaining)
	assert.Equal(t, int64(20), shipped)
	assert.Equal(t, []int64{19, 19}, l.stock)
}

func TestShipmentQueue_NoCollisions(t *testing.T) {
	const lead = 7
	q := newShipmentQueue(lead)

	arrivals := map[int]int{}
	for day := 0; day < 200; day++ {
		if order, ok := q.arrive(day); ok {
			arrivals[day] = order
		}
		q.schedule(day, day) // 毎日発注
	}

	for day := lead; day < 200; day++ {
		assert.Equal(t, day-lead, arrivals[day], "day %d", day)
	}
	for day := 0; day < lead; day++ {
		_, ok := arrivals[day]
		assert.False(t, ok)
	}
}

func TestReorder_ThresholdIncludesIncoming(t *testing.T) {
	params := DefaultParams()
	l := newTestLane(t, params, []int64{20}, 0)
	days := Days(date(t, "2024-01-01"), date(t, "2024-01-09"))

	// 初日: 残高 0 → 発注
	assert.Equal(t, int64(0), l.reorder(days[0], 0))
	require.Len(t, l.orders, 1)

	// 2日目〜7日目は残高 95 → 毎日発注
	for _, day := range days[1:7] {
		assert.Equal(t, int64(0), l.reorder(day, 95))
	}
	require.Len(t, l.orders, 7)

	// 8日目: 入荷 300 + 残高 0 は閾値以上 → 発注しない
	assert.Equal(t, int64(300), l.reorder(days[7], 0))
	assert.Len(t, l.orders, 7)
	assert.True(t, l.orders[0].Received)
	assert.False(t, l.orders[1].Received)
}

func TestPoisson_Mean(t *testing.T) {
	s := newStream(42, "SKU001")

	for _, lambda := range []float64{0.5, 2, 4, 45} {
		const n = 20000
		var sum int64
		for i := 0; i < n; i++ {
			v := s.poisson(lambda)
			require.GreaterOrEqual(t, v, int64(0))
			sum += v
		}
		assert.InDelta(t, lambda, float64(sum)/n, 0.1+lambda*0.01, "λ=%g", lambda)
	}
	assert.Equal(t, int64(0), s.poisson(0))
}

func TestStream_ReproducibleAndKeyedByProduct(t *testing.T) {
	a, b, c := newStream(42, "SKU001"), newStream(42, "SKU001"), newStream(42, "SKU002")

	var da, db, dc []int64
	for i := 0; i < 50; i++ {
		da = append(da, a.poisson(3))
		db = append(db, b.poisson(3))
		dc = append(dc, c.poisson(3))
	}
	assert.Equal(t, da, db)
	assert.NotEqual(t, da, dc)
}

func TestStoreStockTable_Rows(t *testing.T) {
	table := NewStoreStockTable(3, 4, 20)

	row := table.Row(1)
	row[2] = 7

	assert.Equal(t, int64(7), table.Get(1, 2))
	assert.Equal(t, int64(20), table.Get(0, 2))
	assert.Equal(t, int64(20), table.Get(2, 2))
	assert.Len(t, row, 4)
}
