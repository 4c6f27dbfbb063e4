package simulation

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// effectivePrice applies a percentage discount and rounds to cents
// 割引後の単価を計算（小数点以下2桁）
func effectivePrice(base decimal.Decimal, discount int) decimal.Decimal {
	factor := decimal.NewFromInt(int64(100 - discount)).Div(hundred)
	return base.Mul(factor).Round(2)
}

// sell runs the demand model of one product for one day across every store,
// appending a TransactionRecord for each store that sold at least one unit
// 1商品の1日分の販売を全店舗について処理
func (l *lane) sell(day DayContext, out []TransactionRecord) []TransactionRecord {
	multiplier := 1.0
	if l.product.Season.Peaks(day.Date.Month()) {
		multiplier = l.params.SeasonalMultiplier
	}

	// one discount per product per day, shared by every store
	discount := 0
	if day.Promo {
		discount = l.rng.choice(l.params.Discounts)
	}
	price := effectivePrice(l.product.Price, discount)
	lambda := l.params.BaseDemand * multiplier

	for i := range l.stores {
		expected := l.rng.poisson(lambda)
		if discount > 0 {
			expected = l.params.uplift(expected)
		}

		sold := min(expected, l.stock[i])
		l.stock[i] -= sold
		if sold <= 0 {
			continue
		}

		out = append(out, TransactionRecord{
			ID:        NewTransactionID(l.stores[i].ID, l.product.ID, day.Date),
			Date:      day.Date,
			StoreID:   l.stores[i].ID,
			ProductID: l.product.ID,
			UnitsSold: sold,
			UnitPrice: price,
			Discount:  discount,
			Promo:     day.Promo,
		})
	}
	return out
}
