package simulation

// shipmentQueue is a ring buffer of factory shipments indexed by arrival day.
// With a fixed lead time L and at most one order per day, the orders in flight
// arrive on L distinct days, so L+1 slots never collide.
// リードタイム固定の入荷予定リングバッファ
type shipmentQueue struct {
	lead  int
	slots []int // 発注インデックス（-1 は空き）
}

func newShipmentQueue(lead int) shipmentQueue {
	slots := make([]int, lead+1)
	for i := range slots {
		slots[i] = -1
	}
	return shipmentQueue{lead: lead, slots: slots}
}

// arrive pops the order due on dayIndex
func (q *shipmentQueue) arrive(dayIndex int) (int, bool) {
	slot := dayIndex % len(q.slots)
	order := q.slots[slot]
	q.slots[slot] = -1
	return order, order >= 0
}

// schedule books an order placed on dayIndex
func (q *shipmentQueue) schedule(dayIndex, order int) {
	q.slots[(dayIndex+q.lead)%len(q.slots)] = order
}

// reorder applies today's factory arrival and places a new order when the
// projected balance drops below the threshold. It returns the units received.
// 当日の入荷を反映し、発注点を下回れば工場へ発注
func (l *lane) reorder(day DayContext, balance int64) int64 {
	var incoming int64
	if idx, ok := l.inbound.arrive(day.Index); ok {
		l.orders[idx].Received = true
		incoming = l.orders[idx].Quantity
	}

	projected := balance + incoming
	if projected < l.params.ReorderThreshold {
		order := PendingShipment{
			ID:          NewOrderID(l.product.ID, day.Date),
			ProductID:   l.product.ID,
			OrderDate:   day.Date,
			ArrivalDate: day.Date.AddDate(0, 0, l.params.LeadTimeDays),
			Quantity:    l.params.ReorderQuantity,
		}
		l.orders = append(l.orders, order)
		l.inbound.schedule(day.Index, len(l.orders)-1)

		if l.observer != nil {
			l.observer.OnReorder(ReorderEvent{
				OrderID:     order.ID,
				ProductID:   order.ProductID,
				OrderDate:   order.OrderDate,
				ArrivalDate: order.ArrivalDate,
				Quantity:    order.Quantity,
				Projected:   projected,
				Threshold:   l.params.ReorderThreshold,
			})
		}
	}

	return incoming
}

// close books the day's ending stock and returns the ledger row
// 期末在庫を確定し在庫台帳の行を返す
func (l *lane) close(day DayContext, starting, balance, received, shipped int64) InventoryRecord {
	ending := max(0, balance+received)
	l.warehouse.record(ending)

	rec := InventoryRecord{
		Date:      day.Date,
		ProductID: l.product.ID,
		Starting:  starting,
		Received:  received,
		Shipped:   shipped,
		Ending:    ending,
		Stockout:  ending == 0,
		Overstock: ending > l.params.OverstockMark,
	}

	if l.observer != nil {
		switch {
		case rec.Stockout:
			l.observer.OnStockAlert(StockAlertEvent{
				Type:      AlertTypeStockout,
				ProductID: rec.ProductID,
				Date:      rec.Date,
				Ending:    rec.Ending,
			})
		case rec.Overstock:
			l.observer.OnStockAlert(StockAlertEvent{
				Type:      AlertTypeOverstock,
				ProductID: rec.ProductID,
				Date:      rec.Date,
				Ending:    rec.Ending,
				Threshold: l.params.OverstockMark,
			})
		}
	}

	return rec
}
