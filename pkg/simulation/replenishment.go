package simulation

// replenish tops up every store below the floor, in input order, while the
// warehouse balance still covers a full restock quantity. It returns the
// remaining balance and the units shipped.
// 下限を下回った店舗へ倉庫から補充（店舗の入力順）
func (l *lane) replenish(balance int64) (remaining, shipped int64) {
	floor, quantity := l.params.RestockFloor, l.params.RestockQuantity
	if quantity <= 0 {
		return balance, 0
	}

	for i := range l.stock {
		if l.stock[i] >= floor || balance < quantity {
			continue
		}
		l.stock[i] += quantity
		balance -= quantity
		shipped += quantity
	}
	return balance, shipped
}
