package simulation

import (
	"fmt"
	"math"
)

// RoundingMode controls how the promotional demand uplift becomes whole units
// 販促による需要増加分の端数処理方法
type RoundingMode string

const (
	RoundingTruncate RoundingMode = "truncate" // 切り捨て（ゼロ方向）
	RoundingNearest  RoundingMode = "round"    // 四捨五入
)

const (
	// MaxDemandMean bounds the Poisson mean of one store-day (base demand × seasonal multiplier)
	MaxDemandMean = 10000.0
	// MaxPromoUplift bounds the promotional demand multiplier
	MaxPromoUplift = 100.0

	// maxUpliftUnits caps one boosted draw before it becomes an int64
	maxUpliftUnits = 1 << 40
)

// Params holds the economic constants of the simulation
// シミュレーションの経済パラメータを保持
type Params struct {
	InitialWarehouseStock int64        `yaml:"initial_warehouse_stock"` // 倉庫初期在庫
	InitialStoreStock     int64        `yaml:"initial_store_stock"`     // 店舗初期在庫
	ReorderThreshold      int64        `yaml:"reorder_threshold"`       // 発注点
	ReorderQuantity       int64        `yaml:"reorder_quantity"`        // 発注数量
	LeadTimeDays          int          `yaml:"lead_time_days"`          // 工場リードタイム
	RestockFloor          int64        `yaml:"restock_floor"`           // 店舗補充の下限
	RestockQuantity       int64        `yaml:"restock_quantity"`        // 店舗補充数量
	OverstockMark         int64        `yaml:"overstock_mark"`          // 過剰在庫の閾値
	BaseDemand            float64      `yaml:"base_demand"`             // 基本需要（ポアソン平均）
	SeasonalMultiplier    float64      `yaml:"seasonal_multiplier"`     // シーズン倍率
	PromoUplift           float64      `yaml:"promo_uplift"`            // 販促時の需要倍率
	UpliftRounding        RoundingMode `yaml:"uplift_rounding"`         // 端数処理
	Discounts             []int        `yaml:"discounts"`               // 割引率の候補（%）
	Seed                  int64        `yaml:"seed"`                    // 乱数シード
	Workers               int          `yaml:"workers"`                 // 並列に進める商品レーン数
}

// DefaultParams returns the standard economic model
// 標準パラメータを返す
func DefaultParams() *Params {
	return &Params{
		InitialWarehouseStock: 500,
		InitialStoreStock:     20,
		ReorderThreshold:      100,
		ReorderQuantity:       300,
		LeadTimeDays:          7,
		RestockFloor:          10,
		RestockQuantity:       10,
		OverstockMark:         800,
		BaseDemand:            2.0,
		SeasonalMultiplier:    2.0,
		PromoUplift:           1.5,
		UpliftRounding:        RoundingTruncate,
		Discounts:             []int{10, 15, 20, 30},
		Seed:                  42,
		Workers:               1,
	}
}

// Validate checks that the parameters describe a runnable model
// パラメータをバリデーション
func (p *Params) Validate() error {
	nonNegative := map[string]int64{
		"initial_warehouse_stock": p.InitialWarehouseStock,
		"initial_store_stock":     p.InitialStoreStock,
		"reorder_threshold":       p.ReorderThreshold,
		"reorder_quantity":        p.ReorderQuantity,
		"restock_floor":           p.RestockFloor,
		"restock_quantity":        p.RestockQuantity,
		"overstock_mark":          p.OverstockMark,
	}
	for _, field := range []string{
		"initial_warehouse_stock", "initial_store_stock", "reorder_threshold", "reorder_quantity",
		"restock_floor", "restock_quantity", "overstock_mark",
	} {
		if nonNegative[field] < 0 {
			return NewValidationError(field, "0以上である必要があります", fmt.Sprintf("%d", nonNegative[field]))
		}
	}

	if p.LeadTimeDays < 1 {
		return NewValidationError("lead_time_days", "リードタイムは1日以上である必要があります", fmt.Sprintf("%d", p.LeadTimeDays))
	}
	if err := checkFactor("base_demand", "基本需要", p.BaseDemand, MaxDemandMean); err != nil {
		return err
	}
	if err := checkFactor("seasonal_multiplier", "シーズン倍率", p.SeasonalMultiplier, MaxDemandMean); err != nil {
		return err
	}
	if mean := p.BaseDemand * max(1, p.SeasonalMultiplier); mean > MaxDemandMean {
		return NewValidationError("seasonal_multiplier", fmt.Sprintf("ピーク時の需要平均は%g以下である必要があります", MaxDemandMean), fmt.Sprintf("%g", mean))
	}
	if err := checkFactor("promo_uplift", "販促倍率", p.PromoUplift, MaxPromoUplift); err != nil {
		return err
	}
	if p.UpliftRounding != RoundingTruncate && p.UpliftRounding != RoundingNearest {
		return NewValidationError("uplift_rounding", "未対応の端数処理です", string(p.UpliftRounding))
	}
	if len(p.Discounts) == 0 {
		return NewValidationError("discounts", "割引率の候補が指定されていません", "")
	}
	for _, d := range p.Discounts {
		if d <= 0 || d >= 100 {
			return NewValidationError("discounts", "割引率は1〜99の範囲である必要があります", fmt.Sprintf("%d", d))
		}
	}
	if p.Workers < 1 {
		return NewValidationError("workers", "ワーカー数は1以上である必要があります", fmt.Sprintf("%d", p.Workers))
	}

	return nil
}

// checkFactor requires a finite value in [0, limit]
func checkFactor(field, label string, value, limit float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 || value > limit {
		return NewValidationError(field, fmt.Sprintf("%sは0以上%g以下の有限値である必要があります", label, limit), fmt.Sprintf("%g", value))
	}
	return nil
}

// uplift applies the promotional demand multiplier; the result stays in [0, maxUpliftUnits]
func (p *Params) uplift(expected int64) int64 {
	boosted := float64(expected) * p.PromoUplift
	if p.UpliftRounding == RoundingNearest {
		boosted = math.Round(boosted)
	}
	if !(boosted > 0) {
		return 0
	}
	return int64(min(boosted, maxUpliftUnits))
}

func (p *Params) clone() *Params {
	c := *p
	c.Discounts = append([]int(nil), p.Discounts...)
	return &c
}
