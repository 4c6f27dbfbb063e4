package simulation

import (
	"fmt"
	"time"
)

// DateLayout is the civil date format used for identifiers and files
const DateLayout = "2006-01-02"

// DayContext is computed once per simulated day
// 1日ごとに一度だけ計算される日付コンテキスト
type DayContext struct {
	Index   int          // 開始日からの経過日数
	Date    time.Time    // UTC 0時に正規化した日付
	Weekday time.Weekday // 曜日
	Promo   bool         // 販促期間かどうか
}

// ParseDate parses a YYYY-MM-DD civil date
// YYYY-MM-DD 形式の日付を解析
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s", ErrInvalidDateRange, value)
	}
	return t, nil
}

// civil drops the clock and location of t
func civil(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsPromotionDay reports whether date falls inside a promotion window:
// a Saturday or Sunday whose day-of-month / 7 is a multiple of 3
// 販促日判定：週末かつ (日 / 7) % 3 == 0
func IsPromotionDay(date time.Time) bool {
	wd := date.Weekday()
	weekend := wd == time.Saturday || wd == time.Sunday
	return weekend && (date.Day()/7)%3 == 0
}

// Days returns the context of every day in the inclusive range [start, end]
// 開始日から終了日（含む）までの日付コンテキストを返す
func Days(start, end time.Time) []DayContext {
	first, last := civil(start), civil(end)
	if last.Before(first) {
		return nil
	}

	days := make([]DayContext, 0, int(last.Sub(first).Hours()/24)+1)
	for d, i := first, 0; !d.After(last); d, i = d.AddDate(0, 0, 1), i+1 {
		days = append(days, DayContext{
			Index:   i,
			Date:    d,
			Weekday: d.Weekday(),
			Promo:   IsPromotionDay(d),
		})
	}
	return days
}
