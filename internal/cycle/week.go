package cycle

import "time"

// WeekStart 返回 t 所在周的周一 00:00（沿用 t 的时区）。
// 周日属于上一周，因此回退六天。
func WeekStart(t time.Time) time.Time {
	offset := int(t.Weekday()) - int(time.Monday)
	if offset < 0 {
		offset += 7
	}
	day := t.AddDate(0, 0, -offset)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, t.Location())
}
