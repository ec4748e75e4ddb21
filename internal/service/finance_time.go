package service

import (
	"strings"
	"time"

	"github.com/lingxi-works/fincore/internal/constants"
)

// parseDate 解析 YYYY-MM-DD，统一为 UTC 零点
func parseDate(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, newValidationError(field, "date is required")
	}
	t, err := time.ParseInLocation(constants.DateLayout, raw, time.UTC)
	if err != nil {
		return time.Time{}, newValidationError(field, "date must be YYYY-MM-DD")
	}
	return t, nil
}

// truncateDay 取当日 UTC 零点
func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// monthRange 解析 YYYY-MM 并返回 [月初, 次月初)
func monthRange(month string) (time.Time, time.Time, error) {
	month = strings.TrimSpace(month)
	start, err := time.ParseInLocation(constants.MonthLayout, month, time.UTC)
	if err != nil {
		return time.Time{}, time.Time{}, newValidationError("month", "month must be YYYY-MM")
	}
	return start, start.AddDate(0, 1, 0), nil
}

// monthOf 返回日期所在月份的 [月初, 次月初)
func monthOf(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
