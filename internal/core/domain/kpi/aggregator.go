// internal/core/domain/kpi/aggregator.go
package kpi

import (
	"fmt"

	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/utils"
)

// ForecastWindow число первых точек прогноза в сумме на 24 часа
const ForecastWindow = 24

// Aggregate карточка KPI по ответу сервиса за окно.
// Forecast24hLeads приходит из другого ресурса и здесь не заполняется.
func Aggregate(payload dashboard.KPIPayload) dashboard.KPISnapshot {
	return dashboard.KPISnapshot{
		Leads24h: payload.Leads24h,
		CPL24h:   payload.CPL24h,
		ROI24h:   payload.ROI24h,
	}
}

// Sum24hForecast сумма первых ForecastWindow значений прогноза (или всех, если их меньше)
func Sum24hForecast(forecast []dashboard.TimePoint) float64 {
	limit := len(forecast)
	if limit > ForecastWindow {
		limit = ForecastWindow
	}

	var sum float64
	for _, p := range forecast[:limit] {
		sum += p.Value
	}
	return sum
}

// Cards тексты ячеек KPI: лиды, CPL, ROI
func Cards(s dashboard.KPISnapshot) (leads, cpl, roi string) {
	return utils.FormatCount(s.Leads24h), utils.FormatFixed(s.CPL24h, 2), utils.FormatFixed(s.ROI24h, 2)
}

// ComposeNote подпись карточки KPI из прогноза и факта за 24ч.
// Любая из частей может отсутствовать: вторая выводится независимо.
func ComposeNote(forecast24h, leads24h *float64) string {
	forecastText, leadsText := utils.Placeholder, utils.Placeholder
	if forecast24h != nil {
		forecastText = utils.FormatCount(*forecast24h)
	}
	if leads24h != nil {
		leadsText = utils.FormatCount(*leads24h)
	}
	return fmt.Sprintf("Прогноз на 24ч: %s лидов · Факт за 24ч: %s", forecastText, leadsText)
}

// LatestMonthly последняя строка помесячных KPI
func LatestMonthly(rows []dashboard.MonthlyMetrics) (dashboard.MonthlyMetrics, bool) {
	if len(rows) == 0 {
		return dashboard.MonthlyMetrics{}, false
	}
	return rows[len(rows)-1], true
}
