// internal/core/domain/timeline/reconciler.go
package timeline

import (
	"respond-dashboard/internal/types/dashboard"
)

// Reconcile сводит факт и прогноз на одну ось.
//
// Ось: подписи факта, затем прогноза; длина всех рядов m+n.
// ActualSeries: значения факта, далее nil.
// ForecastSeries: nil до слота m-1, в слоте m-1 последнее значение факта
// (точка сшивки), далее значения прогноза.
// Без факта сшивать не с чем: слот 0 пуст, остальные слоты берут прогноз
// по своему индексу. Без прогноза ряд прогноза пуст целиком.
func Reconcile(actual, forecast []dashboard.TimePoint) dashboard.DisplayTimeline {
	m, n := len(actual), len(forecast)
	total := m + n

	tl := dashboard.DisplayTimeline{
		Labels:         make([]string, 0, total),
		ActualSeries:   make([]*float64, total),
		ForecastSeries: make([]*float64, total),
	}

	for i, p := range actual {
		tl.Labels = append(tl.Labels, FormatLabel(p.Timestamp))
		tl.ActualSeries[i] = value(p.Value)
	}
	for _, p := range forecast {
		tl.Labels = append(tl.Labels, FormatLabel(p.Timestamp))
	}

	if n == 0 {
		return tl
	}

	if m == 0 {
		for i := 1; i < n; i++ {
			tl.ForecastSeries[i] = value(forecast[i].Value)
		}
		return tl
	}

	tl.ForecastSeries[m-1] = value(actual[m-1].Value)
	for j, p := range forecast {
		tl.ForecastSeries[m+j] = value(p.Value)
	}

	return tl
}

// Overlaps true, если первый прогноз не позже последнего факта.
// Нераспознанные метки не считаются пересечением.
func Overlaps(actual, forecast []dashboard.TimePoint) bool {
	if len(actual) == 0 || len(forecast) == 0 {
		return false
	}
	last, ok := ParseTimestamp(actual[len(actual)-1].Timestamp)
	if !ok {
		return false
	}
	first, ok := ParseTimestamp(forecast[0].Timestamp)
	if !ok {
		return false
	}
	return !first.After(last)
}

func value(v float64) *float64 {
	return &v
}
