// application/services/orchestrator/loaders.go
package orchestrator

import (
	"context"
	"fmt"

	"respond-dashboard/internal/core/domain/anomaly"
	"respond-dashboard/internal/core/domain/kpi"
	"respond-dashboard/internal/core/domain/timeline"
	"respond-dashboard/internal/delivery/surface"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"
)

// ============================================
// ПРОГНОЗ
// ============================================

func (o *Orchestrator) loadForecast(ctx context.Context) dashboard.Result[dashboard.ForecastPayload] {
	payload, err := o.source.GetForecast(ctx, o.params.HorizonHours, o.params.HistoryHours)
	if err != nil {
		return dashboard.Fail[dashboard.ForecastPayload](err)
	}
	return dashboard.Ok(payload)
}

func (o *Orchestrator) forecastTask(ctx context.Context) error {
	res := o.loadForecast(ctx)
	if !res.IsOk() {
		return res.Err
	}
	payload := res.Value

	if timeline.Overlaps(payload.Actual, payload.Forecast) {
		logger.Warn("⚠️ [Orchestrator] Прогноз начинается не позже последнего факта: %s <= %s",
			payload.Forecast[0].Timestamp, payload.Actual[len(payload.Actual)-1].Timestamp)
	}

	o.statsMu.Lock()
	o.stats.ForecastModel = payload.Meta.Model
	o.stats.MonthlyForecast = payload.Monthly
	o.statsMu.Unlock()

	if payload.Meta.Model != "" {
		logger.Debug("🤖 [Orchestrator] Модель прогноза: %s (горизонт %dч, история %dч)",
			payload.Meta.Model, payload.Meta.HorizonHours, payload.Meta.HistoryHours)
	}

	sum := kpi.Sum24hForecast(payload.Forecast)
	o.noteMu.Lock()
	o.forecast24h = &sum
	o.noteMu.Unlock()

	o.statsMu.Lock()
	o.stats.KPI.Forecast24hLeads = sum
	o.statsMu.Unlock()

	tl := timeline.Reconcile(payload.Actual, payload.Forecast)
	if o.presenter != nil {
		if err := o.presenter.Present(ctx, tl); err != nil {
			return err
		}
	}

	return o.writeNote(ctx)
}

// ============================================
// АНОМАЛИИ
// ============================================

func (o *Orchestrator) loadAnomalies(ctx context.Context) dashboard.Result[dashboard.AnomalyReport] {
	report, err := o.source.GetAnomalies(ctx, o.params.AnomalyMetric, o.params.AnomalyK)
	if err != nil {
		return dashboard.Fail[dashboard.AnomalyReport](err)
	}
	return dashboard.Ok(report)
}

func (o *Orchestrator) anomaliesTask(ctx context.Context) error {
	res := o.loadAnomalies(ctx)
	if !res.IsOk() {
		return res.Err
	}

	if bad := anomaly.RankingViolations(res.Value.Anomalies); len(bad) > 0 {
		logger.Warn("⚠️ [Orchestrator] Аномалии не упорядочены по |z| (позиции %v), используется элемент 0", bad)
	}

	interp := anomaly.Interpret(res.Value.Anomalies)

	o.statsMu.Lock()
	o.stats.Anomaly = &interp
	o.statsMu.Unlock()

	return o.writeTexts(ctx, []widgetText{
		{surface.WidgetAnomalyMonth, interp.Display.TimestampLabel},
		{surface.WidgetAnomalyValue, interp.Display.MetricLabel},
		{surface.WidgetAnomalyZ, interp.Display.ZLabel},
		{surface.WidgetAnomalyNotes, interp.Advisory},
	})
}

// ============================================
// KPI
// ============================================

func (o *Orchestrator) loadKPI(ctx context.Context) dashboard.Result[dashboard.KPIPayload] {
	payload, err := o.source.GetKPI(ctx, o.params.KPIWindowHours)
	if err != nil {
		return dashboard.Fail[dashboard.KPIPayload](err)
	}
	return dashboard.Ok(payload)
}

func (o *Orchestrator) kpiTask(ctx context.Context) error {
	res := o.loadKPI(ctx)
	if !res.IsOk() {
		return res.Err
	}

	snap := kpi.Aggregate(res.Value)
	leads := snap.Leads24h

	o.noteMu.Lock()
	o.leads24h = &leads
	o.noteMu.Unlock()

	o.statsMu.Lock()
	snap.Forecast24hLeads = o.stats.KPI.Forecast24hLeads
	o.stats.KPI = snap
	o.statsMu.Unlock()

	leadsText, cplText, roiText := kpi.Cards(snap)
	if err := o.writeTexts(ctx, []widgetText{
		{surface.WidgetKPILeads, leadsText},
		{surface.WidgetKPICPL, cplText},
		{surface.WidgetKPIROI, roiText},
	}); err != nil {
		return err
	}

	return o.writeNote(ctx)
}

// ============================================
// ВЫВОД
// ============================================

type widgetText struct {
	id   string
	text string
}

// writeTexts пишет виджеты по порядку, первая ошибка прерывает запись
func (o *Orchestrator) writeTexts(ctx context.Context, items []widgetText) error {
	for _, item := range items {
		if err := o.surface.SetText(ctx, item.id, item.text); err != nil {
			return fmt.Errorf("widget %s: %w", item.id, err)
		}
	}
	return nil
}

// writeNote пересобирает подпись KPI из последних известных значений.
// Блокировка держится до записи, чтобы не перезаписать подпись устаревшей.
func (o *Orchestrator) writeNote(ctx context.Context) error {
	o.noteMu.Lock()
	defer o.noteMu.Unlock()

	note := kpi.ComposeNote(o.forecast24h, o.leads24h)
	if err := o.surface.SetText(ctx, surface.WidgetKPINote, note); err != nil {
		return fmt.Errorf("widget %s: %w", surface.WidgetKPINote, err)
	}
	return nil
}
