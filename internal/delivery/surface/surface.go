// internal/delivery/surface/surface.go
package surface

import (
	"context"
	"errors"
)

// Идентификаторы виджетов страницы
const (
	WidgetKPILeads     = "kpi-leads"
	WidgetKPICPL       = "kpi-cpl"
	WidgetKPIROI       = "kpi-roi"
	WidgetKPINote      = "kpi-note"
	WidgetAnomalyMonth = "anomaly-month"
	WidgetAnomalyValue = "anomaly-value"
	WidgetAnomalyZ     = "anomaly-z"
	WidgetAnomalyNotes = "anomaly-notes"
	WidgetChart        = "forecast-chart"
)

// DefaultWidgets полный набор виджетов дашборда
var DefaultWidgets = []string{
	WidgetKPILeads, WidgetKPICPL, WidgetKPIROI, WidgetKPINote,
	WidgetAnomalyMonth, WidgetAnomalyValue, WidgetAnomalyZ, WidgetAnomalyNotes,
	WidgetChart,
}

// Surface поверхность отображения: виджеты по идентификатору.
// Отсутствующий виджет дает ошибку ErrMissingDisplayTarget.
type Surface interface {
	SetText(ctx context.Context, widgetID, text string) error
	SetImage(ctx context.Context, widgetID string, png []byte) error
	Name() string
}

// Multi пишет во все поверхности по порядку
type Multi []Surface

func (m Multi) SetText(ctx context.Context, widgetID, text string) error {
	var errs []error
	for _, s := range m {
		if err := s.SetText(ctx, widgetID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) SetImage(ctx context.Context, widgetID string, png []byte) error {
	var errs []error
	for _, s := range m {
		if err := s.SetImage(ctx, widgetID, png); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Name() string {
	name := "multi"
	for _, s := range m {
		name += ":" + s.Name()
	}
	return name
}
