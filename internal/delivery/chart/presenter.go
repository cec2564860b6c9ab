// internal/delivery/chart/presenter.go
package chart

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/logger"

	gochart "github.com/wcharczuk/go-chart/v2"
)

const (
	// TickEvery подпись оси X только на каждом 12-м индексе
	TickEvery = 12
	// Headroom запас сверху по оси Y
	Headroom = 0.10
)

// ImageSink получатель отрисованного PNG (поверхность отображения)
type ImageSink interface {
	SetImage(ctx context.Context, widgetID string, png []byte) error
}

// Presenter владеет единственным графиком: создает его один раз,
// дальше меняет подписи и ряды на месте и перерисовывает.
type Presenter struct {
	mu sync.Mutex

	widgetID   string
	width      int
	height     int
	sink       ImageSink
	outputPath string

	graph    *gochart.Chart
	actual   *gochart.ContinuousSeries
	forecast *gochart.ContinuousSeries
	xRange   *gochart.ContinuousRange
	yRange   *gochart.ContinuousRange
	labels   []string

	constructions int
	renders       int
}

// NewPresenter создает презентер; outputPath опционален
func NewPresenter(widgetID string, width, height int, sink ImageSink, outputPath string) *Presenter {
	return &Presenter{
		widgetID:   widgetID,
		width:      width,
		height:     height,
		sink:       sink,
		outputPath: outputPath,
	}
}

// Present переносит линию времени на график и перерисовывает его
func (p *Presenter) Present(ctx context.Context, tl dashboard.DisplayTimeline) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.graph == nil {
		p.construct()
	}
	p.update(tl)

	if len(p.graph.Series) == 0 {
		logger.Debug("📉 [Chart] Нет точек для отрисовки, график не обновлен")
		return nil
	}

	var buf bytes.Buffer
	if err := p.graph.Render(gochart.PNG, &buf); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	p.renders++

	if p.outputPath != "" {
		if err := writeFileAtomic(p.outputPath, buf.Bytes()); err != nil {
			logger.Warn("⚠️ [Chart] Не удалось сохранить %s: %v", p.outputPath, err)
		}
	}

	if p.sink != nil {
		if err := p.sink.SetImage(ctx, p.widgetID, buf.Bytes()); err != nil {
			return fmt.Errorf("display chart: %w", err)
		}
	}
	return nil
}

// Chart текущий объект графика (nil до первого Present)
func (p *Presenter) Chart() *gochart.Chart {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.graph
}

// Constructions сколько раз создавался график
func (p *Presenter) Constructions() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.constructions
}

// Renders сколько раз график отрисован
func (p *Presenter) Renders() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.renders
}

func (p *Presenter) construct() {
	p.actual = &gochart.ContinuousSeries{
		Name: "actual",
		Style: gochart.Style{
			StrokeColor: gochart.ColorBlue,
			StrokeWidth: 2,
		},
	}
	p.forecast = &gochart.ContinuousSeries{
		Name: "forecast",
		Style: gochart.Style{
			StrokeColor:     gochart.ColorOrange,
			StrokeWidth:     2,
			StrokeDashArray: []float64{6, 4},
		},
	}
	p.xRange = &gochart.ContinuousRange{}
	p.yRange = &gochart.ContinuousRange{}

	p.graph = &gochart.Chart{
		Width:      p.width,
		Height:     p.height,
		Background: gochart.Style{Padding: gochart.Box{Top: 20, Left: 16, Right: 16, Bottom: 16}},
		XAxis:      gochart.XAxis{Range: p.xRange},
		YAxis:      gochart.YAxis{Name: "leads", Range: p.yRange},
	}
	p.graph.Elements = []gochart.Renderable{gochart.Legend(p.graph)}
	p.constructions++
}

// update меняет подписи, ряды, тики и диапазоны существующего графика
func (p *Presenter) update(tl dashboard.DisplayTimeline) {
	p.labels = append(p.labels[:0], tl.Labels...)

	fill(p.actual, tl.ActualSeries)
	fill(p.forecast, tl.ForecastSeries)

	p.graph.Series = p.graph.Series[:0]
	for _, s := range []*gochart.ContinuousSeries{p.actual, p.forecast} {
		if len(s.XValues) > 0 {
			p.graph.Series = append(p.graph.Series, s)
		}
	}

	// go-chart берет диапазон X из крайних тиков, поэтому последний
	// индекс всегда получает тик (без подписи, если не кратен TickEvery)
	last := len(p.labels) - 1
	if last < 1 {
		last = 1
	}
	ticks := p.graph.XAxis.Ticks[:0]
	for i := 0; i < len(p.labels); i += TickEvery {
		ticks = append(ticks, gochart.Tick{Value: float64(i), Label: p.labels[i]})
	}
	if n := len(ticks); n == 0 || ticks[n-1].Value < float64(last) {
		ticks = append(ticks, gochart.Tick{Value: float64(last)})
	}
	p.graph.XAxis.Ticks = ticks

	p.xRange.Min = 0
	p.xRange.Max = float64(last)

	maxY := 0.0
	for _, s := range p.graph.Series {
		for _, v := range s.(*gochart.ContinuousSeries).YValues {
			if v > maxY {
				maxY = v
			}
		}
	}
	p.yRange.Min = 0
	p.yRange.Max = maxY * (1 + Headroom)
	if maxY <= 0 {
		p.yRange.Max = 1
	}
}

// fill переписывает точки ряда по индексу; пустые слоты пропускаются.
// Одиночная точка дублируется, чтобы отрезок имел две вершины.
func fill(s *gochart.ContinuousSeries, values []*float64) {
	s.XValues = s.XValues[:0]
	s.YValues = s.YValues[:0]
	for i, v := range values {
		if v == nil {
			continue
		}
		s.XValues = append(s.XValues, float64(i))
		s.YValues = append(s.YValues, *v)
	}
	if len(s.XValues) == 1 {
		s.XValues = append(s.XValues, s.XValues[0])
		s.YValues = append(s.YValues, s.YValues[0])
	}
}

func writeFileAtomic(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
