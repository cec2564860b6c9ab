// internal/core/domain/anomaly/interpreter.go
package anomaly

import (
	"math"

	"respond-dashboard/internal/core/domain/timeline"
	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/utils"
)

// Classification вывод по самой сильной аномалии
type Classification string

const (
	NoAnomaly   Classification = "no_anomaly"
	HighOutlier Classification = "high_outlier"
	LowOutlier  Classification = "low_outlier"
	Unreadable  Classification = "unreadable"
)

// Рекомендации по классам
var advisories = map[Classification]string{
	NoAnomaly:   "Аномалий не обнаружено: метрика в пределах нормы.",
	HighOutlier: "Резкий рост стоимости: проверьте ставки и бюджеты кампаний, отключите неэффективные источники трафика.",
	LowOutlier:  "Резкое падение показателя: проверьте качество лидов и целостность данных трекинга.",
	Unreadable:  "Z-score не определен: проверьте исходные данные и расчет метрики.",
}

// Display подписи карточки аномалии
type Display struct {
	TimestampLabel string
	MetricLabel    string
	ZLabel         string
}

// Interpretation итог разбора списка аномалий
type Interpretation struct {
	Display        Display
	Classification Classification
	Advisory       string
}

// Advisory текст рекомендации для класса
func Advisory(c Classification) string {
	return advisories[c]
}

// Interpret разбирает ранжированный список: берется только элемент 0,
// порядок сервиса не пересматривается.
func Interpret(records []dashboard.AnomalyRecord) Interpretation {
	if len(records) == 0 {
		return Interpretation{
			Display: Display{
				TimestampLabel: utils.Placeholder,
				MetricLabel:    utils.Placeholder,
				ZLabel:         utils.Placeholder,
			},
			Classification: NoAnomaly,
			Advisory:       Advisory(NoAnomaly),
		}
	}

	top := records[0]
	class := Classify(top.ZScore)

	label := timeline.FormatLabel(top.Timestamp)
	if label == "" {
		label = utils.Placeholder
	}

	return Interpretation{
		Display: Display{
			TimestampLabel: label,
			MetricLabel:    utils.FormatOptional(top.MetricValue, 2),
			ZLabel:         utils.FormatOptional(top.ZScore, 2),
		},
		Classification: class,
		Advisory:       Advisory(class),
	}
}

// Classify класс по Z-score: конечный > 0 - рост, конечный <= 0 - падение,
// иначе нечитаемый
func Classify(z *float64) Classification {
	if z == nil || math.IsNaN(*z) || math.IsInf(*z, 0) {
		return Unreadable
	}
	if *z > 0 {
		return HighOutlier
	}
	return LowOutlier
}

// RankingViolations индексы, где |z| больше, чем у предыдущей записи.
// Записи без конечного Z пропускаются.
func RankingViolations(records []dashboard.AnomalyRecord) []int {
	var violations []int
	prev := math.Inf(1)
	for i, r := range records {
		if Classify(r.ZScore) == Unreadable {
			continue
		}
		abs := math.Abs(*r.ZScore)
		if abs > prev {
			violations = append(violations, i)
		}
		prev = abs
	}
	return violations
}
