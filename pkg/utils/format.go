// pkg/utils/format.go
package utils

import (
	"fmt"
	"math"
	"time"
)

// Placeholder выводится вместо отсутствующего значения
const Placeholder = "—"

// FormatFixed число с заданной точностью; NaN и Inf дают Placeholder
func FormatFixed(value float64, precision int) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return Placeholder
	}
	return fmt.Sprintf("%.*f", precision, value)
}

// FormatOptional как FormatFixed, nil дает Placeholder
func FormatOptional(value *float64, precision int) string {
	if value == nil {
		return Placeholder
	}
	return FormatFixed(*value, precision)
}

// FormatCount целое количество (лиды); -0 печатается как 0
func FormatCount(value float64) string {
	rounded := math.Round(value)
	if rounded == 0 {
		rounded = 0
	}
	return FormatFixed(rounded, 0)
}

// FormatDuration форматирует продолжительность в читаемый вид
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fс", d.Seconds())
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60

	if hours > 0 {
		return fmt.Sprintf("%dч %dм", hours, minutes)
	}
	return fmt.Sprintf("%dм", minutes)
}
