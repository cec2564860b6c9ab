// internal/core/domain/timeline/label.go
package timeline

import (
	"strings"
	"time"
)

// LabelLayout формат подписи оси: "MM-DD HH:MM"
const LabelLayout = "01-02 15:04"

// timestampLayouts допустимые форматы меток времени сервиса
var timestampLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

// ParseTimestamp разбирает метку времени сервиса.
// Часовой пояс, если указан, сохраняется как есть.
func ParseTimestamp(ts string) (time.Time, bool) {
	ts = strings.TrimSpace(ts)
	if ts == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, ts); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatLabel компактная подпись "MM-DD HH:MM".
// Пустая или нераспознанная метка дает "".
func FormatLabel(ts string) string {
	t, ok := ParseTimestamp(ts)
	if !ok {
		return ""
	}
	return t.Format(LabelLayout)
}
