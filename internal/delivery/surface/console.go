// internal/delivery/surface/console.go
package surface

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"respond-dashboard/internal/types/dashboard"
)

// ConsoleSurface печатает обновления виджетов в консоль
type ConsoleSurface struct {
	mu      sync.Mutex
	out     io.Writer
	compact bool
	known   map[string]bool
	stats   map[string]interface{}
}

// NewConsoleSurface создает консольную поверхность для набора виджетов
func NewConsoleSurface(out io.Writer, compact bool, ids ...string) *ConsoleSurface {
	if out == nil {
		out = os.Stdout
	}
	known := make(map[string]bool, len(ids))
	for _, id := range ids {
		known[id] = true
	}
	return &ConsoleSurface{
		out:     out,
		compact: compact,
		known:   known,
		stats: map[string]interface{}{
			"sent":           0,
			"last_sent_time": time.Time{},
			"type":           "console",
		},
	}
}

func (c *ConsoleSurface) SetText(_ context.Context, widgetID, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.known[widgetID] {
		return dashboard.MissingTargetError(widgetID)
	}

	if c.compact {
		fmt.Fprintf(c.out, "📟 %s = %s\n", widgetID, text)
	} else {
		fmt.Fprintln(c.out, "══════════════════════════════════════════════════")
		fmt.Fprintf(c.out, "📟 %s\n   %s\n", widgetID, text)
	}
	c.track()
	return nil
}

func (c *ConsoleSurface) SetImage(_ context.Context, widgetID string, png []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.known[widgetID] {
		return dashboard.MissingTargetError(widgetID)
	}
	fmt.Fprintf(c.out, "🖼️ %s обновлен (%d байт PNG)\n", widgetID, len(png))
	c.track()
	return nil
}

func (c *ConsoleSurface) Name() string {
	return "console"
}

// GetStats возвращает статистику
func (c *ConsoleSurface) GetStats() map[string]interface{} {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make(map[string]interface{}, len(c.stats))
	for k, v := range c.stats {
		out[k] = v
	}
	return out
}

func (c *ConsoleSurface) track() {
	c.stats["sent"] = c.stats["sent"].(int) + 1
	c.stats["last_sent_time"] = time.Now()
}
