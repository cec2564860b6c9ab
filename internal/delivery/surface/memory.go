// internal/delivery/surface/memory.go
package surface

import (
	"context"
	"sync"
	"time"

	"respond-dashboard/internal/types/dashboard"
)

// Widget состояние одного виджета
type Widget struct {
	ID        string    `json:"id"`
	Text      string    `json:"text,omitempty"`
	HasImage  bool      `json:"has_image"`
	UpdatedAt time.Time `json:"updated_at"`

	image []byte
}

// MemorySurface виджеты в памяти процесса; их читает HTTP сервер
type MemorySurface struct {
	mu      sync.RWMutex
	widgets map[string]*Widget
}

// NewMemorySurface регистрирует только перечисленные виджеты
func NewMemorySurface(ids ...string) *MemorySurface {
	s := &MemorySurface{widgets: make(map[string]*Widget, len(ids))}
	for _, id := range ids {
		s.widgets[id] = &Widget{ID: id}
	}
	return s
}

func (s *MemorySurface) SetText(_ context.Context, widgetID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.widgets[widgetID]
	if !ok {
		return dashboard.MissingTargetError(widgetID)
	}
	w.Text = text
	w.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySurface) SetImage(_ context.Context, widgetID string, png []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.widgets[widgetID]
	if !ok {
		return dashboard.MissingTargetError(widgetID)
	}
	w.image = append(w.image[:0], png...)
	w.HasImage = len(png) > 0
	w.UpdatedAt = time.Now()
	return nil
}

func (s *MemorySurface) Name() string {
	return "memory"
}

// Text текущий текст виджета
func (s *MemorySurface) Text(widgetID string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.widgets[widgetID]
	if !ok {
		return "", false
	}
	return w.Text, true
}

// Image копия изображения виджета
func (s *MemorySurface) Image(widgetID string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.widgets[widgetID]
	if !ok || len(w.image) == 0 {
		return nil, false
	}
	return append([]byte(nil), w.image...), true
}

// Snapshot копия всех виджетов
func (s *MemorySurface) Snapshot() map[string]Widget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]Widget, len(s.widgets))
	for id, w := range s.widgets {
		out[id] = Widget{ID: w.ID, Text: w.Text, HasImage: w.HasImage, UpdatedAt: w.UpdatedAt}
	}
	return out
}
