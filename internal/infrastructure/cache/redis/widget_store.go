// internal/infrastructure/cache/redis/widget_store.go
package redis

import (
	"context"
	"fmt"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/go-redis/redis/v8"
)

// WidgetStore поверхность отображения в Redis.
// Набор виджетов хранится в множестве <prefix>widgets, текст в хэше
// <prefix>widget:<id>, PNG графика в ключе <prefix>widget:<id>:png.
type WidgetStore struct {
	client redis.UniversalClient
	prefix string
}

// NewWidgetStore создает хранилище
func NewWidgetStore(client redis.UniversalClient, prefix string) *WidgetStore {
	return &WidgetStore{client: client, prefix: prefix}
}

func (s *WidgetStore) registryKey() string {
	return s.prefix + "widgets"
}

func (s *WidgetStore) widgetKey(id string) string {
	return s.prefix + "widget:" + id
}

func (s *WidgetStore) imageKey(id string) string {
	return s.widgetKey(id) + ":png"
}

// Register добавляет виджеты в реестр
func (s *WidgetStore) Register(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	members := make([]interface{}, len(ids))
	for i, id := range ids {
		members[i] = id
	}
	if err := s.client.SAdd(ctx, s.registryKey(), members...).Err(); err != nil {
		return fmt.Errorf("%w: register widgets: %v", dashboard.ErrTransport, err)
	}
	return nil
}

func (s *WidgetStore) ensure(ctx context.Context, widgetID string) error {
	ok, err := s.client.SIsMember(ctx, s.registryKey(), widgetID).Result()
	if err != nil {
		return fmt.Errorf("%w: lookup widget %s: %v", dashboard.ErrTransport, widgetID, err)
	}
	if !ok {
		return dashboard.MissingTargetError(widgetID)
	}
	return nil
}

func (s *WidgetStore) SetText(ctx context.Context, widgetID, text string) error {
	if err := s.ensure(ctx, widgetID); err != nil {
		return err
	}
	err := s.client.HSet(ctx, s.widgetKey(widgetID),
		"text", text,
		"updated_at", time.Now().UTC().Format(time.RFC3339),
	).Err()
	if err != nil {
		return fmt.Errorf("%w: write widget %s: %v", dashboard.ErrTransport, widgetID, err)
	}
	return nil
}

func (s *WidgetStore) SetImage(ctx context.Context, widgetID string, png []byte) error {
	if err := s.ensure(ctx, widgetID); err != nil {
		return err
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.imageKey(widgetID), png, 0)
		pipe.HSet(ctx, s.widgetKey(widgetID), "updated_at", time.Now().UTC().Format(time.RFC3339))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: write image %s: %v", dashboard.ErrTransport, widgetID, err)
	}
	return nil
}

func (s *WidgetStore) Name() string {
	return "redis"
}

// Text текущий текст виджета
func (s *WidgetStore) Text(ctx context.Context, widgetID string) (string, error) {
	text, err := s.client.HGet(ctx, s.widgetKey(widgetID), "text").Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: read widget %s: %v", dashboard.ErrTransport, widgetID, err)
	}
	return text, nil
}
