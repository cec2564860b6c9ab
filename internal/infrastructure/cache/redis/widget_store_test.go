package redis

import (
	"context"
	"net"
	"testing"
	"time"

	"respond-dashboard/internal/types/dashboard"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWidgetStoreKeys(t *testing.T) {
	s := NewWidgetStore(nil, "respond:")
	assert.Equal(t, "respond:widgets", s.registryKey())
	assert.Equal(t, "respond:widget:kpi-note", s.widgetKey("kpi-note"))
	assert.Equal(t, "respond:widget:forecast-chart:png", s.imageKey("forecast-chart"))
	assert.Equal(t, "redis", s.Name())
}

// unreachableAddr адрес, на котором гарантированно никто не слушает
func unreachableAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestWidgetStoreUnreachableIsTransportError(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        unreachableAddr(t),
		DialTimeout: 200 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	s := NewWidgetStore(client, "test:")

	err := s.SetText(context.Background(), "kpi-leads", "1")
	assert.Equal(t, dashboard.KindTransport, dashboard.Kind(err), "got %v", err)

	err = s.Register(context.Background(), "kpi-leads")
	assert.Equal(t, dashboard.KindTransport, dashboard.Kind(err))

	assert.NoError(t, s.Register(context.Background()))
}
