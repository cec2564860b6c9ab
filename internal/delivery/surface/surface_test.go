package surface

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"respond-dashboard/internal/types/dashboard"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemorySurfaceMissingTarget(t *testing.T) {
	s := NewMemorySurface(WidgetKPILeads)

	require.NoError(t, s.SetText(context.Background(), WidgetKPILeads, "120"))
	err := s.SetText(context.Background(), WidgetKPINote, "note")
	assert.True(t, errors.Is(err, dashboard.ErrMissingDisplayTarget))
	assert.Contains(t, err.Error(), WidgetKPINote)

	err = s.SetImage(context.Background(), WidgetChart, []byte{1})
	assert.Equal(t, dashboard.KindMissingDisplayTarget, dashboard.Kind(err))

	text, ok := s.Text(WidgetKPILeads)
	assert.True(t, ok)
	assert.Equal(t, "120", text)
}

func TestMemorySurfaceImageIsCopied(t *testing.T) {
	s := NewMemorySurface(DefaultWidgets...)
	png := []byte{0x89, 'P', 'N', 'G'}
	require.NoError(t, s.SetImage(context.Background(), WidgetChart, png))

	png[0] = 0
	got, ok := s.Image(WidgetChart)
	require.True(t, ok)
	assert.Equal(t, byte(0x89), got[0])

	snap := s.Snapshot()
	assert.Len(t, snap, len(DefaultWidgets))
	assert.True(t, snap[WidgetChart].HasImage)

	_, ok = s.Image(WidgetKPINote)
	assert.False(t, ok)
}

func TestConsoleSurface(t *testing.T) {
	var buf bytes.Buffer
	s := NewConsoleSurface(&buf, true, WidgetKPICPL)

	require.NoError(t, s.SetText(context.Background(), WidgetKPICPL, "8.25"))
	assert.Contains(t, buf.String(), "kpi-cpl = 8.25")
	assert.Equal(t, 1, s.GetStats()["sent"])

	err := s.SetText(context.Background(), WidgetKPIROI, "1.4")
	assert.True(t, errors.Is(err, dashboard.ErrMissingDisplayTarget))
}

func TestMultiJoinsErrors(t *testing.T) {
	full := NewMemorySurface(DefaultWidgets...)
	partial := NewMemorySurface(WidgetKPILeads)
	m := Multi{full, partial}

	require.NoError(t, m.SetText(context.Background(), WidgetKPILeads, "1"))

	err := m.SetText(context.Background(), WidgetKPINote, "x")
	assert.True(t, errors.Is(err, dashboard.ErrMissingDisplayTarget))
	text, _ := full.Text(WidgetKPINote)
	assert.Equal(t, "x", text, "healthy surfaces still receive the update")
	assert.Equal(t, "multi:memory:memory", m.Name())
}
