package anomaly

import (
	"math"
	"testing"

	"respond-dashboard/internal/types/dashboard"
	"respond-dashboard/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func f(v float64) *float64 { return &v }

func TestInterpretEmpty(t *testing.T) {
	got := Interpret(nil)
	assert.Equal(t, NoAnomaly, got.Classification)
	assert.Equal(t, utils.Placeholder, got.Display.ZLabel)
	assert.Equal(t, utils.Placeholder, got.Display.MetricLabel)
	assert.Equal(t, Advisory(NoAnomaly), got.Advisory)
}

func TestInterpretUsesOnlyFirstRecord(t *testing.T) {
	got := Interpret([]dashboard.AnomalyRecord{
		{Timestamp: "2025-02-01T10:00:00", MetricValue: f(12), ZScore: f(3.1)},
		{Timestamp: "2025-02-02T10:00:00", MetricValue: f(1), ZScore: f(-9.7)},
	})
	assert.Equal(t, HighOutlier, got.Classification)
	assert.Equal(t, "3.10", got.Display.ZLabel)
	assert.Equal(t, "12.00", got.Display.MetricLabel)
	assert.Equal(t, "02-01 10:00", got.Display.TimestampLabel)
}

func TestInterpretScenarioLowOutlier(t *testing.T) {
	got := Interpret([]dashboard.AnomalyRecord{
		{Timestamp: "2025-02-01T10:00:00", MetricValue: f(9.5), ZScore: f(-2.8)},
	})
	assert.Equal(t, LowOutlier, got.Classification)
	assert.Equal(t, "-2.80", got.Display.ZLabel)
	assert.Equal(t, "9.50", got.Display.MetricLabel)
	assert.Equal(t, Advisory(LowOutlier), got.Advisory)
}

func TestInterpretUnreadable(t *testing.T) {
	cases := map[string]*float64{
		"nan":     f(math.NaN()),
		"missing": nil,
		"inf":     f(math.Inf(1)),
	}
	for name, z := range cases {
		t.Run(name, func(t *testing.T) {
			got := Interpret([]dashboard.AnomalyRecord{{Timestamp: "bad", ZScore: z}})
			assert.Equal(t, Unreadable, got.Classification)
			assert.Equal(t, utils.Placeholder, got.Display.ZLabel)
			assert.Equal(t, utils.Placeholder, got.Display.MetricLabel)
			assert.Equal(t, utils.Placeholder, got.Display.TimestampLabel)
		})
	}
}

func TestClassifyZeroIsLow(t *testing.T) {
	assert.Equal(t, LowOutlier, Classify(f(0)))
}

func TestAdvisoriesDistinct(t *testing.T) {
	seen := map[string]bool{}
	for _, c := range []Classification{NoAnomaly, HighOutlier, LowOutlier, Unreadable} {
		msg := Advisory(c)
		assert.NotEmpty(t, msg)
		assert.False(t, seen[msg])
		seen[msg] = true
	}
}

func TestRankingViolations(t *testing.T) {
	ranked := []dashboard.AnomalyRecord{{ZScore: f(4)}, {ZScore: f(-3.5)}, {ZScore: nil}, {ZScore: f(2.6)}}
	assert.Empty(t, RankingViolations(ranked))

	unranked := []dashboard.AnomalyRecord{{ZScore: f(2.6)}, {ZScore: f(-3.5)}, {ZScore: f(3)}}
	assert.Equal(t, []int{1}, RankingViolations(unranked))
}
