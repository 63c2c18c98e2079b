package costs

import (
	"context"
	"testing"

	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	ctx := context.Background()

	t.Run("Wide margin survives the default band", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		report, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800), SensitivityOptions{})
		require.NoError(t, err)

		assert.Equal(t, models.PortTimbues, report.BaseOptimal)
		assert.Equal(t, report.Total, report.Preserved)
		assert.Equal(t, 1.0, report.Robustness)
		assert.Equal(t, models.RobustnessHigh, report.Level)
	})

	t.Run("Near-tie verdicts flip under perturbation", func(t *testing.T) {
		// river: 50000 + 40000 + 5000 = 95000; pacific: 45000 + 44000 + 6200 = 95200
		table := newTestTable(0.05, 40, 44, 5000, 6200)
		report, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1000), route(models.PortLima, 900),
			SensitivityOptions{Axes: []string{AxisLandRate}})
		require.NoError(t, err)

		assert.Equal(t, models.PortTimbues, report.BaseOptimal)
		assert.Greater(t, report.Total, report.Preserved, "some scenarios must flip")

		flipped := 0
		for _, s := range report.Scenarios {
			assert.Equal(t, AxisLandRate, s.Axis)
			assert.NotZero(t, s.DeltaPct)
			if s.Flipped {
				flipped++
				assert.Equal(t, models.PortLima, s.OptimalPort)
			}
		}
		assert.Equal(t, report.Total-report.Preserved, flipped)
	})

	t.Run("Scenario count matches axes and steps", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		report, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800),
			SensitivityOptions{
				Axes:  []string{AxisLandRate, AxisMaritimeRate},
				Range: PerturbationRange{Percent: 10, Steps: 2},
			})
		require.NoError(t, err)
		// 2 axes * 2 steps on each side
		assert.Equal(t, 8, report.Total)
		assert.Len(t, report.Scenarios, 8)
	})

	t.Run("Correction factor axis is skipped for provider routes", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		report, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800), SensitivityOptions{})
		require.NoError(t, err)

		for _, s := range report.Scenarios {
			assert.NotEqual(t, AxisCorrectionFactor, s.Axis)
		}
		// both default rate axes still present
		assert.Equal(t, 16, report.Total)
	})

	t.Run("Correction factor axis only moves estimated routes", func(t *testing.T) {
		// Pacific route estimated and barely losing: inflating its estimate
		// must not flip; deflating it must.
		table := newTestTable(0.05, 40, 44, 5000, 6200)
		riverRoute := route(models.PortTimbues, 1000)
		pacificRoute := models.RouteResult{Port: models.PortLima, DistanceKm: 900, Source: models.SourceEstimated}

		report, err := Analyze(ctx, mendoza(1000), table, riverRoute, pacificRoute,
			SensitivityOptions{Axes: []string{AxisCorrectionFactor}})
		require.NoError(t, err)

		assert.Equal(t, models.PortTimbues, report.BaseOptimal)
		var sawFlip bool
		for _, s := range report.Scenarios {
			if s.DeltaPct < 0 && s.Flipped {
				sawFlip = true
			}
			if s.DeltaPct > 0 {
				assert.False(t, s.Flipped, "inflating the losing estimate cannot flip the verdict")
			}
		}
		assert.True(t, sawFlip, "deflating the losing estimate enough must flip the verdict")
	})

	t.Run("Correction factor axis alone with provider routes is an error", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		_, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800),
			SensitivityOptions{Axes: []string{AxisCorrectionFactor}})
		assert.ErrorIs(t, err, ErrNoScenarios)
	})

	t.Run("Distance axis rescales both routes", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		report, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800),
			SensitivityOptions{Axes: []string{AxisDistance}})
		require.NoError(t, err)

		// scaling both distances by a common factor preserves this verdict
		assert.Equal(t, 1.0, report.Robustness)
	})

	t.Run("Unknown axis is rejected", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		_, err := Analyze(ctx, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800),
			SensitivityOptions{Axes: []string{"weather"}})
		assert.Error(t, err)
	})

	t.Run("Out-of-range band is rejected", func(t *testing.T) {
		table := newTestTable(0.05, 40, 55, 5000, 8000)
		for _, r := range []PerturbationRange{
			{Percent: -5, Steps: 4},
			{Percent: 150, Steps: 4},
			{Percent: 20, Steps: 0},
			{Percent: 20, Steps: 80},
		} {
			_, err := Analyze(ctx, mendoza(1000), table,
				route(models.PortTimbues, 1100), route(models.PortLima, 1800),
				SensitivityOptions{Range: r})
			assert.Error(t, err, "range %+v", r)
		}
	})

	t.Run("Cancelled context aborts the analysis", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		table := newTestTable(0.05, 40, 55, 5000, 8000)
		_, err := Analyze(cancelled, mendoza(1000), table,
			route(models.PortTimbues, 1100), route(models.PortLima, 1800), SensitivityOptions{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRobustnessLevel(t *testing.T) {
	tests := []struct {
		robustness float64
		expected   string
	}{
		{1.0, models.RobustnessHigh},
		{0.9, models.RobustnessHigh},
		{0.89, models.RobustnessMedium},
		{0.7, models.RobustnessMedium},
		{0.69, models.RobustnessLow},
		{0, models.RobustnessLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, robustnessLevel(tt.robustness), "robustness=%v", tt.robustness)
	}
}
