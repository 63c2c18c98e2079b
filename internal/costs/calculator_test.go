package costs

import (
	"testing"

	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/tariff"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestTable builds a minimal tariff table with flat fixed fees, the shape
// most comparison tests need
func newTestTable(landRate, maritimeRiver, maritimePacific, fixedRiver, fixedPacific float64) *tariff.Table {
	return &tariff.Table{
		LandRatePerTonKm:   landRate,
		DefaultDestination: "china",
		Ports: map[models.PortID]tariff.PortTariff{
			models.PortTimbues: {
				Name: "Puerto Timbúes",
				Lat:  -32.6636, Lon: -60.7489,
				MaritimeRates:    map[string]float64{"china": maritimeRiver, "brasil": maritimeRiver / 2},
				CorrectionFactor: 1.10,
				FixedFees: []tariff.FixedFee{
					{Concept: "gastos_portuarios", Basis: tariff.BasisFlat, Amount: fixedRiver},
				},
			},
			models.PortLima: {
				Name: "Puerto Lima",
				Lat:  -34.1073, Lon: -59.0344,
				MaritimeRates:    map[string]float64{"china": maritimePacific, "brasil": maritimePacific / 2},
				CorrectionFactor: 1.10,
				FixedFees: []tariff.FixedFee{
					{Concept: "gastos_portuarios", Basis: tariff.BasisFlat, Amount: fixedPacific},
				},
			},
		},
		RegionFactors: map[string]float64{"santa_fe": 1.05},
	}
}

func mendoza(tons float64) models.Origin {
	return models.Origin{Name: "Mendoza", Lat: -32.89, Lon: -68.85, Tons: tons}
}

func route(port models.PortID, km float64) models.RouteResult {
	return models.RouteResult{Port: port, DistanceKm: km, Source: models.SourceProvider}
}

func TestCompute(t *testing.T) {
	table := newTestTable(0.05, 40, 55, 5000, 8000)

	t.Run("Mendoza 1000 tons via the river port", func(t *testing.T) {
		got, err := Compute(mendoza(1000), table, route(models.PortTimbues, 1100))
		require.NoError(t, err)

		// 1100 km * 1000 t * 0.05 + 1000 t * 40 + 5000
		assert.InDelta(t, 55000, got.LandFreight, 1e-6)
		assert.InDelta(t, 40000, got.MaritimeFreight, 1e-6)
		assert.InDelta(t, 5000, got.FixedCosts, 1e-6)
		assert.InDelta(t, 100000, got.Total, 1e-6)
		assert.InDelta(t, 100, got.UnitCost, 1e-9)
	})

	t.Run("Mendoza 1000 tons via the Pacific port", func(t *testing.T) {
		got, err := Compute(mendoza(1000), table, route(models.PortLima, 1800))
		require.NoError(t, err)

		// 1800 km * 1000 t * 0.05 + 1000 t * 55 + 8000
		assert.InDelta(t, 90000, got.LandFreight, 1e-6)
		assert.InDelta(t, 55000, got.MaritimeFreight, 1e-6)
		assert.InDelta(t, 8000, got.FixedCosts, 1e-6)
		assert.InDelta(t, 153000, got.Total, 1e-6)
		assert.InDelta(t, 153, got.UnitCost, 1e-9)
	})

	t.Run("Total is always the sum of its components", func(t *testing.T) {
		cases := []struct {
			tons float64
			km   float64
		}{
			{1, 0},
			{37.5, 12.3},
			{1000, 1100},
			{25000, 1999.9},
		}
		for _, tc := range cases {
			got, err := Compute(mendoza(tc.tons), table, route(models.PortTimbues, tc.km))
			require.NoError(t, err)
			assert.Equal(t, got.LandFreight+got.MaritimeFreight+got.FixedCosts, got.Total,
				"tons=%v km=%v", tc.tons, tc.km)
			assert.InEpsilon(t, got.Total, got.UnitCost*tc.tons, 1e-9)
		}
	})

	t.Run("Explicit destination selects its rate", func(t *testing.T) {
		origin := mendoza(1000)
		origin.Destination = "brasil"
		got, err := Compute(origin, table, route(models.PortTimbues, 1100))
		require.NoError(t, err)
		assert.InDelta(t, 20000, got.MaritimeFreight, 1e-6) // half the china rate
	})

	t.Run("Unknown destination is a configuration error", func(t *testing.T) {
		origin := mendoza(1000)
		origin.Destination = "marte"
		_, err := Compute(origin, table, route(models.PortTimbues, 1100))
		assert.Error(t, err)
	})

	t.Run("Unknown port is a configuration error", func(t *testing.T) {
		_, err := Compute(mendoza(1000), table, route(models.PortID("rotterdam"), 1100))
		assert.Error(t, err)
	})

	t.Run("Non-positive tonnage is rejected", func(t *testing.T) {
		_, err := Compute(mendoza(0), table, route(models.PortTimbues, 1100))
		assert.Error(t, err)
		_, err = Compute(mendoza(-5), table, route(models.PortTimbues, 1100))
		assert.Error(t, err)
	})

	t.Run("Negative distance is rejected", func(t *testing.T) {
		_, err := Compute(mendoza(1000), table, route(models.PortTimbues, -1))
		assert.Error(t, err)
	})

	t.Run("Containerized cargo pays per-container fees", func(t *testing.T) {
		boxTable := newTestTable(0.05, 40, 55, 5000, 8000)
		pt := boxTable.Ports[models.PortTimbues]
		pt.FixedFees = append(pt.FixedFees, tariff.FixedFee{
			Concept: "consolidacion", Basis: tariff.BasisPerContainer, Amount: 320,
		})
		boxTable.Ports[models.PortTimbues] = pt

		origin := mendoza(1000)
		origin.Containerized = true
		origin.Containers = 40

		got, err := Compute(origin, boxTable, route(models.PortTimbues, 1100))
		require.NoError(t, err)
		assert.InDelta(t, 5000+320*40, got.FixedCosts, 1e-6)
	})

	t.Run("Estimated routes cost the same as provider routes at equal distance", func(t *testing.T) {
		estimated := models.RouteResult{Port: models.PortTimbues, DistanceKm: 1100, Source: models.SourceEstimated}
		a, err := Compute(mendoza(1000), table, route(models.PortTimbues, 1100))
		require.NoError(t, err)
		b, err := Compute(mendoza(1000), table, estimated)
		require.NoError(t, err)
		assert.Equal(t, a.Total, b.Total)
	})
}

func TestCompare(t *testing.T) {
	table := newTestTable(0.05, 40, 55, 5000, 8000)

	breakdown := func(t *testing.T, port models.PortID, km float64) models.CostBreakdown {
		t.Helper()
		got, err := Compute(mendoza(1000), table, route(port, km))
		require.NoError(t, err)
		return got
	}

	t.Run("River port wins the Mendoza scenario", func(t *testing.T) {
		river := breakdown(t, models.PortTimbues, 1100)
		pacific := breakdown(t, models.PortLima, 1800)

		got := Compare(river, pacific)
		assert.Equal(t, models.PortTimbues, got.OptimalPort)
		assert.InDelta(t, 53000, got.AbsoluteDiff, 1e-6)
		assert.InDelta(t, 53000.0/153000.0*100, got.PercentDiff, 1e-9)
		assert.InDelta(t, 34.64, got.PercentDiff, 0.01)
		assert.False(t, got.Tie)
	})

	t.Run("Percentage difference is relative to the higher total", func(t *testing.T) {
		a := models.CostBreakdown{Port: models.PortTimbues, Total: 80}
		b := models.CostBreakdown{Port: models.PortLima, Total: 100}
		got := Compare(a, b)
		assert.InDelta(t, 20.0, got.PercentDiff, 1e-9)
	})

	t.Run("Verdict does not depend on argument order", func(t *testing.T) {
		river := breakdown(t, models.PortTimbues, 1100)
		pacific := breakdown(t, models.PortLima, 1800)

		ab := Compare(river, pacific)
		ba := Compare(pacific, river)
		assert.Equal(t, ab.OptimalPort, ba.OptimalPort)
		assert.Equal(t, ab.AbsoluteDiff, ba.AbsoluteDiff)
		assert.Equal(t, ab.PercentDiff, ba.PercentDiff)
	})

	t.Run("Exact tie goes to the default port", func(t *testing.T) {
		a := models.CostBreakdown{Port: models.PortLima, Total: 100000}
		b := models.CostBreakdown{Port: models.PortTimbues, Total: 100000}

		got := Compare(a, b)
		assert.Equal(t, models.DefaultPort, got.OptimalPort)
		assert.True(t, got.Tie)
		assert.Equal(t, 0.0, got.AbsoluteDiff)
		assert.Equal(t, 0.0, got.PercentDiff)
	})

	t.Run("Deterministic across repeated runs", func(t *testing.T) {
		river := breakdown(t, models.PortTimbues, 1100)
		pacific := breakdown(t, models.PortLima, 1800)

		first := Compare(river, pacific)
		for i := 0; i < 100; i++ {
			again := Compare(river, pacific)
			assert.Equal(t, first, again)
		}
	})

	t.Run("Pacific port wins when it is cheaper", func(t *testing.T) {
		river := breakdown(t, models.PortTimbues, 1900)
		pacific := breakdown(t, models.PortLima, 300)

		got := Compare(river, pacific)
		assert.Equal(t, models.PortLima, got.OptimalPort)
	})

	t.Run("Zero totals produce no NaN", func(t *testing.T) {
		got := Compare(models.CostBreakdown{Port: models.PortTimbues}, models.CostBreakdown{Port: models.PortLima})
		assert.Equal(t, 0.0, got.PercentDiff)
		assert.Equal(t, models.DefaultPort, got.OptimalPort)
	})
}
