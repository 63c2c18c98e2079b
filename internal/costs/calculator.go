package costs

import (
	"fmt"
	"math"

	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

// Compute builds the cost breakdown for shipping an origin's cargo through
// one port. Distances are used as resolved; estimated routes already carry
// their road-indirection correction.
func Compute(origin models.Origin, table *tariff.Table, route models.RouteResult) (models.CostBreakdown, error) {
	if origin.Tons <= 0 {
		return models.CostBreakdown{}, fmt.Errorf("tons must be positive, got %v", origin.Tons)
	}
	if route.DistanceKm < 0 {
		return models.CostBreakdown{}, fmt.Errorf("distance must not be negative, got %v", route.DistanceKm)
	}

	pt, err := table.Port(route.Port)
	if err != nil {
		return models.CostBreakdown{}, err
	}

	land := route.DistanceKm * origin.Tons * table.LandRatePerTonKm

	rate, err := table.MaritimeRate(route.Port, origin.Destination)
	if err != nil {
		return models.CostBreakdown{}, err
	}
	maritime := origin.Tons * rate

	fixed, err := pt.FixedCost(origin.Tons, origin.Containerized, origin.Containers)
	if err != nil {
		return models.CostBreakdown{}, err
	}

	total := land + maritime + fixed

	return models.CostBreakdown{
		Port:            route.Port,
		LandFreight:     land,
		MaritimeFreight: maritime,
		FixedCosts:      fixed,
		Total:           total,
		UnitCost:        total / origin.Tons,
	}, nil
}

// Compare picks the port with the strictly lower total cost. An exact tie
// goes to the default port regardless of argument order.
func Compare(a, b models.CostBreakdown) models.Comparison {
	diff := math.Abs(a.Total - b.Total)

	var optimal models.PortID
	tie := a.Total == b.Total
	switch {
	case tie:
		optimal = models.DefaultPort
	case a.Total < b.Total:
		optimal = a.Port
	default:
		optimal = b.Port
	}

	// Percentage is relative to the more expensive option.
	pct := 0.0
	if max := math.Max(a.Total, b.Total); max > 0 {
		pct = diff / max * 100
	}

	return models.Comparison{
		OptimalPort:  optimal,
		AbsoluteDiff: diff,
		PercentDiff:  pct,
		Savings:      diff,
		Tie:          tie,
	}
}
