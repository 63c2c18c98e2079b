package api

import (
	"math"

	"github.com/puertolima/puertolima_core/internal/models"
)

// round2 rounds a wire figure to two decimals. Internal computation stays
// unrounded; only the response is truncated.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func toPortCosts(b models.CostBreakdown) models.PortCosts {
	return models.PortCosts{
		Breakdown: models.CostDetail{
			LandFreight:     round2(b.LandFreight),
			MaritimeFreight: round2(b.MaritimeFreight),
			FixedCosts:      round2(b.FixedCosts),
		},
		Total:    round2(b.Total),
		UnitCost: round2(b.UnitCost),
	}
}

func toRouteWire(r models.RouteResult) models.RouteResult {
	r.DistanceKm = round2(r.DistanceKm)
	r.DurationMin = round2(r.DurationMin)
	return r
}

// Aggregate assembles the wire-level comparison result. Pure assembly; every
// figure arrives already computed.
func Aggregate(origin models.Origin, breakdowns map[models.PortID]models.CostBreakdown, routes map[models.PortID]models.RouteResult, comparison models.Comparison, sensitivity *models.SensitivityReport) models.ComparisonResult {
	return models.ComparisonResult{
		Status: "success",
		Origin: &models.OriginEcho{
			Name:        origin.Name,
			Lat:         origin.Lat,
			Lon:         origin.Lon,
			Tons:        origin.Tons,
			IsContainer: origin.Containerized,
			Containers:  origin.Containers,
			Destination: origin.Destination,
		},
		Costs: &models.CostsSection{
			Timbues: toPortCosts(breakdowns[models.PortTimbues]),
			Lima:    toPortCosts(breakdowns[models.PortLima]),
			Comparison: models.ComparisonDetail{
				OptimalPort:  comparison.OptimalPort,
				AbsoluteDiff: round2(comparison.AbsoluteDiff),
				PercentDiff:  round2(comparison.PercentDiff),
				Savings:      round2(comparison.Savings),
			},
		},
		Routes: &models.RoutesSection{
			Timbues: toRouteWire(routes[models.PortTimbues]),
			Lima:    toRouteWire(routes[models.PortLima]),
		},
		Sensitivity: sensitivity,
	}
}
