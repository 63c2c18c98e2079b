package routing

import (
	"context"
	"log"
	"math"

	"github.com/puertolima/puertolima_core/internal/models"
)

// Resolver obtains a road route from a cargo origin to one of the fixed ports.
// Implementations must be safe for concurrent use; the two per-request port
// resolutions run in parallel.
type Resolver interface {
	Resolve(ctx context.Context, origin models.Coordinate, port models.Port) (models.RouteResult, error)
}

// RegionFunc maps a coordinate to a region key for correction-factor lookup.
// An empty return means the region is unknown.
type RegionFunc func(ctx context.Context, c models.Coordinate) string

// FactorFunc returns the route correction factor for a port given an origin
// region
type FactorFunc func(port models.PortID, region string) float64

// GreatCircleResolver estimates road distance as the great-circle distance
// scaled by a correction factor compensating for road indirection. It never
// performs network calls and is the fallback when the provider is unavailable.
type GreatCircleResolver struct {
	Factor FactorFunc
	Region RegionFunc
}

func (g *GreatCircleResolver) Resolve(ctx context.Context, origin models.Coordinate, port models.Port) (models.RouteResult, error) {
	region := ""
	if g.Region != nil {
		region = g.Region(ctx, origin)
	}

	factor := 1.0
	if g.Factor != nil {
		factor = g.Factor(port.ID, region)
	}

	distance := HaversineKm(origin.Lat, origin.Lon, port.Lat, port.Lon) * factor

	// Straight-line placeholder so map rendering has something to draw.
	geometry := [][]float64{
		{origin.Lon, origin.Lat},
		{port.Lon, port.Lat},
	}

	return models.RouteResult{
		Port:       port.ID,
		DistanceKm: distance,
		Geometry:   geometry,
		Source:     models.SourceEstimated,
	}, nil
}

// Fallback resolves through the primary provider and degrades to the estimate
// on any provider error. Provider failures never propagate past this type.
type Fallback struct {
	Primary  Resolver
	Estimate Resolver
}

func (f *Fallback) Resolve(ctx context.Context, origin models.Coordinate, port models.Port) (models.RouteResult, error) {
	result, err := f.Primary.Resolve(ctx, origin, port)
	if err == nil {
		return result, nil
	}

	// A cancelled request is abandoned, not estimated.
	if ctx.Err() != nil {
		return models.RouteResult{}, ctx.Err()
	}

	log.Printf("Route provider failed for port %s: %v (using estimate)", port.ID, err)
	return f.Estimate.Resolve(ctx, origin, port)
}

const earthRadiusKm = 6371.0

// HaversineKm returns the great-circle distance between two WGS84 points
func HaversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
