package costs

import (
	"fmt"

	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

// BreakEvenOptions bound the bisection search
type BreakEvenOptions struct {
	MaxDistanceKm float64 `json:"max_distance_km"`
	PrecisionKm   float64 `json:"precision_km"`
}

// DefaultBreakEvenOptions cover any plausible trucking distance within the
// country at a tenth of a kilometer
func DefaultBreakEvenOptions() BreakEvenOptions {
	return BreakEvenOptions{MaxDistanceKm: 2000, PrecisionKm: 0.1}
}

// BreakEven finds the river-port road distance at which both ports cost the
// same, holding the Pacific-port distance fixed. Bisection works because the
// river total grows monotonically with its distance while the Pacific total
// stays constant.
func BreakEven(origin models.Origin, table *tariff.Table, pacificDistanceKm float64, opts BreakEvenOptions) (models.BreakEvenResult, error) {
	if opts.MaxDistanceKm == 0 && opts.PrecisionKm == 0 {
		opts = DefaultBreakEvenOptions()
	}
	if opts.MaxDistanceKm <= 0 {
		return models.BreakEvenResult{}, fmt.Errorf("max distance must be positive, got %v", opts.MaxDistanceKm)
	}
	if opts.PrecisionKm <= 0 || opts.PrecisionKm >= opts.MaxDistanceKm {
		return models.BreakEvenResult{}, fmt.Errorf("precision must be in (0, max distance), got %v", opts.PrecisionKm)
	}
	if pacificDistanceKm < 0 {
		return models.BreakEvenResult{}, fmt.Errorf("pacific distance must not be negative, got %v", pacificDistanceKm)
	}

	optimalAt := func(riverDistanceKm float64) (models.PortID, error) {
		river, err := Compute(origin, table, models.RouteResult{
			Port:       models.PortTimbues,
			DistanceKm: riverDistanceKm,
			Source:     models.SourceEstimated,
		})
		if err != nil {
			return "", err
		}
		pacific, err := Compute(origin, table, models.RouteResult{
			Port:       models.PortLima,
			DistanceKm: pacificDistanceKm,
			Source:     models.SourceEstimated,
		})
		if err != nil {
			return "", err
		}
		return Compare(river, pacific).OptimalPort, nil
	}

	atZero, err := optimalAt(0)
	if err != nil {
		return models.BreakEvenResult{}, err
	}
	if atZero == models.PortLima {
		// The Pacific port wins even with free trucking to the river port.
		return models.BreakEvenResult{Found: false, AlwaysOptimal: models.PortLima}, nil
	}

	atMax, err := optimalAt(opts.MaxDistanceKm)
	if err != nil {
		return models.BreakEvenResult{}, err
	}
	if atMax == models.PortTimbues {
		return models.BreakEvenResult{Found: false, AlwaysOptimal: models.PortTimbues}, nil
	}

	lo, hi := 0.0, opts.MaxDistanceKm
	iterations := 0
	for hi-lo > opts.PrecisionKm {
		mid := (lo + hi) / 2
		optimal, err := optimalAt(mid)
		if err != nil {
			return models.BreakEvenResult{}, err
		}
		if optimal == models.PortTimbues {
			lo = mid
		} else {
			hi = mid
		}
		iterations++
	}

	return models.BreakEvenResult{
		Found:      true,
		DistanceKm: (lo + hi) / 2,
		Iterations: iterations,
	}, nil
}
