package costs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

// ErrNoScenarios is returned when the requested axes produce nothing to
// evaluate, e.g. a correction-factor sweep over provider-resolved routes.
var ErrNoScenarios = errors.New("no applicable sensitivity scenarios")

// Perturbation axes accepted by the sensitivity analyzer
const (
	AxisLandRate         = "land_rate"
	AxisMaritimeRate     = "maritime_rate"
	AxisCorrectionFactor = "correction_factor"
	AxisDistance         = "distance"
)

// PerturbationRange describes the band swept by the analyzer: Steps
// evaluations on each side of the base value, up to ±Percent.
type PerturbationRange struct {
	Percent float64 `json:"percent"`
	Steps   int     `json:"steps"`
}

// DefaultPerturbation sweeps ±20% in 5% increments
func DefaultPerturbation() PerturbationRange {
	return PerturbationRange{Percent: 20, Steps: 4}
}

// SensitivityOptions selects the axes and band for an analysis
type SensitivityOptions struct {
	Axes  []string          `json:"axes"`
	Range PerturbationRange `json:"range"`
}

// DefaultAxes perturbs the rate inputs. Distance is a separate axis,
// requested explicitly, since it second-guesses the resolver rather than the
// tariff assumptions.
func DefaultAxes() []string {
	return []string{AxisLandRate, AxisMaritimeRate, AxisCorrectionFactor}
}

type scenarioInput struct {
	axis   string
	delta  float64 // percent, signed
	table  *tariff.Table
	routeA models.RouteResult
	routeB models.RouteResult
}

// Analyze re-runs the comparison under perturbed rate assumptions and reports
// how often the base verdict survives. Distances are never re-resolved; every
// scenario is pure recomputation over already-resolved routes.
func Analyze(ctx context.Context, origin models.Origin, table *tariff.Table, routeA, routeB models.RouteResult, opts SensitivityOptions) (*models.SensitivityReport, error) {
	if len(opts.Axes) == 0 {
		opts.Axes = DefaultAxes()
	}
	if opts.Range.Percent == 0 && opts.Range.Steps == 0 {
		opts.Range = DefaultPerturbation()
	}
	if opts.Range.Percent <= 0 || opts.Range.Percent > 100 {
		return nil, fmt.Errorf("perturbation percent must be in (0, 100], got %v", opts.Range.Percent)
	}
	if opts.Range.Steps < 1 || opts.Range.Steps > 50 {
		return nil, fmt.Errorf("perturbation steps must be in [1, 50], got %d", opts.Range.Steps)
	}

	baseA, err := Compute(origin, table, routeA)
	if err != nil {
		return nil, err
	}
	baseB, err := Compute(origin, table, routeB)
	if err != nil {
		return nil, err
	}
	base := Compare(baseA, baseB)

	inputs, err := buildScenarios(table, routeA, routeB, opts)
	if err != nil {
		return nil, err
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w for axes %v", ErrNoScenarios, opts.Axes)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Scenarios are pure and independent; evaluate them in parallel, each
	// result slot tied to its perturbation parameters by index.
	scenarios := make([]models.SensitivityScenario, len(inputs))
	errs := make([]error, len(inputs))

	var wg sync.WaitGroup
	for i, input := range inputs {
		wg.Add(1)
		go func(i int, input scenarioInput) {
			defer wg.Done()

			a, err := Compute(origin, input.table, input.routeA)
			if err != nil {
				errs[i] = err
				return
			}
			b, err := Compute(origin, input.table, input.routeB)
			if err != nil {
				errs[i] = err
				return
			}
			verdict := Compare(a, b)

			scenarios[i] = models.SensitivityScenario{
				Axis:        input.axis,
				DeltaPct:    input.delta,
				OptimalPort: verdict.OptimalPort,
				Flipped:     verdict.OptimalPort != base.OptimalPort,
			}
		}(i, input)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("sensitivity scenario failed: %w", err)
		}
	}

	preserved := 0
	for _, s := range scenarios {
		if !s.Flipped {
			preserved++
		}
	}

	robustness := float64(preserved) / float64(len(scenarios))

	return &models.SensitivityReport{
		BaseOptimal: base.OptimalPort,
		Scenarios:   scenarios,
		Preserved:   preserved,
		Total:       len(scenarios),
		Robustness:  robustness,
		Level:       robustnessLevel(robustness),
	}, nil
}

func robustnessLevel(robustness float64) string {
	switch {
	case robustness >= 0.9:
		return models.RobustnessHigh
	case robustness >= 0.7:
		return models.RobustnessMedium
	default:
		return models.RobustnessLow
	}
}

func buildScenarios(table *tariff.Table, routeA, routeB models.RouteResult, opts SensitivityOptions) ([]scenarioInput, error) {
	step := opts.Range.Percent / float64(opts.Range.Steps)

	deltas := make([]float64, 0, 2*opts.Range.Steps)
	for k := opts.Range.Steps; k >= 1; k-- {
		deltas = append(deltas, -step*float64(k))
	}
	for k := 1; k <= opts.Range.Steps; k++ {
		deltas = append(deltas, step*float64(k))
	}

	var inputs []scenarioInput
	for _, axis := range opts.Axes {
		switch axis {
		case AxisLandRate:
			for _, d := range deltas {
				inputs = append(inputs, scenarioInput{
					axis: axis, delta: d,
					table:  table.ScaleRates(1+d/100, 1),
					routeA: routeA, routeB: routeB,
				})
			}
		case AxisMaritimeRate:
			for _, d := range deltas {
				inputs = append(inputs, scenarioInput{
					axis: axis, delta: d,
					table:  table.ScaleRates(1, 1+d/100),
					routeA: routeA, routeB: routeB,
				})
			}
		case AxisCorrectionFactor:
			// The factor only ever shaped estimated distances, so the axis
			// only moves routes the resolver had to estimate.
			if routeA.Source != models.SourceEstimated && routeB.Source != models.SourceEstimated {
				continue
			}
			for _, d := range deltas {
				inputs = append(inputs, scenarioInput{
					axis: axis, delta: d,
					table:  table,
					routeA: scaleEstimated(routeA, 1+d/100),
					routeB: scaleEstimated(routeB, 1+d/100),
				})
			}
		case AxisDistance:
			for _, d := range deltas {
				inputs = append(inputs, scenarioInput{
					axis: axis, delta: d,
					table:  table,
					routeA: scaleRoute(routeA, 1+d/100),
					routeB: scaleRoute(routeB, 1+d/100),
				})
			}
		default:
			return nil, fmt.Errorf("unknown sensitivity axis %q", axis)
		}
	}

	return inputs, nil
}

func scaleRoute(route models.RouteResult, factor float64) models.RouteResult {
	route.DistanceKm *= factor
	return route
}

func scaleEstimated(route models.RouteResult, factor float64) models.RouteResult {
	if route.Source != models.SourceEstimated {
		return route
	}
	return scaleRoute(route, factor)
}
