package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/puertolima/puertolima_core/internal/cache"
	"github.com/puertolima/puertolima_core/internal/costs"
	"github.com/puertolima/puertolima_core/internal/db"
	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/routing"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

// OriginPayload is the origin block of a comparison request
type OriginPayload struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// ComparisonRequest is the body accepted by POST /v1/comparisons
type ComparisonRequest struct {
	Origin             OriginPayload `json:"origin"`
	Tons               float64       `json:"tons"`
	IsContainer        bool          `json:"is_container"`
	ContainerCount     int           `json:"container_count"`
	Destination        string        `json:"destination"`
	IncludeSensitivity bool          `json:"include_sensitivity"`
}

// SensitivityRequest adds an explicit perturbation band to a comparison
type SensitivityRequest struct {
	ComparisonRequest
	Axes    []string `json:"axes"`
	Percent float64  `json:"percent"`
	Steps   int      `json:"steps"`
}

// BreakEvenRequest asks for the river-port distance at which both ports cost
// the same
type BreakEvenRequest struct {
	ComparisonRequest
	MaxDistanceKm float64 `json:"max_distance_km"`
	PrecisionKm   float64 `json:"precision_km"`
}

// validate checks the request against the tariff table. It returns per-field
// problems; an empty map means the request is acceptable.
func (r ComparisonRequest) validate(table *tariff.Table) map[string]string {
	fields := make(map[string]string)

	if strings.TrimSpace(r.Origin.Name) == "" {
		fields["origin.name"] = "must not be empty"
	}
	if r.Origin.Lat < -90 || r.Origin.Lat > 90 {
		fields["origin.lat"] = "must be between -90 and 90"
	}
	if r.Origin.Lon < -180 || r.Origin.Lon > 180 {
		fields["origin.lon"] = "must be between -180 and 180"
	}
	if r.Tons <= 0 {
		fields["tons"] = "must be greater than zero"
	}
	if r.IsContainer && r.ContainerCount <= 0 {
		fields["container_count"] = "must be a positive integer for containerized cargo"
	}
	if r.Destination != "" {
		for _, id := range []models.PortID{models.PortTimbues, models.PortLima} {
			if _, err := table.MaritimeRate(id, r.Destination); err != nil {
				fields["destination"] = fmt.Sprintf("no maritime rate for %q", r.Destination)
				break
			}
		}
	}

	return fields
}

// origin maps the validated request onto the domain type, filling in the
// tariff default destination
func (r ComparisonRequest) origin(table *tariff.Table) models.Origin {
	destination := r.Destination
	if destination == "" {
		destination = table.DefaultDestination
	}

	return models.Origin{
		Name:          strings.TrimSpace(r.Origin.Name),
		Lat:           r.Origin.Lat,
		Lon:           r.Origin.Lon,
		Tons:          r.Tons,
		Containerized: r.IsContainer,
		Containers:    r.ContainerCount,
		Destination:   destination,
	}
}

// CompareHandler builds the POST /v1/comparisons handler: resolve both port
// routes in parallel, compute both breakdowns, compare, and optionally sweep
// the default sensitivity band.
func CompareHandler(table *tariff.Table, resolver routing.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req ComparisonRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"status": "error",
				"error":  "invalid request body",
			})
		}
		if fields := req.validate(table); len(fields) > 0 {
			return validationFailed(c, fields)
		}

		ctx := c.Context()
		origin := req.origin(table)

		out, err := runComparison(ctx, table, resolver, origin)
		if err != nil {
			return comparisonError(c, err)
		}

		var sensitivity *models.SensitivityReport
		if req.IncludeSensitivity {
			sensitivity, err = costs.Analyze(ctx, origin, table,
				out.routes[models.PortTimbues], out.routes[models.PortLima],
				costs.SensitivityOptions{})
			if err != nil {
				return comparisonError(c, err)
			}
		}

		return c.JSON(Aggregate(origin, out.breakdowns, out.routes, out.comparison, sensitivity))
	}
}

// SensitivityHandler builds POST /v1/comparisons/sensitivity, a comparison
// with a caller-selected perturbation band instead of the default one
func SensitivityHandler(table *tariff.Table, resolver routing.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SensitivityRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"status": "error",
				"error":  "invalid request body",
			})
		}

		fields := req.ComparisonRequest.validate(table)
		for _, axis := range req.Axes {
			switch axis {
			case costs.AxisLandRate, costs.AxisMaritimeRate, costs.AxisCorrectionFactor, costs.AxisDistance:
			default:
				fields["axes"] = fmt.Sprintf("unknown axis %q", axis)
			}
		}
		if req.Percent != 0 || req.Steps != 0 {
			if req.Percent <= 0 || req.Percent > 100 {
				fields["percent"] = "must be in (0, 100]"
			}
			if req.Steps < 1 || req.Steps > 50 {
				fields["steps"] = "must be in [1, 50]"
			}
		}
		if len(fields) > 0 {
			return validationFailed(c, fields)
		}

		ctx := c.Context()
		origin := req.origin(table)

		out, err := runComparison(ctx, table, resolver, origin)
		if err != nil {
			return comparisonError(c, err)
		}

		report, err := costs.Analyze(ctx, origin, table,
			out.routes[models.PortTimbues], out.routes[models.PortLima],
			costs.SensitivityOptions{
				Axes:  req.Axes,
				Range: costs.PerturbationRange{Percent: req.Percent, Steps: req.Steps},
			})
		if errors.Is(err, costs.ErrNoScenarios) {
			return c.Status(400).JSON(fiber.Map{
				"status":  "error",
				"error":   "no applicable scenarios",
				"message": err.Error(),
			})
		}
		if err != nil {
			return comparisonError(c, err)
		}

		return c.JSON(Aggregate(origin, out.breakdowns, out.routes, out.comparison, report))
	}
}

// BreakEvenHandler builds POST /v1/comparisons/breakeven. Only the Pacific
// route is resolved; the river distance is the unknown being solved for.
func BreakEvenHandler(table *tariff.Table, resolver routing.Resolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req BreakEvenRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{
				"status": "error",
				"error":  "invalid request body",
			})
		}

		fields := req.ComparisonRequest.validate(table)
		if req.MaxDistanceKm < 0 {
			fields["max_distance_km"] = "must not be negative"
		}
		if req.PrecisionKm < 0 {
			fields["precision_km"] = "must not be negative"
		}
		if len(fields) > 0 {
			return validationFailed(c, fields)
		}

		ctx := c.Context()
		origin := req.origin(table)

		port, err := table.PortSite(models.PortLima)
		if err != nil {
			return comparisonError(c, err)
		}

		route, err := resolver.Resolve(ctx, models.Coordinate{Lat: origin.Lat, Lon: origin.Lon}, port)
		if err != nil {
			return comparisonError(c, fmt.Errorf("resolving route to %s: %w", port.ID, err))
		}

		opts := costs.DefaultBreakEvenOptions()
		if req.MaxDistanceKm > 0 {
			opts.MaxDistanceKm = req.MaxDistanceKm
		}
		if req.PrecisionKm > 0 {
			opts.PrecisionKm = req.PrecisionKm
		}

		result, err := costs.BreakEven(origin, table, route.DistanceKm, opts)
		if err != nil {
			return comparisonError(c, err)
		}

		return c.JSON(fiber.Map{
			"status":    "success",
			"breakeven": result,
			"routes":    fiber.Map{"lima": toRouteWire(route)},
		})
	}
}

type pipelineOutput struct {
	routes     map[models.PortID]models.RouteResult
	breakdowns map[models.PortID]models.CostBreakdown
	comparison models.Comparison
}

// runComparison executes the resolve, compute and compare stages for one
// validated origin
func runComparison(ctx context.Context, table *tariff.Table, resolver routing.Resolver, origin models.Origin) (*pipelineOutput, error) {
	routes, err := resolveBothPorts(ctx, resolver, table, origin)
	if err != nil {
		return nil, err
	}

	breakdowns := make(map[models.PortID]models.CostBreakdown, len(routes))
	for id, route := range routes {
		breakdown, err := costs.Compute(origin, table, route)
		if err != nil {
			return nil, fmt.Errorf("computing %s costs: %w", id, err)
		}
		breakdowns[id] = breakdown
	}

	comparison := costs.Compare(breakdowns[models.PortTimbues], breakdowns[models.PortLima])

	return &pipelineOutput{
		routes:     routes,
		breakdowns: breakdowns,
		comparison: comparison,
	}, nil
}

// resolveBothPorts dispatches the two route resolutions in parallel. The two
// calls are independent, so the request pays one round-trip instead of two.
func resolveBothPorts(ctx context.Context, resolver routing.Resolver, table *tariff.Table, origin models.Origin) (map[models.PortID]models.RouteResult, error) {
	coord := models.Coordinate{Lat: origin.Lat, Lon: origin.Lon}
	ids := []models.PortID{models.PortTimbues, models.PortLima}

	type portRoute struct {
		port  models.PortID
		route models.RouteResult
		err   error
	}

	resultChan := make(chan portRoute, len(ids))
	var wg sync.WaitGroup

	for _, id := range ids {
		port, err := table.PortSite(id)
		if err != nil {
			return nil, err
		}

		wg.Add(1)
		go func(id models.PortID, port models.Port) {
			defer wg.Done()
			route, err := resolver.Resolve(ctx, coord, port)
			resultChan <- portRoute{port: id, route: route, err: err}
		}(id, port)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	routes := make(map[models.PortID]models.RouteResult, len(ids))
	for result := range resultChan {
		if result.err != nil {
			return nil, fmt.Errorf("resolving route to %s: %w", result.port, result.err)
		}
		routes[result.port] = result.route
	}

	return routes, nil
}

func validationFailed(c *fiber.Ctx, fields map[string]string) error {
	return c.Status(400).JSON(fiber.Map{
		"status": "error",
		"error":  "validation failed",
		"fields": fields,
	})
}

// comparisonError maps pipeline failures onto the error envelope. Cancelled
// requests are handed back to fiber untouched.
func comparisonError(c *fiber.Ctx, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	log.Printf("Comparison failed: %v", err)
	return c.Status(500).JSON(fiber.Map{
		"status":  "error",
		"error":   "comparison failed",
		"message": err.Error(),
	})
}

// Health handles the /health endpoint
func Health(c *fiber.Ctx) error {
	ctx := c.Context()

	// Check database
	dbErr := db.HealthCheck(ctx)
	dbStatus := "ok"
	if dbErr != nil {
		dbStatus = dbErr.Error()
	}

	// Check Redis
	redisErr := cache.HealthCheck(ctx)
	redisStatus := "ok"
	if redisErr != nil {
		redisStatus = redisErr.Error()
	}

	// Overall status
	status := "healthy"
	httpStatus := 200
	if dbErr != nil || redisErr != nil {
		status = "unhealthy"
		httpStatus = 503
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
	})
}

// ServiceInfo handles the root endpoint
func ServiceInfo(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service":     "Puerto Lima API",
		"description": "Export cost comparison between the Timbúes river port and the Lima Pacific port",
		"endpoints": fiber.Map{
			"comparisons": "POST /v1/comparisons",
			"sensitivity": "POST /v1/comparisons/sensitivity",
			"breakeven":   "POST /v1/comparisons/breakeven",
			"reports":     "POST /v1/reports",
			"sectors":     "GET /v1/sectors/lookup?lat=LAT&lon=LON",
			"health":      "GET /health",
		},
	})
}
