package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/puertolima/puertolima_core/internal/costs"
	"github.com/puertolima/puertolima_core/internal/models"
	"github.com/puertolima/puertolima_core/internal/report"
	"github.com/puertolima/puertolima_core/internal/routing"
	"github.com/puertolima/puertolima_core/internal/tariff"
)

// ReportHandler builds POST /v1/reports: the comparison pipeline followed by
// an HTML document render. PDF conversion stays with the caller.
func ReportHandler(table *tariff.Table, resolver routing.Resolver) fiber.Handler {
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

		result := Aggregate(origin, out.breakdowns, out.routes, out.comparison, sensitivity)

		doc, err := report.Render(result)
		if err != nil {
			return comparisonError(c, err)
		}

		return c.JSON(fiber.Map{
			"status":       "success",
			"report_id":    doc.ID,
			"generated_at": doc.GeneratedAt,
			"content_type": "text/html; charset=utf-8",
			"document":     doc.HTML,
		})
	}
}
