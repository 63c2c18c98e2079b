package api

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/puertolima/puertolima_core/internal/sectors"
)

// SectorLookupHandler builds GET /v1/sectors/lookup, mapping a coordinate to
// the sector polygon that contains it
func SectorLookupHandler(store sectors.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		latStr := c.Query("lat")
		lonStr := c.Query("lon")

		if latStr == "" || lonStr == "" {
			return c.Status(400).JSON(fiber.Map{
				"error": "missing required parameters: lat and lon",
			})
		}

		lat, err := strconv.ParseFloat(latStr, 64)
		if err != nil || lat < -90 || lat > 90 {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid latitude",
			})
		}

		lon, err := strconv.ParseFloat(lonStr, 64)
		if err != nil || lon < -180 || lon > 180 {
			return c.Status(400).JSON(fiber.Map{
				"error": "invalid longitude",
			})
		}

		sector, err := store.LookupSector(c.Context(), lat, lon)
		if errors.Is(err, sectors.ErrNoSector) {
			return c.Status(404).JSON(fiber.Map{
				"error": "no sector contains the given coordinate",
			})
		}
		if err != nil {
			log.Printf("Sector lookup failed: %v", err)
			return c.Status(500).JSON(fiber.Map{
				"error": "internal server error",
			})
		}

		return c.JSON(fiber.Map{"sector": sector})
	}
}
