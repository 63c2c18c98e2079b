package sectors

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// SectorFeature is one sector polygon parsed from a GeoJSON FeatureCollection.
// Geometry is kept as raw GeoJSON; PostGIS decodes it on insert.
type SectorFeature struct {
	Name     string
	Region   string
	Geometry json.RawMessage
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Geometry   json.RawMessage        `json:"geometry"`
}

type geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseFeatureCollection reads sector polygons from a GeoJSON file
func ParseFeatureCollection(path string) ([]SectorFeature, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return parseFeatureCollectionFromReader(file)
}

func parseFeatureCollectionFromReader(reader io.Reader) ([]SectorFeature, error) {
	var fc featureCollection
	if err := json.NewDecoder(reader).Decode(&fc); err != nil {
		return nil, fmt.Errorf("failed to decode GeoJSON: %w", err)
	}

	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("expected a FeatureCollection, got %q", fc.Type)
	}

	var sectors []SectorFeature
	for i, f := range fc.Features {
		name := stringProperty(f.Properties, "name", "nombre")
		if name == "" {
			log.Printf("Warning: skipping feature %d without a name", i)
			continue
		}

		if err := validateGeometry(f.Geometry); err != nil {
			log.Printf("Warning: skipping sector %q: %v", name, err)
			continue
		}

		region := NormalizeRegion(stringProperty(f.Properties, "region", "provincia"))

		sectors = append(sectors, SectorFeature{
			Name:     name,
			Region:   region,
			Geometry: f.Geometry,
		})
	}

	log.Printf("Parsed %d sectors", len(sectors))
	return sectors, nil
}

// stringProperty returns the first non-empty property among the given keys
func stringProperty(props map[string]interface{}, keys ...string) string {
	for _, key := range keys {
		if v, ok := props[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

var accentReplacer = strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ñ", "n")

// NormalizeRegion maps free-form province labels onto the region keys used
// by the correction-factor table ("Entre Ríos" -> "entre_rios")
func NormalizeRegion(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = accentReplacer.Replace(s)
	return strings.Join(strings.Fields(s), "_")
}

func validateGeometry(raw json.RawMessage) error {
	if len(raw) == 0 {
		return fmt.Errorf("feature has no geometry")
	}

	var geom geometry
	if err := json.Unmarshal(raw, &geom); err != nil {
		return fmt.Errorf("malformed geometry: %w", err)
	}

	switch geom.Type {
	case "Polygon":
		var rings [][][]float64
		if err := json.Unmarshal(geom.Coordinates, &rings); err != nil {
			return fmt.Errorf("malformed polygon coordinates: %w", err)
		}
		return validateRings(rings)
	case "MultiPolygon":
		var polygons [][][][]float64
		if err := json.Unmarshal(geom.Coordinates, &polygons); err != nil {
			return fmt.Errorf("malformed multipolygon coordinates: %w", err)
		}
		if len(polygons) == 0 {
			return fmt.Errorf("multipolygon has no polygons")
		}
		for _, rings := range polygons {
			if err := validateRings(rings); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unsupported geometry type %q", geom.Type)
	}
}

func validateRings(rings [][][]float64) error {
	if len(rings) == 0 {
		return fmt.Errorf("polygon has no rings")
	}

	for _, ring := range rings {
		if len(ring) < 4 {
			return fmt.Errorf("ring has %d points, need at least 4", len(ring))
		}

		first, last := ring[0], ring[len(ring)-1]
		if len(first) < 2 || len(last) < 2 || first[0] != last[0] || first[1] != last[1] {
			return fmt.Errorf("ring is not closed")
		}

		for _, point := range ring {
			if len(point) < 2 {
				return fmt.Errorf("ring point has %d coordinates, need at least 2", len(point))
			}
			lon, lat := point[0], point[1]
			if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
				return fmt.Errorf("ring point (%v, %v) out of range", lon, lat)
			}
		}
	}

	return nil
}
