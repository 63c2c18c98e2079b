package tariff

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/puertolima/puertolima_core/internal/models"
)

// Default returns the built-in tariff table. Rates are USD; land freight is
// USD per ton-kilometer, maritime freight USD per ton.
func Default() *Table {
	return &Table{
		LandRatePerTonKm:   0.12,
		DefaultDestination: "china",
		Ports: map[models.PortID]PortTariff{
			models.PortTimbues: {
				Name: "Puerto Timbúes",
				Lat:  -32.6636,
				Lon:  -60.7489,
				MaritimeRates: map[string]float64{
					"china":  45.0,
					"europa": 35.0,
					"brasil": 25.0,
				},
				CorrectionFactor: 1.10,
				FixedFees: []FixedFee{
					{Concept: "gastos_portuarios", Basis: BasisFlat, Amount: 3000},
					{Concept: "elevacion", Basis: BasisPerTon, Amount: 1.8},
					{Concept: "documentacion", Basis: BasisFlat, Amount: 450},
					{Concept: "consolidacion", Basis: BasisPerContainer, Amount: 320},
					{Concept: "almacenaje", Basis: BasisTiered, Tiers: []Tier{
						{UpToTons: 500, Amount: 600},
						{UpToTons: 2000, Amount: 1500},
						{UpToTons: 0, Amount: 2800},
					}},
				},
			},
			models.PortLima: {
				Name: "Puerto Lima",
				Lat:  -34.1073,
				Lon:  -59.0344,
				MaritimeRates: map[string]float64{
					"china":  47.5,
					"europa": 36.5,
					"brasil": 24.0,
				},
				CorrectionFactor: 1.10,
				FixedFees: []FixedFee{
					{Concept: "gastos_portuarios", Basis: BasisFlat, Amount: 4500},
					{Concept: "elevacion", Basis: BasisPerTon, Amount: 2.2},
					{Concept: "documentacion", Basis: BasisFlat, Amount: 600},
					{Concept: "consolidacion", Basis: BasisPerContainer, Amount: 410},
					{Concept: "almacenaje", Basis: BasisTiered, Tiers: []Tier{
						{UpToTons: 500, Amount: 900},
						{UpToTons: 2000, Amount: 2100},
						{UpToTons: 0, Amount: 3600},
					}},
				},
			},
		},
		RegionFactors: map[string]float64{
			"buenos_aires": 1.15,
			"santa_fe":     1.05,
			"cordoba":      1.10,
			"entre_rios":   1.20,
		},
	}
}

// Load builds the tariff table from defaults, an optional JSON file pointed
// to by TARIFF_PATH, and scalar environment overrides, then validates it.
func Load() (*Table, error) {
	table := Default()

	if path := os.Getenv("TARIFF_PATH"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read tariff file: %w", err)
		}
		if err := json.Unmarshal(data, table); err != nil {
			return nil, fmt.Errorf("unable to parse tariff file %s: %w", path, err)
		}
	}

	if rate := getEnvFloat("TARIFF_LAND_RATE", 0); rate > 0 {
		table.LandRatePerTonKm = rate
	}
	if dest := getEnv("TARIFF_DEFAULT_DESTINATION", ""); dest != "" {
		table.DefaultDestination = dest
	}

	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("tariff configuration invalid: %w", err)
	}
	return table, nil
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
