package tariff

import (
	"fmt"

	"github.com/puertolima/puertolima_core/internal/models"
)

// Basis selects how a fixed fee is evaluated against a shipment
type Basis string

const (
	BasisFlat         Basis = "flat"
	BasisPerTon       Basis = "per_ton"
	BasisPerContainer Basis = "per_container"
	BasisTiered       Basis = "tiered"
)

// Tier is one step of a tiered fee. UpToTons == 0 marks the unbounded last tier.
type Tier struct {
	UpToTons float64 `json:"up_to_tons"`
	Amount   float64 `json:"amount"`
}

// FixedFee is one concept in a port's fee schedule
type FixedFee struct {
	Concept string  `json:"concept"`
	Basis   Basis   `json:"basis"`
	Amount  float64 `json:"amount,omitempty"`
	Tiers   []Tier  `json:"tiers,omitempty"`
}

// PortTariff bundles the coordinates, rates and fee schedule for one port
type PortTariff struct {
	Name             string             `json:"name"`
	Lat              float64            `json:"lat"`
	Lon              float64            `json:"lon"`
	MaritimeRates    map[string]float64 `json:"maritime_rates"`
	CorrectionFactor float64            `json:"correction_factor"`
	FixedFees        []FixedFee         `json:"fixed_fees"`
}

// Table is the full tariff configuration. Loaded once at startup and treated
// as read-only afterwards; every consumer receives it as an explicit parameter.
type Table struct {
	LandRatePerTonKm   float64                      `json:"land_rate_per_ton_km"`
	DefaultDestination string                       `json:"default_destination"`
	Ports              map[models.PortID]PortTariff `json:"ports"`
	RegionFactors      map[string]float64           `json:"region_factors"`
}

// Port returns the tariff entry for a port
func (t *Table) Port(id models.PortID) (PortTariff, error) {
	pt, ok := t.Ports[id]
	if !ok {
		return PortTariff{}, fmt.Errorf("no tariff entry for port %q", id)
	}
	return pt, nil
}

// PortSite returns the port as a locatable entity for route resolution
func (t *Table) PortSite(id models.PortID) (models.Port, error) {
	pt, err := t.Port(id)
	if err != nil {
		return models.Port{}, err
	}
	return models.Port{ID: id, Name: pt.Name, Lat: pt.Lat, Lon: pt.Lon}, nil
}

// MaritimeRate returns the per-ton sea freight rate for a destination.
// An empty destination selects the table's default destination.
func (t *Table) MaritimeRate(id models.PortID, destination string) (float64, error) {
	pt, err := t.Port(id)
	if err != nil {
		return 0, err
	}
	if destination == "" {
		destination = t.DefaultDestination
	}
	rate, ok := pt.MaritimeRates[destination]
	if !ok {
		return 0, fmt.Errorf("port %q has no maritime rate for destination %q", id, destination)
	}
	return rate, nil
}

// Destinations lists the destination keys priced for a port
func (t *Table) Destinations(id models.PortID) []string {
	pt, err := t.Port(id)
	if err != nil {
		return nil
	}
	keys := make([]string, 0, len(pt.MaritimeRates))
	for k := range pt.MaritimeRates {
		keys = append(keys, k)
	}
	return keys
}

// CorrectionFor returns the route correction factor for a port, preferring a
// regional override when the origin's region is known
func (t *Table) CorrectionFor(id models.PortID, region string) float64 {
	if region != "" {
		if f, ok := t.RegionFactors[region]; ok {
			return f
		}
	}
	if pt, ok := t.Ports[id]; ok {
		return pt.CorrectionFactor
	}
	return 1.0
}

// ScaleRates returns a copy of the table with the land rate and every
// maritime rate multiplied by the given factors. Fee schedules and region
// factors are shared with the receiver and must not be mutated.
func (t *Table) ScaleRates(landFactor, maritimeFactor float64) *Table {
	out := *t
	out.LandRatePerTonKm = t.LandRatePerTonKm * landFactor
	out.Ports = make(map[models.PortID]PortTariff, len(t.Ports))
	for id, pt := range t.Ports {
		rates := make(map[string]float64, len(pt.MaritimeRates))
		for dest, rate := range pt.MaritimeRates {
			rates[dest] = rate * maritimeFactor
		}
		pt.MaritimeRates = rates
		out.Ports[id] = pt
	}
	return &out
}

// FixedCost evaluates the port's fee schedule against a shipment
func (pt PortTariff) FixedCost(tons float64, containerized bool, containers int) (float64, error) {
	var total float64
	for _, fee := range pt.FixedFees {
		switch fee.Basis {
		case BasisFlat:
			total += fee.Amount
		case BasisPerTon:
			total += fee.Amount * tons
		case BasisPerContainer:
			if containerized {
				total += fee.Amount * float64(containers)
			}
		case BasisTiered:
			amount, err := tierAmount(fee.Tiers, tons)
			if err != nil {
				return 0, fmt.Errorf("fee %q: %w", fee.Concept, err)
			}
			total += amount
		default:
			return 0, fmt.Errorf("fee %q has unknown basis %q", fee.Concept, fee.Basis)
		}
	}
	return total, nil
}

func tierAmount(tiers []Tier, tons float64) (float64, error) {
	for _, tier := range tiers {
		if tier.UpToTons == 0 || tons <= tier.UpToTons {
			return tier.Amount, nil
		}
	}
	return 0, fmt.Errorf("no tier covers %.2f tons", tons)
}

// Validate checks the table for configuration defects. A table that fails
// validation must not be served; rate lookups against it are undefined.
func (t *Table) Validate() error {
	if t.LandRatePerTonKm <= 0 {
		return fmt.Errorf("land rate must be positive, got %v", t.LandRatePerTonKm)
	}
	if t.DefaultDestination == "" {
		return fmt.Errorf("default destination is required")
	}
	for _, id := range []models.PortID{models.PortTimbues, models.PortLima} {
		pt, ok := t.Ports[id]
		if !ok {
			return fmt.Errorf("missing tariff entry for port %q", id)
		}
		if err := pt.validate(id, t.DefaultDestination); err != nil {
			return err
		}
	}
	for region, f := range t.RegionFactors {
		if f <= 1 {
			return fmt.Errorf("region %q: correction factor must exceed 1, got %v", region, f)
		}
	}
	return nil
}

func (pt PortTariff) validate(id models.PortID, defaultDestination string) error {
	if pt.Lat < -90 || pt.Lat > 90 || pt.Lon < -180 || pt.Lon > 180 {
		return fmt.Errorf("port %q: coordinates out of range", id)
	}
	if pt.CorrectionFactor <= 1 {
		return fmt.Errorf("port %q: correction factor must exceed 1, got %v", id, pt.CorrectionFactor)
	}
	if _, ok := pt.MaritimeRates[defaultDestination]; !ok {
		return fmt.Errorf("port %q: no maritime rate for default destination %q", id, defaultDestination)
	}
	for dest, rate := range pt.MaritimeRates {
		if rate <= 0 {
			return fmt.Errorf("port %q: maritime rate for %q must be positive, got %v", id, dest, rate)
		}
	}
	if len(pt.FixedFees) == 0 {
		return fmt.Errorf("port %q: fee schedule is empty", id)
	}
	for _, fee := range pt.FixedFees {
		if err := fee.validate(); err != nil {
			return fmt.Errorf("port %q: %w", id, err)
		}
	}
	return nil
}

func (f FixedFee) validate() error {
	if f.Concept == "" {
		return fmt.Errorf("fee concept is required")
	}
	switch f.Basis {
	case BasisFlat, BasisPerTon, BasisPerContainer:
		if f.Amount < 0 {
			return fmt.Errorf("fee %q: amount must not be negative", f.Concept)
		}
	case BasisTiered:
		if len(f.Tiers) == 0 {
			return fmt.Errorf("fee %q: tiered basis requires tiers", f.Concept)
		}
		prev := 0.0
		for i, tier := range f.Tiers {
			last := i == len(f.Tiers)-1
			if tier.Amount < 0 {
				return fmt.Errorf("fee %q: tier amount must not be negative", f.Concept)
			}
			if last {
				if tier.UpToTons != 0 {
					return fmt.Errorf("fee %q: last tier must be unbounded (up_to_tons = 0)", f.Concept)
				}
				continue
			}
			if tier.UpToTons <= prev {
				return fmt.Errorf("fee %q: tier bounds must be strictly increasing", f.Concept)
			}
			prev = tier.UpToTons
		}
	default:
		return fmt.Errorf("fee %q: unknown basis %q", f.Concept, f.Basis)
	}
	return nil
}
