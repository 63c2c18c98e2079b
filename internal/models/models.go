package models

import "fmt"

// PortID identifies one of the two fixed export ports
type PortID string

const (
	PortTimbues PortID = "timbues"
	PortLima    PortID = "lima"
)

// DefaultPort is the port favored when a comparison ends in an exact tie
const DefaultPort = PortTimbues

// RouteSource indicates how a route distance was obtained
type RouteSource string

const (
	SourceProvider  RouteSource = "provider"
	SourceEstimated RouteSource = "estimated"
)

// Coordinate is a WGS84 point
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f,%.6f", c.Lat, c.Lon)
}

// Port represents a fixed export port terminal
type Port struct {
	ID   PortID
	Name string
	Lat  float64
	Lon  float64
}

// Origin describes the cargo shipment being quoted
type Origin struct {
	Name          string
	Lat           float64
	Lon           float64
	Tons          float64
	Containerized bool
	Containers    int
	Destination   string // maritime destination key; empty means the tariff default
}

// RouteResult is the outcome of resolving a road route from an origin to a port.
// Estimated routes carry no duration; the field is omitted rather than zeroed.
type RouteResult struct {
	Port        PortID      `json:"-"`
	DistanceKm  float64     `json:"distance"`
	DurationMin float64     `json:"duration,omitempty"`
	Geometry    [][]float64 `json:"geometry,omitempty"` // ordered [lon, lat] pairs
	Source      RouteSource `json:"source"`
}

// CostBreakdown holds the unrounded cost components for shipping through one port
type CostBreakdown struct {
	Port            PortID
	LandFreight     float64
	MaritimeFreight float64
	FixedCosts      float64
	Total           float64
	UnitCost        float64
}

// Comparison is the verdict between the two port breakdowns
type Comparison struct {
	OptimalPort  PortID
	AbsoluteDiff float64
	PercentDiff  float64
	Savings      float64
	Tie          bool
}

// Sector is a geographic zone used to pick regional route correction factors
type Sector struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Region string `json:"region"`
}

// SensitivityScenario is one perturbed evaluation of the comparison
type SensitivityScenario struct {
	Axis        string  `json:"axis"`
	DeltaPct    float64 `json:"delta_pct"`
	OptimalPort PortID  `json:"puerto_optimo"`
	Flipped     bool    `json:"flipped"`
}

// SensitivityReport summarizes how stable the verdict is under rate perturbation
type SensitivityReport struct {
	BaseOptimal PortID                `json:"puerto_optimo_base"`
	Scenarios   []SensitivityScenario `json:"escenarios"`
	Preserved   int                   `json:"preservados"`
	Total       int                   `json:"total"`
	Robustness  float64               `json:"robustez"`
	Level       string                `json:"nivel"`
}

// Robustness levels reported by the sensitivity analyzer
const (
	RobustnessHigh   = "alta"
	RobustnessMedium = "media"
	RobustnessLow    = "baja"
)

// BreakEvenResult is the distance at which both ports cost the same
type BreakEvenResult struct {
	Found         bool    `json:"found"`
	DistanceKm    float64 `json:"distancia_km,omitempty"`
	AlwaysOptimal PortID  `json:"siempre_optimo,omitempty"`
	Iterations    int     `json:"iterations"`
}

// Wire contract types. Field names are frozen; clients parse them directly.

// OriginEcho mirrors the validated request inputs back in the response
type OriginEcho struct {
	Name        string  `json:"name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	Tons        float64 `json:"tons"`
	IsContainer bool    `json:"is_container"`
	Containers  int     `json:"container_count,omitempty"`
	Destination string  `json:"destination"`
}

// CostDetail is the per-port cost component breakdown on the wire
type CostDetail struct {
	LandFreight     float64 `json:"flete_terrestre"`
	MaritimeFreight float64 `json:"flete_maritimo"`
	FixedCosts      float64 `json:"costos_fijos"`
}

// PortCosts is the full per-port cost block on the wire
type PortCosts struct {
	Breakdown CostDetail `json:"desglose"`
	Total     float64    `json:"costo_total"`
	UnitCost  float64    `json:"costo_unitario"`
}

// ComparisonDetail is the verdict block on the wire
type ComparisonDetail struct {
	OptimalPort  PortID  `json:"puerto_optimo"`
	AbsoluteDiff float64 `json:"diferencia_absoluta"`
	PercentDiff  float64 `json:"diferencia_porcentual"`
	Savings      float64 `json:"ahorro"`
}

// CostsSection groups both port blocks with the comparison
type CostsSection struct {
	Timbues    PortCosts        `json:"timbues"`
	Lima       PortCosts        `json:"lima"`
	Comparison ComparisonDetail `json:"comparacion"`
}

// RoutesSection carries the resolved route per port
type RoutesSection struct {
	Timbues RouteResult `json:"timbues"`
	Lima    RouteResult `json:"lima"`
}

// ComparisonResult is the aggregate response for a cost comparison
type ComparisonResult struct {
	Status      string             `json:"status"`
	Origin      *OriginEcho        `json:"origin,omitempty"`
	Costs       *CostsSection      `json:"costs,omitempty"`
	Routes      *RoutesSection     `json:"routes,omitempty"`
	Sensitivity *SensitivityReport `json:"sensitivity,omitempty"`
	Message     string             `json:"message,omitempty"`
}
