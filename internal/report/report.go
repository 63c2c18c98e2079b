package report

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/google/uuid"
	"github.com/puertolima/puertolima_core/internal/models"
)

// Report is a rendered comparison document. The HTML is what the external
// PDF converter consumes verbatim.
type Report struct {
	ID          string    `json:"report_id"`
	GeneratedAt time.Time `json:"generated_at"`
	HTML        string    `json:"document"`
}

type portSection struct {
	Title    string
	Costs    models.PortCosts
	Route    models.RouteResult
	Optimal  bool
	Estimate bool
}

type templateData struct {
	ID          string
	GeneratedAt string
	Origin      models.OriginEcho
	Ports       []portSection
	Comparison  models.ComparisonDetail
	Sensitivity *models.SensitivityReport
}

// Render produces the HTML report for a completed comparison result
func Render(result models.ComparisonResult) (Report, error) {
	if result.Costs == nil || result.Routes == nil || result.Origin == nil {
		return Report{}, fmt.Errorf("cannot render a report from an incomplete result")
	}

	now := time.Now().UTC()
	data := templateData{
		ID:          uuid.NewString(),
		GeneratedAt: now.Format("02/01/2006 15:04 UTC"),
		Origin:      *result.Origin,
		Ports: []portSection{
			{
				Title:    "Puerto Timbúes (fluvial)",
				Costs:    result.Costs.Timbues,
				Route:    result.Routes.Timbues,
				Optimal:  result.Costs.Comparison.OptimalPort == models.PortTimbues,
				Estimate: result.Routes.Timbues.Source == models.SourceEstimated,
			},
			{
				Title:    "Puerto Lima (pacífico)",
				Costs:    result.Costs.Lima,
				Route:    result.Routes.Lima,
				Optimal:  result.Costs.Comparison.OptimalPort == models.PortLima,
				Estimate: result.Routes.Lima.Source == models.SourceEstimated,
			},
		},
		Comparison:  result.Costs.Comparison,
		Sensitivity: result.Sensitivity,
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return Report{}, fmt.Errorf("rendering report: %w", err)
	}

	return Report{
		ID:          data.ID,
		GeneratedAt: now,
		HTML:        buf.String(),
	}, nil
}

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="es">
<head>
<meta charset="utf-8">
<title>Informe comparativo de costos de exportación</title>
<style>
body { font-family: Helvetica, Arial, sans-serif; margin: 2em; color: #222; }
h1 { font-size: 1.4em; border-bottom: 2px solid #1a5276; padding-bottom: 0.3em; }
h2 { font-size: 1.1em; margin-top: 1.4em; }
table { border-collapse: collapse; margin-top: 0.5em; }
th, td { border: 1px solid #bbb; padding: 0.35em 0.8em; text-align: right; }
th { background: #eaf2f8; text-align: left; }
.optimal { background: #e8f8f5; }
.meta { color: #666; font-size: 0.85em; }
</style>
</head>
<body>
<h1>Informe comparativo de costos de exportación</h1>
<p class="meta">Informe {{.ID}} &middot; generado el {{.GeneratedAt}}</p>

<h2>Origen</h2>
<table>
<tr><th>Nombre</th><td>{{.Origin.Name}}</td></tr>
<tr><th>Coordenadas</th><td>{{printf "%.4f" .Origin.Lat}}, {{printf "%.4f" .Origin.Lon}}</td></tr>
<tr><th>Volumen</th><td>{{printf "%.1f" .Origin.Tons}} t</td></tr>
{{if .Origin.IsContainer}}<tr><th>Contenedores</th><td>{{.Origin.Containers}}</td></tr>{{end}}
<tr><th>Destino marítimo</th><td>{{.Origin.Destination}}</td></tr>
</table>

<h2>Costos por puerto</h2>
<table>
<tr>
<th>Puerto</th><th>Distancia (km)</th><th>Flete terrestre</th><th>Flete marítimo</th><th>Costos fijos</th><th>Total</th><th>Por tonelada</th>
</tr>
{{range .Ports}}
<tr{{if .Optimal}} class="optimal"{{end}}>
<th>{{.Title}}{{if .Estimate}} (distancia estimada){{end}}</th>
<td>{{printf "%.2f" .Route.DistanceKm}}</td>
<td>{{printf "%.2f" .Costs.Breakdown.LandFreight}}</td>
<td>{{printf "%.2f" .Costs.Breakdown.MaritimeFreight}}</td>
<td>{{printf "%.2f" .Costs.Breakdown.FixedCosts}}</td>
<td>{{printf "%.2f" .Costs.Total}}</td>
<td>{{printf "%.2f" .Costs.UnitCost}}</td>
</tr>
{{end}}
</table>

<h2>Comparación</h2>
<table>
<tr><th>Puerto óptimo</th><td>{{.Comparison.OptimalPort}}</td></tr>
<tr><th>Diferencia absoluta</th><td>{{printf "%.2f" .Comparison.AbsoluteDiff}}</td></tr>
<tr><th>Diferencia porcentual</th><td>{{printf "%.2f" .Comparison.PercentDiff}} %</td></tr>
<tr><th>Ahorro</th><td>{{printf "%.2f" .Comparison.Savings}}</td></tr>
</table>

{{if .Sensitivity}}
<h2>Análisis de sensibilidad</h2>
<p>Veredicto base: <strong>{{.Sensitivity.BaseOptimal}}</strong>.
Se preservó en {{.Sensitivity.Preserved}} de {{.Sensitivity.Total}} escenarios
(robustez {{printf "%.2f" .Sensitivity.Robustness}}, nivel {{.Sensitivity.Level}}).</p>
<table>
<tr><th>Eje</th><th>Variación (%)</th><th>Puerto óptimo</th><th>Cambia</th></tr>
{{range .Sensitivity.Scenarios}}
<tr>
<th>{{.Axis}}</th>
<td>{{printf "%+.1f" .DeltaPct}}</td>
<td>{{.OptimalPort}}</td>
<td>{{if .Flipped}}sí{{else}}no{{end}}</td>
</tr>
{{end}}
</table>
{{end}}

</body>
</html>
`))
