// internal/maps/render.go
package maps

import (
	"fmt"
	"html/template"
	"strings"

	"github.com/pharmap/pharmap-backend/internal/domain"
	"github.com/pharmap/pharmap-backend/internal/geo"
)

// pageTemplate renders a self-contained Leaflet page: one circle per
// pharmacy with the name as a popup, plus a small red marker on every
// grid point outside pharmacy coverage. The result is stored as the
// search's map_html artifact and served back verbatim.
var pageTemplate = template.Must(template.New("map").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Pharmacy coverage</title>
<link rel="stylesheet" href="https://unpkg.com/leaflet@1.9.4/dist/leaflet.css">
<script src="https://unpkg.com/leaflet@1.9.4/dist/leaflet.js"></script>
<style>html, body, #map { height: 100%; margin: 0; }</style>
</head>
<body>
<div id="map"></div>
<script>
var map = L.map('map').setView([{{.CenterLat}}, {{.CenterLon}}], {{.Zoom}});
L.tileLayer('https://tile.openstreetmap.org/{z}/{x}/{y}.png', {
	attribution: '&copy; OpenStreetMap contributors'
}).addTo(map);
{{range .Circles}}L.circle([{{.Lat}}, {{.Lon}}], {
	radius: {{.Radius}},
	color: 'green',
	fillColor: 'green',
	fillOpacity: 0.5,
	opacity: 0.5
}).addTo(map).bindPopup({{.Name}});
{{end}}{{range .Gaps}}L.circleMarker([{{.Lat}}, {{.Lon}}], {
	radius: 3,
	color: 'red',
	fillColor: 'red',
	fillOpacity: 0.6
}).addTo(map);
{{end}}</script>
</body>
</html>
`))

type circleData struct {
	Lat    float64
	Lon    float64
	Radius int
	Name   string
}

type pageData struct {
	CenterLat float64
	CenterLon float64
	Zoom      int
	Circles   []circleData
	Gaps      []geo.Point
}

// Render produces the HTML map artifact for a set of pharmacies around
// the given center and zoom. gaps carries the uncovered grid points to
// highlight; pass nil to skip the coverage layer.
func Render(pharmacies []domain.Pharmacy, gaps []geo.Point, centerLat, centerLon float64, zoom int) (string, error) {
	data := pageData{
		CenterLat: centerLat,
		CenterLon: centerLon,
		Zoom:      zoom,
		Circles:   make([]circleData, 0, len(pharmacies)),
		Gaps:      gaps,
	}
	for _, p := range pharmacies {
		data.Circles = append(data.Circles, circleData{
			Lat:    p.Latitude,
			Lon:    p.Longitude,
			Radius: int(geo.CoverageRadiusMeters),
			Name:   p.Name,
		})
	}

	var sb strings.Builder
	if err := pageTemplate.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render map: %w", err)
	}
	return sb.String(), nil
}
