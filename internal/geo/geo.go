// internal/geo/geo.go
package geo

import (
	"math"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// Coverage analysis parameters: a point is considered served when a
// pharmacy lies within CoverageRadiusMeters, and the analysis samples
// the bounding box on a GapGridStep-degree grid.
const (
	CoverageRadiusMeters = 300.0
	GapGridStep          = 0.001
)

const earthRadiusMeters = 6371000.0

// Point is a latitude/longitude pair.
type Point struct {
	Lat float64
	Lon float64
}

// SubareaCenters tiles a bounding box into a grid of sub-query centers
// spaced step degrees apart, row-major from the south-west corner.
func SubareaCenters(b domain.Bounds, step float64) []Point {
	if step <= 0 {
		return nil
	}
	var centers []Point
	// Small epsilon keeps float accumulation from dropping the last row.
	const eps = 1e-9
	for lat := b.LatMin; lat < b.LatMax-eps; lat += step {
		for lon := b.LonMin; lon < b.LonMax-eps; lon += step {
			centers = append(centers, Point{Lat: lat, Lon: lon})
		}
	}
	return centers
}

// EstimateBounds derives a bounding box from a map center and zoom level
// when the client could not report the visible region. The half-width
// halves with every zoom step above 12.
func EstimateBounds(centerLat, centerLon float64, zoom int) domain.Bounds {
	delta := 0.05 / math.Pow(2, float64(zoom-12))
	return domain.Bounds{
		LatMin: centerLat - delta,
		LatMax: centerLat + delta,
		LonMin: centerLon - delta,
		LonMax: centerLon + delta,
	}
}

// AreaKm2 approximates the area of a bounding box in square kilometres,
// correcting the longitude span for latitude.
func AreaKm2(b domain.Bounds) float64 {
	latKm := (b.LatMax - b.LatMin) * 111
	midLat := (b.LatMin + b.LatMax) / 2
	lonKm := (b.LonMax - b.LonMin) * 111 * math.Cos(midLat*math.Pi/180)
	return latKm * lonKm
}

// Center returns the midpoint of a bounding box.
func Center(b domain.Bounds) Point {
	return Point{
		Lat: (b.LatMin + b.LatMax) / 2,
		Lon: (b.LonMin + b.LonMax) / 2,
	}
}

// HaversineMeters returns the great-circle distance between two points.
func HaversineMeters(a, b Point) float64 {
	latA := a.Lat * math.Pi / 180
	latB := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon
	return 2 * earthRadiusMeters * math.Asin(math.Sqrt(h))
}

// CoverageGaps returns the grid points inside the bounding box that
// have no pharmacy within radiusMeters. The grid is spaced step degrees
// from the south-west corner, like SubareaCenters.
func CoverageGaps(b domain.Bounds, pharmacies []domain.Pharmacy, step, radiusMeters float64) []Point {
	var gaps []Point
	for _, point := range SubareaCenters(b, step) {
		covered := false
		for _, p := range pharmacies {
			if HaversineMeters(point, Point{Lat: p.Latitude, Lon: p.Longitude}) <= radiusMeters {
				covered = true
				break
			}
		}
		if !covered {
			gaps = append(gaps, point)
		}
	}
	return gaps
}

// DedupePharmacies drops repeated results, keyed by (name, lat, lon),
// the same natural key the storage uniqueness constraint guards.
func DedupePharmacies(pharmacies []domain.Pharmacy) []domain.Pharmacy {
	type key struct {
		name     string
		lat, lon float64
	}
	seen := make(map[key]bool, len(pharmacies))
	unique := make([]domain.Pharmacy, 0, len(pharmacies))
	for _, p := range pharmacies {
		k := key{name: p.Name, lat: p.Latitude, lon: p.Longitude}
		if seen[k] {
			continue
		}
		seen[k] = true
		unique = append(unique, p)
	}
	return unique
}
