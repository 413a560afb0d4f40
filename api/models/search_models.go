// api/models/search_models.go
package models

import (
	"time"

	"github.com/pharmap/pharmap-backend/internal/domain"
)

// --- Search Request/Response Structs ---

// BoundsPayload mirrors domain.Bounds for request binding. The zero
// value of a coordinate is meaningful, so the whole block is optional
// and validated as a unit in the handler.
type BoundsPayload struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// CreateSearchRequest launches a pharmacy search. Either explicit bounds
// or a center+zoom pair (from which bounds are estimated) must be given.
type CreateSearchRequest struct {
	Name       string         `json:"name" binding:"required"`
	SearchType string         `json:"search_type" binding:"required,oneof=quick advanced"`
	Bounds     *BoundsPayload `json:"bounds"`
	CenterLat  *float64       `json:"center_lat"`
	CenterLon  *float64       `json:"center_lon"`
	Zoom       int            `json:"zoom"`
}

// SearchSummary is the list/detail view of a recorded search. The map
// artifact is large and has its own endpoint, so it stays out of here.
type SearchSummary struct {
	ID            int64             `json:"id"`
	Name          string            `json:"name"`
	UserID        string            `json:"user_id"`
	Bounds        domain.Bounds     `json:"bounds"`
	SearchType    string            `json:"search_type"`
	SubareaStep   float64           `json:"subarea_step"`
	SubareaRadius int               `json:"subarea_radius"`
	TotalRequests int               `json:"total_requests"`
	CenterLat     float64           `json:"center_lat"`
	CenterLon     float64           `json:"center_lon"`
	Zoom          int               `json:"zoom"`
	Timestamp     time.Time         `json:"timestamp"`
	Pharmacies    []domain.Pharmacy `json:"pharmacies"`
}

// NewSearchSummary converts a domain search to its API view.
func NewSearchSummary(s *domain.Search) SearchSummary {
	return SearchSummary{
		ID:            s.ID,
		Name:          s.Name,
		UserID:        s.UserID,
		Bounds:        s.Bounds,
		SearchType:    s.SearchType,
		SubareaStep:   s.SubareaStep,
		SubareaRadius: s.SubareaRadius,
		TotalRequests: s.TotalRequests,
		CenterLat:     s.CenterLat,
		CenterLon:     s.CenterLon,
		Zoom:          s.Zoom,
		Timestamp:     s.Timestamp,
		Pharmacies:    s.Pharmacies,
	}
}

// CoverageGap is one grid point with no pharmacy within the coverage
// radius.
type CoverageGap struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// CoverageGapsResponse reports the coverage analysis of a search.
type CoverageGapsResponse struct {
	SearchID     int64         `json:"search_id"`
	GridStep     float64       `json:"grid_step"`
	RadiusMeters float64       `json:"radius_meters"`
	Gaps         []CoverageGap `json:"gaps"`
	Count        int           `json:"count"`
}

// UsageResponse reports request totals and the estimated API cost.
type UsageResponse struct {
	TotalRequests    int     `json:"total_requests"`
	EstimatedCostUSD float64 `json:"estimated_cost_usd"`
}

// --- Admin Request Structs ---

// AdjustCreditsRequest changes a user's credit balance. Exactly one of
// the two fields must be provided.
type AdjustCreditsRequest struct {
	Delta *int `json:"delta"`
	Set   *int `json:"set"`
}
