// internal/domain/models.go
package domain

import "time"

// User defines the structure for user data in the DB.
// Users are keyed by username; credits meter search usage.
type User struct {
	Username      string
	PasswordHash  string // Keep unexported or handle carefully if needed elsewhere
	Credits       int
	IsAdmin       bool
	TotalRequests int
}

// Bounds is the rectangular region a search covered, persisted as JSON
// in the search_history.bounds column.
type Bounds struct {
	LatMin float64 `json:"lat_min"`
	LatMax float64 `json:"lat_max"`
	LonMin float64 `json:"lon_min"`
	LonMax float64 `json:"lon_max"`
}

// Pharmacy is a geographic point of interest discovered by a search.
// The triple (Name, Latitude, Longitude) is unique in storage.
type Pharmacy struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Search is one completed search run: its parameters, the rendered map
// artifact and the request count it consumed. Immutable once recorded.
type Search struct {
	ID            int64
	Name          string
	UserID        string
	Bounds        Bounds
	SearchType    string // "quick" or "advanced"
	SubareaStep   float64
	SubareaRadius int
	TotalRequests int
	MapHTML       string
	CenterLat     float64
	CenterLon     float64
	Zoom          int
	Timestamp     time.Time

	// Pharmacies linked to this search via search_pharmacies.
	Pharmacies []Pharmacy
}

// ActiveIP is a client address tracked within a sliding time window.
// A row is logically expired once ExpiresAt passes; rows are only
// physically removed by the reaper.
type ActiveIP struct {
	IPAddress string
	AddedAt   time.Time
	ExpiresAt time.Time
}
