// api/handlers/search_handler.go
package handlers

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pharmap/pharmap-backend/api/models"
	"github.com/pharmap/pharmap-backend/config"
	"github.com/pharmap/pharmap-backend/internal/core"
	"github.com/pharmap/pharmap-backend/internal/domain"
	"github.com/pharmap/pharmap-backend/internal/geo"
	"github.com/pharmap/pharmap-backend/internal/maps"
	"github.com/pharmap/pharmap-backend/internal/places"
	"github.com/pharmap/pharmap-backend/internal/storage"
)

const defaultZoom = 12

// SearchHandler holds dependencies for search handlers.
type SearchHandler struct {
	DB     *sql.DB
	Cfg    *config.Config
	Places *places.Client
}

// NewSearchHandler creates a new SearchHandler.
func NewSearchHandler(db *sql.DB, cfg *config.Config, placesClient *places.Client) *SearchHandler {
	return &SearchHandler{
		DB:     db,
		Cfg:    cfg,
		Places: placesClient,
	}
}

// resolveBounds picks the explicit bounding box when the request carries
// one, otherwise estimates it from center+zoom.
func resolveBounds(req *models.CreateSearchRequest) (domain.Bounds, error) {
	if req.Bounds != nil {
		bounds := domain.Bounds{
			LatMin: req.Bounds.LatMin,
			LatMax: req.Bounds.LatMax,
			LonMin: req.Bounds.LonMin,
			LonMax: req.Bounds.LonMax,
		}
		if !core.ValidBounds(bounds) {
			return domain.Bounds{}, errors.New("invalid bounds: check coordinate ordering and ranges")
		}
		return bounds, nil
	}
	if req.CenterLat == nil || req.CenterLon == nil {
		return domain.Bounds{}, errors.New("either bounds or center_lat/center_lon must be provided")
	}
	zoom := req.Zoom
	if zoom == 0 {
		zoom = defaultZoom
	}
	bounds := geo.EstimateBounds(*req.CenterLat, *req.CenterLon, zoom)
	if !core.ValidBounds(bounds) {
		return domain.Bounds{}, errors.New("estimated bounds are invalid: check center coordinates")
	}
	return bounds, nil
}

// CreateSearch runs a pharmacy search: collects results over the tiled
// area, persists pharmacies and history, renders the map artifact and
// settles the user's credits and request count.
func (h *SearchHandler) CreateSearch(c *gin.Context) {
	username := c.MustGet("username").(string)
	isAdmin := c.GetBool("isAdmin")

	var req models.CreateSearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		customLog.Warnf("CreateSearch binding error: %v", err)
		_ = c.Error(err)
		return
	}

	if !core.IsValidSearchName(req.Name) {
		_ = c.Error(errors.New("invalid search name"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid search name: must be non-blank, printable, at most 255 characters."})
		return
	}

	bounds, err := resolveBounds(&req)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The area cap applies to regular users only; admins may sweep
	// arbitrarily large regions.
	if !isAdmin {
		if area := geo.AreaKm2(bounds); area > h.Cfg.MaxAreaKm2 {
			_ = c.Error(fmt.Errorf("search area too large: %.2f km²", area))
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": fmt.Sprintf("Search area is %.2f km², the maximum is %.2f km². Zoom in and retry.", area, h.Cfg.MaxAreaKm2),
			})
			return
		}
	}

	step, radius, ok := core.SearchPresets(req.SearchType)
	if !ok {
		_ = c.Error(errors.New("unknown search type"))
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "search_type must be 'quick' or 'advanced'."})
		return
	}

	taken, err := storage.SearchNameTaken(c.Request.Context(), h.DB, username, req.Name, isAdmin)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if taken {
		_ = c.Error(storage.ErrSearchNameTaken)
		return
	}

	// Searches are credit-metered for regular users. The credit is
	// reserved up front with the guarded atomic decrement, so two
	// concurrent searches cannot both spend the same last credit; any
	// failure before the search is recorded refunds it.
	if !isAdmin {
		if err := storage.AdjustCredits(c.Request.Context(), h.DB, username, -1); err != nil {
			_ = c.Error(err)
			return
		}
	}
	refund := func() {
		if !isAdmin {
			if err := storage.AdjustCredits(c.Request.Context(), h.DB, username, 1); err != nil {
				customLog.Warnf("CreateSearch: failed to refund credit for %s: %v", username, err)
			}
		}
	}

	pharmacies, totalRequests, err := h.Places.PharmaciesInArea(c.Request.Context(), bounds, step, radius)
	if err != nil {
		customLog.Warnf("CreateSearch: collection failed for %s: %v", username, err)
		refund()
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusBadGateway, gin.H{"error": "Pharmacy collection failed. Try again later."})
		return
	}
	if len(pharmacies) == 0 {
		refund()
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "No pharmacies found in the selected area."})
		return
	}

	pharmacyIDs := make([]int64, 0, len(pharmacies))
	for _, p := range pharmacies {
		pharmacyID, err := storage.UpsertPharmacy(c.Request.Context(), h.DB, p.Name, p.Address, p.Latitude, p.Longitude)
		if err != nil {
			refund()
			_ = c.Error(err)
			return
		}
		pharmacyIDs = append(pharmacyIDs, pharmacyID)
	}

	center := geo.Center(bounds)
	zoom := req.Zoom
	if zoom == 0 {
		zoom = defaultZoom
	}
	gaps := geo.CoverageGaps(bounds, pharmacies, geo.GapGridStep, geo.CoverageRadiusMeters)
	mapHTML, err := maps.Render(pharmacies, gaps, center.Lat, center.Lon, zoom)
	if err != nil {
		refund()
		_ = c.Error(err)
		return
	}

	search := &domain.Search{
		Name:          req.Name,
		UserID:        username,
		Bounds:        bounds,
		SearchType:    req.SearchType,
		SubareaStep:   step,
		SubareaRadius: radius,
		TotalRequests: totalRequests,
		MapHTML:       mapHTML,
		CenterLat:     center.Lat,
		CenterLon:     center.Lon,
		Zoom:          zoom,
		Timestamp:     time.Now().UTC(),
	}
	searchID, err := storage.RecordSearchWithPharmacies(c.Request.Context(), h.DB, search, pharmacyIDs)
	if err != nil {
		refund()
		_ = c.Error(err)
		return
	}
	search.ID = searchID

	search.Pharmacies, err = storage.PharmaciesForSearch(c.Request.Context(), h.DB, searchID)
	if err != nil {
		_ = c.Error(err)
		return
	}

	if err := storage.IncrementTotalRequests(c.Request.Context(), h.DB, username, totalRequests); err != nil {
		_ = c.Error(err)
		return
	}

	customLog.Printf("Search '%s' by %s: %d pharmacies, %d requests", req.Name, username, len(search.Pharmacies), totalRequests)
	c.JSON(http.StatusCreated, models.NewSearchSummary(search))
}

// ListSearches returns the caller's search history; admins see everyone's.
func (h *SearchHandler) ListSearches(c *gin.Context) {
	username := c.MustGet("username").(string)
	if c.GetBool("isAdmin") {
		username = "" // admin view: all users
	}

	searches, err := storage.ListSearches(c.Request.Context(), h.DB, username)
	if err != nil {
		_ = c.Error(err)
		return
	}

	summaries := make([]models.SearchSummary, 0, len(searches))
	for i := range searches {
		summaries = append(summaries, models.NewSearchSummary(&searches[i]))
	}
	c.JSON(http.StatusOK, gin.H{"searches": summaries, "count": len(summaries)})
}

// getOwnedSearch loads a search by path id and enforces ownership for
// non-admin callers.
func (h *SearchHandler) getOwnedSearch(c *gin.Context) (*domain.Search, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid search id")
	}

	search, err := storage.GetSearch(c.Request.Context(), h.DB, id)
	if err != nil {
		return nil, err
	}
	if !c.GetBool("isAdmin") && search.UserID != c.MustGet("username").(string) {
		// Hide other users' history rather than acknowledging it
		return nil, storage.ErrSearchNotFound
	}
	return search, nil
}

// GetSearch returns one search with its pharmacies.
func (h *SearchHandler) GetSearch(c *gin.Context) {
	search, err := h.getOwnedSearch(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, models.NewSearchSummary(search))
}

// GetSearchMap serves the stored HTML map artifact.
func (h *SearchHandler) GetSearchMap(c *gin.Context) {
	search, err := h.getOwnedSearch(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=pharmacy_coverage_map_%d.html", search.ID))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(search.MapHTML))
}

// GetCoverageGaps recomputes the coverage analysis for a recorded
// search: the grid points inside its bounds with no pharmacy within
// the coverage radius.
func (h *SearchHandler) GetCoverageGaps(c *gin.Context) {
	search, err := h.getOwnedSearch(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	// Imported legacy rows may lack bounds; they have no grid to scan.
	var gaps []geo.Point
	if core.ValidBounds(search.Bounds) {
		gaps = geo.CoverageGaps(search.Bounds, search.Pharmacies, geo.GapGridStep, geo.CoverageRadiusMeters)
	}

	points := make([]models.CoverageGap, 0, len(gaps))
	for _, g := range gaps {
		points = append(points, models.CoverageGap{Latitude: g.Lat, Longitude: g.Lon})
	}
	c.JSON(http.StatusOK, models.CoverageGapsResponse{
		SearchID:     search.ID,
		GridStep:     geo.GapGridStep,
		RadiusMeters: geo.CoverageRadiusMeters,
		Gaps:         points,
		Count:        len(points),
	})
}

// ExportSearchCSV streams the search's pharmacies as CSV.
func (h *SearchHandler) ExportSearchCSV(c *gin.Context) {
	search, err := h.getOwnedSearch(c)
	if err != nil {
		_ = c.Error(err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=pharmacies_%d.csv", search.ID))
	c.Header("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"name", "address", "latitude", "longitude"})
	for _, p := range search.Pharmacies {
		_ = w.Write([]string{
			p.Name,
			p.Address,
			strconv.FormatFloat(p.Latitude, 'f', -1, 64),
			strconv.FormatFloat(p.Longitude, 'f', -1, 64),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		customLog.Warnf("ExportSearchCSV: write failed for search %d: %v", search.ID, err)
	}
}

// Usage reports the caller's request totals and estimated API cost.
// Admins get the global totals across all recorded searches.
func (h *SearchHandler) Usage(c *gin.Context) {
	const costPerRequestUSD = 0.032

	var totalRequests int
	if c.GetBool("isAdmin") {
		total, err := storage.TotalRequestsAcrossSearches(c.Request.Context(), h.DB)
		if err != nil {
			_ = c.Error(err)
			return
		}
		totalRequests = total
	} else {
		user, err := storage.FindUserByUsername(c.Request.Context(), h.DB, c.MustGet("username").(string))
		if err != nil {
			_ = c.Error(err)
			return
		}
		totalRequests = user.TotalRequests
	}

	c.JSON(http.StatusOK, models.UsageResponse{
		TotalRequests:    totalRequests,
		EstimatedCostUSD: float64(totalRequests) * costPerRequestUSD,
	})
}
