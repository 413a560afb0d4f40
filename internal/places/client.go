// internal/places/client.go
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/avast/retry-go"

	"github.com/pharmap/pharmap-backend/internal/domain"
	"github.com/pharmap/pharmap-backend/internal/geo"
	"github.com/pharmap/pharmap-backend/internal/logger"
)

var (
	customLog = logger.NewLogger()
)

const (
	defaultPageDelay = 2 * time.Second
	maxResultCount   = 20
	fieldMask        = "places.displayName,places.location,places.formattedAddress"
)

// Client calls the Google Places (New) searchNearby endpoint to collect
// pharmacies. BaseURL points at the real endpoint in production and at a
// fake server in tests.
type Client struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client

	// PageDelay is the pause between paginated requests; the upstream
	// nextPageToken is not immediately valid after it is issued.
	PageDelay time.Duration
}

// NewClient builds a Places client with sane timeouts.
func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		APIKey:     apiKey,
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		PageDelay:  defaultPageDelay,
	}
}

// --- Wire types for the searchNearby API ---

type searchNearbyRequest struct {
	LocationRestriction locationRestriction `json:"locationRestriction"`
	IncludedTypes       []string            `json:"includedTypes"`
	MaxResultCount      int                 `json:"maxResultCount"`
	PageToken           string              `json:"pageToken,omitempty"`
}

type locationRestriction struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng  `json:"center"`
	Radius float64 `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type searchNearbyResponse struct {
	Places []struct {
		DisplayName struct {
			Text string `json:"text"`
		} `json:"displayName"`
		Location         latLng `json:"location"`
		FormattedAddress string `json:"formattedAddress"`
	} `json:"places"`
	NextPageToken string `json:"nextPageToken"`
}

// NearbyPharmacies collects the pharmacies within radius metres of a
// sub-area center, following nextPageToken pagination. It returns the
// results together with the number of billable API requests made.
func (c *Client) NearbyPharmacies(ctx context.Context, centerLat, centerLon float64, radius int) ([]domain.Pharmacy, int, error) {
	var pharmacies []domain.Pharmacy
	requestCount := 0
	pageToken := ""

	for {
		payload := searchNearbyRequest{
			LocationRestriction: locationRestriction{
				Circle: circle{
					Center: latLng{Latitude: centerLat, Longitude: centerLon},
					Radius: float64(radius),
				},
			},
			IncludedTypes:  []string{"pharmacy"},
			MaxResultCount: maxResultCount,
			PageToken:      pageToken,
		}

		page, err := c.doRequest(ctx, payload)
		requestCount++
		if err != nil {
			customLog.Warnf("Places: request for sub-area (%.4f, %.4f) failed: %v", centerLat, centerLon, err)
			return nil, requestCount, err
		}

		for _, place := range page.Places {
			name := place.DisplayName.Text
			if name == "" {
				name = "Unnamed pharmacy"
			}
			pharmacies = append(pharmacies, domain.Pharmacy{
				Name:      name,
				Address:   place.FormattedAddress,
				Latitude:  place.Location.Latitude,
				Longitude: place.Location.Longitude,
			})
		}

		if page.NextPageToken == "" {
			break
		}
		pageToken = page.NextPageToken
		select {
		case <-ctx.Done():
			return nil, requestCount, ctx.Err()
		case <-time.After(c.PageDelay):
		}
	}

	customLog.Printf("Places: sub-area (%.4f, %.4f): %d pharmacies, %d requests",
		centerLat, centerLon, len(pharmacies), requestCount)
	return pharmacies, requestCount, nil
}

// PharmaciesInArea tiles the bounding box into sub-areas spaced step
// degrees apart, queries each one and returns the deduplicated union
// plus the total request count consumed.
func (c *Client) PharmaciesInArea(ctx context.Context, bounds domain.Bounds, step float64, radius int) ([]domain.Pharmacy, int, error) {
	centers := geo.SubareaCenters(bounds, step)
	customLog.Printf("Places: collecting pharmacies for %d sub-areas", len(centers))

	var pharmacies []domain.Pharmacy
	totalRequests := 0
	for _, center := range centers {
		subareaPharmacies, requestCount, err := c.NearbyPharmacies(ctx, center.Lat, center.Lon, radius)
		totalRequests += requestCount
		if err != nil {
			return nil, totalRequests, fmt.Errorf("sub-area (%.4f, %.4f): %w", center.Lat, center.Lon, err)
		}
		pharmacies = append(pharmacies, subareaPharmacies...)
	}

	unique := geo.DedupePharmacies(pharmacies)
	customLog.Printf("Places: collection finished: %d unique pharmacies, %d requests", len(unique), totalRequests)
	return unique, totalRequests, nil
}

// doRequest performs one searchNearby call, retrying transient failures
// with backoff. 4xx responses are not retried.
func (c *Client) doRequest(ctx context.Context, payload searchNearbyRequest) (*searchNearbyResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	var page searchNearbyResponse
	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("X-Goog-Api-Key", c.APIKey)
			req.Header.Set("X-Goog-FieldMask", fieldMask)

			res, err := c.HTTPClient.Do(req)
			if err != nil {
				return err
			}
			defer res.Body.Close()

			if res.StatusCode >= 500 {
				return fmt.Errorf("places API returned %s", res.Status)
			}
			if res.StatusCode != http.StatusOK {
				detail, _ := io.ReadAll(io.LimitReader(res.Body, 512))
				return retry.Unrecoverable(fmt.Errorf("places API returned %s: %s", res.Status, detail))
			}

			page = searchNearbyResponse{}
			if err := json.NewDecoder(res.Body).Decode(&page); err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}
			return nil
		},
		retry.Attempts(3),
		retry.DelayType(retry.BackOffDelay),
		retry.Context(ctx),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			customLog.Warnf("Places: retrying request (attempt %d): %v", n+1, err)
		}),
	)
	if err != nil {
		return nil, err
	}
	return &page, nil
}
