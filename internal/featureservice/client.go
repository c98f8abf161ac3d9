// Package featureservice queries the hosted ArcGIS feature layer that
// publishes district boundaries and population figures, and converts
// its features into location records.
package featureservice

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/infomapapp/parceldash/internal/config"
	"github.com/infomapapp/parceldash/internal/geo"
	"github.com/infomapapp/parceldash/pkg/core"
)

const unknownValue = "Unknown"

// Client handles communication with the feature service.
type Client struct {
	queryURL   string
	httpClient *http.Client
}

// New creates a feature service client from configuration.
func New(cfg config.FeatureServiceConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		queryURL:   cfg.URL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type queryResponse struct {
	Features []feature     `json:"features"`
	Error    *serviceError `json:"error"`
}

type feature struct {
	Attributes featureAttributes `json:"attributes"`
	Geometry   *featureGeometry  `json:"geometry"`
}

type featureAttributes struct {
	ObjectID            int     `json:"objectid"`
	DistrictEnglish     string  `json:"st_district_eng"`
	StatisticalDistrict string  `json:"statistical_district"`
	Region              string  `json:"region"`
	TotalPopulation     float64 `json:"total_population"`
	LastEditedDate      int64   `json:"last_edited_date"`
}

type featureGeometry struct {
	Rings [][][]float64 `json:"rings"`
}

type serviceError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Query fetches every feature from the layer and converts the result
// into location records.
func (c *Client) Query(ctx context.Context) ([]core.LocationRecord, error) {
	params := url.Values{}
	params.Set("where", "1=1")
	params.Set("outFields", "*")
	params.Set("returnGeometry", "true")
	params.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.queryURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feature service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("feature service returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed queryResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	// The service reports errors inside a 200 response.
	if parsed.Error != nil {
		return nil, fmt.Errorf("feature service error %d: %s", parsed.Error.Code, parsed.Error.Message)
	}

	return recordsFromFeatures(parsed.Features), nil
}

// recordsFromFeatures maps raw features to location records. Records
// get sequential ids so the dashboard can address them independently
// of the service's object ids.
func recordsFromFeatures(features []feature) []core.LocationRecord {
	records := make([]core.LocationRecord, 0, len(features))
	for i, f := range features {
		location := f.Attributes.DistrictEnglish
		if location == "" {
			location = f.Attributes.StatisticalDistrict
		}
		if location == "" {
			location = unknownValue
		}

		region := f.Attributes.Region
		if region == "" {
			region = unknownValue
		}

		coordinates := ""
		if f.Geometry != nil && len(f.Geometry.Rings) > 0 && len(f.Geometry.Rings[0]) > 0 {
			vertex := f.Geometry.Rings[0][0]
			if len(vertex) >= 2 {
				coordinates = geo.FormatCoordinates(vertex[0], vertex[1])
			}
		}

		lastUpdated := ""
		if f.Attributes.LastEditedDate > 0 {
			lastUpdated = time.UnixMilli(f.Attributes.LastEditedDate).UTC().Format("2006-01-02")
		}

		records = append(records, core.LocationRecord{
			ID:          i + 1,
			Location:    location,
			Region:      region,
			Coordinates: coordinates,
			Users:       int(f.Attributes.TotalPopulation),
			Status:      "Active",
			LastUpdated: lastUpdated,
			ObjectID:    f.Attributes.ObjectID,
		})
	}
	return records
}
