package googleplaces

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ymatsuda/snaptag/internal/core/domain"
)

const DefaultBaseURL = "https://places.googleapis.com"

const searchFieldMask = "places.id,places.displayName,places.location"

// Client resolves free-form place queries through the Places text search
// API. It implements ports.PlaceSearcher.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type searchTextRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

type place struct {
	ID          string       `json:"id"`
	DisplayName *displayName `json:"displayName"`
	Location    *latLng      `json:"location"`
}

type displayName struct {
	Text string `json:"text"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SearchText returns the best match for query, or (nil, nil) when the API
// finds nothing. Enrichment is best effort and callers treat both outcomes
// as non-fatal.
func (c *Client) SearchText(ctx context.Context, query string) (*domain.PlaceInfo, error) {
	body, err := json.Marshal(searchTextRequest{TextQuery: query, PageSize: 1})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("places search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("places search status: %s: %s", resp.Status, strings.TrimSpace(string(excerpt)))
	}

	var payload searchTextResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if len(payload.Places) == 0 {
		return nil, nil
	}

	first := payload.Places[0]
	info := &domain.PlaceInfo{
		MapURL: fmt.Sprintf("https://www.google.com/maps/place/?q=place_id:%s", first.ID),
	}
	if first.DisplayName != nil {
		info.DisplayName = first.DisplayName.Text
	}
	if first.Location != nil {
		info.Latitude = first.Location.Latitude
		info.Longitude = first.Location.Longitude
	}
	return info, nil
}
