package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"booking-service/internal/util"
)

// Quote is the occupancy snapshot sent to the pricing service
type Quote struct {
	TripID         string
	BasePrice      int64
	SeatsAvailable int
	TotalSeats     int
}

type quoteResponse struct {
	FinalPrice *float64 `json:"finalPrice"`
}

// Client queries the pricing service over HTTP
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a pricing client with a per-request timeout
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Price returns the price quoted for q. Errors and non-positive quotes are
// returned as errors so callers can fall back to their own price.
func (c *Client) Price(ctx context.Context, q Quote) (int64, error) {
	ctx, span := util.StartSpan(ctx, "PricingClient.Price")
	defer span.End()

	params := url.Values{}
	params.Set("basePrice", strconv.FormatInt(q.BasePrice, 10))
	params.Set("seatsAvailable", strconv.Itoa(q.SeatsAvailable))
	params.Set("totalSeats", strconv.Itoa(q.TotalSeats))
	endpoint := fmt.Sprintf("%s/pricing/%s?%s", c.baseURL, url.PathEscape(q.TripID), params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build pricing request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.RecordError(span, err)
		return 0, fmt.Errorf("pricing request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("pricing service returned status %d", resp.StatusCode)
	}

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("failed to decode pricing response: %w", err)
	}
	if body.FinalPrice == nil || math.IsNaN(*body.FinalPrice) || *body.FinalPrice <= 0 {
		return 0, fmt.Errorf("pricing service returned unusable price")
	}

	return int64(math.Round(*body.FinalPrice)), nil
}
