package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// ErrTripNotFound reports that the schedule service knows no trip for the
// queried code. Callers treat it as "out of scope", not as a failure.
var ErrTripNotFound = errors.New("trip not found in schedule")

// Client queries the schedule service for trip patterns. The service is the
// authority on scheduled stops and on resolving external feed codes to
// internal identifiers.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

type patternResponse struct {
	TripID   string `json:"trip_id"`
	Code     string `json:"code"`
	Timezone string `json:"timezone"`
	Stops    []struct {
		StopID           string `json:"stop_id"`
		Code             string `json:"code"`
		ArrivalSeconds   int64  `json:"arrival_seconds"`
		DepartureSeconds int64  `json:"departure_seconds"`
	} `json:"stops"`
}

// FindPattern resolves a feed trip code to its scheduled pattern.
func (c *Client) FindPattern(ctx context.Context, tripCode string) (*TripPattern, error) {
	endpoint := fmt.Sprintf("%s/v1/trips/%s/pattern", c.baseURL, url.PathEscape(tripCode))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building schedule request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("querying schedule service: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTripNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("schedule service returned %d: %s", resp.StatusCode, string(body))
	}

	var payload patternResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding schedule response: %w", err)
	}
	if payload.TripID == "" || len(payload.Stops) == 0 {
		return nil, fmt.Errorf("schedule service returned an empty pattern for %q", tripCode)
	}

	pattern := &TripPattern{
		TripID:   payload.TripID,
		Code:     payload.Code,
		Timezone: payload.Timezone,
		Stops:    make([]ScheduledStop, 0, len(payload.Stops)),
	}
	for _, s := range payload.Stops {
		pattern.Stops = append(pattern.Stops, ScheduledStop{
			StopID:    s.StopID,
			Code:      s.Code,
			Arrival:   time.Duration(s.ArrivalSeconds) * time.Second,
			Departure: time.Duration(s.DepartureSeconds) * time.Second,
		})
	}

	return pattern, nil
}
