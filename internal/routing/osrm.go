package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/puertolima/puertolima_core/internal/models"
)

// OSRMConfig holds routing provider configuration
type OSRMConfig struct {
	BaseURL string
	Profile string
	Timeout time.Duration
}

// LoadOSRMConfigFromEnv loads provider configuration from environment variables
func LoadOSRMConfigFromEnv() *OSRMConfig {
	timeoutSec, _ := strconv.Atoi(getEnv("OSRM_TIMEOUT_SECONDS", "8"))
	if timeoutSec <= 0 {
		timeoutSec = 8
	}

	return &OSRMConfig{
		BaseURL: getEnv("OSRM_URL", "http://router.project-osrm.org"),
		Profile: getEnv("OSRM_PROFILE", "driving"),
		Timeout: time.Duration(timeoutSec) * time.Second,
	}
}

// OSRMResolver resolves road routes against an OSRM routing service.
// Safe for concurrent use.
type OSRMResolver struct {
	client  *http.Client
	baseURL string
	profile string
}

// NewOSRMResolver creates a provider-backed resolver
func NewOSRMResolver(config *OSRMConfig) (*OSRMResolver, error) {
	if config.BaseURL == "" {
		return nil, errors.New("OSRM base URL is empty")
	}

	return &OSRMResolver{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		profile: config.Profile,
	}, nil
}

type osrmRoute struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Geometry struct {
		Coordinates [][]float64 `json:"coordinates"`
	} `json:"geometry"`
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

func (r *OSRMResolver) Resolve(ctx context.Context, origin models.Coordinate, port models.Port) (models.RouteResult, error) {
	// OSRM takes lon,lat pairs
	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f",
		r.baseURL, r.profile, origin.Lon, origin.Lat, port.Lon, port.Lat)

	params := url.Values{}
	params.Set("overview", "full")
	params.Set("geometries", "geojson")
	params.Set("alternatives", "false")

	body, err := r.fetchWithRetry(ctx, endpoint+"?"+params.Encode())
	if err != nil {
		return models.RouteResult{}, fmt.Errorf("route %s -> %s: %w", origin, port.ID, err)
	}

	var decoded osrmResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return models.RouteResult{}, fmt.Errorf("route %s -> %s: malformed provider response: %w", origin, port.ID, err)
	}

	if decoded.Code != "Ok" {
		return models.RouteResult{}, fmt.Errorf("route %s -> %s: provider returned %q: %s", origin, port.ID, decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return models.RouteResult{}, fmt.Errorf("route %s -> %s: provider returned no routes", origin, port.ID)
	}

	route := decoded.Routes[0]
	return models.RouteResult{
		Port:        port.ID,
		DistanceKm:  route.Distance / 1000,
		DurationMin: route.Duration / 60,
		Geometry:    route.Geometry.Coordinates,
		Source:      models.SourceProvider,
	}, nil
}

// fetchWithRetry performs the provider call with at most one retry on a
// transient failure, keeping worst-case latency bounded before fallback.
func (r *OSRMResolver) fetchWithRetry(ctx context.Context, url string) ([]byte, error) {
	body, err := r.fetch(ctx, url)
	if err == nil || !isTransient(err) {
		return body, err
	}

	timer := time.NewTimer(200 * time.Millisecond)
	select {
	case <-ctx.Done():
		timer.Stop()
		return nil, ctx.Err()
	case <-timer.C:
	}

	return r.fetch(ctx, url)
}

func (r *OSRMResolver) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(body)),
		}
	}

	return body, nil
}

func isTransient(err error) bool {
	var he *httpStatusError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}

// getEnv retrieves an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
