package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nandanugg/apadbandhan/module/tracking/domain"
)

const DefaultNominatimURL = "https://nominatim.openstreetmap.org"

// DefaultRate is the request rate allowed by the public Nominatim usage
// policy.
const DefaultRate rate.Limit = 1

// Nominatim reverse-geocodes coordinates against an OSM Nominatim server.
// Requests are spaced out to at most perSecond.
type Nominatim struct {
	baseURL   string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

func NewNominatim(baseURL, userAgent string, client *http.Client, perSecond rate.Limit) *Nominatim {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if perSecond <= 0 {
		perSecond = DefaultRate
	}
	return &Nominatim{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: userAgent,
		client:    client,
		limiter:   rate.NewLimiter(perSecond, 1),
	}
}

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
	Address     struct {
		HouseNumber string `json:"house_number"`
		Road        string `json:"road"`
		Suburb      string `json:"suburb"`
		City        string `json:"city"`
		Town        string `json:"town"`
		Village     string `json:"village"`
		State       string `json:"state"`
		Postcode    string `json:"postcode"`
		Country     string `json:"country"`
	} `json:"address"`
}

func (n *Nominatim) Reverse(ctx context.Context, c domain.Coordinate) (*domain.Address, error) {
	if err := n.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("addressdetails", "1")
	q.Set("lat", strconv.FormatFloat(c.Lat, 'f', 7, 64))
	q.Set("lon", strconv.FormatFloat(c.Lon, 'f', 7, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build reverse request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if n.userAgent != "" {
		req.Header.Set("User-Agent", n.userAgent)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reverse geocode: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reverse geocode: unexpected status %d", resp.StatusCode)
	}

	var body reverseResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode reverse response: %w", err)
	}
	if body.Error != "" {
		return nil, fmt.Errorf("reverse geocode: %s", body.Error)
	}

	a := body.Address
	return &domain.Address{
		Address:     joinNonEmpty(", ", joinNonEmpty(" ", a.HouseNumber, a.Road), a.Suburb),
		City:        firstNonEmpty(a.City, a.Town, a.Village),
		State:       a.State,
		Pincode:     a.Postcode,
		Country:     a.Country,
		DisplayName: body.DisplayName,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func joinNonEmpty(sep string, values ...string) string {
	parts := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, sep)
}
