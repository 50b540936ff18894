package geoip

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Result is the location resolved for an IP. Zero values mean unknown.
type Result struct {
	IP        string
	City      string
	Region    string
	Country   string
	Latitude  *float64
	Longitude *float64
}

type ipapiResponse struct {
	IP          string   `json:"ip"`
	City        string   `json:"city"`
	Region      string   `json:"region"`
	CountryName string   `json:"country_name"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Error       bool     `json:"error"`
	Reason      string   `json:"reason"`
}

// Client queries an ipapi.co compatible endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   3 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:        20,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 3 * time.Second,
			},
		},
	}
}

// Lookup resolves ip. Private, loopback and empty addresses resolve the
// server's own public address instead, which is where an on-site kiosk sits.
func (c *Client) Lookup(ctx context.Context, ip string) (Result, error) {
	endpoint := c.BaseURL + "/json/"
	if isPublic(ip) {
		endpoint = fmt.Sprintf("%s/%s/json/", c.BaseURL, ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "qr-attendance/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("geoip status=%d, body=%s", resp.StatusCode, string(b))
	}

	var api ipapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		return Result{}, fmt.Errorf("decode geoip response: %w", err)
	}
	if api.Error {
		return Result{}, fmt.Errorf("geoip lookup failed: %s", api.Reason)
	}

	return Result{
		IP:        api.IP,
		City:      api.City,
		Region:    api.Region,
		Country:   api.CountryName,
		Latitude:  api.Latitude,
		Longitude: api.Longitude,
	}, nil
}

func isPublic(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return !(parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified() ||
		parsed.IsLinkLocalUnicast() || parsed.IsLinkLocalMulticast())
}
