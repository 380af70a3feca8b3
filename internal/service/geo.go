package service

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/domain"
	"github.com/timmy/panelgate/internal/logger"
)

// GeoLocator resolves an IP address to an ISO 3166-1 alpha-2 country code.
type GeoLocator interface {
	Country(ctx context.Context, ip string) (string, error)
}

// NewGeoLocator builds the locator selected by cfg.Provider.
func NewGeoLocator(cfg config.GeoConfig) (GeoLocator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "ipapi":
		return NewIPAPILocator(cfg.BaseURL, cfg.Token, cfg.Timeout), nil
	case "ipinfo":
		return NewIPInfoLocator(cfg.BaseURL, cfg.Token, cfg.Timeout), nil
	case "none":
		return noopLocator{}, nil
	default:
		return nil, fmt.Errorf("unsupported geo provider: %s", cfg.Provider)
	}
}

// IPAPILocator queries ipapi.co style endpoints: GET {base}/{ip}/json/.
type IPAPILocator struct {
	client *resty.Client
	token  string
}

// NewIPAPILocator creates a locator against baseURL.
func NewIPAPILocator(baseURL, token string, timeout time.Duration) *IPAPILocator {
	if baseURL == "" {
		baseURL = "https://ipapi.co"
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &IPAPILocator{client: client, token: token}
}

type ipapiResponse struct {
	CountryCode string `json:"country_code"`
	Error       bool   `json:"error"`
	Reason      string `json:"reason"`
}

// Country implements GeoLocator.
func (l *IPAPILocator) Country(ctx context.Context, ip string) (string, error) {
	var resp ipapiResponse
	req := l.client.R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetResult(&resp)
	if l.token != "" {
		req.SetQueryParam("key", l.token)
	}

	httpResp, err := req.Get("/{ip}/json/")
	if err != nil {
		return "", fmt.Errorf("%w: geo lookup: %v", domain.ErrUpstreamUnavailable, err)
	}
	if httpResp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: geo lookup: status %d", domain.ErrUpstreamUnavailable, httpResp.StatusCode())
	}
	if resp.Error {
		return "", fmt.Errorf("%w: geo lookup: %s", domain.ErrUpstreamUnavailable, resp.Reason)
	}
	return strings.ToUpper(resp.CountryCode), nil
}

// IPInfoLocator queries ipinfo.io style endpoints: GET {base}/{ip}?token=.
type IPInfoLocator struct {
	client *resty.Client
	token  string
}

// NewIPInfoLocator creates a locator against baseURL.
func NewIPInfoLocator(baseURL, token string, timeout time.Duration) *IPInfoLocator {
	if baseURL == "" {
		baseURL = "https://ipinfo.io"
	}
	client := resty.New().
		SetBaseURL(strings.TrimSuffix(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &IPInfoLocator{client: client, token: token}
}

type ipinfoResponse struct {
	Country string `json:"country"`
	Bogon   bool   `json:"bogon"`
}

// Country implements GeoLocator.
func (l *IPInfoLocator) Country(ctx context.Context, ip string) (string, error) {
	var resp ipinfoResponse
	req := l.client.R().
		SetContext(ctx).
		SetPathParam("ip", ip).
		SetResult(&resp)
	if l.token != "" {
		req.SetQueryParam("token", l.token)
	}

	httpResp, err := req.Get("/{ip}")
	if err != nil {
		return "", fmt.Errorf("%w: geo lookup: %v", domain.ErrUpstreamUnavailable, err)
	}
	if httpResp.StatusCode() != 200 {
		return "", fmt.Errorf("%w: geo lookup: status %d", domain.ErrUpstreamUnavailable, httpResp.StatusCode())
	}
	if resp.Bogon {
		return "", nil
	}
	return strings.ToUpper(resp.Country), nil
}

type noopLocator struct{}

func (noopLocator) Country(context.Context, string) (string, error) { return "", nil }

// ResolveCountry looks up ip with a bounded timeout. Any failure resolves to
// "" so a slow or broken provider never fails the dispatch.
func ResolveCountry(ctx context.Context, locator GeoLocator, ip string, timeout time.Duration) string {
	if locator == nil || net.ParseIP(ip) == nil {
		return ""
	}

	lookupCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	country, err := locator.Country(lookupCtx, ip)
	if err != nil {
		logger.With(logger.Fields{
			logger.FieldClientIP: ip,
		}).WithDuration(time.Since(start)).Warn(ctx, "Geo lookup failed, continuing with unknown country: %v", err)
		return ""
	}
	return country
}
