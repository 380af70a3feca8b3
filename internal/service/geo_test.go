package service

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/panelgate/internal/config"
	"github.com/timmy/panelgate/internal/domain"
)

func TestIPAPILocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/8.8.8.8/json/":
			assert.Equal(t, "secret", r.URL.Query().Get("key"))
			_, _ = w.Write([]byte(`{"ip":"8.8.8.8","country_code":"us"}`))
		case "/10.0.0.1/json/":
			_, _ = w.Write([]byte(`{"ip":"10.0.0.1","error":true,"reason":"Reserved IP Address"}`))
		default:
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	loc := NewIPAPILocator(srv.URL, "secret", time.Second)

	country, err := loc.Country(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	assert.Equal(t, "US", country)

	_, err = loc.Country(context.Background(), "10.0.0.1")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)

	_, err = loc.Country(context.Background(), "1.2.3.4")
	assert.ErrorIs(t, err, domain.ErrUpstreamUnavailable)
}

func TestIPInfoLocator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/192.168.1.1" {
			_, _ = w.Write([]byte(`{"ip":"192.168.1.1","bogon":true}`))
			return
		}
		_, _ = w.Write([]byte(`{"ip":"1.1.1.1","country":"AU"}`))
	}))
	defer srv.Close()

	loc := NewIPInfoLocator(srv.URL, "", time.Second)

	country, err := loc.Country(context.Background(), "1.1.1.1")
	require.NoError(t, err)
	assert.Equal(t, "AU", country)

	country, err = loc.Country(context.Background(), "192.168.1.1")
	require.NoError(t, err)
	assert.Empty(t, country)
}

type slowLocator struct{ delay time.Duration }

func (l slowLocator) Country(ctx context.Context, _ string) (string, error) {
	select {
	case <-time.After(l.delay):
		return "US", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type brokenLocator struct{}

func (brokenLocator) Country(context.Context, string) (string, error) {
	return "", errors.New("connection refused")
}

func TestResolveCountry(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "US", ResolveCountry(ctx, slowLocator{}, "8.8.8.8", time.Second))

	start := time.Now()
	assert.Equal(t, "", ResolveCountry(ctx, slowLocator{delay: 5 * time.Second}, "8.8.8.8", 50*time.Millisecond))
	assert.Less(t, time.Since(start), 2*time.Second)

	assert.Equal(t, "", ResolveCountry(ctx, brokenLocator{}, "8.8.8.8", time.Second))
	assert.Equal(t, "", ResolveCountry(ctx, slowLocator{}, "not-an-ip", time.Second))
	assert.Equal(t, "", ResolveCountry(ctx, nil, "8.8.8.8", time.Second))
}

func TestNewGeoLocator(t *testing.T) {
	tests := []struct {
		provider string
		wantErr  bool
	}{
		{"", false},
		{"ipapi", false},
		{"ipinfo", false},
		{"none", false},
		{"maxmind", true},
	}
	for _, tt := range tests {
		t.Run(tt.provider, func(t *testing.T) {
			loc, err := NewGeoLocator(config.GeoConfig{Provider: tt.provider, Timeout: time.Second})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, loc)
		})
	}
}
