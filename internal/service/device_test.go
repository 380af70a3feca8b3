package service

import "testing"

func TestParseDevice(t *testing.T) {
	tests := []struct {
		name       string
		ua         string
		wantDevice string
		wantPrefix string
	}{
		{"empty", "", DeviceDesktop, ""},
		{"desktop chrome", chromeUA, DeviceDesktop, "Chrome_"},
		{
			"iphone safari",
			"Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.0 Mobile/15E148 Safari/604.1",
			DeviceMobile, "Safari_",
		},
		{
			"ipad",
			"Mozilla/5.0 (iPad; CPU OS 16_6 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.6 Mobile/15E148 Safari/604.1",
			DeviceTablet, "Safari_",
		},
		{
			"android phone",
			"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Mobile Safari/537.36",
			DeviceMobile, "Chrome_",
		},
		{"bot", "Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", DeviceBot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDevice(tt.ua)
			if got.DeviceType != tt.wantDevice {
				t.Errorf("DeviceType = %q, want %q", got.DeviceType, tt.wantDevice)
			}
			if tt.wantPrefix != "" && (len(got.Browser) < len(tt.wantPrefix) || got.Browser[:len(tt.wantPrefix)] != tt.wantPrefix) {
				t.Errorf("Browser = %q, want prefix %q", got.Browser, tt.wantPrefix)
			}
		})
	}
}
