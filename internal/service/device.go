package service

import (
	"strings"

	"github.com/mssola/useragent"
)

const (
	DeviceDesktop = "Desktop"
	DeviceMobile  = "Mobile"
	DeviceTablet  = "Tablet"
	DeviceBot     = "Bot"
)

// DeviceInfo is the device signature stored on each dispatch record.
type DeviceInfo struct {
	DeviceType string
	Browser    string // name_version, e.g. Chrome_120.0.0.0
}

// ParseDevice derives the device type and browser from a User-Agent header.
// Unrecognized agents report a desktop device and an empty browser.
func ParseDevice(userAgent string) DeviceInfo {
	info := DeviceInfo{DeviceType: DeviceDesktop}
	if strings.TrimSpace(userAgent) == "" {
		return info
	}

	ua := useragent.New(userAgent)
	switch {
	case ua.Bot():
		info.DeviceType = DeviceBot
	case isTablet(ua, userAgent):
		info.DeviceType = DeviceTablet
	case ua.Mobile():
		info.DeviceType = DeviceMobile
	}

	if name, version := ua.Browser(); name != "" {
		info.Browser = name + "_" + version
	}
	return info
}

func isTablet(ua *useragent.UserAgent, raw string) bool {
	if ua.Platform() == "iPad" {
		return true
	}
	// Android tablets omit the "Mobile" token.
	return strings.Contains(ua.OS(), "Android") && !strings.Contains(raw, "Mobile")
}
