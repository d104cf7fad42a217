package models

import (
	"strings"

	"github.com/mssola/useragent"
)

const unknownDevice = "Unknown Device"

// DescribeDevice renders a user agent as "<browser> on <os>" for reviewers.
func DescribeDevice(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return unknownDevice
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		name, _ := ua.Browser()
		return strings.TrimSpace("Bot " + name)
	}

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "Unknown Browser"
	}
	where := ua.OSInfo().Name
	if ua.Mobile() || where == "" {
		where = ua.Platform()
	}
	if where == "" {
		where = "Unknown OS"
	}
	return browser + " on " + where
}
