// Package device derives a human-readable device label from a User-Agent for
// audit logging.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// Label returns "<browser> on <os>", "bot" for crawlers, or "unknown".
func Label(userAgent string) string {
	if strings.TrimSpace(userAgent) == "" {
		return "unknown"
	}
	ua := useragent.New(userAgent)
	if ua.Bot() {
		return "bot"
	}

	browser, _ := ua.Browser()
	osName := ua.OSInfo().Name
	switch {
	case browser != "" && osName != "":
		return browser + " on " + osName
	case browser != "":
		return browser
	case osName != "":
		return osName
	}
	return "unknown"
}
