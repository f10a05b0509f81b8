package bridge

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mutelink/mutelink/internal/models"
)

var meetCode = regexp.MustCompile(`^/([a-z]{3}-[a-z]{4}-[a-z]{3})(/|$)`)

var teamsHosts = []string{"teams.microsoft.com", "teams.live.com", "teams.cloud.microsoft"}

// RecognizePlatform maps a tab URL to the call platform it belongs to.
func RecognizePlatform(raw string) models.Platform {
	platform, _ := RecognizeCall(raw)
	return platform
}

// RecognizeCall maps a tab URL to its call platform and a key naming the
// meeting. Meet only counts when the path is a meeting code, and the code is
// the key. Teams counts on any page of its hosts since calls run inside the
// main app, whose URLs change during a call; its key is the host.
func RecognizeCall(raw string) (models.Platform, string) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "https" {
		return models.PlatformUnknown, ""
	}
	host := strings.ToLower(u.Hostname())

	if host == "meet.google.com" {
		if m := meetCode.FindStringSubmatch(u.Path); m != nil {
			return models.PlatformMeet, m[1]
		}
	}
	if isTeamsHost(host) {
		return models.PlatformTeams, host
	}
	return models.PlatformUnknown, ""
}

func isTeamsHost(host string) bool {
	for _, h := range teamsHosts {
		if host == h {
			return true
		}
	}
	return false
}
