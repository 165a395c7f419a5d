package fetch

import "strings"

// challengeMarkers are lower-case substrings seen on bot-protection
// interstitials (Cloudflare, Akamai, DataDome, PerimeterX, Sucuri).
var challengeMarkers = []string{
	"just a moment",
	"checking your browser",
	"attention required",
	"verify you are human",
	"verifying you are human",
	"cf-browser-verification",
	"cf-challenge",
	"challenge-platform",
	"ddos protection by",
	"please enable javascript and cookies",
	"press & hold",
	"px-captcha",
	"captcha-delivery",
	"sucuri website firewall",
}

// IsChallenge reports whether a title or body looks like a bot challenge
// page rather than site content.
func IsChallenge(title, body string) bool {
	t := strings.ToLower(title)
	b := strings.ToLower(body)
	for _, m := range challengeMarkers {
		if strings.Contains(t, m) || strings.Contains(b, m) {
			return true
		}
	}
	if strings.Contains(b, "cloudflare") && strings.Contains(b, "ray id") {
		return true
	}
	return false
}
