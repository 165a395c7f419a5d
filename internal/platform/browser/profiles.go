package browser

import "math/rand"

// BotName is the product token matched against robots.txt groups.
const BotName = "SitemapperBot"

// HeaderProfile is a coherent set of request headers for one browser.
type HeaderProfile struct {
	Name            string
	UserAgent       string
	Accept          string
	AcceptLanguage  string
	SecFetchDest    string
	SecFetchMode    string
	SecFetchSite    string
	SecChUa         string
	SecChUaMobile   string
	SecChUaPlatform string
}

var desktopProfiles = []HeaderProfile{
	{
		Name:            "chrome-macos",
		UserAgent:       "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecFetchSite:    "none",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"macOS"`,
	},
	{
		Name:            "chrome-windows",
		UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36",
		Accept:          "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
		AcceptLanguage:  "en-US,en;q=0.9",
		SecFetchDest:    "document",
		SecFetchMode:    "navigate",
		SecFetchSite:    "none",
		SecChUa:         `"Google Chrome";v="131", "Chromium";v="131", "Not_A Brand";v="24"`,
		SecChUaMobile:   "?0",
		SecChUaPlatform: `"Windows"`,
	},
}

var botProfile = HeaderProfile{
	Name:           "bot",
	UserAgent:      "Mozilla/5.0 (compatible; " + BotName + "/1.0)",
	Accept:         "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	AcceptLanguage: "en-US,en;q=0.9",
}

// Profile returns the named profile. "desktop" (or "") picks a random
// desktop browser, "bot" identifies the crawler honestly.
func Profile(name string) HeaderProfile {
	switch name {
	case "bot":
		return botProfile
	case "", "desktop":
		return desktopProfiles[rand.Intn(len(desktopProfiles))]
	}
	for _, p := range desktopProfiles {
		if p.Name == name {
			return p
		}
	}
	return desktopProfiles[0]
}

// Headers returns the extra HTTP headers for a browser context.
func (p HeaderProfile) Headers() map[string]string {
	h := map[string]string{
		"Accept":                    p.Accept,
		"Accept-Language":           p.AcceptLanguage,
		"Upgrade-Insecure-Requests": "1",
	}
	if p.SecFetchDest != "" {
		h["Sec-Fetch-Dest"] = p.SecFetchDest
		h["Sec-Fetch-Mode"] = p.SecFetchMode
		h["Sec-Fetch-Site"] = p.SecFetchSite
	}
	if p.SecChUa != "" {
		h["Sec-Ch-Ua"] = p.SecChUa
		h["Sec-Ch-Ua-Mobile"] = p.SecChUaMobile
		h["Sec-Ch-Ua-Platform"] = p.SecChUaPlatform
	}
	return h
}
