package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileHeaders(t *testing.T) {
	p := Profile("chrome-windows")
	h := p.Headers()
	assert.Equal(t, `"Windows"`, h["Sec-Ch-Ua-Platform"])
	assert.Equal(t, "navigate", h["Sec-Fetch-Mode"])
	assert.Equal(t, "1", h["Upgrade-Insecure-Requests"])
}

func TestBotProfileOmitsClientHints(t *testing.T) {
	p := Profile("bot")
	assert.Contains(t, p.UserAgent, BotName)
	h := p.Headers()
	_, ok := h["Sec-Ch-Ua"]
	assert.False(t, ok)
	_, ok = h["Sec-Fetch-Dest"]
	assert.False(t, ok)
}

func TestUnknownProfileFallsBack(t *testing.T) {
	assert.Equal(t, desktopProfiles[0], Profile("netscape"))
	assert.NotEmpty(t, Profile("").UserAgent)
}
