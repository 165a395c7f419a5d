package urlnorm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"root without slash", "https://a.com", "https://a.com/"},
		{"root with slash", "https://a.com/", "https://a.com/"},
		{"query stripped", "https://a.com/x?y=1", "https://a.com/x"},
		{"trailing slash stripped", "https://a.com/docs/", "https://a.com/docs"},
		{"many trailing slashes", "https://a.com/docs///", "https://a.com/docs"},
		{"anchor stripped", "https://a.com/page#section", "https://a.com/page"},
		{"hash route kept", "https://a.com/#/products", "https://a.com/#/products"},
		{"hash route with query", "https://a.com/app?x=1#/users/2", "https://a.com/app#/users/2"},
		{"host lowercased", "HTTPS://A.COM/Path", "https://a.com/Path"},
		{"whitespace", "  https://a.com/x  ", "https://a.com/x"},
		{"empty query marker", "https://a.com/x?", "https://a.com/x"},
		{"stray percent", "https://a.com/sale/50%off", "https://a.com/sale/50%25off"},
		{"trailing percent", "https://a.com/100%", "https://a.com/100%25"},
		{"valid escape kept", "https://a.com/a%20b", "https://a.com/a%20b"},
		{"backslashes", `https://a.com\docs\intro`, "https://a.com/docs/intro"},
		{"embedded tab", "https://a.com/a\tb", "https://a.com/ab"},
		{"inner space", "https://a.com/a b", "https://a.com/a%20b"},
		{"default port dropped", "https://a.com:443/x", "https://a.com/x"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Normalize(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	inputs := []string{
		"https://a.com",
		"https://a.com/x/?q=1#frag",
		"https://www.a.com/#/products/",
		"http://a.com:8080/a%20b/",
		"https://a.com/#/",
		"https://a.com/path/#/nested/route?x",
		"https://a.com/sale/50%off",
		"https://a.com/a b/",
	}
	for _, in := range inputs {
		once, err := Normalize(in)
		require.NoError(t, err, in)
		twice, err := Normalize(once)
		require.NoError(t, err, once)
		assert.Equal(t, once, twice, "not idempotent for %q", in)
	}
}

func TestNormalizeQueryEquivalence(t *testing.T) {
	a, err := Normalize("https://a.com/x?y=1")
	require.NoError(t, err)
	b, err := Normalize("https://a.com/x")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestNormalizeHashPolicy(t *testing.T) {
	spa, err := Normalize("https://a.com/#/products")
	require.NoError(t, err)
	assert.Contains(t, spa, "#/products")

	anchor, err := Normalize("https://a.com/page#section")
	require.NoError(t, err)
	assert.NotContains(t, anchor, "#")
}

func TestNormalizeInvalid(t *testing.T) {
	for _, in := range []string{"", "   ", "://nope", "mailto:x@a.com", "javascript:void(0)", "ftp://a.com/file", "/relative/path", "http://"} {
		_, err := Normalize(in)
		assert.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalidURL), "expected ErrInvalidURL for %q, got %v", in, err)
	}
}

func TestSameDomain(t *testing.T) {
	assert.True(t, SameDomain("https://a.com", "https://www.a.com"))
	assert.True(t, SameDomain("https://www.a.com/x", "http://a.com/y"))
	assert.True(t, SameDomain("https://A.com", "https://a.com:8443"))
	assert.False(t, SameDomain("https://a.com", "https://b.com"))
	assert.False(t, SameDomain("https://blog.a.com", "https://a.com"))
	assert.False(t, SameDomain("", "https://a.com"))
}

func TestResolve(t *testing.T) {
	base := "https://a.com/docs/intro"

	got, err := Resolve(base, "guide")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/docs/guide", got)

	got, err = Resolve(base, "/pricing")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/pricing", got)

	got, err = Resolve(base, "#/settings")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/docs/intro#/settings", got)

	got, err = Resolve(base, "//cdn.a.com/x")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.a.com/x", got)

	got, err = Resolve("https://a.com/x/", "/sale/50%off")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/sale/50%25off", got)

	got, err = Resolve("https://a.com/x/", `\docs\intro`)
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/docs/intro", got)

	got, err = Resolve("https://a.com/x/", "/a\tb")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/ab", got)

	got, err = Resolve("https://a.com/x/", "  next page ")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com/x/next%20page", got)

	for _, href := range []string{"", "#", "javascript:void(0)", "mailto:me@a.com", "tel:+1555", "data:text/html,hi"} {
		_, err := Resolve(base, href)
		assert.ErrorIs(t, err, ErrInvalidURL, href)
	}
}

func TestEnsureSchemeAndParts(t *testing.T) {
	assert.Equal(t, "https://a.com", EnsureScheme("a.com"))
	assert.Equal(t, "http://a.com", EnsureScheme("http://a.com"))
	assert.Equal(t, "/", Path("https://a.com/"))
	assert.Equal(t, "/a/b", Path("https://a.com/a/b"))
	assert.Equal(t, "/products", Fragment("https://a.com/#/products"))
	assert.Equal(t, "a.com", Hostname("a.com/x"))
	assert.Equal(t, "/a b", Path("https://a.com/a%20b"))
	assert.Equal(t, "/50%off", Path("https://a.com/50%25off"))
	assert.Equal(t, "", Fragment("https://a.com/x"))
}
