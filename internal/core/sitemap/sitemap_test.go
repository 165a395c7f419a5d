package sitemap

import (
	"bytes"
	"strings"
	"testing"

	"sitemapper/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rec(url string, depth int, parent string) store.PageRecord {
	return store.PageRecord{ID: url, URL: url, Depth: depth, ParentURL: parent, Title: url, StatusCode: 200}
}

func urls(nodes []*Node) []string {
	var out []string
	for _, n := range nodes {
		out = append(out, n.URL)
	}
	return out
}

func countNodes(n *Node) int {
	c := 0
	Walk(n, func(*Node, *Node) { c++ })
	return c
}

func TestBuildChain(t *testing.T) {
	root := Build([]store.PageRecord{
		rec("https://a.com/", 0, ""),
		rec("https://a.com/a", 1, "https://a.com/"),
		rec("https://a.com/a/b", 2, "https://a.com/a"),
	})
	require.Equal(t, "https://a.com/", root.URL)
	require.Len(t, root.Children, 1)
	a := root.Children[0]
	assert.Equal(t, "https://a.com/a", a.URL)
	require.Len(t, a.Children, 1)
	assert.Equal(t, "https://a.com/a/b", a.Children[0].URL)
	assert.Empty(t, a.Children[0].Children)
}

func TestBuildKeepsOrphans(t *testing.T) {
	root := Build([]store.PageRecord{
		rec("https://a.com/", 0, ""),
		rec("https://a.com/x", 1, "https://a.com/"),
		rec("https://a.com/lost", 2, "https://a.com/failed"),
	})
	assert.True(t, root.Virtual())
	assert.Equal(t, []string{"https://a.com/", "https://a.com/lost"}, urls(root.Children))
	assert.Equal(t, 4, countNodes(root))
}

func TestBuildMultipleRoots(t *testing.T) {
	root := Build([]store.PageRecord{
		rec("https://a.com/docs", 0, ""),
		rec("https://a.com/blog", 0, ""),
		rec("https://a.com/blog/post", 1, "https://a.com/blog"),
	})
	assert.Equal(t, "", root.URL)
	assert.Equal(t, "Sitemap", root.Title)
	assert.Equal(t, -1, root.Depth)
	assert.Equal(t, 0, root.Status)
	assert.Equal(t, []string{"https://a.com/docs", "https://a.com/blog"}, urls(root.Children))
	assert.Equal(t, []string{"https://a.com/blog/post"}, urls(root.Children[1].Children))
}

func TestBuildEmpty(t *testing.T) {
	root := Build(nil)
	assert.True(t, root.Virtual())
	assert.Empty(t, root.Children)
}

func TestBuildBreaksCycles(t *testing.T) {
	root := Build([]store.PageRecord{
		rec("https://a.com/p", 1, "https://a.com/q"),
		rec("https://a.com/q", 1, "https://a.com/p"),
		rec("https://a.com/self", 0, "https://a.com/self"),
	})
	assert.Equal(t, 4, countNodes(root))
	assert.Equal(t, []string{"https://a.com/q", "https://a.com/self"}, urls(root.Children))
	assert.Equal(t, []string{"https://a.com/p"}, urls(root.Children[0].Children))
}

func TestBuildDuplicateURLs(t *testing.T) {
	root := Build([]store.PageRecord{
		rec("https://a.com/", 0, ""),
		rec("https://a.com/x", 1, "https://a.com/"),
		rec("https://a.com/x", 1, "https://a.com/"),
		rec("https://a.com/x/y", 2, "https://a.com/x"),
	})
	require.Len(t, root.Children, 2)
	assert.Equal(t, []string{"https://a.com/x/y"}, urls(root.Children[0].Children))
	assert.Empty(t, root.Children[1].Children)
	assert.Equal(t, 4, countNodes(root))
}

func TestRootCandidate(t *testing.T) {
	assert.Equal(t, -1, RootCandidate(nil))
	assert.Equal(t, 1, RootCandidate([]store.PageRecord{
		rec("https://a.com/#/home", 0, ""),
		rec("https://a.com/", 0, ""),
	}))
	assert.Equal(t, 0, RootCandidate([]store.PageRecord{rec("https://a.com/docs", 0, "")}))
}

func TestFlattenAndSummarize(t *testing.T) {
	records := []store.PageRecord{
		rec("https://a.com/", 0, ""),
		rec("https://a.com/a", 1, "https://a.com/"),
		rec("https://a.com/a/b", 2, "https://a.com/a"),
		{URL: "https://a.com/down", Depth: 1, ParentURL: "https://a.com/", Title: "Error: Timeout", StatusCode: 408},
	}
	root := Build(records)
	entries := Flatten(root)
	require.Len(t, entries, 4)
	assert.Equal(t, Entry{URL: "https://a.com/a/b", Title: "https://a.com/a/b", Depth: 2, ParentURL: "https://a.com/a"}, entries[2])
	assert.Empty(t, entries[0].ParentURL)

	assert.Equal(t, Stats{Pages: 4, MaxDepth: 2, Leaves: 2, Failed: 1}, Summarize(root))
}

func TestCompress(t *testing.T) {
	records := []store.PageRecord{{URL: "https://a.com/", Title: "Home", StatusCode: 200}}
	for _, p := range []string{"a", "b", "c", "d"} {
		records = append(records, store.PageRecord{URL: "https://a.com/#/" + p, Depth: 1, ParentURL: "https://a.com/", Title: strings.ToUpper(p), StatusCode: 200})
	}
	records = append(records, store.PageRecord{URL: "https://a.com/#/a/deep", Depth: 2, ParentURL: "https://a.com/#/a", Title: "Deep", StatusCode: 404})

	out := Compress(Build(records), CompressOptions{MaxSiblings: 2})
	assert.Equal(t, `/ "Home"
  #/a "A"
    #/a/deep "Deep" [404]
  #/b "B"
  (+2 more)
`, out)

	shallow := Compress(Build(records), CompressOptions{MaxDepth: 1})
	assert.Contains(t, shallow, "    (+1 below)\n")
	assert.NotContains(t, shallow, "Deep")
}

func TestWriteXML(t *testing.T) {
	records := []store.PageRecord{
		rec("https://a.com/", 0, ""),
		rec("https://a.com/a?x=<1>", 1, "https://a.com/"),
		{URL: "https://a.com/slow", Depth: 1, StatusCode: 408},
		rec("https://a.com/a/b/c/d/e/f", 6, ""),
	}
	var buf bytes.Buffer
	require.NoError(t, WriteXML(&buf, records))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(t, out, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">`)
	assert.Contains(t, out, "<loc>https://a.com/a?x=&lt;1&gt;</loc>")
	assert.Contains(t, out, "<priority>1.0</priority>")
	assert.Contains(t, out, "<priority>0.1</priority>")
	assert.NotContains(t, out, "slow")
	assert.Equal(t, 3, strings.Count(out, "<url>"))
}
