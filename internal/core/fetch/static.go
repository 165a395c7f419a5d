package fetch

import (
	"context"
	"errors"
	"strings"
	"time"

	"sitemapper/internal/logger"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly"
)

// StaticOptions configure plain HTTP fetching.
type StaticOptions struct {
	UserAgent string
	Timeout   time.Duration
}

// StaticFetcher fetches pages over plain HTTP without running scripts. It
// is used for crawls that opt out of rendering, and only sees server-side
// links.
type StaticFetcher struct {
	opts StaticOptions
	log  *logger.Logger
}

func NewStatic(opts StaticOptions) *StaticFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 15 * time.Second
	}
	return &StaticFetcher{opts: opts, log: logger.New("StaticFetcher")}
}

func (f *StaticFetcher) WithLogger(l *logger.Logger) *StaticFetcher {
	f.log = l
	return f
}

// Fetch issues one GET for url. Error responses (4xx/5xx) are results
// carrying their status, like the rendered path; transport failures are
// *FetchError.
func (f *StaticFetcher) Fetch(ctx context.Context, url string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c := colly.NewCollector(colly.AllowURLRevisit())
	if f.opts.UserAgent != "" {
		c.UserAgent = f.opts.UserAgent
	}
	c.SetRequestTimeout(f.opts.Timeout)

	var (
		status int
		final  = url
		body   []byte
		reqErr error
	)
	c.OnRequest(func(r *colly.Request) {
		if ctx.Err() != nil {
			r.Abort()
		}
	})
	c.OnResponse(func(r *colly.Response) {
		status = r.StatusCode
		final = r.Request.URL.String()
		body = r.Body
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil && r.StatusCode > 0 {
			status = r.StatusCode
			final = r.Request.URL.String()
			body = r.Body
			return
		}
		reqErr = err
	})

	visitErr := c.Visit(url)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if reqErr == nil && status == 0 {
		reqErr = visitErr
	}
	if reqErr != nil {
		kind := KindNavigation
		var te interface{ Timeout() bool }
		if errors.As(reqErr, &te) && te.Timeout() {
			kind = KindTimeout
		}
		return nil, &FetchError{Kind: kind, URL: url, Err: reqErr}
	}

	html := string(body)
	docTitle, text := "", ""
	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		docTitle = doc.Find("title").First().Text()
		text = doc.Find("body").Text()
	}
	if IsChallenge(docTitle, text) {
		return nil, &FetchError{Kind: KindBlocked, URL: url, Err: errors.New("bot challenge served to static fetch")}
	}

	res := &Result{
		URL:        url,
		FinalURL:   final,
		Title:      ResolveTitle(docTitle, html, final),
		StatusCode: status,
		Links:      AnchorsFromHTML(html, final),
	}
	f.log.Debug().Str("url", url).Int("status", status).Int("links", len(res.Links)).Msg("fetched static")
	return res, nil
}
