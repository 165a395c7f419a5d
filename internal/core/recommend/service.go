// Package recommend asks a language model for structural improvements to a
// crawled sitemap. The model only ever sees the compressed tree.
package recommend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"sitemapper/internal/core/sitemap"
	"sitemapper/internal/logger"
	"sitemapper/internal/platform/eino"
	"sitemapper/prompts"
)

type Recommendation struct {
	Category    string `json:"category"`
	Before      string `json:"before"`
	After       string `json:"after"`
	Explanation string `json:"explanation"`
}

// Categories the model may use. Anything else is filed under "structure".
var Categories = []string{"structure", "navigation", "naming", "grouping", "depth"}

var ErrEmptySitemap = errors.New("sitemap has no pages")

type Options struct {
	Limit    int
	Compress sitemap.CompressOptions
}

type Service struct {
	llm     *eino.Service
	prompts *prompts.SystemPrompts
	opts    Options
	log     *logger.Logger
}

func NewService(llm *eino.Service, opts Options) *Service {
	if opts.Limit <= 0 {
		opts.Limit = 10
	}
	return &Service{llm: llm, prompts: prompts.NewSystemPrompts(), opts: opts, log: logger.New("Recommend")}
}

// Recommend returns at most Limit recommendations for the tree rooted at
// root. site is only used as context for the model.
func (s *Service) Recommend(ctx context.Context, site string, root *sitemap.Node) ([]Recommendation, *eino.TokenUsage, error) {
	stats := sitemap.Summarize(root)
	if stats.Pages == 0 {
		return nil, nil, ErrEmptySitemap
	}
	vars := map[string]any{
		"site":       site,
		"stats":      fmt.Sprintf("%d pages, max depth %d, %d leaves, %d failed", stats.Pages, stats.MaxDepth, stats.Leaves, stats.Failed),
		"outline":    sitemap.Compress(root, s.opts.Compress),
		"categories": strings.Join(Categories, ", "),
		"limit":      s.opts.Limit,
	}
	reply, usage, err := s.llm.Generate(ctx, s.prompts.Recommendations, vars)
	if err != nil {
		return nil, nil, err
	}
	recs, err := parseRecommendations(reply, s.opts.Limit)
	if err != nil {
		s.log.LogWarnf("Unusable recommendation reply for %s: %v", site, err)
		return nil, usage, err
	}
	s.log.LogInfof("Generated %d recommendations for %s", len(recs), site)
	return recs, usage, nil
}

func parseRecommendations(reply string, limit int) ([]Recommendation, error) {
	var raw []Recommendation
	if err := json.Unmarshal([]byte(eino.StripCodeFence(reply)), &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON response: %w", err)
	}
	out := make([]Recommendation, 0, len(raw))
	for _, r := range raw {
		r.Category = strings.ToLower(strings.TrimSpace(r.Category))
		if !known(r.Category) {
			r.Category = "structure"
		}
		if strings.TrimSpace(r.After) == "" {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func known(c string) bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}
