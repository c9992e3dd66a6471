package workflows

import (
	"context"
	"fmt"
	"time"
)

// SearchRequest is one web search.
type SearchRequest struct {
	Query      string
	NumResults int
}

// SearchResult is one hit. Field names match the record layout of
// search_results.
type SearchResult struct {
	Title       string  `json:"title" mapstructure:"title"`
	URL         string  `json:"url" mapstructure:"url"`
	Snippet     string  `json:"snippet" mapstructure:"snippet"`
	SourceType  string  `json:"source_type" mapstructure:"source_type"`
	Credibility float64 `json:"credibility" mapstructure:"credibility"`
}

// Map returns the result as a record value.
func (r SearchResult) Map() map[string]any {
	return map[string]any{
		"title":       r.Title,
		"url":         r.URL,
		"snippet":     r.Snippet,
		"source_type": r.SourceType,
		"credibility": r.Credibility,
	}
}

// Searcher runs web searches.
// Implementations must be safe for concurrent use.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) ([]SearchResult, error)
}

// SearchFunc adapts a function to the Searcher interface.
type SearchFunc func(ctx context.Context, req SearchRequest) ([]SearchResult, error)

// Search calls f.
func (f SearchFunc) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	return f(ctx, req)
}

// DefaultNumResults is used when a SearchRequest asks for zero results.
const DefaultNumResults = 5

// SimulatedSearcher returns five canned sources built from the query, after
// an optional delay that honours cancellation.
type SimulatedSearcher struct {
	Latency time.Duration
}

// Search implements Searcher.
func (s SimulatedSearcher) Search(ctx context.Context, req SearchRequest) ([]SearchResult, error) {
	if s.Latency > 0 {
		timer := time.NewTimer(s.Latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("search %q: %w", req.Query, ctx.Err())
		}
	} else if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("search %q: %w", req.Query, err)
	}

	q := req.Query
	all := []SearchResult{
		{
			Title:       "Research on " + q + ": Academic Perspective",
			URL:         "https://academic-source.edu/research",
			Snippet:     "Recent studies on " + q + " show significant developments across several aspects of the field.",
			SourceType:  "academic",
			Credibility: 0.9,
		},
		{
			Title:       q + ": Industry Report 2024",
			URL:         "https://industry-report.com/analysis",
			Snippet:     "Industry analysis of " + q + " covers current trends, market data and growth projections.",
			SourceType:  "industry",
			Credibility: 0.8,
		},
		{
			Title:       "Expert Opinion: Understanding " + q,
			URL:         "https://expert-blog.com/opinion",
			Snippet:     "Practitioners discuss the implications of " + q + " and where best practice is heading.",
			SourceType:  "expert_opinion",
			Credibility: 0.7,
		},
		{
			Title:       "Case Study: " + q + " Implementation",
			URL:         "https://case-study.org/implementation",
			Snippet:     "A real-world implementation of " + q + " strategies and the outcomes measured.",
			SourceType:  "case_study",
			Credibility: 0.8,
		},
		{
			Title:       "News: Latest Developments in " + q,
			URL:         "https://news-source.com/latest",
			Snippet:     "Recent events related to " + q + " and their likely impact.",
			SourceType:  "news",
			Credibility: 0.6,
		},
	}

	n := req.NumResults
	if n <= 0 {
		n = DefaultNumResults
	}
	return all[:min(n, len(all))], nil
}
