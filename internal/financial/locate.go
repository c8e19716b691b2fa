package financial

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

// irURLMarkers are path fragments that mark a PDF link as IR material.
var irURLMarkers = []string{
	"ir", "investor", "finance", "report", "settlement",
	"yuuka", "kessan", "earnings", "financial", "disclosure",
}

// titleKeywords earn a relevance bonus when present in a result title.
var titleKeywords = []string{"決算", "ir", "investor", "financial"}

// Locator finds IR document PDFs through staged web searches.
type Locator struct {
	search          serpapi.Client
	resultsPerQuery int
	now             func() time.Time
}

// NewLocator creates a Locator. A nil search client is allowed and makes
// every Locate call report no document without touching the network.
func NewLocator(search serpapi.Client, resultsPerQuery int) *Locator {
	if resultsPerQuery <= 0 {
		resultsPerQuery = 15
	}
	return &Locator{search: search, resultsPerQuery: resultsPerQuery, now: time.Now}
}

// Locate runs the staged query plan for a company and returns the best
// scoring IR PDF candidate, or nil when no query produced one. Search
// failures on individual queries are logged and skipped; the overall
// call only errors on context cancellation.
func (l *Locator) Locate(ctx context.Context, companyName string) (*model.DocumentCandidate, error) {
	if l.search == nil {
		zap.L().Debug("document search disabled, no search client")
		return nil, nil
	}

	queries := l.buildQueries(companyName)
	year := l.now().Year()

	for i, q := range queries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := l.search.Search(ctx, q, serpapi.WithNum(l.resultsPerQuery))
		if err != nil {
			zap.L().Warn("document search query failed",
				zap.Int("query_index", i),
				zap.Error(err))
			continue
		}

		candidates := scoreCandidates(resp.OrganicResults, companyName, year)
		if len(candidates) == 0 {
			continue
		}

		sort.SliceStable(candidates, func(a, b int) bool {
			return candidates[a].Score > candidates[b].Score
		})
		best := candidates[0]
		zap.L().Info("ir document located",
			zap.String("company", companyName),
			zap.String("url", best.URL),
			zap.Int("score", best.Score),
			zap.Int("query_index", i))
		return &best, nil
	}

	zap.L().Info("no ir document found", zap.String("company", companyName))
	return nil, nil
}

// buildQueries assembles the basic query set followed by enhanced queries
// over each name variant.
func (l *Locator) buildQueries(companyName string) []string {
	year := l.now().Year()

	queries := []string{
		companyName + " 決算説明資料 pdf",
		companyName + " 決算短信 pdf",
		companyName + " 有価証券報告書 pdf",
		companyName + " 統合報告書 pdf",
		companyName + " IR 資料 pdf",
		companyName + " annual report pdf",
	}

	variants := []string{companyName}
	if strings.Contains(companyName, "株式会社") {
		variants = append(variants, strings.ReplaceAll(companyName, "株式会社", ""))
	}
	if strings.Contains(companyName, "ホールディングス") {
		variants = append(variants,
			strings.ReplaceAll(companyName, "ホールディングス", "HD"),
			strings.ReplaceAll(companyName, "ホールディングス", ""))
	}

	for _, v := range variants {
		bare := strings.ReplaceAll(strings.ReplaceAll(strings.ToLower(v), " ", ""), "株式会社", "")
		queries = append(queries,
			fmt.Sprintf("site:ir.%s.co.jp filetype:pdf", bare),
			fmt.Sprintf("%s \"investor relations\" pdf %d", v, year),
			fmt.Sprintf("%s \"決算\" pdf %d", v, year),
			fmt.Sprintf("%s \"財務情報\" pdf", v),
			fmt.Sprintf("%s \"業績\" pdf site:co.jp", v),
		)
	}

	return queries
}

// scoreCandidates filters one query's results down to IR PDFs and scores
// their relevance.
func scoreCandidates(results []serpapi.OrganicResult, companyName string, year int) []model.DocumentCandidate {
	bareName := strings.ReplaceAll(companyName, "株式会社", "")

	var out []model.DocumentCandidate
	for _, r := range results {
		if !isIRPDF(r.Link) {
			continue
		}

		score := 0
		if strings.Contains(r.Title, bareName) {
			score += 10
		}
		lowerTitle := strings.ToLower(r.Title)
		for _, kw := range titleKeywords {
			if strings.Contains(lowerTitle, kw) {
				score += 5
				break
			}
		}
		if strings.Contains(r.Title, strconv.Itoa(year)) ||
			strings.Contains(r.Title, strconv.Itoa(year-1)) {
			score += 3
		}

		out = append(out, model.DocumentCandidate{URL: r.Link, Title: r.Title, Score: score})
	}
	return out
}

// isIRPDF reports whether a link is a PDF whose URL carries an IR marker.
func isIRPDF(link string) bool {
	lowered := strings.ToLower(link)
	if !strings.HasSuffix(lowered, ".pdf") {
		return false
	}
	for _, marker := range irURLMarkers {
		if strings.Contains(lowered, marker) {
			return true
		}
	}
	return false
}
