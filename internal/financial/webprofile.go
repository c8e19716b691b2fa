package financial

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

// profileResultLimit caps how many snippets one profile search keeps.
const profileResultLimit = 10

// ProfileFetcher collects general company information from web search
// snippets. It backs the fallback path when no IR document survives
// location, download and verification.
type ProfileFetcher struct {
	search serpapi.Client
}

// NewProfileFetcher creates a ProfileFetcher. A nil search client makes
// every fetch return empty without touching the network.
func NewProfileFetcher(search serpapi.Client) *ProfileFetcher {
	return &ProfileFetcher{search: search}
}

// profileQueries are tried in order; the chain stops at the first query
// that yields any snippets.
func profileQueries(companyName string) []string {
	return []string{
		companyName + " 会社概要 事業内容",
		companyName + " 企業情報 売上",
		companyName + " ビジネス 事業",
	}
}

// Fetch runs one search and aggregates the snippets of its organic
// results into titled source blocks. It returns "" on any failure so the
// caller can move on to the next query.
func (f *ProfileFetcher) Fetch(ctx context.Context, query string) string {
	if f.search == nil {
		return ""
	}

	resp, err := f.search.Search(ctx, query, serpapi.WithNum(profileResultLimit))
	if err != nil {
		zap.L().Warn("web profile search failed",
			zap.String("query", query),
			zap.Error(err))
		return ""
	}

	var blocks []string
	for i, r := range resp.OrganicResults {
		if i >= profileResultLimit {
			break
		}
		if r.Snippet == "" {
			continue
		}
		blocks = append(blocks, fmt.Sprintf("【%s】\n%s\n出典: %s", r.Title, r.Snippet, r.Link))
	}

	return strings.Join(blocks, "\n\n")
}
