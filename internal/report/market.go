package report

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/pkg/anthropic"
	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

// marketSnippetTarget is how many titled snippets one market search
// aims to collect before stopping.
const marketSnippetTarget = 5

// fallbackIndustries maps an industry label to job-posting keywords that
// imply it. Used when the LLM is unavailable or fails.
var fallbackIndustries = []struct {
	industry string
	keywords []string
}{
	{"防衛産業", []string{"防衛", "レーダー", "ミサイル", "衛星", "航空宇宙"}},
	{"自動車産業", []string{"自動車", "EV", "ADAS", "電動化", "モビリティ"}},
	{"製薬産業", []string{"製薬", "医薬品", "創薬", "バイオ"}},
	{"金融業界", []string{"金融", "銀行", "保険", "フィンテック"}},
	{"IT業界", []string{"IT", "ソフトウェア", "システム開発", "SaaS"}},
	{"製造業", []string{"製造", "工場", "生産", "FA"}},
}

// defaultIndustryKeyword is the last-resort search keyword.
const defaultIndustryKeyword = "市場動向"

// MarketResearcher derives an industry keyword from a job posting and
// collects market-size and trend snippets for it.
type MarketResearcher struct {
	search serpapi.Client
	llm    anthropic.Client
	model  string
	now    func() time.Time
}

// NewMarketResearcher creates a MarketResearcher. Either client may be
// nil: a nil LLM falls back to keyword matching and a nil search client
// yields a skip notice instead of market data.
func NewMarketResearcher(search serpapi.Client, llm anthropic.Client, model string) *MarketResearcher {
	return &MarketResearcher{search: search, llm: llm, model: model, now: time.Now}
}

// ExtractIndustryKeyword classifies the job posting into one industry
// label. The LLM gets a fixed menu; anything going wrong degrades to
// keyword matching over the posting text.
func (m *MarketResearcher) ExtractIndustryKeyword(ctx context.Context, jobInfo string) string {
	if m.llm == nil {
		return fallbackIndustryKeyword(jobInfo)
	}

	temp := 0.3
	resp, err := m.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       m.model,
		MaxTokens:   50,
		Temperature: &temp,
		Messages:    []anthropic.Message{{Role: "user", Content: buildIndustryPrompt(jobInfo)}},
	})
	if err != nil {
		zap.L().Warn("industry classification failed, using keyword fallback", zap.Error(err))
		return fallbackIndustryKeyword(jobInfo)
	}
	resp.Usage.LogCost(m.model, "industry_classification")

	industry := strings.TrimSpace(resp.Text())
	if industry == "" {
		return defaultIndustryKeyword
	}
	zap.L().Info("industry classified", zap.String("industry", industry))
	return industry
}

// fallbackIndustryKeyword matches posting text against the static tables.
func fallbackIndustryKeyword(jobInfo string) string {
	for _, entry := range fallbackIndustries {
		for _, kw := range entry.keywords {
			if strings.Contains(jobInfo, kw) {
				return entry.industry
			}
		}
	}
	return defaultIndustryKeyword
}

// SearchMarketData collects titled snippets about the industry's market
// size, growth and trends. Queries are tried in order until enough
// snippets accumulate; per-query failures are skipped.
func (m *MarketResearcher) SearchMarketData(ctx context.Context, industryKeyword string) string {
	if m.search == nil {
		return "検索プロバイダ未設定のため業界データ取得をスキップしました。"
	}

	year := m.now().Year()
	queries := []string{
		fmt.Sprintf("%s 市場規模 %d 日本", industryKeyword, year),
		fmt.Sprintf("%s 成長率 %d", industryKeyword, year),
		fmt.Sprintf("%s トレンド %d", industryKeyword, year),
	}

	var snippets []string
	for _, q := range queries {
		resp, err := m.search.Search(ctx, q, serpapi.WithNum(marketSnippetTarget))
		if err != nil {
			zap.L().Warn("market data search failed",
				zap.String("query", q),
				zap.Error(err))
			continue
		}

		for i, r := range resp.OrganicResults {
			if i >= marketSnippetTarget {
				break
			}
			if r.Snippet == "" {
				continue
			}
			snippets = append(snippets, "【"+r.Title+"】\n"+r.Snippet)
		}
		if len(snippets) >= marketSnippetTarget {
			break
		}
	}

	if len(snippets) == 0 {
		return "業界データが見つかりませんでした。"
	}
	return strings.Join(snippets, "\n\n")
}

// buildIndustryPrompt builds the single-choice industry menu prompt.
func buildIndustryPrompt(jobInfo string) string {
	return `以下の求人情報から、該当する業界を1つだけ選んで業界名のみを回答してください。
選択肢以外の回答は絶対にしないでください。

【選択肢】
- 防衛産業
- 自動車産業
- 製薬産業
- 金融業界
- IT業界
- 製造業
- 不動産業界
- 小売業界
- エネルギー業界
- 食品業界
- 物流業界
- 建設業界
- メディア業界
- その他

【求人情報】
` + truncateRunes(jobInfo, 800) + `

【回答形式】業界名のみ(例: 自動車産業)`
}

// truncateRunes cuts s to at most n runes.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
