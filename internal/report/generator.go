package report

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/pkg/anthropic"
)

// minDraftRunes guards against sending a degenerate draft into revision.
const minDraftRunes = 300

// Generator produces the recruitment strategy report in two LLM passes:
// a draft from the gathered inputs, then a review pass over the draft.
type Generator struct {
	llm          anthropic.Client
	model        string
	maxTokens    int64
	snippetChars int
	prompts      *Prompts
}

// NewGenerator creates a Generator.
func NewGenerator(llm anthropic.Client, model string, maxTokens int64, marketSnippetChars int, prompts *Prompts) *Generator {
	if maxTokens <= 0 {
		maxTokens = 16000
	}
	if marketSnippetChars <= 0 {
		marketSnippetChars = 2500
	}
	return &Generator{
		llm:          llm,
		model:        model,
		maxTokens:    maxTokens,
		snippetChars: marketSnippetChars,
		prompts:      prompts,
	}
}

// Input carries everything the draft pass needs. FinancialErr holds the
// already-sanitized failure notice when no record could be obtained.
type Input struct {
	CompanyName  string
	JobInfo      string
	Financials   *model.FinancialRecord
	FinancialErr string
	MarketData   string
}

// Generate runs both passes and returns the final report.
func (g *Generator) Generate(ctx context.Context, in Input) (string, error) {
	draft, err := g.Draft(ctx, in)
	if err != nil {
		return "", err
	}

	if utf8.RuneCountInString(draft) < minDraftRunes {
		return "", eris.Errorf("report: draft too short (%d runes), not sending to revision",
			utf8.RuneCountInString(draft))
	}

	return g.Revise(ctx, draft)
}

// Draft runs the first pass. The gathered data rides in the system
// prompt as a supplement, kept apart from the authored template, and the
// template's placeholders are filled with the same inputs.
func (g *Generator) Draft(ctx context.Context, in Input) (string, error) {
	userPrompt := g.buildDraftPrompt(in)
	systemSupplement := g.buildSystemSupplement(in)

	zap.L().Info("report draft request",
		zap.String("company", in.CompanyName),
		zap.Int("system_chars", len(systemSupplement)),
		zap.Int("user_chars", len(userPrompt)))

	resp, err := g.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    systemSupplement,
		Messages:  []anthropic.Message{{Role: "user", Content: userPrompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "report: draft generation")
	}
	resp.Usage.LogCost(g.model, "report_draft")

	return resp.Text(), nil
}

// Revise runs the review pass over a draft.
func (g *Generator) Revise(ctx context.Context, draft string) (string, error) {
	prompt := strings.ReplaceAll(g.prompts.Step2, "{step1_report}", draft)

	resp, err := g.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", eris.Wrap(err, "report: revision")
	}
	resp.Usage.LogCost(g.model, "report_revision")

	return resp.Text(), nil
}

// buildSystemSupplement renders the auto-gathered data block that rides
// in the system prompt.
func (g *Generator) buildSystemSupplement(in Input) string {
	var b strings.Builder
	b.WriteString("【自動取得データ】以下を分析の参考にしてください:\n\n")

	if in.Financials != nil {
		b.WriteString("■ 財務情報(IR資料より)\n")
		b.WriteString("- 売上高: " + orUnknown(in.Financials.Revenue) + "\n")
		b.WriteString("- 営業利益率: " + orUnknown(in.Financials.OperatingMargin) + "\n")
		b.WriteString("- 自己資本比率: " + orUnknown(in.Financials.EquityRatio) + "\n\n")
	} else {
		msg := in.FinancialErr
		if msg == "" {
			msg = "不明なエラー"
		}
		b.WriteString("■ 財務情報\n")
		b.WriteString("取得できませんでした(" + msg + ")\n\n")
	}

	b.WriteString("■ 業界動向(Web検索結果)\n")
	b.WriteString(truncateRunes(in.MarketData, g.snippetChars))
	b.WriteString("\n\n")

	return b.String()
}

// buildDraftPrompt fills the step1 template placeholders and appends the
// fixed output requirements block.
func (g *Generator) buildDraftPrompt(in Input) string {
	prompt := strings.ReplaceAll(g.prompts.Step1, "{company_name}", in.CompanyName)
	prompt = strings.ReplaceAll(prompt, "{job_info}", in.JobInfo)
	prompt = strings.ReplaceAll(prompt, "{financials}", renderFinancials(in))
	prompt = strings.ReplaceAll(prompt, "{market_data}", in.MarketData)
	return prompt + outputRequirements()
}

// renderFinancials flattens the record into bullet lines for the
// template, or a single error line when there is no record.
func renderFinancials(in Input) string {
	if in.Financials == nil {
		msg := in.FinancialErr
		if msg == "" {
			msg = "不明なエラー"
		}
		return "- error: " + msg
	}

	fields := in.Financials.Fields()
	lines := make([]string, 0, len(fields))
	for _, f := range fields {
		lines = append(lines, "- "+f.Key+": "+f.Value)
	}
	return strings.Join(lines, "\n")
}

func orUnknown(v string) string {
	if v == "" {
		return "不明"
	}
	return v
}

// outputRequirements is appended to every draft prompt to pin length,
// specificity and formatting expectations.
func outputRequirements() string {
	sep := strings.Repeat("=", 80)
	return "\n\n" + sep + "\n" +
		"【重要な出力要件 - 必ず遵守してください】\n" +
		"\n" +
		"1. **文字数要件**\n" +
		"   - Step 1全体で最低3000文字を記述してください\n" +
		"   - Step 2-4の各セクションは最低100文字を目安に記述してください\n" +
		"\n" +
		"2. **具体性要件**\n" +
		"   - 各セクションで具体的な数値・事例を必ず3つ以上含めてください\n" +
		"   - 抽象的な表現(例: \"高い技術力\")だけでなく、実務者が判断可能なレベルまで詳述してください\n" +
		"   - 例: \"年間特許出願数120件、うち製造プロセス改善関連が65パーセント\"\n" +
		"\n" +
		"3. **Pain & Success Scenarioの深掘り**\n" +
		"   - \"The Pain(不在のリスク)\"は具体的なエピソードレベルで記述してください\n" +
		"   - \"Success Scenario(採用後の世界)\"は時系列を含めた具体的なストーリーで描いてください\n" +
		"   - 例: \"入社3ヶ月で○○プロジェクトに参画、6ヶ月後には△△の改善を主導\"\n" +
		"\n" +
		"4. **フォーマット**\n" +
		"   - 重要なキーワードは**太字**で強調してください\n" +
		"   - 数値データは表形式も活用してください\n" +
		"\n" +
		sep
}
