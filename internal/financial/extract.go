package financial

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/pkg/anthropic"
)

// segmentKeywords mark lines likely to carry business-segment breakdowns.
var segmentKeywords = []string{
	"セグメント", "事業別", "部門別", "分野別", "カテゴリー別",
	"自動車", "金融", "IT", "製造業", "小売", "不動産", "エネルギー",
	"segment", "business", "division",
}

// ExtractorConfig tunes prompt sizing and the segment-enrichment gate.
type ExtractorConfig struct {
	Model             string
	PromptSampleChars int
	// MainSegments shorter than SegmentMinRunes (or containing 不明)
	// triggers a second, segment-focused extraction pass.
	SegmentMinRunes        int
	SegmentContextMinChars int
	SegmentFallbackChars   int
}

// Extractor turns verified IR document text into a FinancialRecord via
// the LLM.
type Extractor struct {
	llm anthropic.Client
	cfg ExtractorConfig
}

// NewExtractor creates an Extractor. Zero config values fall back to
// defaults.
func NewExtractor(llm anthropic.Client, cfg ExtractorConfig) *Extractor {
	if cfg.PromptSampleChars <= 0 {
		cfg.PromptSampleChars = 6000
	}
	if cfg.SegmentMinRunes <= 0 {
		cfg.SegmentMinRunes = 20
	}
	if cfg.SegmentContextMinChars <= 0 {
		cfg.SegmentContextMinChars = 100
	}
	if cfg.SegmentFallbackChars <= 0 {
		cfg.SegmentFallbackChars = 3000
	}
	return &Extractor{llm: llm, cfg: cfg}
}

// Extract runs the staged extraction prompt over the document text and
// maps the response into a typed record. A malformed response degrades
// through JSON repair down to a minimal three-field unknown record; an
// explicit error object from the model becomes a DocumentMismatch error.
func (e *Extractor) Extract(ctx context.Context, documentText, companyName string) (*model.FinancialRecord, error) {
	sample := truncateRunes(documentText, e.cfg.PromptSampleChars)
	prompt := buildExtractionPrompt(companyName, Classify(companyName), sample)

	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: 4096,
		Messages:  []anthropic.Message{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return nil, newError(KindSourceUnavailable, "財務データ抽出の呼び出しに失敗しました", err)
	}
	resp.Usage.LogCost(e.cfg.Model, "financial_extraction")

	var record *model.FinancialRecord
	fields, parseErr := decodeExtraction(resp.Text())
	if parseErr != nil {
		zap.L().Warn("extraction response unparseable, degrading to unknowns",
			zap.String("company", companyName),
			zap.Error(parseErr))
		record = &model.FinancialRecord{
			Revenue:         "不明",
			OperatingMargin: "不明",
			EquityRatio:     "不明",
		}
	} else {
		if errMsg, ok := fields["error"]; ok {
			return nil, newError(KindDocumentMismatch, errMsg, nil)
		}
		record = recordFromFields(fields)
	}
	record.Quality = model.QualityIR

	if e.needsSegmentEnrichment(record.MainSegments) {
		enriched, err := e.enrichSegments(ctx, documentText)
		if err != nil {
			zap.L().Warn("segment enrichment failed, keeping primary value", zap.Error(err))
		} else if enriched != "" {
			record.MainSegments = enriched
		}
	}

	return record, nil
}

// needsSegmentEnrichment reports whether the primary pass produced a
// segment value too weak to use as-is.
func (e *Extractor) needsSegmentEnrichment(segments string) bool {
	return strings.Contains(segments, "不明") ||
		utf8.RuneCountInString(segments) < e.cfg.SegmentMinRunes
}

// enrichSegments runs the segment-focused second pass. The full document
// text is scanned for segment keywords and each hit contributes its
// surrounding lines; if too little context accumulates, a plain prefix
// of the document is used instead.
func (e *Extractor) enrichSegments(ctx context.Context, documentText string) (string, error) {
	relevant := collectSegmentContext(documentText)
	if utf8.RuneCountInString(relevant) < e.cfg.SegmentContextMinChars {
		relevant = truncateRunes(documentText, e.cfg.SegmentFallbackChars)
	}

	resp, err := e.llm.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     e.cfg.Model,
		MaxTokens: 1024,
		Messages:  []anthropic.Message{{Role: "user", Content: buildSegmentPrompt(relevant)}},
	})
	if err != nil {
		return "", err
	}
	resp.Usage.LogCost(e.cfg.Model, "segment_enrichment")

	return strings.TrimSpace(resp.Text()), nil
}

// collectSegmentContext gathers, for every line containing a segment
// keyword, the five lines before and six after it.
func collectSegmentContext(documentText string) string {
	lines := strings.Split(documentText, "\n")

	var b strings.Builder
	for i, line := range lines {
		lowerLine := strings.ToLower(line)
		for _, kw := range segmentKeywords {
			if strings.Contains(lowerLine, kw) || strings.Contains(line, kw) {
				start := max(0, i-5)
				end := min(len(lines), i+6)
				b.WriteString(strings.Join(lines[start:end], "\n"))
				b.WriteString("\n\n")
				break
			}
		}
	}
	return b.String()
}

// decodeExtraction parses the LLM response into a flat string map. The
// raw text is fence-stripped first, then parsed, then repaired and
// parsed once more before giving up.
func decodeExtraction(raw string) (map[string]string, error) {
	cleaned := cleanJSON(raw)

	var fields map[string]any
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		repaired, repairErr := jsonrepair.RepairJSON(cleaned)
		if repairErr != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
			return nil, err
		}
	}

	out := make(map[string]string, len(fields))
	for k, v := range fields {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			// skip nulls
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out, nil
}

// recordFromFields maps the extraction keys onto the typed record.
// Unknown keys are dropped.
func recordFromFields(fields map[string]string) *model.FinancialRecord {
	r := &model.FinancialRecord{}
	for k, v := range fields {
		switch k {
		case "売上高":
			r.Revenue = v
		case "営業利益率":
			r.OperatingMargin = v
		case "自己資本比率":
			r.EquityRatio = v
		case "ROE":
			r.ROE = v
		case "営業キャッシュフロー":
			r.OperatingCashFlow = v
		case "主力事業セグメント":
			r.MainSegments = v
		case "地域別売上構成":
			r.RegionalMix = v
		case "新規事業領域":
			r.NewBusinessAreas = v
		case "中期経営計画":
			r.MidTermPlan = v
		case "成長戦略":
			r.GrowthStrategy = v
		case "投資計画":
			r.InvestmentPlan = v
		case "DX取り組み":
			r.DXInitiatives = v
		case "市場シェア":
			r.MarketShare = v
		case "強み":
			r.Strengths = v
		}
	}
	return r
}

// cleanJSON strips markdown fences and isolates the outermost JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

// buildExtractionPrompt assembles the primary extraction prompt with the
// company-identity guard at the top.
func buildExtractionPrompt(companyName string, companyType model.CompanyType, textSample string) string {
	return `分析対象企業名: ` + companyName + `

【重要安全ガード: 社名照合】
提供されたテキストが「` + companyName + `」の資料であることを確認してください。
企業タイプ: ` + string(companyType) + `

照合ルール:
- subsidiary（子会社）の場合: 完全一致のみ許可。親会社名だけでは不可。
- listed（上場企業）の場合: 部分一致も許可。
- unknown（不明）の場合: 慎重に判定。

もし明らかに「全く別の企業」の資料である場合は、分析を行わず、以下のJSONのみを出力：
{"error": "対象外の企業の資料が検出されました"}

一致する場合は、以下の指示に従ってください。

IR資料から企業の重要情報を段階的に抽出してください。まず確実に見つけられる情報を重点的に探し、不明な項目は「不明」ではなく具体的な検索努力をしてください。

【第1段階: 必須財務情報(この段階で必ず発見してください)】
1. 売上高: 「売上高」「総売上」「Revenue」などのキーワードを探し、最新期の連結売上高を億円単位で記載
2. 営業利益率: 「営業利益」と「売上高」から計算、または直接「営業利益率」記載を探す
3. 自己資本比率: 「自己資本比率」「Equity Ratio」を探し、パーセント表記で記載

【第2段階: 追加財務指標】
4. ROE: 「ROE」「自己資本利益率」「Return on Equity」を探す
5. 営業キャッシュフロー: 「営業活動によるキャッシュフロー」「営業CF」を探す

【第3段階: 事業構造分析】
6. 主力事業セグメント: セグメント別売上や事業別業績表を探し、売上構成比とともに記載
7. 地域別売上構成: 「地域別」「国内外」「海外売上比率」などを探す
8. 新規事業領域: 「新規事業」「新分野」「新サービス」の記載を探す

【第4段階: 戦略・計画情報】
9. 中期経営計画: 「中期計画」「中期経営計画」「3年計画」「5年計画」の目標数値
10. 成長戦略: 「戦略」「重点施策」「成長ドライバー」を探す
11. 投資計画: 「設備投資」「投資予定」「CAPEX」の金額や計画
12. DX取り組み: 「DX」「デジタル化」「IT投資」「システム刷新」などの記載

【第5段階: 競争分析】
13. 市場シェア: 「シェア」「市場地位」「業界順位」などの数値
14. 強み: 「競争優位」「強み」「差別化」「特徴」などの記載

【重要な抽出指示】
- 「不明」は最後の手段として使用し、まず類似表現や関連データを探してください
- 数値は「〜〜億円」「〜〜パーセント」などの形式で正確に記載
- 連結決算を優先し、単体は避けてください
- 最新期のデータを優先
- セグメント情報は「自動車事業: 4兆円（75パーセント）」のように具体的に記載
- 文書内を徹底的に検索し、関連キーワードでも探してください

【分析対象文書】
` + textSample + `

【出力JSON形式】
{
  "売上高": "具体的な金額（億円）",
  "営業利益率": "具体的なパーセント",
  "自己資本比率": "具体的なパーセント",
  "ROE": "具体的なパーセント",
  "営業キャッシュフロー": "具体的な金額",
  "主力事業セグメント": "事業名と構成比",
  "地域別売上構成": "地域別の詳細",
  "新規事業領域": "新規分野の具体名",
  "中期経営計画": "計画内容と目標",
  "成長戦略": "戦略の要点",
  "投資計画": "投資額と内容",
  "DX取り組み": "デジタル化の内容",
  "市場シェア": "シェア率と順位",
  "強み": "競争優位性"
}`
}

// buildSegmentPrompt assembles the second-pass segment prompt.
func buildSegmentPrompt(relevantText string) string {
	return `以下のIR資料から事業セグメント情報を詳細に抽出してください。

【最重要タスク】
事業別の売上高と構成比を具体的な数値で抽出してください。

【探索すべき情報】
- セグメント別売上高（億円単位）
- 各セグメントの売上構成比（パーセント）
- 主要な事業領域・分野名
- 各事業の成長率や前年比

【分析対象テキスト】
` + relevantText + `

【出力形式】
「事業A: ○○○○億円（○○パーセント）、事業B: ○○○○億円（○○パーセント）」
の形式で、具体的な数値とともに記載してください。

見つからない場合のみ「不明」として回答してください。
`
}
