package model

// CompanyType classifies a company name by substring heuristics. The type
// controls how strictly IR documents are verified against the name and
// whether industry estimation is offered when every data source fails.
type CompanyType string

const (
	// CompanyListed is a likely listed (public) company.
	CompanyListed CompanyType = "listed"
	// CompanySubsidiary is a likely subsidiary or group affiliate.
	// Subsidiaries share brand tokens with parents, so only exact name
	// matches are trusted during document verification.
	CompanySubsidiary CompanyType = "subsidiary"
	// CompanyUnknown is anything that matched neither pattern.
	CompanyUnknown CompanyType = "unknown"
)

// DataQuality tags how trustworthy a financial record is.
type DataQuality string

const (
	// QualityIR means the record was extracted from a verified IR document.
	QualityIR DataQuality = "ir_document"
	// QualityPartialPublic means the record was assembled from general web
	// search snippets rather than verified IR data.
	QualityPartialPublic DataQuality = "partial_public"
	// QualityEstimated means the record is a canned industry estimation.
	QualityEstimated DataQuality = "estimated"
)

// FinancialRecord holds the extraction targets as a fixed, typed schema.
// Field keys mirror the JSON object the extraction prompt demands, so an
// LLM response unmarshals straight into it. All values are human-readable
// strings; absent fields stay empty.
type FinancialRecord struct {
	Revenue           string `json:"売上高,omitempty"`
	OperatingMargin   string `json:"営業利益率,omitempty"`
	EquityRatio       string `json:"自己資本比率,omitempty"`
	ROE               string `json:"ROE,omitempty"`
	OperatingCashFlow string `json:"営業キャッシュフロー,omitempty"`
	MainSegments      string `json:"主力事業セグメント,omitempty"`
	RegionalMix       string `json:"地域別売上構成,omitempty"`
	NewBusinessAreas  string `json:"新規事業領域,omitempty"`
	MidTermPlan       string `json:"中期経営計画,omitempty"`
	GrowthStrategy    string `json:"成長戦略,omitempty"`
	InvestmentPlan    string `json:"投資計画,omitempty"`
	DXInitiatives     string `json:"DX取り組み,omitempty"`
	MarketShare       string `json:"市場シェア,omitempty"`
	Strengths         string `json:"強み,omitempty"`

	// Set on web-fallback and estimation records only.
	CompanySummary string      `json:"企業概要,omitempty"`
	SourceNote     string      `json:"情報ソース,omitempty"`
	EstimationNote string      `json:"推定注記,omitempty"`
	Quality        DataQuality `json:"data_quality,omitempty"`
}

// fieldOrder fixes the rendering order of the 14 extraction targets.
var fieldOrder = []struct {
	key string
	get func(*FinancialRecord) string
}{
	{"売上高", func(r *FinancialRecord) string { return r.Revenue }},
	{"営業利益率", func(r *FinancialRecord) string { return r.OperatingMargin }},
	{"自己資本比率", func(r *FinancialRecord) string { return r.EquityRatio }},
	{"ROE", func(r *FinancialRecord) string { return r.ROE }},
	{"営業キャッシュフロー", func(r *FinancialRecord) string { return r.OperatingCashFlow }},
	{"主力事業セグメント", func(r *FinancialRecord) string { return r.MainSegments }},
	{"地域別売上構成", func(r *FinancialRecord) string { return r.RegionalMix }},
	{"新規事業領域", func(r *FinancialRecord) string { return r.NewBusinessAreas }},
	{"中期経営計画", func(r *FinancialRecord) string { return r.MidTermPlan }},
	{"成長戦略", func(r *FinancialRecord) string { return r.GrowthStrategy }},
	{"投資計画", func(r *FinancialRecord) string { return r.InvestmentPlan }},
	{"DX取り組み", func(r *FinancialRecord) string { return r.DXInitiatives }},
	{"市場シェア", func(r *FinancialRecord) string { return r.MarketShare }},
	{"強み", func(r *FinancialRecord) string { return r.Strengths }},
}

// Fields renders the record as a flat string-to-string mapping in the
// order of the extraction checklist. Empty fields are omitted; the
// supplementary summary/source/note fields come last.
func (r *FinancialRecord) Fields() []FieldEntry {
	var out []FieldEntry
	for _, f := range fieldOrder {
		if v := f.get(r); v != "" {
			out = append(out, FieldEntry{Key: f.key, Value: v})
		}
	}
	if r.CompanySummary != "" {
		out = append(out, FieldEntry{Key: "企業概要", Value: r.CompanySummary})
	}
	if r.SourceNote != "" {
		out = append(out, FieldEntry{Key: "情報ソース", Value: r.SourceNote})
	}
	if r.EstimationNote != "" {
		out = append(out, FieldEntry{Key: "推定注記", Value: r.EstimationNote})
	}
	return out
}

// FieldEntry is one key/value pair of a rendered record.
type FieldEntry struct {
	Key   string
	Value string
}

// DocumentCandidate is a scored IR document hit from one search query.
// Candidates are ranked within a single query's result set; the top one
// wins and the remainder are discarded.
type DocumentCandidate struct {
	URL   string
	Title string
	Score int
}
