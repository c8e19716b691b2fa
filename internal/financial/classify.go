package financial

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/width"

	"github.com/hirelens-jp/research-cli/internal/model"
)

// subsidiaryKeywords mark group-company naming patterns. They are checked
// before listedKeywords so that names like "〇〇ホールディングスシステムズ"
// classify as subsidiary.
var subsidiaryKeywords = []string{
	"CK", "システムズ", "ソリューションズ", "テクノロジーズ",
	"サービス", "エンジニアリング", "コンサルティング",
}

// listedKeywords mark listed-company naming patterns.
var listedKeywords = []string{"株式会社", "ホールディングス", "グループ", "HD"}

// Classify buckets a company name into listed, subsidiary or unknown by
// substring heuristics. Full-width latin and half-width kana are folded
// first so "ＨＤ" and "ｻｰﾋﾞｽ" match their canonical forms.
func Classify(companyName string) model.CompanyType {
	folded := width.Fold.String(companyName)

	for _, kw := range subsidiaryKeywords {
		if strings.Contains(folded, kw) {
			return model.CompanySubsidiary
		}
	}

	for _, kw := range listedKeywords {
		if strings.Contains(folded, kw) {
			return model.CompanyListed
		}
	}

	return model.CompanyUnknown
}

// VerifyDocument checks that extracted document text actually belongs to
// the target company. An exact name match always passes. Subsidiaries
// accept nothing less, since their documents are easily confused with the
// parent's. Listed companies also pass on the bare name with 株式会社 and
// HD stripped, provided enough of the name remains to be distinctive.
func VerifyDocument(documentText, companyName string) bool {
	if strings.Contains(documentText, companyName) {
		return true
	}

	switch Classify(companyName) {
	case model.CompanySubsidiary:
		return false
	case model.CompanyListed:
		mainName := strings.TrimSpace(
			strings.ReplaceAll(strings.ReplaceAll(companyName, "株式会社", ""), "HD", ""))
		if mainName != "" && utf8.RuneCountInString(mainName) > 2 &&
			strings.Contains(documentText, mainName) {
			return true
		}
	}

	return false
}
