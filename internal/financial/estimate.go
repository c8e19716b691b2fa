package financial

import (
	"strings"

	"github.com/hirelens-jp/research-cli/internal/model"
)

// itEstimationKeywords flag IT and systems companies for the IT-sector
// estimation table. Matching is case-insensitive over name and job text.
var itEstimationKeywords = []string{
	"システム", "ソリューション", "エンジニア",
}

// itEstimationAbbrevs only count as whole words; a bare substring check
// would fire on unrelated text like "license" or "research".
var itEstimationAbbrevs = []string{"it", "dx", "se"}

// Estimate returns canned industry-average figures for companies whose
// real financials could not be obtained. The IT table is used when the
// name or job posting suggests a systems business; otherwise a generic
// small-company table applies.
func Estimate(companyName, jobInfo string) *model.FinancialRecord {
	haystack := strings.ToLower(companyName) + " " + strings.ToLower(jobInfo)
	for _, kw := range itEstimationKeywords {
		if strings.Contains(haystack, kw) {
			return itEstimation()
		}
	}
	for _, kw := range itEstimationAbbrevs {
		if containsWord(haystack, kw) {
			return itEstimation()
		}
	}
	return genericEstimation()
}

// containsWord reports whether word occurs in s with no adjacent ASCII
// letter or digit. Non-ASCII neighbors such as kana and kanji count as
// boundaries, so 社内SE matches while license does not.
func containsWord(s, word string) bool {
	for i := 0; i+len(word) <= len(s); {
		j := strings.Index(s[i:], word)
		if j < 0 {
			return false
		}
		j += i
		end := j + len(word)
		if (j == 0 || !isASCIIWordByte(s[j-1])) && (end == len(s) || !isASCIIWordByte(s[end])) {
			return true
		}
		i = j + 1
	}
	return false
}

func isASCIIWordByte(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

func itEstimation() *model.FinancialRecord {
	return &model.FinancialRecord{
		Revenue:           "業界平均推定: 100-500億円",
		OperatingMargin:   "業界平均推定: 8-12パーセント",
		EquityRatio:       "業界平均推定: 40-60パーセント",
		ROE:               "業界平均推定: 10-15パーセント",
		OperatingCashFlow: "推定値",
		MainSegments:      "ITソリューション事業: 推定75パーセント",
		RegionalMix:       "国内中心: 推定80パーセント",
		NewBusinessAreas:  "DX、クラウドサービス",
		MidTermPlan:       "デジタル化推進",
		GrowthStrategy:    "IT人材強化、新技術導入",
		InvestmentPlan:    "システム投資中心",
		DXInitiatives:     "自社DX推進中",
		MarketShare:       "地域特化型",
		Strengths:         "専門技術、顧客密着",
		EstimationNote:    "子会社のため推定値を使用",
		Quality:           model.QualityEstimated,
	}
}

func genericEstimation() *model.FinancialRecord {
	return &model.FinancialRecord{
		Revenue:           "推定値: 50-200億円",
		OperatingMargin:   "推定値: 5-10パーセント",
		EquityRatio:       "推定値: 30-50パーセント",
		ROE:               "推定値: 8-12パーセント",
		OperatingCashFlow: "推定値",
		MainSegments:      "推定: 専門サービス事業",
		RegionalMix:       "推定: 国内中心",
		NewBusinessAreas:  "推定: サービス拡張",
		MidTermPlan:       "推定: 安定成長",
		GrowthStrategy:    "推定: 既存事業強化",
		InvestmentPlan:    "推定: 設備投資",
		DXInitiatives:     "推定: 業務効率化",
		MarketShare:       "推定: 地域密着型",
		Strengths:         "推定: 専門性",
		EstimationNote:    "IR資料未発見のため推定値を使用",
		Quality:           model.QualityEstimated,
	}
}
