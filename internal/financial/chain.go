package financial

import (
	"context"
	"errors"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/internal/pdftext"
)

// ChainConfig tunes the document stage of the chain.
type ChainConfig struct {
	MaxPDFPages      int
	MinDocumentChars int
}

// Chain orchestrates the fallback sequence for financial data: verified
// IR document extraction first, then web-profile snippets, then an
// estimation hint or a terminal error.
type Chain struct {
	locator    *Locator
	downloader *Downloader
	pdf        pdftext.Extractor
	extractor  *Extractor
	profiles   *ProfileFetcher
	cfg        ChainConfig
}

// NewChain wires the chain together. A nil extractor models a missing
// LLM credential; it fails the chain only after a document has been
// verified, so the cheaper fallbacks still run without it.
func NewChain(locator *Locator, downloader *Downloader, pdf pdftext.Extractor, extractor *Extractor, profiles *ProfileFetcher, cfg ChainConfig) *Chain {
	if cfg.MaxPDFPages <= 0 {
		cfg.MaxPDFPages = 15
	}
	if cfg.MinDocumentChars <= 0 {
		cfg.MinDocumentChars = 100
	}
	return &Chain{
		locator:    locator,
		downloader: downloader,
		pdf:        pdf,
		extractor:  extractor,
		profiles:   profiles,
		cfg:        cfg,
	}
}

// Fetch runs the chain for one company. On success the returned record
// carries a data-quality tag saying which source produced it. On failure
// the returned error is a *Error whose Kind and UseEstimation flag tell
// the caller whether canned estimates may stand in.
func (c *Chain) Fetch(ctx context.Context, companyName string) (*model.FinancialRecord, error) {
	companyType := Classify(companyName)
	zap.L().Info("financial chain start",
		zap.String("company", companyName),
		zap.String("company_type", string(companyType)))

	text, irFailed := c.documentText(ctx, companyName)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if irFailed {
		return c.webFallback(ctx, companyName, companyType)
	}

	if c.extractor == nil {
		return nil, newError(KindConfiguration,
			"LLM APIキーが未設定のため、財務抽出はスキップしました", nil)
	}

	record, err := c.extractor.Extract(ctx, text, companyName)
	if err != nil {
		var fe *Error
		if errors.As(err, &fe) && fe.Kind == KindDocumentMismatch &&
			companyType == model.CompanySubsidiary {
			fe.UseEstimation = true
		}
		return nil, err
	}

	zap.L().Info("financials extracted from ir document",
		zap.String("company", companyName))
	return record, nil
}

// documentText runs locate, download, text extraction and verification.
// It returns the document text and whether the IR path failed at any
// stage.
func (c *Chain) documentText(ctx context.Context, companyName string) (string, bool) {
	candidate, err := c.locator.Locate(ctx, companyName)
	if err != nil || candidate == nil {
		return "", true
	}

	pdfBytes, err := c.downloader.Download(ctx, candidate.URL)
	if err != nil {
		zap.L().Warn("document download failed",
			zap.String("url", candidate.URL),
			zap.Error(err))
		return "", true
	}

	text, err := c.pdf.ExtractText(ctx, pdfBytes, c.cfg.MaxPDFPages)
	if err != nil {
		zap.L().Warn("pdf text extraction failed",
			zap.String("url", candidate.URL),
			zap.Error(err))
		return "", true
	}

	if utf8.RuneCountInString(text) < c.cfg.MinDocumentChars {
		zap.L().Warn("pdf text too short to analyze",
			zap.String("company", companyName))
		return "", true
	}

	if !VerifyDocument(text, companyName) {
		zap.L().Warn("document verification failed",
			zap.String("company", companyName),
			zap.String("url", candidate.URL))
		return "", true
	}

	return text, false
}

// webFallback assembles a partial record from web search snippets, or a
// terminal chain error when nothing useful is found.
func (c *Chain) webFallback(ctx context.Context, companyName string, companyType model.CompanyType) (*model.FinancialRecord, error) {
	zap.L().Info("falling back to web profile search",
		zap.String("company", companyName))

	var combined string
	for _, q := range profileQueries(companyName) {
		if s := c.profiles.Fetch(ctx, q); s != "" {
			combined = s
			break
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if combined == "" {
		if companyType == model.CompanySubsidiary {
			return nil, &Error{
				Kind:          KindExhausted,
				Message:       "子会社のため独自IR資料なし",
				UseEstimation: true,
			}
		}
		return nil, newError(KindExhausted, "IR資料もウェブ情報も見つかりませんでした", nil)
	}

	const needsReview = "情報不足（要確認）"
	return &model.FinancialRecord{
		Revenue:         needsReview,
		OperatingMargin: needsReview,
		EquityRatio:     needsReview,
		CompanySummary:  "【ウェブ検索による企業情報（自動収集）】\n\n" + truncateRunes(combined, 8000),
		SourceNote:      "web_search（公開情報自動収集）",
		Quality:         model.QualityPartialPublic,
	}, nil
}
