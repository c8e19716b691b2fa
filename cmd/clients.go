package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/hirelens-jp/research-cli/internal/financial"
	"github.com/hirelens-jp/research-cli/internal/pdftext"
	"github.com/hirelens-jp/research-cli/internal/store"
	"github.com/hirelens-jp/research-cli/pkg/anthropic"
	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.NewSQLite(cfg.Store.Path)
	if err != nil {
		return nil, eris.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// newSearchClient returns nil when no key is configured; search-backed
// features degrade instead of failing.
func newSearchClient() serpapi.Client {
	if cfg.SerpAPI.Key == "" {
		return nil
	}
	return serpapi.NewClient(cfg.SerpAPI.Key,
		serpapi.WithBaseURL(cfg.SerpAPI.BaseURL),
		serpapi.WithLocale(cfg.SerpAPI.Location, cfg.SerpAPI.Language, cfg.SerpAPI.Country),
		serpapi.WithQPS(cfg.SerpAPI.QPS),
	)
}

// newLLMClient returns nil when no key is configured.
func newLLMClient() anthropic.Client {
	if cfg.Anthropic.Key == "" {
		return nil
	}
	return anthropic.NewClient(cfg.Anthropic.Key)
}

// buildChain assembles the financial fallback chain from config.
func buildChain(search serpapi.Client, llm anthropic.Client) *financial.Chain {
	var extractor *financial.Extractor
	if llm != nil {
		extractor = financial.NewExtractor(llm, financial.ExtractorConfig{
			Model:                  cfg.Anthropic.HaikuModel,
			PromptSampleChars:      cfg.Financial.PromptSampleChars,
			SegmentMinRunes:        cfg.Financial.SegmentMinRunes,
			SegmentContextMinChars: cfg.Financial.SegmentContextMinChars,
			SegmentFallbackChars:   cfg.Financial.SegmentFallbackChars,
		})
	}

	return financial.NewChain(
		financial.NewLocator(search, cfg.Financial.SearchResultsPerQuery),
		financial.NewDownloader(time.Duration(cfg.Financial.DownloadTimeoutSecs)*time.Second),
		pdftext.NewPdfToText(cfg.PDFText.PdfToTextPath),
		extractor,
		financial.NewProfileFetcher(search),
		financial.ChainConfig{
			MaxPDFPages:      cfg.Financial.MaxPDFPages,
			MinDocumentChars: cfg.Financial.MinDocumentChars,
		},
	)
}
