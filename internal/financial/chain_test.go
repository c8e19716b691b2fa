package financial

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/hirelens-jp/research-cli/internal/model"
	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

// verifiedText builds document text long enough to pass the length gate
// and containing the exact company name.
func verifiedText(company string) string {
	return company + " 2025年3月期 決算説明資料\n" + strings.Repeat("連結業績の概要 ", 30)
}

func irSearchResponse(pdfURL, title string) *serpapi.SearchResponse {
	return &serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
		{Title: title, Link: pdfURL},
	}}
}

func emptySearchResponse() *serpapi.SearchResponse {
	return &serpapi.SearchResponse{}
}

func newTestChain(search serpapi.Client, pdf *mockPDFExtractor, extractor *Extractor) *Chain {
	return NewChain(
		NewLocator(search, 15),
		NewDownloader(5*time.Second),
		pdf,
		extractor,
		NewProfileFetcher(search),
		ChainConfig{},
	)
}

func TestChain_IRDocumentSuccess(t *testing.T) {
	company := "トヨタ自動車株式会社"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 fake ir deck")) //nolint:errcheck
	}))
	defer srv.Close()
	pdfURL := srv.URL + "/ir/kessan_2025.pdf"

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(pdfURL, "トヨタ自動車 決算説明資料"), nil).Once()

	pdf := &mockPDFExtractor{}
	pdf.On("ExtractText", mock.Anything, []byte("%PDF-1.7 fake ir deck"), 15).
		Return(verifiedText(company), nil).Once()

	llm := &mockLLMClient{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).
		Return(llmText(extractionJSON), nil).Once()

	chain := newTestChain(search, pdf, testExtractor(llm))

	rec, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, "45兆円", rec.Revenue)
	assert.Equal(t, model.QualityIR, rec.Quality)
	search.AssertExpectations(t)
	pdf.AssertExpectations(t)
}

func TestChain_NoDocumentFallsBackToWebProfile(t *testing.T) {
	company := "東都商事"

	search := &mockSearchClient{}
	// Every locator query comes back empty; name has no variants, so 11
	// locate queries run before the first profile query succeeds.
	for range 11 {
		search.On("Search", mock.Anything, mock.Anything).
			Return(emptySearchResponse(), nil).Once()
	}
	search.On("Search", mock.Anything, company+" 会社概要 事業内容").
		Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
			{Title: "東都商事 会社概要", Snippet: "産業機械の専門商社", Link: "https://toto.example/about"},
		}}, nil).Once()

	chain := newTestChain(search, &mockPDFExtractor{}, nil)

	rec, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, "情報不足（要確認）", rec.Revenue)
	assert.Equal(t, "情報不足（要確認）", rec.OperatingMargin)
	assert.Equal(t, "情報不足（要確認）", rec.EquityRatio)
	assert.True(t, strings.HasPrefix(rec.CompanySummary, "【ウェブ検索による企業情報（自動収集）】\n\n"))
	assert.Contains(t, rec.CompanySummary, "産業機械の専門商社")
	assert.Equal(t, "web_search（公開情報自動収集）", rec.SourceNote)
	assert.Equal(t, model.QualityPartialPublic, rec.Quality)
	search.AssertExpectations(t)
}

func TestChain_RepeatedFetchReturnsSameRecord(t *testing.T) {
	company := "東都商事"

	// Fixed stubs: the profile query always yields the same snippet and
	// every other query stays empty, so both runs take the web-fallback
	// path against identical inputs.
	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 会社概要 事業内容").
		Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
			{Title: "東都商事 会社概要", Snippet: "産業機械の専門商社", Link: "https://toto.example/about"},
		}}, nil)
	search.On("Search", mock.Anything, mock.Anything).
		Return(emptySearchResponse(), nil)

	chain := newTestChain(search, &mockPDFExtractor{}, nil)

	first, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	second, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestChain_DownloadFailureFallsBack(t *testing.T) {
	company := "東都商事"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(srv.URL+"/ir/doc.pdf", "決算資料"), nil).Once()
	search.On("Search", mock.Anything, company+" 会社概要 事業内容").
		Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
			{Title: "概要", Snippet: "専門商社", Link: "https://example.com"},
		}}, nil).Once()

	chain := newTestChain(search, &mockPDFExtractor{}, nil)

	rec, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, model.QualityPartialPublic, rec.Quality)
}

func TestChain_ShortTextFallsBack(t *testing.T) {
	company := "東都商事"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7")) //nolint:errcheck
	}))
	defer srv.Close()

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(srv.URL+"/ir/doc.pdf", "決算資料"), nil).Once()
	search.On("Search", mock.Anything, company+" 会社概要 事業内容").
		Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
			{Title: "概要", Snippet: "専門商社", Link: "https://example.com"},
		}}, nil).Once()

	pdf := &mockPDFExtractor{}
	pdf.On("ExtractText", mock.Anything, mock.Anything, 15).
		Return("短すぎる", nil).Once()

	chain := newTestChain(search, pdf, nil)

	rec, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, model.QualityPartialPublic, rec.Quality)
}

func TestChain_VerificationFailureFallsBack(t *testing.T) {
	company := "日立システムズ"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 parent deck")) //nolint:errcheck
	}))
	defer srv.Close()

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(srv.URL+"/ir/doc.pdf", "決算資料"), nil).Once()
	search.On("Search", mock.Anything, company+" 会社概要 事業内容").
		Return(&serpapi.SearchResponse{OrganicResults: []serpapi.OrganicResult{
			{Title: "概要", Snippet: "システム開発子会社", Link: "https://example.com"},
		}}, nil).Once()

	// Parent company document, name never appears exactly.
	pdf := &mockPDFExtractor{}
	pdf.On("ExtractText", mock.Anything, mock.Anything, 15).
		Return(verifiedText("株式会社日立製作所"), nil).Once()

	chain := newTestChain(search, pdf, nil)

	rec, err := chain.Fetch(context.Background(), company)
	require.NoError(t, err)
	assert.Equal(t, model.QualityPartialPublic, rec.Quality)
}

func TestChain_SubsidiaryExhaustionOffersEstimation(t *testing.T) {
	search := &mockSearchClient{}
	search.On("Search", mock.Anything, mock.Anything).
		Return(emptySearchResponse(), nil)

	chain := newTestChain(search, &mockPDFExtractor{}, nil)

	_, err := chain.Fetch(context.Background(), "日立システムズ")
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindExhausted, fe.Kind)
	assert.True(t, fe.UseEstimation)
	assert.Equal(t, "子会社のため独自IR資料なし", fe.Message)
}

func TestChain_ListedExhaustionNoEstimation(t *testing.T) {
	search := &mockSearchClient{}
	search.On("Search", mock.Anything, mock.Anything).
		Return(emptySearchResponse(), nil)

	chain := newTestChain(search, &mockPDFExtractor{}, nil)

	_, err := chain.Fetch(context.Background(), "トヨタ自動車株式会社")
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindExhausted, fe.Kind)
	assert.False(t, fe.UseEstimation)
}

func TestChain_MissingLLMIsTerminal(t *testing.T) {
	company := "トヨタ自動車株式会社"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 deck")) //nolint:errcheck
	}))
	defer srv.Close()

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(srv.URL+"/ir/kessan.pdf", "決算説明資料"), nil).Once()

	pdf := &mockPDFExtractor{}
	pdf.On("ExtractText", mock.Anything, mock.Anything, 15).
		Return(verifiedText(company), nil).Once()

	chain := newTestChain(search, pdf, nil)

	_, err := chain.Fetch(context.Background(), company)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindConfiguration, fe.Kind)
	assert.False(t, fe.UseEstimation)
	// The chain stops before any web fallback: a verified document with
	// no extractor is a setup problem, not a data problem.
	search.AssertNumberOfCalls(t, "Search", 1)
}

func TestChain_SubsidiaryMismatchOffersEstimation(t *testing.T) {
	company := "日立システムズ"

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("%PDF-1.7 deck")) //nolint:errcheck
	}))
	defer srv.Close()

	search := &mockSearchClient{}
	search.On("Search", mock.Anything, company+" 決算説明資料 pdf").
		Return(irSearchResponse(srv.URL+"/ir/kessan.pdf", "決算説明資料"), nil).Once()

	// Verification passes on an exact name hit, but the model still judges
	// the document to belong to another company.
	pdf := &mockPDFExtractor{}
	pdf.On("ExtractText", mock.Anything, mock.Anything, 15).
		Return(verifiedText(company), nil).Once()

	llm := &mockLLMClient{}
	llm.On("CreateMessage", mock.Anything, mock.Anything).
		Return(llmText(`{"error": "対象外の企業の資料が検出されました"}`), nil).Once()

	chain := newTestChain(search, pdf, testExtractor(llm))

	_, err := chain.Fetch(context.Background(), company)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, KindDocumentMismatch, fe.Kind)
	assert.True(t, fe.UseEstimation)
}

func TestChain_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := newTestChain(&mockSearchClient{}, &mockPDFExtractor{}, nil)

	_, err := chain.Fetch(ctx, "東都商事")
	assert.ErrorIs(t, err, context.Canceled)
}
