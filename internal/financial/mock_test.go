package financial

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/hirelens-jp/research-cli/pkg/anthropic"
	"github.com/hirelens-jp/research-cli/pkg/serpapi"
)

// --- SerpAPI Mock ---

type mockSearchClient struct {
	mock.Mock
}

func (m *mockSearchClient) Search(ctx context.Context, query string, opts ...serpapi.SearchOption) (*serpapi.SearchResponse, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*serpapi.SearchResponse), args.Error(1)
}

// --- Anthropic Mock ---

type mockLLMClient struct {
	mock.Mock
}

func (m *mockLLMClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- PDF Extractor Mock ---

type mockPDFExtractor struct {
	mock.Mock
}

func (m *mockPDFExtractor) ExtractText(ctx context.Context, pdf []byte, maxPages int) (string, error) {
	args := m.Called(ctx, pdf, maxPages)
	return args.String(0), args.Error(1)
}

// llmText wraps raw text in a single-block response.
func llmText(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 50},
	}
}
