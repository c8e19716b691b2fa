package financial

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// maxDocumentBytes caps PDF downloads. IR decks rarely exceed a few tens
// of megabytes; anything larger is not worth feeding to extraction.
const maxDocumentBytes = 64 << 20

// Downloader fetches located documents over HTTP.
type Downloader struct {
	http *http.Client
}

// NewDownloader creates a Downloader with the given per-request timeout.
func NewDownloader(timeout time.Duration) *Downloader {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Downloader{
		http: &http.Client{Timeout: timeout},
	}
}

// Download fetches the document at url and returns its bytes. Any
// non-2xx status is a failure.
func (d *Downloader) Download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "financial: build download request")
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "financial: download %s", url)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, eris.New(fmt.Sprintf("financial: download %s returned %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxDocumentBytes))
	if err != nil {
		return nil, eris.Wrapf(err, "financial: read document body from %s", url)
	}
	return body, nil
}
