// Package pdftext extracts plain text from PDF documents.
package pdftext

import "context"

// Extractor extracts text content from raw PDF bytes. Implementations
// bound the extraction to the first maxPages pages; a maxPages of zero
// or less means no bound.
type Extractor interface {
	ExtractText(ctx context.Context, pdf []byte, maxPages int) (string, error)
}
