package financial

import "strings"

// Kind categorizes pipeline failures so callers can branch on outcome
// instead of matching message strings.
type Kind int

const (
	// KindSourceUnavailable means a data source could not be reached or
	// returned unusable content.
	KindSourceUnavailable Kind = iota + 1
	// KindDocumentMismatch means a located document belongs to a
	// different company than the one under analysis.
	KindDocumentMismatch
	// KindDataQuality means extracted data failed a structural check.
	KindDataQuality
	// KindConfiguration means a required credential or setting is absent.
	// Configuration failures are terminal and never trigger estimation.
	KindConfiguration
	// KindExhausted means every source in the fallback chain failed.
	KindExhausted
)

// Error is a typed pipeline failure. UseEstimation marks failures where
// canned industry estimates are an acceptable substitute; it is only ever
// set for subsidiaries, which routinely have no IR material of their own.
type Error struct {
	Kind          Kind
	Message       string
	UseEstimation bool
	cause         error
}

func (e *Error) Error() string {
	return SafeMessage(e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// newError builds an Error wrapping an optional cause.
func newError(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}

// SafeMessage rewrites characters that break downstream template and
// format-string processing into readable equivalents.
func SafeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "%", "パーセント")
	msg = strings.ReplaceAll(msg, "{", "（")
	msg = strings.ReplaceAll(msg, "}", "）")
	return msg
}

// truncateRunes cuts s to at most n runes without splitting a multibyte
// sequence.
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
