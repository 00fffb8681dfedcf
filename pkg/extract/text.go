package extract

import (
	"strings"
	"unicode/utf8"
)

// extractText decodes a plain text file. Invalid UTF-8 is re-interpreted as
// Latin-1 rather than failing, matching the degrade-not-abort policy.
func extractText(data []byte) Result {
	if utf8.Valid(data) {
		return Result{Text: string(data)}
	}

	var builder strings.Builder
	builder.Grow(len(data))
	for _, b := range data {
		builder.WriteRune(rune(b))
	}

	return Result{Text: builder.String()}
}
