package generation

import (
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"
)

// ErrorPrefix marks a diagnostic text value.
const ErrorPrefix = "ERROR:"

// ErrorText renders err as an "ERROR: ..." diagnostic.
func ErrorText(err error) string {
	if err == nil {
		return ErrorPrefix + " unknown error"
	}
	return ErrorPrefix + " " + err.Error()
}

// TaggedErrorText renders err as a diagnostic with a bracketed tag, for example
// "[Generic HTTP Adapter Error] ...". The tag must end in "Error".
func TaggedErrorText(tag string, err error) string {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return "[" + tag + "] " + msg
}

// IsErrorText reports whether text is a diagnostic produced by a failed
// generation rather than generated content.
func IsErrorText(text string) bool {
	if strings.HasPrefix(text, ErrorPrefix) {
		return true
	}
	if !strings.HasPrefix(text, "[") {
		return false
	}
	end := strings.IndexByte(text, ']')
	if end < 0 {
		return false
	}
	return strings.HasSuffix(text[1:end], "Error")
}

// Truncate returns at most limit characters of s. It never splits a rune.
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	count := 0
	for i := range s {
		if count == limit {
			return s[:i]
		}
		count++
	}
	return s
}

// Preview returns a single-line prefix of prompt for log messages.
func Preview(prompt string, limit int) string {
	preview := strings.ReplaceAll(Truncate(prompt, limit), "\n", " ")
	if utf8.RuneCountInString(prompt) > limit {
		preview += "..."
	}
	return preview
}

// RecoverAsText turns a panic inside Generate into a diagnostic. It must be
// deferred directly, with text pointing at Generate's named result:
//
//	defer generation.RecoverAsText(g.logger, &text, generation.ErrorText)
func RecoverAsText(logger *slog.Logger, text *string, render func(error) string) {
	r := recover()
	if r == nil {
		return
	}
	err := fmt.Errorf("%w: panic: %v", ErrExecution, r)
	if logger != nil {
		logger.Error("generator panicked", "error", err)
	}
	*text = render(err)
}
