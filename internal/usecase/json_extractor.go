package usecase

import (
	"strings"

	"github.com/tidwall/gjson"
)

const codeFence = "```"

// ExtractJSON isolates the JSON payload from free-form model text.
// Markdown fences are removed first; if what remains is still not valid JSON,
// the first balanced {...} or [...] span is used instead. When nothing usable
// is found the fence-stripped text is returned unchanged so the caller's parse
// fails on the original content.
func ExtractJSON(raw string) string {
	text := stripCodeFence(raw)
	if text == "" || gjson.Valid(text) {
		return text
	}

	if span, ok := firstBalancedSpan(text); ok {
		return span
	}
	return text
}

// stripCodeFence removes a leading ``` / ```json fence line and the closing fence
func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if !strings.HasPrefix(text, codeFence) {
		return text
	}

	text = strings.TrimPrefix(text, codeFence)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 && isFenceLanguage(text[:idx]) {
		text = text[idx+1:]
	} else if len(text) >= 4 && strings.EqualFold(text[:4], "json") {
		text = text[4:]
	}

	if end := strings.LastIndex(text, codeFence); end >= 0 {
		text = text[:end]
	}
	return strings.TrimSpace(text)
}

// isFenceLanguage reports whether the rest of an opening fence line is a language tag
func isFenceLanguage(s string) bool {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_') {
			return false
		}
	}
	return true
}

// firstBalancedSpan returns the first valid JSON object or array embedded in text.
// Brackets inside string literals are ignored.
func firstBalancedSpan(text string) (string, bool) {
	start := 0
	for start < len(text) {
		if text[start] != '{' && text[start] != '[' {
			start++
			continue
		}
		end, ok, resume := matchBrackets(text, start)
		if !ok {
			start = resume
			continue
		}
		span := text[start : end+1]
		if gjson.Valid(span) {
			return span, true
		}
		start++
	}
	return "", false
}

// matchBrackets returns the index of the bracket closing the one at start.
// When there is no match, resume is the next start worth trying: openers
// between start and the failure point that were never closed fail the same
// way, so only an inner opener that did close, or the byte after a mismatched
// closer, can still begin a span.
func matchBrackets(text string, start int) (end int, ok bool, resume int) {
	type opener struct {
		pos    int
		closer byte
	}
	stack := make([]opener, 0, 8)
	firstClosed := len(text)
	inString := false
	escaped := false

	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, opener{pos: i, closer: '}'})
		case '[':
			stack = append(stack, opener{pos: i, closer: ']'})
		case '}', ']':
			top := stack[len(stack)-1]
			if top.closer != c {
				return 0, false, min(firstClosed, i+1)
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i, true, 0
			}
			firstClosed = min(firstClosed, top.pos)
		}
	}
	return 0, false, firstClosed
}
