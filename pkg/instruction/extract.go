package instruction

import (
	"github.com/tidwall/gjson"

	"github.com/harun/mathroute/pkg/faults"
)

// MaxReplyBytes bounds how much of a reply is scanned for a JSON object.
const MaxReplyBytes = 16 << 10

// span locates the extracted object inside the reply.
type span struct {
	start, end int
}

// ExtractObject returns the first syntactically well-formed JSON object in
// text that carries a "tool" key, else the first well-formed object. Objects
// are tried in order of their opening brace. An unterminated object ahead of
// every candidate means the reply was cut off, which is NoJsonFound even when
// a nested object inside it is complete.
func ExtractObject(text string) (string, error) {
	obj, _, err := extractObject(text)
	return obj, err
}

func extractObject(text string) (string, span, error) {
	if len(text) > MaxReplyBytes {
		text = text[:MaxReplyBytes]
	}

	var first *span
	truncated := false

	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		end := matchBrace(text, i)
		if end < 0 {
			if first == nil {
				truncated = true
			}
			continue
		}
		candidate := text[i : end+1]
		if !gjson.Valid(candidate) {
			continue
		}
		loc := span{start: i, end: end + 1}
		if gjson.Get(candidate, "tool").Exists() {
			return candidate, loc, nil
		}
		if first == nil {
			first = &loc
		}
	}

	if truncated {
		return "", span{}, faults.New(faults.NoJSONFound, "", "reply contains an unterminated JSON object")
	}
	if first != nil {
		return text[first.start:first.end], *first, nil
	}
	return "", span{}, faults.New(faults.NoJSONFound, "", "reply does not contain a JSON object")
}

// matchBrace returns the index of the brace closing the one at start, or -1.
// Braces inside JSON strings are skipped.
func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false

	for j := start; j < len(text); j++ {
		c := text[j]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j
			}
		}
	}
	return -1
}
