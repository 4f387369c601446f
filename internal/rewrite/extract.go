package rewrite

import "errors"

var (
	errNoJSON     = errors.New("no json value in response")
	errUnbalanced = errors.New("json value is not balanced")
)

// ExtractJSON returns the first balanced {...} or [...] span of text. Brackets
// inside string literals are ignored, so prose, markdown fences and trailing
// commentary around the value do not matter. A value cut off by truncation is
// reported as unbalanced.
func ExtractJSON(text string) (string, error) {
	start := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' || text[i] == '[' {
			start = i
			break
		}
	}
	if start < 0 {
		return "", errNoJSON
	}

	var (
		stack    []byte
		inString bool
		escaped  bool
	)
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
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return "", errUnbalanced
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return text[start : i+1], nil
			}
		}
	}
	return "", errUnbalanced
}
