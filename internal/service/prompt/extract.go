package prompt

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

var (
	codeFence     = regexp.MustCompile("(?s)```(?:\\w+\\n)?(.*?)```")
	suggestionKey = regexp.MustCompile(`^prompt_\d+$`)
)

// ErrInvalidSuggestions is returned when model output is not a usable suggestion set.
var ErrInvalidSuggestions = errors.New("invalid prompt format")

// ExtractCode returns the body of the first fenced code block in s. ok is
// false, and s is returned unchanged, when s contains no complete block.
func ExtractCode(s string) (code string, ok bool) {
	match := codeFence.FindStringSubmatch(s)
	if match == nil {
		return s, false
	}
	return match[1], true
}

// ParseSuggestions decodes model output of the form {"prompt_1": "...", ...}.
// A python-style literal such as {'prompt_1': '...'} is accepted as a fallback.
func ParseSuggestions(raw string) (map[string]string, error) {
	text := stripFence(raw)

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		obj, ok := decoded.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: not an object", ErrInvalidSuggestions)
		}
		out := make(map[string]string, len(obj))
		for key, value := range obj {
			str, ok := value.(string)
			if !ok {
				return nil, fmt.Errorf("%w: value of %s is not a string", ErrInvalidSuggestions, key)
			}
			out[key] = str
		}
		return checkSuggestions(out)
	}

	out, err := parseLiteral(text)
	if err != nil {
		return nil, err
	}
	return checkSuggestions(out)
}

func stripFence(raw string) string {
	text := strings.TrimSpace(raw)
	switch {
	case strings.HasPrefix(text, "```json"):
		text = strings.TrimPrefix(text, "```json")
	case strings.HasPrefix(text, "```"):
		text = strings.TrimPrefix(text, "```")
	default:
		return text
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), "```"))
}

// parseLiteral reads a python dict literal whose keys and values are all
// quoted strings. Quoted strings are decoded with python escape rules and
// re-encoded as JSON strings, so the remaining text must be a flow mapping
// of double-quoted scalars.
func parseLiteral(text string) (map[string]string, error) {
	normalized, err := requoteLiteral(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuggestions, err)
	}
	var doc yaml.Node
	if err := yaml.Unmarshal([]byte(normalized), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSuggestions, err)
	}
	node := &doc
	if node.Kind == yaml.DocumentNode && len(node.Content) == 1 {
		node = node.Content[0]
	}
	if node.Kind != yaml.MappingNode || node.Style&yaml.FlowStyle == 0 {
		return nil, fmt.Errorf("%w: not a dict literal", ErrInvalidSuggestions)
	}
	out := make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		if !quoted(key) {
			return nil, fmt.Errorf("%w: non-string key", ErrInvalidSuggestions)
		}
		if !quoted(value) {
			return nil, fmt.Errorf("%w: value of %s is not a string", ErrInvalidSuggestions, key.Value)
		}
		out[key.Value] = value.Value
	}
	return out, nil
}

func quoted(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Style&yaml.DoubleQuotedStyle != 0
}

// requoteLiteral rewrites every '...' or "..." string in text as a JSON
// string. Text outside strings is copied as is.
func requoteLiteral(text string) (string, error) {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); {
		q := text[i]
		if q != '\'' && q != '"' {
			b.WriteByte(q)
			i++
			continue
		}
		j := i + 1
		for ; j < len(text) && text[j] != q; j++ {
			switch text[j] {
			case '\\':
				j++
			case '\n':
				return "", errors.New("newline in string literal")
			}
		}
		if j >= len(text) {
			return "", errors.New("unterminated string literal")
		}
		decoded, err := unescapePython(text[i+1 : j])
		if err != nil {
			return "", err
		}
		enc, err := json.Marshal(decoded)
		if err != nil {
			return "", err
		}
		b.Write(enc)
		i = j + 1
	}
	return b.String(), nil
}

// unescapePython decodes the body of a non-raw python string literal.
// Unknown escapes keep their backslash, as python does.
func unescapePython(body string) (string, error) {
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); {
		if body[i] != '\\' {
			r, size := utf8.DecodeRuneInString(body[i:])
			b.WriteRune(r)
			i += size
			continue
		}
		if i+1 >= len(body) {
			return "", errors.New("trailing backslash")
		}
		c := body[i+1]
		i += 2
		switch c {
		case '\n':
		case '\\', '\'', '"':
			b.WriteByte(c)
		case 'a':
			b.WriteByte('\a')
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'v':
			b.WriteByte('\v')
		case '0', '1', '2', '3', '4', '5', '6', '7':
			end := i - 1
			for end < len(body) && end < i+2 && body[end] >= '0' && body[end] <= '7' {
				end++
			}
			n, _ := strconv.ParseUint(body[i-1:end], 8, 32)
			b.WriteRune(rune(n))
			i = end
		case 'x', 'u', 'U':
			width := 2
			switch c {
			case 'u':
				width = 4
			case 'U':
				width = 8
			}
			if i+width > len(body) {
				return "", fmt.Errorf("truncated \\%c escape", c)
			}
			n, err := strconv.ParseUint(body[i:i+width], 16, 32)
			if err != nil || n > utf8.MaxRune {
				return "", fmt.Errorf("invalid \\%c escape", c)
			}
			b.WriteRune(rune(n))
			i += width
		case 'N':
			return "", errors.New("named unicode escapes are not supported")
		default:
			b.WriteByte('\\')
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func checkSuggestions(in map[string]string) (map[string]string, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: no suggestions", ErrInvalidSuggestions)
	}
	for key, value := range in {
		if !suggestionKey.MatchString(key) {
			return nil, fmt.Errorf("%w: unexpected key %q", ErrInvalidSuggestions, key)
		}
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("%w: empty value for %s", ErrInvalidSuggestions, key)
		}
	}
	return in, nil
}
