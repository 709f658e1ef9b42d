package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	fencedJSONRe    = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	fencedAnyRe     = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyRe   = regexp.MustCompile(`([{,]\s*)([A-Za-z_]\w*)(\s*:)`)
	controlCharsRe  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
)

// ParseAIJSON decodes JSON produced by a language model. It accepts:
// - pure JSON
// - JSON inside markdown code fences
// - JSON surrounded by prose
// - JSON with trailing commas, unquoted keys or single quotes
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	candidates := []func(string) string{
		strings.TrimSpace,
		extractFromMarkdown,
		extractJSONFromText,
		cleanAndFixJSON,
		func(s string) string { return cleanAndFixJSON(extractJSONFromText(s)) },
	}
	for _, candidate := range candidates {
		text := candidate(input)
		if text == "" {
			continue
		}
		if err := json.Unmarshal([]byte(text), target); err == nil {
			return nil
		}
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// ExtractTaggedBlock returns the inner text of the first <tag>...</tag> block
func ExtractTaggedBlock(input, tag string) (string, bool) {
	q := regexp.QuoteMeta(tag)
	re := regexp.MustCompile(`<` + q + `>([\s\S]*?)</` + q + `>`)
	m := re.FindStringSubmatch(input)
	if len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// ContainsTag reports whether the opening <tag> appears in input
func ContainsTag(input, tag string) bool {
	return strings.Contains(input, "<"+tag+">")
}

// extractFromMarkdown extracts JSON from markdown code blocks
func extractFromMarkdown(input string) string {
	if m := fencedJSONRe.FindStringSubmatch(input); len(m) > 1 {
		return strings.TrimSpace(m[1])
	}
	if m := fencedAnyRe.FindStringSubmatch(input); len(m) > 1 {
		content := strings.TrimSpace(m[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}
	return ""
}

// extractJSONFromText finds the first JSON object or array in surrounding text
func extractJSONFromText(input string) string {
	objStart := strings.Index(input, "{")
	arrStart := strings.Index(input, "[")

	if objStart >= 0 && (arrStart < 0 || objStart < arrStart) {
		if s := extractBalancedBraces(input[objStart:], '{', '}'); s != "" {
			return s
		}
	}
	if arrStart >= 0 {
		if s := extractBalancedBraces(input[arrStart:], '[', ']'); s != "" {
			return s
		}
	}
	return ""
}

// extractBalancedBraces returns the first balanced open/close span, honouring string literals
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	inString := false
	escape := false
	start := -1

	for i, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"':
			inString = !inString
		case inString:
		case ch == open:
			if depth == 0 {
				start = i
			}
			depth++
		case ch == close && depth > 0:
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}
	return ""
}

// cleanAndFixJSON repairs the formatting mistakes models make most often
func cleanAndFixJSON(input string) string {
	s := strings.TrimPrefix(strings.TrimSpace(input), "\ufeff")
	if s == "" {
		return ""
	}
	s = trailingCommaRe.ReplaceAllString(s, "$1")
	s = unquotedKeyRe.ReplaceAllString(s, `$1"$2"$3`)
	s = fixSingleQuotes(s)
	return controlCharsRe.ReplaceAllString(s, "")
}

// fixSingleQuotes turns single-quoted JSON strings into double-quoted ones.
// Apostrophes inside words are left alone.
func fixSingleQuotes(input string) string {
	var b strings.Builder
	inDouble := false
	inSingle := false
	escape := false
	var prev rune

	for _, ch := range input {
		switch {
		case escape:
			escape = false
		case ch == '\\':
			escape = true
		case ch == '"' && !inSingle:
			inDouble = !inDouble
		case ch == '\'' && !inDouble:
			if inSingle {
				inSingle = false
				ch = '"'
			} else if prev == 0 || strings.ContainsRune(":,[{ ", prev) {
				inSingle = true
				ch = '"'
			}
		}
		b.WriteRune(ch)
		if ch != ' ' || prev == 0 {
			prev = ch
		}
	}
	return b.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
