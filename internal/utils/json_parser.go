package utils

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var (
	markdownJSONBlock  = regexp.MustCompile("(?s)```json\\s*(.+?)\\s*```")
	markdownBlock      = regexp.MustCompile("(?s)```\\s*(.+?)\\s*```")
	trailingComma      = regexp.MustCompile(`,\s*([}\]])`)
	controlCharacters  = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	pythonLiteralToken = regexp.MustCompile(`\b(True|False|None)\b`)
)

// ParseAIJSON extracts and parses a JSON object from model output that may be:
// - pure JSON
// - JSON wrapped in a markdown code block
// - JSON surrounded by prose
// - a Python-style dict literal with single quotes
func ParseAIJSON(input string, target interface{}) error {
	if strings.TrimSpace(input) == "" {
		return fmt.Errorf("empty input")
	}

	candidates := []string{input}
	if extracted := extractFromMarkdown(input); extracted != "" {
		candidates = append(candidates, extracted)
	}
	if start := strings.Index(input, "{"); start >= 0 {
		if extracted := extractBalancedBraces(input[start:], '{', '}'); extracted != "" {
			candidates = append(candidates, extracted)
		}
	}

	for _, c := range candidates {
		if err := json.Unmarshal([]byte(c), target); err == nil {
			return nil
		}
	}
	// Second pass: repair each candidate before giving up
	for _, c := range candidates[1:] {
		if err := json.Unmarshal([]byte(cleanAndFixJSON(c)), target); err == nil {
			return nil
		}
	}
	if err := json.Unmarshal([]byte(cleanAndFixJSON(input)), target); err == nil {
		return nil
	}

	return fmt.Errorf("failed to parse JSON from input: %s", truncateString(input, 100))
}

// extractFromMarkdown extracts JSON from markdown code blocks
func extractFromMarkdown(input string) string {
	if matches := markdownJSONBlock.FindStringSubmatch(input); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	if matches := markdownBlock.FindStringSubmatch(input); len(matches) > 1 {
		content := strings.TrimSpace(matches[1])
		if strings.HasPrefix(content, "{") || strings.HasPrefix(content, "[") {
			return content
		}
	}

	return ""
}

// extractBalancedBraces extracts the first balanced open/close span.
// Both single and double quoted strings are skipped so braces inside values do not count.
func extractBalancedBraces(input string, open, close rune) string {
	depth := 0
	var quote rune
	escape := false
	start := -1

	for i, ch := range input {
		if escape {
			escape = false
			continue
		}
		if ch == '\\' {
			escape = true
			continue
		}
		if quote != 0 {
			if ch == quote {
				quote = 0
			}
			continue
		}
		if ch == '"' || ch == '\'' {
			if depth > 0 {
				quote = ch
			}
			continue
		}

		switch ch {
		case open:
			if depth == 0 {
				start = i
			}
			depth++
		case close:
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 {
				return input[start : i+1]
			}
		}
	}

	return ""
}

// cleanAndFixJSON attempts to fix common formatting issues in model output
func cleanAndFixJSON(input string) string {
	s := strings.TrimSpace(input)
	s = strings.TrimPrefix(s, "\ufeff")
	s = convertSingleQuotes(s)
	s = pythonLiteralToken.ReplaceAllStringFunc(s, func(tok string) string {
		switch tok {
		case "True":
			return "true"
		case "False":
			return "false"
		default:
			return "null"
		}
	})
	s = trailingComma.ReplaceAllString(s, "$1")
	return controlCharacters.ReplaceAllString(s, "")
}

// convertSingleQuotes rewrites single-quoted strings as double-quoted ones.
// Apostrophes inside double-quoted strings are left alone and
// double quotes inside single-quoted strings are escaped.
func convertSingleQuotes(input string) string {
	var b strings.Builder
	var quote rune
	escape := false

	for _, ch := range input {
		if escape {
			if quote == '\'' && ch == '\'' {
				b.WriteRune('\'')
			} else {
				b.WriteRune('\\')
				b.WriteRune(ch)
			}
			escape = false
			continue
		}
		if ch == '\\' && quote != 0 {
			escape = true
			continue
		}

		switch {
		case quote == 0 && (ch == '"' || ch == '\''):
			quote = ch
			b.WriteRune('"')
		case quote != 0 && ch == quote:
			quote = 0
			b.WriteRune('"')
		case quote == '\'' && ch == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(ch)
		}
	}

	return b.String()
}

// truncateString truncates a string to maxLen characters
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
