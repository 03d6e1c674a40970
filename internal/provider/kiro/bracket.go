package kiro

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	calledPattern        = regexp.MustCompile(`\[Called\s+(\w+)\s+with\s+args:\s*`)
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
	unquotedKeyPattern   = regexp.MustCompile(`([{,]\s*)([a-zA-Z_][a-zA-Z0-9_]*)\s*:`)
	unquotedValuePattern = regexp.MustCompile(`:\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*([,}])`)
)

// ExtractBracketToolCalls scans text for "[Called <name> with args: <json>]"
// patterns per spec.md §4.4 step 5, returning the recovered tool calls and
// text with the matched spans stripped and whitespace runs collapsed.
func ExtractBracketToolCalls(text string) ([]ParsedToolCall, string) {
	if !strings.Contains(text, "[Called") {
		return nil, text
	}

	matches := calledPattern.FindAllStringSubmatchIndex(text, -1)
	if len(matches) == 0 {
		return nil, text
	}

	var calls []ParsedToolCall
	cleaned := text

	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		matchStart, nameStart, nameEnd := m[0], m[2], m[3]
		if nameStart < 0 || nameEnd < 0 {
			continue
		}
		name := text[nameStart:nameEnd]

		jsonStart := m[1]
		for jsonStart < len(text) && (text[jsonStart] == ' ' || text[jsonStart] == '\t') {
			jsonStart++
		}
		if jsonStart >= len(text) || text[jsonStart] != '{' {
			continue
		}

		jsonEnd := findMatchingBracket(text, jsonStart)
		if jsonEnd < 0 {
			continue
		}

		closeBracket := jsonEnd + 1
		for closeBracket < len(text) && text[closeBracket] != ']' {
			closeBracket++
		}
		if closeBracket >= len(text) {
			continue
		}

		fullMatch := text[matchStart : closeBracket+1]
		rawJSON := text[jsonStart : jsonEnd+1]
		repaired := repairJSON(rawJSON)

		var args map[string]any
		if err := json.Unmarshal([]byte(repaired), &args); err != nil {
			continue
		}

		calls = append(calls, ParsedToolCall{
			ID:    newBracketToolCallID(),
			Name:  name,
			Input: args,
		})
		cleaned = strings.Replace(cleaned, fullMatch, "", 1)
	}

	return calls, collapseWhitespace(cleaned)
}

// findMatchingBracket finds the index of the closing brace/bracket matching
// the opening one at startPos, honouring JSON string literals and escapes.
func findMatchingBracket(text string, startPos int) int {
	if startPos >= len(text) {
		return -1
	}
	open := text[startPos]
	var close byte
	switch open {
	case '{':
		close = '}'
	case '[':
		close = ']'
	default:
		return -1
	}

	depth := 1
	inString := false
	escaped := false
	for i := startPos + 1; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		if c == '\\' && inString {
			escaped = true
			continue
		}
		if c == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch c {
		case open:
			depth++
		case close:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// repairJSON applies three best-effort fixes per spec.md §4.4 step 5: strip
// trailing commas, quote unquoted object keys, and quote unquoted scalar
// values — the third is omitted in the teacher's own to_ir/kiro.go but is
// needed to parse bracket-call args emitted with bareword values.
func repairJSON(raw string) string {
	repaired := trailingCommaPattern.ReplaceAllString(raw, "$1")
	repaired = unquotedKeyPattern.ReplaceAllString(repaired, `$1"$2":`)
	repaired = unquotedValuePattern.ReplaceAllStringFunc(repaired, func(m string) string {
		sub := unquotedValuePattern.FindStringSubmatch(m)
		value := sub[1]
		switch value {
		case "true", "false", "null":
			return m
		}
		if _, err := json.Number(value).Float64(); err == nil {
			return m
		}
		return ": \"" + value + "\"" + sub[2]
	})
	return repaired
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
