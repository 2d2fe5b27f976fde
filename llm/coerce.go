package llm

import (
	"encoding/json"
	"strings"

	"pcap-analysis-api/report"
	"pcap-analysis-api/utils"
)

// CoerceAnalysis turns a free-form model reply into an AnalysisReport. It
// never fails: when no JSON can be recovered the raw text is wrapped into a
// fallback report carrying raw_response.
func CoerceAnalysis(reply string) *report.AnalysisReport {
	var r report.AnalysisReport
	if salvageJSON(reply, &r) {
		r.Normalize()
		return &r
	}
	utils.LLMSalvagedReplies.Add(1)
	return report.FromRaw(reply)
}

// CoerceComparison is the comparison-flavored equivalent of CoerceAnalysis.
func CoerceComparison(reply string) *report.ComparisonReport {
	var r report.ComparisonReport
	if salvageJSON(reply, &r) {
		r.Normalize()
		return &r
	}
	utils.LLMSalvagedReplies.Add(1)
	return report.ComparisonFromRaw(reply)
}

// salvageJSON tries, in order: direct parse, a fenced code block, the first
// balanced JSON object embedded in the text.
func salvageJSON(reply string, out any) bool {
	trimmed := strings.TrimSpace(reply)
	if json.Unmarshal([]byte(trimmed), out) == nil {
		return true
	}
	if block := extractFencedBlock(trimmed); block != "" {
		if json.Unmarshal([]byte(block), out) == nil {
			return true
		}
	}
	if obj := extractJSONObject(trimmed); obj != "" {
		if json.Unmarshal([]byte(obj), out) == nil {
			return true
		}
	}
	return false
}

// extractFencedBlock returns the contents of the first ```json (or bare ```)
// code block.
func extractFencedBlock(s string) string {
	start := strings.Index(s, "```json")
	if start == -1 {
		start = strings.Index(s, "```")
		if start == -1 {
			return ""
		}
	}

	nl := strings.Index(s[start:], "\n")
	if nl == -1 {
		return ""
	}
	body := s[start+nl+1:]

	end := strings.Index(body, "```")
	if end == -1 {
		return ""
	}
	return strings.TrimSpace(body[:end])
}

// extractJSONObject returns the first balanced JSON object in s, tracking
// string literals and escapes so braces inside values don't break matching.
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]

		if escaped {
			escaped = false
			continue
		}
		if ch == '\\' {
			escaped = true
			continue
		}
		if ch == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}

		switch ch {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return ""
}
