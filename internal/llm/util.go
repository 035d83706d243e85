package llm

import "strings"

const fence = "```"

// ExtractJSONObject pulls the JSON object out of raw model output. Vision
// models wrap JSON in markdown fences or open with a lead-in line even when
// asked not to, so both are dropped. Anything after the object is not: when
// the object is unbalanced or followed by more text, the unfenced text is
// returned unchanged so the caller's decoder rejects it.
func ExtractJSONObject(raw string) string {
	text := stripFence(strings.TrimSpace(raw))

	start := strings.IndexByte(text, '{')
	if start < 0 {
		return text
	}
	end := objectEnd(text[start:])
	if end == 0 || strings.TrimSpace(text[start+end:]) != "" {
		return text
	}
	return text[start : start+end]
}

// stripFence removes a leading ```lang line and the last closing fence.
func stripFence(text string) string {
	if !strings.HasPrefix(text, fence) {
		return text
	}
	body := strings.TrimPrefix(text, fence)
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if tag := strings.TrimSpace(body[:nl]); !strings.ContainsAny(tag, "{[ ") {
			body = body[nl+1:]
		}
	} else if !strings.ContainsAny(body, "{[") {
		body = ""
	}
	if end := strings.LastIndex(body, fence); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// objectEnd returns the length of the balanced object at the start of text,
// or 0 when it never closes. Braces inside string literals are ignored.
func objectEnd(text string) int {
	depth := 0
	inString, escaped := false, false
	for i := 0; i < len(text); i++ {
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return 0
}
