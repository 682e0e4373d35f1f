package inference

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sparkfield/sparkfield/internal/entity"
)

// rawDecision is the wire shape produced by a backend. changes values
// arrive as json.Number so both 0.5 and "0.5" survive.
type rawDecision struct {
	Reasoning string                     `json:"reasoning"`
	Changes   map[string]json.RawMessage `json:"changes"`
}

// ParseDecision extracts a Decision from model output. Models wrap the
// JSON in prose, emit bare control characters inside strings, and vary
// key casing, so parsing is forgiving: find the embedded object,
// sanitize it, normalize keys; when strict decoding still fails, fall
// back to scanning for name/number pairs.
func ParseDecision(text string) (*Decision, error) {
	raw := extractObject(text)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	raw = sanitize(raw)

	var rd rawDecision
	if err := json.Unmarshal([]byte(raw), &rd); err == nil {
		d := &Decision{
			Reasoning: rd.Reasoning,
			Changes:   make(map[string]float64, len(rd.Changes)),
		}
		for key, val := range rd.Changes {
			name, ok := canonicalName(key)
			if !ok {
				continue
			}
			if f, ok := parseNumber(val); ok {
				d.Changes[name] = f
			}
		}
		if len(d.Changes) > 0 || d.Reasoning != "" {
			return d, nil
		}
	}

	if d := looseParse(raw); d != nil {
		return d, nil
	}
	return nil, fmt.Errorf("unparseable response")
}

// extractObject returns the outermost {...} in text, or "".
func extractObject(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return ""
	}
	return text[start : end+1]
}

// sanitize escapes bare control characters that would break the JSON
// decoder when a model emits literal newlines inside a string value.
func sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	inString := false
	escaped := false
	for _, r := range raw {
		if escaped {
			b.WriteRune(r)
			escaped = false
			continue
		}
		switch {
		case r == '\\' && inString:
			b.WriteRune(r)
			escaped = true
		case r == '"':
			inString = !inString
			b.WriteRune(r)
		case inString && r == '\n':
			b.WriteString(`\n`)
		case inString && r == '\r':
			b.WriteString(`\r`)
		case inString && r == '\t':
			b.WriteString(`\t`)
		case inString && r < 0x20:
			// Drop other control characters outright.
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// canonicalName maps a key of any casing (camelCase, snake_case,
// lowercase) onto the canonical parameter name.
func canonicalName(key string) (string, bool) {
	folded := foldName(key)
	for _, s := range entity.Specs {
		if foldName(s.Name) == folded {
			return s.Name, true
		}
	}
	return "", false
}

func foldName(s string) string {
	return strings.ToLower(strings.ReplaceAll(strings.ReplaceAll(s, "_", ""), "-", ""))
}

func parseNumber(val json.RawMessage) (float64, bool) {
	s := strings.TrimSpace(string(val))
	s = strings.Trim(s, `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// loosePair matches "name": 0.5 style fragments, quoted or not.
var loosePair = regexp.MustCompile(`"([A-Za-z_][A-Za-z0-9_]*)"\s*:\s*"?(-?\d+(?:\.\d+)?)"?`)

var looseReasoning = regexp.MustCompile(`"reasoning"\s*:\s*"((?:[^"\\]|\\.)*)"`)

// looseParse recovers what it can from structurally broken JSON by
// scanning for parameter name/number pairs. Returns nil when nothing
// usable is found.
func looseParse(raw string) *Decision {
	d := &Decision{Changes: make(map[string]float64)}
	for _, m := range loosePair.FindAllStringSubmatch(raw, -1) {
		name, ok := canonicalName(m[1])
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			continue
		}
		d.Changes[name] = f
	}
	if m := looseReasoning.FindStringSubmatch(raw); m != nil {
		d.Reasoning = m[1]
	}
	if len(d.Changes) == 0 {
		return nil
	}
	return d
}
