package quiz

import (
	"encoding/json"
	"html"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"coursedrive/internal/config"
)

// markupPolicy strips every tag from rich text stored as HTML strings
var markupPolicy = bluemonday.StrictPolicy().AddSpaceWhenStrippingTag(true)

// blockTypes end with a line break when rendered as plain text
var blockTypes = map[string]bool{
	"heading":     true,
	"paragraph":   true,
	"listItem":    true,
	"codeBlock":   true,
	"blockquote":  true,
	"tableRow":    true,
	"hardBreak":   true,
	"callout":     true,
	"question":    true,
	"explanation": true,
}

// PayloadText flattens a content payload into plain text for the quiz prompt.
// Editor documents ({"type":"doc","content":[...]}) are walked node by node;
// any other object contributes its string values. HTML markup inside strings is
// stripped. The result is capped at
// config.MaxQuizSourceLength runes.
func PayloadText(payload json.RawMessage) string {
	if len(payload) == 0 {
		return ""
	}

	var doc interface{}
	if err := json.Unmarshal(payload, &doc); err != nil {
		return ""
	}

	var b strings.Builder
	collectText(&b, doc)

	text := strings.TrimSpace(collapseBlankLines(b.String()))
	if runes := []rune(text); len(runes) > config.MaxQuizSourceLength {
		text = string(runes[:config.MaxQuizSourceLength])
	}
	return text
}

func collectText(b *strings.Builder, value interface{}) {
	switch v := value.(type) {
	case string:
		writeSpaced(b, v)
	case []interface{}:
		for _, child := range v {
			collectText(b, child)
		}
	case map[string]interface{}:
		nodeType, _ := v["type"].(string)

		if text, ok := v["text"].(string); ok {
			writeSpaced(b, text)
		}
		if content, ok := v["content"]; ok {
			collectText(b, content)
		}
		if nodeType == "" {
			// Not an editor node: take every other field, in key order
			keys := make([]string, 0, len(v))
			for key := range v {
				if key != "text" && key != "content" {
					keys = append(keys, key)
				}
			}
			sort.Strings(keys)
			for _, key := range keys {
				collectText(b, v[key])
			}
		}
		if blockTypes[nodeType] {
			b.WriteString("\n")
		}
	}
}

func writeSpaced(b *strings.Builder, s string) {
	if strings.ContainsAny(s, "<&") {
		s = strings.Join(strings.Fields(html.UnescapeString(markupPolicy.Sanitize(s))), " ")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	if b.Len() > 0 {
		last := b.String()[b.Len()-1]
		if last != '\n' && last != ' ' {
			b.WriteByte(' ')
		}
	}
	b.WriteString(s)
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}
