package tagger

import (
	"encoding/json"
	"strings"

	"k8s.io/klog/v2"
)

// Reconcile turns raw generative output into a complete Record. The model
// may wrap its JSON in prose or code fences; the first balanced top-level
// object is extracted and parsed. Two repair modes, deliberately asymmetric:
//
//   - unparseable output: every field becomes the placeholder (keywords an
//     empty list)
//   - parseable but incomplete: only the missing fields are filled in
//
// Reconcile never fails and is idempotent on complete records.
func Reconcile(raw string) Record {
	obj := extractObject(stripFences(raw))
	if obj == "" {
		klog.Warningf("no JSON object in response (%d bytes), using defaults", len(raw))
		return defaultRecord()
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(obj), &fields); err != nil {
		klog.Warningf("unparseable response %.80q, using defaults: %v", obj, err)
		return defaultRecord()
	}

	r := Record{
		Title:          stringField(fields, "title"),
		Description:    stringField(fields, "description"),
		MainGenre:      stringField(fields, "main_genre"),
		SecondaryGenre: stringField(fields, "secondary_genre"),
		Keywords:       keywordField(fields),
	}
	return r
}

func defaultRecord() Record {
	return Record{
		Title:          Placeholder,
		Description:    Placeholder,
		MainGenre:      Placeholder,
		SecondaryGenre: Placeholder,
		Keywords:       []string{},
	}
}

// stripFences removes markdown code-fence markers around the payload.
func stripFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// extractObject returns the first balanced top-level {...} span. A depth
// counter replaces a greedy regex so trailing prose or multiple objects
// can't confuse the scan. String literals are honored: braces inside
// quotes don't count.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		c := s[i]

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
				return s[start : i+1]
			}
		}
	}

	return ""
}

// stringField extracts a non-empty string value, or the placeholder.
func stringField(fields map[string]json.RawMessage, key string) string {
	raw, ok := fields[key]
	if !ok {
		return Placeholder
	}

	var v string
	if err := json.Unmarshal(raw, &v); err != nil || strings.TrimSpace(v) == "" {
		return Placeholder
	}
	return v
}

// keywordField extracts keywords as a list. A bare string is tolerated by
// splitting on commas; anything else becomes an empty list.
func keywordField(fields map[string]json.RawMessage) []string {
	raw, ok := fields["keywords"]
	if !ok {
		return []string{}
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		out := []string{}
		for _, k := range list {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		out := []string{}
		for _, k := range strings.Split(single, ",") {
			if k = strings.TrimSpace(k); k != "" {
				out = append(out, k)
			}
		}
		return out
	}

	return []string{}
}
