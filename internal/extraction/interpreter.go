package extraction

import (
	"encoding/json"
	"strings"
)

// Kind classifies what a provider response actually contained.
type Kind string

const (
	// KindValues means genuine extracted field values were found.
	KindValues Kind = "VALUES"
	// KindSchemaEcho means the provider restated the template's field
	// prompts (or returned only empty values) instead of extracting data.
	KindSchemaEcho Kind = "SCHEMA_ECHO"
	// KindUnrecognized means the response shape carried nothing usable.
	KindUnrecognized Kind = "UNRECOGNIZED"
)

// Interpretation is the reduced form of a raw provider response.
type Interpretation struct {
	Kind   Kind
	Fields map[string]any
}

// bookkeepingKeys are provider-internal response keys that never carry
// extracted data.
var bookkeepingKeys = map[string]struct{}{
	"ai_agent_info":     {},
	"completion_reason": {},
	"created_at":        {},
	"type":              {},
	"id":                {},
	"scope":             {},
	"template":          {},
	"template_key":      {},
}

// structuralKeys are containers the interpreter descends into; their
// presence disqualifies the "direct key/value object" reading.
var structuralKeys = map[string]struct{}{
	"fields":   {},
	"answer":   {},
	"entries":  {},
	"metadata": {},
}

// Interpret reduces a raw provider response to a flat field mapping and a
// classification. It never fails: unknown or empty shapes reduce to an
// empty mapping with KindUnrecognized.
//
// Precedence when several shapes could match:
// explicit field list > direct key/value object > nested answer >
// legacy entries container > best-effort key filtering.
func Interpret(raw map[string]any) Interpretation {
	if len(raw) == 0 {
		return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
	}

	// 1) Explicit field list.
	if list, ok := raw["fields"].([]any); ok {
		return interpretFieldList(list)
	}

	// 2) Direct key/value object: no containers, no bookkeeping keys.
	if isDirectObject(raw) {
		fields := withoutInternalKeys(raw)
		if allEmpty(fields) {
			return Interpretation{Kind: KindSchemaEcho, Fields: map[string]any{}}
		}
		return Interpretation{Kind: KindValues, Fields: fields}
	}

	// 3) Nested answer (object or string).
	if answer, ok := raw["answer"]; ok {
		if in := interpretAnswer(answer); in.Kind != KindUnrecognized {
			return in
		}
	}

	// 4) Legacy entries container: first entry carries a metadata object.
	if entries, ok := raw["entries"].([]any); ok && len(entries) > 0 {
		if entry, ok := entries[0].(map[string]any); ok {
			if meta, ok := entry["metadata"].(map[string]any); ok {
				fields := withoutInternalKeys(meta)
				if len(fields) > 0 && !allEmpty(fields) {
					return Interpretation{Kind: KindValues, Fields: fields}
				}
			}
		}
	}

	// 5) Best-effort: strip bookkeeping/containers and use what remains.
	fields := withoutInternalKeys(raw)
	for k := range structuralKeys {
		delete(fields, k)
	}
	if len(fields) == 0 {
		if hasBookkeeping(raw) {
			// completion markers with no payload: a no-data response
			// disguised as data
			return Interpretation{Kind: KindSchemaEcho, Fields: map[string]any{}}
		}
		return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
	}
	if allEmpty(fields) {
		return Interpretation{Kind: KindSchemaEcho, Fields: map[string]any{}}
	}
	return Interpretation{Kind: KindValues, Fields: fields}
}

// interpretFieldList flattens a provider field list. Entries with both key
// and value are extracted data; entries carrying a prompt/type but no value
// are the template definition echoed back.
func interpretFieldList(list []any) Interpretation {
	values := make(map[string]any)
	echoed := 0
	for _, item := range list {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, ok := entry["key"].(string)
		if !ok || key == "" {
			continue
		}
		if v, ok := entry["value"]; ok {
			values[key] = v
			continue
		}
		_, hasPrompt := entry["prompt"]
		_, hasType := entry["type"]
		if hasPrompt || hasType {
			echoed++
		}
	}
	if len(values) > 0 && !allEmpty(values) {
		return Interpretation{Kind: KindValues, Fields: values}
	}
	if echoed > 0 || len(values) > 0 {
		return Interpretation{Kind: KindSchemaEcho, Fields: map[string]any{}}
	}
	return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
}

// interpretAnswer handles the nested answer shape: an object is re-checked
// one level down for the echo pattern, a string is parsed as JSON or kept
// as a single free-text field.
func interpretAnswer(answer any) Interpretation {
	switch a := answer.(type) {
	case map[string]any:
		if list, ok := a["fields"].([]any); ok {
			return interpretFieldList(list)
		}
		fields := withoutInternalKeys(a)
		if len(fields) == 0 {
			return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
		}
		if allEmpty(fields) {
			return Interpretation{Kind: KindSchemaEcho, Fields: map[string]any{}}
		}
		return Interpretation{Kind: KindValues, Fields: fields}
	case string:
		s := strings.TrimSpace(a)
		if s == "" {
			return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(s), &parsed); err == nil && len(parsed) > 0 {
			return interpretAnswer(parsed)
		}
		// not JSON: keep the whole answer as one free-text field
		return Interpretation{Kind: KindValues, Fields: map[string]any{"extracted_text": s}}
	default:
		return Interpretation{Kind: KindUnrecognized, Fields: map[string]any{}}
	}
}

func isDirectObject(raw map[string]any) bool {
	for k := range raw {
		if _, ok := bookkeepingKeys[k]; ok {
			return false
		}
		if _, ok := structuralKeys[k]; ok {
			return false
		}
	}
	return len(raw) > 0
}

func hasBookkeeping(raw map[string]any) bool {
	for k := range raw {
		if _, ok := bookkeepingKeys[k]; ok {
			return true
		}
	}
	return false
}

// withoutInternalKeys copies m, dropping bookkeeping keys and store-internal
// $-prefixed keys.
func withoutInternalKeys(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if _, ok := bookkeepingKeys[k]; ok {
			continue
		}
		if strings.HasPrefix(k, "$") {
			continue
		}
		out[k] = v
	}
	return out
}

// allEmpty reports whether every value in m is nil, an empty string, or an
// empty collection. Nested objects count as non-empty when they hold
// anything at all.
func allEmpty(m map[string]any) bool {
	for _, v := range m {
		switch t := v.(type) {
		case nil:
		case string:
			if strings.TrimSpace(t) != "" {
				return false
			}
		case []any:
			if len(t) != 0 {
				return false
			}
		case map[string]any:
			if len(t) != 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
